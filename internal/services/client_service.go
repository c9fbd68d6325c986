package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/leadflow/internal/events"
	"github.com/charlesng35/leadflow/internal/models"
	apperrors "github.com/charlesng35/leadflow/pkg/errors"
	"github.com/charlesng35/leadflow/pkg/logger"
)

// CreateClientInput captures the fields accepted when creating a client.
type CreateClientInput struct {
	Name       string              `json:"name" validate:"required,max=255"`
	Email      string              `json:"email" validate:"required,email,max=255"`
	Phone      string              `json:"phone" validate:"omitempty,max=64"`
	Company    string              `json:"company" validate:"omitempty,max=255"`
	Status     models.ClientStatus `json:"status" validate:"omitempty,client_status"`
	TotalValue *float64            `json:"total_value" validate:"omitempty,gte=0"`
	Address    string              `json:"address"`
	Notes      string              `json:"notes"`
	LeadID     *string             `json:"lead_id"`
}

// UpdateClientInput is a partial client update.
type UpdateClientInput struct {
	Name       *string              `json:"name"`
	Email      *string              `json:"email"`
	Phone      *string              `json:"phone"`
	Company    *string              `json:"company"`
	Status     *models.ClientStatus `json:"status"`
	TotalValue *float64             `json:"total_value"`
	Address    *string              `json:"address"`
	Notes      *string              `json:"notes"`
}

// ClientFilter narrows ListClients.
type ClientFilter struct {
	Search string
	Status models.ClientStatus
}

// ClientService manages clients and lead conversion.
type ClientService struct {
	db       *gorm.DB
	leads    *LeadService
	notifier Notifier
	events   events.Publisher
	log      *zap.Logger
}

// ClientOption customises the ClientService.
type ClientOption func(*ClientService)

// WithClientEvents publishes client changes on the event bus.
func WithClientEvents(p events.Publisher) ClientOption {
	return func(s *ClientService) {
		if p != nil {
			s.events = p
		}
	}
}

// NewClientService constructs a ClientService. leads is only needed for
// ConvertLead; notifier may be nil.
func NewClientService(db *gorm.DB, leads *LeadService, notifier Notifier, opts ...ClientOption) (*ClientService, error) {
	if db == nil {
		return nil, errors.New("client service: db is required")
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	svc := &ClientService{
		db:       db,
		leads:    leads,
		notifier: notifier,
		events:   events.NopPublisher{},
		log:      logger.WithModule("clients"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CreateClient validates and stores a client, then emits client_added.
func (s *ClientService) CreateClient(ctx context.Context, input CreateClientInput) (*models.Client, error) {
	ctx = ensureContext(ctx)

	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.LeadID = optionalID(input.LeadID)
	if input.Status == "" {
		input.Status = models.ClientStatusActive
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	client := models.Client{
		Name:       input.Name,
		Email:      input.Email,
		Phone:      strings.TrimSpace(input.Phone),
		Company:    strings.TrimSpace(input.Company),
		Status:     input.Status,
		TotalValue: input.TotalValue,
		Address:    strings.TrimSpace(input.Address),
		Notes:      strings.TrimSpace(input.Notes),
		LeadID:     input.LeadID,
	}
	if err := s.db.WithContext(ctx).Create(&client).Error; err != nil {
		return nil, storeError(s.log, "create client", err)
	}

	s.notifier.Emit(ctx, models.NotificationClientAdded, "New client: "+client.Name, client.Email, &client.ID)
	s.events.Publish(ctx, events.Event{Type: events.ClientCreated, SubjectID: client.ID, Payload: client})

	return &client, nil
}

// ConvertLead creates an active client from a lead, carrying its contact
// details and estimated value. The lead itself is left in place.
func (s *ClientService) ConvertLead(ctx context.Context, leadID string) (*models.Client, error) {
	if s.leads == nil {
		return nil, errors.New("client service: lead conversion unavailable")
	}
	lead, err := s.leads.GetLead(ctx, leadID)
	if err != nil {
		return nil, err
	}

	client, err := s.CreateClient(ctx, CreateClientInput{
		Name:       lead.Name,
		Email:      lead.Email,
		Phone:      lead.Phone,
		Company:    lead.Company,
		Status:     models.ClientStatusActive,
		TotalValue: lead.EstimatedValue,
		Notes:      lead.Notes,
		LeadID:     &lead.ID,
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, events.Event{Type: events.LeadConverted, SubjectID: lead.ID, Payload: client})
	return client, nil
}

// GetClient returns a client by id.
func (s *ClientService) GetClient(ctx context.Context, id string) (*models.Client, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.ErrNotFound
	}
	var client models.Client
	if err := s.db.WithContext(ensureContext(ctx)).First(&client, "id = ?", id).Error; err != nil {
		return nil, storeError(s.log, "get client", err)
	}
	return &client, nil
}

// ListClients returns clients matching the filter, newest first.
func (s *ClientService) ListClients(ctx context.Context, filter ClientFilter) ([]models.Client, error) {
	query := s.db.WithContext(ensureContext(ctx)).Model(&models.Client{})
	if term := strings.TrimSpace(filter.Search); term != "" {
		pattern := containsPattern(term)
		query = query.Where(
			containsClause("name", "email", "company"),
			pattern, pattern, pattern,
		)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	clients := []models.Client{}
	if err := query.Order("created_at DESC").Find(&clients).Error; err != nil {
		return nil, storeError(s.log, "list clients", err)
	}
	return clients, nil
}

// UpdateClient applies a partial update.
func (s *ClientService) UpdateClient(ctx context.Context, id string, input UpdateClientInput) (*models.Client, error) {
	ctx = ensureContext(ctx)
	client, err := s.GetClient(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]any)
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if err := validateField("name", name, "required,max=255"); err != nil {
			return nil, err
		}
		updates["name"] = name
	}
	if input.Email != nil {
		email := strings.TrimSpace(*input.Email)
		if err := validateField("email", email, "required,email,max=255"); err != nil {
			return nil, err
		}
		updates["email"] = email
	}
	if input.Status != nil {
		if err := validateField("status", string(*input.Status), "required,client_status"); err != nil {
			return nil, err
		}
		updates["status"] = *input.Status
	}
	if input.TotalValue != nil {
		if err := validateField("total_value", *input.TotalValue, "gte=0"); err != nil {
			return nil, err
		}
		updates["total_value"] = *input.TotalValue
	}
	if input.Phone != nil {
		updates["phone"] = *trimPtr(input.Phone)
	}
	if input.Company != nil {
		updates["company"] = *trimPtr(input.Company)
	}
	if input.Address != nil {
		updates["address"] = *trimPtr(input.Address)
	}
	if input.Notes != nil {
		updates["notes"] = *trimPtr(input.Notes)
	}

	if len(updates) == 0 {
		return client, nil
	}
	if err := s.db.WithContext(ctx).Model(client).Updates(updates).Error; err != nil {
		return nil, storeError(s.log, "update client", err)
	}

	updated, err := s.GetClient(ctx, client.ID)
	if err != nil {
		return nil, err
	}
	s.events.Publish(ctx, events.Event{Type: events.ClientUpdated, SubjectID: updated.ID, Payload: *updated})
	return updated, nil
}

// DeleteClient removes a client.
func (s *ClientService) DeleteClient(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	result := s.db.WithContext(ensureContext(ctx)).Where("id = ?", id).Delete(&models.Client{})
	if result.Error != nil {
		return storeError(s.log, "delete client", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	s.events.Publish(ctx, events.Event{Type: events.ClientDeleted, SubjectID: id})
	return nil
}
