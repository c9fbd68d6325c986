package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/leadflow/internal/auditctx"
	"github.com/charlesng35/leadflow/internal/events"
	"github.com/charlesng35/leadflow/internal/models"
	"github.com/charlesng35/leadflow/internal/pipeline"
	apperrors "github.com/charlesng35/leadflow/pkg/errors"
	"github.com/charlesng35/leadflow/pkg/logger"
	"github.com/charlesng35/leadflow/pkg/metrics"
)

const (
	SourceAdmin   = "admin"
	SourceWebsite = "website"
	SourceBooking = "booking"
)

var instagramNote = regexp.MustCompile(`(?i)instagram:\s*@?([A-Za-z0-9._]{1,30})`)

// CreateLeadInput captures the fields accepted when creating a lead.
type CreateLeadInput struct {
	Name            string              `json:"name" validate:"required,max=255"`
	Email           string              `json:"email" validate:"required,email,max=255"`
	Phone           string              `json:"phone" validate:"omitempty,max=64"`
	Company         string              `json:"company" validate:"omitempty,max=255"`
	Priority        models.LeadPriority `json:"priority" validate:"omitempty,lead_priority"`
	Source          string              `json:"source" validate:"omitempty,max=64"`
	EstimatedValue  *float64            `json:"estimated_value" validate:"omitempty,gte=0"`
	Notes           string              `json:"notes"`
	InstagramHandle string              `json:"instagram_handle" validate:"omitempty,max=64"`
	ServiceInterest string              `json:"service_interest" validate:"omitempty,max=255"`
	BookingTime     *time.Time          `json:"booking_time"`
	PipelineStageID *string             `json:"pipeline_stage_id"`
}

// UpdateLeadInput is a partial update. Nil fields are left untouched. Status
// cannot be set directly; it follows the stage.
type UpdateLeadInput struct {
	Name            *string              `json:"name"`
	Email           *string              `json:"email"`
	Phone           *string              `json:"phone"`
	Company         *string              `json:"company"`
	Priority        *models.LeadPriority `json:"priority"`
	Source          *string              `json:"source"`
	EstimatedValue  *float64             `json:"estimated_value"`
	Notes           *string              `json:"notes"`
	InstagramHandle *string              `json:"instagram_handle"`
	ServiceInterest *string              `json:"service_interest"`
	BookingTime     *time.Time           `json:"booking_time"`
	PipelineStageID *string              `json:"pipeline_stage_id"`
}

// LeadFilter narrows ListLeads. Every set field must match.
type LeadFilter struct {
	Search   string
	Status   models.LeadStatus
	Priority models.LeadPriority
	StageID  string
	Limit    int
	Offset   int
}

// CaptureInput is the body posted by the public lead form.
type CaptureInput struct {
	FormData    CaptureFormData     `json:"formData"`
	BookingData *CaptureBookingData `json:"bookingData"`
}

// CaptureFormData holds the website form fields.
type CaptureFormData struct {
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Phone     string   `json:"phone"`
	Company   string   `json:"company"`
	Service   string   `json:"service"`
	Message   string   `json:"message"`
	Instagram string   `json:"instagram"`
	Source    string   `json:"source"`
	Budget    *float64 `json:"budget"`
}

// CaptureBookingData holds the attendee details of a calendar booking.
type CaptureBookingData struct {
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	StartTime *time.Time `json:"startTime"`
	Service   string     `json:"service"`
	Notes     string     `json:"notes"`
}

// LeadService is the lead registry. It owns every write to leads, including
// stage moves, so status can never drift from the stage.
type LeadService struct {
	db       *gorm.DB
	stages   *StageService
	notifier Notifier
	events   events.Publisher
	now      func() time.Time
	log      *zap.Logger
}

// LeadOption customises the LeadService.
type LeadOption func(*LeadService)

// WithLeadEvents publishes lead changes on the event bus.
func WithLeadEvents(p events.Publisher) LeadOption {
	return func(s *LeadService) {
		if p != nil {
			s.events = p
		}
	}
}

// WithLeadClock overrides the clock used for history rows.
func WithLeadClock(now func() time.Time) LeadOption {
	return func(s *LeadService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewLeadService constructs a LeadService. notifier may be nil.
func NewLeadService(db *gorm.DB, stages *StageService, notifier Notifier, opts ...LeadOption) (*LeadService, error) {
	if db == nil {
		return nil, errors.New("lead service: db is required")
	}
	if stages == nil {
		return nil, errors.New("lead service: stage service is required")
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}

	svc := &LeadService{
		db:       db,
		stages:   stages,
		notifier: notifier,
		events:   events.NopPublisher{},
		now:      time.Now,
		log:      logger.WithModule("leads"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CreateLead validates input and stores a new lead. Without an explicit stage
// the lead lands in the lowest-ordered stage with status new.
func (s *LeadService) CreateLead(ctx context.Context, input CreateLeadInput) (*models.Lead, error) {
	ctx = ensureContext(ctx)

	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.Phone = strings.TrimSpace(input.Phone)
	input.Company = strings.TrimSpace(input.Company)
	input.Source = strings.TrimSpace(input.Source)
	input.Notes = strings.TrimSpace(input.Notes)
	input.ServiceInterest = strings.TrimSpace(input.ServiceInterest)
	input.InstagramHandle = normaliseHandle(input.InstagramHandle)
	input.PipelineStageID = optionalID(input.PipelineStageID)
	if input.Priority == "" {
		input.Priority = models.LeadPriorityMedium
	}
	if input.Source == "" {
		input.Source = SourceAdmin
	}
	if input.InstagramHandle == "" {
		input.InstagramHandle = InstagramFromNotes(input.Notes)
	}

	if err := validateInput(input); err != nil {
		return nil, err
	}

	lead := models.Lead{
		Name:            input.Name,
		Email:           input.Email,
		Phone:           input.Phone,
		Company:         input.Company,
		Status:          models.LeadStatusNew,
		Priority:        input.Priority,
		Source:          input.Source,
		EstimatedValue:  input.EstimatedValue,
		Notes:           input.Notes,
		InstagramHandle: input.InstagramHandle,
		ServiceInterest: input.ServiceInterest,
		BookingTime:     input.BookingTime,
	}

	if input.PipelineStageID != nil {
		stage, err := s.knownStage(ctx, *input.PipelineStageID)
		if err != nil {
			return nil, err
		}
		lead.PipelineStageID = &stage.ID
		lead.Status = pipeline.StatusFor(*stage)
	} else {
		stage, err := s.stages.DefaultStage(ctx)
		switch {
		case err == nil:
			lead.PipelineStageID = &stage.ID
		case apperrors.IsNotFound(err):
			s.log.Warn("no pipeline stages defined, lead left unassigned", zap.String("email", lead.Email))
		default:
			return nil, err
		}
	}

	if err := s.db.WithContext(ctx).Create(&lead).Error; err != nil {
		return nil, storeError(s.log, "create lead", err)
	}

	metrics.LeadsCreated.WithLabelValues(lead.Source).Inc()

	s.notifier.Emit(ctx, models.NotificationNewLead,
		"New lead: "+lead.Name,
		leadSummary(&lead),
		&lead.ID,
	)
	s.publish(ctx, events.LeadCreated, &lead)

	return &lead, nil
}

// CaptureLead turns a public form submission into a lead. Booking attendee
// details fill in whatever the form left blank.
func (s *LeadService) CaptureLead(ctx context.Context, input CaptureInput) (*models.Lead, error) {
	form := input.FormData
	create := CreateLeadInput{
		Name:            form.Name,
		Email:           form.Email,
		Phone:           form.Phone,
		Company:         form.Company,
		Source:          form.Source,
		EstimatedValue:  form.Budget,
		Notes:           form.Message,
		InstagramHandle: form.Instagram,
		ServiceInterest: form.Service,
	}

	if booking := input.BookingData; booking != nil {
		create.Name = firstNonBlank(create.Name, booking.Name)
		create.Email = firstNonBlank(create.Email, booking.Email)
		create.Phone = firstNonBlank(create.Phone, booking.Phone)
		create.ServiceInterest = firstNonBlank(create.ServiceInterest, booking.Service)
		create.Notes = firstNonBlank(create.Notes, booking.Notes)
		create.BookingTime = booking.StartTime
		create.Source = firstNonBlank(create.Source, SourceBooking)
	}
	create.Source = firstNonBlank(create.Source, SourceWebsite)

	return s.CreateLead(ctx, create)
}

// GetLead returns a lead by id.
func (s *LeadService) GetLead(ctx context.Context, id string) (*models.Lead, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.ErrNotFound
	}

	var lead models.Lead
	if err := s.db.WithContext(ensureContext(ctx)).First(&lead, "id = ?", id).Error; err != nil {
		return nil, storeError(s.log, "get lead", err)
	}
	return &lead, nil
}

// ListLeads returns leads matching every set filter field, newest first. A
// zero Limit returns all matches.
func (s *LeadService) ListLeads(ctx context.Context, filter LeadFilter) ([]models.Lead, error) {
	query := s.db.WithContext(ensureContext(ctx)).Model(&models.Lead{})

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
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}
	if stageID := strings.TrimSpace(filter.StageID); stageID != "" {
		query = query.Where("pipeline_stage_id = ?", stageID)
	}
	if filter.Limit > 0 {
		limit, offset := clampPage(filter.Limit, filter.Offset, 50, 500)
		query = query.Limit(limit).Offset(offset)
	}

	leads := []models.Lead{}
	if err := query.Order("created_at DESC").Find(&leads).Error; err != nil {
		return nil, storeError(s.log, "list leads", err)
	}
	return leads, nil
}

// UpdateLead applies a partial update. A stage change goes through
// MoveLeadToStage so the status is derived from the new stage.
func (s *LeadService) UpdateLead(ctx context.Context, id string, input UpdateLeadInput) (*models.Lead, error) {
	ctx = ensureContext(ctx)

	lead, err := s.GetLead(ctx, id)
	if err != nil {
		return nil, err
	}

	updates, err := leadUpdates(input)
	if err != nil {
		return nil, err
	}

	stageID := optionalID(input.PipelineStageID)
	if stageID != nil {
		if _, err := s.knownStage(ctx, *stageID); err != nil {
			return nil, err
		}
	}

	if len(updates) > 0 {
		updates["updated_at"] = s.now().UTC()
		if err := s.db.WithContext(ctx).Model(&models.Lead{}).Where("id = ?", lead.ID).Updates(updates).Error; err != nil {
			return nil, storeError(s.log, "update lead", err)
		}
	}

	if stageID != nil {
		if _, err := s.MoveLeadToStage(ctx, lead.ID, *stageID); err != nil {
			return nil, err
		}
	}

	updated, err := s.GetLead(ctx, lead.ID)
	if err != nil {
		return nil, err
	}

	s.notifier.Emit(ctx, models.NotificationLeadUpdated,
		"Lead updated: "+updated.Name,
		leadSummary(updated),
		&updated.ID,
	)
	s.publish(ctx, events.LeadUpdated, updated)

	return updated, nil
}

// knownStage resolves a stage referenced by client input. An unknown id is a
// validation failure rather than a missing resource.
func (s *LeadService) knownStage(ctx context.Context, id string) (*models.PipelineStage, error) {
	stage, err := s.stages.GetStage(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewValidation("pipeline_stage_id does not reference a known stage")
		}
		return nil, err
	}
	return stage, nil
}

// DeleteLead removes a lead and its stage history.
func (s *LeadService) DeleteLead(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)
	id = strings.TrimSpace(id)
	if id == "" {
		return apperrors.ErrNotFound
	}

	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Lead{})
	if result.Error != nil {
		return storeError(s.log, "delete lead", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}

	if err := s.db.WithContext(ctx).Where("lead_id = ?", id).Delete(&models.LeadStageChange{}).Error; err != nil {
		s.log.Warn("delete lead history failed", zap.String("lead_id", id), zap.Error(err))
	}

	s.events.Publish(ctx, events.Event{Type: events.LeadDeleted, SubjectID: id})
	return nil
}

// MoveLeadToStage puts a lead into a stage and sets the status mapped to that
// stage. Moving back out of a closed stage is allowed. Concurrent moves of the
// same lead are not reconciled; the last write wins.
func (s *LeadService) MoveLeadToStage(ctx context.Context, leadID, stageID string) (*models.Lead, error) {
	ctx = ensureContext(ctx)

	lead, err := s.GetLead(ctx, leadID)
	if err != nil {
		return nil, err
	}
	stage, err := s.stages.GetStage(ctx, stageID)
	if err != nil {
		return nil, err
	}

	status := pipeline.StatusFor(*stage)
	if lead.InStage(stage.ID) && lead.Status == status {
		return lead, nil
	}

	fromStage, fromStatus := lead.PipelineStageID, lead.Status
	now := s.now().UTC()

	if err := s.db.WithContext(ctx).Model(&models.Lead{}).Where("id = ?", lead.ID).Updates(map[string]any{
		"pipeline_stage_id": stage.ID,
		"status":            status,
		"updated_at":        now,
	}).Error; err != nil {
		return nil, storeError(s.log, "move lead", err)
	}

	lead.PipelineStageID = &stage.ID
	lead.Status = status
	lead.UpdatedAt = now

	change := models.LeadStageChange{
		LeadID:      lead.ID,
		FromStageID: fromStage,
		ToStageID:   stage.ID,
		FromStatus:  fromStatus,
		ToStatus:    status,
		CreatedAt:   now,
	}
	if actor, ok := auditctx.FromContext(ctx); ok {
		change.ChangedBy = actor.Label()
	}
	if err := s.db.WithContext(ctx).Create(&change).Error; err != nil {
		s.log.Warn("record stage change failed", zap.String("lead_id", lead.ID), zap.Error(err))
	}

	s.events.Publish(ctx, events.Event{
		Type:      events.LeadMoved,
		SubjectID: lead.ID,
		Payload: pipeline.Move{
			Lead:       *lead,
			FromStage:  fromStage,
			ToStage:    stage.ID,
			FromStatus: fromStatus,
		},
	})

	return lead, nil
}

// History returns the stage moves of a lead, oldest first.
func (s *LeadService) History(ctx context.Context, leadID string) ([]models.LeadStageChange, error) {
	ctx = ensureContext(ctx)
	lead, err := s.GetLead(ctx, leadID)
	if err != nil {
		return nil, err
	}

	changes := []models.LeadStageChange{}
	if err := s.db.WithContext(ctx).
		Where("lead_id = ?", lead.ID).
		Order("created_at ASC").
		Find(&changes).Error; err != nil {
		return nil, storeError(s.log, "lead history", err)
	}
	return changes, nil
}

func (s *LeadService) publish(ctx context.Context, kind events.Type, lead *models.Lead) {
	s.events.Publish(ctx, events.Event{Type: kind, SubjectID: lead.ID, Payload: *lead})
}

func leadUpdates(input UpdateLeadInput) (map[string]any, error) {
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
	if input.Priority != nil {
		if err := validateField("priority", string(*input.Priority), "required,lead_priority"); err != nil {
			return nil, err
		}
		updates["priority"] = *input.Priority
	}
	if input.EstimatedValue != nil {
		if err := validateField("estimated_value", *input.EstimatedValue, "gte=0"); err != nil {
			return nil, err
		}
		updates["estimated_value"] = *input.EstimatedValue
	}
	if input.InstagramHandle != nil {
		handle := normaliseHandle(*input.InstagramHandle)
		if err := validateField("instagram_handle", handle, "omitempty,max=64"); err != nil {
			return nil, err
		}
		updates["instagram_handle"] = handle
	}

	text := map[string]*string{
		"phone":            input.Phone,
		"company":          input.Company,
		"source":           input.Source,
		"notes":            input.Notes,
		"service_interest": input.ServiceInterest,
	}
	for column, value := range text {
		if value != nil {
			updates[column] = *trimPtr(value)
		}
	}

	if input.BookingTime != nil {
		updates["booking_time"] = *input.BookingTime
	}

	return updates, nil
}

// InstagramFromNotes extracts a handle written as "Instagram: @handle" in
// free-text notes. It returns "" when none is present.
func InstagramFromNotes(notes string) string {
	match := instagramNote.FindStringSubmatch(notes)
	if len(match) < 2 {
		return ""
	}
	return match[1]
}

func normaliseHandle(handle string) string {
	return strings.TrimPrefix(strings.TrimSpace(handle), "@")
}

func leadSummary(lead *models.Lead) string {
	summary := lead.Email
	if lead.Company != "" {
		summary = fmt.Sprintf("%s (%s)", summary, lead.Company)
	}
	if lead.Source != "" {
		summary += " via " + lead.Source
	}
	return summary
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

type nopNotifier struct{}

func (nopNotifier) Emit(context.Context, models.NotificationType, string, string, *string) {}

// BoardRepository adapts the stage and lead services to the pipeline board.
type BoardRepository struct {
	Stages *StageService
	Leads  *LeadService
}

// ListStages implements pipeline.Repository.
func (r BoardRepository) ListStages(ctx context.Context) ([]models.PipelineStage, error) {
	stages, err := r.Stages.listStages(ensureContext(ctx))
	if err != nil {
		return nil, storeError(r.Stages.log, "list stages", err)
	}
	return stages, nil
}

// ListLeads implements pipeline.Repository.
func (r BoardRepository) ListLeads(ctx context.Context) ([]models.Lead, error) {
	return r.Leads.ListLeads(ctx, LeadFilter{})
}

// MoveLeadToStage implements pipeline.Repository.
func (r BoardRepository) MoveLeadToStage(ctx context.Context, leadID, stageID string) (*models.Lead, error) {
	return r.Leads.MoveLeadToStage(ctx, leadID, stageID)
}

var _ pipeline.Repository = BoardRepository{}
