package api

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/leadflow/internal/cache"
	"github.com/charlesng35/leadflow/internal/events"
	"github.com/charlesng35/leadflow/internal/realtime"
	"github.com/charlesng35/leadflow/internal/services"
	"github.com/charlesng35/leadflow/internal/storage"
)

// ServiceConfig carries the collaborators shared by the services.
type ServiceConfig struct {
	// Broadcaster pushes notifications to live subscribers. Leave nil to
	// disable the live feed.
	Broadcaster        realtime.Broadcaster
	Bus                *events.Bus
	Cache              cache.Store
	Storage            storage.Store
	MaxUploadBytes     int64
	ChatWebhookURL     string
	ChatWebhookTimeout time.Duration
}

// Services groups every domain service the HTTP layer and the CLI use.
type Services struct {
	Stages        *services.StageService
	Leads         *services.LeadService
	Clients       *services.ClientService
	Notifications *services.NotificationService
	Content       *services.ContentService
	Media         *services.MediaService
	Chat          *services.ChatService
	Dashboard     *services.DashboardService
}

// NewServices constructs the services over db. Media is left nil when no
// storage backend is configured.
func NewServices(db *gorm.DB, cfg ServiceConfig) (*Services, error) {
	if db == nil {
		return nil, errors.New("services: database handle must be provided")
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Bus != nil {
		publisher = cfg.Bus
	}

	stages, err := services.NewStageService(db)
	if err != nil {
		return nil, err
	}
	notifications, err := services.NewNotificationService(db, cfg.Broadcaster, services.WithNotificationEvents(publisher))
	if err != nil {
		return nil, err
	}
	leads, err := services.NewLeadService(db, stages, notifications, services.WithLeadEvents(publisher))
	if err != nil {
		return nil, err
	}
	clients, err := services.NewClientService(db, leads, notifications, services.WithClientEvents(publisher))
	if err != nil {
		return nil, err
	}
	content, err := services.NewContentService(db)
	if err != nil {
		return nil, err
	}
	chat, err := services.NewChatService(db, services.WithChatWebhook(cfg.ChatWebhookURL, cfg.ChatWebhookTimeout))
	if err != nil {
		return nil, err
	}
	dashboard, err := services.NewDashboardService(db, cfg.Cache)
	if err != nil {
		return nil, err
	}
	if cfg.Bus != nil {
		dashboard.Subscribe(cfg.Bus)
	}

	var media *services.MediaService
	if cfg.Storage != nil {
		if media, err = services.NewMediaService(db, cfg.Storage, cfg.MaxUploadBytes); err != nil {
			return nil, err
		}
	}

	return &Services{
		Stages:        stages,
		Leads:         leads,
		Clients:       clients,
		Notifications: notifications,
		Content:       content,
		Media:         media,
		Chat:          chat,
		Dashboard:     dashboard,
	}, nil
}

// Board returns the repository the pipeline board loads from.
func (s *Services) Board() services.BoardRepository {
	return services.BoardRepository{Stages: s.Stages, Leads: s.Leads}
}
