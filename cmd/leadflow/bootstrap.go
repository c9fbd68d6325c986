package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/leadflow/internal/api"
	"github.com/charlesng35/leadflow/internal/app"
	"github.com/charlesng35/leadflow/internal/app/maintenance"
	iauth "github.com/charlesng35/leadflow/internal/auth"
	"github.com/charlesng35/leadflow/internal/cache"
	"github.com/charlesng35/leadflow/internal/database"
	"github.com/charlesng35/leadflow/internal/events"
	"github.com/charlesng35/leadflow/internal/middleware"
	"github.com/charlesng35/leadflow/internal/monitoring"
	"github.com/charlesng35/leadflow/internal/monitoring/checks"
	"github.com/charlesng35/leadflow/internal/realtime"
	"github.com/charlesng35/leadflow/internal/security"
	"github.com/charlesng35/leadflow/internal/services"
	"github.com/charlesng35/leadflow/internal/storage"
	"github.com/charlesng35/leadflow/pkg/logger"
	"github.com/charlesng35/leadflow/pkg/mail"
)

const maintenanceMaxAge = 48 * time.Hour

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB        *gorm.DB
	Redis     *redis.Client
	Cache     cache.Store
	Bus       *events.Bus
	Sink      *events.AMQPSink
	Hub       *realtime.Hub
	Services  *api.Services
	Cleaner   *maintenance.Cleaner
	RateStore middleware.RateStore
	Health    *monitoring.HealthManager
	Router    *gin.Engine

	unsubscribe []func()
	stopRelay   context.CancelFunc
	relayDone   sync.WaitGroup
}

// bootstrapRuntime initialises the database, caches, event fan-out, services and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	dbStore := cache.NewDatabaseStore(stack.DB)
	stack.Cache = dbStore

	var redisStore *cache.RedisStore
	if cfg.Cache.Redis.Enabled {
		if stack.Redis, err = cache.NewRedisClient(ctx, cfg.Cache.RedisClientConfig()); err != nil {
			log.Warn("redis unavailable; falling back to database-backed operations", zap.Error(err))
			stack.Redis = nil
		} else {
			redisStore = cache.NewRedisStore(stack.Redis, cfg.Cache.Redis.Prefix)
			stack.Cache = redisStore
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}
	stack.RateStore = middleware.NewCacheRateStore(stack.Cache)

	stack.Bus = events.NewBus()

	broadcaster, err := stack.startRealtime(cfg, log)
	if err != nil {
		return nil, err
	}

	if cfg.Events.AMQP.Enabled {
		if stack.Sink, err = events.NewAMQPSink(cfg.Events.AMQP.SinkConfig()); err != nil {
			log.Warn("amqp sink unavailable; events stay in-process", zap.Error(err))
			stack.Sink = nil
		} else {
			stack.unsubscribe = append(stack.unsubscribe, stack.Bus.Subscribe(stack.Sink.Handle))
			log.Info("amqp sink connected", zap.String("exchange", cfg.Events.AMQP.Exchange))
		}
	}

	if cfg.Email.SMTP.Enabled {
		mailer, mailErr := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
		if mailErr != nil {
			return nil, fmt.Errorf("initialise smtp mailer: %w", mailErr)
		}
		if alerts := services.NewLeadAlertMailer(mailer, cfg.Email.Recipients()); alerts != nil {
			stack.unsubscribe = append(stack.unsubscribe, alerts.Subscribe(stack.Bus))
		} else {
			log.Warn("smtp enabled without alert recipients; lead alerts disabled")
		}
	}

	store, err := cfg.Storage.OpenStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialise media storage: %w", err)
	}
	var uploadsDir string
	if local, ok := store.(*storage.LocalStore); ok {
		uploadsDir = local.Root()
	}

	stack.Services, err = api.NewServices(stack.DB, api.ServiceConfig{
		Broadcaster:        broadcaster,
		Bus:                stack.Bus,
		Cache:              stack.Cache,
		Storage:            store,
		MaxUploadBytes:     cfg.Storage.MaxUploadBytes,
		ChatWebhookURL:     cfg.Chat.WebhookURL,
		ChatWebhookTimeout: cfg.Chat.WebhookTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise services: %w", err)
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}
	gate, err := iauth.NewAdminGate(cfg.Admin.AdminGateConfig(), jwtSvc)
	if err != nil {
		return nil, fmt.Errorf("initialise admin gate: %w", err)
	}

	if cfg.Maintenance.Enabled {
		stack.Cleaner = maintenance.NewCleaner(stack.DB,
			maintenance.WithSchedule(cfg.Maintenance.Schedule),
			maintenance.WithNotificationRetentionDays(cfg.Maintenance.NotificationRetentionDays),
			maintenance.WithChatRetentionDays(cfg.Maintenance.ChatRetentionDays),
			maintenance.WithCachePurger(dbStore),
		)
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	stack.Health = buildHealthManager(stack, redisStore)

	audit := security.NewAuditService(stack.DB, cfg)
	logAuditFindings(ctx, audit, log)

	stack.Router, err = api.NewRouter(api.Dependencies{
		Config:     cfg,
		Services:   stack.Services,
		Gate:       gate,
		Hub:        stack.Hub,
		Health:     stack.Health,
		RateStore:  stack.RateStore,
		Audit:      audit,
		UploadsDir: uploadsDir,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// startRealtime creates the websocket hub and, when Redis is connected, the
// cross-instance relay. It returns nil when the live feed is disabled.
func (s *runtimeStack) startRealtime(cfg *app.Config, log *zap.Logger) (realtime.Broadcaster, error) {
	if !cfg.Notifications.Enabled {
		return nil, nil
	}

	s.Hub = realtime.NewHub(cfg.Server.CORSOrigins...)
	var broadcaster realtime.Broadcaster = s.Hub

	if s.Redis != nil {
		relay, err := realtime.NewRedisRelay(s.Redis, cfg.Notifications.RelayChannel, s.Hub)
		if err != nil {
			return nil, fmt.Errorf("initialise realtime relay: %w", err)
		}
		relayCtx, cancel := context.WithCancel(context.Background())
		s.stopRelay = cancel
		s.relayDone.Add(1)
		go func() {
			defer s.relayDone.Done()
			if err := relay.Run(relayCtx); err != nil {
				log.Warn("realtime relay stopped", zap.Error(err))
			}
		}()
		broadcaster = relay
	}

	s.unsubscribe = append(s.unsubscribe, realtime.ForwardPipelineEvents(s.Bus, broadcaster))
	return broadcaster, nil
}

func buildHealthManager(stack *runtimeStack, redisStore *cache.RedisStore) *monitoring.HealthManager {
	manager := monitoring.NewHealthManager(checks.Database(stack.DB, 0))

	var pinger checks.RedisPinger
	if redisStore != nil {
		pinger = redisStore
	}
	manager.Register(checks.Redis(pinger, 0))

	if stack.Hub != nil {
		manager.Register(checks.Realtime(stack.Hub))
	}

	var reporter checks.MaintenanceReporter
	if stack.Cleaner != nil {
		reporter = stack.Cleaner
	}
	manager.Register(checks.Maintenance(reporter, maintenanceMaxAge, nil))

	return manager
}

func logAuditFindings(ctx context.Context, audit *security.AuditService, log *zap.Logger) {
	for _, check := range audit.Run(ctx).Checks {
		switch check.Status {
		case security.StatusFail:
			log.Error("security audit failed", zap.String("check", check.ID), zap.String("message", check.Message))
		case security.StatusWarn:
			log.Warn("security audit warning", zap.String("check", check.ID), zap.String("message", check.Message))
		}
	}
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		// Stop's context is cancelled once in-flight jobs finish.
		<-s.Cleaner.Stop().Done()
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	for _, unsubscribe := range s.unsubscribe {
		unsubscribe()
	}
	s.unsubscribe = nil

	if s.stopRelay != nil {
		s.stopRelay()
		s.relayDone.Wait()
	}

	if s.Sink != nil {
		if err := s.Sink.Close(); err != nil {
			log.Warn("amqp shutdown", zap.Error(err))
		}
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.ConnectionConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db, cfg.Pipeline.StageDefinitions()); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(dbCfg.Driver)))

	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if err := database.Close(db); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
