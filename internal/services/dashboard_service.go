package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/charlesng35/leadflow/internal/cache"
	"github.com/charlesng35/leadflow/internal/events"
	"github.com/charlesng35/leadflow/internal/models"
	"github.com/charlesng35/leadflow/pkg/logger"
)

const (
	dashboardCacheKey = "dashboard:stats"
	dashboardCacheTTL = 5 * time.Minute
)

// DashboardStats are the aggregate counters shown in the admin shell.
type DashboardStats struct {
	TotalLeads          int64                         `json:"total_leads"`
	LeadsByStatus       map[models.LeadStatus]int64   `json:"leads_by_status"`
	PipelineValue       float64                       `json:"pipeline_value"`
	WonValue            float64                       `json:"won_value"`
	ConversionRate      float64                       `json:"conversion_rate"`
	TotalClients        int64                         `json:"total_clients"`
	ClientsByStatus     map[models.ClientStatus]int64 `json:"clients_by_status"`
	UnreadNotifications int64                         `json:"unread_notifications"`
	GeneratedAt         time.Time                     `json:"generated_at"`
}

// DashboardService computes dashboard aggregates and caches them until a
// lead, client or notification event invalidates the cache.
type DashboardService struct {
	db    *gorm.DB
	cache cache.Store
	now   func() time.Time
	log   *zap.Logger
}

// NewDashboardService constructs a DashboardService. store may be nil to
// disable caching.
func NewDashboardService(db *gorm.DB, store cache.Store) (*DashboardService, error) {
	if db == nil {
		return nil, errors.New("dashboard service: db is required")
	}
	return &DashboardService{
		db:    db,
		cache: store,
		now:   time.Now,
		log:   logger.WithModule("dashboard"),
	}, nil
}

// Subscribe invalidates cached stats whenever data behind them changes. It
// returns the unsubscribe function.
func (s *DashboardService) Subscribe(bus *events.Bus) func() {
	return bus.Subscribe(func(ctx context.Context, evt events.Event) {
		s.Invalidate(ctx)
	},
		events.LeadCreated, events.LeadUpdated, events.LeadMoved, events.LeadDeleted, events.LeadConverted,
		events.ClientCreated, events.ClientUpdated, events.ClientDeleted,
		events.NotificationCreated, events.NotificationRead, events.NotificationDeleted,
	)
}

// Invalidate drops the cached stats.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ensureContext(ctx), dashboardCacheKey); err != nil {
		s.log.Warn("invalidate dashboard cache failed", zap.Error(err))
	}
}

// Stats returns the cached aggregates or computes them.
func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	ctx = ensureContext(ctx)

	var cached DashboardStats
	if ok, err := cache.GetJSON(ctx, s.cache, dashboardCacheKey, &cached); err != nil {
		s.log.Warn("read dashboard cache failed", zap.Error(err))
	} else if ok {
		return &cached, nil
	}

	stats, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}

	if err := cache.SetJSON(ctx, s.cache, dashboardCacheKey, stats, dashboardCacheTTL); err != nil {
		s.log.Warn("write dashboard cache failed", zap.Error(err))
	}
	return stats, nil
}

type statusCount struct {
	Status string
	Count  int64
}

func (s *DashboardService) compute(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{
		LeadsByStatus:   make(map[models.LeadStatus]int64),
		ClientsByStatus: make(map[models.ClientStatus]int64),
		GeneratedAt:     s.now().UTC(),
	}

	var leadRows, clientRows []statusCount
	var openValue, wonValue float64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&models.Lead{}).
			Select("status, COUNT(*) AS count").Group("status").Scan(&leadRows).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&models.Lead{}).
			Where("status NOT IN ?", []models.LeadStatus{models.LeadStatusClosedWon, models.LeadStatusClosedLost}).
			Select("COALESCE(SUM(estimated_value), 0)").Scan(&openValue).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&models.Lead{}).
			Where("status = ?", models.LeadStatusClosedWon).
			Select("COALESCE(SUM(estimated_value), 0)").Scan(&wonValue).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&models.Client{}).
			Select("status, COUNT(*) AS count").Group("status").Scan(&clientRows).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&models.Notification{}).
			Where("is_read = ?", false).Count(&stats.UnreadNotifications).Error
	})
	if err := g.Wait(); err != nil {
		return nil, storeError(s.log, "dashboard stats", err)
	}

	for _, row := range leadRows {
		stats.LeadsByStatus[models.LeadStatus(row.Status)] = row.Count
		stats.TotalLeads += row.Count
	}
	for _, row := range clientRows {
		stats.ClientsByStatus[models.ClientStatus(row.Status)] = row.Count
		stats.TotalClients += row.Count
	}
	stats.PipelineValue = openValue
	stats.WonValue = wonValue
	if stats.TotalLeads > 0 {
		stats.ConversionRate = float64(stats.LeadsByStatus[models.LeadStatusClosedWon]) / float64(stats.TotalLeads)
	}

	return stats, nil
}
