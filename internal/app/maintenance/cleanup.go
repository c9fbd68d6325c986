package maintenance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/leadflow/internal/models"
	"github.com/charlesng35/leadflow/pkg/logger"
)

const (
	defaultNotificationRetentionDays = 90
	defaultChatRetentionDays         = 180
	defaultSchedule                  = "@daily"
)

// ExpiredPurger removes expired cache entries.
type ExpiredPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// Cleaner coordinates background retention jobs: pruning read notifications,
// old chatbot transcripts and expired cache entries.
type Cleaner struct {
	db    *gorm.DB
	cache ExpiredPurger
	cron  *cron.Cron
	now   func() time.Time
	log   *zap.Logger

	schedule              string
	notificationRetention int
	chatRetention         int

	mu      sync.Mutex
	lastRun time.Time
	lastErr error
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for retention comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithSchedule overrides the cron specification for the retention run.
func WithSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.schedule = spec
		}
	}
}

// WithNotificationRetentionDays adjusts how long read notifications are kept.
func WithNotificationRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.notificationRetention = days
		}
	}
}

// WithChatRetentionDays adjusts how long chatbot messages are kept.
func WithChatRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.chatRetention = days
		}
	}
}

// WithCachePurger enables purging of expired cache entries.
func WithCachePurger(p ExpiredPurger) Option {
	return func(cleaner *Cleaner) {
		cleaner.cache = p
	}
}

// NewCleaner constructs a Cleaner with sensible defaults.
func NewCleaner(db *gorm.DB, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:                    db,
		now:                   time.Now,
		schedule:              defaultSchedule,
		notificationRetention: defaultNotificationRetentionDays,
		chatRetention:         defaultChatRetentionDays,
		log:                   logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers the retention job with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if c.db == nil && c.cache == nil {
		return nil
	}

	if _, err := c.cron.AddFunc(c.schedule, func() {
		if err := c.RunOnce(context.Background()); err != nil {
			c.log.Warn("maintenance run failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("maintenance: schedule %q: %w", c.schedule, err)
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler. The returned context is done once any
// running job has completed.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	return c.cron.Stop()
}

// RunOnce executes all retention routines sequentially, collecting every failure.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	now := c.now()
	var errs error

	if c.db != nil {
		stats, err := Cleanup(ctx, c.db, now, c.notificationRetention, c.chatRetention)
		errs = multierr.Append(errs, err)
		if err == nil {
			c.log.Info("retention cleanup completed",
				zap.Int64("notifications", stats.Notifications),
				zap.Int64("chat_messages", stats.ChatMessages),
			)
		}
	}

	if c.cache != nil {
		if _, err := c.cache.PurgeExpired(ctx, now); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("cleanup cache: %w", err))
		}
	}

	c.mu.Lock()
	c.lastRun, c.lastErr = now, errs
	c.mu.Unlock()

	return errs
}

// LastRun reports when RunOnce last finished and the error it returned.
// The zero time means it has not run yet.
func (c *Cleaner) LastRun() (time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRun, c.lastErr
}

// CleanupStats captures the number of records removed per table.
type CleanupStats struct {
	Notifications int64
	ChatMessages  int64
}

// Cleanup removes read notifications and chat messages older than their retention windows.
// Unread notifications are never removed.
func Cleanup(ctx context.Context, db *gorm.DB, now time.Time, notificationDays, chatDays int) (CleanupStats, error) {
	if db == nil {
		return CleanupStats{}, errors.New("cleanup: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	stats := CleanupStats{}

	if notificationDays > 0 {
		cutoff := now.AddDate(0, 0, -notificationDays)
		result := db.WithContext(ctx).
			Where("is_read = ? AND created_at < ?", true, cutoff).
			Delete(&models.Notification{})
		if result.Error != nil {
			return stats, fmt.Errorf("cleanup: notifications: %w", result.Error)
		}
		stats.Notifications = result.RowsAffected
	}

	if chatDays > 0 {
		cutoff := now.AddDate(0, 0, -chatDays)
		result := db.WithContext(ctx).
			Where("created_at < ?", cutoff).
			Delete(&models.ChatMessage{})
		if result.Error != nil {
			return stats, fmt.Errorf("cleanup: chat messages: %w", result.Error)
		}
		stats.ChatMessages = result.RowsAffected
	}

	return stats, nil
}
