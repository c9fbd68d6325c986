package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/leadflow/internal/events"
	"github.com/charlesng35/leadflow/internal/models"
	"github.com/charlesng35/leadflow/internal/realtime"
	apperrors "github.com/charlesng35/leadflow/pkg/errors"
	"github.com/charlesng35/leadflow/pkg/logger"
	"github.com/charlesng35/leadflow/pkg/metrics"
)

// maxTitleRunes matches the title column and validation limit.
const maxTitleRunes = 255

// Notifier records admin notifications. Emit never fails the caller.
type Notifier interface {
	Emit(ctx context.Context, kind models.NotificationType, title, message string, relatedID *string)
}

// CreateNotificationInput defines attributes required to persist a notification.
type CreateNotificationInput struct {
	Type      models.NotificationType `json:"type" validate:"required,notification_type"`
	Title     string                  `json:"title" validate:"required,max=255"`
	Message   string                  `json:"message"`
	RelatedID *string                 `json:"related_id"`
	Metadata  map[string]any          `json:"metadata"`
}

// NotificationFilter pages through the notification feed.
type NotificationFilter struct {
	Limit      int
	Offset     int
	UnreadOnly bool
}

// NotificationPage is one page of the feed plus counters for the badge.
type NotificationPage struct {
	Items  []models.Notification `json:"items"`
	Total  int64                 `json:"total"`
	Unread int64                 `json:"unread"`
}

// NotificationEventPayload represents data sent to realtime consumers.
type NotificationEventPayload struct {
	Notification    *models.Notification `json:"notification,omitempty"`
	NotificationIDs []string             `json:"notification_ids,omitempty"`
}

// NotificationService persists admin notifications and pushes them to live subscribers.
type NotificationService struct {
	db     *gorm.DB
	hub    realtime.Broadcaster
	events events.Publisher
	now    func() time.Time
	log    *zap.Logger
}

// NotificationOption customises the NotificationService.
type NotificationOption func(*NotificationService)

// WithNotificationEvents publishes notification.created on the event bus.
func WithNotificationEvents(p events.Publisher) NotificationOption {
	return func(s *NotificationService) {
		if p != nil {
			s.events = p
		}
	}
}

// WithNotificationClock overrides the clock used for read timestamps.
func WithNotificationClock(now func() time.Time) NotificationOption {
	return func(s *NotificationService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewNotificationService constructs a NotificationService. hub may be nil when
// live delivery is disabled.
func NewNotificationService(db *gorm.DB, hub realtime.Broadcaster, opts ...NotificationOption) (*NotificationService, error) {
	if db == nil {
		return nil, errors.New("notification service: db is required")
	}
	svc := &NotificationService{
		db:     db,
		hub:    hub,
		events: events.NopPublisher{},
		now:    time.Now,
		log:    logger.WithModule("notifications"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Emit records a notification and pushes it to subscribers. Titles longer than
// the column are cut. Failures are logged and counted but never returned.
func (s *NotificationService) Emit(ctx context.Context, kind models.NotificationType, title, message string, relatedID *string) {
	if _, err := s.Create(ctx, CreateNotificationInput{
		Type:      kind,
		Title:     truncateTitle(title),
		Message:   message,
		RelatedID: relatedID,
	}); err != nil {
		metrics.NotificationEmitFailures.Inc()
		s.log.Warn("emit notification failed",
			zap.String("type", string(kind)),
			zap.String("title", title),
			zap.Error(err),
		)
	}
}

// Create validates and stores a notification, then broadcasts it.
func (s *NotificationService) Create(ctx context.Context, input CreateNotificationInput) (*models.Notification, error) {
	ctx = ensureContext(ctx)
	input.Title = strings.TrimSpace(input.Title)
	input.Message = strings.TrimSpace(input.Message)
	input.RelatedID = optionalID(input.RelatedID)

	if err := validateInput(input); err != nil {
		return nil, err
	}

	notification := models.Notification{
		Type:      input.Type,
		Title:     input.Title,
		Message:   input.Message,
		RelatedID: input.RelatedID,
	}

	if input.Metadata != nil {
		data, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, apperrors.NewValidation("metadata must be JSON encodable")
		}
		notification.Metadata = datatypes.JSON(data)
	}

	if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
		return nil, storeError(s.log, "create notification", err)
	}

	s.broadcast("notification.created", &NotificationEventPayload{Notification: &notification})
	s.events.Publish(ctx, events.Event{
		Type:      events.NotificationCreated,
		SubjectID: notification.ID,
		Payload:   notification,
	})

	return &notification, nil
}

// List returns notifications newest first.
func (s *NotificationService) List(ctx context.Context, filter NotificationFilter) (*NotificationPage, error) {
	ctx = ensureContext(ctx)
	limit, offset := clampPage(filter.Limit, filter.Offset, 25, 100)

	query := s.db.WithContext(ctx).Model(&models.Notification{})
	if filter.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}

	page := &NotificationPage{Items: []models.Notification{}}
	if err := query.Session(&gorm.Session{}).Count(&page.Total).Error; err != nil {
		return nil, storeError(s.log, "count notifications", err)
	}

	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&page.Items).Error; err != nil {
		return nil, storeError(s.log, "list notifications", err)
	}

	unread, err := s.UnreadCount(ctx)
	if err != nil {
		return nil, err
	}
	page.Unread = unread

	return page, nil
}

// UnreadCount returns the number of unread notifications.
func (s *NotificationService) UnreadCount(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ensureContext(ctx)).
		Model(&models.Notification{}).
		Where("is_read = ?", false).
		Count(&count).Error; err != nil {
		return 0, storeError(s.log, "count unread notifications", err)
	}
	return count, nil
}

// MarkRead sets the read flag on a single notification.
func (s *NotificationService) MarkRead(ctx context.Context, id string) (*models.Notification, error) {
	ctx = ensureContext(ctx)

	var notification models.Notification
	if err := s.db.WithContext(ctx).First(&notification, "id = ?", strings.TrimSpace(id)).Error; err != nil {
		return nil, storeError(s.log, "load notification", err)
	}
	if notification.IsRead {
		return &notification, nil
	}

	now := s.now().UTC()
	if err := s.db.WithContext(ctx).Model(&notification).
		Updates(map[string]any{"is_read": true, "read_at": now}).Error; err != nil {
		return nil, storeError(s.log, "mark notification read", err)
	}
	notification.IsRead = true
	notification.ReadAt = &now

	s.broadcast("notification.read", &NotificationEventPayload{NotificationIDs: []string{notification.ID}})
	s.events.Publish(ctx, events.Event{Type: events.NotificationRead, SubjectID: notification.ID})
	return &notification, nil
}

// MarkAllRead marks the given notifications as read, or every unread
// notification when ids is empty. It returns the number of rows changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, ids []string) (int64, error) {
	ctx = ensureContext(ctx)
	ids = normaliseIDs(ids)

	query := s.db.WithContext(ctx).Model(&models.Notification{}).Where("is_read = ?", false)
	if len(ids) > 0 {
		query = query.Where("id IN ?", ids)
	}

	result := query.Updates(map[string]any{"is_read": true, "read_at": s.now().UTC()})
	if result.Error != nil {
		return 0, storeError(s.log, "mark notifications read", result.Error)
	}

	s.broadcast("notification.read_all", &NotificationEventPayload{NotificationIDs: ids})
	if result.RowsAffected > 0 {
		s.events.Publish(ctx, events.Event{Type: events.NotificationRead, Payload: ids})
	}
	return result.RowsAffected, nil
}

// Delete removes a notification.
func (s *NotificationService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)
	id = strings.TrimSpace(id)
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Notification{})
	if result.Error != nil {
		return storeError(s.log, "delete notification", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}

	s.broadcast("notification.deleted", &NotificationEventPayload{NotificationIDs: []string{id}})
	s.events.Publish(ctx, events.Event{Type: events.NotificationDeleted, SubjectID: id})
	return nil
}

func truncateTitle(title string) string {
	title = strings.TrimSpace(title)
	if utf8.RuneCountInString(title) <= maxTitleRunes {
		return title
	}
	runes := []rune(title)
	return strings.TrimSpace(string(runes[:maxTitleRunes]))
}

func (s *NotificationService) broadcast(event string, payload *NotificationEventPayload) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastStream(realtime.StreamNotifications, realtime.Message{
		Stream: realtime.StreamNotifications,
		Event:  event,
		Data:   payload,
	})
}
