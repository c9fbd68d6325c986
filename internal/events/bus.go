// Package events carries in-process domain events between the components that
// mutate leads and clients and the ones that react to those changes.
package events

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/leadflow/pkg/logger"
)

// Type names a domain event.
type Type string

const (
	LeadCreated         Type = "lead.created"
	LeadUpdated         Type = "lead.updated"
	LeadMoved           Type = "lead.moved"
	LeadDeleted         Type = "lead.deleted"
	LeadConverted       Type = "lead.converted"
	ClientCreated       Type = "client.created"
	ClientUpdated       Type = "client.updated"
	ClientDeleted       Type = "client.deleted"
	NotificationCreated Type = "notification.created"
	NotificationRead    Type = "notification.read"
	NotificationDeleted Type = "notification.deleted"
)

// Event is a single published change.
type Event struct {
	Type       Type      `json:"type"`
	SubjectID  string    `json:"subject_id"`
	Payload    any       `json:"payload,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Handler reacts to a published event.
type Handler func(ctx context.Context, evt Event)

// Publisher is implemented by anything events can be handed to.
type Publisher interface {
	Publish(ctx context.Context, evt Event)
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) {}

type subscription struct {
	types   map[Type]struct{}
	handler Handler
}

func (s subscription) matches(t Type) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[t]
	return ok
}

// Bus fans events out to subscribers synchronously on the publisher's
// goroutine. A panicking handler is logged and does not affect the others.
type Bus struct {
	mu   sync.RWMutex
	next uint64
	subs map[uint64]subscription
	log  *zap.Logger
	now  func() time.Time
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[uint64]subscription),
		log:  logger.WithModule("events"),
		now:  time.Now,
	}
}

// Subscribe registers handler for the given event types, or for every event
// when no type is given. The returned function removes the subscription.
func (b *Bus) Subscribe(handler Handler, types ...Type) func() {
	if b == nil || handler == nil {
		return func() {}
	}

	sub := subscription{handler: handler}
	if len(types) > 0 {
		sub.types = make(map[Type]struct{}, len(types))
		for _, t := range types {
			sub.types[t] = struct{}{}
		}
	}

	b.mu.Lock()
	b.next++
	id := b.next
	b.subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers evt to every matching subscriber.
func (b *Bus) Publish(ctx context.Context, evt Event) {
	if b == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = b.now().UTC()
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs))
	ids := make([]uint64, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if sub := b.subs[id]; sub.matches(evt.Type) {
			handlers = append(handlers, sub.handler)
		}
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.dispatch(ctx, h, evt)
	}
}

func (b *Bus) dispatch(ctx context.Context, h Handler, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panicked",
				zap.String("event", string(evt.Type)),
				zap.Any("panic", r),
			)
		}
	}()
	h(ctx, evt)
}
