package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	testutil "github.com/charlesng35/leadflow/internal/database/testutil"
	"github.com/charlesng35/leadflow/internal/events"
	"github.com/charlesng35/leadflow/internal/models"
	"github.com/charlesng35/leadflow/internal/realtime"
)

type recordingBroadcaster struct {
	mu       sync.Mutex
	messages []realtime.Message
}

func (r *recordingBroadcaster) BroadcastStream(_ string, message realtime.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
}

func (r *recordingBroadcaster) events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.messages))
	for _, m := range r.messages {
		out = append(out, m.Event)
	}
	return out
}

type emitted struct {
	kind      models.NotificationType
	title     string
	relatedID string
}

type recordingNotifier struct {
	calls []emitted
}

func (r *recordingNotifier) Emit(_ context.Context, kind models.NotificationType, title, _ string, relatedID *string) {
	call := emitted{kind: kind, title: title}
	if relatedID != nil {
		call.relatedID = *relatedID
	}
	r.calls = append(r.calls, call)
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) Publish(_ context.Context, evt events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *eventRecorder) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, 0, len(r.events))
	for _, evt := range r.events {
		out = append(out, evt.Type)
	}
	return out
}

type leadFixture struct {
	db       *gorm.DB
	stages   *StageService
	leads    *LeadService
	notifier *recordingNotifier
	events   *eventRecorder
}

func newLeadFixture(t *testing.T, opts ...testutil.TestDBOption) leadFixture {
	t.Helper()
	if len(opts) == 0 {
		opts = []testutil.TestDBOption{testutil.WithStages(testutil.ScenarioStages()...)}
	}
	db := testutil.MustOpenTestDB(t, opts...)

	stages, err := NewStageService(db)
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	recorder := &eventRecorder{}
	leads, err := NewLeadService(db, stages, notifier, WithLeadEvents(recorder), WithLeadClock(tickingClock()))
	require.NoError(t, err)

	return leadFixture{db: db, stages: stages, leads: leads, notifier: notifier, events: recorder}
}

func (f leadFixture) create(t *testing.T, name, email string) *models.Lead {
	t.Helper()
	lead, err := f.leads.CreateLead(context.Background(), CreateLeadInput{Name: name, Email: email})
	require.NoError(t, err)
	return lead
}

// tickingClock advances one millisecond per call so history rows order deterministically.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	current := time.Now().UTC()
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Millisecond)
		return current
	}
}

func floatPtr(v float64) *float64 { return &v }

func strPtr(v string) *string { return &v }
