package events

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBusDeliversMatchingEventsInSubscriptionOrder(t *testing.T) {
	bus := NewBus()

	var got []string
	bus.Subscribe(func(_ context.Context, evt Event) {
		got = append(got, "all:"+string(evt.Type))
	})
	bus.Subscribe(func(_ context.Context, evt Event) {
		got = append(got, "moved:"+evt.SubjectID)
	}, LeadMoved)

	bus.Publish(context.Background(), Event{Type: LeadCreated, SubjectID: "l1"})
	bus.Publish(context.Background(), Event{Type: LeadMoved, SubjectID: "l1"})

	require.Equal(t, []string{"all:lead.created", "all:lead.moved", "moved:l1"}, got)
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()

	calls := 0
	cancel := bus.Subscribe(func(context.Context, Event) { calls++ }, LeadCreated)

	bus.Publish(context.Background(), Event{Type: LeadCreated})
	cancel()
	cancel()
	bus.Publish(context.Background(), Event{Type: LeadCreated})

	require.Equal(t, 1, calls)
}

func TestBusRecoversFromPanickingHandler(t *testing.T) {
	bus := NewBus()

	bus.Subscribe(func(context.Context, Event) { panic("boom") })
	delivered := false
	bus.Subscribe(func(context.Context, Event) { delivered = true })

	require.NotPanics(t, func() {
		bus.Publish(context.Background(), Event{Type: ClientCreated})
	})
	require.True(t, delivered)
}

func TestBusStampsOccurredAt(t *testing.T) {
	bus := NewBus()

	var evt Event
	bus.Subscribe(func(_ context.Context, e Event) { evt = e })
	bus.Publish(context.Background(), Event{Type: LeadUpdated})

	require.False(t, evt.OccurredAt.IsZero())
}

func TestBusConcurrentPublish(t *testing.T) {
	bus := NewBus()

	var (
		mu    sync.Mutex
		count int
	)
	bus.Subscribe(func(context.Context, Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(context.Background(), Event{Type: LeadCreated})
		}()
	}
	wg.Wait()

	require.Equal(t, 20, count)
}
