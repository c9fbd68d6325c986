package realtime

import (
	"context"

	"github.com/charlesng35/leadflow/internal/events"
)

// pipelineEvents are pushed to the pipeline stream so open boards can refresh.
var pipelineEvents = []events.Type{
	events.LeadCreated,
	events.LeadUpdated,
	events.LeadMoved,
	events.LeadDeleted,
}

// ForwardPipelineEvents relays lead changes from bus to the pipeline stream
// of b. It returns the unsubscribe function.
func ForwardPipelineEvents(bus *events.Bus, b Broadcaster) func() {
	if bus == nil || b == nil {
		return func() {}
	}
	return bus.Subscribe(func(_ context.Context, evt events.Event) {
		b.BroadcastStream(StreamPipeline, Message{
			Stream: StreamPipeline,
			Event:  string(evt.Type),
			Data:   evt.Payload,
			Meta: map[string]any{
				"subject_id":  evt.SubjectID,
				"occurred_at": evt.OccurredAt,
			},
		})
	}, pipelineEvents...)
}
