package checks

import (
	"context"
	"fmt"

	"github.com/charlesng35/leadflow/internal/monitoring"
	"github.com/charlesng35/leadflow/internal/realtime"
)

// SubscriberCounter is satisfied by realtime.Hub.
type SubscriberCounter interface {
	Subscribers(stream string) int
}

// Realtime reports the live feed subscriber counts. A missing hub degrades
// the report because notifications still persist but are not pushed.
func Realtime(hub SubscriberCounter) monitoring.Check {
	return monitoring.NewCheck("realtime", func(context.Context) monitoring.ProbeResult {
		if hub == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: "realtime hub disabled"}
		}
		return monitoring.ProbeResult{
			Status: monitoring.StatusUp,
			Details: fmt.Sprintf("%d notification, %d pipeline subscribers",
				hub.Subscribers(realtime.StreamNotifications),
				hub.Subscribers(realtime.StreamPipeline),
			),
		}
	})
}
