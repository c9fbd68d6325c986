package checks

import (
	"context"
	"time"

	"github.com/charlesng35/leadflow/internal/monitoring"
)

// MaintenanceReporter is satisfied by maintenance.Cleaner.
type MaintenanceReporter interface {
	LastRun() (time.Time, error)
}

// Maintenance degrades when the last retention run failed or is older than
// maxAge. A run that has not happened yet is reported as up.
func Maintenance(reporter MaintenanceReporter, maxAge time.Duration, now func() time.Time) monitoring.Check {
	if now == nil {
		now = time.Now
	}
	return monitoring.NewCheck("maintenance", func(context.Context) monitoring.ProbeResult {
		if reporter == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "maintenance disabled"}
		}

		ranAt, err := reporter.LastRun()
		switch {
		case ranAt.IsZero():
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "no run yet"}
		case err != nil:
			return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: err.Error()}
		case maxAge > 0 && now().Sub(ranAt) > maxAge:
			return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: "last run " + ranAt.UTC().Format(time.RFC3339)}
		}
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	})
}
