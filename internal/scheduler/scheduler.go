// Package scheduler runs periodic maintenance jobs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/crucial707/cashcard/internal/metrics"
	"github.com/robfig/cron/v3"
)

// purgeTimeout bounds one retention run.
const purgeTimeout = 5 * time.Minute

// AuditPurger deletes audit entries older than a cutoff.
type AuditPurger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// StartAuditPurge schedules removal of audit entries older than retention at
// each tick of spec (standard cron syntax or descriptors such as "@daily").
// The caller stops the returned cron on shutdown.
func StartAuditPurge(purger AuditPurger, spec string, retention time.Duration) (*cron.Cron, error) {
	if retention <= 0 {
		return nil, fmt.Errorf("audit retention must be positive, got %s", retention)
	}
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
		defer cancel()
		purgeAudit(ctx, purger, retention, time.Now())
	})
	if err != nil {
		return nil, fmt.Errorf("audit purge schedule %q: %w", spec, err)
	}
	c.Start()
	slog.Info("scheduler: audit purge scheduled", "cron", spec, "retention", retention.String())
	return c, nil
}

func purgeAudit(ctx context.Context, purger AuditPurger, retention time.Duration, now time.Time) {
	cutoff := now.Add(-retention)
	n, err := purger.PurgeBefore(ctx, cutoff)
	if err != nil {
		slog.Error("scheduler: purge audit log", "cutoff", cutoff, "error", err)
		return
	}
	metrics.AddAuditPurged(n)
	slog.Info("scheduler: purged audit log", "cutoff", cutoff, "removed", n)
}
