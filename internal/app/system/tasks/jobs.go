// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/galleriahq/galleria/internal/app/store/errorlog"
	"github.com/galleriahq/galleria/internal/app/system/scan"
	"github.com/galleriahq/galleria/internal/app/system/stats"
)

// FullScanJob runs the library reconciliation pass on a schedule. A pass that
// is already running (for example a manual trigger) is not an error.
func FullScanJob(engine *scan.Engine, interval time.Duration, runOnStart bool, logger *zap.Logger) Job {
	return Job{
		Name:       "full-scan",
		Interval:   interval,
		RunOnStart: runOnStart,
		Run: func(ctx context.Context) error {
			st, err := engine.Run(ctx)
			if errors.Is(err, scan.ErrAlreadyRunning) {
				logger.Debug("scheduled scan skipped, a pass is already running")
				return nil
			}
			if err != nil {
				return err
			}
			logger.Info("scheduled scan completed",
				zap.String("job_id", st.JobID),
				zap.Int("processed", st.Processed),
				zap.Int("new", st.New),
				zap.Int("removed", st.Removed),
				zap.Int("errors", st.Errors))
			return nil
		},
	}
}

// StatsReconcileJob keeps the denormalized item counters exact.
func StatsReconcileJob(agg *stats.Aggregator, interval time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:       "stats-reconcile",
		Interval:   interval,
		RunOnStart: true,
		Run: func(ctx context.Context) error {
			changed, err := agg.ReconcileAll(ctx)
			if err != nil {
				return err
			}
			if changed > 0 {
				logger.Info("stats reconcile corrected counters",
					zap.Int("items", changed))
			}
			return nil
		},
	}
}

// ErrorLogPruneJob trims scan diagnostics past the retention window.
// A zero retention keeps errors forever.
func ErrorLogPruneJob(errlog *errorlog.Store, retention time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:     "error-log-prune",
		Interval: 6 * time.Hour,
		Run: func(ctx context.Context) error {
			if retention <= 0 {
				return nil
			}
			pruned, err := errlog.PruneBefore(ctx, time.Now().Add(-retention))
			if err != nil {
				return err
			}
			if pruned > 0 {
				logger.Info("pruned old scan errors", zap.Int64("deleted", pruned))
			}
			return nil
		},
	}
}
