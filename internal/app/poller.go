package app

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/five82/jobtail/internal/batchapi"
	"github.com/five82/jobtail/internal/state"
)

const (
	defaultPollInterval = 2 * time.Second
	maxBackoff          = 30 * time.Second
)

// runJobPoller refreshes the job until ctx ends or the job reaches a
// terminal status. Failures back off exponentially up to maxBackoff.
func runJobPoller(ctx context.Context, store *state.Store, client batchapi.JobFetcher, jobID int64, interval time.Duration, logger *log.Logger) error {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	logger = logger.WithPrefix("job")

	failures := 0
	for {
		if refreshJob(ctx, store, client, jobID, logger) {
			failures = 0
		} else if ctx.Err() == nil {
			failures++
		}

		if snap := store.Snapshot(); snap.Finished() {
			logger.Info("job finished, header polling stopped", "job", jobID, "status", snap.Job.Status)
			return nil
		}

		wait := interval
		if failures > 0 {
			wait = calculateBackoff(failures, interval)
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func refreshJob(ctx context.Context, store *state.Store, client batchapi.JobFetcher, jobID int64, logger *log.Logger) bool {
	job, err := client.GetJob(ctx, jobID)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		store.Update(nil, err)
		logger.Warn("job poll failed", "job", jobID, "err", err)
		return false
	}
	store.Update(job, nil)
	return true
}

// calculateBackoff doubles base once per failure, capped at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	d := base
	for i := 0; i < failures && d < maxBackoff; i++ {
		d *= 2
	}
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}
