// Package jobs runs periodic housekeeping next to the HTTP server.
package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

type credentialPurger interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

type visitorPruner interface {
	Cleanup(maxIdle time.Duration) int
}

// CleanupJob drops expired sessions, spent login tokens and idle rate limit
// entries on a fixed interval
type CleanupJob struct {
	credentials credentialPurger
	limiters    []visitorPruner
	interval    time.Duration
	maxIdle     time.Duration
}

// NewCleanupJob creates a cleanup job; keys idle for longer than maxIdle are
// forgotten by every limiter
func NewCleanupJob(credentials credentialPurger, interval, maxIdle time.Duration, limiters ...visitorPruner) *CleanupJob {
	return &CleanupJob{
		credentials: credentials,
		limiters:    limiters,
		interval:    interval,
		maxIdle:     maxIdle,
	}
}

// Start runs the job until ctx is cancelled. The first pass runs immediately.
func (j *CleanupJob) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", j.interval).Msg("Cleanup job started")

	j.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Cleanup job stopped")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single cleanup pass
func (j *CleanupJob) RunOnce(ctx context.Context) {
	deleted, err := j.credentials.DeleteExpired(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to delete expired sessions")
	} else if deleted > 0 {
		log.Info().Int64("deleted", deleted).Msg("Expired sessions and login tokens removed")
	}

	removed := 0
	for _, l := range j.limiters {
		removed += l.Cleanup(j.maxIdle)
	}
	if removed > 0 {
		log.Debug().Int("removed", removed).Msg("Idle rate limit entries removed")
	}
}
