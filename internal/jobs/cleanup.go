package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const cleanupTimeout = 30 * time.Second

// SessionCleaner removes expired admin sessions.
type SessionCleaner interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// CodeSweeper deactivates access codes past their TTL.
type CodeSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

type CleanupJob struct {
	sessions SessionCleaner
	sweeper  CodeSweeper
	interval time.Duration
	done     chan struct{}
	stopped  chan struct{}
}

// NewCleanupJob creates the periodic cleanup. sweeper may be nil, in which
// case expired codes are only deactivated when someone presents them.
func NewCleanupJob(sessions SessionCleaner, sweeper CodeSweeper, interval time.Duration) *CleanupJob {
	return &CleanupJob{
		sessions: sessions,
		sweeper:  sweeper,
		interval: interval,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	go j.run()
	log.Info().
		Dur("interval", j.interval).
		Bool("code_sweep", j.sweeper != nil).
		Msg("cleanup job started")
}

// Stop signals the job and waits for an in-progress pass to finish.
func (j *CleanupJob) Stop() {
	close(j.done)
	<-j.stopped
	log.Info().Msg("cleanup job stopped")
}

func (j *CleanupJob) run() {
	defer close(j.stopped)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.cleanup()
		}
	}
}

func (j *CleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	if j.sessions != nil {
		j.runCleanup(ctx, "admin sessions", j.sessions.DeleteExpired)
	}
	if j.sweeper != nil {
		j.runCleanup(ctx, "expired access codes", j.sweeper.SweepExpired)
	}
}

func (j *CleanupJob) runCleanup(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Msgf("failed to cleanup %s", name)
	} else if count > 0 {
		log.Info().Int64("count", count).Msgf("cleaned up %s", name)
	}
}
