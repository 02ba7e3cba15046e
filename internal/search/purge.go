package search

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultPurgeSchedule runs the purge at minute 17 of every hour.
const DefaultPurgeSchedule = "17 * * * *"

// Purger deletes expired cache rows.
// *db.SearchCacheRepository implements it.
type Purger interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// PurgeScheduler removes expired search cache rows on a cron schedule.
type PurgeScheduler struct {
	cron    *cron.Cron
	purger  Purger
	timeout time.Duration
	logger  zerolog.Logger
}

// NewPurgeScheduler validates the five-field schedule and registers the purge job.
// The scheduler does not run until Start is called.
func NewPurgeScheduler(schedule string, purger Purger, logger zerolog.Logger) (*PurgeScheduler, error) {
	if schedule == "" {
		schedule = DefaultPurgeSchedule
	}

	p := &PurgeScheduler{
		cron:    cron.New(),
		purger:  purger,
		timeout: 30 * time.Second,
		logger:  logger.With().Str("component", "cache_purge").Logger(),
	}

	if _, err := p.cron.AddFunc(schedule, p.run); err != nil {
		return nil, fmt.Errorf("invalid purge schedule %q: %w", schedule, err)
	}
	return p, nil
}

// Start runs the scheduler in its own goroutine.
func (p *PurgeScheduler) Start() {
	p.cron.Start()
}

// Stop halts the scheduler and waits for a running purge to finish or ctx to end.
func (p *PurgeScheduler) Stop(ctx context.Context) {
	select {
	case <-p.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// run performs one purge.
func (p *PurgeScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	deleted, err := p.purger.DeleteExpired(ctx, time.Now())
	if err != nil {
		p.logger.Error().Err(err).Msg("purging expired search cache")
		return
	}
	p.logger.Info().Int64("deleted", deleted).Msg("purged expired search cache")
}
