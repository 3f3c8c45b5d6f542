package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Janitor prunes a store on a cron schedule.
type Janitor struct {
	cron   *cron.Cron
	pruner Pruner
	maxAge time.Duration
	log    zerolog.Logger
	now    func() time.Time
}

// NewJanitor schedules pruning of entries older than maxAge. The schedule
// accepts standard five-field specs and descriptors such as "@daily".
func NewJanitor(pruner Pruner, schedule string, maxAge time.Duration, log zerolog.Logger) (*Janitor, error) {
	if pruner == nil {
		return nil, errors.New("janitor requires a pruner")
	}
	if maxAge <= 0 {
		return nil, errors.New("janitor max age must be > 0")
	}
	j := &Janitor{
		cron:   cron.New(),
		pruner: pruner,
		maxAge: maxAge,
		log:    log,
		now:    time.Now,
	}
	if _, err := j.cron.AddFunc(schedule, func() { j.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("schedule cache prune %q: %w", schedule, err)
	}
	return j, nil
}

func (j *Janitor) Start() {
	j.cron.Start()
}

// Stop waits for a running prune to finish.
func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}

// RunOnce prunes immediately and returns how many entries were removed.
func (j *Janitor) RunOnce(ctx context.Context) int {
	cutoff := j.now().Add(-j.maxAge)
	removed, err := j.pruner.Prune(ctx, cutoff)
	if err != nil {
		j.log.Warn().Err(err).Int("removed", removed).Msg("cache prune failed")
		return removed
	}
	j.log.Info().Int("removed", removed).Time("cutoff", cutoff).Msg("cache pruned")
	return removed
}
