package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	appschedule "rentflow/internal/app/schedule"
)

var ErrInvalidInterval = errors.New("schedule: interval must be at least one second")

// Cron runs housekeeping jobs on a robfig/cron scheduler. Overlapping runs of the same
// job are skipped.
type Cron struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

func NewCron(logger *slog.Logger) *Cron {
	ctx, cancel := context.WithCancel(context.Background())
	return &Cron{
		cron:   cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

func (c *Cron) Every(name string, interval time.Duration, job appschedule.Job) error {
	if interval < time.Second {
		return ErrInvalidInterval
	}
	if job == nil {
		return fmt.Errorf("schedule: job %q is nil", name)
	}
	wrapped := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(func() {
		started := time.Now()
		job(c.ctx)
		if c.logger != nil {
			c.logger.Debug("scheduled job finished", "job", name, "duration", time.Since(started))
		}
	}))
	if _, err := c.cron.AddJob(fmt.Sprintf("@every %s", interval), wrapped); err != nil {
		return fmt.Errorf("schedule: register %q: %w", name, err)
	}
	return nil
}

func (c *Cron) Start() {
	c.cron.Start()
}

// Stop halts scheduling and waits for running jobs until ctx is done.
func (c *Cron) Stop(ctx context.Context) {
	c.cancel()
	done := c.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

var _ appschedule.Scheduler = (*Cron)(nil)
