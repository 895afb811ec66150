package saga

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

var ErrNilStep = errors.New("saga: nil compensation step")

// Step is a completed action that can be undone.
type Step interface {
	Name() string
	Compensate(ctx context.Context) error
}

// StepFunc adapts a function to Step.
type StepFunc struct {
	StepName string
	Fn       func(ctx context.Context) error
}

func (s StepFunc) Name() string { return s.StepName }

func (s StepFunc) Compensate(ctx context.Context) error { return s.Fn(ctx) }

// Compensator undoes a step, retrying with the configured backoff. One attempt is made
// per backoff entry plus the initial one.
type Compensator struct {
	Backoff []time.Duration
	// Done classifies errors that mean the step is already undone, such as a deleted row.
	Done   func(error) bool
	Sleep  func(ctx context.Context, d time.Duration) error
	Logger *slog.Logger
}

// Run returns the number of attempts and the last error when every attempt failed.
func (c Compensator) Run(ctx context.Context, step Step) (int, error) {
	if step == nil {
		return 0, ErrNilStep
	}
	var lastErr error
	attempts := 0
	for i := 0; i <= len(c.Backoff); i++ {
		if i > 0 {
			if err := c.sleep(ctx, c.Backoff[i-1]); err != nil {
				return attempts, errors.Join(lastErr, err)
			}
		}
		attempts++
		err := step.Compensate(ctx)
		if err == nil || (c.Done != nil && c.Done(err)) {
			return attempts, nil
		}
		lastErr = err
		if c.Logger != nil {
			c.Logger.Warn("compensation attempt failed", "step", step.Name(), "attempt", attempts, "error", err)
		}
	}
	return attempts, lastErr
}

func (c Compensator) sleep(ctx context.Context, d time.Duration) error {
	if c.Sleep != nil {
		return c.Sleep(ctx, d)
	}
	return SleepContext(ctx, d)
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
