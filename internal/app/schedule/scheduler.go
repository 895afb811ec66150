package schedule

import (
	"context"
	"time"
)

// Job is a periodic housekeeping task.
type Job func(ctx context.Context)

type Scheduler interface {
	Every(name string, interval time.Duration, job Job) error
}
