package interfaces

import (
	"context"
	"time"

	"github.com/secmon-lab/huddle/pkg/domain/model"
)

// TaskQueue is a durable delayed queue keyed by Task.Key
type TaskQueue interface {
	// Enqueue schedules the task at task.RunAt, replacing any scheduled task
	// with the same key
	Enqueue(ctx context.Context, task *model.Task) error

	// Cancel removes a scheduled task. Cancelling an unknown key is not an error.
	Cancel(ctx context.Context, key string) error

	// Claim atomically takes up to limit tasks due at now. A claimed task is
	// invisible to other claimers until now+visibility; if it is neither
	// acknowledged nor retried by then it becomes due again.
	Claim(ctx context.Context, now time.Time, limit int, visibility time.Duration) ([]*model.Task, error)

	// Ack removes a claimed task after it has been handled
	Ack(ctx context.Context, task *model.Task) error

	// Retry reschedules a claimed task at runAt with its Attempts updated
	Retry(ctx context.Context, task *model.Task, runAt time.Time) error

	Close() error
}

// TaskHandler executes one task. A returned error marks the attempt failed.
type TaskHandler func(ctx context.Context, task *model.Task) error

// TaskScheduler is the narrow view of the scheduler used by use cases
type TaskScheduler interface {
	Schedule(ctx context.Context, task *model.Task) error
	Cancel(ctx context.Context, key string) error
}
