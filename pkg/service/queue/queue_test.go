package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/m-mizutani/gt"
	goredis "github.com/redis/go-redis/v9"
	"github.com/secmon-lab/huddle/pkg/domain/interfaces"
	"github.com/secmon-lab/huddle/pkg/domain/model"
	"github.com/secmon-lab/huddle/pkg/domain/types"
	"github.com/secmon-lab/huddle/pkg/service/queue/memory"
	"github.com/secmon-lab/huddle/pkg/service/queue/redis"
)

func runAllQueues(t *testing.T, run func(t *testing.T, q interfaces.TaskQueue)) {
	t.Helper()

	t.Run("Memory", func(t *testing.T) {
		run(t, memory.New())
	})
	t.Run("Redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
		q := redis.NewWithClient(client, redis.WithPrefix("test"))
		t.Cleanup(func() {
			gt.NoError(t, q.Close())
		})
		run(t, q)
	})
}

var now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTask(key string, runAt time.Time) *model.Task {
	return &model.Task{
		Key:        key,
		Kind:       types.TaskKindStartCollection,
		InstanceID: model.InstanceID("inst-" + key),
		RunAt:      runAt,
	}
}

func TestTaskQueue(t *testing.T) {
	runAllQueues(t, func(t *testing.T, q interfaces.TaskQueue) {
		ctx := context.Background()

		t.Run("Claim returns only due tasks in run order", func(t *testing.T) {
			gt.NoError(t, q.Enqueue(ctx, newTask("order-b", now.Add(-time.Minute)))).Required()
			gt.NoError(t, q.Enqueue(ctx, newTask("order-a", now.Add(-2*time.Minute)))).Required()
			gt.NoError(t, q.Enqueue(ctx, newTask("order-future", now.Add(time.Hour)))).Required()

			tasks, err := q.Claim(ctx, now, 10, time.Minute)
			gt.NoError(t, err).Required()
			gt.Array(t, tasks).Length(2)
			gt.Value(t, tasks[0].Key).Equal("order-a")
			gt.Value(t, tasks[1].Key).Equal("order-b")
			gt.Value(t, tasks[0].InstanceID).Equal(model.InstanceID("inst-order-a"))

			for _, task := range tasks {
				gt.NoError(t, q.Ack(ctx, task)).Required()
			}

			// claimed tasks are not handed out twice
			tasks, err = q.Claim(ctx, now, 10, time.Minute)
			gt.NoError(t, err).Required()
			gt.Array(t, tasks).Length(0)

			gt.NoError(t, q.Cancel(ctx, "order-future")).Required()
		})

		t.Run("Enqueue with the same key replaces the task", func(t *testing.T) {
			gt.NoError(t, q.Enqueue(ctx, newTask("replace", now.Add(time.Hour)))).Required()
			gt.NoError(t, q.Enqueue(ctx, newTask("replace", now.Add(-time.Second)))).Required()

			tasks, err := q.Claim(ctx, now, 10, time.Minute)
			gt.NoError(t, err).Required()
			gt.Array(t, tasks).Length(1)
			gt.NoError(t, q.Ack(ctx, tasks[0])).Required()

			tasks, err = q.Claim(ctx, now.Add(2*time.Hour), 10, time.Minute)
			gt.NoError(t, err).Required()
			gt.Array(t, tasks).Length(0)
		})

		t.Run("Cancel removes a scheduled task", func(t *testing.T) {
			gt.NoError(t, q.Enqueue(ctx, newTask("cancel", now))).Required()
			gt.NoError(t, q.Cancel(ctx, "cancel")).Required()
			gt.NoError(t, q.Cancel(ctx, "unknown")).Required()

			tasks, err := q.Claim(ctx, now, 10, time.Minute)
			gt.NoError(t, err).Required()
			gt.Array(t, tasks).Length(0)
		})

		t.Run("Claim honors the limit", func(t *testing.T) {
			for _, key := range []string{"limit-1", "limit-2", "limit-3"} {
				gt.NoError(t, q.Enqueue(ctx, newTask(key, now))).Required()
			}

			first, err := q.Claim(ctx, now, 2, time.Minute)
			gt.NoError(t, err).Required()
			gt.Array(t, first).Length(2)

			second, err := q.Claim(ctx, now, 2, time.Minute)
			gt.NoError(t, err).Required()
			gt.Array(t, second).Length(1)

			for _, task := range append(first, second...) {
				gt.NoError(t, q.Ack(ctx, task)).Required()
			}
		})

		t.Run("unacknowledged claim is redelivered after visibility", func(t *testing.T) {
			gt.NoError(t, q.Enqueue(ctx, newTask("visibility", now))).Required()

			tasks, err := q.Claim(ctx, now, 10, time.Minute)
			gt.NoError(t, err).Required()
			gt.Array(t, tasks).Length(1)

			tasks, err = q.Claim(ctx, now.Add(30*time.Second), 10, time.Minute)
			gt.NoError(t, err).Required()
			gt.Array(t, tasks).Length(0)

			tasks, err = q.Claim(ctx, now.Add(2*time.Minute), 10, time.Minute)
			gt.NoError(t, err).Required()
			gt.Array(t, tasks).Length(1)
			gt.Value(t, tasks[0].Key).Equal("visibility")
			gt.NoError(t, q.Ack(ctx, tasks[0])).Required()
		})

		t.Run("Retry reschedules with updated attempts", func(t *testing.T) {
			gt.NoError(t, q.Enqueue(ctx, newTask("retry", now))).Required()

			tasks, err := q.Claim(ctx, now, 10, time.Minute)
			gt.NoError(t, err).Required()
			gt.Array(t, tasks).Length(1)

			task := tasks[0]
			task.Attempts++
			gt.NoError(t, q.Retry(ctx, task, now.Add(30*time.Second))).Required()

			tasks, err = q.Claim(ctx, now.Add(10*time.Second), 10, time.Minute)
			gt.NoError(t, err).Required()
			gt.Array(t, tasks).Length(0)

			tasks, err = q.Claim(ctx, now.Add(31*time.Second), 10, time.Minute)
			gt.NoError(t, err).Required()
			gt.Array(t, tasks).Length(1)
			gt.Number(t, tasks[0].Attempts).Equal(1)
			gt.NoError(t, q.Ack(ctx, tasks[0])).Required()
		})

		t.Run("Retry does not overwrite a task rescheduled meanwhile", func(t *testing.T) {
			gt.NoError(t, q.Enqueue(ctx, newTask("rescheduled", now))).Required()

			tasks, err := q.Claim(ctx, now, 10, time.Minute)
			gt.NoError(t, err).Required()
			gt.Array(t, tasks).Length(1)

			newer := newTask("rescheduled", now.Add(time.Hour))
			newer.InstanceID = "newer"
			gt.NoError(t, q.Enqueue(ctx, newer)).Required()

			gt.NoError(t, q.Retry(ctx, tasks[0], now.Add(time.Second))).Required()

			tasks, err = q.Claim(ctx, now.Add(time.Minute), 10, time.Minute)
			gt.NoError(t, err).Required()
			gt.Array(t, tasks).Length(0)

			tasks, err = q.Claim(ctx, now.Add(2*time.Hour), 10, time.Minute)
			gt.NoError(t, err).Required()
			gt.Array(t, tasks).Length(1)
			gt.Value(t, tasks[0].InstanceID).Equal(model.InstanceID("newer"))
			gt.NoError(t, q.Ack(ctx, tasks[0])).Required()
		})
	})
}
