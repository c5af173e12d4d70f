package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/huddle/pkg/domain/interfaces"
	"github.com/secmon-lab/huddle/pkg/domain/model"
)

type inflightEntry struct {
	task     *model.Task
	deadline time.Time
}

// Queue is a process local TaskQueue. Tasks are lost on restart.
type Queue struct {
	mu        sync.Mutex
	scheduled map[string]*model.Task
	inflight  map[string]inflightEntry
}

var _ interfaces.TaskQueue = &Queue{}

func New() *Queue {
	return &Queue{
		scheduled: make(map[string]*model.Task),
		inflight:  make(map[string]inflightEntry),
	}
}

func (q *Queue) Enqueue(ctx context.Context, task *model.Task) error {
	if task == nil || task.Key == "" {
		return goerr.New("task key is required")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.scheduled[task.Key] = task.Copy()
	return nil
}

func (q *Queue) Cancel(ctx context.Context, key string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.scheduled, key)
	return nil
}

func (q *Queue) Claim(ctx context.Context, now time.Time, limit int, visibility time.Duration) ([]*model.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	// Expired claims become due again unless a newer task took the key
	for key, entry := range q.inflight {
		if entry.deadline.After(now) {
			continue
		}
		delete(q.inflight, key)
		if _, exists := q.scheduled[key]; !exists {
			q.scheduled[key] = entry.task
		}
	}

	var due []*model.Task
	for key, task := range q.scheduled {
		if _, running := q.inflight[key]; running {
			continue
		}
		if !task.RunAt.After(now) {
			due = append(due, task)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].RunAt.Before(due[j].RunAt)
	})
	if len(due) > limit {
		due = due[:limit]
	}

	claimed := make([]*model.Task, 0, len(due))
	for _, task := range due {
		delete(q.scheduled, task.Key)
		q.inflight[task.Key] = inflightEntry{task: task, deadline: now.Add(visibility)}
		claimed = append(claimed, task.Copy())
	}
	return claimed, nil
}

func (q *Queue) Ack(ctx context.Context, task *model.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.inflight, task.Key)
	return nil
}

func (q *Queue) Retry(ctx context.Context, task *model.Task, runAt time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.inflight, task.Key)
	if _, exists := q.scheduled[task.Key]; exists {
		return nil
	}

	retried := task.Copy()
	retried.RunAt = runAt
	q.scheduled[task.Key] = retried
	return nil
}

// Scheduled returns a copy of the scheduled task with the key, or nil
func (q *Queue) Scheduled(key string) *model.Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, ok := q.scheduled[key]
	if !ok {
		return nil
	}
	return task.Copy()
}

// Len returns the number of scheduled tasks
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.scheduled)
}

func (q *Queue) Close() error {
	return nil
}
