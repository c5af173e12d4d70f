package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/huddle/pkg/domain/interfaces"
	"github.com/secmon-lab/huddle/pkg/domain/model"
	"github.com/secmon-lab/huddle/pkg/domain/types"
	"github.com/secmon-lab/huddle/pkg/utils/async"
	"github.com/secmon-lab/huddle/pkg/utils/clock"
	"github.com/secmon-lab/huddle/pkg/utils/logging"
	"github.com/secmon-lab/huddle/pkg/utils/metrics"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultVisibility   = 5 * time.Minute
	DefaultBatchSize    = 32
	DefaultConcurrency  = 8
	DefaultMaxAttempts  = 8
	DefaultBaseBackoff  = 30 * time.Second
	DefaultMaxBackoff   = 30 * time.Minute
)

type recurringJob struct {
	kind     types.TaskKind
	interval time.Duration
	lastSlot time.Time
}

// Scheduler runs delayed tasks from a TaskQueue on a bounded worker pool.
//
// Architecture assumptions:
// - Any number of processes may poll the same queue; Claim is atomic
// - Handlers are idempotent and re-read state, so redelivery is harmless
type Scheduler struct {
	queue   interfaces.TaskQueue
	clock   clock.Clock
	metrics *metrics.Metrics
	// slotLock deduplicates recurring slots across processes when set
	slotLock interfaces.LockRepository
	owner    string

	pollInterval time.Duration
	visibility   time.Duration
	batchSize    int
	concurrency  int
	maxAttempts  int
	baseBackoff  time.Duration
	maxBackoff   time.Duration

	mu        sync.Mutex
	handlers  map[types.TaskKind]interfaces.TaskHandler
	recurring []*recurringJob

	stopCh chan struct{}
	doneCh chan struct{}
}

var _ interfaces.TaskScheduler = &Scheduler{}

type Option func(*Scheduler)

func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

func WithSlotLock(lock interfaces.LockRepository) Option {
	return func(s *Scheduler) { s.slotLock = lock }
}

func WithPollInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.pollInterval = d }
}

func WithVisibility(d time.Duration) Option {
	return func(s *Scheduler) { s.visibility = d }
}

func WithBatchSize(n int) Option {
	return func(s *Scheduler) { s.batchSize = n }
}

func WithConcurrency(n int) Option {
	return func(s *Scheduler) { s.concurrency = n }
}

func WithMaxAttempts(n int) Option {
	return func(s *Scheduler) { s.maxAttempts = n }
}

func WithBackoff(base, max time.Duration) Option {
	return func(s *Scheduler) {
		s.baseBackoff = base
		s.maxBackoff = max
	}
}

func New(queue interfaces.TaskQueue, opts ...Option) *Scheduler {
	s := &Scheduler{
		queue:        queue,
		clock:        clock.System(),
		owner:        uuid.NewString(),
		pollInterval: DefaultPollInterval,
		visibility:   DefaultVisibility,
		batchSize:    DefaultBatchSize,
		concurrency:  DefaultConcurrency,
		maxAttempts:  DefaultMaxAttempts,
		baseBackoff:  DefaultBaseBackoff,
		maxBackoff:   DefaultMaxBackoff,
		handlers:     make(map[types.TaskKind]interfaces.TaskHandler),
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register binds the handler of a task kind, replacing any previous one
func (s *Scheduler) Register(kind types.TaskKind, handler interfaces.TaskHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[kind] = handler
}

// Every enqueues a task of kind once per interval slot. The handler must be
// registered separately.
func (s *Scheduler) Every(kind types.TaskKind, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recurring = append(s.recurring, &recurringJob{kind: kind, interval: interval})
}

func (s *Scheduler) Schedule(ctx context.Context, task *model.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}
	if err := s.queue.Enqueue(ctx, task); err != nil {
		return goerr.Wrap(err, "failed to schedule task", goerr.V("key", task.Key))
	}

	logging.From(ctx).Debug("task scheduled",
		"key", task.Key,
		"kind", task.Kind,
		"run_at", task.RunAt,
	)
	return nil
}

func (s *Scheduler) Cancel(ctx context.Context, key string) error {
	if err := s.queue.Cancel(ctx, key); err != nil {
		return goerr.Wrap(err, "failed to cancel task", goerr.V("key", key))
	}
	return nil
}

// Start begins the polling loop in a background goroutine
func (s *Scheduler) Start(ctx context.Context) error {
	logging.Default().Info("Task scheduler starting",
		"poll_interval", s.pollInterval.String(),
		"concurrency", s.concurrency,
		"recurring", len(s.recurring),
	)

	// First recurring slot goes out without waiting for the first tick
	async.Dispatch(ctx, "enqueue-recurring", func(ctx context.Context) error {
		return s.EnqueueRecurring(ctx)
	})

	go s.run(ctx)
	return nil
}

// Stop signals the loop to stop and waits for in-flight tasks
func (s *Scheduler) Stop() {
	logging.Default().Info("Task scheduler stopping")
	close(s.stopCh)
	<-s.doneCh
	logging.Default().Info("Task scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.EnqueueRecurring(ctx); err != nil {
				logging.From(ctx).Error("failed to enqueue recurring tasks", "error", err.Error())
			}
			if _, err := s.RunDue(ctx); err != nil {
				logging.From(ctx).Error("failed to run due tasks (will retry next tick)", "error", err.Error())
			}

		case <-s.stopCh:
			return

		case <-ctx.Done():
			return
		}
	}
}

// EnqueueRecurring enqueues the current slot of every recurring job not yet enqueued
func (s *Scheduler) EnqueueRecurring(ctx context.Context) error {
	now := s.clock.Now()

	s.mu.Lock()
	jobs := make([]*recurringJob, len(s.recurring))
	copy(jobs, s.recurring)
	s.mu.Unlock()

	var firstErr error
	for _, job := range jobs {
		slot := now.Truncate(job.interval)

		s.mu.Lock()
		done := job.lastSlot.Equal(slot)
		s.mu.Unlock()
		if done {
			continue
		}

		task := model.NewRecurringTask(job.kind, slot)
		if s.slotLock != nil {
			acquired, err := s.slotLock.TryAcquire(ctx, "slot:"+task.Key, s.owner, now, job.interval)
			if err != nil {
				if firstErr == nil {
					firstErr = goerr.Wrap(err, "failed to lock recurring slot", goerr.V("key", task.Key))
				}
				continue
			}
			if !acquired {
				s.markSlot(job, slot)
				continue
			}
		}

		if err := s.queue.Enqueue(ctx, task); err != nil {
			if firstErr == nil {
				firstErr = goerr.Wrap(err, "failed to enqueue recurring task", goerr.V("key", task.Key))
			}
			continue
		}
		s.markSlot(job, slot)
	}
	return firstErr
}

func (s *Scheduler) markSlot(job *recurringJob, slot time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job.lastSlot = slot
}

// RunDue claims due tasks once and runs them to completion. It returns the
// number of tasks claimed.
func (s *Scheduler) RunDue(ctx context.Context) (int, error) {
	tasks, err := s.queue.Claim(ctx, s.clock.Now(), s.batchSize, s.visibility)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to claim tasks")
	}
	if len(tasks) == 0 {
		return 0, nil
	}

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, task := range tasks {
		g.Go(func() error {
			s.execute(ctx, task)
			return nil
		})
	}
	_ = g.Wait()

	return len(tasks), nil
}

func (s *Scheduler) lookup(kind types.TaskKind) interfaces.TaskHandler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handlers[kind]
}

func (s *Scheduler) execute(ctx context.Context, task *model.Task) {
	logger := logging.From(ctx).With("task_key", task.Key, "kind", task.Kind, "attempts", task.Attempts)
	ctx = logging.With(ctx, logger)

	handler := s.lookup(task.Kind)
	if handler == nil {
		logger.Error("no handler registered for task kind, dropping task")
		s.metrics.TaskExecution(task.Kind.String(), "dropped")
		s.ack(ctx, task)
		return
	}
	if err := task.Validate(); err != nil {
		logger.Error("invalid task payload, dropping task", "error", err.Error())
		s.metrics.TaskExecution(task.Kind.String(), "dropped")
		s.ack(ctx, task)
		return
	}

	if err := invoke(ctx, handler, task); err != nil {
		s.fail(ctx, task, err)
		return
	}

	s.metrics.TaskExecution(task.Kind.String(), "success")
	s.ack(ctx, task)
}

// invoke runs the handler, converting a panic into an error
func invoke(ctx context.Context, handler interfaces.TaskHandler, task *model.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = goerr.New("panic in task handler", goerr.V("panic", fmt.Sprint(r)))
		}
	}()
	return handler(ctx, task)
}

func (s *Scheduler) fail(ctx context.Context, task *model.Task, cause error) {
	logger := logging.From(ctx)

	failed := task.Copy()
	failed.Attempts++

	if failed.Attempts >= s.maxAttempts {
		logger.Error("task failed permanently, giving up",
			"error", cause.Error(), "attempts", failed.Attempts)
		s.metrics.TaskExecution(task.Kind.String(), "dead")
		s.ack(ctx, task)
		return
	}

	runAt := s.clock.Now().Add(s.Backoff(failed.Attempts))
	logger.Warn("task failed, retrying",
		"error", cause.Error(), "attempts", failed.Attempts, "retry_at", runAt)
	s.metrics.TaskExecution(task.Kind.String(), "retry")

	if err := s.queue.Retry(ctx, failed, runAt); err != nil {
		// the claim expires and the task is redelivered
		logger.Error("failed to reschedule task", "error", err.Error())
	}
}

func (s *Scheduler) ack(ctx context.Context, task *model.Task) {
	if err := s.queue.Ack(ctx, task); err != nil {
		logging.From(ctx).Error("failed to ack task", "key", task.Key, "error", err.Error())
	}
}

// Backoff returns the delay before the given attempt number, doubling from
// the base up to the maximum
func (s *Scheduler) Backoff(attempts int) time.Duration {
	d := s.baseBackoff
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= s.maxBackoff {
			return s.maxBackoff
		}
	}
	return min(d, s.maxBackoff)
}
