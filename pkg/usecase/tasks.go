package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/huddle/pkg/domain/interfaces"
	"github.com/secmon-lab/huddle/pkg/domain/model"
	"github.com/secmon-lab/huddle/pkg/domain/types"
)

// TaskRegistrar is the part of the scheduler that binds handlers
type TaskRegistrar interface {
	Register(kind types.TaskKind, handler interfaces.TaskHandler)
	Every(kind types.TaskKind, interval time.Duration)
}

// RegisterTasks binds every task kind to its use case and schedules the
// recurring matcher, sweep and cleanup jobs
func (uc *UseCases) RegisterTasks(r TaskRegistrar) {
	r.Register(types.TaskKindCreateDailyStandups, uc.handleCreateDailyStandups)
	r.Register(types.TaskKindStartCollection, uc.handleStartCollection)
	r.Register(types.TaskKindCollectionTimeout, uc.handleCollectionTimeout)
	r.Register(types.TaskKindFollowupReminder, uc.handleFollowup)
	r.Register(types.TaskKindSweepStuckInstances, uc.handleSweep)
	r.Register(types.TaskKindCleanupOldInstances, uc.handleCleanup)

	r.Every(types.TaskKindCreateDailyStandups, uc.config.MatcherInterval)
	r.Every(types.TaskKindSweepStuckInstances, uc.config.SweepInterval)
	r.Every(types.TaskKindCleanupOldInstances, uc.config.CleanupInterval)
}

func (uc *UseCases) handleCreateDailyStandups(ctx context.Context, _ *model.Task) error {
	_, err := uc.Matcher.RunOnce(ctx, uc.clock.Now())
	return err
}

func (uc *UseCases) handleStartCollection(ctx context.Context, task *model.Task) error {
	_, err := uc.Lifecycle.StartCollection(ctx, task.InstanceID)
	return err
}

func (uc *UseCases) handleCollectionTimeout(ctx context.Context, task *model.Task) error {
	_, err := uc.Lifecycle.HandleTimeout(ctx, task.InstanceID)
	return err
}

func (uc *UseCases) handleFollowup(ctx context.Context, task *model.Task) error {
	return uc.Lifecycle.HandleFollowup(ctx, task.InstanceID, task.FollowupKind)
}

func (uc *UseCases) handleSweep(ctx context.Context, _ *model.Task) error {
	_, err := uc.Sweep.RunOnce(ctx, uc.clock.Now())
	return err
}

func (uc *UseCases) handleCleanup(ctx context.Context, task *model.Task) error {
	cutoff, err := uc.CleanupCutoff(task)
	if err != nil {
		return err
	}
	_, err = uc.Cleanup.RunOnce(ctx, cutoff)
	return err
}

// CleanupCutoff is the first target date that is retained. It is derived from
// the task's slot date so that a retried task keeps its original cutoff.
func (uc *UseCases) CleanupCutoff(task *model.Task) (types.Date, error) {
	base := task.Date
	if base == "" {
		base = types.DateOf(uc.clock.Now())
	}
	if err := base.Validate(); err != nil {
		return "", goerr.Wrap(err, "invalid cleanup date", goerr.V("date", task.Date))
	}
	return base.AddDays(-uc.config.RetentionDays), nil
}
