package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/huddle/pkg/domain/types"
)

// Task is a unit of delayed work. The payload only identifies what to act on;
// handlers re-read authoritative state from the store.
type Task struct {
	Key          string             `json:"key"`
	Kind         types.TaskKind     `json:"kind"`
	InstanceID   InstanceID         `json:"instance_id,omitempty"`
	TeamID       types.TeamID       `json:"team_id,omitempty"`
	FollowupKind types.FollowupKind `json:"followup_kind,omitempty"`
	Fraction     float64            `json:"fraction,omitempty"`
	Date         types.Date         `json:"date,omitempty"`
	RunAt        time.Time          `json:"run_at"`
	Attempts     int                `json:"attempts"`
}

// TaskKey builds the logical key of a task. Scheduling the same key again
// replaces the earlier task.
func TaskKey(kind types.TaskKind, parts ...string) string {
	return strings.Join(append([]string{kind.String()}, parts...), ":")
}

// NewStartCollectionTask builds the task announcing an instance
func NewStartCollectionTask(inst *StandupInstance, at time.Time) *Task {
	return &Task{
		Key:        TaskKey(types.TaskKindStartCollection, inst.ID.String()),
		Kind:       types.TaskKindStartCollection,
		InstanceID: inst.ID,
		TeamID:     inst.TeamID,
		RunAt:      at,
	}
}

// NewTimeoutTask builds the task closing an instance at its deadline
func NewTimeoutTask(inst *StandupInstance) *Task {
	return &Task{
		Key:        TaskKey(types.TaskKindCollectionTimeout, inst.ID.String()),
		Kind:       types.TaskKindCollectionTimeout,
		InstanceID: inst.ID,
		TeamID:     inst.TeamID,
		RunAt:      inst.Deadline(),
	}
}

// NewFollowupTask builds a reminder at the fraction of the collection window
func NewFollowupTask(inst *StandupInstance, kind types.FollowupKind, fraction float64) *Task {
	offset := time.Duration(float64(inst.ConfigSnapshot.ResponseTimeout()) * fraction)
	return &Task{
		Key:          TaskKey(types.TaskKindFollowupReminder, inst.ID.String(), FractionLabel(fraction)),
		Kind:         types.TaskKindFollowupReminder,
		InstanceID:   inst.ID,
		TeamID:       inst.TeamID,
		FollowupKind: kind,
		Fraction:     fraction,
		RunAt:        inst.CreatedAt.Add(offset),
	}
}

// NewRecurringTask builds the task of a recurring job for the slot starting at slot
func NewRecurringTask(kind types.TaskKind, slot time.Time) *Task {
	return &Task{
		Key:   TaskKey(kind, fmt.Sprintf("%d", slot.Unix())),
		Kind:  kind,
		Date:  types.DateOf(slot.UTC()),
		RunAt: slot,
	}
}

// FractionLabel renders a fraction as a whole percentage, e.g. 0.95 -> "95"
func FractionLabel(fraction float64) string {
	return fmt.Sprintf("%d", int(fraction*100+0.5))
}

// Validate checks that the payload carries what its kind needs
func (t *Task) Validate() error {
	if t.Key == "" {
		return goerr.Wrap(ErrInvalidTask, "task key is required")
	}
	if !t.Kind.IsValid() {
		return goerr.Wrap(ErrInvalidTask, "unknown task kind", goerr.V("kind", t.Kind))
	}
	switch t.Kind {
	case types.TaskKindStartCollection, types.TaskKindCollectionTimeout:
		if t.InstanceID == "" {
			return goerr.Wrap(ErrInvalidTask, "instance ID is required", goerr.V("kind", t.Kind))
		}
	case types.TaskKindFollowupReminder:
		if t.InstanceID == "" {
			return goerr.Wrap(ErrInvalidTask, "instance ID is required", goerr.V("kind", t.Kind))
		}
		if !t.FollowupKind.IsValid() {
			return goerr.Wrap(ErrInvalidTask, "invalid follow-up kind", goerr.V("followup_kind", t.FollowupKind))
		}
	}
	return nil
}

// Copy returns a copy of the task
func (t *Task) Copy() *Task {
	copied := *t
	return &copied
}
