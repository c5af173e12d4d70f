package interfaces

import (
	"context"
	"time"

	"github.com/secmon-lab/huddle/pkg/domain/model"
	"github.com/secmon-lab/huddle/pkg/domain/types"
)

// StandupConfigRepository stores team standup configurations.
// Configurations are owned and validated outside the orchestrator.
type StandupConfigRepository interface {
	// Put saves a configuration (upsert by team ID)
	Put(ctx context.Context, cfg *model.StandupConfig) error

	// Get retrieves a configuration by team ID. Returns ErrNotFound if absent.
	Get(ctx context.Context, teamID types.TeamID) (*model.StandupConfig, error)

	// ListActive retrieves all configurations with Active set
	ListActive(ctx context.Context) ([]*model.StandupConfig, error)
}

// InstanceRepository stores standup instances
type InstanceRepository interface {
	// Create saves a new instance. Returns ErrAlreadyExists if an instance for
	// the same (TeamID, TargetDate) or the same ID exists.
	Create(ctx context.Context, inst *model.StandupInstance) error

	// Get retrieves an instance by ID. Returns ErrNotFound if absent.
	Get(ctx context.Context, id model.InstanceID) (*model.StandupInstance, error)

	// GetByTeamDate retrieves the instance of a team for a date.
	// Returns nil, nil if no instance exists.
	GetByTeamDate(ctx context.Context, teamID types.TeamID, date types.Date) (*model.StandupInstance, error)

	// UpdateState atomically moves an instance from one state to another.
	// Returns ErrStateConflict if the current state is not from, and
	// ErrNotFound if the instance does not exist.
	UpdateState(ctx context.Context, id model.InstanceID, from, to types.StandupState) error

	// ListByState retrieves instances in the state created strictly before createdBefore
	ListByState(ctx context.Context, state types.StandupState, createdBefore time.Time) ([]*model.StandupInstance, error)

	// ListBefore retrieves instances whose TargetDate is strictly before date
	ListBefore(ctx context.Context, date types.Date) ([]*model.StandupInstance, error)

	// Delete removes an instance together with its answers, digest and
	// participation snapshot. Deleting a missing instance is not an error.
	Delete(ctx context.Context, id model.InstanceID) error
}

// AnswerRepository stores member answers
type AnswerRepository interface {
	// Upsert saves an answer, overwriting an earlier answer for the same
	// (InstanceID, MemberID, QuestionIndex)
	Upsert(ctx context.Context, answer *model.Answer) error

	// List retrieves all answers of an instance ordered by member then question
	List(ctx context.Context, id model.InstanceID) ([]*model.Answer, error)

	// ListRespondents retrieves the distinct members who answered at least one question
	ListRespondents(ctx context.Context, id model.InstanceID) ([]types.MemberID, error)
}

// DigestRepository stores posted digest markers
type DigestRepository interface {
	// TryCreate saves the record if none exists for the instance.
	// Returns false without error if one already exists.
	TryCreate(ctx context.Context, rec *model.DigestRecord) (bool, error)

	// Get retrieves the record of an instance. Returns nil, nil if absent.
	Get(ctx context.Context, id model.InstanceID) (*model.DigestRecord, error)
}

// ParticipationRepository stores write-once participation snapshots
type ParticipationRepository interface {
	// Put saves the snapshot if none exists. Returns false if one already exists.
	Put(ctx context.Context, snap *model.ParticipationSnapshot) (bool, error)

	// Get retrieves the snapshot of an instance. Returns nil, nil if absent.
	Get(ctx context.Context, id model.InstanceID) (*model.ParticipationSnapshot, error)
}

// LockRepository provides expiring mutual-exclusion tokens
type LockRepository interface {
	// TryAcquire takes the lock for owner until now+ttl. It succeeds when the
	// lock is free, expired at now, or already held by owner.
	TryAcquire(ctx context.Context, key, owner string, now time.Time, ttl time.Duration) (bool, error)

	// Release frees the lock if owner holds it
	Release(ctx context.Context, key, owner string) error
}
