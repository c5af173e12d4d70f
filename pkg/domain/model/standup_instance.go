package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/secmon-lab/huddle/pkg/domain/types"
)

// InstanceID identifies a single day's standup cycle
type InstanceID string

// NewInstanceID generates a new random InstanceID
func NewInstanceID() InstanceID {
	return InstanceID(uuid.New().String())
}

// String returns the string representation of InstanceID
func (id InstanceID) String() string {
	return string(id)
}

// StandupInstance is one day's occurrence of a team's standup.
// At most one exists per (TeamID, TargetDate).
type StandupInstance struct {
	ID             InstanceID
	TeamID         types.TeamID
	TargetDate     types.Date
	ConfigSnapshot StandupConfig
	State          types.StandupState
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewStandupInstance creates a pending instance from a snapshot of cfg
func NewStandupInstance(cfg *StandupConfig, date types.Date, now time.Time) *StandupInstance {
	return &StandupInstance{
		ID:             NewInstanceID(),
		TeamID:         cfg.TeamID,
		TargetDate:     date,
		ConfigSnapshot: cfg.Snapshot(),
		State:          types.StandupStatePending,
		CreatedAt:      now.UTC(),
		UpdatedAt:      now.UTC(),
	}
}

// Deadline is the end of the collection window
func (i *StandupInstance) Deadline() time.Time {
	return i.CreatedAt.Add(i.ConfigSnapshot.ResponseTimeout())
}

// Elapsed returns the time since the instance was created
func (i *StandupInstance) Elapsed(now time.Time) time.Duration {
	return now.Sub(i.CreatedAt)
}

// Participants returns the members frozen into the snapshot
func (i *StandupInstance) Participants() []Member {
	return i.ConfigSnapshot.Members
}

// Copy returns a deep copy of the instance
func (i *StandupInstance) Copy() *StandupInstance {
	copied := *i
	copied.ConfigSnapshot = i.ConfigSnapshot.Snapshot()
	copied.ConfigSnapshot.Version = i.ConfigSnapshot.Version
	return &copied
}
