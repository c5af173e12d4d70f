package types

import "fmt"

// TaskKind names a delayed task handler
type TaskKind string

const (
	TaskKindCreateDailyStandups TaskKind = "create-daily-standups"
	TaskKindStartCollection     TaskKind = "start-collection"
	TaskKindCollectionTimeout   TaskKind = "collection-timeout"
	TaskKindFollowupReminder    TaskKind = "followup-reminder"
	TaskKindCleanupOldInstances TaskKind = "cleanup-old-instances"
	TaskKindSweepStuckInstances TaskKind = "sweep-stuck-instances"
)

// AllTaskKinds returns all task kinds known to the orchestrator
func AllTaskKinds() []TaskKind {
	return []TaskKind{
		TaskKindCreateDailyStandups,
		TaskKindStartCollection,
		TaskKindCollectionTimeout,
		TaskKindFollowupReminder,
		TaskKindCleanupOldInstances,
		TaskKindSweepStuckInstances,
	}
}

// IsValid checks if the task kind is valid
func (k TaskKind) IsValid() bool {
	for _, kind := range AllTaskKinds() {
		if k == kind {
			return true
		}
	}
	return false
}

// String returns the string representation of the task kind
func (k TaskKind) String() string {
	return string(k)
}

// ParseTaskKind parses a string into a TaskKind
func ParseTaskKind(s string) (TaskKind, error) {
	kind := TaskKind(s)
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid task kind: %s", s)
	}
	return kind, nil
}

// FollowupKind distinguishes a regular reminder from the final notice
type FollowupKind string

const (
	FollowupKindReminder       FollowupKind = "reminder"
	FollowupKindTimeoutWarning FollowupKind = "timeout_warning"
)

// IsValid checks if the follow-up kind is valid
func (k FollowupKind) IsValid() bool {
	return k == FollowupKindReminder || k == FollowupKindTimeoutWarning
}

// String returns the string representation of the follow-up kind
func (k FollowupKind) String() string {
	return string(k)
}
