package model

import (
	"time"

	"github.com/secmon-lab/huddle/pkg/domain/types"
)

// DigestRecord marks an instance whose summary has been posted.
// Its existence is the idempotency guard against double posting.
type DigestRecord struct {
	InstanceID InstanceID
	ChannelID  string
	MessageID  string
	PostedAt   time.Time
}

// ParticipationSnapshot captures final participation at cycle close.
// Written once, immutable afterwards.
type ParticipationSnapshot struct {
	InstanceID       InstanceID
	AnswersCount     int
	RespondedCount   int
	MembersMissing   int
	MissingMemberIDs []types.MemberID
	CreatedAt        time.Time
}

// NewParticipationSnapshot builds a snapshot from computed participation
func NewParticipationSnapshot(id InstanceID, p Participation, now time.Time) *ParticipationSnapshot {
	missing := make([]types.MemberID, len(p.Missing))
	for i, m := range p.Missing {
		missing[i] = m.ID
	}
	return &ParticipationSnapshot{
		InstanceID:       id,
		AnswersCount:     p.AnswersCount,
		RespondedCount:   len(p.Responded),
		MembersMissing:   len(p.Missing),
		MissingMemberIDs: missing,
		CreatedAt:        now.UTC(),
	}
}
