package model

// ArchiveRecord is everything kept about a cycle when it leaves the store
type ArchiveRecord struct {
	Instance      *StandupInstance       `json:"instance"`
	Answers       []*Answer              `json:"answers"`
	Digest        *DigestRecord          `json:"digest,omitempty"`
	Participation *ParticipationSnapshot `json:"participation,omitempty"`
}
