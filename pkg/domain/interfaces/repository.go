package interfaces

// Repository defines the interface for data persistence.
// It is the single source of truth for instance state.
type Repository interface {
	StandupConfig() StandupConfigRepository
	Instance() InstanceRepository
	Answer() AnswerRepository
	Digest() DigestRepository
	Participation() ParticipationRepository
	Lock() LockRepository

	Close() error
}
