package memory

import (
	"github.com/secmon-lab/huddle/pkg/domain/interfaces"
)

// Memory is an in-process repository used by tests and dry runs
type Memory struct {
	config        *standupConfigRepository
	instance      *instanceRepository
	answer        *answerRepository
	digest        *digestRepository
	participation *participationRepository
	lock          *lockRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	answerRepo := newAnswerRepository()
	digestRepo := newDigestRepository()
	participationRepo := newParticipationRepository()

	return &Memory{
		config:        newStandupConfigRepository(),
		instance:      newInstanceRepository(answerRepo, digestRepo, participationRepo),
		answer:        answerRepo,
		digest:        digestRepo,
		participation: participationRepo,
		lock:          newLockRepository(),
	}
}

func (m *Memory) StandupConfig() interfaces.StandupConfigRepository {
	return m.config
}

func (m *Memory) Instance() interfaces.InstanceRepository {
	return m.instance
}

func (m *Memory) Answer() interfaces.AnswerRepository {
	return m.answer
}

func (m *Memory) Digest() interfaces.DigestRepository {
	return m.digest
}

func (m *Memory) Participation() interfaces.ParticipationRepository {
	return m.participation
}

func (m *Memory) Lock() interfaces.LockRepository {
	return m.lock
}

func (m *Memory) Close() error {
	return nil
}
