package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/huddle/pkg/domain/model"
)

type digestRepository struct {
	mu      sync.RWMutex
	records map[model.InstanceID]*model.DigestRecord
}

func newDigestRepository() *digestRepository {
	return &digestRepository{
		records: make(map[model.InstanceID]*model.DigestRecord),
	}
}

func (r *digestRepository) TryCreate(ctx context.Context, rec *model.DigestRecord) (bool, error) {
	if rec == nil {
		return false, goerr.New("digest record is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[rec.InstanceID]; exists {
		return false, nil
	}

	copied := *rec
	copied.PostedAt = rec.PostedAt.UTC()
	r.records[rec.InstanceID] = &copied
	return true, nil
}

func (r *digestRepository) Get(ctx context.Context, id model.InstanceID) (*model.DigestRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, nil
	}
	copied := *rec
	return &copied, nil
}

func (r *digestRepository) deleteInstance(id model.InstanceID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, id)
}

type participationRepository struct {
	mu        sync.RWMutex
	snapshots map[model.InstanceID]*model.ParticipationSnapshot
}

func newParticipationRepository() *participationRepository {
	return &participationRepository{
		snapshots: make(map[model.InstanceID]*model.ParticipationSnapshot),
	}
}

func copySnapshot(s *model.ParticipationSnapshot) *model.ParticipationSnapshot {
	copied := *s
	copied.MissingMemberIDs = slices.Clone(s.MissingMemberIDs)
	return &copied
}

func (r *participationRepository) Put(ctx context.Context, snap *model.ParticipationSnapshot) (bool, error) {
	if snap == nil {
		return false, goerr.New("participation snapshot is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.snapshots[snap.InstanceID]; exists {
		return false, nil
	}
	r.snapshots[snap.InstanceID] = copySnapshot(snap)
	return true, nil
}

func (r *participationRepository) Get(ctx context.Context, id model.InstanceID) (*model.ParticipationSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap, ok := r.snapshots[id]
	if !ok {
		return nil, nil
	}
	return copySnapshot(snap), nil
}

func (r *participationRepository) deleteInstance(id model.InstanceID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.snapshots, id)
}
