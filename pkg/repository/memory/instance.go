package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/huddle/pkg/domain/interfaces"
	"github.com/secmon-lab/huddle/pkg/domain/model"
	"github.com/secmon-lab/huddle/pkg/domain/types"
)

// teamDateKey is the uniqueness key of instances
type teamDateKey struct {
	teamID types.TeamID
	date   types.Date
}

type instanceRepository struct {
	mu        sync.RWMutex
	instances map[model.InstanceID]*model.StandupInstance
	byDate    map[teamDateKey]model.InstanceID

	answer        *answerRepository
	digest        *digestRepository
	participation *participationRepository
}

func newInstanceRepository(answer *answerRepository, digest *digestRepository, participation *participationRepository) *instanceRepository {
	return &instanceRepository{
		instances:     make(map[model.InstanceID]*model.StandupInstance),
		byDate:        make(map[teamDateKey]model.InstanceID),
		answer:        answer,
		digest:        digest,
		participation: participation,
	}
}

func (r *instanceRepository) Create(ctx context.Context, inst *model.StandupInstance) error {
	if inst == nil {
		return goerr.New("instance is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := teamDateKey{teamID: inst.TeamID, date: inst.TargetDate}
	if _, exists := r.byDate[key]; exists {
		return goerr.Wrap(interfaces.ErrAlreadyExists, "instance already exists for team and date",
			goerr.V(model.TeamIDKey, inst.TeamID), goerr.V("target_date", inst.TargetDate))
	}
	if _, exists := r.instances[inst.ID]; exists {
		return goerr.Wrap(interfaces.ErrAlreadyExists, "instance ID already exists",
			goerr.V(model.InstanceIDKey, inst.ID))
	}

	r.instances[inst.ID] = inst.Copy()
	r.byDate[key] = inst.ID
	return nil
}

func (r *instanceRepository) Get(ctx context.Context, id model.InstanceID) (*model.StandupInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inst, ok := r.instances[id]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "instance not found", goerr.V(model.InstanceIDKey, id))
	}
	return inst.Copy(), nil
}

func (r *instanceRepository) GetByTeamDate(ctx context.Context, teamID types.TeamID, date types.Date) (*model.StandupInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byDate[teamDateKey{teamID: teamID, date: date}]
	if !ok {
		return nil, nil
	}
	return r.instances[id].Copy(), nil
}

func (r *instanceRepository) UpdateState(ctx context.Context, id model.InstanceID, from, to types.StandupState) error {
	if !from.CanTransitionTo(to) {
		return goerr.Wrap(interfaces.ErrStateConflict, "transition is not allowed",
			goerr.V(model.InstanceIDKey, id), goerr.V("from", from), goerr.V("to", to))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.instances[id]
	if !ok {
		return goerr.Wrap(interfaces.ErrNotFound, "instance not found", goerr.V(model.InstanceIDKey, id))
	}
	if inst.State != from {
		return goerr.Wrap(interfaces.ErrStateConflict, "instance is not in expected state",
			goerr.V(model.InstanceIDKey, id), goerr.V("expected", from), goerr.V("actual", inst.State))
	}

	inst.State = to
	inst.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *instanceRepository) ListByState(ctx context.Context, state types.StandupState, createdBefore time.Time) ([]*model.StandupInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*model.StandupInstance
	for _, inst := range r.instances {
		if inst.State == state && inst.CreatedAt.Before(createdBefore) {
			result = append(result, inst.Copy())
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *instanceRepository) ListBefore(ctx context.Context, date types.Date) ([]*model.StandupInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*model.StandupInstance
	for _, inst := range r.instances {
		if inst.TargetDate.Before(date) {
			result = append(result, inst.Copy())
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TargetDate < result[j].TargetDate
	})
	return result, nil
}

func (r *instanceRepository) Delete(ctx context.Context, id model.InstanceID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.instances[id]
	if !ok {
		return nil
	}

	delete(r.byDate, teamDateKey{teamID: inst.TeamID, date: inst.TargetDate})
	delete(r.instances, id)

	r.answer.deleteInstance(id)
	r.digest.deleteInstance(id)
	r.participation.deleteInstance(id)
	return nil
}
