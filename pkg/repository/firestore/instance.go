package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/huddle/pkg/domain/interfaces"
	"github.com/secmon-lab/huddle/pkg/domain/model"
	"github.com/secmon-lab/huddle/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type instanceRepository struct {
	client *firestore.Client
	names  *collectionNames
}

type instanceDoc struct {
	ID             string              `firestore:"id"`
	TeamID         string              `firestore:"team_id"`
	TargetDate     string              `firestore:"target_date"`
	ConfigSnapshot model.StandupConfig `firestore:"config_snapshot"`
	State          string              `firestore:"state"`
	CreatedAt      time.Time           `firestore:"created_at"`
	UpdatedAt      time.Time           `firestore:"updated_at"`
}

// instanceKeyDoc reserves a (team, date) pair for a single instance
type instanceKeyDoc struct {
	InstanceID string `firestore:"instance_id"`
}

func toInstanceDoc(inst *model.StandupInstance) *instanceDoc {
	return &instanceDoc{
		ID:             inst.ID.String(),
		TeamID:         inst.TeamID.String(),
		TargetDate:     inst.TargetDate.String(),
		ConfigSnapshot: inst.ConfigSnapshot,
		State:          inst.State.String(),
		CreatedAt:      inst.CreatedAt.UTC(),
		UpdatedAt:      inst.UpdatedAt.UTC(),
	}
}

func (d *instanceDoc) toModel() *model.StandupInstance {
	return &model.StandupInstance{
		ID:             model.InstanceID(d.ID),
		TeamID:         types.TeamID(d.TeamID),
		TargetDate:     types.Date(d.TargetDate),
		ConfigSnapshot: d.ConfigSnapshot,
		State:          types.StandupState(d.State),
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedAt:      d.UpdatedAt.UTC(),
	}
}

func instanceKeyID(teamID types.TeamID, date types.Date) string {
	return teamID.String() + "_" + date.String()
}

func (r *instanceRepository) instances() *firestore.CollectionRef {
	return r.client.Collection(r.names.name(collectionInstances))
}

func (r *instanceRepository) keys() *firestore.CollectionRef {
	return r.client.Collection(r.names.name(collectionInstanceKeys))
}

func (r *instanceRepository) Create(ctx context.Context, inst *model.StandupInstance) error {
	if inst == nil {
		return goerr.New("instance is nil")
	}

	keyRef := r.keys().Doc(instanceKeyID(inst.TeamID, inst.TargetDate))
	instRef := r.instances().Doc(inst.ID.String())

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(keyRef); err == nil {
			return interfaces.ErrAlreadyExists
		} else if status.Code(err) != codes.NotFound {
			return goerr.Wrap(err, "failed to read instance key")
		}

		if err := tx.Create(keyRef, &instanceKeyDoc{InstanceID: inst.ID.String()}); err != nil {
			return goerr.Wrap(err, "failed to reserve instance key")
		}
		return tx.Create(instRef, toInstanceDoc(inst))
	})
	if err != nil {
		if errors.Is(err, interfaces.ErrAlreadyExists) || status.Code(err) == codes.AlreadyExists {
			return goerr.Wrap(interfaces.ErrAlreadyExists, "instance already exists for team and date",
				goerr.V(model.TeamIDKey, inst.TeamID), goerr.V("target_date", inst.TargetDate))
		}
		return goerr.Wrap(err, "failed to create instance", goerr.V(model.InstanceIDKey, inst.ID))
	}
	return nil
}

func (r *instanceRepository) Get(ctx context.Context, id model.InstanceID) (*model.StandupInstance, error) {
	doc, err := r.instances().Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "instance not found", goerr.V(model.InstanceIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to get instance", goerr.V(model.InstanceIDKey, id))
	}

	var d instanceDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to decode instance", goerr.V(model.InstanceIDKey, id))
	}
	return d.toModel(), nil
}

func (r *instanceRepository) GetByTeamDate(ctx context.Context, teamID types.TeamID, date types.Date) (*model.StandupInstance, error) {
	doc, err := r.keys().Doc(instanceKeyID(teamID, date)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get instance key",
			goerr.V(model.TeamIDKey, teamID), goerr.V("target_date", date))
	}

	var key instanceKeyDoc
	if err := doc.DataTo(&key); err != nil {
		return nil, goerr.Wrap(err, "failed to decode instance key", goerr.V("doc_id", doc.Ref.ID))
	}
	return r.Get(ctx, model.InstanceID(key.InstanceID))
}

func (r *instanceRepository) UpdateState(ctx context.Context, id model.InstanceID, from, to types.StandupState) error {
	if !from.CanTransitionTo(to) {
		return goerr.Wrap(interfaces.ErrStateConflict, "transition is not allowed",
			goerr.V(model.InstanceIDKey, id), goerr.V("from", from), goerr.V("to", to))
	}

	ref := r.instances().Doc(id.String())
	var actual string
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			return err
		}

		state, err := doc.DataAt("state")
		if err != nil {
			return goerr.Wrap(err, "failed to read state")
		}
		actual, _ = state.(string)
		if actual != from.String() {
			return interfaces.ErrStateConflict
		}

		return tx.Update(ref, []firestore.Update{
			{Path: "state", Value: to.String()},
			{Path: "updated_at", Value: time.Now().UTC()},
		})
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, interfaces.ErrStateConflict):
		return goerr.Wrap(interfaces.ErrStateConflict, "instance is not in expected state",
			goerr.V(model.InstanceIDKey, id), goerr.V("expected", from), goerr.V("actual", actual))
	case status.Code(err) == codes.NotFound:
		return goerr.Wrap(interfaces.ErrNotFound, "instance not found", goerr.V(model.InstanceIDKey, id))
	default:
		return goerr.Wrap(err, "failed to update instance state", goerr.V(model.InstanceIDKey, id))
	}
}

func (r *instanceRepository) list(ctx context.Context, q firestore.Query) ([]*model.StandupInstance, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	var result []*model.StandupInstance
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate instances")
		}

		var d instanceDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to decode instance", goerr.V("doc_id", doc.Ref.ID))
		}
		result = append(result, d.toModel())
	}
	return result, nil
}

// ListByState requires the (state, created_at) composite index, see the migrate command
func (r *instanceRepository) ListByState(ctx context.Context, state types.StandupState, createdBefore time.Time) ([]*model.StandupInstance, error) {
	q := r.instances().
		Where("state", "==", state.String()).
		Where("created_at", "<", createdBefore.UTC()).
		OrderBy("created_at", firestore.Asc)
	return r.list(ctx, q)
}

func (r *instanceRepository) ListBefore(ctx context.Context, date types.Date) ([]*model.StandupInstance, error) {
	q := r.instances().
		Where("target_date", "<", date.String()).
		OrderBy("target_date", firestore.Asc)
	return r.list(ctx, q)
}

func (r *instanceRepository) Delete(ctx context.Context, id model.InstanceID) error {
	inst, err := r.Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}

	instRef := r.instances().Doc(id.String())

	answers, err := instRef.Collection(collectionAnswers).DocumentRefs(ctx).GetAll()
	if err != nil {
		return goerr.Wrap(err, "failed to list answers for deletion", goerr.V(model.InstanceIDKey, id))
	}

	bw := r.client.BulkWriter(ctx)
	for _, ref := range answers {
		if _, err := bw.Delete(ref); err != nil {
			return goerr.Wrap(err, "failed to enqueue answer deletion", goerr.V(model.InstanceIDKey, id))
		}
	}
	refs := []*firestore.DocumentRef{
		r.client.Collection(r.names.name(collectionDigests)).Doc(id.String()),
		r.client.Collection(r.names.name(collectionParticipations)).Doc(id.String()),
		r.keys().Doc(instanceKeyID(inst.TeamID, inst.TargetDate)),
		instRef,
	}
	for _, ref := range refs {
		if _, err := bw.Delete(ref); err != nil {
			return goerr.Wrap(err, "failed to enqueue deletion",
				goerr.V(model.InstanceIDKey, id), goerr.V("path", ref.Path))
		}
	}
	bw.End()

	return nil
}
