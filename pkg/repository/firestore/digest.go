package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/huddle/pkg/domain/model"
	"github.com/secmon-lab/huddle/pkg/domain/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type digestRepository struct {
	client *firestore.Client
	names  *collectionNames
}

type digestDoc struct {
	InstanceID string    `firestore:"instance_id"`
	ChannelID  string    `firestore:"channel_id"`
	MessageID  string    `firestore:"message_id"`
	PostedAt   time.Time `firestore:"posted_at"`
}

func (r *digestRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(r.names.name(collectionDigests))
}

func (r *digestRepository) TryCreate(ctx context.Context, rec *model.DigestRecord) (bool, error) {
	if rec == nil {
		return false, goerr.New("digest record is nil")
	}

	doc := &digestDoc{
		InstanceID: rec.InstanceID.String(),
		ChannelID:  rec.ChannelID,
		MessageID:  rec.MessageID,
		PostedAt:   rec.PostedAt.UTC(),
	}
	if _, err := r.collection().Doc(rec.InstanceID.String()).Create(ctx, doc); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to create digest record", goerr.V(model.InstanceIDKey, rec.InstanceID))
	}
	return true, nil
}

func (r *digestRepository) Get(ctx context.Context, id model.InstanceID) (*model.DigestRecord, error) {
	doc, err := r.collection().Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get digest record", goerr.V(model.InstanceIDKey, id))
	}

	var d digestDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to decode digest record", goerr.V(model.InstanceIDKey, id))
	}
	return &model.DigestRecord{
		InstanceID: model.InstanceID(d.InstanceID),
		ChannelID:  d.ChannelID,
		MessageID:  d.MessageID,
		PostedAt:   d.PostedAt.UTC(),
	}, nil
}

type participationRepository struct {
	client *firestore.Client
	names  *collectionNames
}

type participationDoc struct {
	InstanceID       string    `firestore:"instance_id"`
	AnswersCount     int       `firestore:"answers_count"`
	RespondedCount   int       `firestore:"responded_count"`
	MembersMissing   int       `firestore:"members_missing"`
	MissingMemberIDs []string  `firestore:"missing_member_ids"`
	CreatedAt        time.Time `firestore:"created_at"`
}

func (r *participationRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(r.names.name(collectionParticipations))
}

func (r *participationRepository) Put(ctx context.Context, snap *model.ParticipationSnapshot) (bool, error) {
	if snap == nil {
		return false, goerr.New("participation snapshot is nil")
	}

	missing := make([]string, len(snap.MissingMemberIDs))
	for i, id := range snap.MissingMemberIDs {
		missing[i] = id.String()
	}
	doc := &participationDoc{
		InstanceID:       snap.InstanceID.String(),
		AnswersCount:     snap.AnswersCount,
		RespondedCount:   snap.RespondedCount,
		MembersMissing:   snap.MembersMissing,
		MissingMemberIDs: missing,
		CreatedAt:        snap.CreatedAt.UTC(),
	}

	if _, err := r.collection().Doc(snap.InstanceID.String()).Create(ctx, doc); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to create participation snapshot", goerr.V(model.InstanceIDKey, snap.InstanceID))
	}
	return true, nil
}

func (r *participationRepository) Get(ctx context.Context, id model.InstanceID) (*model.ParticipationSnapshot, error) {
	doc, err := r.collection().Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get participation snapshot", goerr.V(model.InstanceIDKey, id))
	}

	var d participationDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to decode participation snapshot", goerr.V(model.InstanceIDKey, id))
	}

	missing := make([]types.MemberID, len(d.MissingMemberIDs))
	for i, m := range d.MissingMemberIDs {
		missing[i] = types.MemberID(m)
	}
	return &model.ParticipationSnapshot{
		InstanceID:       model.InstanceID(d.InstanceID),
		AnswersCount:     d.AnswersCount,
		RespondedCount:   d.RespondedCount,
		MembersMissing:   d.MembersMissing,
		MissingMemberIDs: missing,
		CreatedAt:        d.CreatedAt.UTC(),
	}, nil
}
