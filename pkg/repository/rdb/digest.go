package rdb

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/huddle/pkg/domain/model"
	"github.com/secmon-lab/huddle/pkg/domain/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type digestRepository struct {
	db *gorm.DB
}

func (r *digestRepository) TryCreate(ctx context.Context, rec *model.DigestRecord) (bool, error) {
	if rec == nil {
		return false, goerr.New("digest record is nil")
	}

	row := &digestRow{
		InstanceID: rec.InstanceID.String(),
		ChannelID:  rec.ChannelID,
		MessageID:  rec.MessageID,
		PostedAt:   rec.PostedAt.UTC(),
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(row)
	if result.Error != nil {
		return false, goerr.Wrap(result.Error, "failed to create digest record", goerr.V(model.InstanceIDKey, rec.InstanceID))
	}
	return result.RowsAffected == 1, nil
}

func (r *digestRepository) Get(ctx context.Context, id model.InstanceID) (*model.DigestRecord, error) {
	var row digestRow
	if err := r.db.WithContext(ctx).First(&row, "instance_id = ?", id.String()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get digest record", goerr.V(model.InstanceIDKey, id))
	}
	return &model.DigestRecord{
		InstanceID: model.InstanceID(row.InstanceID),
		ChannelID:  row.ChannelID,
		MessageID:  row.MessageID,
		PostedAt:   row.PostedAt.UTC(),
	}, nil
}

type participationRepository struct {
	db *gorm.DB
}

func (r *participationRepository) Put(ctx context.Context, snap *model.ParticipationSnapshot) (bool, error) {
	if snap == nil {
		return false, goerr.New("participation snapshot is nil")
	}

	missing, err := json.Marshal(snap.MissingMemberIDs)
	if err != nil {
		return false, goerr.Wrap(err, "failed to encode missing members", goerr.V(model.InstanceIDKey, snap.InstanceID))
	}

	row := &participationRow{
		InstanceID:       snap.InstanceID.String(),
		AnswersCount:     snap.AnswersCount,
		RespondedCount:   snap.RespondedCount,
		MembersMissing:   snap.MembersMissing,
		MissingMemberIDs: string(missing),
		CreatedAt:        snap.CreatedAt.UTC(),
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(row)
	if result.Error != nil {
		return false, goerr.Wrap(result.Error, "failed to create participation snapshot", goerr.V(model.InstanceIDKey, snap.InstanceID))
	}
	return result.RowsAffected == 1, nil
}

func (r *participationRepository) Get(ctx context.Context, id model.InstanceID) (*model.ParticipationSnapshot, error) {
	var row participationRow
	if err := r.db.WithContext(ctx).First(&row, "instance_id = ?", id.String()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get participation snapshot", goerr.V(model.InstanceIDKey, id))
	}

	var missing []types.MemberID
	if row.MissingMemberIDs != "" {
		if err := json.Unmarshal([]byte(row.MissingMemberIDs), &missing); err != nil {
			return nil, goerr.Wrap(err, "failed to decode missing members", goerr.V(model.InstanceIDKey, id))
		}
	}
	return &model.ParticipationSnapshot{
		InstanceID:       model.InstanceID(row.InstanceID),
		AnswersCount:     row.AnswersCount,
		RespondedCount:   row.RespondedCount,
		MembersMissing:   row.MembersMissing,
		MissingMemberIDs: missing,
		CreatedAt:        row.CreatedAt.UTC(),
	}, nil
}

