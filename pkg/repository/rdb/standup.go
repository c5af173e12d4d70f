package rdb

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/huddle/pkg/domain/interfaces"
	"github.com/secmon-lab/huddle/pkg/domain/model"
	"github.com/secmon-lab/huddle/pkg/domain/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type standupConfigRepository struct {
	db *gorm.DB
}

func (r *standupConfigRepository) Put(ctx context.Context, cfg *model.StandupConfig) error {
	if cfg == nil {
		return goerr.New("config is nil")
	}

	raw, err := json.Marshal(cfg)
	if err != nil {
		return goerr.Wrap(err, "failed to encode standup config", goerr.V(model.TeamIDKey, cfg.TeamID))
	}

	row := &configRow{TeamID: cfg.TeamID.String(), Active: cfg.Active, Data: string(raw)}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "team_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"active", "data"}),
	}).Create(row).Error
	if err != nil {
		return goerr.Wrap(err, "failed to put standup config", goerr.V(model.TeamIDKey, cfg.TeamID))
	}
	return nil
}

func decodeConfig(row *configRow) (*model.StandupConfig, error) {
	var cfg model.StandupConfig
	if err := json.Unmarshal([]byte(row.Data), &cfg); err != nil {
		return nil, goerr.Wrap(err, "failed to decode standup config", goerr.V(model.TeamIDKey, row.TeamID))
	}
	return &cfg, nil
}

func (r *standupConfigRepository) Get(ctx context.Context, teamID types.TeamID) (*model.StandupConfig, error) {
	var row configRow
	if err := r.db.WithContext(ctx).First(&row, "team_id = ?", teamID.String()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "standup config not found", goerr.V(model.TeamIDKey, teamID))
		}
		return nil, goerr.Wrap(err, "failed to get standup config", goerr.V(model.TeamIDKey, teamID))
	}
	return decodeConfig(&row)
}

func (r *standupConfigRepository) ListActive(ctx context.Context) ([]*model.StandupConfig, error) {
	var rows []configRow
	if err := r.db.WithContext(ctx).Where("active = ?", true).Order("team_id").Find(&rows).Error; err != nil {
		return nil, goerr.Wrap(err, "failed to list standup configs")
	}

	configs := make([]*model.StandupConfig, 0, len(rows))
	for i := range rows {
		cfg, err := decodeConfig(&rows[i])
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

type instanceRepository struct {
	db *gorm.DB
}

func (r *instanceRepository) Create(ctx context.Context, inst *model.StandupInstance) error {
	if inst == nil {
		return goerr.New("instance is nil")
	}

	row, err := toInstanceRow(inst)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(row)
	if result.Error != nil {
		return goerr.Wrap(result.Error, "failed to create instance", goerr.V(model.InstanceIDKey, inst.ID))
	}
	if result.RowsAffected == 0 {
		return goerr.Wrap(interfaces.ErrAlreadyExists, "instance already exists for team and date",
			goerr.V(model.TeamIDKey, inst.TeamID), goerr.V("target_date", inst.TargetDate))
	}
	return nil
}

func (r *instanceRepository) Get(ctx context.Context, id model.InstanceID) (*model.StandupInstance, error) {
	var row instanceRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id.String()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "instance not found", goerr.V(model.InstanceIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to get instance", goerr.V(model.InstanceIDKey, id))
	}
	return row.toModel()
}

func (r *instanceRepository) GetByTeamDate(ctx context.Context, teamID types.TeamID, date types.Date) (*model.StandupInstance, error) {
	var rows []instanceRow
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND target_date = ?", teamID.String(), date.String()).
		Limit(1).Find(&rows).Error
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get instance",
			goerr.V(model.TeamIDKey, teamID), goerr.V("target_date", date))
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].toModel()
}

func (r *instanceRepository) UpdateState(ctx context.Context, id model.InstanceID, from, to types.StandupState) error {
	if !from.CanTransitionTo(to) {
		return goerr.Wrap(interfaces.ErrStateConflict, "transition is not allowed",
			goerr.V(model.InstanceIDKey, id), goerr.V("from", from), goerr.V("to", to))
	}

	result := r.db.WithContext(ctx).Model(&instanceRow{}).
		Where("id = ? AND state = ?", id.String(), from.String()).
		Updates(map[string]any{"state": to.String(), "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return goerr.Wrap(result.Error, "failed to update instance state", goerr.V(model.InstanceIDKey, id))
	}
	if result.RowsAffected == 1 {
		return nil
	}

	current, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	return goerr.Wrap(interfaces.ErrStateConflict, "instance is not in expected state",
		goerr.V(model.InstanceIDKey, id), goerr.V("expected", from), goerr.V("actual", current.State))
}

func (r *instanceRepository) find(q *gorm.DB) ([]*model.StandupInstance, error) {
	var rows []instanceRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, goerr.Wrap(err, "failed to list instances")
	}

	result := make([]*model.StandupInstance, 0, len(rows))
	for i := range rows {
		inst, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		result = append(result, inst)
	}
	return result, nil
}

func (r *instanceRepository) ListByState(ctx context.Context, state types.StandupState, createdBefore time.Time) ([]*model.StandupInstance, error) {
	return r.find(r.db.WithContext(ctx).
		Where("state = ? AND created_at < ?", state.String(), createdBefore.UTC()).
		Order("created_at"))
}

func (r *instanceRepository) ListBefore(ctx context.Context, date types.Date) ([]*model.StandupInstance, error) {
	return r.find(r.db.WithContext(ctx).
		Where("target_date < ?", date.String()).
		Order("target_date"))
}

func (r *instanceRepository) Delete(ctx context.Context, id model.InstanceID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range []any{&answerRow{}, &digestRow{}, &participationRow{}} {
			if err := tx.Where("instance_id = ?", id.String()).Delete(row).Error; err != nil {
				return err
			}
		}
		return tx.Where("id = ?", id.String()).Delete(&instanceRow{}).Error
	})
	if err != nil {
		return goerr.Wrap(err, "failed to delete instance", goerr.V(model.InstanceIDKey, id))
	}
	return nil
}
