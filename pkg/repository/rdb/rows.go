package rdb

import (
	"encoding/json"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/huddle/pkg/domain/model"
	"github.com/secmon-lab/huddle/pkg/domain/types"
)

type configRow struct {
	TeamID string `gorm:"primaryKey;size:64"`
	Active bool   `gorm:"index"`
	Data   string `gorm:"type:text;not null"`
}

func (configRow) TableName() string { return "standup_configs" }

type instanceRow struct {
	ID         string    `gorm:"primaryKey;size:64"`
	TeamID     string    `gorm:"size:64;not null;uniqueIndex:idx_instances_team_date"`
	TargetDate string    `gorm:"size:10;not null;uniqueIndex:idx_instances_team_date;index"`
	State      string    `gorm:"size:16;not null;index:idx_instances_state_created"`
	Snapshot   string    `gorm:"type:text;not null"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime:false;index:idx_instances_state_created"`
	UpdatedAt  time.Time `gorm:"not null;autoUpdateTime:false"`
}

func (instanceRow) TableName() string { return "standup_instances" }

type answerRow struct {
	InstanceID    string    `gorm:"primaryKey;size:64"`
	MemberID      string    `gorm:"primaryKey;size:64"`
	QuestionIndex int       `gorm:"primaryKey;autoIncrement:false"`
	Text          string    `gorm:"type:text;not null"`
	SubmittedAt   time.Time `gorm:"not null"`
}

func (answerRow) TableName() string { return "answers" }

type digestRow struct {
	InstanceID string `gorm:"primaryKey;size:64"`
	ChannelID  string
	MessageID  string
	PostedAt   time.Time
}

func (digestRow) TableName() string { return "digests" }

type participationRow struct {
	InstanceID       string `gorm:"primaryKey;size:64"`
	AnswersCount     int
	RespondedCount   int
	MembersMissing   int
	MissingMemberIDs string    `gorm:"type:text"`
	CreatedAt        time.Time `gorm:"autoCreateTime:false"`
}

func (participationRow) TableName() string { return "participations" }

type lockRow struct {
	Key       string `gorm:"column:lock_key;primaryKey;size:255"`
	Owner     string `gorm:"size:64;not null"`
	ExpiresAt time.Time
}

func (lockRow) TableName() string { return "locks" }

func toInstanceRow(inst *model.StandupInstance) (*instanceRow, error) {
	raw, err := json.Marshal(inst.ConfigSnapshot)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode config snapshot", goerr.V(model.InstanceIDKey, inst.ID))
	}
	return &instanceRow{
		ID:         inst.ID.String(),
		TeamID:     inst.TeamID.String(),
		TargetDate: inst.TargetDate.String(),
		State:      inst.State.String(),
		Snapshot:   string(raw),
		CreatedAt:  inst.CreatedAt.UTC(),
		UpdatedAt:  inst.UpdatedAt.UTC(),
	}, nil
}

func (r *instanceRow) toModel() (*model.StandupInstance, error) {
	var snap model.StandupConfig
	if err := json.Unmarshal([]byte(r.Snapshot), &snap); err != nil {
		return nil, goerr.Wrap(err, "failed to decode config snapshot", goerr.V(model.InstanceIDKey, r.ID))
	}
	return &model.StandupInstance{
		ID:             model.InstanceID(r.ID),
		TeamID:         types.TeamID(r.TeamID),
		TargetDate:     types.Date(r.TargetDate),
		ConfigSnapshot: snap,
		State:          types.StandupState(r.State),
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}, nil
}
