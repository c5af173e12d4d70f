package rdb

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/huddle/pkg/domain/model"
	"github.com/secmon-lab/huddle/pkg/domain/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type answerRepository struct {
	db *gorm.DB
}

func (r *answerRepository) Upsert(ctx context.Context, answer *model.Answer) error {
	if answer == nil {
		return goerr.New("answer is nil")
	}

	row := &answerRow{
		InstanceID:    answer.InstanceID.String(),
		MemberID:      answer.MemberID.String(),
		QuestionIndex: answer.QuestionIndex,
		Text:          answer.Text,
		SubmittedAt:   answer.SubmittedAt.UTC(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "instance_id"}, {Name: "member_id"}, {Name: "question_index"}},
		DoUpdates: clause.AssignmentColumns([]string{"text", "submitted_at"}),
	}).Create(row).Error
	if err != nil {
		return goerr.Wrap(err, "failed to upsert answer",
			goerr.V(model.InstanceIDKey, answer.InstanceID),
			goerr.V(model.MemberIDKey, answer.MemberID),
			goerr.V(model.QuestionIndexKey, answer.QuestionIndex))
	}
	return nil
}

func (r *answerRepository) List(ctx context.Context, id model.InstanceID) ([]*model.Answer, error) {
	var rows []answerRow
	err := r.db.WithContext(ctx).
		Where("instance_id = ?", id.String()).
		Order("member_id").Order("question_index").
		Find(&rows).Error
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list answers", goerr.V(model.InstanceIDKey, id))
	}

	answers := make([]*model.Answer, 0, len(rows))
	for _, row := range rows {
		answers = append(answers, &model.Answer{
			InstanceID:    model.InstanceID(row.InstanceID),
			MemberID:      types.MemberID(row.MemberID),
			QuestionIndex: row.QuestionIndex,
			Text:          row.Text,
			SubmittedAt:   row.SubmittedAt.UTC(),
		})
	}
	return answers, nil
}

func (r *answerRepository) ListRespondents(ctx context.Context, id model.InstanceID) ([]types.MemberID, error) {
	var members []string
	err := r.db.WithContext(ctx).Model(&answerRow{}).
		Where("instance_id = ?", id.String()).
		Distinct("member_id").Order("member_id").
		Pluck("member_id", &members).Error
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list respondents", goerr.V(model.InstanceIDKey, id))
	}

	ids := make([]types.MemberID, len(members))
	for i, m := range members {
		ids[i] = types.MemberID(m)
	}
	return ids, nil
}
