package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/huddle/pkg/domain/model"
	"github.com/secmon-lab/huddle/pkg/domain/types"
)

// answerKey is the uniqueness key of an answer within an instance
type answerKey struct {
	memberID      types.MemberID
	questionIndex int
}

type answerRepository struct {
	mu      sync.RWMutex
	answers map[model.InstanceID]map[answerKey]*model.Answer
}

func newAnswerRepository() *answerRepository {
	return &answerRepository{
		answers: make(map[model.InstanceID]map[answerKey]*model.Answer),
	}
}

func (r *answerRepository) Upsert(ctx context.Context, answer *model.Answer) error {
	if answer == nil {
		return goerr.New("answer is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	bucket, ok := r.answers[answer.InstanceID]
	if !ok {
		bucket = make(map[answerKey]*model.Answer)
		r.answers[answer.InstanceID] = bucket
	}

	copied := *answer
	copied.SubmittedAt = answer.SubmittedAt.UTC()
	bucket[answerKey{memberID: answer.MemberID, questionIndex: answer.QuestionIndex}] = &copied
	return nil
}

func (r *answerRepository) List(ctx context.Context, id model.InstanceID) ([]*model.Answer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bucket := r.answers[id]
	result := make([]*model.Answer, 0, len(bucket))
	for _, a := range bucket {
		copied := *a
		result = append(result, &copied)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].MemberID != result[j].MemberID {
			return result[i].MemberID < result[j].MemberID
		}
		return result[i].QuestionIndex < result[j].QuestionIndex
	})
	return result, nil
}

func (r *answerRepository) ListRespondents(ctx context.Context, id model.InstanceID) ([]types.MemberID, error) {
	answers, err := r.List(ctx, id)
	if err != nil {
		return nil, err
	}
	return model.DistinctMembers(answers), nil
}

func (r *answerRepository) deleteInstance(id model.InstanceID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.answers, id)
}
