package firestore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/huddle/pkg/domain/model"
	"github.com/secmon-lab/huddle/pkg/domain/types"
	"google.golang.org/api/iterator"
)

type answerRepository struct {
	client *firestore.Client
	names  *collectionNames
}

type answerDoc struct {
	MemberID      string    `firestore:"member_id"`
	QuestionIndex int       `firestore:"question_index"`
	Text          string    `firestore:"text"`
	SubmittedAt   time.Time `firestore:"submitted_at"`
}

func (r *answerRepository) collection(id model.InstanceID) *firestore.CollectionRef {
	return r.client.Collection(r.names.name(collectionInstances)).Doc(id.String()).Collection(collectionAnswers)
}

func answerDocID(memberID types.MemberID, questionIndex int) string {
	return fmt.Sprintf("%s_%d", memberID, questionIndex)
}

func (r *answerRepository) Upsert(ctx context.Context, answer *model.Answer) error {
	if answer == nil {
		return goerr.New("answer is nil")
	}

	doc := &answerDoc{
		MemberID:      answer.MemberID.String(),
		QuestionIndex: answer.QuestionIndex,
		Text:          answer.Text,
		SubmittedAt:   answer.SubmittedAt.UTC(),
	}
	ref := r.collection(answer.InstanceID).Doc(answerDocID(answer.MemberID, answer.QuestionIndex))
	if _, err := ref.Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to upsert answer",
			goerr.V(model.InstanceIDKey, answer.InstanceID),
			goerr.V(model.MemberIDKey, answer.MemberID),
			goerr.V(model.QuestionIndexKey, answer.QuestionIndex))
	}
	return nil
}

func (r *answerRepository) List(ctx context.Context, id model.InstanceID) ([]*model.Answer, error) {
	iter := r.collection(id).Documents(ctx)
	defer iter.Stop()

	var answers []*model.Answer
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate answers", goerr.V(model.InstanceIDKey, id))
		}

		var d answerDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to decode answer", goerr.V("doc_id", doc.Ref.ID))
		}
		answers = append(answers, &model.Answer{
			InstanceID:    id,
			MemberID:      types.MemberID(d.MemberID),
			QuestionIndex: d.QuestionIndex,
			Text:          d.Text,
			SubmittedAt:   d.SubmittedAt.UTC(),
		})
	}

	sort.Slice(answers, func(i, j int) bool {
		if answers[i].MemberID != answers[j].MemberID {
			return answers[i].MemberID < answers[j].MemberID
		}
		return answers[i].QuestionIndex < answers[j].QuestionIndex
	})
	return answers, nil
}

func (r *answerRepository) ListRespondents(ctx context.Context, id model.InstanceID) ([]types.MemberID, error) {
	answers, err := r.List(ctx, id)
	if err != nil {
		return nil, err
	}
	return model.DistinctMembers(answers), nil
}
