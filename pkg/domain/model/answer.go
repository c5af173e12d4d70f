package model

import (
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/huddle/pkg/domain/types"
)

// Answer is one member's reply to one question of an instance.
// (InstanceID, MemberID, QuestionIndex) is unique; a later write overwrites.
type Answer struct {
	InstanceID    InstanceID
	MemberID      types.MemberID
	QuestionIndex int
	Text          string
	SubmittedAt   time.Time
}

// AnswerInput is a single submitted reply before it is bound to an instance
type AnswerInput struct {
	QuestionIndex int    `json:"question_index"`
	Text          string `json:"text"`
}

// Validate checks the input against the number of questions in the snapshot
func (a AnswerInput) Validate(questionCount int) error {
	if a.QuestionIndex < 0 || a.QuestionIndex >= questionCount {
		return goerr.Wrap(ErrQuestionIndexOutOfRange, "question index out of range",
			goerr.V(QuestionIndexKey, a.QuestionIndex), goerr.V("question_count", questionCount))
	}
	if strings.TrimSpace(a.Text) == "" {
		return goerr.Wrap(ErrInvalidAnswer, "answer text cannot be empty",
			goerr.V(QuestionIndexKey, a.QuestionIndex))
	}
	return nil
}

// Participation summarizes who answered among the snapshot's participants
type Participation struct {
	Responded []Member
	Missing   []Member
	// AnswersCount counts all answer rows, including rows from non-participants
	AnswersCount int
}

// ResponseRate is the responded fraction of participants.
// Zero participants is treated as full response.
func (p Participation) ResponseRate() float64 {
	total := len(p.Responded) + len(p.Missing)
	if total == 0 {
		return 1
	}
	return float64(len(p.Responded)) / float64(total)
}

// AllResponded reports whether no participant is missing
func (p Participation) AllResponded() bool {
	return len(p.Missing) == 0
}

// ComputeParticipation splits participants by whether they are among respondents.
// Respondents outside the participant list do not affect the result.
func ComputeParticipation(participants []Member, respondents []types.MemberID, answersCount int) Participation {
	answered := make(map[types.MemberID]bool, len(respondents))
	for _, id := range respondents {
		answered[id] = true
	}

	p := Participation{AnswersCount: answersCount}
	for _, m := range participants {
		if answered[m.ID] {
			p.Responded = append(p.Responded, m)
		} else {
			p.Missing = append(p.Missing, m)
		}
	}
	return p
}

// DistinctMembers returns the distinct member IDs of answers in first-seen order
func DistinctMembers(answers []*Answer) []types.MemberID {
	seen := make(map[types.MemberID]bool)
	var ids []types.MemberID
	for _, a := range answers {
		if !seen[a.MemberID] {
			seen[a.MemberID] = true
			ids = append(ids, a.MemberID)
		}
	}
	return ids
}
