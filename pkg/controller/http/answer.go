package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/huddle/pkg/domain/model"
	"github.com/secmon-lab/huddle/pkg/domain/types"
	"github.com/secmon-lab/huddle/pkg/usecase"
	"github.com/secmon-lab/huddle/pkg/utils/errutil"
)

// maxAnswerBodySize bounds the request body of an answer submission
const maxAnswerBodySize = 1 << 20

// AnswerUseCase records submitted answers
type AnswerUseCase interface {
	RecordAnswer(ctx context.Context, id model.InstanceID, memberID types.MemberID, inputs []model.AnswerInput) (usecase.RecordResult, error)
}

type answerRequest struct {
	MemberID string              `json:"member_id"`
	Answers  []model.AnswerInput `json:"answers"`
}

type answerResponse struct {
	Accepted  bool `json:"accepted"`
	Completed bool `json:"completed"`
}

func answerHandler(uc AnswerUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		instanceID := model.InstanceID(chi.URLParam(r, "instanceID"))

		body, err := io.ReadAll(io.LimitReader(r.Body, maxAnswerBodySize))
		if err != nil {
			errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to read request body"), http.StatusBadRequest)
			return
		}

		var req answerRequest
		if err := json.Unmarshal(body, &req); err != nil {
			errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
			return
		}

		result, err := uc.RecordAnswer(ctx, instanceID, types.MemberID(req.MemberID), req.Answers)
		if err != nil {
			errutil.HandleHTTP(ctx, w, err, answerErrorStatus(err))
			return
		}

		status := http.StatusOK
		if !result.Accepted {
			status = http.StatusConflict
		}
		writeJSON(w, status, answerResponse{
			Accepted:  result.Accepted,
			Completed: result.Completed,
		})
	}
}

func answerErrorStatus(err error) int {
	switch {
	case errors.Is(err, usecase.ErrInstanceNotFound):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrNoAnswers),
		errors.Is(err, model.ErrInvalidAnswer),
		errors.Is(err, model.ErrQuestionIndexOutOfRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
