package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/huddle/pkg/domain/interfaces"
	"github.com/secmon-lab/huddle/pkg/domain/model"
	"github.com/secmon-lab/huddle/pkg/domain/types"
	"github.com/secmon-lab/huddle/pkg/utils/errutil"
	"github.com/secmon-lab/huddle/pkg/utils/logging"
	"github.com/secmon-lab/huddle/pkg/utils/metrics"
)

// CycleCompleter closes a collecting instance idempotently
type CycleCompleter interface {
	CompleteCycle(ctx context.Context, id model.InstanceID) (CompleteResult, error)
}

type SweepResult struct {
	Scanned   int
	Completed int
	Skipped   int
	Errors    int
}

// SweepUseCase finds collecting instances whose completion trigger was lost.
// Its eligibility rule is intentionally looser than the lifecycle policy.
type SweepUseCase struct {
	repo      interfaces.Repository
	completer CycleCompleter
	metrics   *metrics.Metrics
	config    Config
}

func NewSweepUseCase(repo interfaces.Repository, completer CycleCompleter, m *metrics.Metrics, cfg Config) *SweepUseCase {
	return &SweepUseCase{
		repo:      repo,
		completer: completer,
		metrics:   m,
		config:    cfg,
	}
}

// RunOnce scans instances collecting for longer than the grace period
func (uc *SweepUseCase) RunOnce(ctx context.Context, now time.Time) (SweepResult, error) {
	stuck, err := uc.repo.Instance().ListByState(ctx, types.StandupStateCollecting, now.Add(-uc.config.SweepGrace))
	if err != nil {
		return SweepResult{}, goerr.Wrap(err, "failed to list collecting instances")
	}

	var result SweepResult
	for _, inst := range stuck {
		result.Scanned++

		outcome, err := uc.sweepInstance(ctx, inst, now)
		if err != nil {
			errutil.Handle(ctx, err, "failed to sweep instance")
			outcome = "error"
		}
		uc.metrics.SweepOutcome(outcome)

		switch outcome {
		case "completed":
			result.Completed++
		case "skipped":
			result.Skipped++
		case "error":
			result.Errors++
		}
	}

	logging.From(ctx).Info("sweep finished",
		"scanned", result.Scanned,
		"completed", result.Completed,
		"skipped", result.Skipped,
		"errors", result.Errors,
	)
	return result, nil
}

func (uc *SweepUseCase) sweepInstance(ctx context.Context, inst *model.StandupInstance, now time.Time) (string, error) {
	digest, err := uc.repo.Digest().Get(ctx, inst.ID)
	if err != nil {
		return "", goerr.Wrap(err, "failed to get digest", goerr.V(model.InstanceIDKey, inst.ID))
	}

	// A digest on a collecting instance means completion crashed halfway;
	// CompleteCycle repairs it without posting.
	if digest == nil {
		respondents, err := uc.repo.Answer().ListRespondents(ctx, inst.ID)
		if err != nil {
			return "", goerr.Wrap(err, "failed to list respondents", goerr.V(model.InstanceIDKey, inst.ID))
		}
		p := model.ComputeParticipation(inst.Participants(), respondents, 0)
		if !uc.eligible(inst, p, now) {
			logging.From(ctx).Debug("stuck instance not yet eligible",
				"instance_id", inst.ID, "rate", p.ResponseRate())
			return "skipped", nil
		}
	}

	result, err := uc.completer.CompleteCycle(ctx, inst.ID)
	if err != nil {
		return "", err
	}
	if result.Outcome != OutcomeDone {
		return "skipped", nil
	}

	logging.From(ctx).Info("sweep completed instance",
		"instance_id", inst.ID, "team_id", inst.TeamID, "repaired", result.Repaired)
	return "completed", nil
}

func (uc *SweepUseCase) eligible(inst *model.StandupInstance, p model.Participation, now time.Time) bool {
	rate := p.ResponseRate()
	if rate >= 1 {
		return true
	}
	if rate >= uc.config.SweepMinResponseRate {
		return true
	}
	return inst.Elapsed(now) > uc.config.SweepHardCeiling
}
