package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/huddle/pkg/domain/interfaces"
	"github.com/secmon-lab/huddle/pkg/domain/model"
	"github.com/secmon-lab/huddle/pkg/domain/types"
	"github.com/secmon-lab/huddle/pkg/utils/clock"
	"github.com/secmon-lab/huddle/pkg/utils/errutil"
	"github.com/secmon-lab/huddle/pkg/utils/logging"
	"github.com/secmon-lab/huddle/pkg/utils/metrics"
)

type MatchResult struct {
	Processed int
	Created   int
	Skipped   int
	Errors    int
}

// MatcherUseCase creates the day's pending instance for every team whose
// scheduled time has come
type MatcherUseCase struct {
	repo      interfaces.Repository
	lifecycle *LifecycleUseCase
	metrics   *metrics.Metrics
	config    Config
}

func NewMatcherUseCase(repo interfaces.Repository, lifecycle *LifecycleUseCase, m *metrics.Metrics, cfg Config) *MatcherUseCase {
	return &MatcherUseCase{
		repo:      repo,
		lifecycle: lifecycle,
		metrics:   m,
		config:    cfg,
	}
}

type matchOutcome string

const (
	matchNoMatch matchOutcome = "no_match"
	matchCreated matchOutcome = "created"
	matchSkipped matchOutcome = "skipped"
	matchError   matchOutcome = "error"
)

// RunOnce evaluates every active configuration at now
func (uc *MatcherUseCase) RunOnce(ctx context.Context, now time.Time) (MatchResult, error) {
	configs, err := uc.repo.StandupConfig().ListActive(ctx)
	if err != nil {
		return MatchResult{}, goerr.Wrap(err, "failed to list active standup configs")
	}

	var result MatchResult
	for _, cfg := range configs {
		result.Processed++

		outcome, err := uc.matchTeam(ctx, cfg, now)
		if err != nil {
			errutil.Handle(ctx, err, "failed to match team")
			outcome = matchError
		}
		uc.metrics.MatcherOutcome(string(outcome))

		switch outcome {
		case matchCreated:
			result.Created++
		case matchSkipped:
			result.Skipped++
		case matchError:
			result.Errors++
		}
	}

	logging.From(ctx).Info("matcher finished",
		"processed", result.Processed,
		"created", result.Created,
		"skipped", result.Skipped,
		"errors", result.Errors,
	)
	return result, nil
}

func (uc *MatcherUseCase) matchTeam(ctx context.Context, cfg *model.StandupConfig, now time.Time) (matchOutcome, error) {
	if err := cfg.Validate(); err != nil {
		return matchError, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return matchError, goerr.Wrap(model.ErrInvalidConfig, err.Error(), goerr.V(model.TeamIDKey, cfg.TeamID))
	}

	localNow := clock.In(now, loc)
	if !cfg.RunsOn(localNow.Weekday()) {
		return matchNoMatch, nil
	}
	scheduled, err := cfg.ScheduledAt(localNow)
	if err != nil {
		return matchError, goerr.Wrap(model.ErrInvalidConfig, err.Error(), goerr.V(model.TeamIDKey, cfg.TeamID))
	}
	if d := localNow.Sub(scheduled).Abs(); d > uc.config.MatchTolerance {
		return matchNoMatch, nil
	}

	date := types.DateOf(localNow)
	existing, err := uc.repo.Instance().GetByTeamDate(ctx, cfg.TeamID, date)
	if err != nil {
		return matchError, goerr.Wrap(err, "failed to look up instance",
			goerr.V(model.TeamIDKey, cfg.TeamID), goerr.V("date", date))
	}
	if existing != nil {
		// An earlier run may have created it and failed to schedule the start
		if existing.State == types.StandupStatePending {
			if err := uc.lifecycle.ScheduleStart(ctx, existing, now); err != nil {
				return matchError, err
			}
		}
		return matchSkipped, nil
	}

	inst := model.NewStandupInstance(cfg, date, now)
	if err := uc.repo.Instance().Create(ctx, inst); err != nil {
		if errors.Is(err, interfaces.ErrAlreadyExists) {
			logging.From(ctx).Debug("instance created concurrently",
				"team_id", cfg.TeamID, "date", date)
			return matchSkipped, nil
		}
		return matchError, goerr.Wrap(err, "failed to create instance",
			goerr.V(model.TeamIDKey, cfg.TeamID), goerr.V("date", date))
	}

	logging.From(ctx).Info("standup instance created",
		"instance_id", inst.ID, "team_id", inst.TeamID, "date", date)

	if err := uc.lifecycle.ScheduleStart(ctx, inst, now); err != nil {
		return matchError, err
	}
	return matchCreated, nil
}
