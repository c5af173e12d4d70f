package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/huddle/pkg/domain/interfaces"
	"github.com/secmon-lab/huddle/pkg/domain/model"
	"github.com/secmon-lab/huddle/pkg/domain/types"
	"github.com/secmon-lab/huddle/pkg/service/slack"
	"github.com/secmon-lab/huddle/pkg/utils/clock"
	"github.com/secmon-lab/huddle/pkg/utils/errutil"
	"github.com/secmon-lab/huddle/pkg/utils/logging"
	"github.com/secmon-lab/huddle/pkg/utils/metrics"
)

// Outcome tells whether a lifecycle step acted
type Outcome string

const (
	OutcomeDone          Outcome = "done"
	OutcomeNotApplicable Outcome = "not_applicable"
)

type StartResult struct {
	Outcome Outcome
}

type CompleteResult struct {
	Outcome Outcome
	// Repaired is set when a digest already existed and only the
	// transition and snapshot were finished
	Repaired bool
	// InProgress is set when another holder owns the completion lock
	InProgress bool
	MessageID  string
}

type RecordResult struct {
	Accepted  bool
	Completed bool
}

// LifecycleUseCase drives a single instance through pending, collecting and posted
type LifecycleUseCase struct {
	repo      interfaces.Repository
	scheduler interfaces.TaskScheduler
	slack     slack.Service
	clock     clock.Clock
	metrics   *metrics.Metrics
	config    Config
}

func NewLifecycleUseCase(repo interfaces.Repository, scheduler interfaces.TaskScheduler, slackSvc slack.Service, clk clock.Clock, m *metrics.Metrics, cfg Config) *LifecycleUseCase {
	return &LifecycleUseCase{
		repo:      repo,
		scheduler: scheduler,
		slack:     slackSvc,
		clock:     clk,
		metrics:   m,
		config:    cfg,
	}
}

// ScheduleStart asks the scheduler to announce the instance at the instant
func (uc *LifecycleUseCase) ScheduleStart(ctx context.Context, inst *model.StandupInstance, at time.Time) error {
	if err := uc.scheduler.Schedule(ctx, model.NewStartCollectionTask(inst, at)); err != nil {
		return goerr.Wrap(err, "failed to schedule start collection", goerr.V(model.InstanceIDKey, inst.ID))
	}
	return nil
}

// loadInstance returns nil without error when the instance no longer exists
func (uc *LifecycleUseCase) loadInstance(ctx context.Context, id model.InstanceID) (*model.StandupInstance, error) {
	inst, err := uc.repo.Instance().Get(ctx, id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			logging.From(ctx).Info("instance no longer exists", "instance_id", id)
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get instance", goerr.V(model.InstanceIDKey, id))
	}
	return inst, nil
}

func (uc *LifecycleUseCase) transition(ctx context.Context, inst *model.StandupInstance, from, to types.StandupState) (bool, error) {
	err := uc.repo.Instance().UpdateState(ctx, inst.ID, from, to)
	if errors.Is(err, interfaces.ErrStateConflict) {
		logging.From(ctx).Debug("state transition lost a race",
			"instance_id", inst.ID, "from", from, "to", to)
		return false, nil
	}
	if err != nil {
		return false, goerr.Wrap(err, "failed to update instance state",
			goerr.V(model.InstanceIDKey, inst.ID), goerr.V("from", from), goerr.V("to", to))
	}

	uc.metrics.Transition(from.String(), to.String())
	logging.From(ctx).Info("instance state changed",
		"instance_id", inst.ID, "team_id", inst.TeamID, "from", from, "to", to)
	return true, nil
}

// StartCollection announces a pending instance and arms its timeout and follow-ups
func (uc *LifecycleUseCase) StartCollection(ctx context.Context, id model.InstanceID) (StartResult, error) {
	inst, err := uc.loadInstance(ctx, id)
	if err != nil {
		return StartResult{}, err
	}
	if inst == nil || inst.State != types.StandupStatePending {
		return StartResult{Outcome: OutcomeNotApplicable}, nil
	}
	if err := inst.ConfigSnapshot.CheckSnapshotVersion(); err != nil {
		errutil.Handle(ctx, err, "refusing to start instance with unsupported snapshot")
		return StartResult{Outcome: OutcomeNotApplicable}, nil
	}

	blocks, text := buildPromptMessage(inst)
	if _, err := uc.slack.PostMessage(ctx, inst.ConfigSnapshot.ChannelID, blocks, text); err != nil {
		uc.metrics.NotificationFailure("prompt")
		return StartResult{}, goerr.Wrap(err, "failed to send standup prompt",
			goerr.V(model.InstanceIDKey, inst.ID), goerr.V(model.TeamIDKey, inst.TeamID))
	}

	moved, err := uc.transition(ctx, inst, types.StandupStatePending, types.StandupStateCollecting)
	if err != nil {
		return StartResult{}, err
	}
	if !moved {
		return StartResult{Outcome: OutcomeNotApplicable}, nil
	}

	// Failures here are recovered by the sweep
	if err := uc.scheduleCollectionTasks(ctx, inst); err != nil {
		errutil.Handle(ctx, err, "failed to schedule collection tasks")
	}

	// Nobody can answer, so the cycle is already eligible to close
	if len(inst.Participants()) == 0 {
		if _, err := uc.CompleteCycle(ctx, inst.ID); err != nil {
			errutil.Handle(ctx, err, "failed to complete cycle without participants")
		}
	}

	return StartResult{Outcome: OutcomeDone}, nil
}

func (uc *LifecycleUseCase) followupTasks(inst *model.StandupInstance) []*model.Task {
	fractions := uc.config.FollowupFractions
	tasks := make([]*model.Task, 0, len(fractions))
	for i, f := range fractions {
		kind := types.FollowupKindReminder
		if i == len(fractions)-1 {
			kind = types.FollowupKindTimeoutWarning
		}
		tasks = append(tasks, model.NewFollowupTask(inst, kind, f))
	}
	return tasks
}

func (uc *LifecycleUseCase) scheduleCollectionTasks(ctx context.Context, inst *model.StandupInstance) error {
	tasks := append([]*model.Task{model.NewTimeoutTask(inst)}, uc.followupTasks(inst)...)

	var errs []error
	for _, task := range tasks {
		if err := uc.scheduler.Schedule(ctx, task); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return goerr.Wrap(errors.Join(errs...), "failed to schedule some collection tasks",
			goerr.V(model.InstanceIDKey, inst.ID), goerr.V("failed", len(errs)))
	}
	return nil
}

// RecordAnswer stores a member's answers and closes the cycle once it is eligible
func (uc *LifecycleUseCase) RecordAnswer(ctx context.Context, id model.InstanceID, memberID types.MemberID, inputs []model.AnswerInput) (RecordResult, error) {
	if err := memberID.Validate(); err != nil {
		return RecordResult{}, goerr.Wrap(model.ErrInvalidAnswer, err.Error())
	}
	if len(inputs) == 0 {
		return RecordResult{}, goerr.Wrap(ErrNoAnswers, "at least one answer is required",
			goerr.V(model.InstanceIDKey, id), goerr.V(model.MemberIDKey, memberID))
	}

	inst, err := uc.loadInstance(ctx, id)
	if err != nil {
		return RecordResult{}, err
	}
	if inst == nil {
		return RecordResult{}, goerr.Wrap(ErrInstanceNotFound, "cannot record answer", goerr.V(model.InstanceIDKey, id))
	}
	if inst.State != types.StandupStateCollecting {
		return RecordResult{Accepted: false}, nil
	}

	questionCount := len(inst.ConfigSnapshot.Questions)
	for _, in := range inputs {
		if err := in.Validate(questionCount); err != nil {
			return RecordResult{}, goerr.Wrap(err, "invalid answer",
				goerr.V(model.InstanceIDKey, id), goerr.V(model.MemberIDKey, memberID))
		}
	}

	now := uc.clock.Now()
	for _, in := range inputs {
		answer := &model.Answer{
			InstanceID:    id,
			MemberID:      memberID,
			QuestionIndex: in.QuestionIndex,
			Text:          in.Text,
			SubmittedAt:   now,
		}
		if err := uc.repo.Answer().Upsert(ctx, answer); err != nil {
			return RecordResult{}, goerr.Wrap(err, "failed to store answer",
				goerr.V(model.InstanceIDKey, id), goerr.V(model.MemberIDKey, memberID))
		}
	}

	if inst.ConfigSnapshot.Member(memberID) == nil {
		logging.From(ctx).Info("answer from non-participant recorded",
			"instance_id", id, "member_id", memberID)
	}

	result := RecordResult{Accepted: true}
	completed, err := uc.completeIfEligible(ctx, inst, now)
	if err != nil {
		// Answers are stored; the timeout or the sweep closes the cycle later
		errutil.Handle(ctx, err, "failed to complete cycle after answer")
	}
	result.Completed = completed
	return result, nil
}

// IsEligible is the completion policy: every participant answered, the
// window elapsed, or nobody participates
func (uc *LifecycleUseCase) IsEligible(inst *model.StandupInstance, p model.Participation, now time.Time) bool {
	if len(inst.Participants()) == 0 {
		return true
	}
	if p.AllResponded() {
		return true
	}
	return inst.Elapsed(now) >= inst.ConfigSnapshot.ResponseTimeout()
}

func (uc *LifecycleUseCase) completeIfEligible(ctx context.Context, inst *model.StandupInstance, now time.Time) (bool, error) {
	respondents, err := uc.repo.Answer().ListRespondents(ctx, inst.ID)
	if err != nil {
		return false, goerr.Wrap(err, "failed to list respondents", goerr.V(model.InstanceIDKey, inst.ID))
	}

	p := model.ComputeParticipation(inst.Participants(), respondents, 0)
	if !uc.IsEligible(inst, p, now) {
		return false, nil
	}

	result, err := uc.CompleteCycle(ctx, inst.ID)
	if err != nil {
		return false, err
	}
	return result.Outcome == OutcomeDone, nil
}

// HandleFollowup reminds members who have not answered yet
func (uc *LifecycleUseCase) HandleFollowup(ctx context.Context, id model.InstanceID, kind types.FollowupKind) error {
	inst, err := uc.loadInstance(ctx, id)
	if err != nil {
		return err
	}
	if inst == nil || inst.State != types.StandupStateCollecting {
		return nil
	}

	respondents, err := uc.repo.Answer().ListRespondents(ctx, id)
	if err != nil {
		return goerr.Wrap(err, "failed to list respondents", goerr.V(model.InstanceIDKey, id))
	}
	p := model.ComputeParticipation(inst.Participants(), respondents, 0)

	if len(p.Missing) > 0 {
		userIDs := make([]string, len(p.Missing))
		for i, m := range p.Missing {
			userIDs[i] = m.PlatformUserID
		}

		blocks, text := buildFollowupMessage(inst, kind, p)
		if _, err := uc.slack.PostTargetedMessage(ctx, inst.ConfigSnapshot.ChannelID, userIDs, blocks, text); err != nil {
			uc.metrics.NotificationFailure("followup")
			errutil.Handle(ctx, goerr.Wrap(err, "failed to send follow-up",
				goerr.V(model.InstanceIDKey, id), goerr.V(KindKey, kind)), "follow-up not delivered")
		} else {
			logging.From(ctx).Info("follow-up sent",
				"instance_id", id, "kind", kind, "missing", len(p.Missing))
		}
	}

	if _, err := uc.completeIfEligible(ctx, inst, uc.clock.Now()); err != nil {
		errutil.Handle(ctx, err, "failed to complete cycle after follow-up")
	}
	return nil
}

// HandleTimeout closes the cycle at the end of its window. It fails with
// ErrCompletionInProgress while another holder owns the completion lock so
// that the timeout task is retried instead of dropped.
func (uc *LifecycleUseCase) HandleTimeout(ctx context.Context, id model.InstanceID) (CompleteResult, error) {
	result, err := uc.CompleteCycle(ctx, id)
	if err != nil {
		return result, err
	}
	if result.InProgress {
		return result, goerr.Wrap(ErrCompletionInProgress, "collection timeout deferred",
			goerr.V(model.InstanceIDKey, id))
	}
	return result, nil
}

func completionLockKey(id model.InstanceID) string {
	return "complete:" + id.String()
}

// CompleteCycle posts the digest of a collecting instance at most once and
// moves it to posted
func (uc *LifecycleUseCase) CompleteCycle(ctx context.Context, id model.InstanceID) (CompleteResult, error) {
	inst, err := uc.loadInstance(ctx, id)
	if err != nil {
		return CompleteResult{}, err
	}
	if inst == nil || inst.State != types.StandupStateCollecting {
		return CompleteResult{Outcome: OutcomeNotApplicable}, nil
	}

	digest, err := uc.repo.Digest().Get(ctx, id)
	if err != nil {
		return CompleteResult{}, goerr.Wrap(err, "failed to get digest", goerr.V(model.InstanceIDKey, id))
	}
	if digest != nil {
		return uc.repair(ctx, inst, digest)
	}

	key := completionLockKey(id)
	owner := uuid.NewString()
	acquired, err := uc.repo.Lock().TryAcquire(ctx, key, owner, uc.clock.Now(), uc.config.CompletionLockTTL)
	if err != nil {
		return CompleteResult{}, goerr.Wrap(err, "failed to acquire completion lock", goerr.V(model.InstanceIDKey, id))
	}
	if !acquired {
		logging.From(ctx).Debug("completion already in progress", "instance_id", id)
		return CompleteResult{Outcome: OutcomeNotApplicable, InProgress: true}, nil
	}
	defer func() {
		if err := uc.repo.Lock().Release(ctx, key, owner); err != nil {
			errutil.Handle(ctx, err, "failed to release completion lock")
		}
	}()

	// Another holder may have finished between the first check and the lock
	inst, err = uc.loadInstance(ctx, id)
	if err != nil {
		return CompleteResult{}, err
	}
	if inst == nil || inst.State != types.StandupStateCollecting {
		return CompleteResult{Outcome: OutcomeNotApplicable}, nil
	}
	digest, err = uc.repo.Digest().Get(ctx, id)
	if err != nil {
		return CompleteResult{}, goerr.Wrap(err, "failed to get digest", goerr.V(model.InstanceIDKey, id))
	}
	if digest != nil {
		return uc.repair(ctx, inst, digest)
	}

	answers, err := uc.repo.Answer().List(ctx, id)
	if err != nil {
		return CompleteResult{}, goerr.Wrap(err, "failed to list answers", goerr.V(model.InstanceIDKey, id))
	}
	p := model.ComputeParticipation(inst.Participants(), model.DistinctMembers(answers), len(answers))

	blocks, text := buildDigestMessage(inst, answers, p)
	channelID := inst.ConfigSnapshot.ChannelID
	messageID, err := uc.slack.PostMessage(ctx, channelID, blocks, text)
	if err != nil {
		uc.metrics.NotificationFailure("digest")
		return CompleteResult{}, goerr.Wrap(err, "failed to send digest",
			goerr.V(model.InstanceIDKey, id), goerr.V(model.TeamIDKey, inst.TeamID))
	}

	now := uc.clock.Now()
	created, err := uc.repo.Digest().TryCreate(ctx, &model.DigestRecord{
		InstanceID: id,
		ChannelID:  channelID,
		MessageID:  messageID,
		PostedAt:   now,
	})
	if err != nil {
		return CompleteResult{}, goerr.Wrap(err, "digest posted but not recorded",
			goerr.V(model.InstanceIDKey, id), goerr.V("message_id", messageID))
	}
	if !created {
		logging.From(ctx).Warn("digest record already existed after posting", "instance_id", id)
	}

	if _, err := uc.finish(ctx, inst, p, now); err != nil {
		return CompleteResult{}, err
	}

	logging.From(ctx).Info("standup digest posted",
		"instance_id", id,
		"team_id", inst.TeamID,
		"answers", p.AnswersCount,
		"missing", len(p.Missing),
	)
	return CompleteResult{Outcome: OutcomeDone, MessageID: messageID}, nil
}

// repair finishes an instance whose digest exists without posting again
func (uc *LifecycleUseCase) repair(ctx context.Context, inst *model.StandupInstance, digest *model.DigestRecord) (CompleteResult, error) {
	answers, err := uc.repo.Answer().List(ctx, inst.ID)
	if err != nil {
		return CompleteResult{}, goerr.Wrap(err, "failed to list answers", goerr.V(model.InstanceIDKey, inst.ID))
	}
	p := model.ComputeParticipation(inst.Participants(), model.DistinctMembers(answers), len(answers))

	moved, err := uc.finish(ctx, inst, p, uc.clock.Now())
	if err != nil {
		return CompleteResult{}, err
	}
	if !moved {
		return CompleteResult{Outcome: OutcomeNotApplicable}, nil
	}

	logging.From(ctx).Warn("repaired instance whose digest was already posted", "instance_id", inst.ID)
	return CompleteResult{Outcome: OutcomeDone, Repaired: true, MessageID: digest.MessageID}, nil
}

// finish moves the instance to posted and writes its snapshot. The snapshot
// is write-once so a racing finisher cannot change it.
func (uc *LifecycleUseCase) finish(ctx context.Context, inst *model.StandupInstance, p model.Participation, now time.Time) (bool, error) {
	moved, err := uc.transition(ctx, inst, types.StandupStateCollecting, types.StandupStatePosted)
	if err != nil {
		return false, err
	}

	if _, err := uc.repo.Participation().Put(ctx, model.NewParticipationSnapshot(inst.ID, p, now)); err != nil {
		return false, goerr.Wrap(err, "failed to write participation snapshot", goerr.V(model.InstanceIDKey, inst.ID))
	}

	uc.cancelCollectionTasks(ctx, inst)
	return moved, nil
}

// cancelCollectionTasks drops pending timeout and follow-ups. They would be
// no-ops anyway.
func (uc *LifecycleUseCase) cancelCollectionTasks(ctx context.Context, inst *model.StandupInstance) {
	tasks := append([]*model.Task{model.NewTimeoutTask(inst)}, uc.followupTasks(inst)...)
	for _, task := range tasks {
		if err := uc.scheduler.Cancel(ctx, task.Key); err != nil {
			logging.From(ctx).Debug("failed to cancel task", "key", task.Key, "error", err.Error())
		}
	}
}
