package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/huddle/pkg/domain/model"
	"github.com/secmon-lab/huddle/pkg/domain/types"
	"github.com/secmon-lab/huddle/pkg/repository/memory"
	"github.com/secmon-lab/huddle/pkg/usecase"
	"github.com/secmon-lab/huddle/pkg/utils/clock"
	goslack "github.com/slack-go/slack"
)

type postedMessage struct {
	ChannelID string
	UserIDs   []string
	Blocks    []goslack.Block
	Text      string
}

// mockSlackService records every message. Set failPost to make sends fail.
type mockSlackService struct {
	mu       sync.Mutex
	posted   []postedMessage
	targeted []postedMessage
	failPost bool
}

var errSlackDown = errors.New("slack is down")

func (m *mockSlackService) PostMessage(ctx context.Context, channelID string, blocks []goslack.Block, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPost {
		return "", errSlackDown
	}
	m.posted = append(m.posted, postedMessage{ChannelID: channelID, Blocks: blocks, Text: text})
	return fmt.Sprintf("1700000000.%06d", len(m.posted)), nil
}

func (m *mockSlackService) PostTargetedMessage(ctx context.Context, channelID string, userIDs []string, blocks []goslack.Block, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPost {
		return "", errSlackDown
	}
	m.targeted = append(m.targeted, postedMessage{ChannelID: channelID, UserIDs: userIDs, Blocks: blocks, Text: text})
	return fmt.Sprintf("1700000001.%06d", len(m.targeted)), nil
}

func (m *mockSlackService) setFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPost = fail
}

func (m *mockSlackService) postedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.posted)
}

func (m *mockSlackService) targetedMessages() []postedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]postedMessage(nil), m.targeted...)
}

// mockScheduler keeps scheduled tasks by key like the real queue does
type mockScheduler struct {
	mu        sync.Mutex
	tasks     map[string]*model.Task
	cancelled []string
	failWith  error
}

func newMockScheduler() *mockScheduler {
	return &mockScheduler{tasks: make(map[string]*model.Task)}
}

func (m *mockScheduler) Schedule(ctx context.Context, task *model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.tasks[task.Key] = task.Copy()
	return nil
}

func (m *mockScheduler) Cancel(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, key)
	m.cancelled = append(m.cancelled, key)
	return nil
}

func (m *mockScheduler) get(key string) *model.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tasks[key]
}

func (m *mockScheduler) count(kind types.TaskKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, task := range m.tasks {
		if task.Kind == kind {
			n++
		}
	}
	return n
}

type fixture struct {
	repo      *memory.Memory
	scheduler *mockScheduler
	slack     *mockSlackService
	clock     *clock.Mock
	uc        *usecase.UseCases
}

// baseTime is Monday 2026-03-02 09:30 in Asia/Tokyo
func baseTime() time.Time {
	return time.Date(2026, 3, 2, 0, 30, 0, 0, time.UTC)
}

func newFixture(t *testing.T, opts ...usecase.Option) *fixture {
	t.Helper()

	f := &fixture{
		repo:      memory.New(),
		scheduler: newMockScheduler(),
		slack:     &mockSlackService{},
		clock:     clock.NewMock(baseTime()),
	}
	opts = append([]usecase.Option{
		usecase.WithSlack(f.slack),
		usecase.WithClock(f.clock),
	}, opts...)
	f.uc = usecase.New(f.repo, f.scheduler, opts...)
	return f
}

func newTeamConfig(teamID string, members int, hours int) *model.StandupConfig {
	cfg := &model.StandupConfig{
		Version:              model.ConfigSnapshotVersion,
		TeamID:               types.TeamID(teamID),
		TeamName:             "Team " + teamID,
		ChannelID:            "C" + teamID,
		Weekdays:             []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		TimeLocal:            "09:30",
		Timezone:             "Asia/Tokyo",
		Questions:            []string{"What did you do yesterday?", "What will you do today?"},
		ResponseTimeoutHours: hours,
		Active:               true,
	}
	for i := range members {
		cfg.Members = append(cfg.Members, model.Member{
			ID:             types.MemberID(fmt.Sprintf("m%d", i+1)),
			PlatformUserID: fmt.Sprintf("U%03d", i+1),
			Name:           fmt.Sprintf("member%d", i+1),
		})
	}
	return cfg
}

// newPending stores a pending instance created at the fixture's current time
func (f *fixture) newPending(t *testing.T, cfg *model.StandupConfig) *model.StandupInstance {
	t.Helper()

	now := f.clock.Now()
	inst := model.NewStandupInstance(cfg, types.DateOf(now.In(time.UTC)), now)
	gt.NoError(t, f.repo.Instance().Create(context.Background(), inst)).Required()
	return inst
}

// newCollecting stores an instance and starts its collection
func (f *fixture) newCollecting(t *testing.T, cfg *model.StandupConfig) *model.StandupInstance {
	t.Helper()

	inst := f.newPending(t, cfg)
	result, err := f.uc.Lifecycle.StartCollection(context.Background(), inst.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, result.Outcome).Equal(usecase.OutcomeDone)
	return inst
}

func (f *fixture) state(t *testing.T, id model.InstanceID) types.StandupState {
	t.Helper()

	inst, err := f.repo.Instance().Get(context.Background(), id)
	gt.NoError(t, err).Required()
	return inst.State
}

func (f *fixture) answer(t *testing.T, id model.InstanceID, member string) usecase.RecordResult {
	t.Helper()

	result, err := f.uc.Lifecycle.RecordAnswer(context.Background(), id, types.MemberID(member), []model.AnswerInput{
		{QuestionIndex: 0, Text: "fixed the flaky test"},
		{QuestionIndex: 1, Text: "review the queue change"},
	})
	gt.NoError(t, err).Required()
	return result
}
