package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/huddle/pkg/domain/model"
	"github.com/secmon-lab/huddle/pkg/domain/types"
)

func TestDigestRepository(t *testing.T) {
	runAllBackends(t, func(t *testing.T, newRepo repoFactory) {
		t.Run("TryCreate succeeds only once per instance", func(t *testing.T) {
			repo := newRepo(t)
			ctx := context.Background()

			inst := model.NewStandupInstance(newTestConfig(uniqueTeam("core")), "2026-03-02", baseTime())
			gt.NoError(t, repo.Instance().Create(ctx, inst)).Required()

			rec := &model.DigestRecord{InstanceID: inst.ID, ChannelID: "C1", MessageID: "1700000000.000100", PostedAt: baseTime()}
			created, err := repo.Digest().TryCreate(ctx, rec)
			gt.NoError(t, err).Required()
			gt.Bool(t, created).True()

			dup := &model.DigestRecord{InstanceID: inst.ID, ChannelID: "C1", MessageID: "other", PostedAt: baseTime()}
			created, err = repo.Digest().TryCreate(ctx, dup)
			gt.NoError(t, err).Required()
			gt.Bool(t, created).False()

			got, err := repo.Digest().Get(ctx, inst.ID)
			gt.NoError(t, err).Required()
			gt.Value(t, got.MessageID).Equal("1700000000.000100")
		})

		t.Run("Get returns nil when no digest exists", func(t *testing.T) {
			repo := newRepo(t)

			got, err := repo.Digest().Get(context.Background(), model.NewInstanceID())
			gt.NoError(t, err).Required()
			gt.Value(t, got).Nil()
		})
	})
}

func TestParticipationRepository(t *testing.T) {
	runAllBackends(t, func(t *testing.T, newRepo repoFactory) {
		t.Run("Put writes once and keeps the first snapshot", func(t *testing.T) {
			repo := newRepo(t)
			ctx := context.Background()

			inst := model.NewStandupInstance(newTestConfig(uniqueTeam("core")), "2026-03-02", baseTime())
			gt.NoError(t, repo.Instance().Create(ctx, inst)).Required()

			p := model.ComputeParticipation(inst.Participants(), []types.MemberID{"alice"}, 2)
			created, err := repo.Participation().Put(ctx, model.NewParticipationSnapshot(inst.ID, p, baseTime()))
			gt.NoError(t, err).Required()
			gt.Bool(t, created).True()

			created, err = repo.Participation().Put(ctx, model.NewParticipationSnapshot(inst.ID, model.Participation{}, baseTime().Add(time.Hour)))
			gt.NoError(t, err).Required()
			gt.Bool(t, created).False()

			got, err := repo.Participation().Get(ctx, inst.ID)
			gt.NoError(t, err).Required()
			gt.Number(t, got.AnswersCount).Equal(2)
			gt.Number(t, got.RespondedCount).Equal(1)
			gt.Number(t, got.MembersMissing).Equal(1)
			gt.Value(t, got.MissingMemberIDs).Equal([]types.MemberID{"bob"})
		})
	})
}
