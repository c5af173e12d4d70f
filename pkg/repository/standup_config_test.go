package repository_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/huddle/pkg/domain/interfaces"
)

func TestStandupConfigRepository(t *testing.T) {
	runAllBackends(t, func(t *testing.T, newRepo repoFactory) {
		t.Run("Put and Get round trip", func(t *testing.T) {
			repo := newRepo(t)
			ctx := context.Background()

			cfg := newTestConfig(uniqueTeam("core"))
			gt.NoError(t, repo.StandupConfig().Put(ctx, cfg)).Required()

			got, err := repo.StandupConfig().Get(ctx, cfg.TeamID)
			gt.NoError(t, err).Required()
			gt.Value(t, got.TeamID).Equal(cfg.TeamID)
			gt.Value(t, got.ChannelID).Equal(cfg.ChannelID)
			gt.Value(t, got.Weekdays).Equal(cfg.Weekdays)
			gt.Value(t, got.Questions).Equal(cfg.Questions)
			gt.Value(t, got.Members).Equal(cfg.Members)
			gt.Number(t, got.ResponseTimeoutHours).Equal(4)
		})

		t.Run("Put replaces the existing config", func(t *testing.T) {
			repo := newRepo(t)
			ctx := context.Background()

			cfg := newTestConfig(uniqueTeam("core"))
			gt.NoError(t, repo.StandupConfig().Put(ctx, cfg)).Required()

			cfg.TimeLocal = "10:00"
			gt.NoError(t, repo.StandupConfig().Put(ctx, cfg)).Required()

			got, err := repo.StandupConfig().Get(ctx, cfg.TeamID)
			gt.NoError(t, err).Required()
			gt.Value(t, got.TimeLocal).Equal("10:00")
		})

		t.Run("Get returns ErrNotFound for unknown team", func(t *testing.T) {
			repo := newRepo(t)

			_, err := repo.StandupConfig().Get(context.Background(), uniqueTeam("missing"))
			gt.Error(t, err).Is(interfaces.ErrNotFound)
		})

		t.Run("ListActive excludes inactive configs", func(t *testing.T) {
			repo := newRepo(t)
			ctx := context.Background()

			active := newTestConfig(uniqueTeam("active"))
			inactive := newTestConfig(uniqueTeam("inactive"))
			inactive.Active = false
			gt.NoError(t, repo.StandupConfig().Put(ctx, active)).Required()
			gt.NoError(t, repo.StandupConfig().Put(ctx, inactive)).Required()

			configs, err := repo.StandupConfig().ListActive(ctx)
			gt.NoError(t, err).Required()

			var foundActive, foundInactive bool
			for _, c := range configs {
				foundActive = foundActive || c.TeamID == active.TeamID
				foundInactive = foundInactive || c.TeamID == inactive.TeamID
			}
			gt.Bool(t, foundActive).True()
			gt.Bool(t, foundInactive).False()
		})
	})
}
