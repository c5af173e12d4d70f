package repository_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/huddle/pkg/domain/interfaces"
	"github.com/secmon-lab/huddle/pkg/domain/model"
	"github.com/secmon-lab/huddle/pkg/domain/types"
	"github.com/secmon-lab/huddle/pkg/repository/firestore"
	"github.com/secmon-lab/huddle/pkg/repository/memory"
	"github.com/secmon-lab/huddle/pkg/repository/rdb"
)

type repoFactory func(t *testing.T) interfaces.Repository

func newMemoryRepository(t *testing.T) interfaces.Repository {
	return memory.New()
}

func newSQLiteRepository(t *testing.T) interfaces.Repository {
	t.Helper()

	repo, err := rdb.New(rdb.DialectSQLite, ":memory:")
	gt.NoError(t, err).Required()
	gt.NoError(t, repo.Migrate()).Required()
	t.Cleanup(func() {
		gt.NoError(t, repo.Close())
	})
	return repo
}

func newPostgresRepository(t *testing.T) interfaces.Repository {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	repo, err := rdb.New(rdb.DialectPostgres, dsn)
	gt.NoError(t, err).Required()
	gt.NoError(t, repo.Migrate()).Required()
	t.Cleanup(func() {
		gt.NoError(t, repo.Close())
	})
	return repo
}

func newFirestoreRepository(t *testing.T) interfaces.Repository {
	t.Helper()

	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	if projectID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID not set")
	}
	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")

	// A fresh prefix keeps every test isolated from leftovers of earlier runs
	prefix := "test_" + uuid.NewString()[:8]
	repo, err := firestore.New(context.Background(), projectID, databaseID, firestore.WithCollectionPrefix(prefix))
	gt.NoError(t, err).Required()
	t.Cleanup(func() {
		gt.NoError(t, repo.Close())
	})
	return repo
}

func runAllBackends(t *testing.T, run func(t *testing.T, newRepo repoFactory)) {
	t.Helper()

	t.Run("Memory", func(t *testing.T) { run(t, newMemoryRepository) })
	t.Run("SQLite", func(t *testing.T) { run(t, newSQLiteRepository) })
	t.Run("Postgres", func(t *testing.T) { run(t, newPostgresRepository) })
	t.Run("Firestore", func(t *testing.T) { run(t, newFirestoreRepository) })
}

func newTestConfig(teamID types.TeamID) *model.StandupConfig {
	return &model.StandupConfig{
		TeamID:               teamID,
		TeamName:             "Team " + teamID.String(),
		ChannelID:            "C" + teamID.String(),
		Weekdays:             []time.Weekday{time.Monday, time.Wednesday, time.Friday},
		TimeLocal:            "09:30",
		Timezone:             "Asia/Tokyo",
		Questions:            []string{"What did you do yesterday?", "What will you do today?"},
		ResponseTimeoutHours: 4,
		Members: []model.Member{
			{ID: "alice", PlatformUserID: "U001", Name: "Alice"},
			{ID: "bob", PlatformUserID: "U002", Name: "Bob"},
		},
		Active: true,
	}
}

// uniqueTeam returns a team ID that does not collide across runs of shared backends
func uniqueTeam(base string) types.TeamID {
	return types.TeamID(base + "-" + uuid.NewString()[:8])
}

func baseTime() time.Time {
	return time.Date(2026, 3, 2, 0, 30, 0, 0, time.UTC)
}
