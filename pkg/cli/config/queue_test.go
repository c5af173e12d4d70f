package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/huddle/pkg/cli/config"
	"github.com/secmon-lab/huddle/pkg/utils/logging"
)

func TestRedactURL(t *testing.T) {
	gt.Value(t, config.RedactURL("redis://:hunter2@localhost:6379/0")).Equal("redis://:xxxxx@localhost:6379/0")
	gt.Value(t, config.RedactURL("redis://localhost:6379")).Equal("redis://localhost:6379")
	gt.Value(t, config.RedactURL("")).Equal("")
}

func TestQueue_Configure(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		q, err := config.NewQueueForTest(config.QueueBackendMemory, "", "").Configure(ctx)
		gt.NoError(t, err).Required()
		gt.NoError(t, q.Close())
	})

	t.Run("redis", func(t *testing.T) {
		srv := miniredis.RunT(t)
		q, err := config.NewQueueForTest(config.QueueBackendRedis, "redis://"+srv.Addr(), "test").Configure(ctx)
		gt.NoError(t, err).Required()
		gt.NoError(t, q.Close())
	})

	t.Run("redis without url", func(t *testing.T) {
		_, err := config.NewQueueForTest(config.QueueBackendRedis, "", "").Configure(ctx)
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := config.NewQueueForTest("kafka", "", "").Configure(ctx)
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})
}

func TestRepository_Configure(t *testing.T) {
	ctx := context.Background()

	t.Run("sqlite", func(t *testing.T) {
		dsn := filepath.Join(t.TempDir(), "huddle.db")
		repo, err := config.NewRepositoryForTest(config.BackendSQLite, dsn).Configure(ctx)
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Close())
	})

	t.Run("sql without dsn", func(t *testing.T) {
		_, err := config.NewRepositoryForTest(config.BackendPostgres, "").Configure(ctx)
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("memory", func(t *testing.T) {
		repo, err := config.NewRepositoryForTest(config.BackendMemory, "").Configure(ctx)
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Close())
	})
}

func TestLogger_Configure(t *testing.T) {
	orig := logging.Default()
	t.Cleanup(func() { logging.SetDefault(orig) })

	t.Run("json to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "huddle.log")
		closer, err := config.NewLoggerForTest("debug", "json", path).Configure()
		gt.NoError(t, err).Required()

		logging.Default().Info("hello", "team_id", "alpha")
		closer()

		data, err := os.ReadFile(path)
		gt.NoError(t, err).Required()
		gt.String(t, string(data)).Contains(`"msg":"hello"`)
		gt.String(t, string(data)).Contains(`"team_id":"alpha"`)
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := config.NewLoggerForTest("loud", "console", "stdout").Configure()
		gt.Value(t, err).NotNil()
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := config.NewLoggerForTest("info", "xml", "stdout").Configure()
		gt.Value(t, err).NotNil()
	})
}
