package cli_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/huddle/pkg/cli"
	"github.com/secmon-lab/huddle/pkg/cli/config"
	"github.com/secmon-lab/huddle/pkg/repository/firestore"
)

const validTeams = `
[[team]]
id = "platform"
name = "Platform"
channel_id = "C0PLATFORM"
weekdays = ["mon", "tue", "wed", "thu", "fri"]
time = "09:30"
timezone = "Asia/Tokyo"
questions = ["Yesterday?", "Today?"]
response_timeout_hours = 4

  [[team.members]]
  id = "alice"
  slack_user_id = "U001"
`

func writeTeams(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "teams.toml")
	gt.NoError(t, os.WriteFile(path, []byte(content), 0o600)).Required()
	return path
}

func TestRun_ValidateCommand_ValidTeams(t *testing.T) {
	path := writeTeams(t, validTeams)

	err := cli.Run(context.Background(), []string{"huddle", "validate", "--teams", path}, "test")
	gt.NoError(t, err)
}

func TestRun_ValidateCommand_InvalidTeams(t *testing.T) {
	path := writeTeams(t, `
[[team]]
id = "platform"
channel_id = "C1"
weekdays = ["mon"]
time = "25:00"
timezone = "Asia/Tokyo"
questions = ["q"]
response_timeout_hours = 4
`)

	err := cli.Run(context.Background(), []string{"huddle", "validate", "--teams", path}, "test")
	gt.Value(t, err).NotNil()
}

func TestRun_ValidateCommand_InvalidTunables(t *testing.T) {
	path := writeTeams(t, validTeams)

	err := cli.Run(context.Background(), []string{
		"huddle", "validate", "--teams", path, "--sweep-min-response-rate", "2",
	}, "test")
	gt.Error(t, err).Is(config.ErrInvalidConfig)
}

func TestRun_ValidateCommand_MissingTeams(t *testing.T) {
	err := cli.Run(context.Background(), []string{"huddle", "validate"}, "test")
	gt.Error(t, err).Is(config.ErrInvalidConfig)
}

func TestRun_OneShotCommands_Memory(t *testing.T) {
	path := writeTeams(t, validTeams)

	for _, cmd := range []string{"match", "sweep", "cleanup"} {
		t.Run(cmd, func(t *testing.T) {
			err := cli.Run(context.Background(), []string{
				"huddle", cmd,
				"--repository-backend", "memory",
				"--queue-backend", "memory",
				"--teams", path,
			}, "test")
			gt.NoError(t, err)
		})
	}
}

func TestRun_CleanupCommand_InvalidDate(t *testing.T) {
	err := cli.Run(context.Background(), []string{
		"huddle", "cleanup",
		"--repository-backend", "memory",
		"--date", "yesterday",
	}, "test")
	gt.Value(t, err).NotNil()
}

func TestRun_MigrateCommand(t *testing.T) {
	t.Run("sqlite", func(t *testing.T) {
		dsn := filepath.Join(t.TempDir(), "huddle.db")
		err := cli.Run(context.Background(), []string{
			"huddle", "migrate", "--repository-backend", "sqlite", "--sql-dsn", dsn,
		}, "test")
		gt.NoError(t, err)

		_, err = os.Stat(dsn)
		gt.NoError(t, err)
	})

	t.Run("memory has nothing to migrate", func(t *testing.T) {
		err := cli.Run(context.Background(), []string{
			"huddle", "migrate", "--repository-backend", "memory",
		}, "test")
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("firestore requires project", func(t *testing.T) {
		err := cli.Run(context.Background(), []string{
			"huddle", "migrate", "--repository-backend", "firestore",
		}, "test")
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})
}

func TestGetIndexConfig(t *testing.T) {
	cfg := cli.GetIndexConfig("dev_")
	gt.Array(t, cfg.Collections).Length(1).Required()
	gt.Value(t, cfg.Collections[0].Name).Equal(firestore.InstancesCollection("dev_"))

	idx := cfg.Collections[0].Indexes
	gt.Array(t, idx).Length(1).Required()
	gt.Value(t, idx[0].Fields[0].Path).Equal("state")
	gt.Value(t, idx[0].Fields[1].Path).Equal("created_at")
}
