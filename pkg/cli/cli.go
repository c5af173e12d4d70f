package cli

import (
	"context"
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/huddle/pkg/cli/config"
	"github.com/secmon-lab/huddle/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// envFile is loaded before flags are parsed, if it exists. Variables that
// are already set in the environment win.
const envFile = ".env"

func Run(ctx context.Context, args []string, version string) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		err = goerr.Wrap(err, "failed to load env file", goerr.V("path", envFile))
		logging.Default().Error("failed to run app", "error", err)
		return err
	}

	var loggerCfg config.Logger
	var closer func()

	app := &cli.Command{
		Name:    "huddle",
		Usage:   "Asynchronous team standup orchestrator",
		Version: version,
		Flags:   loggerCfg.Flags(),
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			f, err := loggerCfg.Configure()
			if err != nil {
				return ctx, err
			}
			closer = f

			logging.Default().Debug("Starting huddle", "logger", loggerCfg)
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if closer != nil {
				closer()
			}
			return nil
		},
		Commands: []*cli.Command{
			cmdServe(version),
			cmdMatch(version),
			cmdSweep(version),
			cmdCleanup(version),
			cmdValidate(),
			cmdMigrate(),
		},
	}

	if err := app.Run(ctx, args); err != nil {
		logging.Default().Error("failed to run app", "error", err)
		return err
	}

	return nil
}
