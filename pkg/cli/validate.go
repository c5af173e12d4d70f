package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/huddle/pkg/cli/config"
	"github.com/secmon-lab/huddle/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdValidate() *cli.Command {
	var teamsCfg config.Teams
	var standupCfg config.Standup

	var flags []cli.Flag
	flags = append(flags, teamsCfg.Flags()...)
	flags = append(flags, standupCfg.Flags()...)

	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate team definitions and standup tunables",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			if teamsCfg.Path() == "" {
				return goerr.Wrap(config.ErrInvalidConfig, "--teams is required")
			}

			teams, err := teamsCfg.Load()
			if err != nil {
				return goerr.Wrap(err, "team definition validation failed")
			}
			if _, err := standupCfg.Configure(); err != nil {
				return goerr.Wrap(err, "standup tunables validation failed")
			}

			logger.Info("Configuration validation passed", "team_count", len(teams))
			for _, t := range teams {
				logger.Info("Team validated",
					"id", t.TeamID,
					"name", t.TeamName,
					"members", len(t.Members),
					"questions", len(t.Questions),
					"time", t.TimeLocal,
					"timezone", t.Timezone,
					"active", t.Active,
				)
			}
			return nil
		},
	}
}
