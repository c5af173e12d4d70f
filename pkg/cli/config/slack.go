package config

import (
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/huddle/pkg/service/slack"
	"github.com/secmon-lab/huddle/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

type Slack struct {
	botToken     string
	apiURL       string
	rateInterval time.Duration
	rateBurst    int
}

func (x *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-bot-token",
			Usage:       "Slack Bot User OAuth Token. Messages are only logged when empty.",
			Category:    "Slack",
			Destination: &x.botToken,
			Sources:     cli.EnvVars("HUDDLE_SLACK_BOT_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "slack-api-url",
			Usage:       "Slack API base URL",
			Category:    "Slack",
			Destination: &x.apiURL,
			Sources:     cli.EnvVars("HUDDLE_SLACK_API_URL"),
		},
		&cli.DurationFlag{
			Name:        "slack-rate-interval",
			Usage:       "Minimum interval between Slack posts",
			Value:       slack.DefaultRateInterval,
			Category:    "Slack",
			Destination: &x.rateInterval,
			Sources:     cli.EnvVars("HUDDLE_SLACK_RATE_INTERVAL"),
		},
		&cli.IntFlag{
			Name:        "slack-rate-burst",
			Usage:       "Number of Slack posts allowed in a burst",
			Value:       slack.DefaultRateBurst,
			Category:    "Slack",
			Destination: &x.rateBurst,
			Sources:     cli.EnvVars("HUDDLE_SLACK_RATE_BURST"),
		},
	}
}

func (x Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("bot-token.len", len(x.botToken)),
		slog.String("api-url", x.apiURL),
		slog.Duration("rate-interval", x.rateInterval),
		slog.Int("rate-burst", x.rateBurst),
	)
}

// IsConfigured checks if a bot token is set
func (x *Slack) IsConfigured() bool {
	return x.botToken != ""
}

// Configure creates the Slack service, or a dry-run service without a bot token
func (x *Slack) Configure() (slack.Service, error) {
	if !x.IsConfigured() {
		logging.Default().Warn("Slack bot token not configured, messages are logged only")
		return slack.NewDryRun(), nil
	}

	opts := []slack.Option{
		slack.WithRateLimit(x.rateInterval, x.rateBurst),
	}
	if x.apiURL != "" {
		opts = append(opts, slack.WithAPIURL(x.apiURL))
	}

	svc, err := slack.New(x.botToken, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize slack service")
	}
	logging.Default().Info("Slack service enabled")
	return svc, nil
}
