package config

import (
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/huddle/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// Standup holds the tunables of the lifecycle, matcher and sweep
type Standup struct {
	matchTolerance       time.Duration
	followupFractions    []float64
	sweepGrace           time.Duration
	sweepHardCeiling     time.Duration
	sweepMinResponseRate float64
	completionLockTTL    time.Duration
	matcherInterval      time.Duration
	sweepInterval        time.Duration
	cleanupInterval      time.Duration
	retentionDays        int
}

func (x *Standup) Flags() []cli.Flag {
	def := usecase.DefaultConfig()

	return []cli.Flag{
		&cli.DurationFlag{
			Name:        "match-tolerance",
			Usage:       "Maximum distance between now and a team's scheduled time for a match",
			Value:       def.MatchTolerance,
			Category:    "Standup",
			Sources:     cli.EnvVars("HUDDLE_MATCH_TOLERANCE"),
			Destination: &x.matchTolerance,
		},
		&cli.FloatSliceFlag{
			Name:        "followup-fractions",
			Usage:       "Fractions of the response window at which follow-ups are sent; the last one is the final notice",
			Value:       def.FollowupFractions,
			Category:    "Standup",
			Sources:     cli.EnvVars("HUDDLE_FOLLOWUP_FRACTIONS"),
			Destination: &x.followupFractions,
		},
		&cli.DurationFlag{
			Name:        "sweep-grace",
			Usage:       "Minimum age of a collecting instance before the sweep looks at it",
			Value:       def.SweepGrace,
			Category:    "Standup",
			Sources:     cli.EnvVars("HUDDLE_SWEEP_GRACE"),
			Destination: &x.sweepGrace,
		},
		&cli.DurationFlag{
			Name:        "sweep-hard-ceiling",
			Usage:       "Age after which the sweep closes an instance regardless of responses",
			Value:       def.SweepHardCeiling,
			Category:    "Standup",
			Sources:     cli.EnvVars("HUDDLE_SWEEP_HARD_CEILING"),
			Destination: &x.sweepHardCeiling,
		},
		&cli.FloatFlag{
			Name:        "sweep-min-response-rate",
			Usage:       "Response rate at which the sweep closes a stuck instance",
			Value:       def.SweepMinResponseRate,
			Category:    "Standup",
			Sources:     cli.EnvVars("HUDDLE_SWEEP_MIN_RESPONSE_RATE"),
			Destination: &x.sweepMinResponseRate,
		},
		&cli.DurationFlag{
			Name:        "completion-lock-ttl",
			Usage:       "Expiry of the lock held while posting a digest",
			Value:       def.CompletionLockTTL,
			Category:    "Standup",
			Sources:     cli.EnvVars("HUDDLE_COMPLETION_LOCK_TTL"),
			Destination: &x.completionLockTTL,
		},
		&cli.DurationFlag{
			Name:        "matcher-interval",
			Usage:       "Interval of the daily standup matcher",
			Value:       def.MatcherInterval,
			Category:    "Standup",
			Sources:     cli.EnvVars("HUDDLE_MATCHER_INTERVAL"),
			Destination: &x.matcherInterval,
		},
		&cli.DurationFlag{
			Name:        "sweep-interval",
			Usage:       "Interval of the stuck instance sweep",
			Value:       def.SweepInterval,
			Category:    "Standup",
			Sources:     cli.EnvVars("HUDDLE_SWEEP_INTERVAL"),
			Destination: &x.sweepInterval,
		},
		&cli.DurationFlag{
			Name:        "cleanup-interval",
			Usage:       "Interval of the old instance cleanup",
			Value:       def.CleanupInterval,
			Category:    "Standup",
			Sources:     cli.EnvVars("HUDDLE_CLEANUP_INTERVAL"),
			Destination: &x.cleanupInterval,
		},
		&cli.IntFlag{
			Name:        "retention-days",
			Usage:       "Days an instance is kept before cleanup",
			Value:       def.RetentionDays,
			Category:    "Standup",
			Sources:     cli.EnvVars("HUDDLE_RETENTION_DAYS"),
			Destination: &x.retentionDays,
		},
	}
}

func (x Standup) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Duration("match-tolerance", x.matchTolerance),
		slog.Any("followup-fractions", x.followupFractions),
		slog.Duration("sweep-grace", x.sweepGrace),
		slog.Duration("sweep-hard-ceiling", x.sweepHardCeiling),
		slog.Float64("sweep-min-response-rate", x.sweepMinResponseRate),
		slog.Int("retention-days", x.retentionDays),
	)
}

// Configure validates the flags and builds the use case configuration
func (x *Standup) Configure() (usecase.Config, error) {
	cfg := usecase.Config{
		MatchTolerance:       x.matchTolerance,
		FollowupFractions:    x.followupFractions,
		SweepGrace:           x.sweepGrace,
		SweepHardCeiling:     x.sweepHardCeiling,
		SweepMinResponseRate: x.sweepMinResponseRate,
		CompletionLockTTL:    x.completionLockTTL,
		MatcherInterval:      x.matcherInterval,
		SweepInterval:        x.sweepInterval,
		CleanupInterval:      x.cleanupInterval,
		RetentionDays:        x.retentionDays,
	}
	if err := ValidateStandup(cfg); err != nil {
		return usecase.Config{}, err
	}
	return cfg, nil
}

// ValidateStandup checks the tunables for values that would break scheduling
func ValidateStandup(cfg usecase.Config) error {
	if cfg.MatchTolerance < 0 {
		return goerr.Wrap(ErrInvalidConfig, "match tolerance cannot be negative")
	}

	prev := 0.0
	for _, f := range cfg.FollowupFractions {
		if f <= prev || f >= 1 {
			return goerr.Wrap(ErrInvalidConfig, "follow-up fractions must be increasing and within (0, 1)",
				goerr.V("fractions", cfg.FollowupFractions))
		}
		prev = f
	}

	if cfg.SweepMinResponseRate < 0 || cfg.SweepMinResponseRate > 1 {
		return goerr.Wrap(ErrInvalidConfig, "sweep minimum response rate must be within [0, 1]",
			goerr.V("rate", cfg.SweepMinResponseRate))
	}
	if cfg.SweepHardCeiling <= cfg.SweepGrace {
		return goerr.Wrap(ErrInvalidConfig, "sweep hard ceiling must exceed the sweep grace",
			goerr.V("grace", cfg.SweepGrace), goerr.V("ceiling", cfg.SweepHardCeiling))
	}

	for name, d := range map[string]time.Duration{
		"completion-lock-ttl": cfg.CompletionLockTTL,
		"matcher-interval":    cfg.MatcherInterval,
		"sweep-interval":      cfg.SweepInterval,
		"cleanup-interval":    cfg.CleanupInterval,
	} {
		if d <= 0 {
			return goerr.Wrap(ErrInvalidConfig, "duration must be positive", goerr.V("name", name))
		}
	}

	if cfg.RetentionDays < 1 {
		return goerr.Wrap(ErrInvalidConfig, "retention days must be at least 1", goerr.V("days", cfg.RetentionDays))
	}
	return nil
}
