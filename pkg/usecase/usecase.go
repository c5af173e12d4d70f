package usecase

import (
	"time"

	"github.com/secmon-lab/huddle/pkg/domain/interfaces"
	"github.com/secmon-lab/huddle/pkg/service/archive"
	"github.com/secmon-lab/huddle/pkg/service/slack"
	"github.com/secmon-lab/huddle/pkg/utils/clock"
	"github.com/secmon-lab/huddle/pkg/utils/metrics"
)

// Config holds the tunables of the orchestrator
type Config struct {
	MatchTolerance       time.Duration
	FollowupFractions    []float64
	SweepGrace           time.Duration
	SweepHardCeiling     time.Duration
	SweepMinResponseRate float64
	CompletionLockTTL    time.Duration
	MatcherInterval      time.Duration
	SweepInterval        time.Duration
	CleanupInterval      time.Duration
	RetentionDays        int
}

func DefaultConfig() Config {
	return Config{
		MatchTolerance:       time.Minute,
		FollowupFractions:    []float64{0.5, 0.8, 0.95},
		SweepGrace:           2 * time.Hour,
		SweepHardCeiling:     26 * time.Hour,
		SweepMinResponseRate: 0.5,
		CompletionLockTTL:    5 * time.Minute,
		MatcherInterval:      time.Minute,
		SweepInterval:        30 * time.Minute,
		CleanupInterval:      24 * time.Hour,
		RetentionDays:        90,
	}
}

type UseCases struct {
	repo      interfaces.Repository
	scheduler interfaces.TaskScheduler
	slack     slack.Service
	archive   archive.Service
	clock     clock.Clock
	metrics   *metrics.Metrics
	config    Config

	Lifecycle *LifecycleUseCase
	Matcher   *MatcherUseCase
	Sweep     *SweepUseCase
	Cleanup   *CleanupUseCase
}

type Option func(*UseCases)

func WithSlack(svc slack.Service) Option {
	return func(uc *UseCases) {
		uc.slack = svc
	}
}

// WithArchive archives instances to the service before cleanup deletes them
func WithArchive(svc archive.Service) Option {
	return func(uc *UseCases) {
		uc.archive = svc
	}
}

func WithClock(c clock.Clock) Option {
	return func(uc *UseCases) {
		uc.clock = c
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(uc *UseCases) {
		uc.metrics = m
	}
}

func WithConfig(cfg Config) Option {
	return func(uc *UseCases) {
		uc.config = cfg
	}
}

// New wires the use cases. Messages go to a dry-run Slack service unless WithSlack is given.
func New(repo interfaces.Repository, scheduler interfaces.TaskScheduler, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:      repo,
		scheduler: scheduler,
		slack:     slack.NewDryRun(),
		clock:     clock.System(),
		config:    DefaultConfig(),
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.Lifecycle = NewLifecycleUseCase(repo, scheduler, uc.slack, uc.clock, uc.metrics, uc.config)
	uc.Matcher = NewMatcherUseCase(repo, uc.Lifecycle, uc.metrics, uc.config)
	uc.Sweep = NewSweepUseCase(repo, uc.Lifecycle, uc.metrics, uc.config)
	uc.Cleanup = NewCleanupUseCase(repo, uc.archive)

	return uc
}

// Config returns the effective configuration
func (uc *UseCases) Config() Config {
	return uc.config
}
