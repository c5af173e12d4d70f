package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/huddle/pkg/cli/config"
	"github.com/secmon-lab/huddle/pkg/domain/interfaces"
	"github.com/secmon-lab/huddle/pkg/service/scheduler"
	"github.com/secmon-lab/huddle/pkg/usecase"
	"github.com/secmon-lab/huddle/pkg/utils/logging"
	"github.com/secmon-lab/huddle/pkg/utils/metrics"
	"github.com/urfave/cli/v3"
)

// runtimeConfig is the flag set shared by every command that drives the
// standup lifecycle
type runtimeConfig struct {
	repo    config.Repository
	queue   config.Queue
	slack   config.Slack
	archive config.Archive
	standup config.Standup
	teams   config.Teams
	sentry  config.Sentry
}

func (x *runtimeConfig) Flags() []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, x.repo.Flags()...)
	flags = append(flags, x.queue.Flags()...)
	flags = append(flags, x.slack.Flags()...)
	flags = append(flags, x.archive.Flags()...)
	flags = append(flags, x.standup.Flags()...)
	flags = append(flags, x.teams.Flags()...)
	flags = append(flags, x.sentry.Flags()...)
	return flags
}

// runtime holds the wired components. Close releases them in reverse order.
type runtime struct {
	repo      interfaces.Repository
	queue     interfaces.TaskQueue
	scheduler *scheduler.Scheduler
	metrics   *metrics.Metrics
	uc        *usecase.UseCases
	closers   []func()
}

func (r *runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

func (r *runtime) onClose(f func()) {
	r.closers = append(r.closers, f)
}

func (x *runtimeConfig) build(ctx context.Context, version string, schedOpts ...scheduler.Option) (_ *runtime, err error) {
	logger := logging.Default()
	rt := &runtime{metrics: metrics.New()}
	defer func() {
		if err != nil {
			rt.Close()
		}
	}()

	flush, err := x.sentry.Configure(version)
	if err != nil {
		return nil, err
	}
	rt.onClose(flush)

	standupCfg, err := x.standup.Configure()
	if err != nil {
		return nil, goerr.Wrap(err, "invalid standup configuration")
	}

	repo, err := x.repo.Configure(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize repository")
	}
	rt.repo = repo
	rt.onClose(func() {
		if err := repo.Close(); err != nil {
			logger.Error("failed to close repository", "error", err.Error())
		}
	})

	n, err := x.teams.Apply(ctx, repo)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to apply team definitions")
	}
	if n > 0 {
		logger.Info("Team definitions applied", "count", n, "path", x.teams.Path())
	}

	queue, err := x.queue.Configure(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize task queue")
	}
	rt.queue = queue
	rt.onClose(func() {
		if err := queue.Close(); err != nil {
			logger.Error("failed to close task queue", "error", err.Error())
		}
	})

	schedOpts = append([]scheduler.Option{
		scheduler.WithMetrics(rt.metrics),
		scheduler.WithSlotLock(repo.Lock()),
	}, schedOpts...)
	rt.scheduler = scheduler.New(queue, schedOpts...)

	slackSvc, err := x.slack.Configure()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize slack service")
	}

	ucOpts := []usecase.Option{
		usecase.WithSlack(slackSvc),
		usecase.WithMetrics(rt.metrics),
		usecase.WithConfig(standupCfg),
	}

	gcs, err := x.archive.Configure(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize archive")
	}
	if gcs != nil {
		ucOpts = append(ucOpts, usecase.WithArchive(gcs))
		rt.onClose(func() {
			if err := gcs.Close(); err != nil {
				logger.Error("failed to close archive", "error", err.Error())
			}
		})
	}

	rt.uc = usecase.New(repo, rt.scheduler, ucOpts...)
	rt.uc.RegisterTasks(rt.scheduler)

	logger.Info("Runtime configured",
		"repository", x.repo,
		"queue", x.queue,
		"slack", x.slack,
		"archive", x.archive,
		"standup", x.standup,
	)
	return rt, nil
}
