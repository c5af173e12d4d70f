package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	httpctrl "github.com/secmon-lab/huddle/pkg/controller/http"
	"github.com/secmon-lab/huddle/pkg/service/scheduler"
	"github.com/secmon-lab/huddle/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe(version string) *cli.Command {
	var addr string
	var apiToken string
	var pollInterval time.Duration
	var concurrency int
	var rtCfg runtimeConfig

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("HUDDLE_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "api-token",
			Usage:       "Bearer token required by the answer API (disabled when empty)",
			Category:    "Authentication",
			Sources:     cli.EnvVars("HUDDLE_API_TOKEN"),
			Destination: &apiToken,
		},
		&cli.DurationFlag{
			Name:        "poll-interval",
			Usage:       "Interval of polling the task queue for due tasks",
			Value:       time.Second,
			Category:    "Worker",
			Sources:     cli.EnvVars("HUDDLE_POLL_INTERVAL"),
			Destination: &pollInterval,
		},
		&cli.IntFlag{
			Name:        "worker-concurrency",
			Usage:       "Maximum number of tasks executed at once",
			Value:       8,
			Category:    "Worker",
			Sources:     cli.EnvVars("HUDDLE_WORKER_CONCURRENCY"),
			Destination: &concurrency,
		},
	}
	flags = append(flags, rtCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Run the task workers and the answer API",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			rt, err := rtCfg.build(ctx, version,
				scheduler.WithPollInterval(pollInterval),
				scheduler.WithConcurrency(concurrency),
			)
			if err != nil {
				return err
			}
			defer rt.Close()

			if apiToken == "" {
				logging.Default().Warn("Answer API is not protected by a token")
			}

			httpHandler := httpctrl.New(rt.uc.Lifecycle,
				httpctrl.WithMetrics(rt.metrics.Handler()),
				httpctrl.WithAPIToken(apiToken),
			)
			server := &http.Server{
				Addr:              addr,
				Handler:           httpHandler,
				ReadHeaderTimeout: 30 * time.Second,
			}

			workerCtx, cancelWorkers := context.WithCancel(context.Background())
			defer cancelWorkers()
			if err := rt.scheduler.Start(workerCtx); err != nil {
				return goerr.Wrap(err, "failed to start task scheduler")
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			var runErr error
			select {
			case runErr = <-errCh:
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)
			case <-ctx.Done():
				logging.Default().Info("Context cancelled, shutting down")
			}

			// Workers first so that no task is cut off by closing the repository
			rt.scheduler.Stop()
			cancelWorkers()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil && runErr == nil {
				runErr = goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			logging.Default().Info("Server shutdown completed")
			return runErr
		},
	}
}
