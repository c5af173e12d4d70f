package config

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/huddle/pkg/domain/interfaces"
	"github.com/secmon-lab/huddle/pkg/service/queue/memory"
	"github.com/secmon-lab/huddle/pkg/service/queue/redis"
	"github.com/secmon-lab/huddle/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const (
	QueueBackendMemory = "memory"
	QueueBackendRedis  = "redis"
)

// Queue holds CLI flags for the delayed task queue
type Queue struct {
	backend  string
	redisURL string
	prefix   string
}

func (x *Queue) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "queue-backend",
			Usage:       "Task queue backend (redis or memory)",
			Value:       QueueBackendMemory,
			Category:    "Queue",
			Sources:     cli.EnvVars("HUDDLE_QUEUE_BACKEND"),
			Destination: &x.backend,
		},
		&cli.StringFlag{
			Name:        "redis-url",
			Usage:       "Redis URL, e.g. redis://:password@localhost:6379/0",
			Category:    "Queue",
			Sources:     cli.EnvVars("HUDDLE_REDIS_URL"),
			Destination: &x.redisURL,
		},
		&cli.StringFlag{
			Name:        "redis-prefix",
			Usage:       "Prefix of the Redis keys used by the queue",
			Value:       "huddle",
			Category:    "Queue",
			Sources:     cli.EnvVars("HUDDLE_REDIS_PREFIX"),
			Destination: &x.prefix,
		},
	}
}

func (x Queue) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", x.backend),
		slog.String("redis-url", redactURL(x.redisURL)),
		slog.String("redis-prefix", x.prefix),
	)
}

// redactURL hides the password of a URL
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "[invalid]"
	}
	return u.Redacted()
}

// Backend returns the configured queue backend
func (x *Queue) Backend() string {
	return x.backend
}

// Configure opens the queue. The caller is responsible for calling Close().
func (x *Queue) Configure(ctx context.Context) (interfaces.TaskQueue, error) {
	switch x.backend {
	case QueueBackendRedis:
		if x.redisURL == "" {
			return nil, goerr.Wrap(ErrInvalidConfig, "redis-url is required when using redis queue")
		}
		q, err := redis.New(ctx, x.redisURL, redis.WithPrefix(x.prefix))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize redis queue")
		}
		logging.Default().Info("Using Redis task queue", "url", redactURL(x.redisURL), "prefix", x.prefix)
		return q, nil

	case QueueBackendMemory:
		logging.Default().Info("Using in-memory task queue (single process only)")
		return memory.New(), nil

	default:
		return nil, goerr.Wrap(ErrInvalidConfig, "invalid queue backend", goerr.V(BackendKey, x.backend))
	}
}
