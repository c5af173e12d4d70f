package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/m-mizutani/goerr/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/secmon-lab/huddle/pkg/domain/interfaces"
	"github.com/secmon-lab/huddle/pkg/domain/model"
)

const defaultPrefix = "huddle:queue"

// Queue is a TaskQueue shared by all processes connected to the same Redis.
//
// Layout under the prefix:
//
//	schedule        zset  key -> runAt (unix ms)
//	tasks           hash  key -> task JSON
//	inflight        zset  key -> visibility deadline (unix ms)
//	inflight_tasks  hash  key -> task JSON
type Queue struct {
	client *goredis.Client
	keys   []string
}

var _ interfaces.TaskQueue = &Queue{}

type Option func(*Queue)

func WithPrefix(prefix string) Option {
	return func(q *Queue) {
		q.keys = buildKeys(prefix)
	}
}

func buildKeys(prefix string) []string {
	return []string{
		prefix + ":schedule",
		prefix + ":tasks",
		prefix + ":inflight",
		prefix + ":inflight_tasks",
	}
}

// New connects to the Redis server at url, e.g. redis://localhost:6379/0
func New(ctx context.Context, url string, opts ...Option) (*Queue, error) {
	opt, err := goredis.ParseURL(url)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse redis URL")
	}

	client := goredis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, goerr.Wrap(err, "failed to connect to redis", goerr.V("addr", opt.Addr))
	}
	return NewWithClient(client, opts...), nil
}

// NewWithClient wraps an existing client. Close closes the client.
func NewWithClient(client *goredis.Client, opts ...Option) *Queue {
	q := &Queue{client: client, keys: buildKeys(defaultPrefix)}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *Queue) schedule() string      { return q.keys[0] }
func (q *Queue) tasks() string         { return q.keys[1] }
func (q *Queue) inflight() string      { return q.keys[2] }
func (q *Queue) inflightTasks() string { return q.keys[3] }

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}

func (q *Queue) Enqueue(ctx context.Context, task *model.Task) error {
	if task == nil || task.Key == "" {
		return goerr.New("task key is required")
	}

	raw, err := json.Marshal(task)
	if err != nil {
		return goerr.Wrap(err, "failed to encode task", goerr.V("key", task.Key))
	}

	_, err = q.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, q.tasks(), task.Key, raw)
		pipe.ZAdd(ctx, q.schedule(), goredis.Z{Score: score(task.RunAt), Member: task.Key})
		return nil
	})
	if err != nil {
		return goerr.Wrap(err, "failed to enqueue task", goerr.V("key", task.Key))
	}
	return nil
}

func (q *Queue) Cancel(ctx context.Context, key string) error {
	_, err := q.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.ZRem(ctx, q.schedule(), key)
		pipe.HDel(ctx, q.tasks(), key)
		return nil
	})
	if err != nil {
		return goerr.Wrap(err, "failed to cancel task", goerr.V("key", key))
	}
	return nil
}

// claimScript first returns expired claims to the schedule, then moves due
// tasks into the inflight set and returns their payloads.
var claimScript = goredis.NewScript(`
local now = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
local deadline = tonumber(ARGV[3])

local expired = redis.call('ZRANGEBYSCORE', KEYS[3], '-inf', now)
for _, k in ipairs(expired) do
  local data = redis.call('HGET', KEYS[4], k)
  redis.call('ZREM', KEYS[3], k)
  redis.call('HDEL', KEYS[4], k)
  if data and not redis.call('ZSCORE', KEYS[1], k) then
    redis.call('ZADD', KEYS[1], now, k)
    redis.call('HSET', KEYS[2], k, data)
  end
end

local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', now, 'LIMIT', 0, limit)
local out = {}
for _, k in ipairs(due) do
  if not redis.call('ZSCORE', KEYS[3], k) then
    local data = redis.call('HGET', KEYS[2], k)
    redis.call('ZREM', KEYS[1], k)
    redis.call('HDEL', KEYS[2], k)
    if data then
      redis.call('ZADD', KEYS[3], deadline, k)
      redis.call('HSET', KEYS[4], k, data)
      table.insert(out, data)
    end
  end
end
return out
`)

func (q *Queue) Claim(ctx context.Context, now time.Time, limit int, visibility time.Duration) ([]*model.Task, error) {
	raws, err := claimScript.Run(ctx, q.client, q.keys,
		now.UnixMilli(), limit, now.Add(visibility).UnixMilli()).StringSlice()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to claim tasks")
	}

	tasks := make([]*model.Task, 0, len(raws))
	for _, raw := range raws {
		var task model.Task
		if err := json.Unmarshal([]byte(raw), &task); err != nil {
			return nil, goerr.Wrap(err, "failed to decode claimed task", goerr.V("payload", raw))
		}
		tasks = append(tasks, &task)
	}
	return tasks, nil
}

func (q *Queue) Ack(ctx context.Context, task *model.Task) error {
	_, err := q.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.ZRem(ctx, q.inflight(), task.Key)
		pipe.HDel(ctx, q.inflightTasks(), task.Key)
		return nil
	})
	if err != nil {
		return goerr.Wrap(err, "failed to ack task", goerr.V("key", task.Key))
	}
	return nil
}

// retryScript drops the retry when a newer task with the same key is scheduled
var retryScript = goredis.NewScript(`
redis.call('ZREM', KEYS[3], ARGV[1])
redis.call('HDEL', KEYS[4], ARGV[1])
if redis.call('ZSCORE', KEYS[1], ARGV[1]) then
  return 0
end
redis.call('ZADD', KEYS[1], ARGV[2], ARGV[1])
redis.call('HSET', KEYS[2], ARGV[1], ARGV[3])
return 1
`)

func (q *Queue) Retry(ctx context.Context, task *model.Task, runAt time.Time) error {
	retried := task.Copy()
	retried.RunAt = runAt

	raw, err := json.Marshal(retried)
	if err != nil {
		return goerr.Wrap(err, "failed to encode task", goerr.V("key", task.Key))
	}

	if err := retryScript.Run(ctx, q.client, q.keys, task.Key, runAt.UnixMilli(), string(raw)).Err(); err != nil {
		return goerr.Wrap(err, "failed to retry task", goerr.V("key", task.Key))
	}
	return nil
}

func (q *Queue) Close() error {
	if err := q.client.Close(); err != nil {
		return goerr.Wrap(err, "failed to close redis client")
	}
	return nil
}
