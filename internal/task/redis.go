package task

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/sells-group/competitor-research/internal/model"
)

const defaultStatusTTL = 24 * time.Hour

func statusKey(taskID string) string { return "research:task:" + taskID }

// NewRedisClient creates a go-redis client with short timeouts so a slow
// mirror cannot stall a workflow.
func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
		PoolSize:     10,
	})
}

// RedisWriter mirrors task status into Redis with a TTL so external
// dashboards can poll it.
type RedisWriter struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisWriter creates a RedisWriter. A non-positive ttl uses 24h.
func NewRedisWriter(client redis.Cmdable, ttl time.Duration) *RedisWriter {
	if ttl <= 0 {
		ttl = defaultStatusTTL
	}
	return &RedisWriter{client: client, ttl: ttl}
}

// UpsertTaskStatus implements StatusWriter.
func (w *RedisWriter) UpsertTaskStatus(ctx context.Context, t model.Task) error {
	data, err := json.Marshal(t)
	if err != nil {
		return eris.Wrap(err, "redis: marshal task")
	}
	if err := w.client.Set(ctx, statusKey(t.ID), data, w.ttl).Err(); err != nil {
		return eris.Wrapf(err, "redis: set status for %s", t.ID)
	}
	return nil
}
