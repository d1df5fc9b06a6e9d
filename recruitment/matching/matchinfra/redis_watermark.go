package matchinfra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultWatermarkKey stores the start time of the last incremental run
const DefaultWatermarkKey = "relay-match:incremental:last-run"

// RedisWatermark implements matching.WatermarkStore on a single Redis key
type RedisWatermark struct {
	client *redis.Client
	key    string
}

func NewRedisWatermark(client *redis.Client, key string) *RedisWatermark {
	if key == "" {
		key = DefaultWatermarkKey
	}
	return &RedisWatermark{client: client, key: key}
}

// LastRun returns the zero time when no run was recorded
func (w *RedisWatermark) LastRun(ctx context.Context) (time.Time, error) {
	raw, err := w.client.Get(ctx, w.key).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read watermark: %w", err)
	}

	at, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse watermark %q: %w", raw, err)
	}
	return at, nil
}

func (w *RedisWatermark) SetLastRun(ctx context.Context, at time.Time) error {
	if err := w.client.Set(ctx, w.key, at.UTC().Format(time.RFC3339Nano), 0).Err(); err != nil {
		return fmt.Errorf("failed to store watermark: %w", err)
	}
	return nil
}
