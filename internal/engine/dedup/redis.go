package dedup

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crimson-sun/flightwatch/internal/model"
)

const defaultPrefix = "flightwatch:reported:"

// Redis is a Store shared across restarts. Expiry is delegated to Redis TTLs.
type Redis struct {
	client redis.Cmdable
	prefix string
	window time.Duration
}

// RedisConfig configures a Redis store.
type RedisConfig struct {
	Prefix string // key prefix (default "flightwatch:reported:")
	Window time.Duration
}

// NewRedis creates a Redis-backed store.
func NewRedis(client redis.Cmdable, cfg RedisConfig) *Redis {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Redis{
		client: client,
		prefix: prefix,
		window: Config{Window: cfg.Window}.window(),
	}
}

func (r *Redis) redisKey(key model.EventKey) string {
	return r.prefix + key.String()
}

func (r *Redis) Seen(ctx context.Context, key model.EventKey) (bool, error) {
	n, err := r.client.Exists(ctx, r.redisKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("dedup redis: exists: %w", err)
	}
	return n > 0, nil
}

func (r *Redis) Mark(ctx context.Context, key model.EventKey, at time.Time) error {
	ttl := r.window - time.Since(at)
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, r.redisKey(key), strconv.FormatInt(at.Unix(), 10), ttl).Err(); err != nil {
		return fmt.Errorf("dedup redis: set: %w", err)
	}
	return nil
}

// Prune is a no-op; keys expire on their own.
func (r *Redis) Prune(context.Context, time.Time) (int, error) {
	return 0, nil
}

func (r *Redis) Len(ctx context.Context) (int, error) {
	var (
		cursor uint64
		n      int
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+"*", 200).Result()
		if err != nil {
			return 0, fmt.Errorf("dedup redis: scan: %w", err)
		}
		n += len(keys)
		cursor = next
		if cursor == 0 {
			return n, nil
		}
	}
}
