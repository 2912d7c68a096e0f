package dedupe

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"buyScope/internal/model"
)

// RedisConfig holds connection parameters for the shared guard.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// Redis is a guard shared by every process pointed at the same server.
// Expiry is delegated to key TTLs.
type Redis struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return NewRedisWithClient(rdb, cfg.Prefix, cfg.TTL), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(rdb *redis.Client, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = "buyscope:seen:"
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (r *Redis) key(key model.EventKey) string {
	return r.prefix + key.String()
}

func (r *Redis) IsDuplicate(ctx context.Context, key model.EventKey) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis: exists %s: %w", key, err)
	}
	return n > 0, nil
}

func (r *Redis) MarkSeen(ctx context.Context, key model.EventKey) error {
	if err := r.rdb.Set(ctx, r.key(key), 1, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis: mark %s: %w", key, err)
	}
	return nil
}

func (r *Redis) HandleReorg(ctx context.Context, key model.EventKey) error {
	if err := r.rdb.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis: forget %s: %w", key, err)
	}
	return nil
}

func (r *Redis) CheckAndMark(ctx context.Context, key model.EventKey) (bool, error) {
	ok, err := r.rdb.SetNX(ctx, r.key(key), 1, r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis: check-and-mark %s: %w", key, err)
	}
	return ok, nil
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
