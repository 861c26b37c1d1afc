package alertgate

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisConfig configures Redis access for cooldown persistence.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisStore keeps cooldown stamps in Redis so multiple riskgate instances
// share one gate. SET NX with a TTL equal to the cooldown window makes the
// check-and-update a single atomic command, and a suppressed acquire leaves
// the existing key (and its expiry) untouched.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore constructs a Redis-backed cooldown store.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = "127.0.0.1:6379"
	}
	if strings.TrimSpace(cfg.KeyPrefix) == "" {
		cfg.KeyPrefix = "riskgate:cooldown"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis cooldown store: %w", err)
	}

	return &RedisStore{client: client, prefix: strings.TrimSpace(cfg.KeyPrefix)}, nil
}

// Acquire implements CooldownStore.
func (s *RedisStore) Acquire(key string, now time.Time, cooldown time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ok, err := s.client.SetNX(ctx, s.prefix+":"+key, now.Unix(), cooldown).Result()
	if err != nil {
		return false, fmt.Errorf("set cooldown key: %w", err)
	}
	return ok, nil
}

// Close closes Redis resources.
func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
