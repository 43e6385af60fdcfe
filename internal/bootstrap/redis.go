package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis dataset source.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
	Timeout  time.Duration
}

// RedisSource reads a dataset document stored under a single key.
type RedisSource struct {
	client  *redis.Client
	key     string
	timeout time.Duration
}

// NewRedisSource constructs a Redis-backed source. The connection is not
// checked until Fetch so an unreachable server only fails its own link.
func NewRedisSource(cfg RedisConfig) *RedisSource {
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = "127.0.0.1:6379"
	}
	if strings.TrimSpace(cfg.Key) == "" {
		cfg.Key = "cybersentinel:dataset"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisSource{client: client, key: strings.TrimSpace(cfg.Key), timeout: cfg.Timeout}
}

func (s *RedisSource) Name() string { return "redis" }

func (s *RedisSource) Fetch(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("key %s not set", s.key)
	}
	if err != nil {
		return nil, fmt.Errorf("read dataset key %s: %w", s.key, err)
	}
	return raw, nil
}

// Store writes raw under the source key after validating it.
func (s *RedisSource) Store(ctx context.Context, raw []byte) error {
	if err := Validate(raw); err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("write dataset key %s: %w", s.key, err)
	}
	return nil
}

// Close closes Redis resources.
func (s *RedisSource) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
