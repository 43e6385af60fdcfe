// Package redis carries workflow commands over a Redis list. Producers
// RPUSH, the server BLPOPs, so commands are handled in arrival order.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Config configures the Redis command queue.
type Config struct {
	Addr         string
	Password     string
	DB           int
	Key          string
	BlockTimeout time.Duration
}

// Queue is a list-backed command queue.
type Queue struct {
	client  *redis.Client
	key     string
	timeout time.Duration
}

// NewQueue creates a queue client. No connection is made until first use.
func NewQueue(cfg Config) (*Queue, error) {
	if cfg.Key == "" {
		return nil, fmt.Errorf("redis key is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:6379"
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = 5 * time.Second
	}
	return &Queue{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		key:     cfg.Key,
		timeout: cfg.BlockTimeout,
	}, nil
}

// Key returns the list key.
func (q *Queue) Key() string { return q.key }

// Pop waits up to the block timeout for one command. It returns nil, nil
// when nothing arrived.
func (q *Queue) Pop(ctx context.Context) ([]byte, error) {
	res, err := q.client.BLPop(ctx, q.timeout, q.key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("pop from %s: %w", q.key, err)
	case len(res) < 2:
		return nil, nil
	}
	return []byte(res[1]), nil
}

// Push appends one command and returns the queue depth after the push.
func (q *Queue) Push(ctx context.Context, payload []byte) (int64, error) {
	n, err := q.client.RPush(ctx, q.key, payload).Result()
	if err != nil {
		return 0, fmt.Errorf("push to %s: %w", q.key, err)
	}
	return n, nil
}

// Len reports how many commands are waiting.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("length of %s: %w", q.key, err)
	}
	return n, nil
}

// Close closes the client.
func (q *Queue) Close() error {
	return q.client.Close()
}
