// Package cache provides the Redis dependency, instrumented through the
// same query recorder as the SQL store.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"storefront/beacon/pkg/config"
	"storefront/beacon/pkg/telemetry/metrics"
)

// Model is the model label of every Redis command.
const Model = "redis"

// Error types recorded in db_query_errors_total.
const (
	ErrorTypeTimeout  = "timeout"
	ErrorTypeCanceled = "canceled"
	ErrorTypeCommand  = "command_error"
)

// Cache is a Redis client whose commands are timed into a QueryRecorder.
type Cache struct {
	client   *redis.Client
	recorder metrics.QueryRecorder
	logger   *slog.Logger
}

// New creates a Cache from cfg. recorder may be nil. The connection is
// established lazily on the first command.
func New(cfg *config.RedisConfig, recorder metrics.QueryRecorder) (*Cache, error) {
	if cfg == nil {
		return nil, errors.New("redis config is nil")
	}
	if cfg.Address == "" {
		return nil, errors.New("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Address,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	c := NewWithClient(client, recorder)
	c.logger.Info("Redis client created", "address", cfg.Address, "db", cfg.DB)
	return c, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, recorder metrics.QueryRecorder) *Cache {
	return &Cache{
		client:   client,
		recorder: recorder,
		logger:   slog.Default().With("component", "cache.redis"),
	}
}

// Ping checks the connection. It implements health.Pinger.
func (c *Cache) Ping(ctx context.Context) error {
	start := time.Now()
	err := c.client.Ping(ctx).Err()
	c.record("ping", start, err)
	if err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Get returns the value of key. A missing key is reported as found=false
// and is not an error.
func (c *Cache) Get(ctx context.Context, key string) (value string, found bool, err error) {
	start := time.Now()
	value, err = c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		c.record("get", start, nil)
		return "", false, nil
	}
	c.record("get", start, err)
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set stores value under key. A zero ttl means no expiry.
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	start := time.Now()
	err := c.client.Set(ctx, key, value, ttl).Err()
	c.record("set", start, err)
	return err
}

// Incr increments the integer stored at key.
func (c *Cache) Incr(ctx context.Context, key string) (int64, error) {
	start := time.Now()
	n, err := c.client.Incr(ctx, key).Result()
	c.record("incr", start, err)
	return n, err
}

// Del removes keys and returns how many existed.
func (c *Cache) Del(ctx context.Context, keys ...string) (int64, error) {
	start := time.Now()
	n, err := c.client.Del(ctx, keys...).Result()
	c.record("del", start, err)
	return n, err
}

// Close closes the client.
func (c *Cache) Close() error {
	return c.client.Close()
}

func (c *Cache) record(operation string, start time.Time, err error) {
	if c.recorder == nil {
		return
	}
	c.recorder.RecordDatabaseQuery(operation, Model, time.Since(start), ErrorType(err))
}

// ErrorType maps a command error to its metric label. It returns "" for nil.
func ErrorType(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return ErrorTypeCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTypeTimeout
	}
	return ErrorTypeCommand
}
