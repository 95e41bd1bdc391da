package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Client struct {
	rdb        *redis.Client
	KeyBuilder *KeyBuilder
	log        *zap.Logger
}

// Cache key patterns (before environment prefixing)
const (
	KeyStandingsGen     = "standings:gen"
	KeyLeaderboard      = "leaderboard:%d:%s:%s:%s:%s" // leaderboard:{gen}:{mode}:{category}:{filter}:{window}
	KeyLeaderboardAll   = "leaderboard:*"
	KeyCategories       = "leaderboards:all"
	KeyTeamByID         = "team:%d:%d" // team:{gen}:{teamID}
	KeyTeamAll          = "team:*"
	KeyAwardLock        = "award:lock:%d:%d" // award:lock:{userID}:{activityID}
	KeyUnreadCount      = "notifications:%d:unread"
	KeyLifecycleLastRun = "lifecycle:last_run"
)

// TTL constants
const (
	TTLLeaderboard   = 30 * time.Second
	TTLCategories    = 10 * time.Minute
	TTLTeamByID      = 5 * time.Minute
	TTLAwardLock     = 10 * time.Second
	TTLUnreadCount   = 5 * time.Minute
	TTLLifecycleMark = 24 * time.Hour
)

// ErrNil is returned by Get on a cache miss.
var ErrNil = redis.Nil

// NewClient creates a new Redis client
func NewClient(redisURL string, environment string, log *zap.Logger) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = 20
	opts.MinIdleConns = 2
	opts.MaxRetries = 3
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if log == nil {
		log = zap.NewNop()
	}

	return &Client{rdb: rdb, KeyBuilder: NewKeyBuilder(environment), log: log}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

// Get retrieves a value from Redis. A miss returns ErrNil.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	start := time.Now()
	val, err := c.rdb.Get(ctx, key).Result()
	c.trace("redis_get", key, start, err, errors.Is(err, redis.Nil))
	return val, err
}

// Set stores a value in Redis with TTL
func (c *Client) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	start := time.Now()
	err := c.rdb.Set(ctx, key, value, ttl).Err()
	c.trace("redis_set", key, start, err, false)
	return err
}

// SetNX sets a value only if the key does not exist yet.
func (c *Client) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	start := time.Now()
	ok, err := c.rdb.SetNX(ctx, key, value, ttl).Result()
	c.trace("redis_setnx", key, start, err, false)
	return ok, err
}

// Incr atomically increments the integer stored at key and returns the new value
func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	start := time.Now()
	n, err := c.rdb.Incr(ctx, key).Result()
	c.trace("redis_incr", key, start, err, false)
	return n, err
}

// Delete removes keys from Redis
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	start := time.Now()
	err := c.rdb.Del(ctx, keys...).Err()
	c.log.Debug("redis_del",
		zap.Int("keys", len(keys)),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err))
	return err
}

// Exists counts how many of keys exist
func (c *Client) Exists(ctx context.Context, keys ...string) (int64, error) {
	start := time.Now()
	n, err := c.rdb.Exists(ctx, keys...).Result()
	c.log.Debug("redis_exists",
		zap.Int64("result", n),
		zap.Int("keys", len(keys)),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err))
	return n, err
}

// Health checks the Redis connection
func (c *Client) Health(ctx context.Context) error {
	start := time.Now()
	err := c.rdb.Ping(ctx).Err()
	c.trace("redis_ping", "", start, err, false)
	return err
}

// InvalidatePattern removes keys matching a pattern. SCAN is used so large
// keyspaces are walked incrementally.
func (c *Client) InvalidatePattern(ctx context.Context, pattern string) (int, error) {
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	batch := make([]string, 0, 100)
	deleted := 0

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := c.rdb.Del(ctx, batch...).Err(); err != nil {
				return deleted, err
			}
			deleted += len(batch)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, err
	}
	if len(batch) > 0 {
		if err := c.rdb.Del(ctx, batch...).Err(); err != nil {
			return deleted, err
		}
		deleted += len(batch)
	}
	return deleted, nil
}

// Pipeline creates a new pipeline for batch operations
func (c *Client) Pipeline() redis.Pipeliner {
	return c.rdb.Pipeline()
}

// trace logs failures at info and everything else at debug.
func (c *Client) trace(op, key string, start time.Time, err error, miss bool) {
	fields := []zap.Field{
		zap.String("key_prefix", prefixForLog(key)),
		zap.Duration("duration", time.Since(start)),
	}
	if miss {
		fields = append(fields, zap.Bool("miss", true))
	}
	if err != nil && !miss {
		c.log.Info(op, append(fields, zap.Error(err))...)
		return
	}
	c.log.Debug(op, fields...)
}

// prefixForLog returns a safe prefix of a key to avoid logging PII
func prefixForLog(key string) string {
	if len(key) <= 24 {
		return key
	}
	return key[:24] + "…"
}
