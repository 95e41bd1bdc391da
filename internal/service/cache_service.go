package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"engage/internal/domain"
	"engage/pkg/redis"
	"go.uber.org/zap"
)

// CacheService provides cache-aside reads and invalidation on top of Redis.
// A nil redis client turns every method into a pass-through.
type CacheService struct {
	redis          *redis.Client
	logger         *zap.Logger
	leaderboardTTL time.Duration
}

// NewCacheService creates a new cache service
func NewCacheService(redisClient *redis.Client, logger *zap.Logger, leaderboardTTL time.Duration) *CacheService {
	if leaderboardTTL <= 0 {
		leaderboardTTL = redis.TTLLeaderboard
	}
	return &CacheService{
		redis:          redisClient,
		logger:         logger,
		leaderboardTTL: leaderboardTTL,
	}
}

// Enabled reports whether a Redis client is configured
func (c *CacheService) Enabled() bool {
	return c != nil && c.redis != nil
}

// getOrLoad reads key as JSON, falling back to load on a miss, a Redis error or a corrupt entry.
// The loaded value is written back asynchronously.
func getOrLoad[T any](ctx context.Context, c *CacheService, key string, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, error) {
	if !c.Enabled() {
		return load(ctx)
	}

	cached, err := c.redis.Get(ctx, key)
	switch {
	case err == nil && cached != "":
		var v T
		if unmarshalErr := json.Unmarshal([]byte(cached), &v); unmarshalErr == nil {
			c.logger.Debug("Cache hit", zap.String("key", key))
			return v, nil
		} else {
			c.logger.Warn("Cache entry corrupted, falling back to database",
				zap.String("key", key),
				zap.Error(unmarshalErr))
		}
	case err != nil && !errors.Is(err, redis.ErrNil):
		c.logger.Warn("Cache error, falling back to database",
			zap.String("key", key),
			zap.Error(err))
	}

	c.logger.Debug("Cache miss", zap.String("key", key))
	v, err := load(ctx)
	if err != nil {
		return v, err
	}

	go c.setAsync(key, v, ttl)
	return v, nil
}

// standingsGen returns the current standings generation. It must be read before load
// runs, so a fill that races a change lands under the old generation. ok is false when
// Redis cannot answer and the cache should be skipped.
func (c *CacheService) standingsGen(ctx context.Context) (gen int64, ok bool) {
	val, err := c.redis.Get(ctx, c.redis.KeyBuilder.KeyStandingsGen())
	if errors.Is(err, redis.ErrNil) {
		return 0, true
	}
	if err != nil {
		c.logger.Warn("Standings generation unavailable, bypassing cache", zap.Error(err))
		return 0, false
	}
	gen, err = strconv.ParseInt(val, 10, 64)
	if err != nil {
		c.logger.Warn("Standings generation corrupted, bypassing cache", zap.String("value", val))
		return 0, false
	}
	return gen, true
}

// GetStandings returns cached standings or computes them with load
func (c *CacheService) GetStandings(ctx context.Context, q domain.LeaderboardQuery, window *time.Time, load func(ctx context.Context) (*domain.Standings, error)) (*domain.Standings, error) {
	if !c.Enabled() {
		return load(ctx)
	}
	gen, ok := c.standingsGen(ctx)
	if !ok {
		return load(ctx)
	}
	key := c.redis.KeyBuilder.KeyLeaderboard(gen, string(q.Mode), q.LeaderboardID, string(q.DateFilter), window)
	return getOrLoad(ctx, c, key, c.leaderboardTTL, load)
}

// GetCategories returns the cached category list or loads it
func (c *CacheService) GetCategories(ctx context.Context, load func(ctx context.Context) ([]domain.Leaderboard, error)) ([]domain.Leaderboard, error) {
	if !c.Enabled() {
		return load(ctx)
	}
	return getOrLoad(ctx, c, c.redis.KeyBuilder.KeyCategories(), redis.TTLCategories, load)
}

// GetTeamWithCache retrieves team detail with the cache-aside pattern
func (c *CacheService) GetTeamWithCache(ctx context.Context, teamID int64, load func(ctx context.Context) (*domain.TeamDetail, error)) (*domain.TeamDetail, error) {
	if !c.Enabled() {
		return load(ctx)
	}
	gen, ok := c.standingsGen(ctx)
	if !ok {
		return load(ctx)
	}
	return getOrLoad(ctx, c, c.redis.KeyBuilder.KeyTeamByID(gen, teamID), redis.TTLTeamByID, load)
}

// GetUnreadCount returns the cached unread notification count or loads it
func (c *CacheService) GetUnreadCount(ctx context.Context, userID int64, load func(ctx context.Context) (int, error)) (int, error) {
	if !c.Enabled() {
		return load(ctx)
	}

	key := c.redis.KeyBuilder.KeyUnreadCount(userID)
	if cached, err := c.redis.Get(ctx, key); err == nil {
		if n, convErr := strconv.Atoi(cached); convErr == nil {
			return n, nil
		}
	}

	n, err := load(ctx)
	if err != nil {
		return 0, err
	}
	if err := c.redis.Set(ctx, key, n, redis.TTLUnreadCount); err != nil {
		c.logger.Warn("Failed to cache unread count", zap.Int64("user_id", userID), zap.Error(err))
	}
	return n, nil
}

// AcquireAwardLock claims the (user, activity) award slot for a short TTL. It returns
// false when another request holds it. Redis failures never block an award because
// the participation unique constraint is the real guard.
func (c *CacheService) AcquireAwardLock(ctx context.Context, userID, activityID int64) (release func(), ok bool) {
	noop := func() {}
	if !c.Enabled() {
		return noop, true
	}

	key := c.redis.KeyBuilder.KeyAwardLock(userID, activityID)
	acquired, err := c.redis.SetNX(ctx, key, "1", redis.TTLAwardLock)
	if err != nil {
		c.logger.Warn("Award lock unavailable, continuing without it",
			zap.Int64("user_id", userID),
			zap.Int64("activity_id", activityID),
			zap.Error(err))
		return noop, true
	}
	if !acquired {
		return noop, false
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := c.redis.Delete(ctx, key); err != nil {
			c.logger.Warn("Failed to release award lock", zap.String("key", key), zap.Error(err))
		}
	}, true
}

// InvalidateLeaderboards retires every cached standings entry and team detail before it
// returns. Team details carry the monthly rank, so they share the standings generation.
// Call it after the change has committed.
func (c *CacheService) InvalidateLeaderboards(ctx context.Context) {
	if !c.Enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	gen, err := c.redis.Incr(ctx, c.redis.KeyBuilder.KeyStandingsGen())
	if err == nil {
		c.logger.Debug("Standings generation advanced", zap.Int64("generation", gen))
		return
	}
	c.logger.Error("Failed to advance standings generation, deleting entries instead", zap.Error(err))

	kb := c.redis.KeyBuilder
	for _, pattern := range []string{kb.KeyLeaderboardAll(), kb.KeyTeamAll()} {
		n, err := c.redis.InvalidatePattern(ctx, pattern)
		if err != nil {
			c.logger.Error("Failed to invalidate cache pattern", zap.String("pattern", pattern), zap.Error(err))
			continue
		}
		c.logger.Debug("Cache pattern invalidated", zap.String("pattern", pattern), zap.Int("keys", n))
	}
}

// InvalidateTeam retires a cached team detail along with all standings
func (c *CacheService) InvalidateTeam(ctx context.Context, teamID int64) {
	if !c.Enabled() {
		return
	}
	c.logger.Debug("Invalidating team caches", zap.Int64("team_id", teamID))
	c.InvalidateLeaderboards(ctx)
}

// InvalidateCategories drops the cached category list
func (c *CacheService) InvalidateCategories() {
	c.invalidateKeys("categories", func(kb *redis.KeyBuilder) []string {
		return []string{kb.KeyCategories()}
	})
}

// InvalidateUnread drops the cached unread count of a user
func (c *CacheService) InvalidateUnread(userID int64) {
	c.invalidateKeys(fmt.Sprintf("unread %d", userID), func(kb *redis.KeyBuilder) []string {
		return []string{kb.KeyUnreadCount(userID)}
	})
}

func (c *CacheService) invalidateKeys(what string, keys func(kb *redis.KeyBuilder) []string) {
	if !c.Enabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := c.redis.Delete(ctx, keys(c.redis.KeyBuilder)...); err != nil {
			c.logger.Error("Failed to invalidate cache", zap.String("entry", what), zap.Error(err))
		}
	}()
}

// MarkLifecycleRun records when the maintenance worker last completed a pass
func (c *CacheService) MarkLifecycleRun(ctx context.Context, at time.Time) {
	if !c.Enabled() {
		return
	}
	key := c.redis.KeyBuilder.KeyLifecycleLastRun()
	if err := c.redis.Set(ctx, key, at.Unix(), redis.TTLLifecycleMark); err != nil {
		c.logger.Warn("Failed to record lifecycle run", zap.Error(err))
	}
}

// LastLifecycleRun returns the time of the last completed maintenance pass, if known
func (c *CacheService) LastLifecycleRun(ctx context.Context) (time.Time, bool) {
	if !c.Enabled() {
		return time.Time{}, false
	}
	val, err := c.redis.Get(ctx, c.redis.KeyBuilder.KeyLifecycleLastRun())
	if err != nil {
		return time.Time{}, false
	}
	unix, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(unix, 0), true
}

// HealthCheck performs a health check on the cache system
func (c *CacheService) HealthCheck(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}

	start := time.Now()
	err := c.redis.Health(ctx)
	duration := time.Since(start)

	if err != nil {
		c.logger.Error("Cache health check failed",
			zap.Duration("duration", duration),
			zap.Error(err))
		return err
	}

	c.logger.Debug("Cache health check passed", zap.Duration("duration", duration))
	return nil
}

func (c *CacheService) setAsync(key string, v any, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to marshal value for caching", zap.String("key", key), zap.Error(err))
		return
	}

	if err := c.redis.Set(ctx, key, string(data), ttl); err != nil {
		c.logger.Error("Failed to cache value", zap.String("key", key), zap.Error(err))
	} else {
		c.logger.Debug("Value cached successfully", zap.String("key", key))
	}
}
