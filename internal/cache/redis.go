package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oggyb/matcha/internal/config"
	"github.com/oggyb/matcha/internal/metrics"
)

// CounterTTL bounds how long a cached counter may live without being touched.
const CounterTTL = time.Hour

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.Client.Del(ctx, keys...).Err()
}

// KeyForUnreadNotifications generates Redis key for a user's unread notification count.
func (c *RedisCache) KeyForUnreadNotifications(userID uint64) string {
	return fmt.Sprintf("notifications:unread:%d", userID)
}

// KeyForVisit generates the dedup key of one ordered (visitor, visited) pair.
func (c *RedisCache) KeyForVisit(visitorID, visitedID uint64) string {
	return fmt.Sprintf("visits:seen:%d:%d", visitorID, visitedID)
}

// GetUnreadNotifications returns the cached counter. ok is false on a miss.
// A hit refreshes the TTL since the user is active.
func (c *RedisCache) GetUnreadNotifications(ctx context.Context, userID uint64) (n int64, ok bool, err error) {
	key := c.KeyForUnreadNotifications(userID)
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		metrics.CacheRequests.WithLabelValues("notifications_unread", "miss").Inc()
		return 0, false, nil
	} else if err != nil {
		metrics.CacheRequests.WithLabelValues("notifications_unread", "error").Inc()
		return 0, false, err
	}

	n, err = strconv.ParseInt(val, 10, 64)
	if err != nil {
		// corrupt entry, treat as miss and let the caller repopulate
		_ = c.Client.Del(ctx, key).Err()
		metrics.CacheRequests.WithLabelValues("notifications_unread", "miss").Inc()
		return 0, false, nil
	}

	_ = c.Client.Expire(ctx, key, CounterTTL).Err()
	metrics.CacheRequests.WithLabelValues("notifications_unread", "hit").Inc()
	return n, true, nil
}

// SetUnreadNotifications stores the counter, always refreshing TTL.
func (c *RedisCache) SetUnreadNotifications(ctx context.Context, userID uint64, n int64) error {
	return c.Client.Set(ctx, c.KeyForUnreadNotifications(userID), n, CounterTTL).Err()
}

// InvalidateUnreadNotifications drops the cached counters of the given users.
func (c *RedisCache) InvalidateUnreadNotifications(ctx context.Context, userIDs ...uint64) error {
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, c.KeyForUnreadNotifications(id))
	}
	return c.Del(ctx, keys...)
}

// ClaimVisit atomically claims the dedup window of a visitor -> visited pair.
// It returns true for the first caller within window and false afterwards.
func (c *RedisCache) ClaimVisit(ctx context.Context, visitorID, visitedID uint64, window time.Duration) (bool, error) {
	claimed, err := c.Client.SetNX(ctx, c.KeyForVisit(visitorID, visitedID), time.Now().Unix(), window).Result()
	if err != nil {
		metrics.CacheRequests.WithLabelValues("visits", "error").Inc()
		return false, err
	}
	if claimed {
		metrics.CacheRequests.WithLabelValues("visits", "miss").Inc()
	} else {
		metrics.CacheRequests.WithLabelValues("visits", "hit").Inc()
	}
	return claimed, nil
}

// ReleaseVisit gives the window back, used when recording the visit failed.
func (c *RedisCache) ReleaseVisit(ctx context.Context, visitorID, visitedID uint64) error {
	return c.Del(ctx, c.KeyForVisit(visitorID, visitedID))
}
