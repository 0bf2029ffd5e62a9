package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/matcha/internal/cache"
	"github.com/oggyb/matcha/internal/config"
)

func setupCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	return cache.NewRedisCache(cfg), mr
}

func TestUnreadNotificationsRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, mr := setupCache(t)

	_, ok, err := c.GetUnreadNotifications(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok, "empty cache is a miss")

	require.NoError(t, c.SetUnreadNotifications(ctx, 7, 3))
	n, ok, err := c.GetUnreadNotifications(ctx, 7)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, cache.CounterTTL, mr.TTL(c.KeyForUnreadNotifications(7)))

	require.NoError(t, c.InvalidateUnreadNotifications(ctx, 7, 8))
	_, ok, err = c.GetUnreadNotifications(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnreadNotificationsCorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	c, mr := setupCache(t)

	require.NoError(t, mr.Set(c.KeyForUnreadNotifications(1), "garbage"))
	_, ok, err := c.GetUnreadNotifications(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists(c.KeyForUnreadNotifications(1)))
}

func TestClaimVisitWindow(t *testing.T) {
	ctx := context.Background()
	c, mr := setupCache(t)

	first, err := c.ClaimVisit(ctx, 1, 2, time.Hour)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := c.ClaimVisit(ctx, 1, 2, time.Hour)
	require.NoError(t, err)
	assert.False(t, again, "second visit inside the window is deduplicated")

	other, err := c.ClaimVisit(ctx, 2, 1, time.Hour)
	require.NoError(t, err)
	assert.True(t, other, "pairs are ordered")

	mr.FastForward(time.Hour + time.Second)
	later, err := c.ClaimVisit(ctx, 1, 2, time.Hour)
	require.NoError(t, err)
	assert.True(t, later, "window expired")

	require.NoError(t, c.ReleaseVisit(ctx, 1, 2))
	released, err := c.ClaimVisit(ctx, 1, 2, time.Hour)
	require.NoError(t, err)
	assert.True(t, released)
}
