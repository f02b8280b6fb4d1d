package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"shop-service/internal/ratelimit"
	"shop-service/pkg/testutil"

	"github.com/stretchr/testify/require"
)

func TestRedisLimiter(t *testing.T) {
	rdb := testutil.SetupTestRedis(t)
	l := ratelimit.NewRedisLimiter(rdb, "rl:test:")
	ctx := context.Background()
	limit := ratelimit.Limit{Rate: 2, Period: time.Minute, Burst: 2}

	for i := 0; i < 2; i++ {
		res, err := l.Allow(ctx, "user-1", limit)
		require.NoError(t, err)
		require.True(t, res.Allowed)
	}
	res, err := l.Allow(ctx, "user-1", limit)
	require.NoError(t, err)
	require.False(t, res.Allowed)
	require.True(t, res.RetryAfter > 0)

	// ключи независимы
	res, err = l.Allow(ctx, "user-2", limit)
	require.NoError(t, err)
	require.True(t, res.Allowed)
}

func TestPerMinute(t *testing.T) {
	require.Equal(t, ratelimit.Limit{Rate: 5, Period: time.Minute, Burst: 5}, ratelimit.PerMinute(5))
}
