package rate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	rdb "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func exercise(t *testing.T, l Limiter) {
	t.Helper()
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		res, err := l.Allow(ctx, "reconcile:user_1")
		require.NoError(t, err)
		require.True(t, res.Allowed, "hit %d", i)
		require.Equal(t, int64(3-i), res.Remaining)
	}
	res, err := l.Allow(ctx, "reconcile:user_1")
	require.NoError(t, err)
	require.False(t, res.Allowed)
	require.Equal(t, int64(4), res.CurrentHits)
	require.Positive(t, res.RetryAfter)

	// otra key tiene su propia ventana
	res, err = l.Allow(ctx, "reconcile:user_2")
	require.NoError(t, err)
	require.True(t, res.Allowed)
}

func TestMemoryLimiter(t *testing.T) {
	exercise(t, NewMemoryLimiter(3, time.Hour))
}

func TestMemoryLimiter_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemoryLimiter(1, time.Minute).Allow(ctx, "k")
	require.ErrorIs(t, err, context.Canceled)
}

func TestRedisLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := rdb.NewClient(&rdb.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	exercise(t, NewRedisLimiter(client, "test:rl:", 3, time.Hour))

	keys := mr.Keys()
	require.Len(t, keys, 2)
	require.Positive(t, mr.TTL(keys[0]))
}

func TestRedisLimiter_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := rdb.NewClient(&rdb.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	_, err := NewRedisLimiter(client, "", 1, time.Minute).Allow(context.Background(), "k")
	require.Error(t, err)
}
