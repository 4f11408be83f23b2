// Package rate limita intentos por key con ventana fija.
package rate

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	rdb "github.com/redis/go-redis/v9"
)

type Result struct {
	Allowed     bool
	Remaining   int64
	RetryAfter  time.Duration
	CurrentHits int64
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// RedisLimiter: fixed window compartido entre réplicas (INCR + EXPIRE)
type RedisLimiter struct {
	client rdb.UniversalClient
	prefix string
	max    int64
	window time.Duration
}

func NewRedisLimiter(client rdb.UniversalClient, prefix string, max int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisLimiter{client: client, prefix: prefix, max: int64(max), window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	winStart := time.Now().UTC().Truncate(l.window)
	redisKey := fmt.Sprintf("%s%s:%d", l.prefix, strings.ReplaceAll(key, " ", "_"), winStart.Unix())

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttl := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}

	// expiry en el primer hit
	if incr.Val() == 1 {
		_ = l.client.Expire(ctx, redisKey, l.window).Err()
		ttl = l.client.TTL(ctx, redisKey)
	}

	res := result(incr.Val(), l.max)
	if !res.Allowed {
		res.RetryAfter = ttl.Val()
		if res.RetryAfter < 0 {
			res.RetryAfter = time.Duration(math.Ceil(l.window.Seconds())) * time.Second
		}
	}
	return res, nil
}

// MemoryLimiter misma ventana fija en proceso (una sola réplica o dev).
type MemoryLimiter struct {
	c      *gocache.Cache
	max    int64
	window time.Duration
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{c: gocache.New(window, 2*window), max: int64(max), window: window}
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	now := time.Now().UTC()
	winStart := now.Truncate(l.window)
	k := key + ":" + strconv.FormatInt(winStart.Unix(), 10)

	hits := int64(1)
	if err := l.c.Add(k, hits, l.window); err != nil {
		n, err := l.c.IncrementInt64(k, 1)
		if err != nil {
			// expiró entre Add e Increment
			l.c.Set(k, hits, l.window)
		} else {
			hits = n
		}
	}

	res := result(hits, l.max)
	if !res.Allowed {
		res.RetryAfter = winStart.Add(l.window).Sub(now)
	}
	return res, nil
}

func result(hits, max int64) Result {
	remaining := max - hits
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: hits <= max, Remaining: remaining, CurrentHits: hits}
}
