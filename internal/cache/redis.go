package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisClient implementa Client usando Redis.
type redisClient struct {
	client     *redis.Client
	prefix     string
	defaultTTL time.Duration
}

// RedisOptions arma las opciones de conexión. RedisAddr acepta "host:port" o
// una URL redis://.
func RedisOptions(cfg Config) (*redis.Options, error) {
	if strings.HasPrefix(cfg.RedisAddr, "redis://") || strings.HasPrefix(cfg.RedisAddr, "rediss://") {
		o, err := redis.ParseURL(cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("cache: invalid redis url: %w", err)
		}
		return o, nil
	}
	addr := cfg.RedisAddr
	if addr == "" {
		addr = "localhost:6379"
	}
	return &redis.Options{Addr: addr, DB: cfg.RedisDB}, nil
}

// NewRedis crea un cliente Redis y verifica la conexión (timeout 5s).
func NewRedis(ctx context.Context, cfg Config) (Client, error) {
	opts, err := RedisOptions(cfg)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opts)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cache: redis ping failed: %w", err)
	}

	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &redisClient{client: rdb, prefix: cfg.Prefix, defaultTTL: ttl}, nil
}

func (c *redisClient) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.client.Get(ctx, prefixed(c.prefix, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (c *redisClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	return c.client.Set(ctx, prefixed(c.prefix, key), value, ttl).Err()
}

func (c *redisClient) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, prefixed(c.prefix, k))
	}
	return c.client.Del(ctx, full...).Err()
}

func (c *redisClient) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *redisClient) Close() error {
	return c.client.Close()
}
