// Package cache provee un cache key/value con soporte multi-backend.
//
// Soporta:
//   - memory (in-process, github.com/patrickmn/go-cache)
//   - redis  (compartido entre réplicas del gateway)
//
// Lo usa store.CachedUsers para evitar un round-trip al store en cada request
// autenticado.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Client define las operaciones de cache.
type Client interface {
	// Get obtiene un valor. Retorna ErrNotFound si no existe o expiró.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set guarda un valor. ttl 0 = TTL por defecto del backend.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete elimina una o más keys. Borrar una key inexistente no es error.
	Delete(ctx context.Context, keys ...string) error

	// Ping verifica la conexión.
	Ping(ctx context.Context) error

	// Close libera recursos.
	Close() error
}

// Config configuración para crear un cliente de cache.
type Config struct {
	Kind       string // "memory" | "redis"
	RedisAddr  string // host:port o redis://...
	RedisDB    int
	Prefix     string // prefijo para todas las keys
	DefaultTTL time.Duration
}

// ErrNotFound indica que la key no existe.
var ErrNotFound = errors.New("cache: key not found")

// IsNotFound verifica si el error es porque la key no existe.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// New crea un cliente según cfg.Kind.
func New(ctx context.Context, cfg Config) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "memory", "":
		return NewMemory(cfg.Prefix, cfg.DefaultTTL), nil
	case "redis":
		return NewRedis(ctx, cfg)
	default:
		return nil, fmt.Errorf("cache: unknown kind %q", cfg.Kind)
	}
}

func prefixed(prefix, k string) string {
	if prefix == "" {
		return k
	}
	return prefix + ":" + k
}
