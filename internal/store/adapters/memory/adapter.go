// Package memory implementa un adapter en memoria. Pensado para desarrollo
// local y tests: no necesita DSN y los datos viven lo que vive el proceso.
package memory

import (
	"context"

	"github.com/dropDatabas3/codepulse/internal/domain/repository"
	"github.com/dropDatabas3/codepulse/internal/store"
)

func init() {
	store.RegisterAdapter(&memoryAdapter{})
}

type memoryAdapter struct{}

func (a *memoryAdapter) Name() string      { return "memory" }
func (a *memoryAdapter) DSNOptional() bool { return true }

func (a *memoryAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	return &memoryConnection{users: NewUsers()}, nil
}

type memoryConnection struct {
	users *Users
}

func (c *memoryConnection) Name() string                     { return "memory" }
func (c *memoryConnection) Ping(ctx context.Context) error   { return ctx.Err() }
func (c *memoryConnection) Close() error                     { return nil }
func (c *memoryConnection) Users() repository.UserRepository { return c.users }
