// Package pg implementa el adapter PostgreSQL. Usa pgxpool directamente.
package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/codepulse/internal/domain/repository"
	"github.com/dropDatabas3/codepulse/internal/store"
)

func init() {
	store.RegisterAdapter(&postgresAdapter{})
}

type postgresAdapter struct{}

func (a *postgresAdapter) Name() string { return "postgres" }

// Connect crea el pool. pgxpool conecta de forma lazy; el ping lo hace el
// ConnectionCache bajo su ventana fail-fast.
func (a *postgresAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}
	if cfg.MaxPoolSize > 0 {
		poolCfg.MaxConns = int32(cfg.MaxPoolSize)
	} else {
		poolCfg.MaxConns = 10
	}
	if dl, ok := ctx.Deadline(); ok {
		poolCfg.ConnConfig.ConnectTimeout = timeUntil(dl)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	return &pgConnection{pool: pool, users: &userRepo{pool: pool}}, nil
}

type pgConnection struct {
	pool  *pgxpool.Pool
	users *userRepo
}

func (c *pgConnection) Name() string { return "postgres" }

func (c *pgConnection) Ping(ctx context.Context) error { return c.pool.Ping(ctx) }

func (c *pgConnection) Close() error {
	c.pool.Close()
	return nil
}

func (c *pgConnection) Users() repository.UserRepository { return c.users }
