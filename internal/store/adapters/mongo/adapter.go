// Package mongo implementa el adapter MongoDB sobre go.mongodb.org/mongo-driver.
package mongo

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/dropDatabas3/codepulse/internal/domain/repository"
	"github.com/dropDatabas3/codepulse/internal/store"
)

const (
	// DefaultDatabase si ni la config ni el DSN traen nombre de base.
	DefaultDatabase = "codepulse"

	usersCollection = "users"
)

func init() {
	store.RegisterAdapter(&mongoAdapter{})
}

type mongoAdapter struct{}

func (a *mongoAdapter) Name() string { return "mongo" }

// Connect crea el cliente. El deadline de ctx (la ventana fail-fast del
// ConnectionCache) se usa también como server selection timeout: sin él, el
// driver espera 30s por un primary antes de fallar cada operación.
func (a *mongoAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	opts := options.Client().ApplyURI(cfg.DSN)
	if dl, ok := ctx.Deadline(); ok {
		if to := time.Until(dl); to > 0 {
			opts.SetServerSelectionTimeout(to).SetConnectTimeout(to)
		}
	}
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(uint64(cfg.MaxPoolSize))
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("mongo: invalid DSN: %w", err)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}

	dbName := databaseName(cfg)
	return &mongoConnection{
		client: client,
		db:     dbName,
		users:  newUserRepo(client.Database(dbName).Collection(usersCollection)),
	}, nil
}

// databaseName: cfg.Database > path del DSN > DefaultDatabase.
func databaseName(cfg store.AdapterConfig) string {
	if s := strings.TrimSpace(cfg.Database); s != "" {
		return s
	}
	if u, err := url.Parse(cfg.DSN); err == nil {
		if s := strings.Trim(u.Path, "/"); s != "" {
			return s
		}
	}
	return DefaultDatabase
}

type mongoConnection struct {
	client *mongo.Client
	db     string
	users  *userRepo
}

func (c *mongoConnection) Name() string { return "mongo" }

func (c *mongoConnection) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

func (c *mongoConnection) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.client.Disconnect(ctx)
}

func (c *mongoConnection) Users() repository.UserRepository { return c.users }
