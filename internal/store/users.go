package store

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/codepulse/internal/domain/repository"
)

// UserStore es el acceso tipado a usuarios. Adquiere el handle cacheado en cada
// llamada, así un cold start fallido se reintenta en el request siguiente.
type UserStore struct {
	conns *ConnectionCache
}

var _ repository.UserRepository = (*UserStore)(nil)

// NewUserStore crea el UserStore sobre un ConnectionCache.
func NewUserStore(conns *ConnectionCache) *UserStore {
	return &UserStore{conns: conns}
}

func (s *UserStore) repo(ctx context.Context) (repository.UserRepository, error) {
	conn, err := s.conns.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	users := conn.Users()
	if users == nil {
		return nil, fmt.Errorf("store: adapter %q has no user repository", conn.Name())
	}
	return users, nil
}

func (s *UserStore) GetByExternalID(ctx context.Context, externalID string) (*repository.User, error) {
	r, err := s.repo(ctx)
	if err != nil {
		return nil, err
	}
	return r.GetByExternalID(ctx, externalID)
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	r, err := s.repo(ctx)
	if err != nil {
		return nil, err
	}
	return r.GetByEmail(ctx, email)
}

func (s *UserStore) CreateIfAbsent(ctx context.Context, in repository.CreateUserInput) (*repository.User, bool, error) {
	r, err := s.repo(ctx)
	if err != nil {
		return nil, false, err
	}
	return r.CreateIfAbsent(ctx, in)
}

func (s *UserStore) Update(ctx context.Context, userID string, in repository.UpdateUserInput) (*repository.User, error) {
	r, err := s.repo(ctx)
	if err != nil {
		return nil, err
	}
	return r.Update(ctx, userID, in)
}

func (s *UserStore) EnsureIndexes(ctx context.Context) error {
	r, err := s.repo(ctx)
	if err != nil {
		return err
	}
	return r.EnsureIndexes(ctx)
}
