package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dropDatabas3/codepulse/internal/cache"
	"github.com/dropDatabas3/codepulse/internal/domain/repository"
	"github.com/dropDatabas3/codepulse/internal/observability/logger"
)

// CachedUsers es un decorator read-through sobre UserRepository.
// Solo cachea GetByExternalID (el fast path del gateway). Los errores del cache
// se loguean y se ignoran: el store es la fuente de verdad.
type CachedUsers struct {
	next  repository.UserRepository
	cache cache.Client
	ttl   time.Duration
}

var _ repository.UserRepository = (*CachedUsers)(nil)

// NewCachedUsers envuelve next. ttl 0 = TTL por defecto del cache.
func NewCachedUsers(next repository.UserRepository, c cache.Client, ttl time.Duration) *CachedUsers {
	return &CachedUsers{next: next, cache: c, ttl: ttl}
}

func extKey(externalID string) string { return "user:ext:" + externalID }

func (c *CachedUsers) GetByExternalID(ctx context.Context, externalID string) (*repository.User, error) {
	if b, err := c.cache.Get(ctx, extKey(externalID)); err == nil {
		var u repository.User
		if json.Unmarshal(b, &u) == nil {
			return &u, nil
		}
	} else if !cache.IsNotFound(err) {
		logger.From(ctx).Warn("user cache get failed", logger.Op("cache.get"), logger.Err(err))
	}

	u, err := c.next.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	c.put(ctx, u)
	return u, nil
}

func (c *CachedUsers) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	return c.next.GetByEmail(ctx, email)
}

func (c *CachedUsers) CreateIfAbsent(ctx context.Context, in repository.CreateUserInput) (*repository.User, bool, error) {
	u, created, err := c.next.CreateIfAbsent(ctx, in)
	if err != nil {
		return nil, false, err
	}
	c.put(ctx, u)
	return u, created, nil
}

// Update invalida el binding anterior (IfExternalID) y el nuevo.
// Sin IfExternalID el binding viejo puede sobrevivir hasta su TTL.
func (c *CachedUsers) Update(ctx context.Context, userID string, in repository.UpdateUserInput) (*repository.User, error) {
	u, err := c.next.Update(ctx, userID, in)

	keys := make([]string, 0, 2)
	if in.IfExternalID != nil && *in.IfExternalID != "" {
		keys = append(keys, extKey(*in.IfExternalID))
	}
	if in.ExternalID != nil {
		keys = append(keys, extKey(*in.ExternalID))
	}
	if u != nil {
		keys = append(keys, extKey(u.ExternalID))
	}
	if len(keys) > 0 {
		if derr := c.cache.Delete(ctx, keys...); derr != nil {
			logger.From(ctx).Warn("user cache invalidate failed", logger.Op("cache.delete"), logger.Err(derr))
		}
	}
	return u, err
}

func (c *CachedUsers) EnsureIndexes(ctx context.Context) error {
	return c.next.EnsureIndexes(ctx)
}

func (c *CachedUsers) put(ctx context.Context, u *repository.User) {
	if u == nil || u.ExternalID == "" {
		return
	}
	b, err := json.Marshal(u)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, extKey(u.ExternalID), b, c.ttl); err != nil {
		logger.From(ctx).Warn("user cache set failed", logger.Op("cache.set"), logger.Err(err))
	}
}
