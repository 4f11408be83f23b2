package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/codepulse/internal/cache"
	"github.com/dropDatabas3/codepulse/internal/domain/repository"
	"github.com/dropDatabas3/codepulse/internal/store"
	"github.com/dropDatabas3/codepulse/internal/store/adapters/memory"
)

func TestUserStore_PropagatesConfigurationError(t *testing.T) {
	a := &fakeAdapter{}
	us := store.NewUserStore(store.NewConnectionCache(a, store.AdapterConfig{Name: "fake"}, store.ConnectionCacheOptions{}))

	_, err := us.GetByExternalID(context.Background(), "ext")
	var cfgErr *store.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)

	_, _, err = us.CreateIfAbsent(context.Background(), repository.CreateUserInput{ExternalID: "ext"})
	require.ErrorAs(t, err, &cfgErr)
}

func TestUserStore_SharesOneHandle(t *testing.T) {
	a := &fakeAdapter{}
	us := store.NewUserStore(newCache(a, "fake://db", time.Second))
	ctx := context.Background()

	u, created, err := us.CreateIfAbsent(ctx, repository.CreateUserInput{ExternalID: "ext", Email: "a@x.com"})
	require.NoError(t, err)
	require.True(t, created)

	got, err := us.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	require.EqualValues(t, 1, a.connects.Load())
}

// countingRepo cuenta lecturas para verificar el read-through.
type countingRepo struct {
	*memory.Users
	reads int
}

func (r *countingRepo) GetByExternalID(ctx context.Context, id string) (*repository.User, error) {
	r.reads++
	return r.Users.GetByExternalID(ctx, id)
}

func TestCachedUsers_ReadThrough(t *testing.T) {
	ctx := context.Background()
	next := &countingRepo{Users: memory.NewUsers()}
	cu := store.NewCachedUsers(next, cache.NewMemory("test:", time.Minute), 0)

	_, _, err := next.Users.CreateIfAbsent(ctx, repository.CreateUserInput{ExternalID: "ext", Name: "Ada"})
	require.NoError(t, err)

	u1, err := cu.GetByExternalID(ctx, "ext")
	require.NoError(t, err)
	u2, err := cu.GetByExternalID(ctx, "ext")
	require.NoError(t, err)

	require.Equal(t, u1.ID, u2.ID)
	require.Equal(t, 1, next.reads)
}

func TestCachedUsers_RebindInvalidatesOldBinding(t *testing.T) {
	ctx := context.Background()
	next := &countingRepo{Users: memory.NewUsers()}
	cu := store.NewCachedUsers(next, cache.NewMemory("test:", time.Minute), 0)

	u, _, err := cu.CreateIfAbsent(ctx, repository.CreateUserInput{ExternalID: "old", Email: "a@x.com"})
	require.NoError(t, err)

	_, err = cu.GetByExternalID(ctx, "old")
	require.NoError(t, err)

	newID, oldID := "new", "old"
	_, err = cu.Update(ctx, u.ID, repository.UpdateUserInput{ExternalID: &newID, IfExternalID: &oldID})
	require.NoError(t, err)

	_, err = cu.GetByExternalID(ctx, "old")
	require.True(t, repository.IsNotFound(err))

	got, err := cu.GetByExternalID(ctx, "new")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
}

func TestCachedUsers_NotFoundNotCached(t *testing.T) {
	ctx := context.Background()
	next := &countingRepo{Users: memory.NewUsers()}
	cu := store.NewCachedUsers(next, cache.NewMemory("test:", time.Minute), 0)

	_, err := cu.GetByExternalID(ctx, "ghost")
	require.True(t, repository.IsNotFound(err))
	_, err = cu.GetByExternalID(ctx, "ghost")
	require.True(t, repository.IsNotFound(err))
	require.Equal(t, 2, next.reads)
}
