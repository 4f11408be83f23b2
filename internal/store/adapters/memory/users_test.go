package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/codepulse/internal/domain/repository"
	"github.com/dropDatabas3/codepulse/internal/store"
)

func strPtr(s string) *string { return &s }

func TestUsers_CreateIfAbsentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	r := NewUsers()

	u1, created, err := r.CreateIfAbsent(ctx, repository.CreateUserInput{ExternalID: "ext_1", Email: "Ada@Example.com", Name: "Ada"})
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "ada@example.com", u1.Email)

	u2, created, err := r.CreateIfAbsent(ctx, repository.CreateUserInput{ExternalID: "ext_1", Name: "Other"})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, u1.ID, u2.ID)
	require.Equal(t, "Ada", u2.Name)
}

func TestUsers_ConcurrentCreateYieldsOneRecord(t *testing.T) {
	ctx := context.Background()
	r := NewUsers()

	const n = 32
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u, _, err := r.CreateIfAbsent(ctx, repository.CreateUserInput{ExternalID: "ext_race", Email: "race@example.com"})
			require.NoError(t, err)
			ids[i] = u.ID
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, r.Len())
	for _, id := range ids {
		require.Equal(t, ids[0], id)
	}
}

func TestUsers_EmailUniqueness(t *testing.T) {
	ctx := context.Background()
	r := NewUsers()

	_, _, err := r.CreateIfAbsent(ctx, repository.CreateUserInput{ExternalID: "a", Email: "dup@example.com"})
	require.NoError(t, err)

	_, _, err = r.CreateIfAbsent(ctx, repository.CreateUserInput{ExternalID: "b", Email: "DUP@example.com"})
	require.True(t, repository.IsConflict(err))

	got, err := r.GetByEmail(ctx, " Dup@Example.com ")
	require.NoError(t, err)
	require.Equal(t, "a", got.ExternalID)
}

func TestUsers_UpdateCompareAndSet(t *testing.T) {
	ctx := context.Background()
	r := NewUsers()

	u, _, err := r.CreateIfAbsent(ctx, repository.CreateUserInput{ExternalID: "old", Email: "x@example.com"})
	require.NoError(t, err)

	_, err = r.Update(ctx, u.ID, repository.UpdateUserInput{ExternalID: strPtr("new"), IfExternalID: strPtr("stale")})
	require.True(t, repository.IsConflict(err))

	got, err := r.Update(ctx, u.ID, repository.UpdateUserInput{ExternalID: strPtr("new"), IfExternalID: strPtr("old")})
	require.NoError(t, err)
	require.Equal(t, "new", got.ExternalID)
	require.Equal(t, u.ID, got.ID)

	_, err = r.GetByExternalID(ctx, "old")
	require.True(t, repository.IsNotFound(err))

	byNew, err := r.GetByExternalID(ctx, "new")
	require.NoError(t, err)
	require.Equal(t, u.ID, byNew.ID)
}

func TestUsers_UpdateRejectsTakenExternalID(t *testing.T) {
	ctx := context.Background()
	r := NewUsers()

	a, _, _ := r.CreateIfAbsent(ctx, repository.CreateUserInput{ExternalID: "a"})
	_, _, _ = r.CreateIfAbsent(ctx, repository.CreateUserInput{ExternalID: "b"})

	_, err := r.Update(ctx, a.ID, repository.UpdateUserInput{ExternalID: strPtr("b")})
	require.True(t, repository.IsConflict(err))

	_, err = r.Update(ctx, "missing", repository.UpdateUserInput{Name: strPtr("x")})
	require.True(t, repository.IsNotFound(err))
}

func TestUsers_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	r := NewUsers()

	u, _, _ := r.CreateIfAbsent(ctx, repository.CreateUserInput{ExternalID: "a", Name: "Ada"})
	u.Name = "mutated"

	got, err := r.GetByExternalID(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "Ada", got.Name)
}

func TestMemoryAdapter_NoDSNNeeded(t *testing.T) {
	a, ok := store.GetAdapter("memory")
	require.True(t, ok)

	cc := store.NewConnectionCache(a, store.AdapterConfig{Name: "memory"}, store.ConnectionCacheOptions{})
	conn, err := cc.Acquire(context.Background())
	require.NoError(t, err)
	require.NotNil(t, conn.Users())
	require.True(t, cc.Established())
}
