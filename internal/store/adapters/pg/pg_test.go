package pg

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/codepulse/internal/domain/repository"
	"github.com/dropDatabas3/codepulse/internal/store"
)

func TestPostgresAdapterRegistered(t *testing.T) {
	adapter, ok := store.GetAdapter("postgres")
	if !ok || adapter == nil {
		t.Fatal("postgres adapter not registered")
	}
	if adapter.Name() != "postgres" {
		t.Errorf("expected adapter name 'postgres', got '%s'", adapter.Name())
	}
}

func TestPostgresAdapterRejectsBadDSN(t *testing.T) {
	adapter, _ := store.GetAdapter("postgres")
	_, err := adapter.Connect(context.Background(), store.AdapterConfig{DSN: "postgres://%zz"})
	require.Error(t, err)
}

func TestBuildUpdate(t *testing.T) {
	id := uuid.New()
	ext, prev, name := "new", "old", "Ada"

	q, args := buildUpdate(id, repository.UpdateUserInput{ExternalID: &ext, Name: &name, IfExternalID: &prev})
	require.Equal(t,
		"UPDATE users SET external_id = $2, name = $3, updated_at = NOW() WHERE id = $1 AND COALESCE(external_id, '') = $4 RETURNING "+userColumns,
		q)
	require.Equal(t, []any{id, "new", "Ada", "old"}, args)

	q, args = buildUpdate(id, repository.UpdateUserInput{})
	require.Equal(t, "UPDATE users SET updated_at = NOW() WHERE id = $1 RETURNING "+userColumns, q)
	require.Len(t, args, 1)
}

func TestUpdateRejectsMalformedID(t *testing.T) {
	r := &userRepo{}
	_, err := r.Update(context.Background(), "not-a-uuid", repository.UpdateUserInput{})
	require.True(t, repository.IsNotFound(err))
}

func TestIsUniqueViolation(t *testing.T) {
	require.True(t, isUniqueViolation(fmt.Errorf("wrap: %w", &pgconn.PgError{Code: "23505"})))
	require.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	require.False(t, isUniqueViolation(nil))
}

func TestNullIfEmpty(t *testing.T) {
	require.Nil(t, nullIfEmpty(""))
	require.Equal(t, "a@x.com", *nullIfEmpty("a@x.com"))
}
