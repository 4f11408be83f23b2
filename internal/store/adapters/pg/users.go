package pg

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/codepulse/internal/domain/repository"
	migrations "github.com/dropDatabas3/codepulse/migrations/postgres"
)

const userColumns = `id, external_id, COALESCE(email, ''), name, profile_image, created_at, updated_at`

type userRepo struct{ pool *pgxpool.Pool }

func timeUntil(t time.Time) time.Duration {
	if d := time.Until(t); d > 0 {
		return d
	}
	return time.Millisecond
}

// nullIfEmpty para columnas opcionales: NULL no participa del índice único.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func scanUser(row pgx.Row) (*repository.User, error) {
	var (
		u  repository.User
		id uuid.UUID
	)
	if err := row.Scan(&id, &u.ExternalID, &u.Email, &u.Name, &u.ProfileImage, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	u.ID = id.String()
	return &u, nil
}

func (r *userRepo) GetByExternalID(ctx context.Context, externalID string) (*repository.User, error) {
	if externalID == "" {
		return nil, repository.ErrInvalidInput
	}
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE external_id = $1`, externalID))
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, repository.ErrInvalidInput
	}
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *userRepo) CreateIfAbsent(ctx context.Context, in repository.CreateUserInput) (*repository.User, bool, error) {
	if in.ExternalID == "" {
		return nil, false, repository.ErrInvalidInput
	}
	const query = `
		INSERT INTO users (id, external_id, email, name, profile_image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (external_id) DO NOTHING
		RETURNING ` + userColumns

	u, err := scanUser(r.pool.QueryRow(ctx, query,
		uuid.New(), in.ExternalID, nullIfEmpty(normalizeEmail(in.Email)), in.Name, in.ProfileImage,
	))
	switch {
	case err == nil:
		return u, true, nil
	case repository.IsNotFound(err):
		// DO NOTHING: otro writer insertó primero
		existing, err := r.GetByExternalID(ctx, in.ExternalID)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	case isUniqueViolation(err):
		return nil, false, repository.ErrConflict
	default:
		return nil, false, fmt.Errorf("pg: insert user: %w", err)
	}
}

// buildUpdate arma el UPDATE dinámico. Retorna query vacía si no hay nada que setear.
func buildUpdate(id uuid.UUID, in repository.UpdateUserInput) (string, []any) {
	sets := make([]string, 0, 4)
	args := []any{id}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if in.ExternalID != nil {
		add("external_id", *in.ExternalID)
	}
	if in.Name != nil {
		add("name", *in.Name)
	}
	if in.ProfileImage != nil {
		add("profile_image", *in.ProfileImage)
	}
	sets = append(sets, "updated_at = NOW()")

	where := "id = $1"
	if in.IfExternalID != nil {
		args = append(args, *in.IfExternalID)
		where += fmt.Sprintf(" AND COALESCE(external_id, '') = $%d", len(args))
	}
	return "UPDATE users SET " + strings.Join(sets, ", ") + " WHERE " + where + " RETURNING " + userColumns, args
}

func (r *userRepo) Update(ctx context.Context, userID string, in repository.UpdateUserInput) (*repository.User, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	if in.ExternalID != nil && *in.ExternalID == "" {
		return nil, repository.ErrInvalidInput
	}

	query, args := buildUpdate(id, in)
	u, err := scanUser(r.pool.QueryRow(ctx, query, args...))
	switch {
	case err == nil:
		return u, nil
	case isUniqueViolation(err):
		return nil, repository.ErrConflict
	case repository.IsNotFound(err):
		if in.IfExternalID == nil {
			return nil, repository.ErrNotFound
		}
		// distinguir id inexistente de precondición fallida
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
			return nil, fmt.Errorf("pg: check user: %w", err)
		}
		if exists {
			return nil, repository.ErrConflict
		}
		return nil, repository.ErrNotFound
	default:
		return nil, fmt.Errorf("pg: update user: %w", err)
	}
}

func (r *userRepo) EnsureIndexes(ctx context.Context) error {
	stmts, err := migrations.Users()
	if err != nil {
		return fmt.Errorf("pg: read migrations: %w", err)
	}
	for i, sql := range stmts {
		if _, err := r.pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("pg: apply migration %d: %w", i+1, err)
		}
	}
	return nil
}
