package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/codepulse/internal/domain/repository"
)

// Users es un UserRepository en memoria con las mismas garantías de unicidad
// que los adapters reales: un registro por ExternalID y por email.
type Users struct {
	mu      sync.Mutex
	byID    map[string]*repository.User
	byExt   map[string]string
	byEmail map[string]string

	now func() time.Time
}

// NewUsers crea un repositorio vacío.
func NewUsers() *Users {
	return &Users{
		byID:    make(map[string]*repository.User),
		byExt:   make(map[string]string),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func clone(u *repository.User) *repository.User {
	c := *u
	return &c
}

func (r *Users) GetByExternalID(ctx context.Context, externalID string) (*repository.User, error) {
	if externalID == "" {
		return nil, repository.ErrInvalidInput
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byExt[externalID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(r.byID[id]), nil
}

func (r *Users) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, repository.ErrInvalidInput
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(r.byID[id]), nil
}

func (r *Users) CreateIfAbsent(ctx context.Context, in repository.CreateUserInput) (*repository.User, bool, error) {
	if in.ExternalID == "" {
		return nil, false, repository.ErrInvalidInput
	}
	email := normalizeEmail(in.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byExt[in.ExternalID]; ok {
		return clone(r.byID[id]), false, nil
	}
	if email != "" {
		if _, taken := r.byEmail[email]; taken {
			return nil, false, repository.ErrConflict
		}
	}

	now := r.now().UTC()
	u := &repository.User{
		ID:           uuid.NewString(),
		ExternalID:   in.ExternalID,
		Email:        email,
		Name:         in.Name,
		ProfileImage: in.ProfileImage,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.byID[u.ID] = u
	r.byExt[u.ExternalID] = u.ID
	if email != "" {
		r.byEmail[email] = u.ID
	}
	return clone(u), true, nil
}

func (r *Users) Update(ctx context.Context, userID string, in repository.UpdateUserInput) (*repository.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if in.IfExternalID != nil && u.ExternalID != *in.IfExternalID {
		return nil, repository.ErrConflict
	}
	if in.ExternalID != nil && *in.ExternalID != u.ExternalID {
		if *in.ExternalID == "" {
			return nil, repository.ErrInvalidInput
		}
		if owner, taken := r.byExt[*in.ExternalID]; taken && owner != u.ID {
			return nil, repository.ErrConflict
		}
		delete(r.byExt, u.ExternalID)
		u.ExternalID = *in.ExternalID
		r.byExt[u.ExternalID] = u.ID
	}
	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.ProfileImage != nil {
		u.ProfileImage = *in.ProfileImage
	}
	u.UpdatedAt = r.now().UTC()
	return clone(u), nil
}

func (r *Users) EnsureIndexes(ctx context.Context) error { return nil }

// Len cantidad de usuarios almacenados.
func (r *Users) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}
