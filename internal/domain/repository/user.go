package repository

import (
	"context"
	"time"
)

// User representa un principal conocido por el sistema.
// ID lo asigna el store y no cambia; ExternalID es el id del identity provider.
type User struct {
	ID           string    `json:"id"`
	ExternalID   string    `json:"externalId"`
	Email        string    `json:"email,omitempty"`
	Name         string    `json:"name"`
	ProfileImage string    `json:"profileImage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CreateUserInput contiene los datos para crear un usuario.
// Email vacío = usuario correlacionado solo por ExternalID.
type CreateUserInput struct {
	ExternalID   string
	Email        string
	Name         string
	ProfileImage string
}

// UpdateUserInput contiene los campos actualizables (nil = no tocar).
type UpdateUserInput struct {
	ExternalID   *string
	Name         *string
	ProfileImage *string

	// IfExternalID es una precondición compare-and-set: la actualización solo
	// aplica si el registro sigue con ese ExternalID ("" = sin binding).
	// nil = sin precondición.
	IfExternalID *string
}

// UserRepository define operaciones sobre usuarios.
type UserRepository interface {
	// GetByExternalID busca por id del identity provider.
	// Retorna ErrNotFound si no existe.
	GetByExternalID(ctx context.Context, externalID string) (*User, error)

	// GetByEmail busca por email (case-insensitive).
	// Retorna ErrNotFound si no existe.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// CreateIfAbsent inserta el usuario si no existe uno con el mismo ExternalID.
	// Es atómico: si otro writer ganó la carrera retorna su registro con created=false.
	// Retorna ErrConflict si el email ya pertenece a otro registro.
	CreateIfAbsent(ctx context.Context, input CreateUserInput) (user *User, created bool, err error)

	// Update actualiza campos de un usuario y retorna el registro resultante.
	// Retorna ErrNotFound si el id no existe y ErrConflict si IfExternalID no coincide
	// o el nuevo ExternalID ya está tomado.
	Update(ctx context.Context, userID string, input UpdateUserInput) (*User, error)

	// EnsureIndexes crea los índices de unicidad (external_id, email).
	EnsureIndexes(ctx context.Context) error
}
