// Package identity obtiene perfiles del identity provider externo (Clerk).
package identity

import (
	"context"
	"errors"
	"strings"
)

// ErrProfileNotFound el provider respondió que el usuario no existe.
var ErrProfileNotFound = errors.New("identity: profile not found")

// EmailAddress dirección registrada en el provider.
type EmailAddress struct {
	ID       string
	Address  string
	Verified bool
}

// Profile perfil tal como lo reporta el provider. Los punteros nil son campos
// ausentes, distintos de un string vacío.
type Profile struct {
	ID             string
	Emails         []EmailAddress
	PrimaryEmailID string
	FirstName      *string
	LastName       *string
	Username       *string
	ImageURL       string
}

// Source consulta perfiles por id del provider.
type Source interface {
	// GetProfile retorna ErrProfileNotFound si el provider no conoce el id.
	GetProfile(ctx context.Context, externalID string) (*Profile, error)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// DisplayName "first last" recortado; si queda vacío, username; si no, "User".
func (p *Profile) DisplayName() string {
	if name := strings.TrimSpace(deref(p.FirstName) + " " + deref(p.LastName)); name != "" {
		return name
	}
	if u := strings.TrimSpace(deref(p.Username)); u != "" {
		return u
	}
	return "User"
}

// PrimaryEmail elige la dirección primaria; si no está marcada, la primera
// verificada; si no hay verificadas, la primera listada.
func (p *Profile) PrimaryEmail() (EmailAddress, bool) {
	if len(p.Emails) == 0 {
		return EmailAddress{}, false
	}
	if p.PrimaryEmailID != "" {
		for _, e := range p.Emails {
			if e.ID == p.PrimaryEmailID {
				return e, true
			}
		}
	}
	for _, e := range p.Emails {
		if e.Verified {
			return e, true
		}
	}
	return p.Emails[0], true
}
