// Package authn verifica credenciales de sesión emitidas por el identity provider.
// La criptografía la resuelven go-oidc y golang-jwt; acá solo se extrae el subject.
package authn

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// SessionCookie cookie de sesión que Clerk setea en navegadores.
const SessionCookie = "__session"

var (
	ErrNoCredential = errors.New("authn: no credential")
	ErrInvalidToken = errors.New("authn: invalid token")
)

// Principal identidad verificada. ExternalID nunca es vacío.
type Principal struct {
	ExternalID string
	SessionID  string
}

// Verifier valida un token crudo.
type Verifier interface {
	Verify(ctx context.Context, raw string) (*Principal, error)
}

// TokenFromRequest extrae el token: primero "Authorization: Bearer", luego la cookie __session.
func TokenFromRequest(r *http.Request) (string, error) {
	if h := strings.TrimSpace(r.Header.Get("Authorization")); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			if tok = strings.TrimSpace(tok); tok != "" {
				return tok, nil
			}
		}
	}
	if c, err := r.Cookie(SessionCookie); err == nil && strings.TrimSpace(c.Value) != "" {
		return strings.TrimSpace(c.Value), nil
	}
	return "", ErrNoCredential
}
