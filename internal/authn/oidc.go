package authn

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

// OIDCVerifier valida session tokens RS256 contra el JWKS del issuer.
// No hace discovery al arrancar: el JWKS se baja en la primera verificación.
type OIDCVerifier struct {
	verifier          *oidc.IDTokenVerifier
	authorizedParties map[string]struct{}
}

// NewOIDCVerifier crea el verifier para issuer (ej: https://clerk.example.com).
// authorizedParties vacío = no se valida azp.
func NewOIDCVerifier(ctx context.Context, issuer string, authorizedParties []string) (*OIDCVerifier, error) {
	issuer = strings.TrimRight(strings.TrimSpace(issuer), "/")
	if issuer == "" {
		return nil, fmt.Errorf("authn: issuer is required")
	}
	ks := oidc.NewRemoteKeySet(ctx, issuer+"/.well-known/jwks.json")
	return newOIDCVerifier(issuer, ks, authorizedParties), nil
}

func newOIDCVerifier(issuer string, ks oidc.KeySet, authorizedParties []string) *OIDCVerifier {
	v := &OIDCVerifier{
		// los session tokens de Clerk no traen aud; azp se valida aparte
		verifier: oidc.NewVerifier(issuer, ks, &oidc.Config{
			SkipClientIDCheck:    true,
			SupportedSigningAlgs: []string{oidc.RS256},
		}),
	}
	if len(authorizedParties) > 0 {
		v.authorizedParties = make(map[string]struct{}, len(authorizedParties))
		for _, p := range authorizedParties {
			v.authorizedParties[strings.TrimRight(strings.TrimSpace(p), "/")] = struct{}{}
		}
	}
	return v
}

type sessionClaims struct {
	SessionID       string `json:"sid"`
	AuthorizedParty string `json:"azp"`
}

func (v *OIDCVerifier) Verify(ctx context.Context, raw string) (*Principal, error) {
	tok, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	var c sessionClaims
	if err := tok.Claims(&c); err != nil {
		return nil, fmt.Errorf("%w: claims: %v", ErrInvalidToken, err)
	}
	if v.authorizedParties != nil {
		if _, ok := v.authorizedParties[c.AuthorizedParty]; !ok {
			return nil, fmt.Errorf("%w: azp %q not allowed", ErrInvalidToken, c.AuthorizedParty)
		}
	}
	if tok.Subject == "" {
		return nil, fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}
	return &Principal{ExternalID: tok.Subject, SessionID: c.SessionID}, nil
}
