package authn

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// HMACVerifier valida tokens HS256 con un secreto compartido. Solo para dev y tests.
type HMACVerifier struct {
	secret []byte
	issuer string
}

// NewHMACVerifier issuer vacío = no se valida iss.
func NewHMACVerifier(secret []byte, issuer string) *HMACVerifier {
	return &HMACVerifier{secret: secret, issuer: issuer}
}

type hmacClaims struct {
	SessionID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

func (v *HMACVerifier) Verify(ctx context.Context, raw string) (*Principal, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired()}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var c hmacClaims
	if _, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) { return v.secret, nil }, opts...); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}
	return &Principal{ExternalID: c.Subject, SessionID: c.SessionID}, nil
}

// SignHMAC emite un token de dev para subject. Lo usan los tests y el modo dev.
func SignHMAC(secret []byte, issuer, subject string, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = subject
	if issuer != "" {
		claims.Issuer = issuer
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, hmacClaims{RegisteredClaims: claims}).SignedString(secret)
}
