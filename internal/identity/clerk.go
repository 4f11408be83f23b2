package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/clerk/clerk-sdk-go/v2"
	clerkuser "github.com/clerk/clerk-sdk-go/v2/user"
)

// DefaultLookupTimeout tope por llamada al provider.
const DefaultLookupTimeout = 10 * time.Second

// ClerkSource consulta la Backend API de Clerk.
type ClerkSource struct {
	client  *clerkuser.Client
	timeout time.Duration
}

// NewClerkSource crea un cliente con la secret key. timeout 0 = DefaultLookupTimeout.
func NewClerkSource(secretKey string, timeout time.Duration) *ClerkSource {
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	cfg := &clerk.ClientConfig{}
	cfg.Key = clerk.String(secretKey)
	return &ClerkSource{client: clerkuser.NewClient(cfg), timeout: timeout}
}

func (s *ClerkSource) GetProfile(ctx context.Context, externalID string) (*Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	u, err := s.client.Get(ctx, externalID)
	if err != nil {
		var apiErr *clerk.APIErrorResponse
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusNotFound {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("clerk: get user: %w", err)
	}
	if u == nil {
		return nil, ErrProfileNotFound
	}
	return fromClerk(u), nil
}

func fromClerk(u *clerk.User) *Profile {
	p := &Profile{
		ID:             u.ID,
		PrimaryEmailID: deref(u.PrimaryEmailAddressID),
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Username:       u.Username,
		ImageURL:       deref(u.ImageURL),
	}
	for _, e := range u.EmailAddresses {
		if e == nil {
			continue
		}
		p.Emails = append(p.Emails, EmailAddress{
			ID:       e.ID,
			Address:  e.EmailAddress,
			Verified: e.Verification != nil && e.Verification.Status == "verified",
		})
	}
	return p
}
