package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/stretchr/testify/require"
)

func str(s string) *string { return &s }

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name string
		p    Profile
		want string
	}{
		{"first and last", Profile{FirstName: str("Ada"), LastName: str("Lovelace")}, "Ada Lovelace"},
		{"first only", Profile{FirstName: str("Ada")}, "Ada"},
		{"last only", Profile{LastName: str("Lovelace")}, "Lovelace"},
		{"blank names fall back to username", Profile{FirstName: str("  "), Username: str("ada")}, "ada"},
		{"nothing", Profile{}, "User"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.p.DisplayName())
		})
	}
}

func TestPrimaryEmail(t *testing.T) {
	emails := []EmailAddress{
		{ID: "e1", Address: "first@x.com"},
		{ID: "e2", Address: "verified@x.com", Verified: true},
		{ID: "e3", Address: "primary@x.com"},
	}

	e, ok := (&Profile{Emails: emails, PrimaryEmailID: "e3"}).PrimaryEmail()
	require.True(t, ok)
	require.Equal(t, "primary@x.com", e.Address)

	e, ok = (&Profile{Emails: emails}).PrimaryEmail()
	require.True(t, ok)
	require.Equal(t, "verified@x.com", e.Address)

	e, ok = (&Profile{Emails: emails[:1], PrimaryEmailID: "missing"}).PrimaryEmail()
	require.True(t, ok)
	require.Equal(t, "first@x.com", e.Address)

	_, ok = (&Profile{}).PrimaryEmail()
	require.False(t, ok)
}

func TestFromClerk(t *testing.T) {
	u := &clerk.User{
		ID:                    "user_1",
		FirstName:             clerk.String("Ada"),
		ImageURL:              clerk.String("https://img/ada.png"),
		PrimaryEmailAddressID: clerk.String("idn_2"),
		EmailAddresses: []*clerk.EmailAddress{
			{ID: "idn_1", EmailAddress: "old@x.com"},
			{ID: "idn_2", EmailAddress: "ada@x.com", Verification: &clerk.Verification{Status: "verified"}},
		},
	}

	p := fromClerk(u)
	require.Equal(t, "user_1", p.ID)
	require.Equal(t, "Ada", p.DisplayName())
	require.Equal(t, "https://img/ada.png", p.ImageURL)
	e, ok := p.PrimaryEmail()
	require.True(t, ok)
	require.Equal(t, "ada@x.com", e.Address)
	require.True(t, e.Verified)
	require.False(t, p.Emails[0].Verified)
}

func TestStaticSource(t *testing.T) {
	s := NewStaticSource(&Profile{ID: "user_1", Username: str("ada")})

	p, err := s.GetProfile(context.Background(), "user_1")
	require.NoError(t, err)
	require.Equal(t, "ada", p.DisplayName())

	_, err = s.GetProfile(context.Background(), "user_2")
	require.ErrorIs(t, err, ErrProfileNotFound)

	boom := errors.New("provider down")
	s.FailWith(boom)
	_, err = s.GetProfile(context.Background(), "user_1")
	require.ErrorIs(t, err, boom)
}
