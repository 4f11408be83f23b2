package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMaskEmail(t *testing.T) {
	cases := map[string]string{
		"ada@example.com":     "a…@e….com",
		" Ada@Example.COM ":   "a…@e….com",
		"a@b.io":              "a@b.io",
		"bob@mail.example.ar": "b…@m….example.ar",
		"":                    "",
		"abc":                 "***",
		"plainuser":           "p…r",
	}
	for in, want := range cases {
		require.Equal(t, want, MaskEmail(in), in)
	}
}

func TestEmailFieldIsMasked(t *testing.T) {
	f := Email("ada@example.com")
	require.Equal(t, "email", f.Key)
	require.Equal(t, "a…@e….com", f.String)
}
