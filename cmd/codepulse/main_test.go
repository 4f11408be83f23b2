package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, k := range []string{"APP_ENV", "NODE_ENV", "CONFIG_PATH", "DB_URL", "STORAGE_DSN", "CACHE_KIND", "CLERK_SECRET_KEY", "CLERK_ISSUER"} {
		t.Setenv(k, "")
	}
	t.Setenv("STORAGE_DRIVER", "memory")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestPingStore(t *testing.T) {
	out, err := run(t, "ping-store")
	require.NoError(t, err)
	require.Contains(t, out, "store memory: ok")
}

func TestEnsureIndexes(t *testing.T) {
	out, err := run(t, "ensure-indexes")
	require.NoError(t, err)
	require.Contains(t, out, "indexes memory: ok")
}

func TestInvalidConfigFails(t *testing.T) {
	t.Setenv("STORAGE_CONNECT_TIMEOUT", "soon")
	_, err := run(t, "ping-store")
	require.Error(t, err)
}
