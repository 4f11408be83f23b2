package store_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/codepulse/internal/store"
	_ "github.com/dropDatabas3/codepulse/internal/store/adapters/dal"
)

func TestListAdapters(t *testing.T) {
	require.Equal(t, []string{"memory", "mongo", "postgres"}, store.ListAdapters())
}

func TestMustAdapter(t *testing.T) {
	a, err := store.MustAdapter(store.AdapterConfig{Name: "memory"})
	require.NoError(t, err)
	require.Equal(t, "memory", a.Name())

	_, err = store.MustAdapter(store.AdapterConfig{Name: "cassandra"})
	require.Error(t, err)
}

func TestRegisterAdapter_DuplicatePanics(t *testing.T) {
	a, _ := store.GetAdapter("memory")
	require.Panics(t, func() { store.RegisterAdapter(a) })
}
