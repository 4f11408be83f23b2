// Package store provee el registry de adaptadores de almacenamiento y el
// ConnectionCache que comparte un único handle al store durante todo el proceso.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dropDatabas3/codepulse/internal/domain/repository"
)

// Adapter representa un adaptador de almacenamiento capaz de crear conexiones.
type Adapter interface {
	// Name retorna el nombre del adapter ("mongo", "postgres", "memory").
	Name() string

	// Connect establece la conexión. Debe respetar el deadline de ctx.
	Connect(ctx context.Context, cfg AdapterConfig) (AdapterConnection, error)
}

// AdapterConnection representa una conexión activa.
type AdapterConnection interface {
	Name() string

	// Ping verifica que el store responde.
	Ping(ctx context.Context) error

	Close() error

	// Users retorna el repositorio de usuarios (nil si no soportado).
	Users() repository.UserRepository
}

// AdapterConfig configuración para conectar a un almacenamiento.
type AdapterConfig struct {
	// Name del adapter: "mongo", "postgres", "memory".
	Name string

	// DSN connection string (mongodb://..., postgres://...).
	DSN string

	// Database nombre de la base (mongo). Si vacío se toma del DSN o "codepulse".
	Database string

	// MaxPoolSize 0 = default del driver.
	MaxPoolSize int
}

// ─── Registry Global ───

var (
	registryMu sync.RWMutex
	adapters   = make(map[string]Adapter)
)

// RegisterAdapter registra un adapter. Llamar en init() de cada adapter.
func RegisterAdapter(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()

	name := a.Name()
	if _, exists := adapters[name]; exists {
		panic(fmt.Sprintf("adapter: %q already registered", name))
	}
	adapters[name] = a
}

// GetAdapter obtiene un adapter por nombre.
func GetAdapter(name string) (Adapter, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := adapters[name]
	return a, ok
}

// ListAdapters retorna los nombres registrados, ordenados.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(adapters))
	for name := range adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MustAdapter resuelve el adapter de cfg.Name o retorna error si no fue importado.
func MustAdapter(cfg AdapterConfig) (Adapter, error) {
	a, ok := GetAdapter(cfg.Name)
	if !ok {
		return nil, fmt.Errorf("adapter: %q not registered (have %v)", cfg.Name, ListAdapters())
	}
	return a, nil
}
