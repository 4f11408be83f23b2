// Package migrations embebe el schema SQL del adapter postgres.
package migrations

import (
	"embed"
	"io/fs"
	"path"
)

// UsersFS contiene las migraciones de la tabla users, aplicadas en orden
// lexicográfico. Cada archivo debe ser idempotente (IF NOT EXISTS).
//
//go:embed users/*.sql
var UsersFS embed.FS

// UsersDir es el directorio dentro de UsersFS donde viven las migraciones.
const UsersDir = "users"

// Users retorna el contenido de cada migración en orden de aplicación.
func Users() ([]string, error) {
	entries, err := fs.ReadDir(UsersFS, UsersDir)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}
		b, err := fs.ReadFile(UsersFS, path.Join(UsersDir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, string(b))
	}
	return out, nil
}
