package store

import (
	"fmt"
	"time"
)

// ConfigurationError indica que falta configuración para conectar (ej: DB_URL).
// Aborta la adquisición, no el proceso: el siguiente Acquire vuelve a evaluar.
type ConfigurationError struct {
	Key string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("store: %s is not configured", e.Key)
}

// ConnectionError indica que el store no respondió dentro de la ventana fail-fast.
type ConnectionError struct {
	Driver  string
	Timeout time.Duration
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("store: %s not reachable within %s: %v", e.Driver, e.Timeout, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
