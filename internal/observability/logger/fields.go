package logger

import (
	"time"

	"go.uber.org/zap"
)

// ─── HTTP ───

func RequestID(v string) zap.Field { return zap.String("request_id", v) }

func Method(v string) zap.Field { return zap.String("method", v) }

func Path(v string) zap.Field { return zap.String("path", v) }

func Status(v int) zap.Field { return zap.Int("status", v) }

func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }

// ─── Identidad ───

// ExternalID es el id emitido por el identity provider (Clerk).
func ExternalID(v string) zap.Field { return zap.String("external_id", v) }

// UserID es el id local asignado por el store.
func UserID(v string) zap.Field { return zap.String("user_id", v) }

// Email se loguea enmascarado (ver MaskEmail).
func Email(v string) zap.Field { return zap.String("email", MaskEmail(v)) }

// ─── Sistema ───

func Component(v string) zap.Field { return zap.String("component", v) }

func Op(v string) zap.Field { return zap.String("op", v) }

// Event marca entradas que los operadores filtran (ej: chat_sync_failed).
func Event(v string) zap.Field { return zap.String("event", v) }

func Driver(v string) zap.Field { return zap.String("driver", v) }

func Err(err error) zap.Field { return zap.Error(err) }

func Any(key string, v any) zap.Field { return zap.Any(key, v) }

func String(key, v string) zap.Field { return zap.String(key, v) }

func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }

// Field alias para que los callers no importen zap.
type Field = zap.Field

// Stack adjunta el stack trace actual.
func Stack() zap.Field { return zap.Stack("stack") }
