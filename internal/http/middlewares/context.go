package middlewares

import (
	"context"

	"github.com/dropDatabas3/codepulse/internal/domain/repository"
)

type ctxKey string

const (
	ctxUserKey      ctxKey = "user"
	ctxRequestIDKey ctxKey = "request_id"
)

// WithUser inyecta el usuario resuelto por el gateway.
func WithUser(ctx context.Context, u *repository.User) context.Context {
	return context.WithValue(ctx, ctxUserKey, u)
}

func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// GetUser retorna el usuario adjuntado por RequireUser, o nil si la ruta no
// pasó por el gateway.
func GetUser(ctx context.Context) *repository.User {
	u, _ := ctx.Value(ctxUserKey).(*repository.User)
	return u
}

// GetRequestID retorna el request ID o "".
func GetRequestID(ctx context.Context) string {
	s, _ := ctx.Value(ctxRequestIDKey).(string)
	return s
}
