package middlewares

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/dropDatabas3/codepulse/internal/authn"
	"github.com/dropDatabas3/codepulse/internal/domain/repository"
	"github.com/dropDatabas3/codepulse/internal/http/errors"
	"github.com/dropDatabas3/codepulse/internal/metrics"
	"github.com/dropDatabas3/codepulse/internal/observability/logger"
	"github.com/dropDatabas3/codepulse/internal/rate"
	"github.com/dropDatabas3/codepulse/internal/reconcile"
	"github.com/dropDatabas3/codepulse/internal/store"
)

// ChatSyncHeader se setea en "failed" cuando el usuario quedó adjuntado pero
// su perfil no llegó al chat.
const ChatSyncHeader = "X-Chat-Sync"

// Reconciler resuelve un ExternalID sin registro local.
type Reconciler interface {
	Reconcile(ctx context.Context, externalID string) (*repository.User, error)
}

// GatewayDeps dependencias de RequireUser.
type GatewayDeps struct {
	Verifier   authn.Verifier
	Users      repository.UserRepository
	Reconciler Reconciler

	// Limiter acota las reconciliaciones por ExternalID (nil = sin límite).
	// Un limiter caído no bloquea: se loguea y se sigue.
	Limiter rate.Limiter
}

// resolution resultado del gateway para un request.
type resolution struct {
	externalID string
	user       *repository.User
	syncErr    error
	reject     *errors.AppError
	retryAfter time.Duration
	outcome    string
}

// RequireUser autentica el request y adjunta el usuario local al contexto.
//
// Sin credencial válida responde 401 sin tocar store ni provider. Si no hay
// registro local lo reconcilia; los fallos se traducen a status acá y solo acá.
// Un fallo del sync de chat no rechaza el request: se marca con ChatSyncHeader.
func RequireUser(deps GatewayDeps) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := resolve(r, deps)
			metrics.GatewayRequests.WithLabelValues(res.outcome).Inc()

			if res.reject != nil {
				if res.retryAfter > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(res.retryAfter.Seconds()))))
				}
				errors.WriteError(w, res.reject)
				return
			}

			ctx := WithUser(r.Context(), res.user)
			ctx = logger.With(ctx, logger.UserID(res.user.ID), logger.ExternalID(res.externalID))
			if res.syncErr != nil {
				w.Header().Set(ChatSyncHeader, "failed")
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolve(r *http.Request, deps GatewayDeps) (res resolution) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Op("gateway"))

	defer func() {
		if rec := recover(); rec != nil {
			// log ya lleva external_id si se llegó a verificar el token
			log.Error("gateway panic",
				logger.Any("panic", rec),
				logger.Stack(),
			)
			res = resolution{
				externalID: res.externalID,
				reject:     errors.ErrInternalServerError.WithCause(fmt.Errorf("panic: %v", rec)),
				outcome:    "internal_error",
			}
		}
	}()

	// Unauthenticated → Verifying
	raw, err := authn.TokenFromRequest(r)
	if err != nil {
		return resolution{reject: errors.ErrUnauthorized, outcome: "unauthorized"}
	}
	p, err := deps.Verifier.Verify(ctx, raw)
	if err != nil || p == nil || p.ExternalID == "" {
		log.Debug("token rejected", logger.Err(err))
		return resolution{reject: errors.ErrUnauthorized, outcome: "unauthorized"}
	}
	res.externalID = p.ExternalID
	log = log.With(logger.ExternalID(p.ExternalID))

	u, err := deps.Users.GetByExternalID(ctx, p.ExternalID)
	if err == nil {
		res.user, res.outcome = u, "attached"
		return res
	}
	if !repository.IsNotFound(err) {
		return reject(log, res, err)
	}

	// ResolvingIdentity
	if deps.Limiter != nil {
		rl, err := deps.Limiter.Allow(ctx, "reconcile:"+p.ExternalID)
		switch {
		case err != nil:
			log.Warn("reconcile limiter unavailable", logger.Err(err))
		case !rl.Allowed:
			res.reject, res.retryAfter, res.outcome = errors.ErrTooManyRequests, rl.RetryAfter, "rate_limited"
			return res
		}
	}
	u, err = deps.Reconciler.Reconcile(ctx, p.ExternalID)
	var spe *reconcile.SyncPropagationError
	switch {
	case err == nil && u != nil:
		res.user, res.outcome = u, "attached"
	case stderrors.As(err, &spe) && u != nil:
		res.user, res.syncErr, res.outcome = u, err, "attached_sync_failed"
	case err != nil:
		return reject(log, res, err)
	default:
		res.reject, res.outcome = errors.ErrUserNotFound, "not_found"
	}
	return res
}

// reject traduce errores tipados a AppError y los loguea.
func reject(log *logger.Logger, res resolution, err error) resolution {
	var (
		ule  *reconcile.UpstreamLookupError
		cre  *reconcile.ConflictRepairError
		cfg  *store.ConfigurationError
		conn *store.ConnectionError
	)
	switch {
	case stderrors.As(err, &ule):
		if ule.NotFound {
			res.reject, res.outcome = errors.ErrUserSyncFailed.WithCause(err), "upstream_not_found"
		} else {
			res.reject, res.outcome = errors.ErrUpstreamLookup.WithCause(err), "upstream_error"
		}
		log.Warn("identity sync failed", logger.Err(err))
	case stderrors.As(err, &cre):
		res.reject, res.outcome = errors.ErrIdentityConflict.WithCause(err), "conflict"
		log.Warn("identity conflict", logger.Err(err))
	case stderrors.As(err, &cfg):
		res.reject, res.outcome = errors.ErrStoreMisconfigured.WithCause(err), "store_misconfigured"
		log.Error("store misconfigured", logger.Err(err))
	case stderrors.As(err, &conn):
		res.reject, res.outcome = errors.ErrServiceUnavailable.WithCause(err), "store_unavailable"
		log.Error("store unavailable", logger.Err(err))
	case stderrors.Is(err, context.Canceled):
		res.reject, res.outcome = errors.ErrClientClosedRequest.WithCause(err), "client_canceled"
		log.Debug("client canceled request", logger.Err(err))
	default:
		res.reject, res.outcome = errors.ErrInternalServerError.WithCause(err), "internal_error"
		log.Error("gateway failed", logger.Err(err))
	}
	return res
}
