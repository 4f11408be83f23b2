// Package router arma el árbol de rutas HTTP.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/codepulse/internal/http/controllers/health"
	"github.com/dropDatabas3/codepulse/internal/http/controllers/me"
	mw "github.com/dropDatabas3/codepulse/internal/http/middlewares"
)

// Deps dependencias del router.
type Deps struct {
	Health  *health.HealthController
	Me      *me.MeController
	Gateway mw.GatewayDeps

	// Metrics handler de /metrics (nil = no se expone).
	Metrics http.Handler

	CORSOrigins  []string
	CORSAllowAny bool
}

// New retorna el handler raíz.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithCORS(deps.CORSOrigins, deps.CORSAllowAny),
	)

	// probes y métricas: sin logging por request (muy frecuentes)
	r.Get("/health", deps.Health.Health)
	r.Get("/readyz", deps.Health.Readyz)
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(mw.WithLogging())

		r.Get("/api/test", deps.Health.APITest)

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireUser(deps.Gateway))
			r.Get("/api/me", deps.Me.Me)
		})
	})

	return r
}
