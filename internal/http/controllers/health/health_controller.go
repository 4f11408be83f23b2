// Package health contiene los controllers de health check.
package health

import (
	"context"
	"net/http"

	httperrors "github.com/dropDatabas3/codepulse/internal/http/errors"
	"github.com/dropDatabas3/codepulse/internal/observability/logger"
)

// StoreProbe lo implementa store.ConnectionCache.
type StoreProbe interface {
	Ping(ctx context.Context) error
}

// HealthController maneja /health, /api/test y /readyz.
type HealthController struct {
	store StoreProbe
}

// NewHealthController store puede ser nil (readyz responde ready sin chequear).
func NewHealthController(store StoreProbe) *HealthController {
	return &HealthController{store: store}
}

// Health maneja GET /health. Liveness: no toca dependencias.
func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	httperrors.WriteJSON(w, http.StatusOK, map[string]string{"msg": "api is up and running"})
}

// APITest maneja GET /api/test.
func (c *HealthController) APITest(w http.ResponseWriter, r *http.Request) {
	httperrors.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "API is accessible"})
}

type readyResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

// Readyz maneja GET /readyz. Adquiere el store bajo la ventana fail-fast.
func (c *HealthController) Readyz(w http.ResponseWriter, r *http.Request) {
	if c.store == nil {
		httperrors.WriteJSON(w, http.StatusOK, readyResponse{Status: "ready", Store: "unchecked"})
		return
	}
	if err := c.store.Ping(r.Context()); err != nil {
		logger.From(r.Context()).Warn("readiness check failed", logger.Op("HealthController.Readyz"), logger.Err(err))
		httperrors.WriteJSON(w, http.StatusServiceUnavailable, readyResponse{Status: "unavailable", Store: "down"})
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, readyResponse{Status: "ready", Store: "up"})
}
