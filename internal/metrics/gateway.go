package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Collectors del gateway. Viven en un paquete aparte para que store, reconcile y
// middlewares puedan instrumentarse sin importarse entre sí.

var (
	StoreAcquireTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "codepulse_store_acquire_total",
		Help: "Adquisiciones del handle del store por resultado (cached, connected, config_error, connect_error)",
	}, []string{"result"})

	StoreConnectSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "codepulse_store_connect_seconds",
		Help:    "Latencia del handshake inicial con el store",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
	})

	ReconcileTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "codepulse_reconcile_total",
		Help: "Reconciliaciones de identidad por outcome",
	}, []string{"outcome"})

	ChatSyncFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "codepulse_chat_sync_failures_total",
		Help: "Fallos al propagar el perfil al servicio de chat",
	})

	GatewayRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "codepulse_gateway_requests_total",
		Help: "Requests autenticados por outcome del gateway",
	}, []string{"outcome"})
)

// Register registra los collectors en reg (o el default si es nil).
// Registrar dos veces no es error.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		StoreAcquireTotal,
		StoreConnectSeconds,
		ReconcileTotal,
		ChatSyncFailures,
		GatewayRequests,
	} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
		}
	}
	return nil
}
