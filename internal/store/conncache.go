package store

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/codepulse/internal/metrics"
	"github.com/dropDatabas3/codepulse/internal/observability/logger"
)

// DefaultFailFastTimeout acota connect+ping. Mucho menor que el server selection
// timeout por defecto de los drivers (30s): un cold start no debe colgarse.
const DefaultFailFastTimeout = 5 * time.Second

// ConnectionCacheOptions opciones del ConnectionCache.
type ConnectionCacheOptions struct {
	// FailFastTimeout 0 = DefaultFailFastTimeout.
	FailFastTimeout time.Duration

	// DSNKey nombre de la variable que provee el DSN, para los mensajes de error.
	// Default "DB_URL".
	DSNKey string
}

type established struct {
	conn AdapterConnection
	at   time.Time
}

// ConnectionCache mantiene un único handle al store para la vida del proceso.
//
// Se crea una vez en el wiring y se pasa a quien lo necesite; no hay estado
// global. El primer Acquire exitoso fija el handle y los siguientes lo retornan
// sin contactar al store. Un handle nunca se entrega antes de un ping exitoso,
// así que ninguna operación queda encolada contra una conexión sin establecer.
// Un fallo no se cachea: el siguiente Acquire vuelve a intentar.
type ConnectionCache struct {
	adapter Adapter
	cfg     AdapterConfig
	timeout time.Duration
	dsnKey  string

	current atomic.Pointer[established]

	// sf colapsa los handshakes concurrentes de un cold start en uno solo
	sf singleflight.Group
}

// NewConnectionCache crea el cache. No contacta al store.
func NewConnectionCache(adapter Adapter, cfg AdapterConfig, opts ConnectionCacheOptions) *ConnectionCache {
	if opts.FailFastTimeout <= 0 {
		opts.FailFastTimeout = DefaultFailFastTimeout
	}
	if opts.DSNKey == "" {
		opts.DSNKey = "DB_URL"
	}
	return &ConnectionCache{
		adapter: adapter,
		cfg:     cfg,
		timeout: opts.FailFastTimeout,
		dsnKey:  opts.DSNKey,
	}
}

// Acquire retorna el handle establecido o lo establece.
// Errores: *ConfigurationError si no hay DSN, *ConnectionError si el store no
// responde dentro de la ventana fail-fast.
func (c *ConnectionCache) Acquire(ctx context.Context) (AdapterConnection, error) {
	if e := c.current.Load(); e != nil {
		metrics.StoreAcquireTotal.WithLabelValues("cached").Inc()
		return e.conn, nil
	}

	if strings.TrimSpace(c.cfg.DSN) == "" && !dsnOptional(c.adapter) {
		metrics.StoreAcquireTotal.WithLabelValues("config_error").Inc()
		logger.From(ctx).Error("store DSN missing", logger.Op("store.acquire"), logger.String("key", c.dsnKey))
		return nil, &ConfigurationError{Key: c.dsnKey}
	}

	v, err, _ := c.sf.Do("acquire", func() (any, error) {
		// double-check: otro flight pudo haber terminado entre Load y Do
		if e := c.current.Load(); e != nil {
			return e.conn, nil
		}
		return c.connect(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(AdapterConnection), nil
}

// connect hace connect+ping bajo el timeout fail-fast. Usa un contexto sin
// cancelación del caller: el handshake es compartido por todos los que esperan
// en el singleflight.
func (c *ConnectionCache) connect(ctx context.Context) (AdapterConnection, error) {
	log := logger.From(ctx).With(logger.Op("store.connect"), logger.Driver(c.adapter.Name()))
	start := time.Now()

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	conn, err := c.adapter.Connect(cctx, c.cfg)
	if err != nil {
		metrics.StoreAcquireTotal.WithLabelValues("connect_error").Inc()
		log.Error("store connect failed", logger.Err(err))
		return nil, &ConnectionError{Driver: c.adapter.Name(), Timeout: c.timeout, Err: err}
	}
	if err := conn.Ping(cctx); err != nil {
		_ = conn.Close()
		metrics.StoreAcquireTotal.WithLabelValues("connect_error").Inc()
		log.Error("store ping failed", logger.Err(err))
		return nil, &ConnectionError{Driver: c.adapter.Name(), Timeout: c.timeout, Err: err}
	}

	c.current.Store(&established{conn: conn, at: time.Now()})
	metrics.StoreAcquireTotal.WithLabelValues("connected").Inc()
	metrics.StoreConnectSeconds.Observe(time.Since(start).Seconds())
	log.Info("store connected", logger.Duration(time.Since(start)))
	return conn, nil
}

// DSNOptional lo implementan adapters que no necesitan DSN (memory).
type DSNOptional interface {
	DSNOptional() bool
}

func dsnOptional(a Adapter) bool {
	o, ok := a.(DSNOptional)
	return ok && o.DSNOptional()
}

// Ping adquiere el handle si hace falta y verifica que el store responde,
// acotado por la misma ventana fail-fast.
func (c *ConnectionCache) Ping(ctx context.Context) error {
	conn, err := c.Acquire(ctx)
	if err != nil {
		return err
	}
	pctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return conn.Ping(pctx)
}

// Established indica si ya hay un handle.
func (c *ConnectionCache) Established() bool {
	return c.current.Load() != nil
}

// Close cierra el handle si existe. Solo para shutdown del proceso.
func (c *ConnectionCache) Close() error {
	e := c.current.Swap(nil)
	if e == nil {
		return nil
	}
	return e.conn.Close()
}
