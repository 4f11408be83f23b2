// Package server arma las dependencias del gateway a partir de la config.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/codepulse/internal/authn"
	"github.com/dropDatabas3/codepulse/internal/cache"
	"github.com/dropDatabas3/codepulse/internal/chat"
	"github.com/dropDatabas3/codepulse/internal/config"
	"github.com/dropDatabas3/codepulse/internal/domain/repository"
	"github.com/dropDatabas3/codepulse/internal/http/controllers/health"
	"github.com/dropDatabas3/codepulse/internal/http/controllers/me"
	mw "github.com/dropDatabas3/codepulse/internal/http/middlewares"
	"github.com/dropDatabas3/codepulse/internal/http/router"
	"github.com/dropDatabas3/codepulse/internal/identity"
	"github.com/dropDatabas3/codepulse/internal/metrics"
	"github.com/dropDatabas3/codepulse/internal/observability/logger"
	"github.com/dropDatabas3/codepulse/internal/rate"
	"github.com/dropDatabas3/codepulse/internal/reconcile"
	"github.com/dropDatabas3/codepulse/internal/store"
)

// App contiene el handler y los recursos con ciclo de vida.
type App struct {
	Conns   *store.ConnectionCache
	Users   repository.UserRepository
	Handler http.Handler

	cache   cache.Client
	limitRC *redis.Client
}

// Store crea el ConnectionCache y el UserStore (con cache si está configurado).
// No contacta al store: la conexión se establece en el primer Acquire.
func Store(ctx context.Context, cfg *config.Config) (*store.ConnectionCache, repository.UserRepository, cache.Client, error) {
	acfg := store.AdapterConfig{
		Name:        cfg.Storage.Driver,
		DSN:         cfg.Storage.DSN,
		Database:    cfg.Storage.Database,
		MaxPoolSize: cfg.Storage.MaxPoolSize,
	}
	adapter, err := store.MustAdapter(acfg)
	if err != nil {
		return nil, nil, nil, err
	}
	conns := store.NewConnectionCache(adapter, acfg, store.ConnectionCacheOptions{
		FailFastTimeout: cfg.ConnectTimeout(),
		DSNKey:          "DB_URL",
	})

	var users repository.UserRepository = store.NewUserStore(conns)
	if cfg.Cache.Kind == "none" {
		return conns, users, nil, nil
	}
	c, err := cache.New(ctx, cache.Config{
		Kind:       cfg.Cache.Kind,
		RedisAddr:  cfg.Cache.Redis.Addr,
		RedisDB:    cfg.Cache.Redis.DB,
		Prefix:     cfg.Cache.Redis.Prefix,
		DefaultTTL: cfg.CacheTTL(),
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("cache: %w", err)
	}
	return conns, store.NewCachedUsers(users, c, cfg.CacheTTL()), c, nil
}

// Build arma el handler completo.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.L().With(logger.Component("wiring"))

	conns, users, c, err := Store(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var (
		verifier authn.Verifier
		source   identity.Source
	)
	if cfg.ClerkEnabled() {
		v, err := authn.NewOIDCVerifier(ctx, cfg.Clerk.Issuer, cfg.Clerk.AuthorizedParties)
		if err != nil {
			return nil, err
		}
		verifier = v
		source = identity.NewClerkSource(cfg.Clerk.SecretKey, cfg.LookupTimeout())
	} else {
		log.Warn("clerk not configured, using dev verifier and static profiles",
			logger.Any("profiles", len(cfg.Dev.Profiles)))
		verifier = authn.NewHMACVerifier([]byte(cfg.Dev.TokenSecret), "")
		source = devSource(cfg.Dev.Profiles)
	}

	var syncer chat.Syncer = chat.NoopSyncer{}
	if cfg.StreamEnabled() {
		s, err := chat.NewStreamSyncer(cfg.Stream.APIKey, cfg.Stream.APISecret, cfg.ChatTimeout())
		if err != nil {
			return nil, err
		}
		syncer = s
	} else {
		log.Warn("stream not configured, chat sync disabled")
	}

	limiter, limitRC, err := reconcileLimiter(cfg)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := metrics.Register(reg); err != nil {
		return nil, err
	}

	h := router.New(router.Deps{
		Health: health.NewHealthController(conns),
		Me:     me.NewMeController(),
		Gateway: mw.GatewayDeps{
			Verifier:   verifier,
			Users:      users,
			Reconciler: reconcile.New(users, source, syncer),
			Limiter:    limiter,
		},
		Metrics:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSOrigins:  cfg.Server.CORSAllowedOrigins,
		CORSAllowAny: !cfg.IsProd(),
	})

	return &App{Conns: conns, Users: users, Handler: h, cache: c, limitRC: limitRC}, nil
}

// reconcileLimiter nil si gateway.reconcile_limit es 0. Con cache redis el
// contador se comparte entre réplicas.
func reconcileLimiter(cfg *config.Config) (rate.Limiter, *redis.Client, error) {
	limit := cfg.Gateway.ReconcileLimit
	if limit <= 0 {
		return nil, nil, nil
	}
	if cfg.Cache.Kind != "redis" {
		return rate.NewMemoryLimiter(limit, cfg.ReconcileWindow()), nil, nil
	}
	opts, err := cache.RedisOptions(cache.Config{RedisAddr: cfg.Cache.Redis.Addr, RedisDB: cfg.Cache.Redis.DB})
	if err != nil {
		return nil, nil, err
	}
	rc := redis.NewClient(opts)
	return rate.NewRedisLimiter(rc, cfg.Cache.Redis.Prefix+":rl:", limit, cfg.ReconcileWindow()), rc, nil
}

func devSource(profiles []config.DevProfile) *identity.StaticSource {
	s := identity.NewStaticSource()
	for _, p := range profiles {
		ip := &identity.Profile{ID: p.ID, ImageURL: p.ImageURL}
		if p.FirstName != "" {
			ip.FirstName = &p.FirstName
		}
		if p.LastName != "" {
			ip.LastName = &p.LastName
		}
		if p.Username != "" {
			ip.Username = &p.Username
		}
		if p.Email != "" {
			ip.Emails = []identity.EmailAddress{{ID: "dev", Address: p.Email, Verified: true}}
			ip.PrimaryEmailID = "dev"
		}
		s.Put(ip)
	}
	return s
}

// NewHTTPServer http.Server con los timeouts del servicio.
func NewHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// Close libera el store y el cache.
func (a *App) Close() error {
	var errs []error
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	if a.limitRC != nil {
		errs = append(errs, a.limitRC.Close())
	}
	if a.Conns != nil {
		errs = append(errs, a.Conns.Close())
	}
	return errors.Join(errs...)
}
