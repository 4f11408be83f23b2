package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Server struct {
		Addr               string   `yaml:"addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	Storage struct {
		// mongo | postgres | memory
		Driver         string `yaml:"driver"`
		DSN            string `yaml:"dsn"`
		Database       string `yaml:"database"`
		MaxPoolSize    int    `yaml:"max_pool_size"`
		ConnectTimeout string `yaml:"connect_timeout"`
	} `yaml:"storage"`

	Cache struct {
		// none | memory (una sola réplica, no permitido en prod) | redis
		Kind  string `yaml:"kind"`
		TTL   string `yaml:"ttl"`
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	// Gateway limita los intentos de reconciliación por subject (0 = sin límite).
	// El backend sigue a cache.kind: redis comparte el contador entre réplicas.
	Gateway struct {
		ReconcileLimit  int    `yaml:"reconcile_limit"`
		ReconcileWindow string `yaml:"reconcile_window"`
	} `yaml:"gateway"`

	Clerk struct {
		SecretKey         string   `yaml:"secret_key"`
		Issuer            string   `yaml:"issuer"`
		AuthorizedParties []string `yaml:"authorized_parties"`
		LookupTimeout     string   `yaml:"lookup_timeout"`
	} `yaml:"clerk"`

	Stream struct {
		APIKey    string `yaml:"api_key"`
		APISecret string `yaml:"api_secret"`
		Timeout   string `yaml:"timeout"`
	} `yaml:"stream"`

	// Dev solo aplica si Clerk no está configurado y app_env != prod.
	Dev struct {
		TokenSecret string       `yaml:"token_secret"`
		Profiles    []DevProfile `yaml:"profiles"`
	} `yaml:"dev"`
}

// DevProfile perfil sembrado en el identity provider en memoria del modo dev.
type DevProfile struct {
	ID        string `yaml:"id"`
	Email     string `yaml:"email"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Username  string `yaml:"username"`
	ImageURL  string `yaml:"image_url"`
}

// LoadDotEnv carga archivos .env si existen. No pisa variables ya definidas.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: load %s: %w", p, err)
		}
	}
	return nil
}

// Load lee el YAML (path vacío = solo defaults + env), aplica defaults y
// overrides por env, y valida.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	c.applyEnvOverrides()
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":3000"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "mongo"
	}
	if c.Storage.ConnectTimeout == "" {
		c.Storage.ConnectTimeout = "5s"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "none"
	}
	if c.Cache.TTL == "" {
		c.Cache.TTL = "2m"
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "codepulse"
	}
	if c.Gateway.ReconcileWindow == "" {
		c.Gateway.ReconcileWindow = "1m"
	}
	if c.Clerk.LookupTimeout == "" {
		c.Clerk.LookupTimeout = "10s"
	}
	if c.Stream.Timeout == "" {
		c.Stream.Timeout = "5s"
	}
	if c.Dev.TokenSecret == "" && !c.IsProd() {
		c.Dev.TokenSecret = "codepulse-dev-secret"
	}
}

// Validate chequea enums y duraciones. DSN ausente no es error acá: lo
// reporta el ConnectionCache en la primera adquisición.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "mongo", "postgres", "memory":
	default:
		return fmt.Errorf("config: storage.driver %q not supported (mongo|postgres|memory)", c.Storage.Driver)
	}
	switch c.Cache.Kind {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("config: cache.kind %q not supported (none|memory|redis)", c.Cache.Kind)
	}
	for key, v := range map[string]string{
		"storage.connect_timeout":  c.Storage.ConnectTimeout,
		"cache.ttl":                c.Cache.TTL,
		"gateway.reconcile_window": c.Gateway.ReconcileWindow,
		"clerk.lookup_timeout":     c.Clerk.LookupTimeout,
		"stream.timeout":           c.Stream.Timeout,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
	}
	if c.Gateway.ReconcileLimit < 0 {
		return errors.New("config: gateway.reconcile_limit must be >= 0")
	}
	// la invalidación por rebind de memory es local al proceso: con varias
	// réplicas las demás siguen sirviendo el binding viejo hasta el TTL
	if c.IsProd() && c.Cache.Kind == "memory" {
		return errors.New("config: cache.kind memory is per-process, use redis or none in prod")
	}
	if c.IsProd() && !c.ClerkEnabled() {
		return errors.New("config: CLERK_SECRET_KEY and CLERK_ISSUER are required in prod")
	}
	return nil
}

// IsProd true para "prod" o "production" (NODE_ENV).
func (c *Config) IsProd() bool {
	e := strings.ToLower(c.App.Env)
	return e == "prod" || e == "production"
}

// ClerkEnabled hay credenciales para verificar tokens y consultar perfiles.
func (c *Config) ClerkEnabled() bool {
	return c.Clerk.SecretKey != "" && c.Clerk.Issuer != ""
}

// StreamEnabled hay credenciales de Stream Chat.
func (c *Config) StreamEnabled() bool {
	return c.Stream.APIKey != "" && c.Stream.APISecret != ""
}

func (c *Config) ConnectTimeout() time.Duration  { return mustDur(c.Storage.ConnectTimeout) }
func (c *Config) CacheTTL() time.Duration        { return mustDur(c.Cache.TTL) }
func (c *Config) ReconcileWindow() time.Duration { return mustDur(c.Gateway.ReconcileWindow) }
func (c *Config) LookupTimeout() time.Duration   { return mustDur(c.Clerk.LookupTimeout) }
func (c *Config) ChatTimeout() time.Duration     { return mustDur(c.Stream.Timeout) }

// mustDur solo sobre valores ya validados.
func mustDur(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvCSV(key string) ([]string, bool) {
	s, ok := getEnvStr(key)
	if !ok {
		return nil, false
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, true
}

// firstEnv retorna la primera variable definida de keys.
func firstEnv(keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := getEnvStr(k); ok {
			return v, true
		}
	}
	return "", false
}

// applyEnvOverrides pisa el YAML con variables de entorno. Acepta los nombres
// del deploy Node (NODE_ENV, PORT, DB_URL) como alias.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := firstEnv("APP_ENV", "NODE_ENV"); ok {
		c.App.Env = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	} else if v, ok := getEnvStr("PORT"); ok {
		c.Server.Addr = ":" + strings.TrimPrefix(strings.TrimSpace(v), ":")
	}
	if v, ok := getEnvCSV("SERVER_CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = v
	} else if v, ok := getEnvStr("CLIENT_URL"); ok {
		c.Server.CORSAllowedOrigins = append(c.Server.CORSAllowedOrigins, v)
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v, ok := firstEnv("DB_URL", "STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvStr("STORAGE_DATABASE"); ok {
		c.Storage.Database = v
	}
	if v, ok := getEnvInt("STORAGE_MAX_POOL_SIZE"); ok {
		c.Storage.MaxPoolSize = v
	}
	if v, ok := getEnvStr("STORAGE_CONNECT_TIMEOUT"); ok {
		c.Storage.ConnectTimeout = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = strings.ToLower(v)
	}
	if v, ok := getEnvStr("CACHE_TTL"); ok {
		c.Cache.TTL = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}

	// GATEWAY
	if v, ok := getEnvInt("GATEWAY_RECONCILE_LIMIT"); ok {
		c.Gateway.ReconcileLimit = v
	}
	if v, ok := getEnvStr("GATEWAY_RECONCILE_WINDOW"); ok {
		c.Gateway.ReconcileWindow = v
	}

	// CLERK
	if v, ok := getEnvStr("CLERK_SECRET_KEY"); ok {
		c.Clerk.SecretKey = v
	}
	if v, ok := getEnvStr("CLERK_ISSUER"); ok {
		c.Clerk.Issuer = v
	}
	if v, ok := getEnvCSV("CLERK_AUTHORIZED_PARTIES"); ok {
		c.Clerk.AuthorizedParties = v
	}
	if v, ok := getEnvStr("CLERK_LOOKUP_TIMEOUT"); ok {
		c.Clerk.LookupTimeout = v
	}

	// STREAM
	if v, ok := getEnvStr("STREAM_API_KEY"); ok {
		c.Stream.APIKey = v
	}
	if v, ok := getEnvStr("STREAM_API_SECRET"); ok {
		c.Stream.APISecret = v
	}
	if v, ok := getEnvStr("STREAM_TIMEOUT"); ok {
		c.Stream.Timeout = v
	}

	// DEV
	if v, ok := getEnvStr("DEV_TOKEN_SECRET"); ok {
		c.Dev.TokenSecret = v
	}
}
