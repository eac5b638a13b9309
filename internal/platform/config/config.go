package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Backends selectable through IDENTITY_BACKEND and SESSION_BACKEND.
const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// DefaultSessionTTL is the fixed lifetime of a session token. Sessions are
// never renewed on use.
const DefaultSessionTTL = 24 * time.Hour

// Config is the full process configuration.
type Config struct {
	Server   Server
	Redis    RedisConfig
	Mongo    MongoConfig
	Postgres PostgresConfig
	Session  SessionConfig
	Auth     AuthConfig
	Status   StatusConfig
	Audit    AuditConfig
	Log      LogConfig

	// Warnings collects values that could not be parsed and fell back to
	// defaults; main logs them once the logger exists.
	Warnings []string
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
	ExposeMetrics   bool
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

type PostgresConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

type SessionConfig struct {
	Backend string
	TTL     time.Duration
}

type AuthConfig struct {
	IdentityBackend string
	BcryptCost      int
}

type StatusConfig struct {
	ProbeTimeout time.Duration
}

type AuditConfig struct {
	Enabled    bool
	BufferSize int
}

type LogConfig struct {
	Level  string
	Format string
}

// FromEnv builds the configuration from environment variables so main stays
// lean. A .env file in the working directory is loaded first when present;
// variables already set in the environment win.
func FromEnv() Config {
	_ = godotenv.Load()

	l := &loader{}
	cfg := Config{
		Server: Server{
			Addr:            l.str("SESSIONGATE_ADDR", ":5000"),
			ShutdownTimeout: l.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
			ExposeMetrics:   l.boolean("METRICS_ENABLED", true),
		},
		Redis: RedisConfig{
			URL:          l.str("REDIS_URL", "redis://localhost:6379/0"),
			PoolSize:     l.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: l.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  l.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  l.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: l.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Mongo: MongoConfig{
			URI:            l.str("MONGO_URI", "mongodb://localhost:27017"),
			Database:       l.str("MONGO_DATABASE", "files_manager"),
			ConnectTimeout: l.duration("MONGO_CONNECT_TIMEOUT", 10*time.Second),
		},
		Postgres: PostgresConfig{
			URL:          l.str("DATABASE_URL", ""),
			MaxOpenConns: l.integer("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns: l.integer("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Session: SessionConfig{
			Backend: l.oneOf("SESSION_BACKEND", BackendRedis, BackendRedis, BackendMemory),
			TTL:     l.duration("SESSION_TTL", DefaultSessionTTL),
		},
		Auth: AuthConfig{
			IdentityBackend: l.oneOf("IDENTITY_BACKEND", BackendMongo, BackendMongo, BackendPostgres, BackendMemory),
			BcryptCost:      l.bcryptCost("BCRYPT_COST"),
		},
		Status: StatusConfig{
			ProbeTimeout: l.duration("STATUS_PROBE_TIMEOUT", 2*time.Second),
		},
		Audit: AuditConfig{
			Enabled:    l.boolean("AUDIT_ENABLED", true),
			BufferSize: l.integer("AUDIT_BUFFER", 1024),
		},
		Log: LogConfig{
			Level:  l.oneOf("LOG_LEVEL", "info", "debug", "info", "warn", "error"),
			Format: l.oneOf("LOG_FORMAT", "json", "json", "text"),
		},
	}

	if cfg.Auth.IdentityBackend == BackendPostgres && cfg.Postgres.URL == "" {
		l.warn("IDENTITY_BACKEND=postgres requires DATABASE_URL")
	}

	cfg.Warnings = l.warnings
	return cfg
}

type loader struct {
	warnings []string
}

func (l *loader) warn(format string, args ...any) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}

func (l *loader) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (l *loader) integer(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		l.warn("%s=%q is not a non-negative integer, using %d", key, raw, def)
		return def
	}
	return v
}

func (l *loader) duration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		l.warn("%s=%q is not a positive duration, using %s", key, raw, def)
		return def
	}
	return v
}

func (l *loader) boolean(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		l.warn("%s=%q is not a boolean, using %t", key, raw, def)
		return def
	}
	return v
}

func (l *loader) oneOf(key, def string, allowed ...string) string {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if raw == "" {
		return def
	}
	for _, a := range allowed {
		if raw == a {
			return raw
		}
	}
	l.warn("%s=%q is not one of %v, using %s", key, raw, allowed, def)
	return def
}

func (l *loader) bcryptCost(key string) int {
	cost := l.integer(key, bcrypt.DefaultCost)
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		l.warn("%s=%d is outside [%d,%d], using %d", key, cost, bcrypt.MinCost, bcrypt.MaxCost, bcrypt.DefaultCost)
		return bcrypt.DefaultCost
	}
	return cost
}
