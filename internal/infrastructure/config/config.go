package config

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port            string        `env:"PORT,             default=8080"`
	Env             string        `env:"ENV,              default=development"`
	LogLevel        string        `env:"LOG_LEVEL,        default=info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=10s"`

	Mongo    MongoConfig
	Redis    RedisConfig
	Session  SessionConfig
	Progress ProgressConfig
	WS       WSConfig
}

type MongoConfig struct {
	URI         string        `env:"MONGO_URI,           default=mongodb://localhost:27017"`
	Database    string        `env:"MONGO_DB,            default=users"`
	MaxPoolSize uint64        `env:"MONGO_MAX_POOL_SIZE, default=10"`
	OpTimeout   time.Duration `env:"MONGO_OP_TIMEOUT,    default=5s"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type SessionConfig struct {
	CacheEnabled bool          `env:"SESSION_CACHE_ENABLED, default=true"`
	CacheTTL     time.Duration `env:"SESSION_CACHE_TTL,     default=15m"`
}

type ProgressConfig struct {
	Workers   int `env:"PROGRESS_WORKERS,    default=4"`
	QueueSize int `env:"PROGRESS_QUEUE_SIZE, default=256"`
}

type WSConfig struct {
	// AllowedOrigins lists extra origins accepted on the upgrade request.
	// Same-origin requests are always accepted.
	AllowedOrigins []string `env:"WS_ALLOWED_ORIGINS"`
}

// IsProduction reports whether the service runs with production defaults
// (JSON logs, no swagger UI).
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if p, err := strconv.Atoi(c.Port); err != nil || p <= 0 || p > 65535 {
		errs = append(errs, fmt.Errorf("PORT: invalid port %q", c.Port))
	}
	if c.Mongo.URI == "" {
		errs = append(errs, errors.New("MONGO_URI: required"))
	}
	if c.Mongo.Database == "" {
		errs = append(errs, errors.New("MONGO_DB: required"))
	}
	if c.Mongo.MaxPoolSize == 0 {
		errs = append(errs, errors.New("MONGO_MAX_POOL_SIZE: must be positive"))
	}
	if c.Mongo.OpTimeout <= 0 {
		errs = append(errs, errors.New("MONGO_OP_TIMEOUT: must be positive"))
	}
	if c.Session.CacheEnabled && c.Session.CacheTTL <= 0 {
		errs = append(errs, errors.New("SESSION_CACHE_TTL: must be positive"))
	}
	if c.Progress.Workers <= 0 {
		errs = append(errs, errors.New("PROGRESS_WORKERS: must be positive"))
	}
	if c.Progress.QueueSize <= 0 {
		errs = append(errs, errors.New("PROGRESS_QUEUE_SIZE: must be positive"))
	}
	return errors.Join(errs...)
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context, logger zerolog.Logger) (*Config, error) {
	return load(ctx, envconfig.OsLookuper(), logger)
}

func load(ctx context.Context, lookuper envconfig.Lookuper, logger zerolog.Logger) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Debug().
		Str("port", cfg.Port).
		Str("env", cfg.Env).
		Str("mongo_db", cfg.Mongo.Database).
		Bool("session_cache", cfg.Session.CacheEnabled).
		Int("progress_workers", cfg.Progress.Workers).
		Msg("configuration loaded")
	return &cfg, nil
}
