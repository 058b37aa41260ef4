package hostAuth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/hostAuth/session"
	"github.com/MrEthical07/hostAuth/session/memstore"
	"github.com/MrEthical07/hostAuth/session/redisstore"
	"github.com/MrEthical07/hostAuth/session/sqlitestore"
)

// Config is the process-level configuration. Per-host policies come from host
// files, not from here.
type Config struct {
	// AppName is the issuer used by hosts whose provider is "local".
	AppName string `env:"HOSTAUTH_APP_NAME,default=hostauth"`
	// HostsPath is a host file or a directory of host files.
	HostsPath string `env:"HOSTAUTH_HOSTS"`
	Store     StoreConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
	Log       LogConfig
}

/*
====================================
STORE CONFIG
====================================
*/

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// StoreConfig selects and configures the permission store backend.
type StoreConfig struct {
	Backend       string `env:"HOSTAUTH_STORE,default=memory"`
	RedisAddr     string `env:"HOSTAUTH_REDIS_ADDR"`
	RedisPassword string `env:"HOSTAUTH_REDIS_PASSWORD"`
	RedisDB       int    `env:"HOSTAUTH_REDIS_DB,default=0"`
	RedisPrefix   string `env:"HOSTAUTH_REDIS_PREFIX,default=hostauth"`
	// RedisRetention keeps expired records around for this long so that the
	// next request can still observe and delete them. Zero keeps them until
	// they are deleted.
	RedisRetention time.Duration `env:"HOSTAUTH_REDIS_RETENTION"`
	SQLiteDSN      string        `env:"HOSTAUTH_SQLITE_DSN"`
}

/*
====================================
AUDIT / METRICS / LOG CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool `env:"HOSTAUTH_AUDIT_ENABLED,default=false"`
	BufferSize int  `env:"HOSTAUTH_AUDIT_BUFFER,default=1024"`
	DropIfFull bool `env:"HOSTAUTH_AUDIT_DROP_IF_FULL,default=true"`
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled                 bool `env:"HOSTAUTH_METRICS_ENABLED,default=false"`
	EnableLatencyHistograms bool `env:"HOSTAUTH_METRICS_LATENCY,default=false"`
}

// LogConfig controls the default logger built when none is supplied.
type LogConfig struct {
	Level  string `env:"HOSTAUTH_LOG_LEVEL,default=info"`
	Format string `env:"HOSTAUTH_LOG_FORMAT,default=text"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		AppName: "hostauth",
		Store: StoreConfig{
			Backend:     StoreMemory,
			RedisPrefix: redisstore.DefaultPrefix,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfigFromEnv reads HOSTAUTH_* variables. Unset variables take the tag
// defaults, which match DefaultConfig.
func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

/*
====================================
VALIDATION
====================================
*/

// Validate rejects unknown store backends, missing backend addresses and
// unknown log settings.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.AppName) == "" {
		return fmt.Errorf("%w: AppName must not be empty", ErrInvalidConfig)
	}

	switch c.Store.Backend {
	case StoreMemory:
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("%w: redis store requires RedisAddr", ErrInvalidConfig)
		}
		if c.Store.RedisDB < 0 {
			return fmt.Errorf("%w: RedisDB must be >= 0", ErrInvalidConfig)
		}
		if c.Store.RedisRetention < 0 {
			return fmt.Errorf("%w: RedisRetention must be >= 0", ErrInvalidConfig)
		}
	case StoreSQLite:
		if c.Store.SQLiteDSN == "" {
			return fmt.Errorf("%w: sqlite store requires SQLiteDSN", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, c.Store.Backend)
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return fmt.Errorf("%w: Audit BufferSize must be > 0 when enabled", ErrInvalidConfig)
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return fmt.Errorf("%w: latency histograms require Metrics.Enabled", ErrInvalidConfig)
	}

	if _, err := c.Log.level(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

func (l LogConfig) level() (slog.Level, error) {
	var level slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("%w: log level: %v", ErrInvalidConfig, err)
	}
	return level, nil
}

// NewLogger builds a logger writing to w with the configured level and format.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := l.level()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// OpenStore opens the configured backend. The caller owns the returned store;
// an Engine built with WithConfig and no explicit store closes it on Close.
func (c *Config) OpenStore(ctx context.Context) (session.Store, error) {
	switch c.Store.Backend {
	case StoreMemory, "":
		return memstore.New(), nil
	case StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     c.Store.RedisAddr,
			Password: c.Store.RedisPassword,
			DB:       c.Store.RedisDB,
		})
		var opts []redisstore.Option
		if c.Store.RedisRetention > 0 {
			opts = append(opts, redisstore.WithRetention(c.Store.RedisRetention))
		}
		store := redisstore.New(client, c.Store.RedisPrefix, opts...)
		if _, err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil
	case StoreSQLite:
		return sqlitestore.Open(ctx, c.Store.SQLiteDSN)
	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, c.Store.Backend)
	}
}
