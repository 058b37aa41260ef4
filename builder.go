package hostAuth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/hostAuth/hosts"
	"github.com/MrEthical07/hostAuth/internal/audit"
	"github.com/MrEthical07/hostAuth/internal/flows"
	"github.com/MrEthical07/hostAuth/jwt"
	"github.com/MrEthical07/hostAuth/session"
)

// Builder assembles an Engine. A Builder is single-use.
type Builder struct {
	config Config

	store     session.Store
	registry  *hosts.Registry
	hostFiles []hosts.File

	logger     *slog.Logger
	auditSink  AuditSink
	now        func() time.Time
	newRefresh func() string

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the process configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithStore supplies the permission store. The caller keeps ownership: Engine.Close
// does not close it. Without a store, Build opens the one named by Config.Store.
func (b *Builder) WithStore(store session.Store) *Builder {
	b.store = store
	return b
}

// WithHosts supplies host files to resolve at Build time.
func (b *Builder) WithHosts(files ...hosts.File) *Builder {
	b.hostFiles = append(b.hostFiles, files...)
	return b
}

// WithRegistry supplies an already resolved registry. Its codecs keep whatever
// clock they were built with.
func (b *Builder) WithRegistry(r *hosts.Registry) *Builder {
	b.registry = r
	return b
}

// WithLogger replaces the logger built from Config.Log.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets where audit events go when Config.Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock replaces time.Now for record timestamps and token verification.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithRefreshGenerator replaces the UUID generator used for refresh values.
func (b *Builder) WithRefreshGenerator(gen func() string) *Builder {
	b.newRefresh = gen
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the permission latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, resolves hosts and opens the store.
func (b *Builder) Build() (*Engine, error) {
	return b.BuildContext(context.Background())
}

// BuildContext is Build with a context for opening the store.
func (b *Builder) BuildContext(ctx context.Context) (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	newRefresh := b.newRefresh
	if newRefresh == nil {
		newRefresh = uuid.NewString
	}
	logger := b.logger
	if logger == nil {
		logger = cfg.Log.NewLogger(os.Stderr)
	}

	// -------- HOSTS --------
	registry, err := b.resolveRegistry(cfg, now)
	if err != nil {
		return nil, err
	}

	// -------- STORE --------
	store := b.store
	ownsStore := false
	if store == nil {
		store, err = cfg.OpenStore(ctx)
		if err != nil {
			return nil, err
		}
		ownsStore = true
	}

	engine := &Engine{
		config:    cfg,
		registry:  registry,
		store:     store,
		ownsStore: ownsStore,
		logger:    logger,
		now:       now,
		metrics:   NewMetrics(cfg.Metrics),
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
	}
	engine.flows = flows.New(flows.Deps{
		Login: flows.LoginDeps{
			Decode:     jwt.Decode,
			Now:        now,
			NewRefresh: newRefresh,
			Store:      store,
		},
		Authenticate: flows.AuthenticateDeps{Classify: jwt.Classify},
		Permission:   flows.PermissionDeps{Now: now, Store: store},
		Refresh:      flows.RefreshDeps{Classify: jwt.Classify, Now: now, Store: store},
		Logout:       flows.LogoutDeps{Store: store},
	})

	b.built = true

	logger.Debug("hostauth engine built",
		slog.String("store", cfg.Store.Backend),
		slog.Int("hosts", len(registry.Hosts())),
	)
	return engine, nil
}

func (b *Builder) resolveRegistry(cfg Config, now func() time.Time) (*hosts.Registry, error) {
	if b.registry != nil {
		if len(b.hostFiles) > 0 {
			return nil, errors.New("WithRegistry and WithHosts are mutually exclusive")
		}
		return b.registry, nil
	}

	files := b.hostFiles
	if len(files) == 0 && cfg.HostsPath != "" {
		loaded, err := loadHostsPath(cfg.HostsPath)
		if err != nil {
			return nil, err
		}
		files = loaded
	}
	if len(files) == 0 {
		return nil, errors.New("no hosts configured")
	}
	return hosts.NewRegistry(files, cfg.AppName, jwt.WithClock(now))
}

func loadHostsPath(path string) ([]hosts.File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("hosts path: %w", err)
	}
	if info.IsDir() {
		return hosts.LoadDir(path)
	}
	return hosts.LoadFile(path)
}
