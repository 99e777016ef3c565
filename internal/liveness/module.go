package liveness

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/studiorstv10-png/studio-rs-tv/pkg/plugin"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin       = (*Module)(nil)
	_ plugin.HTTPProvider = (*Module)(nil)
)

// Config holds the liveness module settings.
type Config struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	AlertLogCap     int           `mapstructure:"alert_log_cap"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
}

// DefaultConfig returns the default liveness settings.
func DefaultConfig() Config {
	return Config{
		RefreshInterval: 10 * time.Minute,
		AlertLogCap:     500,
		SweepInterval:   time.Minute,
	}
}

// Module implements the terminal liveness plugin: heartbeat ingestion,
// lazy online/offline recomputation, and the bounded alert log.
type Module struct {
	logger  *zap.Logger
	cfg     Config
	store   *Store
	tracker *Tracker

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a new liveness plugin instance.
func New() *Module {
	return &Module{}
}

// Tracker exposes the liveness tracker for composition in main.go.
func (m *Module) Tracker() *Tracker {
	return m.tracker
}

// Info returns the plugin metadata.
func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:         "liveness",
		Version:      "0.1.0",
		Description:  "Heartbeat liveness tracking and offline alerting",
		Dependencies: []string{"fleet"},
		Roles:        []string{"monitoring"},
		APIVersion:   plugin.APIVersionCurrent,
	}
}

// Init runs migrations and wires the store and tracker.
func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	m.cfg = DefaultConfig()

	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&m.cfg); err != nil {
			m.logger.Warn("failed to unmarshal liveness config, using defaults", zap.Error(err))
		}
	}
	if m.cfg.RefreshInterval <= 0 {
		m.cfg.RefreshInterval = DefaultConfig().RefreshInterval
	}
	if m.cfg.SweepInterval <= 0 {
		m.cfg.SweepInterval = DefaultConfig().SweepInterval
	}

	if err := deps.Store.Migrate(ctx, "liveness", migrations); err != nil {
		return err
	}
	m.store = NewStore(deps.Store, m.cfg.AlertLogCap)
	m.tracker = NewTracker(m.store, m.cfg.RefreshInterval, m.logger, deps.Bus)

	m.logger.Info("liveness module initialized",
		zap.Duration("refresh_interval", m.cfg.RefreshInterval),
		zap.Int("alert_log_cap", m.cfg.AlertLogCap))
	return nil
}

// Start launches the background sweep that detects offline transitions
// even when no administrator is looking at the status listing.
func (m *Module) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})

	go m.sweep(ctx)

	m.logger.Info("liveness module started",
		zap.Duration("sweep_interval", m.cfg.SweepInterval))
	return nil
}

// Stop halts the background sweep.
func (m *Module) Stop(ctx context.Context) error {
	if m.cancel != nil {
		m.cancel()
		select {
		case <-m.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.logger.Info("liveness module stopped")
	return nil
}

func (m *Module) sweep(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.tracker.RecomputeAll(ctx, time.Now()); err != nil && ctx.Err() == nil {
				m.logger.Error("liveness sweep failed", zap.Error(err))
			}
		}
	}
}

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/status", Handler: m.handleListStatus},
		{Method: "GET", Path: "/status/{code}", Handler: m.handleGetStatus},
		{Method: "GET", Path: "/alerts", Handler: m.handleListAlerts},
	}
}
