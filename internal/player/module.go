// Package player exposes the terminal-facing API surface: the config
// poll, the heartbeat, and the config acknowledgment. It composes the
// fleet, campaign, liveness, and command modules through narrow
// interfaces wired in the composition root.
package player

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/studiorstv10-png/studio-rs-tv/internal/campaign"
	"github.com/studiorstv10-png/studio-rs-tv/internal/command"
	"github.com/studiorstv10-png/studio-rs-tv/internal/fleet"
	"github.com/studiorstv10-png/studio-rs-tv/internal/liveness"
	"github.com/studiorstv10-png/studio-rs-tv/pkg/plugin"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin       = (*Module)(nil)
	_ plugin.HTTPProvider = (*Module)(nil)
)

// TerminalSource provides read access to the fleet registry.
// Satisfied by *fleet.Store.
type TerminalSource interface {
	GetTerminal(ctx context.Context, code string) (*fleet.Terminal, error)
	GetBranding(ctx context.Context) (fleet.Branding, error)
}

// PlaylistResolver picks the effective playlist for a terminal.
// Satisfied by *campaign.Resolver.
type PlaylistResolver interface {
	Resolve(ctx context.Context, t *fleet.Terminal, at time.Time) (campaign.Resolution, error)
}

// HeartbeatSink ingests terminal check-ins. Satisfied by *liveness.Tracker.
type HeartbeatSink interface {
	Heartbeat(ctx context.Context, code string, fields liveness.HeartbeatFields) (*liveness.StatusRecord, error)
	AckConfig(ctx context.Context, code string, version int64) error
	RefreshInterval() time.Duration
}

// CommandDrainer hands out pending commands. Satisfied by *command.Store.
type CommandDrainer interface {
	DrainOnPoll(ctx context.Context, code string) ([]command.Command, error)
}

// Config holds the player module settings.
type Config struct {
	AssetsBase string `mapstructure:"assets_base"`
}

// Module implements the player-facing plugin.
type Module struct {
	logger    *zap.Logger
	cfg       Config
	terminals TerminalSource
	resolver  PlaylistResolver
	heartbeat HeartbeatSink
	commands  CommandDrainer
}

// New creates a new player plugin instance.
func New() *Module {
	return &Module{}
}

// SetTerminals injects the fleet reader. Called from the composition root.
func (m *Module) SetTerminals(s TerminalSource) { m.terminals = s }

// SetResolver injects the playlist resolver.
func (m *Module) SetResolver(r PlaylistResolver) { m.resolver = r }

// SetHeartbeatSink injects the liveness tracker.
func (m *Module) SetHeartbeatSink(s HeartbeatSink) { m.heartbeat = s }

// SetCommandDrainer injects the command queue.
func (m *Module) SetCommandDrainer(d CommandDrainer) { m.commands = d }

// Info returns the plugin metadata.
func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:         "player",
		Version:      "0.1.0",
		Description:  "Terminal-facing config, heartbeat, and ack endpoints",
		Dependencies: []string{"fleet", "campaign", "liveness", "command"},
		APIVersion:   plugin.APIVersionCurrent,
	}
}

// Init reads configuration. The module owns no tables of its own.
func (m *Module) Init(_ context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	m.cfg = Config{AssetsBase: "/uploads"}

	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&m.cfg); err != nil {
			m.logger.Warn("failed to unmarshal player config, using defaults", zap.Error(err))
		}
	}
	if m.cfg.AssetsBase == "" {
		m.cfg.AssetsBase = "/uploads"
	}

	m.logger.Info("player module initialized", zap.String("assets_base", m.cfg.AssetsBase))
	return nil
}

// Start verifies the composition root wired every collaborator.
func (m *Module) Start(_ context.Context) error {
	if m.terminals == nil || m.resolver == nil || m.heartbeat == nil || m.commands == nil {
		return errMissingWiring
	}
	m.logger.Info("player module started")
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("player module stopped")
	return nil
}

// Routes implements plugin.HTTPProvider. Player routes are open; the
// terminal code is the device's identity and heartbeats/config polls are
// exempted from rate limiting in the server.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/config/{code}", Handler: m.handleConfig},
		{Method: "POST", Path: "/heartbeat", Handler: m.handleHeartbeat},
		{Method: "POST", Path: "/ack", Handler: m.handleAck},
	}
}
