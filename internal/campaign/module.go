package campaign

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/studiorstv10-png/studio-rs-tv/internal/fleet"
	"github.com/studiorstv10-png/studio-rs-tv/pkg/plugin"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin       = (*Module)(nil)
	_ plugin.HTTPProvider = (*Module)(nil)
)

// TerminalPlaylists provides write access to terminal fallback playlists.
// Wired from the fleet module in the composition root; satisfied by
// *fleet.Store.
type TerminalPlaylists interface {
	SetDirectPlaylist(ctx context.Context, code string, items []fleet.PlaylistItem) (bool, error)
}

// Module implements the campaign scheduling plugin: schedule-gated
// playlists, name-keyed upserts, and playlist resolution for terminals.
type Module struct {
	logger    *zap.Logger
	store     *Store
	resolver  *Resolver
	playlists TerminalPlaylists
	bus       plugin.Publisher

	snapshotFallback bool
}

// New creates a new campaign plugin instance.
func New() *Module {
	return &Module{snapshotFallback: true}
}

// SetTerminalPlaylists injects the fleet playlist writer. Called from the
// composition root; when absent, campaign saves skip the fallback snapshot.
func (m *Module) SetTerminalPlaylists(p TerminalPlaylists) {
	m.playlists = p
}

// Resolver exposes the playlist resolver for composition in main.go.
func (m *Module) Resolver() *Resolver {
	return m.resolver
}

// Info returns the plugin metadata.
func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:         "campaign",
		Version:      "0.1.0",
		Description:  "Schedule-gated campaign playlists and resolution",
		Dependencies: []string{"fleet"},
		Roles:        []string{"scheduling"},
		APIVersion:   plugin.APIVersionCurrent,
	}
}

// Init runs migrations and wires the store and resolver.
func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	m.bus = deps.Bus

	if deps.Config != nil && deps.Config.IsSet("snapshot_fallback") {
		m.snapshotFallback = deps.Config.GetBool("snapshot_fallback")
	}

	if err := deps.Store.Migrate(ctx, "campaign", migrations); err != nil {
		return err
	}
	m.store = NewStore(deps.Store)
	m.resolver = NewResolver(m.store)

	m.logger.Info("campaign module initialized",
		zap.Bool("snapshot_fallback", m.snapshotFallback))
	return nil
}

// Start begins the module's operations. Resolution is request-driven,
// so there is nothing to start.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("campaign module started")
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("campaign module stopped")
	return nil
}

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/campaigns", Handler: m.handleList},
		{Method: "POST", Path: "/campaigns", Handler: m.handleUpsert},
		{Method: "GET", Path: "/campaigns/{id}", Handler: m.handleGet},
		{Method: "DELETE", Path: "/campaigns/{id}", Handler: m.handleDelete},
	}
}

func (m *Module) publish(ctx context.Context, topic string, payload any) {
	if m.bus == nil {
		return
	}
	_ = m.bus.Publish(ctx, plugin.Event{
		Topic:     topic,
		Source:    "campaign",
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
}
