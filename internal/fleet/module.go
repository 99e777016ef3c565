package fleet

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

// Module implements the fleet registry plugin. It owns the terminal
// inventory, per-terminal direct playlists, and the branding document.
type Module struct {
	logger *zap.Logger
	store  *Store
	bus    plugin.Publisher
}

// New creates a new fleet plugin instance.
func New() *Module {
	return &Module{}
}

// Store exposes the terminal store for composition in main.go.
// Other modules consume it through their own narrow interfaces.
func (m *Module) Store() *Store {
	return m.store
}

// Info returns the plugin metadata.
func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "fleet",
		Version:     "0.1.0",
		Description: "Terminal inventory, direct playlists, and branding",
		Required:    true,
		Roles:       []string{"inventory"},
		APIVersion:  plugin.APIVersionCurrent,
	}
}

// Init runs migrations and wires the store.
func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	m.bus = deps.Bus

	if err := deps.Store.Migrate(ctx, "fleet", migrations); err != nil {
		return err
	}
	m.store = NewStore(deps.Store)

	m.logger.Info("fleet module initialized")
	return nil
}

// Start begins the module's operations. The fleet registry is request-driven,
// so there is nothing to start.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("fleet module started")
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("fleet module stopped")
	return nil
}

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/terminals", Handler: m.handleListTerminals},
		{Method: "POST", Path: "/terminals", Handler: m.handleCreateTerminal},
		{Method: "GET", Path: "/terminals/{code}", Handler: m.handleGetTerminal},
		{Method: "PUT", Path: "/terminals/{code}", Handler: m.handleUpdateTerminal},
		{Method: "DELETE", Path: "/terminals/{code}", Handler: m.handleDeleteTerminal},
		{Method: "PUT", Path: "/terminals/{code}/playlist", Handler: m.handleSetPlaylist},
		{Method: "GET", Path: "/branding", Handler: m.handleGetBranding},
		{Method: "PUT", Path: "/branding", Handler: m.handleSetBranding},
	}
}

func (m *Module) publish(ctx context.Context, topic string, payload any) {
	if m.bus == nil {
		return
	}
	_ = m.bus.Publish(ctx, plugin.Event{
		Topic:     topic,
		Source:    "fleet",
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
}
