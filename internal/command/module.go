package command

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/studiorstv10-png/studio-rs-tv/internal/server"
	"github.com/studiorstv10-png/studio-rs-tv/pkg/plugin"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin       = (*Module)(nil)
	_ plugin.HTTPProvider = (*Module)(nil)
)

// Module implements the command queue plugin.
type Module struct {
	logger *zap.Logger
	store  *Store
	bus    plugin.Publisher
}

// New creates a new command plugin instance.
func New() *Module {
	return &Module{}
}

// Store exposes the queue store for composition in main.go; the player
// module drains it through its own interface.
func (m *Module) Store() *Store {
	return m.store
}

// Info returns the plugin metadata.
func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:         "command",
		Version:      "0.1.0",
		Description:  "Per-terminal administrator command queue",
		Dependencies: []string{"fleet"},
		APIVersion:   plugin.APIVersionCurrent,
	}
}

// Init runs migrations and wires the store.
func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	m.bus = deps.Bus

	if err := deps.Store.Migrate(ctx, "command", migrations); err != nil {
		return err
	}
	m.store = NewStore(deps.Store)

	m.logger.Info("command module initialized")
	return nil
}

// Start begins the module's operations. The queue is request-driven,
// so there is nothing to start.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("command module started")
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("command module stopped")
	return nil
}

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "POST", Path: "/terminals/{code}/commands", Handler: m.handleEnqueue},
		{Method: "GET", Path: "/terminals/{code}/commands", Handler: m.handleList},
	}
}

type enqueueRequest struct {
	Type   string         `json:"type"`
	Params map[string]any `json:"params,omitempty"`
}

// handleEnqueue appends a command to the terminal's queue.
//
//	@Summary		Enqueue command
//	@Description	Appends a pending command delivered on the terminal's next poll.
//	@Tags			command
//	@Accept			json
//	@Produce		json
//	@Security		AdminKey
//	@Param			code	path		string			true	"Terminal code"
//	@Param			command	body		enqueueRequest	true	"Command to enqueue"
//	@Success		201		{object}	Command
//	@Failure		400		{object}	server.Problem
//	@Router			/command/terminals/{code}/commands [post]
func (m *Module) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}

	cmd, err := m.store.Enqueue(r.Context(), code, req.Type, req.Params)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			server.BadRequest(w, err.Error(), r.URL.Path)
			return
		}
		m.logger.Error("enqueue failed", zap.String("code", code), zap.Error(err))
		server.InternalError(w, "failed to enqueue command", r.URL.Path)
		return
	}

	m.publish(r.Context(), TopicCommandQueued, cmd.ID)
	m.logger.Info("command enqueued",
		zap.String("terminal", code),
		zap.String("type", cmd.Type),
		zap.String("id", cmd.ID))
	writeJSON(w, http.StatusCreated, cmd)
}

// handleList returns the terminal's command history.
//
//	@Summary		List commands
//	@Tags			command
//	@Produce		json
//	@Security		AdminKey
//	@Param			code	path	string	true	"Terminal code"
//	@Success		200		{array}	Command
//	@Router			/command/terminals/{code}/commands [get]
func (m *Module) handleList(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	cmds, err := m.store.List(r.Context(), code)
	if err != nil {
		m.logger.Error("list commands failed", zap.String("code", code), zap.Error(err))
		server.InternalError(w, "failed to list commands", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, cmds)
}

func (m *Module) publish(ctx context.Context, topic string, payload any) {
	if m.bus == nil {
		return
	}
	_ = m.bus.Publish(ctx, plugin.Event{
		Topic:     topic,
		Source:    "command",
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
