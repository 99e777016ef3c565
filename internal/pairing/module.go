package pairing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
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

// Config holds the pairing module settings.
type Config struct {
	CodeLength int           `mapstructure:"code_length"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

// DefaultConfig returns the default pairing settings.
func DefaultConfig() Config {
	return Config{CodeLength: 6, SessionTTL: 10 * time.Minute}
}

// Module implements the pairing plugin: short-lived codes binding an
// unregistered device to a terminal identity.
type Module struct {
	logger  *zap.Logger
	cfg     Config
	manager *Manager
	bus     plugin.Publisher
}

// New creates a new pairing plugin instance.
func New() *Module {
	return &Module{}
}

// Info returns the plugin metadata.
func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "pairing",
		Version:     "0.1.0",
		Description: "Device pairing sessions with single-use codes",
		APIVersion:  plugin.APIVersionCurrent,
	}
}

// Init runs migrations and wires the manager.
func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	m.bus = deps.Bus
	m.cfg = DefaultConfig()

	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&m.cfg); err != nil {
			m.logger.Warn("failed to unmarshal pairing config, using defaults", zap.Error(err))
		}
	}

	if err := deps.Store.Migrate(ctx, "pairing", migrations); err != nil {
		return err
	}
	m.manager = NewManager(NewStore(deps.Store), m.cfg.CodeLength, m.cfg.SessionTTL)

	m.logger.Info("pairing module initialized",
		zap.Int("code_length", m.cfg.CodeLength),
		zap.Duration("session_ttl", m.cfg.SessionTTL))
	return nil
}

// Start begins the module's operations. Expired sessions are purged
// lazily on access, so there is nothing to start.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("pairing module started")
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("pairing module stopped")
	return nil
}

// Routes implements plugin.HTTPProvider. Pairing routes are open: the
// code itself is the shared secret, and devices calling start/poll are
// by definition not yet credentialed.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "POST", Path: "/start", Handler: m.handleStart},
		{Method: "POST", Path: "/claim", Handler: m.handleClaim},
		{Method: "GET", Path: "/poll/{code}", Handler: m.handlePoll},
	}
}

type startRequest struct {
	DeviceID string `json:"device_id"`
}

type claimRequest struct {
	Code         string `json:"code"`
	TerminalCode string `json:"terminal_code"`
}

type pollResponse struct {
	Code                 string  `json:"code"`
	AttachedTerminalCode *string `json:"attached_terminal_code"`
	ExpiresAt            string  `json:"expires_at"`
}

// handleStart creates a pairing session for an unregistered device.
//
//	@Summary		Start pairing
//	@Description	Generates a short single-use code an administrator can claim.
//	@Tags			pairing
//	@Accept			json
//	@Produce		json
//	@Param			request	body		startRequest	true	"Device requesting pairing"
//	@Success		201		{object}	Session
//	@Router			/pairing/start [post]
func (m *Module) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}

	sess, err := m.manager.Start(r.Context(), strings.TrimSpace(req.DeviceID))
	if err != nil {
		m.logger.Error("pairing start failed", zap.Error(err))
		server.InternalError(w, "failed to start pairing", r.URL.Path)
		return
	}

	m.publish(r.Context(), TopicPairingStarted, sess.Code)
	m.logger.Info("pairing session started",
		zap.String("code", sess.Code),
		zap.Time("expires_at", sess.ExpiresAt))
	writeJSON(w, http.StatusCreated, sess)
}

// handleClaim attaches a terminal identity to a pairing code.
//
//	@Summary		Claim pairing code
//	@Tags			pairing
//	@Accept			json
//	@Produce		json
//	@Param			request	body	claimRequest	true	"Code and terminal to bind"
//	@Success		204
//	@Failure		404	{object}	server.Problem
//	@Failure		409	{object}	server.Problem
//	@Router			/pairing/claim [post]
func (m *Module) handleClaim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}
	if strings.TrimSpace(req.Code) == "" || strings.TrimSpace(req.TerminalCode) == "" {
		server.BadRequest(w, "code and terminal_code are required", r.URL.Path)
		return
	}

	err := m.manager.Claim(r.Context(), req.Code, req.TerminalCode)
	switch {
	case errors.Is(err, ErrNotFound):
		server.NotFound(w, err.Error(), r.URL.Path)
		return
	case errors.Is(err, ErrAlreadyClaimed):
		server.Conflict(w, err.Error(), r.URL.Path)
		return
	case err != nil:
		m.logger.Error("pairing claim failed", zap.String("code", req.Code), zap.Error(err))
		server.InternalError(w, "failed to claim pairing code", r.URL.Path)
		return
	}

	m.publish(r.Context(), TopicPairingClaimed, req.Code)
	m.logger.Info("pairing code claimed",
		zap.String("code", req.Code),
		zap.String("terminal", req.TerminalCode))
	w.WriteHeader(http.StatusNoContent)
}

// handlePoll reports whether the code has been claimed yet.
//
//	@Summary		Poll pairing code
//	@Tags			pairing
//	@Produce		json
//	@Param			code	path		string	true	"Pairing code"
//	@Success		200		{object}	pollResponse
//	@Failure		404		{object}	server.Problem
//	@Router			/pairing/poll/{code} [get]
func (m *Module) handlePoll(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	sess, err := m.manager.Poll(r.Context(), code)
	if errors.Is(err, ErrNotFound) {
		server.NotFound(w, err.Error(), r.URL.Path)
		return
	}
	if err != nil {
		m.logger.Error("pairing poll failed", zap.String("code", code), zap.Error(err))
		server.InternalError(w, "failed to poll pairing code", r.URL.Path)
		return
	}

	writeJSON(w, http.StatusOK, pollResponse{
		Code:                 sess.Code,
		AttachedTerminalCode: sess.AttachedTerminalCode,
		ExpiresAt:            sess.ExpiresAt.Format(time.RFC3339),
	})
}

func (m *Module) publish(ctx context.Context, topic string, payload any) {
	if m.bus == nil {
		return
	}
	_ = m.bus.Publish(ctx, plugin.Event{
		Topic:     topic,
		Source:    "pairing",
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
