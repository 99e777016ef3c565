package player

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/studiorstv10-png/studio-rs-tv/internal/command"
	"github.com/studiorstv10-png/studio-rs-tv/internal/fleet"
	"github.com/studiorstv10-png/studio-rs-tv/internal/liveness"
	"github.com/studiorstv10-png/studio-rs-tv/internal/server"
)

var errMissingWiring = errors.New("player module collaborators not wired")

// ConfigResponse is the full document a terminal needs to run.
type ConfigResponse struct {
	Code           string               `json:"code"`
	DisplayName    string               `json:"display_name"`
	Branding       fleet.Branding       `json:"branding"`
	Playlist       []fleet.PlaylistItem `json:"playlist"`
	CampaignName   string               `json:"campaign_name,omitempty"`
	ConfigVersion  int64                `json:"config_version"`
	AssetsBase     string               `json:"assets_base"`
	RefreshSeconds int                  `json:"refresh_seconds"`
}

type heartbeatRequest struct {
	Code          string `json:"code"`
	Playing       string `json:"playing,omitempty"`
	PlayerVersion string `json:"player_version,omitempty"`
}

// HeartbeatResponse carries drained commands and the current config
// version so the terminal can detect configuration drift.
type HeartbeatResponse struct {
	Commands      []command.Command `json:"commands"`
	ConfigVersion int64             `json:"config_version"`
}

type ackRequest struct {
	Code          string `json:"code"`
	ConfigVersion int64  `json:"config_version"`
}

// handleConfig serves the terminal's effective configuration: resolved
// playlist, branding, and config version.
//
//	@Summary		Get terminal configuration
//	@Description	Returns branding and the resolved playlist for a terminal.
//	@Tags			player
//	@Produce		json
//	@Param			code	path		string	true	"Terminal code"
//	@Success		200		{object}	ConfigResponse
//	@Failure		404		{object}	server.Problem
//	@Failure		410		{object}	server.Problem
//	@Router			/player/config/{code} [get]
func (m *Module) handleConfig(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	ctx := r.Context()

	term, err := m.terminals.GetTerminal(ctx, code)
	if err != nil {
		m.logger.Error("terminal lookup failed", zap.String("code", code), zap.Error(err))
		server.InternalError(w, "failed to load terminal", r.URL.Path)
		return
	}
	if term == nil {
		server.NotFound(w, "terminal not found", r.URL.Path)
		return
	}
	if term.LicenseExpired(time.Now()) {
		server.Expired(w, "terminal license has expired", r.URL.Path)
		return
	}

	res, err := m.resolver.Resolve(ctx, term, time.Now())
	if err != nil {
		m.logger.Error("playlist resolution failed", zap.String("code", code), zap.Error(err))
		server.InternalError(w, "failed to resolve playlist", r.URL.Path)
		return
	}

	branding, err := m.terminals.GetBranding(ctx)
	if err != nil {
		m.logger.Error("branding lookup failed", zap.Error(err))
		server.InternalError(w, "failed to load branding", r.URL.Path)
		return
	}

	writeJSON(w, http.StatusOK, ConfigResponse{
		Code:           term.Code,
		DisplayName:    term.DisplayName,
		Branding:       branding,
		Playlist:       res.Items,
		CampaignName:   res.CampaignName,
		ConfigVersion:  term.ConfigVersion,
		AssetsBase:     m.cfg.AssetsBase,
		RefreshSeconds: int(m.heartbeat.RefreshInterval().Seconds()),
	})
}

// handleHeartbeat ingests a terminal check-in and drains its command queue.
//
//	@Summary		Terminal heartbeat
//	@Description	Records liveness and returns pending commands exactly once.
//	@Tags			player
//	@Accept			json
//	@Produce		json
//	@Param			heartbeat	body		heartbeatRequest	true	"Heartbeat payload"
//	@Success		200			{object}	HeartbeatResponse
//	@Failure		404			{object}	server.Problem
//	@Router			/player/heartbeat [post]
func (m *Module) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req heartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		server.BadRequest(w, "code is required", r.URL.Path)
		return
	}
	ctx := r.Context()

	term, err := m.terminals.GetTerminal(ctx, code)
	if err != nil {
		m.logger.Error("terminal lookup failed", zap.String("code", code), zap.Error(err))
		server.InternalError(w, "failed to load terminal", r.URL.Path)
		return
	}
	if term == nil {
		server.NotFound(w, "terminal not found", r.URL.Path)
		return
	}

	if _, err := m.heartbeat.Heartbeat(ctx, code, liveness.HeartbeatFields{
		Playing:       req.Playing,
		PlayerVersion: req.PlayerVersion,
		IP:            remoteIP(r),
	}); err != nil {
		m.logger.Error("heartbeat failed", zap.String("code", code), zap.Error(err))
		server.InternalError(w, "failed to record heartbeat", r.URL.Path)
		return
	}

	cmds, err := m.commands.DrainOnPoll(ctx, code)
	if err != nil {
		m.logger.Error("command drain failed", zap.String("code", code), zap.Error(err))
		server.InternalError(w, "failed to drain commands", r.URL.Path)
		return
	}
	if len(cmds) > 0 {
		m.logger.Info("commands delivered",
			zap.String("code", code), zap.Int("count", len(cmds)))
	}

	writeJSON(w, http.StatusOK, HeartbeatResponse{
		Commands:      cmds,
		ConfigVersion: term.ConfigVersion,
	})
}

// handleAck records the config version the terminal has applied.
//
//	@Summary		Acknowledge configuration
//	@Tags			player
//	@Accept			json
//	@Param			ack	body	ackRequest	true	"Applied config version"
//	@Success		204
//	@Failure		404	{object}	server.Problem
//	@Router			/player/ack [post]
func (m *Module) handleAck(w http.ResponseWriter, r *http.Request) {
	var req ackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}
	code := strings.TrimSpace(req.Code)
	if code == "" || req.ConfigVersion < 0 {
		server.BadRequest(w, "code and a non-negative config_version are required", r.URL.Path)
		return
	}
	ctx := r.Context()

	term, err := m.terminals.GetTerminal(ctx, code)
	if err != nil {
		server.InternalError(w, "failed to load terminal", r.URL.Path)
		return
	}
	if term == nil {
		server.NotFound(w, "terminal not found", r.URL.Path)
		return
	}

	if err := m.heartbeat.AckConfig(ctx, code, req.ConfigVersion); err != nil {
		m.logger.Error("config ack failed", zap.String("code", code), zap.Error(err))
		server.InternalError(w, "failed to record ack", r.URL.Path)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func remoteIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
