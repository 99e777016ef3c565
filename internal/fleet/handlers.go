package fleet

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/studiorstv10-png/studio-rs-tv/internal/server"
)

type terminalRequest struct {
	Code             string     `json:"code"`
	DisplayName      string     `json:"display_name"`
	Group            string     `json:"group"`
	LicenseExpiresAt *time.Time `json:"license_expires_at"`
}

// handleListTerminals returns every registered terminal.
//
//	@Summary		List terminals
//	@Description	Returns all registered terminals ordered by code.
//	@Tags			fleet
//	@Produce		json
//	@Security		AdminKey
//	@Success		200	{array}	Terminal
//	@Router			/fleet/terminals [get]
func (m *Module) handleListTerminals(w http.ResponseWriter, r *http.Request) {
	terminals, err := m.store.ListTerminals(r.Context())
	if err != nil {
		m.logger.Error("list terminals failed", zap.Error(err))
		server.InternalError(w, "failed to list terminals", r.URL.Path)
		return
	}
	if terminals == nil {
		terminals = []*Terminal{}
	}
	writeJSON(w, http.StatusOK, terminals)
}

// handleCreateTerminal registers a new terminal.
//
//	@Summary		Register terminal
//	@Tags			fleet
//	@Accept			json
//	@Produce		json
//	@Security		AdminKey
//	@Param			terminal	body		terminalRequest	true	"Terminal to register"
//	@Success		201			{object}	Terminal
//	@Failure		400			{object}	server.Problem
//	@Failure		409			{object}	server.Problem
//	@Router			/fleet/terminals [post]
func (m *Module) handleCreateTerminal(w http.ResponseWriter, r *http.Request) {
	var req terminalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}

	t := &Terminal{
		Code:             req.Code,
		DisplayName:      req.DisplayName,
		Group:            req.Group,
		LicenseExpiresAt: req.LicenseExpiresAt,
	}
	err := m.store.CreateTerminal(r.Context(), t)
	switch {
	case errors.Is(err, ErrInvalidInput):
		server.BadRequest(w, err.Error(), r.URL.Path)
		return
	case errors.Is(err, ErrDuplicate):
		server.Conflict(w, err.Error(), r.URL.Path)
		return
	case err != nil:
		m.logger.Error("create terminal failed", zap.Error(err))
		server.InternalError(w, "failed to create terminal", r.URL.Path)
		return
	}

	m.publish(r.Context(), TopicTerminalCreated, t.Code)
	m.logger.Info("terminal registered", zap.String("code", t.Code))
	writeJSON(w, http.StatusCreated, t)
}

// handleGetTerminal returns one terminal by code.
//
//	@Summary		Get terminal
//	@Tags			fleet
//	@Produce		json
//	@Security		AdminKey
//	@Param			code	path		string	true	"Terminal code"
//	@Success		200		{object}	Terminal
//	@Failure		404		{object}	server.Problem
//	@Router			/fleet/terminals/{code} [get]
func (m *Module) handleGetTerminal(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	t, err := m.store.GetTerminal(r.Context(), code)
	if err != nil {
		m.logger.Error("get terminal failed", zap.String("code", code), zap.Error(err))
		server.InternalError(w, "failed to load terminal", r.URL.Path)
		return
	}
	if t == nil {
		server.NotFound(w, "terminal not found", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// handleUpdateTerminal rewrites terminal metadata.
//
//	@Summary		Update terminal
//	@Tags			fleet
//	@Accept			json
//	@Produce		json
//	@Security		AdminKey
//	@Param			code		path		string			true	"Terminal code"
//	@Param			terminal	body		terminalRequest	true	"Updated fields"
//	@Success		200			{object}	Terminal
//	@Failure		404			{object}	server.Problem
//	@Router			/fleet/terminals/{code} [put]
func (m *Module) handleUpdateTerminal(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	var req terminalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}

	ok, err := m.store.UpdateTerminal(r.Context(), code, req.DisplayName, req.Group, req.LicenseExpiresAt)
	if err != nil {
		m.logger.Error("update terminal failed", zap.String("code", code), zap.Error(err))
		server.InternalError(w, "failed to update terminal", r.URL.Path)
		return
	}
	if !ok {
		server.NotFound(w, "terminal not found", r.URL.Path)
		return
	}

	t, err := m.store.GetTerminal(r.Context(), code)
	if err != nil || t == nil {
		server.InternalError(w, "failed to reload terminal", r.URL.Path)
		return
	}
	m.publish(r.Context(), TopicTerminalUpdated, code)
	writeJSON(w, http.StatusOK, t)
}

// handleDeleteTerminal removes a terminal from the fleet.
//
//	@Summary		Delete terminal
//	@Tags			fleet
//	@Security		AdminKey
//	@Param			code	path	string	true	"Terminal code"
//	@Success		204
//	@Failure		404	{object}	server.Problem
//	@Router			/fleet/terminals/{code} [delete]
func (m *Module) handleDeleteTerminal(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	ok, err := m.store.DeleteTerminal(r.Context(), code)
	if err != nil {
		m.logger.Error("delete terminal failed", zap.String("code", code), zap.Error(err))
		server.InternalError(w, "failed to delete terminal", r.URL.Path)
		return
	}
	if !ok {
		server.NotFound(w, "terminal not found", r.URL.Path)
		return
	}
	m.publish(r.Context(), TopicTerminalDeleted, code)
	m.logger.Info("terminal deleted", zap.String("code", code))
	w.WriteHeader(http.StatusNoContent)
}

// handleSetPlaylist replaces the terminal's direct playlist.
//
//	@Summary		Set direct playlist
//	@Description	Replaces the terminal's own playlist and bumps its config version.
//	@Tags			fleet
//	@Accept			json
//	@Produce		json
//	@Security		AdminKey
//	@Param			code	path		string			true	"Terminal code"
//	@Param			items	body		[]PlaylistItem	true	"Playlist items"
//	@Success		200		{object}	Terminal
//	@Failure		400		{object}	server.Problem
//	@Failure		404		{object}	server.Problem
//	@Router			/fleet/terminals/{code}/playlist [put]
func (m *Module) handleSetPlaylist(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	var items []PlaylistItem
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		server.BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}

	normalized, err := ValidateItems(items)
	if err != nil {
		server.BadRequest(w, err.Error(), r.URL.Path)
		return
	}

	ok, err := m.store.SetDirectPlaylist(r.Context(), code, normalized)
	if err != nil {
		m.logger.Error("set playlist failed", zap.String("code", code), zap.Error(err))
		server.InternalError(w, "failed to set playlist", r.URL.Path)
		return
	}
	if !ok {
		server.NotFound(w, "terminal not found", r.URL.Path)
		return
	}

	t, err := m.store.GetTerminal(r.Context(), code)
	if err != nil || t == nil {
		server.InternalError(w, "failed to reload terminal", r.URL.Path)
		return
	}
	m.publish(r.Context(), TopicTerminalUpdated, code)
	writeJSON(w, http.StatusOK, t)
}

// handleGetBranding returns the fleet branding document.
//
//	@Summary		Get branding
//	@Tags			fleet
//	@Produce		json
//	@Security		AdminKey
//	@Success		200	{object}	Branding
//	@Router			/fleet/branding [get]
func (m *Module) handleGetBranding(w http.ResponseWriter, r *http.Request) {
	b, err := m.store.GetBranding(r.Context())
	if err != nil {
		m.logger.Error("get branding failed", zap.Error(err))
		server.InternalError(w, "failed to load branding", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// handleSetBranding replaces the fleet branding document.
//
//	@Summary		Set branding
//	@Tags			fleet
//	@Accept			json
//	@Produce		json
//	@Security		AdminKey
//	@Param			branding	body		Branding	true	"Branding document"
//	@Success		200			{object}	Branding
//	@Failure		400			{object}	server.Problem
//	@Router			/fleet/branding [put]
func (m *Module) handleSetBranding(w http.ResponseWriter, r *http.Request) {
	var b Branding
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		server.BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}
	if err := m.store.SaveBranding(r.Context(), b); err != nil {
		m.logger.Error("save branding failed", zap.Error(err))
		server.InternalError(w, "failed to save branding", r.URL.Path)
		return
	}
	m.publish(r.Context(), TopicBrandingUpdated, nil)
	writeJSON(w, http.StatusOK, b)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
