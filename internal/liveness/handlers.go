package liveness

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/studiorstv10-png/studio-rs-tv/internal/server"
)

// handleListStatus recomputes and returns every terminal's liveness.
// Offline transitions are detected here (and by the background sweep),
// not in the heartbeat path.
//
//	@Summary		List terminal status
//	@Tags			liveness
//	@Produce		json
//	@Security		AdminKey
//	@Success		200	{array}	StatusRecord
//	@Router			/liveness/status [get]
func (m *Module) handleListStatus(w http.ResponseWriter, r *http.Request) {
	records, err := m.tracker.RecomputeAll(r.Context(), time.Now())
	if err != nil {
		m.logger.Error("status recompute failed", zap.Error(err))
		server.InternalError(w, "failed to compute status", r.URL.Path)
		return
	}
	if records == nil {
		records = []*StatusRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// handleGetStatus recomputes and returns one terminal's liveness.
//
//	@Summary		Get terminal status
//	@Tags			liveness
//	@Produce		json
//	@Security		AdminKey
//	@Param			code	path		string	true	"Terminal code"
//	@Success		200		{object}	StatusRecord
//	@Failure		404		{object}	server.Problem
//	@Router			/liveness/status/{code} [get]
func (m *Module) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	rec, err := m.tracker.Recompute(r.Context(), code, time.Now())
	if err != nil {
		m.logger.Error("status recompute failed", zap.String("code", code), zap.Error(err))
		server.InternalError(w, "failed to compute status", r.URL.Path)
		return
	}
	if rec == nil {
		server.NotFound(w, "no heartbeat recorded for terminal", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleListAlerts returns the newest alert events.
//
//	@Summary		List alerts
//	@Tags			liveness
//	@Produce		json
//	@Security		AdminKey
//	@Param			limit	query	int	false	"Maximum events to return"
//	@Success		200		{array}	AlertEvent
//	@Router			/liveness/alerts [get]
func (m *Module) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			server.BadRequest(w, "limit must be a non-negative integer", r.URL.Path)
			return
		}
		limit = n
	}

	alerts, err := m.store.ListAlerts(r.Context(), limit)
	if err != nil {
		m.logger.Error("list alerts failed", zap.Error(err))
		server.InternalError(w, "failed to list alerts", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
