package campaign

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/studiorstv10-png/studio-rs-tv/internal/fleet"
	"github.com/studiorstv10-png/studio-rs-tv/internal/server"
)

type campaignRequest struct {
	Name     string               `json:"name"`
	Items    []fleet.PlaylistItem `json:"items"`
	Targets  []string             `json:"targets"`
	Schedule *ScheduleRule        `json:"schedule,omitempty"`
}

// handleList returns every campaign.
//
//	@Summary		List campaigns
//	@Tags			campaign
//	@Produce		json
//	@Security		AdminKey
//	@Success		200	{array}	Campaign
//	@Router			/campaign/campaigns [get]
func (m *Module) handleList(w http.ResponseWriter, r *http.Request) {
	campaigns, err := m.store.List(r.Context())
	if err != nil {
		m.logger.Error("list campaigns failed", zap.Error(err))
		server.InternalError(w, "failed to list campaigns", r.URL.Path)
		return
	}
	if campaigns == nil {
		campaigns = []*Campaign{}
	}
	writeJSON(w, http.StatusOK, campaigns)
}

// handleUpsert creates or replaces a campaign by name.
//
//	@Summary		Save campaign
//	@Description	Creates or replaces a campaign keyed by its case-insensitive name.
//	@Tags			campaign
//	@Accept			json
//	@Produce		json
//	@Security		AdminKey
//	@Param			campaign	body		campaignRequest	true	"Campaign to save"
//	@Success		200			{object}	Campaign
//	@Failure		400			{object}	server.Problem
//	@Router			/campaign/campaigns [post]
func (m *Module) handleUpsert(w http.ResponseWriter, r *http.Request) {
	var req campaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}

	items, err := fleet.ValidateItems(req.Items)
	if err != nil {
		server.BadRequest(w, err.Error(), r.URL.Path)
		return
	}

	c := &Campaign{
		Name:     req.Name,
		Items:    items,
		Targets:  req.Targets,
		Schedule: req.Schedule,
	}
	if err := m.store.Upsert(r.Context(), c); err != nil {
		if errors.Is(err, ErrInvalidInput) {
			server.BadRequest(w, err.Error(), r.URL.Path)
			return
		}
		m.logger.Error("campaign upsert failed", zap.String("name", req.Name), zap.Error(err))
		server.InternalError(w, "failed to save campaign", r.URL.Path)
		return
	}

	m.snapshotTargets(r, c)
	m.publish(r.Context(), TopicCampaignSaved, c.ID)
	m.logger.Info("campaign saved",
		zap.String("id", c.ID),
		zap.String("name", c.Name),
		zap.Int("targets", len(c.Targets)))
	writeJSON(w, http.StatusOK, c)
}

// snapshotTargets copies the campaign items onto each target's fallback
// playlist. Keeps a usable playlist on the terminal if the campaign is
// later deleted, at the cost of clobbering hand-set direct playlists.
// The write also bumps each target's config version so players re-poll.
func (m *Module) snapshotTargets(r *http.Request, c *Campaign) {
	if !m.snapshotFallback || m.playlists == nil {
		return
	}
	for _, code := range c.Targets {
		ok, err := m.playlists.SetDirectPlaylist(r.Context(), code, c.Items)
		if err != nil {
			m.logger.Warn("fallback snapshot failed",
				zap.String("campaign", c.Name), zap.String("terminal", code), zap.Error(err))
			continue
		}
		if !ok {
			m.logger.Warn("campaign targets unknown terminal",
				zap.String("campaign", c.Name), zap.String("terminal", code))
		}
	}
}

// handleGet returns one campaign by ID.
//
//	@Summary		Get campaign
//	@Tags			campaign
//	@Produce		json
//	@Security		AdminKey
//	@Param			id	path		string	true	"Campaign ID"
//	@Success		200	{object}	Campaign
//	@Failure		404	{object}	server.Problem
//	@Router			/campaign/campaigns/{id} [get]
func (m *Module) handleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	c, err := m.store.Get(r.Context(), id)
	if err != nil {
		m.logger.Error("get campaign failed", zap.String("id", id), zap.Error(err))
		server.InternalError(w, "failed to load campaign", r.URL.Path)
		return
	}
	if c == nil {
		server.NotFound(w, "campaign not found", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// handleDelete removes a campaign.
//
//	@Summary		Delete campaign
//	@Tags			campaign
//	@Security		AdminKey
//	@Param			id	path	string	true	"Campaign ID"
//	@Success		204
//	@Failure		404	{object}	server.Problem
//	@Router			/campaign/campaigns/{id} [delete]
func (m *Module) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ok, err := m.store.Delete(r.Context(), id)
	if err != nil {
		m.logger.Error("delete campaign failed", zap.String("id", id), zap.Error(err))
		server.InternalError(w, "failed to delete campaign", r.URL.Path)
		return
	}
	if !ok {
		server.NotFound(w, "campaign not found", r.URL.Path)
		return
	}
	m.publish(r.Context(), TopicCampaignDeleted, id)
	m.logger.Info("campaign deleted", zap.String("id", id))
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
