package player

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/studiorstv10-png/studio-rs-tv/internal/campaign"
	"github.com/studiorstv10-png/studio-rs-tv/internal/command"
	"github.com/studiorstv10-png/studio-rs-tv/internal/fleet"
	"github.com/studiorstv10-png/studio-rs-tv/internal/liveness"
	"github.com/studiorstv10-png/studio-rs-tv/internal/store"
)

type fixture struct {
	module    *Module
	fleet     *fleet.Store
	campaigns *campaign.Store
	commands  *command.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	if err := st.Migrate(ctx, "fleet", fleet.Migrations()); err != nil {
		t.Fatalf("Migrate fleet: %v", err)
	}
	if err := st.Migrate(ctx, "campaign", campaign.Migrations()); err != nil {
		t.Fatalf("Migrate campaign: %v", err)
	}
	if err := st.Migrate(ctx, "liveness", liveness.Migrations()); err != nil {
		t.Fatalf("Migrate liveness: %v", err)
	}
	if err := st.Migrate(ctx, "command", command.Migrations()); err != nil {
		t.Fatalf("Migrate command: %v", err)
	}

	fleetStore := fleet.NewStore(st)
	campaignStore := campaign.NewStore(st)
	commandStore := command.NewStore(st)
	livenessStore := liveness.NewStore(st, 500)
	tracker := liveness.NewTracker(livenessStore, 10*time.Minute, zap.NewNop(), nil)

	m := New()
	m.logger = zap.NewNop()
	m.cfg = Config{AssetsBase: "/uploads"}
	m.SetTerminals(fleetStore)
	m.SetResolver(campaign.NewResolver(campaignStore))
	m.SetHeartbeatSink(tracker)
	m.SetCommandDrainer(commandStore)

	return &fixture{module: m, fleet: fleetStore, campaigns: campaignStore, commands: commandStore}
}

func (f *fixture) mux() *http.ServeMux {
	mux := http.NewServeMux()
	for _, route := range f.module.Routes() {
		mux.HandleFunc(route.Method+" /api/v1/player"+route.Path, route.Handler)
	}
	return mux
}

func TestConfigForTerminalWithDirectPlaylist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	term := &fleet.Terminal{Code: "BOX-01", DisplayName: "Lobby"}
	if err := f.fleet.CreateTerminal(ctx, term); err != nil {
		t.Fatalf("CreateTerminal: %v", err)
	}
	if _, err := f.fleet.SetDirectPlaylist(ctx, "BOX-01", []fleet.PlaylistItem{
		{Type: fleet.ItemTypeVideo, URL: "/uploads/a.mp4"},
	}); err != nil {
		t.Fatalf("SetDirectPlaylist: %v", err)
	}

	rec := httptest.NewRecorder()
	f.mux().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/player/config/BOX-01", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	var resp ConfigResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != "BOX-01" || resp.DisplayName != "Lobby" {
		t.Errorf("identity = %s/%s, want BOX-01/Lobby", resp.Code, resp.DisplayName)
	}
	if resp.CampaignName != "" {
		t.Errorf("campaign = %q, want empty without campaigns", resp.CampaignName)
	}
	if len(resp.Playlist) != 1 || resp.Playlist[0].URL != "/uploads/a.mp4" {
		t.Errorf("playlist = %+v, want the direct playlist", resp.Playlist)
	}
	if resp.ConfigVersion != 2 {
		t.Errorf("config_version = %d, want 2 after one playlist write", resp.ConfigVersion)
	}
	if resp.AssetsBase != "/uploads" || resp.RefreshSeconds != 600 {
		t.Errorf("assets_base/refresh = %s/%d, want /uploads/600", resp.AssetsBase, resp.RefreshSeconds)
	}
}

func TestConfigPrefersActiveCampaign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.fleet.CreateTerminal(ctx, &fleet.Terminal{Code: "BOX-01"}); err != nil {
		t.Fatalf("CreateTerminal: %v", err)
	}
	if err := f.campaigns.Upsert(ctx, &campaign.Campaign{
		Name:    "Always on",
		Items:   []fleet.PlaylistItem{{Type: fleet.ItemTypeVideo, URL: "/uploads/c.mp4"}},
		Targets: []string{"BOX-01"},
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	rec := httptest.NewRecorder()
	f.mux().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/player/config/BOX-01", nil))

	var resp ConfigResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.CampaignName != "Always on" {
		t.Errorf("campaign = %q, want Always on", resp.CampaignName)
	}
	if len(resp.Playlist) != 1 || resp.Playlist[0].URL != "/uploads/c.mp4" {
		t.Errorf("playlist = %+v, want the campaign items", resp.Playlist)
	}
}

func TestConfigUnknownTerminal(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.mux().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/player/config/GHOST", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestConfigExpiredLicense(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	expired := time.Now().Add(-24 * time.Hour)
	if err := f.fleet.CreateTerminal(ctx, &fleet.Terminal{Code: "BOX-01", LicenseExpiresAt: &expired}); err != nil {
		t.Fatalf("CreateTerminal: %v", err)
	}

	rec := httptest.NewRecorder()
	f.mux().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/player/config/BOX-01", nil))

	if rec.Code != http.StatusGone {
		t.Errorf("status = %d, want 410 for an expired license", rec.Code)
	}
}

func TestHeartbeatDrainsCommandsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.fleet.CreateTerminal(ctx, &fleet.Terminal{Code: "BOX-01"}); err != nil {
		t.Fatalf("CreateTerminal: %v", err)
	}
	if _, err := f.commands.Enqueue(ctx, "BOX-01", "restart", nil); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	beat := func() HeartbeatResponse {
		body := strings.NewReader(`{"code":"BOX-01","playing":"a.mp4","player_version":"1.4"}`)
		rec := httptest.NewRecorder()
		f.mux().ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/player/heartbeat", body))
		if rec.Code != http.StatusOK {
			t.Fatalf("heartbeat status = %d; body %s", rec.Code, rec.Body.String())
		}
		var resp HeartbeatResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return resp
	}

	resp := beat()
	if len(resp.Commands) != 1 || resp.Commands[0].Type != "restart" {
		t.Fatalf("first beat commands = %+v, want the restart", resp.Commands)
	}

	resp = beat()
	if len(resp.Commands) != 0 {
		t.Errorf("second beat commands = %+v, want none", resp.Commands)
	}
}

func TestHeartbeatUnknownTerminal(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.mux().ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/player/heartbeat",
		strings.NewReader(`{"code":"GHOST"}`)))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestAck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.fleet.CreateTerminal(ctx, &fleet.Terminal{Code: "BOX-01"}); err != nil {
		t.Fatalf("CreateTerminal: %v", err)
	}
	// A status row must exist before an ack can land on it.
	rec := httptest.NewRecorder()
	f.mux().ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/player/heartbeat",
		strings.NewReader(`{"code":"BOX-01"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("heartbeat status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	f.mux().ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/player/ack",
		strings.NewReader(`{"code":"BOX-01","config_version":3}`)))
	if rec.Code != http.StatusNoContent {
		t.Errorf("ack status = %d, want 204", rec.Code)
	}
}
