package fleet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/studiorstv10-png/studio-rs-tv/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.Migrate(context.Background(), "fleet", migrations); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return NewStore(st)
}

func TestCreateAndGetTerminal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	term := &Terminal{Code: "LOBBY-01", DisplayName: "Lobby screen", Group: "hq"}
	if err := s.CreateTerminal(ctx, term); err != nil {
		t.Fatalf("CreateTerminal: %v", err)
	}
	if term.ConfigVersion != 1 {
		t.Errorf("ConfigVersion = %d, want 1", term.ConfigVersion)
	}

	got, err := s.GetTerminal(ctx, "LOBBY-01")
	if err != nil {
		t.Fatalf("GetTerminal: %v", err)
	}
	if got == nil {
		t.Fatal("GetTerminal returned nil for existing terminal")
	}
	if got.DisplayName != "Lobby screen" || got.Group != "hq" {
		t.Errorf("got %q/%q, want Lobby screen/hq", got.DisplayName, got.Group)
	}
	if len(got.DirectPlaylist) != 0 {
		t.Errorf("new terminal playlist = %v, want empty", got.DirectPlaylist)
	}
}

func TestGetTerminalMissing(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetTerminal(context.Background(), "NOPE")
	if err != nil {
		t.Fatalf("GetTerminal: %v", err)
	}
	if got != nil {
		t.Errorf("GetTerminal = %+v, want nil", got)
	}
}

func TestCreateTerminalDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateTerminal(ctx, &Terminal{Code: "A1"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	err := s.CreateTerminal(ctx, &Terminal{Code: "A1"})
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("second create err = %v, want ErrDuplicate", err)
	}
}

func TestCreateTerminalEmptyCode(t *testing.T) {
	s := newTestStore(t)

	err := s.CreateTerminal(context.Background(), &Terminal{Code: "  "})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestSetDirectPlaylistBumpsConfigVersion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateTerminal(ctx, &Terminal{Code: "A1"}); err != nil {
		t.Fatalf("CreateTerminal: %v", err)
	}

	ok, err := s.SetDirectPlaylist(ctx, "A1", []PlaylistItem{
		{Type: ItemTypeVideo, URL: "/uploads/promo.mp4"},
	})
	if err != nil {
		t.Fatalf("SetDirectPlaylist: %v", err)
	}
	if !ok {
		t.Fatal("SetDirectPlaylist reported terminal missing")
	}

	got, err := s.GetTerminal(ctx, "A1")
	if err != nil {
		t.Fatalf("GetTerminal: %v", err)
	}
	if got.ConfigVersion != 2 {
		t.Errorf("ConfigVersion = %d, want 2 after playlist write", got.ConfigVersion)
	}
	if len(got.DirectPlaylist) != 1 || got.DirectPlaylist[0].URL != "/uploads/promo.mp4" {
		t.Errorf("playlist = %+v, want the stored item", got.DirectPlaylist)
	}
}

func TestSetDirectPlaylistMissingTerminal(t *testing.T) {
	s := newTestStore(t)

	ok, err := s.SetDirectPlaylist(context.Background(), "NOPE", nil)
	if err != nil {
		t.Fatalf("SetDirectPlaylist: %v", err)
	}
	if ok {
		t.Error("SetDirectPlaylist = true for missing terminal, want false")
	}
}

func TestBumpConfigVersions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, code := range []string{"A1", "B2"} {
		if err := s.CreateTerminal(ctx, &Terminal{Code: code}); err != nil {
			t.Fatalf("CreateTerminal %s: %v", code, err)
		}
	}

	if err := s.BumpConfigVersions(ctx, []string{"A1", "B2", "GHOST"}); err != nil {
		t.Fatalf("BumpConfigVersions: %v", err)
	}

	for _, code := range []string{"A1", "B2"} {
		got, err := s.GetTerminal(ctx, code)
		if err != nil {
			t.Fatalf("GetTerminal %s: %v", code, err)
		}
		if got.ConfigVersion != 2 {
			t.Errorf("%s ConfigVersion = %d, want 2", code, got.ConfigVersion)
		}
	}
}

func TestDeleteTerminal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateTerminal(ctx, &Terminal{Code: "A1"}); err != nil {
		t.Fatalf("CreateTerminal: %v", err)
	}
	ok, err := s.DeleteTerminal(ctx, "A1")
	if err != nil || !ok {
		t.Fatalf("DeleteTerminal = %v, %v; want true, nil", ok, err)
	}
	ok, err = s.DeleteTerminal(ctx, "A1")
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if ok {
		t.Error("second delete = true, want false")
	}
}

func TestBrandingDefaultAndSave(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b, err := s.GetBranding(ctx)
	if err != nil {
		t.Fatalf("GetBranding: %v", err)
	}
	if b.Name != DefaultBranding().Name {
		t.Errorf("default branding name = %q, want %q", b.Name, DefaultBranding().Name)
	}

	custom := Branding{Name: "Acme Signage", Primary: "#111111", Accent: "#ff6600", LogoURL: "/uploads/logo.png"}
	if err := s.SaveBranding(ctx, custom); err != nil {
		t.Fatalf("SaveBranding: %v", err)
	}
	got, err := s.GetBranding(ctx)
	if err != nil {
		t.Fatalf("GetBranding after save: %v", err)
	}
	if got != custom {
		t.Errorf("branding = %+v, want %+v", got, custom)
	}
}

func TestLicenseExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name    string
		expires *time.Time
		want    bool
	}{
		{"no license deadline", nil, false},
		{"future deadline", &future, false},
		{"past deadline", &past, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			term := Terminal{Code: "X", LicenseExpiresAt: tt.expires}
			if got := term.LicenseExpired(now); got != tt.want {
				t.Errorf("LicenseExpired = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateItems(t *testing.T) {
	items, err := ValidateItems([]PlaylistItem{
		{Type: "VIDEO", URL: "/v.mp4", DurationSeconds: 99},
		{Type: "image", URL: "/i.png"},
		{Type: "rss", URL: "https://example.com/feed", DurationSeconds: 30},
	})
	if err != nil {
		t.Fatalf("ValidateItems: %v", err)
	}
	if items[0].DurationSeconds != 0 {
		t.Errorf("video duration = %d, want 0", items[0].DurationSeconds)
	}
	if items[0].Type != ItemTypeVideo {
		t.Errorf("type = %q, want normalized %q", items[0].Type, ItemTypeVideo)
	}
	if items[1].DurationSeconds != DefaultItemDuration {
		t.Errorf("image duration = %d, want default %d", items[1].DurationSeconds, DefaultItemDuration)
	}
	if items[2].DurationSeconds != 30 {
		t.Errorf("rss duration = %d, want 30", items[2].DurationSeconds)
	}

	if _, err := ValidateItems([]PlaylistItem{{Type: "flash", URL: "/x"}}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("unknown type err = %v, want ErrInvalidInput", err)
	}
	if _, err := ValidateItems([]PlaylistItem{{Type: "video", URL: " "}}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty url err = %v, want ErrInvalidInput", err)
	}
}
