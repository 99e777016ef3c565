package fleet

import (
	"fmt"
	"strings"
	"time"
)

// Playlist item types understood by the player.
const (
	ItemTypeVideo = "video"
	ItemTypeImage = "image"
	ItemTypeRSS   = "rss"
)

// DefaultItemDuration is applied to image and rss items that carry no
// positive duration of their own.
const DefaultItemDuration = 10

// PlaylistItem is a single entry in a terminal or campaign playlist.
// Video items play to their natural end (duration 0); image and rss items
// display for DurationSeconds.
type PlaylistItem struct {
	Type            string `json:"type"`
	URL             string `json:"url"`
	DurationSeconds int    `json:"duration_seconds"`
}

// Terminal is a registered display device, identified by its unique code.
type Terminal struct {
	Code             string         `json:"code"`
	DisplayName      string         `json:"display_name"`
	Group            string         `json:"group"`
	LicenseExpiresAt *time.Time     `json:"license_expires_at,omitempty"`
	DirectPlaylist   []PlaylistItem `json:"direct_playlist"`
	ConfigVersion    int64          `json:"config_version"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// LicenseExpired reports whether the terminal's license lapsed before now.
// Terminals without a license deadline never expire.
func (t *Terminal) LicenseExpired(now time.Time) bool {
	return t.LicenseExpiresAt != nil && now.After(*t.LicenseExpiresAt)
}

// Branding is the fleet-wide appearance document served to every player.
type Branding struct {
	Name    string `json:"name"`
	Primary string `json:"primary"`
	Accent  string `json:"accent"`
	LogoURL string `json:"logo_url"`
}

// DefaultBranding returns the branding served before an administrator
// customizes it.
func DefaultBranding() Branding {
	return Branding{
		Name:    "Studio RS TV",
		Primary: "#0a2342",
		Accent:  "#1f6feb",
		LogoURL: "",
	}
}

// ValidateItems checks item types and URLs, returning a normalized copy:
// video durations forced to 0, non-positive image/rss durations set to
// DefaultItemDuration. The input slice is not modified.
func ValidateItems(items []PlaylistItem) ([]PlaylistItem, error) {
	out := make([]PlaylistItem, 0, len(items))
	for i, item := range items {
		typ := strings.ToLower(strings.TrimSpace(item.Type))
		switch typ {
		case ItemTypeVideo, ItemTypeImage, ItemTypeRSS:
		default:
			return nil, fmt.Errorf("%w: item %d has unknown type %q", ErrInvalidInput, i, item.Type)
		}
		if strings.TrimSpace(item.URL) == "" {
			return nil, fmt.Errorf("%w: item %d has empty url", ErrInvalidInput, i)
		}

		normalized := PlaylistItem{Type: typ, URL: item.URL, DurationSeconds: item.DurationSeconds}
		if typ == ItemTypeVideo {
			normalized.DurationSeconds = 0
		} else if normalized.DurationSeconds <= 0 {
			normalized.DurationSeconds = DefaultItemDuration
		}
		out = append(out, normalized)
	}
	return out, nil
}
