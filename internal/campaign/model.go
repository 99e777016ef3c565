package campaign

import (
	"strings"
	"time"

	"github.com/studiorstv10-png/studio-rs-tv/internal/fleet"
)

// Campaign is a named, schedule-gated playlist targeting a set of terminals.
// Names are unique case-insensitively and act as the upsert key.
type Campaign struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Items     []fleet.PlaylistItem `json:"items"`
	Targets   []string             `json:"targets"`
	Schedule  *ScheduleRule        `json:"schedule,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// NameKey normalizes a campaign name for case-insensitive uniqueness.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ActiveAt reports whether the campaign's schedule admits the instant.
// Campaigns without a schedule are always active.
func (c *Campaign) ActiveAt(at time.Time) bool {
	return c.Schedule.Matches(at)
}
