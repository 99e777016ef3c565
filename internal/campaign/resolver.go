package campaign

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/studiorstv10-png/studio-rs-tv/internal/fleet"
)

// Resolution is the outcome of picking a playlist for a terminal.
// CampaignName is empty when the terminal fell back to its direct playlist.
type Resolution struct {
	Items        []fleet.PlaylistItem `json:"items"`
	CampaignName string               `json:"campaign_name,omitempty"`
	CampaignID   string               `json:"campaign_id,omitempty"`
}

// Resolver selects the effective playlist for a terminal at an instant.
// It is a pure read over the campaign store and the passed terminal;
// license and existence checks belong to the caller.
type Resolver struct {
	store *Store
}

// NewResolver builds a resolver over the campaign store.
func NewResolver(store *Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve picks the playlist for the terminal at the given instant.
// Among campaigns targeting the terminal whose schedule admits the
// instant, the most recently updated wins; ties fall to the greater ID
// so repeated calls with unchanged inputs return the same campaign.
// With no active campaign the terminal's own playlist is returned.
func (r *Resolver) Resolve(ctx context.Context, t *fleet.Terminal, at time.Time) (Resolution, error) {
	candidates, err := r.store.ListTargeting(ctx, t.Code)
	if err != nil {
		return Resolution{}, fmt.Errorf("list campaigns for %s: %w", t.Code, err)
	}

	active := candidates[:0]
	for _, c := range candidates {
		if c.ActiveAt(at) {
			active = append(active, c)
		}
	}
	if len(active) == 0 {
		items := t.DirectPlaylist
		if items == nil {
			items = []fleet.PlaylistItem{}
		}
		return Resolution{Items: items}, nil
	}

	sort.Slice(active, func(i, j int) bool {
		if !active[i].UpdatedAt.Equal(active[j].UpdatedAt) {
			return active[i].UpdatedAt.After(active[j].UpdatedAt)
		}
		return active[i].ID > active[j].ID
	})

	winner := active[0]
	return Resolution{
		Items:        winner.Items,
		CampaignName: winner.Name,
		CampaignID:   winner.ID,
	}, nil
}
