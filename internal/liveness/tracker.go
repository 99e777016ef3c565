package liveness

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/studiorstv10-png/studio-rs-tv/pkg/plugin"
)

// Tracker turns heartbeats into an online/offline signal. Heartbeats mark
// a terminal online immediately; the offline direction is computed lazily
// by Recompute with a grace window of twice the refresh interval, so one
// missed poll never flaps the state.
type Tracker struct {
	store   *Store
	refresh time.Duration
	logger  *zap.Logger
	bus     plugin.Publisher

	// Serializes recomputation so concurrent status listings cannot
	// observe the same transition twice and double-append alerts.
	mu sync.Mutex
}

// NewTracker builds a tracker with the given refresh interval.
func NewTracker(store *Store, refresh time.Duration, logger *zap.Logger, bus plugin.Publisher) *Tracker {
	return &Tracker{store: store, refresh: refresh, logger: logger, bus: bus}
}

// Heartbeat ingests one terminal check-in and returns the updated record.
func (t *Tracker) Heartbeat(ctx context.Context, code string, fields HeartbeatFields) (*StatusRecord, error) {
	rec, err := t.store.RecordHeartbeat(ctx, code, fields, time.Now())
	if err != nil {
		return nil, err
	}
	heartbeatsTotal.Inc()
	return rec, nil
}

// Recompute settles the liveness of one terminal at the given instant.
// online means the last heartbeat landed within twice the refresh
// interval. State is persisted and an offline alert appended only on an
// actual flip; calling again with no new heartbeat is a no-op.
func (t *Tracker) Recompute(ctx context.Context, code string, now time.Time) (*StatusRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, err := t.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	if err := t.settle(ctx, rec, now); err != nil {
		return nil, err
	}
	return rec, nil
}

// RecomputeAll settles every known terminal and returns the records.
// Invoked by status listings and the background sweep.
func (t *Tracker) RecomputeAll(ctx context.Context, now time.Time) ([]*StatusRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	records, err := t.store.List(ctx)
	if err != nil {
		return nil, err
	}
	online := 0
	for _, rec := range records {
		if err := t.settle(ctx, rec, now); err != nil {
			return nil, fmt.Errorf("recompute %s: %w", rec.TerminalCode, err)
		}
		if rec.IsOnline != nil && *rec.IsOnline {
			online++
		}
	}
	terminalsOnline.Set(float64(online))
	return records, nil
}

// settle computes the new state for one record, mutating it in place and
// persisting only when the state flipped. A corrupt last_seen_at degrades
// to "never seen" rather than erroring.
func (t *Tracker) settle(ctx context.Context, rec *StatusRecord, now time.Time) error {
	lastSeen, seen := rec.LastSeen()
	online := seen && now.Sub(lastSeen) <= 2*t.refresh

	if rec.IsOnline != nil && *rec.IsOnline == online {
		return nil
	}

	if err := t.store.SaveLiveness(ctx, rec.TerminalCode, online, now); err != nil {
		return err
	}
	rec.IsOnline = &online
	changed := now
	rec.LastStateChangedAt = &changed

	if online {
		t.logger.Info("terminal back online", zap.String("code", rec.TerminalCode))
		t.publish(ctx, TopicTerminalOnline, rec.TerminalCode)
		return nil
	}

	if err := t.store.AppendAlert(ctx, rec.TerminalCode, ReasonOffline, now); err != nil {
		return err
	}
	offlineTransitionsTotal.Inc()
	t.logger.Warn("terminal went offline",
		zap.String("code", rec.TerminalCode),
		zap.String("last_seen_at", rec.LastSeenAt))
	t.publish(ctx, TopicTerminalOffline, rec.TerminalCode)
	return nil
}

// AckConfig records the config version a terminal reports as applied.
func (t *Tracker) AckConfig(ctx context.Context, code string, version int64) error {
	return t.store.AckConfig(ctx, code, version)
}

// RefreshInterval returns the expected heartbeat period.
func (t *Tracker) RefreshInterval() time.Duration {
	return t.refresh
}

func (t *Tracker) publish(ctx context.Context, topic string, payload any) {
	if t.bus == nil {
		return
	}
	_ = t.bus.Publish(ctx, plugin.Event{
		Topic:     topic,
		Source:    "liveness",
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
}
