package campaign

import (
	"testing"
	"time"
)

// mustTime builds a UTC instant on a fixed Monday (2026-03-02) unless a
// date is given.
func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return ts
}

func TestMatchesNilRule(t *testing.T) {
	var r *ScheduleRule
	if !r.Matches(time.Now()) {
		t.Error("nil rule should always match")
	}
}

func TestMatchesEmptyRule(t *testing.T) {
	r := &ScheduleRule{}
	if !r.Matches(time.Now()) {
		t.Error("empty rule should always match")
	}
}

func TestMatchesTimeWindow(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		at         string
		want       bool
	}{
		{"plain window inside", "09:00", "17:00", "2026-03-02T12:00:00Z", true},
		{"plain window at start", "09:00", "17:00", "2026-03-02T09:00:00Z", true},
		{"plain window at end", "09:00", "17:00", "2026-03-02T17:00:00Z", true},
		{"plain window before", "09:00", "17:00", "2026-03-02T08:59:00Z", false},
		{"plain window after", "09:00", "17:00", "2026-03-02T17:01:00Z", false},
		{"overnight late evening", "22:00", "06:00", "2026-03-02T23:30:00Z", true},
		{"overnight early morning", "22:00", "06:00", "2026-03-02T05:30:00Z", true},
		{"overnight midday excluded", "22:00", "06:00", "2026-03-02T12:00:00Z", false},
		{"overnight at wrap start", "22:00", "06:00", "2026-03-02T22:00:00Z", true},
		{"overnight at wrap end", "22:00", "06:00", "2026-03-02T06:00:00Z", true},
		{"malformed start unconstrained", "banana", "06:00", "2026-03-02T12:00:00Z", true},
		{"malformed end unconstrained", "22:00", "", "2026-03-02T12:00:00Z", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &ScheduleRule{TimeStart: tt.start, TimeEnd: tt.end}
			if got := r.Matches(mustTime(t, tt.at)); got != tt.want {
				t.Errorf("Matches(%s-%s at %s) = %v, want %v", tt.start, tt.end, tt.at, got, tt.want)
			}
		})
	}
}

func TestMatchesDays(t *testing.T) {
	// 2026-03-04 is a Wednesday.
	wednesday := mustTime(t, "2026-03-04T15:00:00Z")
	thursday := mustTime(t, "2026-03-05T15:00:00Z")

	r := &ScheduleRule{Days: []string{"wed"}}
	if !r.Matches(wednesday) {
		t.Error("wed rule should match a Wednesday regardless of other fields")
	}
	if r.Matches(thursday) {
		t.Error("wed rule should not match a Thursday")
	}

	// Unknown tokens are skipped; if none are valid the day is unconstrained.
	r = &ScheduleRule{Days: []string{"blursday"}}
	if !r.Matches(thursday) {
		t.Error("entirely malformed day set should be unconstrained")
	}

	// Mixed valid and malformed tokens: only the valid ones constrain.
	r = &ScheduleRule{Days: []string{"blursday", "thu"}}
	if !r.Matches(thursday) {
		t.Error("thu token should match a Thursday")
	}
	if r.Matches(wednesday) {
		t.Error("thu token should not match a Wednesday")
	}
}

func TestMatchesDateRange(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		at         string
		want       bool
	}{
		{"inside range", "2026-03-01", "2026-03-31", "2026-03-15T12:00:00Z", true},
		{"first day inclusive", "2026-03-01", "2026-03-31", "2026-03-01T00:30:00Z", true},
		{"last day inclusive", "2026-03-01", "2026-03-31", "2026-03-31T23:30:00Z", true},
		{"before range", "2026-03-01", "2026-03-31", "2026-02-28T12:00:00Z", false},
		{"after range", "2026-03-01", "2026-03-31", "2026-04-01T00:10:00Z", false},
		{"open start", "", "2026-03-31", "2020-01-01T12:00:00Z", true},
		{"open end", "2026-03-01", "", "2030-01-01T12:00:00Z", true},
		{"malformed start skipped", "not-a-date", "2026-03-31", "2020-01-01T12:00:00Z", true},
		{"malformed end still bounds start", "2026-03-01", "garbage", "2026-02-01T12:00:00Z", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &ScheduleRule{DateStart: tt.start, DateEnd: tt.end}
			if got := r.Matches(mustTime(t, tt.at)); got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchesAllConstraintsAnded(t *testing.T) {
	// 2026-03-04 is a Wednesday.
	r := &ScheduleRule{
		Days:      []string{"wed"},
		DateStart: "2026-03-01",
		DateEnd:   "2026-03-31",
		TimeStart: "09:00",
		TimeEnd:   "17:00",
	}

	if !r.Matches(mustTime(t, "2026-03-04T12:00:00Z")) {
		t.Error("instant satisfying all constraints should match")
	}
	if r.Matches(mustTime(t, "2026-03-04T20:00:00Z")) {
		t.Error("failing the time window should block the match")
	}
	if r.Matches(mustTime(t, "2026-03-05T12:00:00Z")) {
		t.Error("failing the day constraint should block the match")
	}
	if r.Matches(mustTime(t, "2026-04-01T12:00:00Z")) {
		t.Error("failing the date range should block the match")
	}
}
