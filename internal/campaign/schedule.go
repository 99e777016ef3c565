package campaign

import (
	"strings"
	"time"
)

// ScheduleRule gates when a campaign is active. Every constraint is
// optional and independent; all present constraints must hold for a match.
// Malformed sub-fields degrade to "constraint absent" rather than failing,
// so a typo in one field never blacks out a campaign entirely.
type ScheduleRule struct {
	Days      []string `json:"days,omitempty"`       // Three-letter lowercase weekday tokens: mon..sun
	DateStart string   `json:"date_start,omitempty"` // YYYY-MM-DD, inclusive
	DateEnd   string   `json:"date_end,omitempty"`   // YYYY-MM-DD, inclusive
	TimeStart string   `json:"time_start,omitempty"` // HH:MM
	TimeEnd   string   `json:"time_end,omitempty"`   // HH:MM
}

var weekdayTokens = map[string]time.Weekday{
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
	"sun": time.Sunday,
}

// Matches reports whether the rule admits the given instant. A nil rule
// always matches.
func (r *ScheduleRule) Matches(at time.Time) bool {
	if r == nil {
		return true
	}
	return r.matchesDay(at) && r.matchesDateRange(at) && r.matchesTimeWindow(at)
}

// matchesDay checks the weekday constraint. Unknown tokens are skipped;
// an empty or entirely-malformed set leaves the day unconstrained.
func (r *ScheduleRule) matchesDay(at time.Time) bool {
	constrained := false
	for _, tok := range r.Days {
		day, ok := weekdayTokens[strings.ToLower(strings.TrimSpace(tok))]
		if !ok {
			continue
		}
		constrained = true
		if at.Weekday() == day {
			return true
		}
	}
	return !constrained
}

// matchesDateRange checks the inclusive calendar-date bounds. Each bound is
// evaluated independently; a missing or unparsable bound is unconstrained.
func (r *ScheduleRule) matchesDateRange(at time.Time) bool {
	cur := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)

	if start, ok := parseDate(r.DateStart); ok && cur.Before(start) {
		return false
	}
	if end, ok := parseDate(r.DateEnd); ok && cur.After(end) {
		return false
	}
	return true
}

// matchesTimeWindow checks the minute-of-day window. When start > end the
// window wraps past midnight and matches cur >= start OR cur <= end. The
// window constrains only when both bounds parse.
func (r *ScheduleRule) matchesTimeWindow(at time.Time) bool {
	start, okStart := parseMinuteOfDay(r.TimeStart)
	end, okEnd := parseMinuteOfDay(r.TimeEnd)
	if !okStart || !okEnd {
		return true
	}

	cur := at.Hour()*60 + at.Minute()
	if start <= end {
		return start <= cur && cur <= end
	}
	return cur >= start || cur <= end
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func parseMinuteOfDay(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}
