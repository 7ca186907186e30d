package aggregate

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/tutoria-api/internal/models"
)

// Filter narrows the event set before any KPI is computed. Zero values mean "no bound".
type Filter struct {
	DateStart time.Time
	DateEnd   time.Time
	Subject   string
}

// ParseFilter builds a filter from raw query values. Empty strings leave the bound open.
func ParseFilter(dateStart, dateEnd, subject string) (Filter, error) {
	var f Filter
	if s := strings.TrimSpace(dateStart); s != "" {
		t, err := time.Parse(models.DateLayout, s)
		if err != nil {
			return Filter{}, fmt.Errorf("dateStart must use %s", models.DateLayout)
		}
		f.DateStart = t
	}
	if s := strings.TrimSpace(dateEnd); s != "" {
		t, err := time.Parse(models.DateLayout, s)
		if err != nil {
			return Filter{}, fmt.Errorf("dateEnd must use %s", models.DateLayout)
		}
		f.DateEnd = t
	}
	if !f.DateStart.IsZero() && !f.DateEnd.IsZero() && f.DateEnd.Before(f.DateStart) {
		return Filter{}, fmt.Errorf("dateEnd must not be before dateStart")
	}
	f.Subject = strings.TrimSpace(subject)
	return f, nil
}

// IsZero reports whether the filter lets every valid event through.
func (f Filter) IsZero() bool {
	return f.DateStart.IsZero() && f.DateEnd.IsZero() && f.Subject == ""
}

// Key renders a stable identifier used for cache keys.
func (f Filter) Key() string {
	return fmt.Sprintf("%s:%s:%s", formatDay(f.DateStart), formatDay(f.DateEnd), f.Subject)
}

// Apply returns the events that pass the filter. Events with an unparseable date only pass when no
// date bound is set. With a subject filter, events whose session is unknown are dropped.
func (f Filter) Apply(events []models.AttendanceEvent, sessions map[models.ID]models.Session) []models.AttendanceEvent {
	out := make([]models.AttendanceEvent, 0, len(events))
	for _, e := range events {
		if f.Match(e, sessions) {
			out = append(out, e)
		}
	}
	return out
}

// Match evaluates a single event. The end date is inclusive of the whole day.
func (f Filter) Match(e models.AttendanceEvent, sessions map[models.ID]models.Session) bool {
	day, ok := e.Day()
	if !ok && (!f.DateStart.IsZero() || !f.DateEnd.IsZero()) {
		return false
	}
	if !f.DateStart.IsZero() && day.Before(truncateDay(f.DateStart)) {
		return false
	}
	if !f.DateEnd.IsZero() && day.After(truncateDay(f.DateEnd)) {
		return false
	}
	if f.Subject != "" {
		s, ok := sessions[e.SessionID]
		if !ok || s.Subject != f.Subject {
			return false
		}
	}
	return true
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func formatDay(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(models.DateLayout)
}
