package models

import "time"

const (
	// DateLayout is the calendar-day format used by attendance events and filters.
	DateLayout = "2006-01-02"
	// TimeLayout is the wall-clock format used by attendance events.
	TimeLayout = "15:04:05"
)

// AttendanceEvent records one user present at one session on one day. Events are append-only.
type AttendanceEvent struct {
	ID        ID     `db:"id" json:"id,omitempty"`
	SessionID ID     `db:"session_id" json:"sessionId"`
	UserID    ID     `db:"user_id" json:"userId"`
	Date      string `db:"date" json:"date"`
	Time      string `db:"time" json:"time"`
}

// Day parses the event date.
func (e AttendanceEvent) Day() (time.Time, bool) {
	if d, err := time.Parse(DateLayout, e.Date); err == nil {
		return d, true
	}
	if t, err := time.Parse(time.RFC3339, e.Date); err == nil {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// Hour parses the hour component of the event time. Both HH:MM:SS and HH:MM are accepted.
func (e AttendanceEvent) Hour() (int, bool) {
	for _, layout := range []string{TimeLayout, "15:04"} {
		if t, err := time.Parse(layout, e.Time); err == nil {
			return t.Hour(), true
		}
	}
	return 0, false
}

// AttendanceFilter narrows attendance listings. Empty fields do not filter.
type AttendanceFilter struct {
	SessionID ID
	UserID    ID
	Date      string
}

// Match applies the filter in memory.
func (f AttendanceFilter) Match(e AttendanceEvent) bool {
	if f.SessionID != "" && e.SessionID != f.SessionID {
		return false
	}
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if f.Date != "" && e.Date != f.Date {
		return false
	}
	return true
}

// RecordOutcome is the result of a check-in attempt.
type RecordOutcome string

const (
	OutcomeRecorded             RecordOutcome = "recorded"
	OutcomeAlreadyRecordedToday RecordOutcome = "already_recorded_today"
)

// RosterEntry is an attendance event joined with the attendee's contact data.
type RosterEntry struct {
	Date        string `json:"date"`
	Time        string `json:"time"`
	UserID      ID     `json:"userId"`
	StudentCode string `json:"studentCode"`
	FullName    string `json:"fullName"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Career      string `json:"career"`
}
