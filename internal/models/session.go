package models

// SessionStatus reports whether a tutoring session is currently offered.
type SessionStatus string

const (
	SessionStatusActive   SessionStatus = "active"
	SessionStatusInactive SessionStatus = "inactive"
)

// Valid returns true when the status is a supported value.
func (s SessionStatus) Valid() bool {
	return s == SessionStatusActive || s == SessionStatusInactive
}

// Session is a recurring tutoring slot owned by a tutor.
type Session struct {
	ID                 ID            `db:"id" json:"id"`
	TutorID            ID            `db:"tutor_id" json:"tutorId"`
	Subject            string        `db:"subject" json:"subject"`
	DayOfWeek          string        `db:"day_of_week" json:"dayOfWeek"`
	Time               string        `db:"time" json:"time"`
	Room               string        `db:"room" json:"room"`
	ActiveStudentCount int           `db:"active_student_count" json:"activeStudentCount"`
	Status             SessionStatus `db:"status" json:"status"`
}

// SessionFilter narrows session listings. Empty fields do not filter.
type SessionFilter struct {
	TutorID ID
	Status  SessionStatus
}

// Match applies the filter in memory.
func (f SessionFilter) Match(s Session) bool {
	if f.TutorID != "" && s.TutorID != f.TutorID {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	return true
}
