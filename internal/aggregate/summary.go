package aggregate

import (
	"sort"

	"github.com/noah-isme/tutoria-api/internal/models"
)

// DefaultHoursPerSession is the nominal length of a tutoring session.
const DefaultHoursPerSession = 2

// TutorSummary is the tutor home-page indicator set.
type TutorSummary struct {
	TutorID        models.ID `json:"tutorId"`
	SessionsHeld   int       `json:"sessionsHeld"`
	StudentsServed int       `json:"studentsServed"`
	HoursInvested  float64   `json:"hoursInvested"`
}

// SubjectOptions lists distinct, non-empty subjects in ascending order.
func SubjectOptions(sessions []models.Session) []string {
	seen := make(map[string]struct{}, len(sessions))
	out := make([]string, 0, len(sessions))
	for _, s := range sessions {
		if s.Subject == "" {
			continue
		}
		if _, ok := seen[s.Subject]; ok {
			continue
		}
		seen[s.Subject] = struct{}{}
		out = append(out, s.Subject)
	}
	sort.Strings(out)
	return out
}

// SummarizeTutor counts the attendance of the sessions owned by tutorID. A session is held once
// per distinct date with at least one event.
func SummarizeTutor(tutorID models.ID, sessions []models.Session, events []models.AttendanceEvent, hoursPerSession float64) TutorSummary {
	if hoursPerSession <= 0 {
		hoursPerSession = DefaultHoursPerSession
	}
	owned := make(map[models.ID]struct{})
	for _, s := range sessions {
		if s.TutorID == tutorID {
			owned[s.ID] = struct{}{}
		}
	}

	summary := TutorSummary{TutorID: tutorID}
	dates := make(map[string]struct{})
	for _, e := range events {
		if _, ok := owned[e.SessionID]; !ok {
			continue
		}
		summary.StudentsServed++
		dates[e.Date] = struct{}{}
	}
	summary.SessionsHeld = len(dates)
	summary.HoursInvested = float64(summary.SessionsHeld) * hoursPerSession
	return summary
}
