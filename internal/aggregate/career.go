package aggregate

import (
	"sort"

	"github.com/noah-isme/tutoria-api/internal/models"
)

// CareerRow is one line of the per-career report.
type CareerRow struct {
	Career          string  `json:"career"`
	UniqueAttendees int     `json:"uniqueAttendees"`
	TotalEvents     int     `json:"totalEvents"`
	Frequency       float64 `json:"frequency"`
}

// careerTable joins events to users and groups them by career. Events from unknown users are
// skipped; users without a career are grouped under N/A.
func careerTable(events []models.AttendanceEvent, idx index) []CareerRow {
	type accumulator struct {
		events    int
		attendees map[models.ID]struct{}
	}
	byCareer := make(map[string]*accumulator)
	for _, e := range events {
		u, ok := idx.users[e.UserID]
		if !ok {
			continue
		}
		career := u.Career
		if career == "" {
			career = NotAvailable
		}
		acc, ok := byCareer[career]
		if !ok {
			acc = &accumulator{attendees: make(map[models.ID]struct{})}
			byCareer[career] = acc
		}
		acc.events++
		acc.attendees[u.ID] = struct{}{}
	}

	rows := make([]CareerRow, 0, len(byCareer))
	for career, acc := range byCareer {
		if len(acc.attendees) == 0 {
			continue
		}
		rows = append(rows, CareerRow{
			Career:          career,
			UniqueAttendees: len(acc.attendees),
			TotalEvents:     acc.events,
			Frequency:       ratio(acc.events, len(acc.attendees)),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Frequency != rows[j].Frequency {
			return rows[i].Frequency > rows[j].Frequency
		}
		return rows[i].Career < rows[j].Career
	})
	return rows
}
