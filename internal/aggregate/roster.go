package aggregate

import (
	"sort"

	"github.com/noah-isme/tutoria-api/internal/models"
)

// UnknownUserName replaces the name of attendees missing from the user collection.
const UnknownUserName = "Usuario Desconocido"

// Roster joins the events of a session with their users, ordered by date then time. Missing users
// and empty fields are rendered with placeholders.
func Roster(events []models.AttendanceEvent, users []models.User) []models.RosterEntry {
	byID := make(map[models.ID]models.User, len(users))
	for _, u := range users {
		if _, exists := byID[u.ID]; !exists {
			byID[u.ID] = u
		}
	}

	entries := make([]models.RosterEntry, 0, len(events))
	for _, e := range events {
		entry := models.RosterEntry{
			Date:        placeholder(e.Date),
			Time:        placeholder(e.Time),
			UserID:      e.UserID,
			StudentCode: NotAvailable,
			FullName:    UnknownUserName,
			Phone:       NotAvailable,
			Email:       NotAvailable,
			Career:      NotAvailable,
		}
		if u, ok := byID[e.UserID]; ok {
			entry.StudentCode = placeholder(u.StudentCode)
			entry.FullName = placeholder(u.FullName)
			entry.Phone = placeholder(u.Phone)
			entry.Email = placeholder(u.Email)
			entry.Career = placeholder(u.Career)
		}
		entries = append(entries, entry)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Date != entries[j].Date {
			return entries[i].Date < entries[j].Date
		}
		return entries[i].Time < entries[j].Time
	})
	return entries
}

// RosterUserIDs returns the distinct user ids referenced by the events, in first-seen order.
func RosterUserIDs(events []models.AttendanceEvent) []models.ID {
	seen := make(map[models.ID]struct{}, len(events))
	ids := make([]models.ID, 0, len(events))
	for _, e := range events {
		if _, ok := seen[e.UserID]; ok {
			continue
		}
		seen[e.UserID] = struct{}{}
		ids = append(ids, e.UserID)
	}
	return ids
}

func placeholder(v string) string {
	if v == "" {
		return NotAvailable
	}
	return v
}
