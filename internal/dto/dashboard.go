package dto

import (
	"github.com/noah-isme/tutoria-api/internal/aggregate"
	"github.com/noah-isme/tutoria-api/internal/models"
)

// AdminDashboardResponse carries the admin home-page counters computed over all attendance.
type AdminDashboardResponse struct {
	TotalStudents         int     `json:"totalStudents"`
	ScheduledSessions     int     `json:"scheduledSessions"`
	ActiveTutors          int     `json:"activeTutors"`
	UniqueAttendees       int     `json:"uniqueAttendees"`
	AttendanceRate        float64 `json:"attendanceRate"`
	AttendanceRateDisplay string  `json:"attendanceRateDisplay"`
	Degraded              bool    `json:"-"`
}

// ReportsResponse is the filtered reports dashboard.
type ReportsResponse struct {
	Filter   ReportFilter      `json:"filter"`
	Metrics  aggregate.Metrics `json:"metrics"`
	Degraded bool              `json:"-"`
}

// ReportFilter echoes the applied filter.
type ReportFilter struct {
	DateStart string `json:"dateStart,omitempty"`
	DateEnd   string `json:"dateEnd,omitempty"`
	Subject   string `json:"subject,omitempty"`
}

// TutorDashboardResponse is the tutor home-page summary.
type TutorDashboardResponse struct {
	aggregate.TutorSummary
	Degraded bool `json:"-"`
}

// TutorSessionsResponse splits a tutor's sessions by status.
type TutorSessionsResponse struct {
	TutorID  models.ID        `json:"tutorId"`
	Active   []models.Session `json:"active"`
	Inactive []models.Session `json:"inactive"`
}

// SessionDetailResponse is a session with its tutor's display name.
type SessionDetailResponse struct {
	models.Session
	TutorName string `json:"tutorName"`
}

// CheckInLinkResponse is the content encoded into a session QR code.
type CheckInLinkResponse struct {
	SessionID models.ID `json:"sessionId"`
	Subject   string    `json:"subject"`
	URL       string    `json:"url"`
}
