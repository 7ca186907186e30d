// Package aggregate turns raw users, sessions and attendance events into dashboard KPIs, chart
// series and the per-career table. Every function is pure: inputs are caller-owned snapshots that
// are never mutated, so concurrent computations cannot interfere with each other.
package aggregate

import (
	"sort"
	"strconv"

	"github.com/noah-isme/tutoria-api/internal/models"
)

// NotAvailable is reported for names when there is nothing to rank.
const NotAvailable = "N/A"

const (
	topSubjects = 5
	topTutors   = 5
)

// Snapshot is one consistent read of the three collections.
type Snapshot struct {
	Users    []models.User
	Sessions []models.Session
	Events   []models.AttendanceEvent
}

// Metrics is the full dashboard payload. UndatedEvents counts filtered events missing from the
// weekday chart because their date cannot be parsed.
type Metrics struct {
	KPIs          KPIs        `json:"kpis"`
	Charts        Charts      `json:"charts"`
	CareerTable   []CareerRow `json:"careerTable"`
	TotalEvents   int         `json:"totalEvents"`
	UndatedEvents int         `json:"undatedEvents"`
}

// KPIs are the scalar dashboard indicators.
type KPIs struct {
	TotalStudents         int        `json:"totalStudents"`
	ScheduledSessions     int        `json:"scheduledSessions"`
	ActiveTutors          int        `json:"activeTutors"`
	UniqueAttendees       int        `json:"uniqueAttendees"`
	ActiveCapacity        int        `json:"activeCapacity"`
	AttendanceRate        float64    `json:"attendanceRate"`
	AttendanceRateDisplay string     `json:"attendanceRateDisplay"`
	MostAttendedSession   SessionKPI `json:"mostAttendedSession"`
	TopTutor              TutorKPI   `json:"topTutor"`
	LeastDemandedSubject  SubjectKPI `json:"leastDemandedSubject"`
}

// SessionKPI names the session with the most attendance events.
type SessionKPI struct {
	SessionID models.ID `json:"sessionId,omitempty"`
	Name      string    `json:"name"`
	Count     int       `json:"count"`
}

// TutorKPI names the tutor with the best events-per-session average.
type TutorKPI struct {
	TutorID           models.ID `json:"tutorId,omitempty"`
	Name              string    `json:"name"`
	AverageAttendance float64   `json:"averageAttendance"`
}

// SubjectKPI names the subject with the fewest events and its share of all filtered events.
type SubjectKPI struct {
	Name  string  `json:"name"`
	Count int     `json:"count"`
	Rate  float64 `json:"rate"`
}

// Empty returns the zero state shown when there is no data or the store could not be read.
func Empty() Metrics {
	return Metrics{
		KPIs: KPIs{
			AttendanceRateDisplay: formatRate(0),
			MostAttendedSession:   SessionKPI{Name: NotAvailable},
			TopTutor:              TutorKPI{Name: NotAvailable},
			LeastDemandedSubject:  SubjectKPI{Name: NotAvailable},
		},
		Charts: Charts{
			SubjectAttendance: newSeries(0),
			DayOfWeek:         weekdaySeries(nil),
			PeakHour:          hourSeries(nil),
			TutorPerformance:  newSeries(0),
		},
		CareerTable: []CareerRow{},
	}
}

// Compute derives all dashboard views from the snapshot. Events are filtered first; head counts and
// capacity always use the full user and session collections.
func Compute(snap Snapshot, filter Filter) Metrics {
	idx := newIndex(snap)
	events := filter.Apply(snap.Events, idx.sessions)

	m := Empty()
	m.TotalEvents = len(events)
	for _, e := range events {
		if _, ok := e.Day(); !ok {
			m.UndatedEvents++
		}
	}
	m.KPIs.ScheduledSessions = len(snap.Sessions)
	for _, u := range snap.Users {
		switch u.Role {
		case models.RoleTutor:
			m.KPIs.ActiveTutors++
			m.KPIs.TotalStudents++
		case models.RoleStudent:
			m.KPIs.TotalStudents++
		}
	}
	for _, s := range snap.Sessions {
		m.KPIs.ActiveCapacity += s.ActiveStudentCount
	}

	attendees := make(map[models.ID]struct{})
	for _, e := range events {
		attendees[e.UserID] = struct{}{}
	}
	m.KPIs.UniqueAttendees = len(attendees)
	m.KPIs.AttendanceRate = percentage(len(attendees), m.KPIs.ActiveCapacity)
	m.KPIs.AttendanceRateDisplay = formatRate(m.KPIs.AttendanceRate)

	if len(events) == 0 {
		return m
	}

	m.KPIs.MostAttendedSession = mostAttendedSession(events, idx)

	tutors := rankTutors(events, idx)
	if len(tutors) > 0 {
		m.KPIs.TopTutor = TutorKPI{TutorID: tutors[0].id, Name: tutors[0].name, AverageAttendance: tutors[0].average}
	}

	subjects := countSubjects(events, idx)
	if least, ok := leastDemanded(subjects); ok {
		m.KPIs.LeastDemandedSubject = SubjectKPI{
			Name:  least.name,
			Count: least.count,
			Rate:  percentage(least.count, len(events)),
		}
	}

	m.Charts = buildCharts(events, subjects, tutors)
	m.CareerTable = careerTable(events, idx)
	return m
}

type index struct {
	users    map[models.ID]models.User
	sessions map[models.ID]models.Session
}

// newIndex builds join maps. The first record wins when the store returns duplicate ids.
func newIndex(snap Snapshot) index {
	idx := index{
		users:    make(map[models.ID]models.User, len(snap.Users)),
		sessions: make(map[models.ID]models.Session, len(snap.Sessions)),
	}
	for _, u := range snap.Users {
		if _, exists := idx.users[u.ID]; !exists {
			idx.users[u.ID] = u
		}
	}
	for _, s := range snap.Sessions {
		if _, exists := idx.sessions[s.ID]; !exists {
			idx.sessions[s.ID] = s
		}
	}
	return idx
}

// mostAttendedSession counts events per session id. Ties go to the lowest id. Events whose session
// is unknown still count; the reported name is then N/A.
func mostAttendedSession(events []models.AttendanceEvent, idx index) SessionKPI {
	counts := make(map[models.ID]int)
	for _, e := range events {
		counts[e.SessionID]++
	}
	var (
		best      models.ID
		bestCount int
	)
	for id, count := range counts {
		if count > bestCount || (count == bestCount && id.Less(best)) {
			best, bestCount = id, count
		}
	}
	name := NotAvailable
	if s, ok := idx.sessions[best]; ok && s.Subject != "" {
		name = s.Subject
	}
	return SessionKPI{SessionID: best, Name: name, Count: bestCount}
}

type tutorStat struct {
	id       models.ID
	name     string
	events   int
	sessions map[models.ID]struct{}
	average  float64
}

// rankTutors groups joined events by the session's tutor and sorts by events per distinct session,
// highest first. Equal averages keep ascending tutor id order.
func rankTutors(events []models.AttendanceEvent, idx index) []tutorStat {
	byTutor := make(map[models.ID]*tutorStat)
	for _, e := range events {
		s, ok := idx.sessions[e.SessionID]
		if !ok {
			continue
		}
		stat, ok := byTutor[s.TutorID]
		if !ok {
			stat = &tutorStat{id: s.TutorID, sessions: make(map[models.ID]struct{})}
			byTutor[s.TutorID] = stat
		}
		stat.events++
		stat.sessions[s.ID] = struct{}{}
	}

	ranked := make([]tutorStat, 0, len(byTutor))
	for _, stat := range byTutor {
		stat.average = ratio(stat.events, len(stat.sessions))
		stat.name = "Tutor " + stat.id.String()
		if u, ok := idx.users[stat.id]; ok && u.FullName != "" {
			stat.name = u.FullName
		}
		ranked = append(ranked, *stat)
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].id.Less(ranked[j].id) })
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].average > ranked[j].average })
	return ranked
}

type subjectCount struct {
	name  string
	count int
}

// countSubjects returns per-subject event counts ordered by count descending, then name.
func countSubjects(events []models.AttendanceEvent, idx index) []subjectCount {
	counts := make(map[string]int)
	for _, e := range events {
		s, ok := idx.sessions[e.SessionID]
		if !ok {
			continue
		}
		counts[s.Subject]++
	}
	out := make([]subjectCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, subjectCount{name: name, count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].name < out[j].name
	})
	return out
}

// leastDemanded picks the minimum count; ties go to the lexically smallest subject.
func leastDemanded(subjects []subjectCount) (subjectCount, bool) {
	if len(subjects) == 0 {
		return subjectCount{}, false
	}
	least := subjects[0]
	for _, s := range subjects[1:] {
		if s.count < least.count || (s.count == least.count && s.name < least.name) {
			least = s
		}
	}
	return least, true
}

func ratio(num, den int) float64 {
	if den <= 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func percentage(num, den int) float64 {
	return ratio(num, den) * 100
}

func formatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', 1, 64)
}
