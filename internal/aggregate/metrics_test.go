package aggregate

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutoria-api/internal/models"
)

func event(id, session, user, date, clock string) models.AttendanceEvent {
	return models.AttendanceEvent{
		ID:        models.ID(id),
		SessionID: models.ID(session),
		UserID:    models.ID(user),
		Date:      date,
		Time:      clock,
	}
}

func sumSeries(s Series) float64 {
	var total float64
	for _, v := range s.Data {
		total += v
	}
	return total
}

func TestComputeEmptyInputs(t *testing.T) {
	m := Compute(Snapshot{}, Filter{})

	assert.Equal(t, 0, m.KPIs.TotalStudents)
	assert.Equal(t, 0, m.KPIs.ScheduledSessions)
	assert.Zero(t, m.KPIs.AttendanceRate)
	assert.Equal(t, "0.0", m.KPIs.AttendanceRateDisplay)
	assert.Equal(t, NotAvailable, m.KPIs.MostAttendedSession.Name)
	assert.Equal(t, NotAvailable, m.KPIs.TopTutor.Name)
	assert.Equal(t, NotAvailable, m.KPIs.LeastDemandedSubject.Name)
	assert.NotNil(t, m.CareerTable)
	assert.Empty(t, m.CareerTable)
	assert.Len(t, m.Charts.DayOfWeek.Data, 7)
	assert.Len(t, m.Charts.PeakHour.Data, 13)
	assert.Empty(t, m.Charts.SubjectAttendance.Labels)
}

func TestComputeRateWithSingleAttendee(t *testing.T) {
	snap := Snapshot{
		Users:    []models.User{{ID: "u1", Role: models.RoleStudent, FullName: "Ana", Career: "Sistemas"}},
		Sessions: []models.Session{{ID: "s1", TutorID: "t1", Subject: "Cálculo", ActiveStudentCount: 20}},
		Events:   []models.AttendanceEvent{event("e1", "s1", "u1", "2024-05-06", "09:15:00")},
	}

	m := Compute(snap, Filter{})

	assert.InDelta(t, 5.0, m.KPIs.AttendanceRate, 1e-9)
	assert.Equal(t, "5.0", m.KPIs.AttendanceRateDisplay)
	assert.Equal(t, 1, m.KPIs.UniqueAttendees)
	assert.Equal(t, 20, m.KPIs.ActiveCapacity)
	assert.Equal(t, SessionKPI{SessionID: "s1", Name: "Cálculo", Count: 1}, m.KPIs.MostAttendedSession)
}

func TestComputeMondayDistribution(t *testing.T) {
	snap := Snapshot{
		Users: []models.User{
			{ID: "u1", Role: models.RoleStudent},
			{ID: "u2", Role: models.RoleStudent},
		},
		Sessions: []models.Session{{ID: "s1", TutorID: "t1", Subject: "Física", ActiveStudentCount: 20}},
		Events: []models.AttendanceEvent{
			event("e1", "s1", "u1", "2024-05-06", "10:00:00"),
			event("e2", "s1", "u2", "2024-05-06", "10:30:00"),
		},
	}

	m := Compute(snap, Filter{})

	assert.InDelta(t, 10.0, m.KPIs.AttendanceRate, 1e-9)
	assert.Equal(t, "Lun", m.Charts.DayOfWeek.Labels[0])
	assert.Equal(t, 2.0, m.Charts.DayOfWeek.Data[0])
	assert.Equal(t, float64(m.TotalEvents), sumSeries(m.Charts.DayOfWeek))
	assert.Equal(t, "10 am", m.Charts.PeakHour.Labels[2])
	assert.Equal(t, 2.0, m.Charts.PeakHour.Data[2])
}

func TestComputeTopTutorByAverage(t *testing.T) {
	snap := Snapshot{
		Users: []models.User{
			{ID: "A", Role: models.RoleTutor, FullName: "Tutor Alfa"},
			{ID: "B", Role: models.RoleTutor, FullName: "Tutor Beta"},
		},
		Sessions: []models.Session{
			{ID: "a1", TutorID: "A", Subject: "Álgebra", ActiveStudentCount: 10},
			{ID: "a2", TutorID: "A", Subject: "Álgebra", ActiveStudentCount: 10},
			{ID: "b1", TutorID: "B", Subject: "Química", ActiveStudentCount: 10},
		},
	}
	for i := 0; i < 10; i++ {
		session := "a1"
		if i%2 == 1 {
			session = "a2"
		}
		snap.Events = append(snap.Events, event(fmt.Sprintf("ea%d", i), session, fmt.Sprintf("s%d", i), "2024-05-07", "11:00:00"))
	}
	for i := 0; i < 8; i++ {
		snap.Events = append(snap.Events, event(fmt.Sprintf("eb%d", i), "b1", fmt.Sprintf("s%d", i), "2024-05-07", "12:00:00"))
	}

	m := Compute(snap, Filter{})

	assert.Equal(t, TutorKPI{TutorID: "B", Name: "Tutor Beta", AverageAttendance: 8.0}, m.KPIs.TopTutor)
	require.Len(t, m.Charts.TutorPerformance.Labels, 2)
	assert.Equal(t, []string{"Tutor Beta", "Tutor Alfa"}, m.Charts.TutorPerformance.Labels)
	assert.Equal(t, []float64{8.0, 5.0}, m.Charts.TutorPerformance.Data)
	assert.Equal(t, 2, m.KPIs.TotalStudents)
	assert.Equal(t, 2, m.KPIs.ActiveTutors)
}

func TestComputeHeadCountConflatesTutors(t *testing.T) {
	snap := Snapshot{Users: []models.User{
		{ID: "1", Role: models.RoleTutor},
		{ID: "2", Role: models.RoleStudent},
		{ID: "3", Role: models.RoleOther},
	}}

	m := Compute(snap, Filter{})

	assert.Equal(t, 2, m.KPIs.TotalStudents)
	assert.Equal(t, 1, m.KPIs.ActiveTutors)
}

func TestComputeZeroCapacity(t *testing.T) {
	snap := Snapshot{
		Sessions: []models.Session{{ID: "s1", Subject: "Inglés"}},
		Events:   []models.AttendanceEvent{event("e1", "s1", "u1", "2024-05-06", "09:00:00")},
	}

	m := Compute(snap, Filter{})

	assert.Zero(t, m.KPIs.AttendanceRate)
	assert.Equal(t, "0.0", m.KPIs.AttendanceRateDisplay)
}

func TestComputeMostAttendedTieBreaksOnLowestID(t *testing.T) {
	snap := Snapshot{
		Sessions: []models.Session{
			{ID: "10", Subject: "Diez"},
			{ID: "9", Subject: "Nueve"},
		},
		Events: []models.AttendanceEvent{
			event("e1", "10", "u1", "2024-05-06", "09:00:00"),
			event("e2", "9", "u2", "2024-05-06", "09:00:00"),
		},
	}

	for i := 0; i < 20; i++ {
		m := Compute(snap, Filter{})
		assert.Equal(t, models.ID("9"), m.KPIs.MostAttendedSession.SessionID)
		assert.Equal(t, "Nueve", m.KPIs.MostAttendedSession.Name)
	}
}

func TestComputeUnknownSessionCountsWithoutName(t *testing.T) {
	snap := Snapshot{
		Events: []models.AttendanceEvent{
			event("e1", "ghost", "u1", "2024-05-06", "09:00:00"),
			event("e2", "ghost", "u2", "2024-05-06", "09:00:00"),
		},
	}

	m := Compute(snap, Filter{})

	assert.Equal(t, 2, m.TotalEvents)
	assert.Equal(t, SessionKPI{SessionID: "ghost", Name: NotAvailable, Count: 2}, m.KPIs.MostAttendedSession)
	assert.Equal(t, NotAvailable, m.KPIs.TopTutor.Name)
	assert.Equal(t, NotAvailable, m.KPIs.LeastDemandedSubject.Name)
	assert.Empty(t, m.Charts.SubjectAttendance.Labels)
	assert.Empty(t, m.CareerTable)
}

func TestComputeSubjectsAndLeastDemanded(t *testing.T) {
	snap := Snapshot{Sessions: []models.Session{
		{ID: "1", Subject: "Historia"},
		{ID: "2", Subject: "Arte"},
		{ID: "3", Subject: "Biología"},
		{ID: "4", Subject: "Cálculo"},
		{ID: "5", Subject: "Derecho"},
		{ID: "6", Subject: "Economía"},
	}}
	counts := map[string]int{"1": 4, "2": 1, "3": 1, "4": 3, "5": 2, "6": 2}
	n := 0
	for session, count := range counts {
		for i := 0; i < count; i++ {
			n++
			snap.Events = append(snap.Events, event(fmt.Sprint(n), session, fmt.Sprint(n), "2024-05-08", "15:00:00"))
		}
	}

	m := Compute(snap, Filter{})

	assert.Equal(t, []string{"Historia", "Cálculo", "Derecho", "Economía", "Arte"}, m.Charts.SubjectAttendance.Labels)
	assert.Equal(t, []float64{4, 3, 2, 2, 1}, m.Charts.SubjectAttendance.Data)
	assert.Equal(t, "Arte", m.KPIs.LeastDemandedSubject.Name)
	assert.Equal(t, 1, m.KPIs.LeastDemandedSubject.Count)
	assert.InDelta(t, 100.0/13.0, m.KPIs.LeastDemandedSubject.Rate, 1e-9)
}

func TestComputeFilters(t *testing.T) {
	snap := Snapshot{
		Sessions: []models.Session{
			{ID: "1", Subject: "Cálculo", ActiveStudentCount: 10},
			{ID: "2", Subject: "Física", ActiveStudentCount: 10},
		},
		Events: []models.AttendanceEvent{
			event("e1", "1", "u1", "2024-05-01", "09:00:00"),
			event("e2", "1", "u2", "2024-05-10", "09:00:00"),
			event("e3", "2", "u3", "2024-05-10", "23:30:00"),
			event("e4", "ghost", "u4", "2024-05-10", "09:00:00"),
			event("e5", "1", "u5", "not-a-date", "09:00:00"),
		},
	}

	all := Compute(snap, Filter{})
	assert.Equal(t, 5, all.TotalEvents, "undated events count when no date bound is set")
	assert.Equal(t, 1, all.UndatedEvents)
	assert.Equal(t, float64(all.TotalEvents-all.UndatedEvents), sumSeries(all.Charts.DayOfWeek))
	assert.Equal(t, 5, all.KPIs.UniqueAttendees)

	f, err := ParseFilter("2024-05-02", "2024-05-10", "")
	require.NoError(t, err)
	ranged := Compute(snap, f)
	assert.Equal(t, 3, ranged.TotalEvents, "end date includes the whole day")
	assert.Zero(t, ranged.UndatedEvents, "a date bound drops undated events")

	f, err = ParseFilter("", "2024-05-10", "")
	require.NoError(t, err)
	assert.Equal(t, 4, Compute(snap, f).TotalEvents)

	f, err = ParseFilter("", "", "Cálculo")
	require.NoError(t, err)
	bySubject := Compute(snap, f)
	assert.Equal(t, 3, bySubject.TotalEvents, "unknown sessions fail a subject filter")
	assert.Equal(t, 20, bySubject.KPIs.ActiveCapacity, "capacity ignores filters")
	assert.Equal(t, 2, bySubject.KPIs.ScheduledSessions)
	assert.InDelta(t, 15.0, bySubject.KPIs.AttendanceRate, 1e-9)
	assert.Equal(t, SessionKPI{SessionID: "1", Name: "Cálculo", Count: 3}, bySubject.KPIs.MostAttendedSession)
}

func TestComputeDoesNotMutateSnapshot(t *testing.T) {
	events := []models.AttendanceEvent{
		event("e2", "1", "u2", "2024-05-10", "09:00:00"),
		event("e1", "1", "u1", "2024-05-01", "09:00:00"),
	}
	snap := Snapshot{Sessions: []models.Session{{ID: "1", Subject: "X"}}, Events: events}
	before := append([]models.AttendanceEvent(nil), events...)

	Compute(snap, Filter{Subject: "X"})

	assert.Equal(t, before, snap.Events)
}

func TestParseFilterRejectsInvalidInput(t *testing.T) {
	_, err := ParseFilter("05/01/2024", "", "")
	assert.Error(t, err)

	_, err = ParseFilter("", "2024-13-01", "")
	assert.Error(t, err)

	_, err = ParseFilter("2024-05-10", "2024-05-01", "")
	assert.Error(t, err)

	f, err := ParseFilter(" ", "", " Cálculo ")
	require.NoError(t, err)
	assert.Equal(t, "Cálculo", f.Subject)
	assert.False(t, f.IsZero())
	assert.Equal(t, "::Cálculo", f.Key())
}

func TestHourLabels(t *testing.T) {
	m := Empty()
	assert.Equal(t, "8 am", m.Charts.PeakHour.Labels[0])
	assert.Equal(t, "12 pm", m.Charts.PeakHour.Labels[4])
	assert.Equal(t, "8 pm", m.Charts.PeakHour.Labels[12])
}
