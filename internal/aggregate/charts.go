package aggregate

import (
	"strconv"
	"time"

	"github.com/noah-isme/tutoria-api/internal/models"
)

const (
	firstHour = 8
	lastHour  = 20
)

var weekdayLabels = []string{"Lun", "Mar", "Mié", "Jue", "Vie", "Sáb", "Dom"}

// Series is one chart: labels and values share the same index.
type Series struct {
	Labels []string  `json:"labels"`
	Data   []float64 `json:"data"`
}

// Charts holds every chart-ready series of the dashboard.
type Charts struct {
	SubjectAttendance Series `json:"subjectAttendance"`
	DayOfWeek         Series `json:"dayOfWeek"`
	PeakHour          Series `json:"peakHour"`
	TutorPerformance  Series `json:"tutorPerformance"`
}

func newSeries(capacity int) Series {
	return Series{Labels: make([]string, 0, capacity), Data: make([]float64, 0, capacity)}
}

func buildCharts(events []models.AttendanceEvent, subjects []subjectCount, tutors []tutorStat) Charts {
	subjectSeries := newSeries(topSubjects)
	for i, s := range subjects {
		if i == topSubjects {
			break
		}
		subjectSeries.Labels = append(subjectSeries.Labels, s.name)
		subjectSeries.Data = append(subjectSeries.Data, float64(s.count))
	}

	tutorSeries := newSeries(topTutors)
	for i, t := range tutors {
		if i == topTutors {
			break
		}
		tutorSeries.Labels = append(tutorSeries.Labels, t.name)
		tutorSeries.Data = append(tutorSeries.Data, t.average)
	}

	return Charts{
		SubjectAttendance: subjectSeries,
		DayOfWeek:         weekdaySeries(events),
		PeakHour:          hourSeries(events),
		TutorPerformance:  tutorSeries,
	}
}

// weekdaySeries buckets events by weekday, Monday first.
func weekdaySeries(events []models.AttendanceEvent) Series {
	s := Series{Labels: append([]string(nil), weekdayLabels...), Data: make([]float64, len(weekdayLabels))}
	for _, e := range events {
		day, ok := e.Day()
		if !ok {
			continue
		}
		s.Data[mondayIndex(day.Weekday())]++
	}
	return s
}

func mondayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// hourSeries buckets events into the 8 am to 8 pm window by the hour they were recorded.
func hourSeries(events []models.AttendanceEvent) Series {
	buckets := lastHour - firstHour + 1
	s := Series{Labels: make([]string, 0, buckets), Data: make([]float64, buckets)}
	for h := firstHour; h <= lastHour; h++ {
		s.Labels = append(s.Labels, hourLabel(h))
	}
	for _, e := range events {
		h, ok := e.Hour()
		if !ok || h < firstHour || h > lastHour {
			continue
		}
		s.Data[h-firstHour]++
	}
	return s
}

func hourLabel(h int) string {
	display := h % 12
	if display == 0 {
		display = 12
	}
	suffix := "am"
	if h >= 12 {
		suffix = "pm"
	}
	return strconv.Itoa(display) + " " + suffix
}
