package service

import (
	"context"
	"sync"

	"github.com/noah-isme/tutoria-api/internal/models"
	appErrors "github.com/noah-isme/tutoria-api/pkg/errors"
	"github.com/noah-isme/tutoria-api/pkg/jobs"
)

type fakeStore struct {
	mu       sync.Mutex
	users    []models.User
	sessions []models.Session
	events   []models.AttendanceEvent

	usersErr          error
	sessionsErr       error
	listAttendanceErr error
	createErr         error
	uniqueDaily       bool

	userLookups [][]models.ID
}

func (f *fakeStore) ListUsers(context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.usersErr != nil {
		return nil, f.usersErr
	}
	return append([]models.User(nil), f.users...), nil
}

func (f *fakeStore) ListUsersByIDs(_ context.Context, ids []models.ID) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userLookups = append(f.userLookups, ids)
	if f.usersErr != nil {
		return nil, f.usersErr
	}
	wanted := make(map[models.ID]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	var out []models.User
	for _, u := range f.users {
		if _, ok := wanted[u.ID]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeStore) ListSessions(_ context.Context, filter models.SessionFilter) ([]models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sessionsErr != nil {
		return nil, f.sessionsErr
	}
	var out []models.Session
	for _, s := range f.sessions {
		if filter.Match(s) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) ListAttendance(_ context.Context, filter models.AttendanceFilter) ([]models.AttendanceEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listAttendanceErr != nil {
		return nil, f.listAttendanceErr
	}
	var out []models.AttendanceEvent
	for _, e := range f.events {
		if filter.Match(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateAttendance(_ context.Context, event *models.AttendanceEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if f.uniqueDaily {
		for _, e := range f.events {
			if e.SessionID == event.SessionID && e.UserID == event.UserID && e.Date == event.Date {
				return appErrors.ErrAlreadyRecorded
			}
		}
	}
	if event.ID == "" {
		event.ID = models.ID("evt-" + string(rune('a'+len(f.events))))
	}
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeStore) eventCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []jobs.Job
	err  error
}

func (q *fakeQueue) Enqueue(job jobs.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func jobsJob(jobType string) jobs.Job {
	return jobs.Job{ID: "job", Type: jobType}
}
