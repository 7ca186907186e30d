package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutoria-api/internal/models"
)

// PostgresStore exposes the user, session and attendance tables as one collection store.
type PostgresStore struct {
	users      *UserRepository
	sessions   *SessionRepository
	attendance *AttendanceRepository
}

// NewPostgresStore wires the table repositories around a shared connection pool.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{
		users:      NewUserRepository(db),
		sessions:   NewSessionRepository(db),
		attendance: NewAttendanceRepository(db),
	}
}

// ListUsers returns every user.
func (s *PostgresStore) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.users.List(ctx)
}

// ListUsersByIDs returns the users with the given identifiers.
func (s *PostgresStore) ListUsersByIDs(ctx context.Context, ids []models.ID) ([]models.User, error) {
	return s.users.ListByIDs(ctx, ids)
}

// ListSessions returns sessions matching the filter.
func (s *PostgresStore) ListSessions(ctx context.Context, filter models.SessionFilter) ([]models.Session, error) {
	return s.sessions.List(ctx, filter)
}

// ListAttendance returns attendance events matching the filter.
func (s *PostgresStore) ListAttendance(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceEvent, error) {
	return s.attendance.List(ctx, filter)
}

// CreateAttendance inserts an attendance event.
func (s *PostgresStore) CreateAttendance(ctx context.Context, event *models.AttendanceEvent) error {
	return s.attendance.Create(ctx, event)
}
