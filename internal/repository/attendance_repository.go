package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutoria-api/internal/models"
	appErrors "github.com/noah-isme/tutoria-api/pkg/errors"
)

const attendanceColumns = `id, session_id, user_id, to_char(attended_on, 'YYYY-MM-DD') AS date, to_char(attended_at, 'HH24:MI:SS') AS time`

// AttendanceRepository stores attendance events. The table carries a unique key on
// (session_id, user_id, attended_on).
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository creates a new instance of AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// List returns attendance events matching the filter ordered by date and time.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceEvent, error) {
	var conditions []string
	var args []interface{}

	if filter.SessionID != "" {
		conditions = append(conditions, fmt.Sprintf("session_id = $%d", len(args)+1))
		args = append(args, filter.SessionID)
	}
	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.Date != "" {
		conditions = append(conditions, fmt.Sprintf("attended_on = $%d", len(args)+1))
		args = append(args, filter.Date)
	}

	query := fmt.Sprintf("SELECT %s FROM attendance_events", attendanceColumns)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY attended_on, attended_at"

	var events []models.AttendanceEvent
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance events: %w", err)
	}
	return events, nil
}

// Create inserts the event unless one already exists for the same session, user and day, in which
// case ErrAlreadyRecorded is returned and nothing is written.
func (r *AttendanceRepository) Create(ctx context.Context, event *models.AttendanceEvent) error {
	if event.ID == "" {
		event.ID = models.ID(uuid.NewString())
	}
	const query = `INSERT INTO attendance_events (id, session_id, user_id, attended_on, attended_at) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (session_id, user_id, attended_on) DO NOTHING RETURNING id`

	var id models.ID
	err := r.db.GetContext(ctx, &id, query, event.ID, event.SessionID, event.UserID, event.Date, event.Time)
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.ErrAlreadyRecorded
	}
	if err != nil {
		return fmt.Errorf("create attendance event: %w", err)
	}
	event.ID = id
	return nil
}
