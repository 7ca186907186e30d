package service

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutoria-api/internal/aggregate"
	"github.com/noah-isme/tutoria-api/internal/models"
	appErrors "github.com/noah-isme/tutoria-api/pkg/errors"
	"github.com/noah-isme/tutoria-api/pkg/jobs"
	"github.com/noah-isme/tutoria-api/pkg/logger"
)

// JobTypeInvalidateDashboards drops cached dashboards after attendance changes.
const JobTypeInvalidateDashboards = "dashboard.invalidate"

type attendanceStore interface {
	ListAttendance(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceEvent, error)
	CreateAttendance(ctx context.Context, event *models.AttendanceEvent) error
	ListUsersByIDs(ctx context.Context, ids []models.ID) ([]models.User, error)
}

type staleMarker interface {
	MarkStale()
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// AttendanceServiceConfig tunes attendance behaviour.
type AttendanceServiceConfig struct {
	Location        *time.Location
	DefaultPageSize int
	MaxPageSize     int
}

// AttendanceService records check-ins and serves session rosters.
type AttendanceService struct {
	store     attendanceStore
	jobs      jobEnqueuer
	cache     staleMarker
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	cfg       AttendanceServiceConfig
}

// AttendanceServiceParams groups constructor dependencies.
type AttendanceServiceParams struct {
	Store   attendanceStore
	Jobs    jobEnqueuer
	Cache   staleMarker
	Metrics *MetricsService
	Logger  *zap.Logger
	Config  AttendanceServiceConfig
}

// CheckInRequest is the payload of a self check-in. Role is optional; when empty the user is
// looked up in the store.
type CheckInRequest struct {
	SessionID models.ID `json:"sessionId" validate:"required,opaque_id"`
	UserID    models.ID `json:"userId" validate:"required,opaque_id"`
	Role      string    `json:"role,omitempty" validate:"omitempty,max=32"`
}

// CheckInResult describes the outcome of a check-in.
type CheckInResult struct {
	Outcome   models.RecordOutcome `json:"outcome"`
	SessionID models.ID            `json:"sessionId"`
	UserID    models.ID            `json:"userId"`
	Date      string               `json:"date"`
}

// NewAttendanceService constructs an AttendanceService with sane defaults.
func NewAttendanceService(params AttendanceServiceParams) *AttendanceService {
	cfg := params.Config
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 20
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 100
	}
	log := params.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &AttendanceService{
		store:     params.Store,
		jobs:      params.Jobs,
		cache:     params.Cache,
		metrics:   params.Metrics,
		validator: newCheckInValidator(),
		logger:    log,
		now:       time.Now,
		cfg:       cfg,
	}
}

func newCheckInValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.Split(f.Tag.Get("json"), ",")[0]
	})
	if err := v.RegisterValidation("opaque_id", func(fl validator.FieldLevel) bool {
		return validOpaqueID(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// validOpaqueID accepts identifiers that are safe to echo in query strings and file names.
func validOpaqueID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	return strings.IndexFunc(id, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r) || r == '/' || r == '?' || r == '#'
	}) < 0
}

// Record stores at most one attendance event per session, user and day. A failing duplicate check
// does not block the write; a failing write is reported as ErrWriteFailed.
func (s *AttendanceService) Record(ctx context.Context, sessionID, userID models.ID) (models.RecordOutcome, error) {
	outcome, _, err := s.record(ctx, sessionID, userID)
	return outcome, err
}

// record is Record that also returns the attendance day it used.
func (s *AttendanceService) record(ctx context.Context, sessionID, userID models.ID) (models.RecordOutcome, string, error) {
	now := s.now().In(s.cfg.Location)
	today := now.Format(models.DateLayout)

	start := time.Now()
	existing, err := s.store.ListAttendance(ctx, models.AttendanceFilter{SessionID: sessionID, UserID: userID, Date: today})
	s.metrics.ObserveStoreCall("list_attendance", err, time.Since(start))
	switch {
	case err != nil:
		logger.For(ctx, s.logger).Warn("duplicate check failed, recording anyway",
			zap.String("session_id", sessionID.String()),
			zap.String("user_id", userID.String()),
			zap.Error(err))
	case len(existing) > 0:
		s.metrics.RecordCheckIn(models.OutcomeAlreadyRecordedToday, nil)
		return models.OutcomeAlreadyRecordedToday, today, nil
	}

	event := &models.AttendanceEvent{
		SessionID: sessionID,
		UserID:    userID,
		Date:      today,
		Time:      now.Format(models.TimeLayout),
	}
	start = time.Now()
	err = s.store.CreateAttendance(ctx, event)
	s.metrics.ObserveStoreCall("create_attendance", err, time.Since(start))
	if err != nil {
		if errors.Is(err, appErrors.ErrAlreadyRecorded) {
			s.metrics.RecordCheckIn(models.OutcomeAlreadyRecordedToday, nil)
			return models.OutcomeAlreadyRecordedToday, today, nil
		}
		s.metrics.RecordCheckIn("", err)
		logger.For(ctx, s.logger).Error("record attendance failed",
			zap.String("session_id", sessionID.String()),
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return "", today, appErrors.Wrap(err, appErrors.ErrWriteFailed.Code, appErrors.ErrWriteFailed.Status, appErrors.ErrWriteFailed.Message)
	}

	s.metrics.RecordCheckIn(models.OutcomeRecorded, nil)
	if s.cache != nil {
		s.cache.MarkStale()
	}
	s.scheduleInvalidation(event)
	return models.OutcomeRecorded, today, nil
}

// CheckIn validates the caller's role when it is known and records the attendance.
func (s *AttendanceService) CheckIn(ctx context.Context, req CheckInRequest) (*CheckInResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "sessionId and userId must be valid identifiers")
	}
	role, known := s.resolveRole(ctx, req)
	if known && !role.CanCheckIn() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role not allowed to record attendance")
	}

	outcome, day, err := s.record(ctx, req.SessionID, req.UserID)
	if err != nil {
		return nil, err
	}
	return &CheckInResult{
		Outcome:   outcome,
		SessionID: req.SessionID,
		UserID:    req.UserID,
		Date:      day,
	}, nil
}

func (s *AttendanceService) resolveRole(ctx context.Context, req CheckInRequest) (models.UserRole, bool) {
	if req.Role != "" {
		return models.ParseUserRole(req.Role), true
	}
	start := time.Now()
	users, err := s.store.ListUsersByIDs(ctx, []models.ID{req.UserID})
	s.metrics.ObserveStoreCall("list_users_by_ids", err, time.Since(start))
	if err != nil {
		logger.For(ctx, s.logger).Warn("role lookup failed", zap.String("user_id", req.UserID.String()), zap.Error(err))
		return "", false
	}
	for _, u := range users {
		if u.ID == req.UserID {
			return u.Role, true
		}
	}
	return "", false
}

func (s *AttendanceService) scheduleInvalidation(event *models.AttendanceEvent) {
	if s.jobs == nil {
		return
	}
	job := jobs.Job{
		ID:      event.ID.String(),
		Key:     JobTypeInvalidateDashboards,
		Type:    JobTypeInvalidateDashboards,
		Payload: event.SessionID,
	}
	if err := s.jobs.Enqueue(job); err != nil {
		s.logger.Warn("schedule dashboard invalidation failed", zap.Error(err))
	}
}

// RosterQuery selects a page of a session roster.
type RosterQuery struct {
	SessionID models.ID
	Page      int
	PageSize  int
}

// Roster returns one page of attendees of a session ordered by date and time.
func (s *AttendanceService) Roster(ctx context.Context, query RosterQuery) ([]models.RosterEntry, *models.Pagination, error) {
	entries, err := s.FullRoster(ctx, query.SessionID)
	if err != nil {
		return nil, nil, err
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	size := query.PageSize
	if size <= 0 {
		size = s.cfg.DefaultPageSize
	}
	if size > s.cfg.MaxPageSize {
		size = s.cfg.MaxPageSize
	}

	from := len(entries)
	if page-1 <= len(entries)/size {
		from = (page - 1) * size
	}
	to := from + size
	if to > len(entries) {
		to = len(entries)
	}
	return entries[from:to], &models.Pagination{Page: page, PageSize: size, TotalCount: len(entries)}, nil
}

// FullRoster returns every attendee of a session joined with user data.
func (s *AttendanceService) FullRoster(ctx context.Context, sessionID models.ID) ([]models.RosterEntry, error) {
	if sessionID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "sessionId is required")
	}
	start := time.Now()
	events, err := s.store.ListAttendance(ctx, models.AttendanceFilter{SessionID: sessionID})
	s.metrics.ObserveStoreCall("list_attendance", err, time.Since(start))
	if err != nil {
		return nil, asFetchError(err)
	}

	users := []models.User{}
	if ids := aggregate.RosterUserIDs(events); len(ids) > 0 {
		start = time.Now()
		users, err = s.store.ListUsersByIDs(ctx, ids)
		s.metrics.ObserveStoreCall("list_users_by_ids", err, time.Since(start))
		if err != nil {
			return nil, asFetchError(err)
		}
	}
	return aggregate.Roster(events, users), nil
}

// asFetchError keeps typed errors and classifies anything else as a store fetch failure.
func asFetchError(err error) error {
	var typed *appErrors.Error
	if errors.As(err, &typed) {
		return err
	}
	return appErrors.Wrap(err, appErrors.ErrFetch.Code, appErrors.ErrFetch.Status, appErrors.ErrFetch.Message)
}
