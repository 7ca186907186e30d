package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tutoria-api/internal/dto"
	"github.com/noah-isme/tutoria-api/internal/models"
	appErrors "github.com/noah-isme/tutoria-api/pkg/errors"
)

// UnknownTutorName is printed when a session's tutor cannot be resolved.
const UnknownTutorName = "Tutor Desconocido"

type sessionStore interface {
	ListSessions(ctx context.Context, filter models.SessionFilter) ([]models.Session, error)
	ListUsersByIDs(ctx context.Context, ids []models.ID) ([]models.User, error)
}

// SessionServiceConfig tunes session behaviour.
type SessionServiceConfig struct {
	CheckInBaseURL string
}

// SessionService exposes tutor session listings and check-in links.
type SessionService struct {
	store   sessionStore
	metrics *MetricsService
	logger  *zap.Logger
	cfg     SessionServiceConfig
}

// SessionServiceParams groups constructor dependencies.
type SessionServiceParams struct {
	Store   sessionStore
	Metrics *MetricsService
	Logger  *zap.Logger
	Config  SessionServiceConfig
}

// NewSessionService constructs a SessionService.
func NewSessionService(params SessionServiceParams) *SessionService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{store: params.Store, metrics: params.Metrics, logger: logger, cfg: params.Config}
}

// ListByTutor returns a tutor's sessions split by status. A status narrows the listing to one group.
func (s *SessionService) ListByTutor(ctx context.Context, tutorID models.ID, status models.SessionStatus) (*dto.TutorSessionsResponse, error) {
	if tutorID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "tutorId is required")
	}
	if status != "" && !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be active or inactive")
	}
	sessions, err := s.list(ctx, models.SessionFilter{TutorID: tutorID, Status: status})
	if err != nil {
		return nil, err
	}

	resp := &dto.TutorSessionsResponse{TutorID: tutorID, Active: []models.Session{}, Inactive: []models.Session{}}
	for _, session := range sessions {
		switch session.Status {
		case models.SessionStatusActive:
			resp.Active = append(resp.Active, session)
		case models.SessionStatusInactive:
			resp.Inactive = append(resp.Inactive, session)
		}
	}
	return resp, nil
}

// Get returns a session with the tutor's name resolved.
func (s *SessionService) Get(ctx context.Context, sessionID models.ID) (*dto.SessionDetailResponse, error) {
	session, err := s.find(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &dto.SessionDetailResponse{Session: *session, TutorName: s.tutorName(ctx, session.TutorID)}, nil
}

// CheckInLink builds the URL students open to check in. Only active sessions accept check-ins.
func (s *SessionService) CheckInLink(ctx context.Context, sessionID models.ID) (*dto.CheckInLinkResponse, error) {
	session, err := s.find(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionStatusActive {
		return nil, appErrors.Clone(appErrors.ErrConflict, "session is not active")
	}
	link, err := checkInURL(s.cfg.CheckInBaseURL, session.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "invalid check-in base url")
	}
	return &dto.CheckInLinkResponse{SessionID: session.ID, Subject: session.Subject, URL: link}, nil
}

func (s *SessionService) find(ctx context.Context, sessionID models.ID) (*models.Session, error) {
	if sessionID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "sessionId is required")
	}
	sessions, err := s.list(ctx, models.SessionFilter{})
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		if sessions[i].ID == sessionID {
			return &sessions[i], nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
}

func (s *SessionService) list(ctx context.Context, filter models.SessionFilter) ([]models.Session, error) {
	start := time.Now()
	sessions, err := s.store.ListSessions(ctx, filter)
	s.metrics.ObserveStoreCall("list_sessions", err, time.Since(start))
	if err != nil {
		return nil, asFetchError(err)
	}
	return sessions, nil
}

// tutorName resolves a display name; lookup failures fall back to a placeholder.
func (s *SessionService) tutorName(ctx context.Context, tutorID models.ID) string {
	if tutorID == "" {
		return UnknownTutorName
	}
	start := time.Now()
	users, err := s.store.ListUsersByIDs(ctx, []models.ID{tutorID})
	s.metrics.ObserveStoreCall("list_users_by_ids", err, time.Since(start))
	if err != nil {
		s.logger.Warn("tutor lookup failed", zap.String("tutor_id", tutorID.String()), zap.Error(err))
		return UnknownTutorName
	}
	for _, u := range users {
		if u.ID == tutorID && u.FullName != "" {
			return u.FullName
		}
	}
	return UnknownTutorName
}

func checkInURL(base string, sessionID models.ID) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("check-in base url %q must be absolute", base)
	}
	q := u.Query()
	q.Set("session", sessionID.String())
	u.RawQuery = q.Encode()
	return u.String(), nil
}
