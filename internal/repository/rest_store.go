package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/noah-isme/tutoria-api/internal/models"
	"github.com/noah-isme/tutoria-api/pkg/config"
	appErrors "github.com/noah-isme/tutoria-api/pkg/errors"
)

const maxErrorBody = 1 << 16

// RESTStore reads and writes the collections through a JSON REST backend exposing
// /users, /sessions and /attendanceEvents style resources.
type RESTStore struct {
	baseURL        string
	usersPath      string
	sessionsPath   string
	attendancePath string
	httpClient     *http.Client
}

// NewRESTStore constructs a REST-backed store. A nil client gets one with the configured timeout.
func NewRESTStore(cfg config.StoreConfig, client *http.Client) *RESTStore {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &RESTStore{
		baseURL:        cfg.BaseURL,
		usersPath:      cfg.UsersPath,
		sessionsPath:   cfg.SessionsPath,
		attendancePath: cfg.AttendancePath,
		httpClient:     client,
	}
}

// ListUsers fetches every user.
func (s *RESTStore) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.get(ctx, s.usersPath, nil, &users); err != nil {
		return nil, fetchError("list users", err)
	}
	return users, nil
}

// ListUsersByIDs fetches the requested users with a single request using repeated id parameters.
func (s *RESTStore) ListUsersByIDs(ctx context.Context, ids []models.ID) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	params := url.Values{}
	wanted := make(map[models.ID]struct{}, len(ids))
	for _, id := range ids {
		params.Add("id", id.String())
		wanted[id] = struct{}{}
	}
	var users []models.User
	if err := s.get(ctx, s.usersPath, params, &users); err != nil {
		return nil, fetchError("list users by ids", err)
	}
	out := make([]models.User, 0, len(ids))
	for _, u := range users {
		if _, ok := wanted[u.ID]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// ListSessions fetches sessions. Query parameters narrow the request; results are re-filtered
// locally for backends that ignore them.
func (s *RESTStore) ListSessions(ctx context.Context, filter models.SessionFilter) ([]models.Session, error) {
	params := url.Values{}
	if filter.TutorID != "" {
		params.Set("tutorId", filter.TutorID.String())
	}
	if filter.Status != "" {
		params.Set("status", string(filter.Status))
	}
	var sessions []models.Session
	if err := s.get(ctx, s.sessionsPath, params, &sessions); err != nil {
		return nil, fetchError("list sessions", err)
	}
	out := sessions[:0]
	for _, session := range sessions {
		if filter.Match(session) {
			out = append(out, session)
		}
	}
	return out, nil
}

// ListAttendance fetches attendance events matching the filter.
func (s *RESTStore) ListAttendance(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceEvent, error) {
	params := url.Values{}
	if filter.SessionID != "" {
		params.Set("sessionId", filter.SessionID.String())
	}
	if filter.UserID != "" {
		params.Set("userId", filter.UserID.String())
	}
	if filter.Date != "" {
		params.Set("date", filter.Date)
	}
	var events []models.AttendanceEvent
	if err := s.get(ctx, s.attendancePath, params, &events); err != nil {
		return nil, fetchError("list attendance events", err)
	}
	out := events[:0]
	for _, e := range events {
		if filter.Match(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

// CreateAttendance posts a new attendance event. The backend assigns the identifier.
func (s *RESTStore) CreateAttendance(ctx context.Context, event *models.AttendanceEvent) error {
	payload := struct {
		Date      string    `json:"date"`
		Time      string    `json:"time"`
		UserID    models.ID `json:"userId"`
		SessionID models.ID `json:"sessionId"`
	}{Date: event.Date, Time: event.Time, UserID: event.UserID, SessionID: event.SessionID}

	var created models.AttendanceEvent
	if err := s.do(ctx, http.MethodPost, s.attendancePath, nil, payload, &created); err != nil {
		return appErrors.Wrap(err, appErrors.ErrWriteFailed.Code, appErrors.ErrWriteFailed.Status, appErrors.ErrWriteFailed.Message)
	}
	if created.ID != "" {
		event.ID = created.ID
	}
	return nil
}

func (s *RESTStore) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	return s.do(ctx, http.MethodGet, path, params, nil, out)
}

func (s *RESTStore) do(ctx context.Context, method, path string, params url.Values, body, out interface{}) error {
	endpoint := s.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%s %s: unexpected status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func fetchError(op string, err error) error {
	return appErrors.Wrap(fmt.Errorf("%s: %w", op, err), appErrors.ErrFetch.Code, appErrors.ErrFetch.Status, appErrors.ErrFetch.Message)
}
