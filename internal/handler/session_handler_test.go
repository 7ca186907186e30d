package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutoria-api/internal/dto"
	"github.com/noah-isme/tutoria-api/internal/models"
	"github.com/noah-isme/tutoria-api/internal/service"
	appErrors "github.com/noah-isme/tutoria-api/pkg/errors"
)

type fakeSessionSrv struct {
	lastTutor  models.ID
	lastStatus models.SessionStatus
	detail     *dto.SessionDetailResponse
	link       *dto.CheckInLinkResponse
	err        error
}

func (f *fakeSessionSrv) ListByTutor(_ context.Context, tutorID models.ID, status models.SessionStatus) (*dto.TutorSessionsResponse, error) {
	f.lastTutor = tutorID
	f.lastStatus = status
	if f.err != nil {
		return nil, f.err
	}
	return &dto.TutorSessionsResponse{TutorID: tutorID, Active: []models.Session{}, Inactive: []models.Session{}}, nil
}

func (f *fakeSessionSrv) Get(context.Context, models.ID) (*dto.SessionDetailResponse, error) {
	return f.detail, f.err
}

func (f *fakeSessionSrv) CheckInLink(context.Context, models.ID) (*dto.CheckInLinkResponse, error) {
	return f.link, f.err
}

func TestSessionHandlerListByTutorNormalisesStatus(t *testing.T) {
	srv := &fakeSessionSrv{}
	handler := NewSessionHandler(srv)

	c, rec := newTestContext(http.MethodGet, "/tutors/t1/sessions?status=%20Active", gin.Param{Key: "tutorId", Value: "t1"})
	handler.ListByTutor(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ID("t1"), srv.lastTutor)
	assert.Equal(t, models.SessionStatusActive, srv.lastStatus)
}

func TestSessionHandlerListByTutorInvalidStatus(t *testing.T) {
	handler := NewSessionHandler(&fakeSessionSrv{err: appErrors.Clone(appErrors.ErrValidation, "invalid status")})

	c, rec := newTestContext(http.MethodGet, "/tutors/t1/sessions?status=paused", gin.Param{Key: "tutorId", Value: "t1"})
	handler.ListByTutor(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionHandlerGet(t *testing.T) {
	handler := NewSessionHandler(&fakeSessionSrv{detail: &dto.SessionDetailResponse{
		Session:   models.Session{ID: "s1", Subject: "Cálculo"},
		TutorName: "Marta Ruiz",
	}})

	c, rec := newTestContext(http.MethodGet, "/sessions/s1", gin.Param{Key: "sessionId", Value: "s1"})
	handler.Get(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &data))
	assert.Equal(t, "Cálculo", data["subject"])
	assert.Equal(t, "Marta Ruiz", data["tutorName"])
}

func TestSessionHandlerGetMissing(t *testing.T) {
	handler := NewSessionHandler(&fakeSessionSrv{err: appErrors.ErrNotFound})

	c, rec := newTestContext(http.MethodGet, "/sessions/nope", gin.Param{Key: "sessionId", Value: "nope"})
	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionHandlerCheckInLink(t *testing.T) {
	handler := NewSessionHandler(&fakeSessionSrv{link: &dto.CheckInLinkResponse{
		SessionID: "s1",
		URL:       "https://tutorias.example.com/checkin?session=s1",
	}})

	c, rec := newTestContext(http.MethodGet, "/sessions/s1/checkin-link", gin.Param{Key: "sessionId", Value: "s1"})
	handler.CheckInLink(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var data dto.CheckInLinkResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &data))
	assert.Equal(t, "https://tutorias.example.com/checkin?session=s1", data.URL)

	handler = NewSessionHandler(&fakeSessionSrv{err: appErrors.Clone(appErrors.ErrConflict, "session is inactive")})
	c, rec = newTestContext(http.MethodGet, "/sessions/s2/checkin-link", gin.Param{Key: "sessionId", Value: "s2"})
	handler.CheckInLink(c)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestMetricsHandlerReady(t *testing.T) {
	handler := NewMetricsHandler(nil, map[string]ReadinessCheck{
		"store": func(context.Context) error { return nil },
	})
	c, rec := newTestContext(http.MethodGet, "/ready")
	handler.Ready(c)
	assert.Equal(t, http.StatusOK, rec.Code)

	handler = NewMetricsHandler(nil, map[string]ReadinessCheck{
		"store": func(context.Context) error { return nil },
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})
	c, rec = newTestContext(http.MethodGet, "/ready")
	handler.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestMetricsHandlerSummary(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordCheckIn(models.OutcomeRecorded, nil)
	metrics.RecordCacheOperation(true, 0)
	handler := NewMetricsHandler(metrics, nil)

	c, rec := newTestContext(http.MethodGet, "/metrics/summary")
	handler.Summary(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var data models.SystemMetrics
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &data))
	assert.Equal(t, uint64(1), data.CheckIns[string(models.OutcomeRecorded)])
	assert.Equal(t, uint64(1), data.CacheHits)

	c, rec = newTestContext(http.MethodGet, "/metrics/summary")
	NewMetricsHandler(nil, nil).Summary(c)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
