package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutoria-api/internal/models"
	"github.com/noah-isme/tutoria-api/internal/service"
	appErrors "github.com/noah-isme/tutoria-api/pkg/errors"
)

type fakeAttendanceSrv struct {
	outcome    models.RecordOutcome
	checkInErr error
	lastReq    service.CheckInRequest
	entries    []models.RosterEntry
	lastQuery  service.RosterQuery
}

func (f *fakeAttendanceSrv) CheckIn(_ context.Context, req service.CheckInRequest) (*service.CheckInResult, error) {
	f.lastReq = req
	if f.checkInErr != nil {
		return nil, f.checkInErr
	}
	return &service.CheckInResult{Outcome: f.outcome, SessionID: req.SessionID, UserID: req.UserID, Date: "2024-05-06"}, nil
}

func (f *fakeAttendanceSrv) Roster(_ context.Context, query service.RosterQuery) ([]models.RosterEntry, *models.Pagination, error) {
	f.lastQuery = query
	return f.entries, &models.Pagination{Page: query.Page, PageSize: query.PageSize, TotalCount: len(f.entries)}, nil
}

type fakeRosterExporter struct {
	lastFormat service.ExportFormat
	lastID     models.ID
}

func (f *fakeRosterExporter) SessionRoster(_ context.Context, sessionID models.ID, format service.ExportFormat) (*service.ExportFile, error) {
	f.lastID = sessionID
	f.lastFormat = format
	return &service.ExportFile{Filename: "Cálculo_Asistencia.pdf", ContentType: format.ContentType(), Payload: []byte("%PDF")}, nil
}

func newCheckInContext(body string) (*gin.Context, *httptest.ResponseRecorder) {
	c, rec := newTestContext(http.MethodPost, "/attendance/checkin")
	c.Request = httptest.NewRequest(http.MethodPost, "/attendance/checkin", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, rec
}

func TestAttendanceHandlerCheckInCreated(t *testing.T) {
	srv := &fakeAttendanceSrv{outcome: models.OutcomeRecorded}
	handler := NewAttendanceHandler(srv, nil)

	c, rec := newCheckInContext(`{"sessionId": 42, "userId": "u1"}`)
	handler.CheckIn(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, models.ID("42"), srv.lastReq.SessionID)
	assert.Equal(t, models.ID("u1"), srv.lastReq.UserID)

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &data))
	assert.Equal(t, string(models.OutcomeRecorded), data["outcome"])
}

func TestAttendanceHandlerCheckInAlreadyRecorded(t *testing.T) {
	handler := NewAttendanceHandler(&fakeAttendanceSrv{outcome: models.OutcomeAlreadyRecordedToday}, nil)

	c, rec := newCheckInContext(`{"sessionId": "s1", "userId": "u1"}`)
	handler.CheckIn(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &data))
	assert.Equal(t, string(models.OutcomeAlreadyRecordedToday), data["outcome"])
}

func TestAttendanceHandlerCheckInErrors(t *testing.T) {
	handler := NewAttendanceHandler(&fakeAttendanceSrv{}, nil)
	c, rec := newCheckInContext(`{"sessionId":`)
	handler.CheckIn(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	handler = NewAttendanceHandler(&fakeAttendanceSrv{checkInErr: appErrors.ErrWriteFailed}, nil)
	c, rec = newCheckInContext(`{"sessionId": "s1", "userId": "u1"}`)
	handler.CheckIn(c)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, appErrors.ErrWriteFailed.Code, decodeEnvelope(t, rec).Error.Code)

	handler = NewAttendanceHandler(&fakeAttendanceSrv{checkInErr: appErrors.ErrForbidden}, nil)
	c, rec = newCheckInContext(`{"sessionId": "s1", "userId": "u1", "role": "admin"}`)
	handler.CheckIn(c)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAttendanceHandlerRosterPagination(t *testing.T) {
	srv := &fakeAttendanceSrv{entries: []models.RosterEntry{{Date: "2024-05-06", Time: "10:00:00", FullName: "Ana"}}}
	handler := NewAttendanceHandler(srv, nil)

	c, rec := newTestContext(http.MethodGet, "/sessions/s1/attendance?page=2&pageSize=5", gin.Param{Key: "sessionId", Value: "s1"})
	handler.Roster(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.RosterQuery{SessionID: "s1", Page: 2, PageSize: 5}, srv.lastQuery)
	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 1, envelope.Pagination.TotalCount)
}

func TestAttendanceHandlerRosterDefaults(t *testing.T) {
	srv := &fakeAttendanceSrv{}
	handler := NewAttendanceHandler(srv, nil)

	c, rec := newTestContext(http.MethodGet, "/sessions/s1/attendance?page=abc", gin.Param{Key: "sessionId", Value: "s1"})
	handler.Roster(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, srv.lastQuery.Page)
	assert.Equal(t, 20, srv.lastQuery.PageSize)
}

func TestAttendanceHandlerExportRosterDefaultsToPDF(t *testing.T) {
	exporter := &fakeRosterExporter{}
	handler := NewAttendanceHandler(nil, exporter)

	c, rec := newTestContext(http.MethodGet, "/sessions/s1/attendance/export", gin.Param{Key: "sessionId", Value: "s1"})
	handler.ExportRoster(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.ExportFormatPDF, exporter.lastFormat)
	assert.Equal(t, models.ID("s1"), exporter.lastID)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "_Asistencia.pdf")
}
