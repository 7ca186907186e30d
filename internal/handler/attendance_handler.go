package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutoria-api/internal/models"
	"github.com/noah-isme/tutoria-api/internal/service"
	appErrors "github.com/noah-isme/tutoria-api/pkg/errors"
	"github.com/noah-isme/tutoria-api/pkg/response"
)

type attendanceService interface {
	CheckIn(ctx context.Context, req service.CheckInRequest) (*service.CheckInResult, error)
	Roster(ctx context.Context, query service.RosterQuery) ([]models.RosterEntry, *models.Pagination, error)
}

type rosterExporter interface {
	SessionRoster(ctx context.Context, sessionID models.ID, format service.ExportFormat) (*service.ExportFile, error)
}

// AttendanceHandler serves check-ins and session rosters.
type AttendanceHandler struct {
	attendance attendanceService
	exports    rosterExporter
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(attendance attendanceService, exports rosterExporter) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, exports: exports}
}

// CheckIn godoc
// @Summary Record a self check-in for today
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.CheckInRequest true "Check-in payload"
// @Success 201 {object} response.Envelope
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /attendance/checkin [post]
func (h *AttendanceHandler) CheckIn(c *gin.Context) {
	if h.attendance == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var req service.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid payload"))
		return
	}
	result, err := h.attendance.CheckIn(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Outcome == models.OutcomeRecorded {
		response.Created(c, result)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Roster godoc
// @Summary List attendees of a session
// @Tags Attendance
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param page query int false "Page" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Success 200 {object} response.Envelope
// @Router /sessions/{sessionId}/attendance [get]
func (h *AttendanceHandler) Roster(c *gin.Context) {
	if h.attendance == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}
	query := service.RosterQuery{SessionID: sessionID}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		query.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("pageSize", "20")); err == nil {
		query.PageSize = size
	}
	entries, pagination, err := h.attendance.Roster(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// ExportRoster godoc
// @Summary Download a session attendance list
// @Tags Attendance
// @Produce application/pdf
// @Produce text/csv
// @Param sessionId path string true "Session ID"
// @Param format query string false "csv or pdf" default(pdf)
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /sessions/{sessionId}/attendance/export [get]
func (h *AttendanceHandler) ExportRoster(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}
	format, err := service.ParseExportFormat(c.Query("format"), service.ExportFormatPDF)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exports.SessionRoster(c.Request.Context(), sessionID, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}

func sessionIDParam(c *gin.Context) (models.ID, bool) {
	id := strings.TrimSpace(c.Param("sessionId"))
	if id == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "sessionId is required"))
		return "", false
	}
	return models.ID(id), true
}
