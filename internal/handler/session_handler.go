package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutoria-api/internal/dto"
	"github.com/noah-isme/tutoria-api/internal/models"
	appErrors "github.com/noah-isme/tutoria-api/pkg/errors"
	"github.com/noah-isme/tutoria-api/pkg/response"
)

type sessionService interface {
	ListByTutor(ctx context.Context, tutorID models.ID, status models.SessionStatus) (*dto.TutorSessionsResponse, error)
	Get(ctx context.Context, sessionID models.ID) (*dto.SessionDetailResponse, error)
	CheckInLink(ctx context.Context, sessionID models.ID) (*dto.CheckInLinkResponse, error)
}

// SessionHandler exposes tutoring session endpoints.
type SessionHandler struct {
	sessions sessionService
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(sessions sessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// ListByTutor godoc
// @Summary List a tutor's sessions split by status
// @Tags Sessions
// @Produce json
// @Param tutorId path string true "Tutor ID"
// @Param status query string false "active or inactive"
// @Success 200 {object} response.Envelope
// @Router /tutors/{tutorId}/sessions [get]
func (h *SessionHandler) ListByTutor(c *gin.Context) {
	tutorID := strings.TrimSpace(c.Param("tutorId"))
	if tutorID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "tutorId is required"))
		return
	}
	status := models.SessionStatus(strings.ToLower(strings.TrimSpace(c.Query("status"))))
	result, err := h.sessions.ListByTutor(c.Request.Context(), models.ID(tutorID), status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Get godoc
// @Summary Session detail
// @Tags Sessions
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{sessionId} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}
	detail, err := h.sessions.Get(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// CheckInLink godoc
// @Summary Check-in URL for a session QR code
// @Tags Sessions
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{sessionId}/checkin-link [get]
func (h *SessionHandler) CheckInLink(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}
	link, err := h.sessions.CheckInLink(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}
