package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutoria-api/internal/aggregate"
	"github.com/noah-isme/tutoria-api/internal/dto"
	"github.com/noah-isme/tutoria-api/internal/middleware"
	"github.com/noah-isme/tutoria-api/internal/models"
	"github.com/noah-isme/tutoria-api/internal/service"
	appErrors "github.com/noah-isme/tutoria-api/pkg/errors"
	"github.com/noah-isme/tutoria-api/pkg/response"
)

type dashboardService interface {
	Admin(ctx context.Context) (*dto.AdminDashboardResponse, bool, error)
	Reports(ctx context.Context, filter aggregate.Filter) (*dto.ReportsResponse, bool, error)
	Tutor(ctx context.Context, tutorID models.ID) (*dto.TutorDashboardResponse, bool, error)
	Subjects(ctx context.Context) ([]string, error)
}

type careerExporter interface {
	CareerReport(ctx context.Context, filter aggregate.Filter, format service.ExportFormat) (*service.ExportFile, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
	exports careerExporter
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService, exports careerExporter) *DashboardHandler {
	return &DashboardHandler{service: service, exports: exports}
}

// Admin godoc
// @Summary Admin dashboard counters
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/admin [get]
func (h *DashboardHandler) Admin(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	summary, cacheHit, err := h.service.Admin(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	respondDashboard(c, summary, cacheHit, summary.Degraded, start)
}

// Reports godoc
// @Summary Filtered attendance metrics
// @Tags Dashboard
// @Produce json
// @Param dateStart query string false "Start date (YYYY-MM-DD)"
// @Param dateEnd query string false "End date (YYYY-MM-DD), inclusive"
// @Param subject query string false "Subject name"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /dashboard/reports [get]
func (h *DashboardHandler) Reports(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	filter, err := filterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	report, cacheHit, err := h.service.Reports(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondDashboard(c, report, cacheHit, report.Degraded, start)
}

// ExportCareers godoc
// @Summary Download the per-career attendance table
// @Tags Dashboard
// @Produce application/pdf
// @Produce text/csv
// @Param format query string false "csv or pdf" default(csv)
// @Param dateStart query string false "Start date (YYYY-MM-DD)"
// @Param dateEnd query string false "End date (YYYY-MM-DD), inclusive"
// @Param subject query string false "Subject name"
// @Success 200 {file} file
// @Failure 502 {object} response.Envelope
// @Router /dashboard/reports/careers/export [get]
func (h *DashboardHandler) ExportCareers(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	filter, err := filterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format, err := service.ParseExportFormat(c.Query("format"), service.ExportFormatCSV)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exports.CareerReport(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}

// Tutor godoc
// @Summary Tutor home-page summary
// @Tags Dashboard
// @Produce json
// @Param tutorId path string true "Tutor ID"
// @Success 200 {object} response.Envelope
// @Router /dashboard/tutors/{tutorId} [get]
func (h *DashboardHandler) Tutor(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	tutorID := models.ID(strings.TrimSpace(c.Param("tutorId")))
	if tutorID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "tutorId is required"))
		return
	}
	start := time.Now()
	summary, cacheHit, err := h.service.Tutor(c.Request.Context(), tutorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondDashboard(c, summary, cacheHit, summary.Degraded, start)
}

// Subjects godoc
// @Summary Distinct subjects for report filters
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /subjects [get]
func (h *DashboardHandler) Subjects(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	subjects, err := h.service.Subjects(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil, middleware.ExtractMeta(c))
}

func filterFromQuery(c *gin.Context) (aggregate.Filter, error) {
	filter, err := aggregate.ParseFilter(c.Query("dateStart"), c.Query("dateEnd"), c.Query("subject"))
	if err != nil {
		return aggregate.Filter{}, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	return filter, nil
}

func respondDashboard(c *gin.Context, data interface{}, cacheHit, degraded bool, start time.Time) {
	middleware.SetCacheHit(c, cacheHit)
	if degraded {
		middleware.SetDegraded(c)
	}
	middleware.SetProcessingTime(c, start)
	response.JSON(c, http.StatusOK, data, nil, middleware.ExtractMeta(c))
}
