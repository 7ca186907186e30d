package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tutoria-api/internal/aggregate"
	"github.com/noah-isme/tutoria-api/internal/dto"
	"github.com/noah-isme/tutoria-api/internal/models"
	appErrors "github.com/noah-isme/tutoria-api/pkg/errors"
	"github.com/noah-isme/tutoria-api/pkg/export"
)

// ExportFormat selects the rendered document type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ParseExportFormat validates a requested format, defaulting to fallback when empty.
func ParseExportFormat(raw string, fallback ExportFormat) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(raw))); f {
	case "":
		return fallback, nil
	case ExportFormatCSV, ExportFormatPDF:
		return f, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

// ContentType returns the MIME type of the format.
func (f ExportFormat) ContentType() string {
	if f == ExportFormatPDF {
		return "application/pdf"
	}
	return "text/csv; charset=utf-8"
}

// Roster column headers, in print order.
var rosterHeaders = []string{"Fecha", "Hora", "Carnet", "Nombre y Apellido", "Carrera", "Teléfono", "Correo"}

// Career report column headers, in print order.
var careerHeaders = []string{"Carrera", "Estudiantes únicos", "Asistencias totales", "Frecuencia promedio"}

type careerSource interface {
	CareerTable(ctx context.Context, filter aggregate.Filter) ([]aggregate.CareerRow, error)
}

type rosterSource interface {
	FullRoster(ctx context.Context, sessionID models.ID) ([]models.RosterEntry, error)
}

type sessionDetailSource interface {
	Get(ctx context.Context, sessionID models.ID) (*dto.SessionDetailResponse, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	ProjectName string
	Location    *time.Location
}

// ExportFile is a rendered document ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders career reports and session rosters as CSV or PDF.
type ExportService struct {
	careers  careerSource
	rosters  rosterSource
	sessions sessionDetailSource
	csv      csvRenderer
	pdf      pdfRenderer
	logger   *zap.Logger
	now      func() time.Time
	cfg      ExportConfig
}

// ExportServiceParams groups constructor dependencies.
type ExportServiceParams struct {
	Careers  careerSource
	Rosters  rosterSource
	Sessions sessionDetailSource
	CSV      csvRenderer
	PDF      pdfRenderer
	Logger   *zap.Logger
	Config   ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(params ExportServiceParams) *ExportService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := params.Config
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	csv := params.CSV
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	pdf := params.PDF
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		careers:  params.Careers,
		rosters:  params.Rosters,
		sessions: params.Sessions,
		csv:      csv,
		pdf:      pdf,
		logger:   logger,
		now:      time.Now,
		cfg:      cfg,
	}
}

// CareerReport renders the per-career table for the filter.
func (s *ExportService) CareerReport(ctx context.Context, filter aggregate.Filter, format ExportFormat) (*ExportFile, error) {
	rows, err := s.careers.CareerTable(ctx, filter)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{Headers: careerHeaders, Rows: make([]map[string]string, 0, len(rows))}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			careerHeaders[0]: row.Career,
			careerHeaders[1]: strconv.Itoa(row.UniqueAttendees),
			careerHeaders[2]: strconv.Itoa(row.TotalEvents),
			careerHeaders[3]: strconv.FormatFloat(row.Frequency, 'f', 2, 64),
		})
	}

	lines := []string{
		"Nombre del Proyecto: " + s.cfg.ProjectName,
		"Periodo: " + describePeriod(filter),
	}
	if filter.Subject != "" {
		lines = append(lines, "Materia: "+filter.Subject)
	}
	lines = append(lines, "Reporte generado el: "+s.today())

	doc := export.Document{Title: "Frecuencia de Asistencia por Carrera", Lines: lines, Dataset: dataset}
	return s.render(doc, "reporte_carreras", format)
}

// SessionRoster renders the attendance list of one session with its instructor header.
func (s *ExportService) SessionRoster(ctx context.Context, sessionID models.ID, format ExportFormat) (*ExportFile, error) {
	detail, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	entries, err := s.rosters.FullRoster(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{Headers: rosterHeaders, Rows: make([]map[string]string, 0, len(entries))}
	for _, e := range entries {
		dataset.Rows = append(dataset.Rows, map[string]string{
			rosterHeaders[0]: e.Date,
			rosterHeaders[1]: e.Time,
			rosterHeaders[2]: e.StudentCode,
			rosterHeaders[3]: e.FullName,
			rosterHeaders[4]: e.Career,
			rosterHeaders[5]: e.Phone,
			rosterHeaders[6]: e.Email,
		})
	}

	doc := export.Document{
		Title: "Registro de Asistencia de Sesiones Presenciales",
		Lines: []string{
			"Nombre del Proyecto: " + s.cfg.ProjectName,
			"Instructor: " + detail.TutorName,
			"Registro generado el: " + s.today(),
		},
		Dataset: dataset,
	}
	base := sanitizeFilename(detail.Subject) + "_Asistencia"
	return s.render(doc, base, format)
}

func (s *ExportService) render(doc export.Document, base string, format ExportFormat) (*ExportFile, error) {
	var (
		payload []byte
		err     error
	)
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(doc.Dataset)
	case ExportFormatPDF:
		payload, err = s.pdf.Render(doc)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %s", format))
	}
	if err != nil {
		s.logger.Error("render export failed", zap.String("document", base), zap.String("format", string(format)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render document")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("%s.%s", base, format),
		ContentType: format.ContentType(),
		Payload:     payload,
	}, nil
}

func (s *ExportService) today() string {
	return s.now().In(s.cfg.Location).Format("02/01/2006")
}

func describePeriod(filter aggregate.Filter) string {
	f := reportFilter(filter)
	switch {
	case f.DateStart == "" && f.DateEnd == "":
		return "Todo el historial"
	case f.DateStart == "":
		return "hasta " + f.DateEnd
	case f.DateEnd == "":
		return "desde " + f.DateStart
	default:
		return f.DateStart + " a " + f.DateEnd
	}
}

func sanitizeFilename(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "Documento"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "\"", "")
	result := []rune(replacer.Replace(raw))
	if len(result) > 100 {
		result = result[:100]
	}
	return string(result)
}
