package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/teacher-portal-api/internal/dto"
	"github.com/noah-isme/teacher-portal-api/internal/models"
	appErrors "github.com/noah-isme/teacher-portal-api/pkg/errors"
	"github.com/noah-isme/teacher-portal-api/pkg/export"
)

// Supported export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type rosterSnapshotter interface {
	Snapshot(ctx context.Context, key models.RosterKey) ([]models.Student, error)
	Mode(date time.Time) models.DateMode
}

// ExportRequest selects the document format; csv when empty.
type ExportRequest struct {
	Format string `form:"format" validate:"omitempty,export_format"`
}

// ExportService renders a roster as a downloadable document.
type ExportService struct {
	rosters   rosterSnapshotter
	renderers map[string]export.Renderer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExportService constructs an ExportService with the csv and pdf renderers.
func NewExportService(rosters rosterSnapshotter, validate *validator.Validate, logger *zap.Logger) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ExportService{
		rosters: rosters,
		renderers: map[string]export.Renderer{
			ExportFormatCSV: export.NewCSVExporter(),
			ExportFormatPDF: export.NewPDFExporter(),
		},
		validator: validate,
		logger:    logger,
	}
	_ = svc.validator.RegisterValidation("export_format", func(fl validator.FieldLevel) bool {
		_, ok := svc.renderers[strings.ToLower(fl.Field().String())]
		return ok
	})
	return svc
}

// Export renders the sorted roster for key.
func (s *ExportService) Export(ctx context.Context, key models.RosterKey, req ExportRequest) (*dto.ExportFile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "format must be csv or pdf")
	}
	format := strings.ToLower(req.Format)
	if format == "" {
		format = ExportFormatCSV
	}
	renderer := s.renderers[format]

	students, err := s.rosters.Snapshot(ctx, key)
	if err != nil {
		return nil, err
	}

	content, err := renderer.Render(s.dataset(key, students))
	if err != nil {
		s.logger.Error("roster export failed", zap.String("class_id", key.ClassID), zap.String("format", format), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	date := key.Date.Format(models.DateLayout)
	return &dto.ExportFile{
		Filename:    fmt.Sprintf("attendance_%s_%s.%s", sanitizeFilePart(key.ClassID), date, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Content:     content,
	}, nil
}

func (s *ExportService) dataset(key models.RosterKey, students []models.Student) export.Dataset {
	date := key.Date.Format(models.DateLayout)
	rows := make([][]string, 0, len(students))
	for i, student := range students {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			student.RollNumber,
			student.Name,
			string(student.Group),
			string(student.Status),
		})
	}

	summary := Summarize(students)
	footer := make([]string, 0, len(summary)+1)
	for _, status := range models.AttendanceStatuses() {
		footer = append(footer, fmt.Sprintf("%s: %d", capitalize(string(status)), summary[status]))
	}
	footer = append(footer, fmt.Sprintf("Total: %d", summary.Total()))

	return export.Dataset{
		Title:   fmt.Sprintf("Attendance - Class %s - %s (%s)", key.ClassID, date, s.rosters.Mode(key.Date)),
		Headers: []string{"No", "Roll Number", "Name", "Group", "Status"},
		Rows:    rows,
		Footer:  footer,
	}
}

func sanitizeFilePart(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
