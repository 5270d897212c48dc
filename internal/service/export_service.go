package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/edulog/attendance-api/internal/models"
	appErrors "github.com/edulog/attendance-api/pkg/errors"
	"github.com/edulog/attendance-api/pkg/export"
)

// Export formats supported by the period report endpoint.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type periodProvider interface {
	Period(ctx context.Context, req PeriodRequest) ([]models.PeriodStudent, error)
}

// ExportFile is a rendered report ready for download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders period aggregations into downloadable reports.
type ExportService struct {
	periods periodProvider
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	logger  *zap.Logger
}

// NewExportService constructs the export service.
func NewExportService(periods periodProvider, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		periods: periods,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
	}
}

// PeriodReport aggregates the requested period and renders it as one flat
// row per stored fact, with a roster row for students without facts in range.
func (s *ExportService) PeriodReport(ctx context.Context, req PeriodRequest, format string) (*ExportFile, error) {
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	students, err := s.periods.Period(ctx, req)
	if err != nil {
		return nil, err
	}

	dataset := buildPeriodDataset(students)
	title := fmt.Sprintf("Attendance %s - %s", req.StartDate, req.EndDate)

	var data []byte
	var contentType, ext string
	switch format {
	case ExportFormatCSV:
		data, err = s.csv.Render(dataset)
		contentType, ext = "text/csv", "csv"
	case ExportFormatPDF:
		data, err = s.pdf.Render(dataset, title)
		contentType, ext = "application/pdf", "pdf"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}

	filename := fmt.Sprintf("attendance_%s_%s.%s", req.StartDate, req.EndDate, ext)
	return &ExportFile{Filename: filename, ContentType: contentType, Data: data}, nil
}

func buildPeriodDataset(students []models.PeriodStudent) export.Dataset {
	dataset := export.Dataset{
		Headers: []string{"Student", "Group", "Course", "Date", "Hour", "Status"},
	}
	for _, student := range students {
		if len(student.Attendance) == 0 {
			dataset.Rows = append(dataset.Rows, []string{student.Name, student.Group, strconv.Itoa(student.Course), "", "", ""})
			continue
		}
		dates := make([]string, 0, len(student.Attendance))
		for date := range student.Attendance {
			dates = append(dates, date)
		}
		sort.Strings(dates)
		for _, date := range dates {
			byHour := student.Attendance[date]
			hours := make([]int, 0, len(byHour))
			for hour := range byHour {
				hours = append(hours, hour)
			}
			sort.Ints(hours)
			for _, hour := range hours {
				dataset.Rows = append(dataset.Rows, []string{
					student.Name,
					student.Group,
					strconv.Itoa(student.Course),
					date,
					strconv.Itoa(hour),
					byHour[hour],
				})
			}
		}
	}
	return dataset
}
