package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edulog/attendance-api/internal/models"
	appErrors "github.com/edulog/attendance-api/pkg/errors"
)

type mockPeriodProvider struct {
	students []models.PeriodStudent
	err      error
}

func (m *mockPeriodProvider) Period(ctx context.Context, req PeriodRequest) ([]models.PeriodStudent, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.students, nil
}

func TestExportServicePeriodReportCSV(t *testing.T) {
	provider := &mockPeriodProvider{students: []models.PeriodStudent{
		{ID: 1, Name: "Aibek", Group: "SE-2201", Course: 2, Attendance: map[string]map[int]string{
			"2024-09-02": {1: models.StatusPresent, 2: models.StatusAbsent},
		}},
		{ID: 2, Name: "Dana", Group: "SE-2201", Course: 2, Attendance: map[string]map[int]string{}},
	}}
	svc := NewExportService(provider, zap.NewNop())

	file, err := svc.PeriodReport(context.Background(), PeriodRequest{StartDate: "2024-09-01", EndDate: "2024-09-07"}, ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, "attendance_2024-09-01_2024-09-07.csv", file.Filename)

	body := string(file.Data)
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 4) // header + two fact rows + one empty roster row
	assert.Equal(t, "Student,Group,Course,Date,Hour,Status", lines[0])
	assert.Contains(t, lines[1], "Aibek")
	assert.Contains(t, lines[1], "present")
	assert.Contains(t, lines[3], "Dana")
}

func TestExportServicePeriodReportPDF(t *testing.T) {
	provider := &mockPeriodProvider{students: []models.PeriodStudent{
		{ID: 1, Name: "Aibek", Group: "SE-2201", Course: 2, Attendance: map[string]map[int]string{
			"2024-09-02": {1: models.StatusPresent},
		}},
	}}
	svc := NewExportService(provider, zap.NewNop())

	file, err := svc.PeriodReport(context.Background(), PeriodRequest{StartDate: "2024-09-01", EndDate: "2024-09-07"}, ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Data), "%PDF"))
}

func TestExportServiceUnsupportedFormat(t *testing.T) {
	svc := NewExportService(&mockPeriodProvider{}, zap.NewNop())

	_, err := svc.PeriodReport(context.Background(), PeriodRequest{StartDate: "2024-09-01", EndDate: "2024-09-07"}, "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
