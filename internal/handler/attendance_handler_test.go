package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulog/attendance-api/internal/models"
	"github.com/edulog/attendance-api/internal/service"
	appErrors "github.com/edulog/attendance-api/pkg/errors"
)

type attendanceServiceMock struct {
	echo     *models.AttendanceEcho
	overview *models.AttendanceOverview
	period   []models.PeriodStudent
	stats    []models.GroupDailyStat
	err      error

	lastRecord service.RecordAttendanceRequest
	lastPeriod service.PeriodRequest
}

func (m *attendanceServiceMock) Record(ctx context.Context, req service.RecordAttendanceRequest) (*models.AttendanceEcho, error) {
	m.lastRecord = req
	return m.echo, m.err
}

func (m *attendanceServiceMock) List(ctx context.Context) (*models.AttendanceOverview, error) {
	return m.overview, m.err
}

func (m *attendanceServiceMock) Period(ctx context.Context, req service.PeriodRequest) ([]models.PeriodStudent, error) {
	m.lastPeriod = req
	return m.period, m.err
}

func (m *attendanceServiceMock) DailyStats(ctx context.Context, date string) ([]models.GroupDailyStat, error) {
	return m.stats, m.err
}

type exporterMock struct {
	file *service.ExportFile
	err  error
}

func (m *exporterMock) PeriodReport(ctx context.Context, req service.PeriodRequest, format string) (*service.ExportFile, error) {
	return m.file, m.err
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestAttendanceHandlerRecord(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hour := 2
	mockSvc := &attendanceServiceMock{echo: &models.AttendanceEcho{StudentID: 1, Date: "2024-09-02", Status: models.StatusPresent, Hour: &hour}}
	h := NewAttendanceHandler(mockSvc, nil)

	payload, _ := json.Marshal(service.RecordAttendanceRequest{StudentID: 1, Date: "2024-09-02", Status: models.StatusPresent, Hour: &hour})
	c, w := newGinContext(http.MethodPost, "/attendance", payload)

	h.Record(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), mockSvc.lastRecord.StudentID)
}

func TestAttendanceHandlerRecordBadJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAttendanceHandler(&attendanceServiceMock{}, nil)

	c, w := newGinContext(http.MethodPost, "/attendance", []byte("{not json"))
	h.Record(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttendanceHandlerRecordNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &attendanceServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "student not found")}
	h := NewAttendanceHandler(mockSvc, nil)

	payload, _ := json.Marshal(service.RecordAttendanceRequest{StudentID: 42, Date: "2024-09-02", Status: models.StatusPresent})
	c, w := newGinContext(http.MethodPost, "/attendance", payload)
	h.Record(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAttendanceHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &attendanceServiceMock{overview: &models.AttendanceOverview{
		Hourly: map[string]map[int64]map[int]string{"2024-09-02": {1: {1: models.StatusPresent}}},
		Daily:  map[string]map[int64]string{"2024-09-02": {1: models.StatusPresent}},
	}}
	h := NewAttendanceHandler(mockSvc, nil)

	c, w := newGinContext(http.MethodGet, "/attendance", nil)
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "hourly")
	assert.Contains(t, w.Body.String(), "daily")
}

func TestAttendanceHandlerPeriodPassesQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &attendanceServiceMock{period: []models.PeriodStudent{}}
	h := NewAttendanceHandler(mockSvc, nil)

	c, w := newGinContext(http.MethodGet, "/attendance/period?start=2024-09-01&end=2024-09-07&group=SE-2201", nil)
	h.Period(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2024-09-01", mockSvc.lastPeriod.StartDate)
	assert.Equal(t, "SE-2201", mockSvc.lastPeriod.Group)
}

func TestAttendanceHandlerDailyStats(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &attendanceServiceMock{stats: []models.GroupDailyStat{{Group: "SE-2201", TotalStudents: 10, Present: 9, Absent: 1}}}
	h := NewAttendanceHandler(mockSvc, nil)

	c, w := newGinContext(http.MethodGet, "/attendance/stats?date=2024-09-02", nil)
	h.DailyStats(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "totalStudents")
}

func TestAttendanceHandlerExportPeriod(t *testing.T) {
	gin.SetMode(gin.TestMode)
	exporter := &exporterMock{file: &service.ExportFile{Filename: "attendance.csv", ContentType: "text/csv", Data: []byte("Student\n")}}
	h := NewAttendanceHandler(&attendanceServiceMock{}, exporter)

	c, w := newGinContext(http.MethodGet, "/attendance/period/export?start=2024-09-01&end=2024-09-07", nil)
	h.ExportPeriod(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attendance.csv")
}

func TestAttendanceHandlerExportDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAttendanceHandler(&attendanceServiceMock{}, nil)

	c, w := newGinContext(http.MethodGet, "/attendance/period/export", nil)
	h.ExportPeriod(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}
