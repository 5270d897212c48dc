package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edulog/attendance-api/internal/models"
	"github.com/edulog/attendance-api/internal/service"
	appErrors "github.com/edulog/attendance-api/pkg/errors"
	"github.com/edulog/attendance-api/pkg/response"
)

type attendanceService interface {
	Record(ctx context.Context, req service.RecordAttendanceRequest) (*models.AttendanceEcho, error)
	List(ctx context.Context) (*models.AttendanceOverview, error)
	Period(ctx context.Context, req service.PeriodRequest) ([]models.PeriodStudent, error)
	DailyStats(ctx context.Context, date string) ([]models.GroupDailyStat, error)
}

type periodExporter interface {
	PeriodReport(ctx context.Context, req service.PeriodRequest, format string) (*service.ExportFile, error)
}

// AttendanceHandler exposes attendance endpoints.
type AttendanceHandler struct {
	attendance attendanceService
	exports    periodExporter
}

// NewAttendanceHandler constructs AttendanceHandler. The exporter may be nil
// when exports are disabled.
func NewAttendanceHandler(attendance attendanceService, exports periodExporter) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, exports: exports}
}

// List godoc
// @Summary Full attendance view with derived daily statuses
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	overview, err := h.attendance.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview)
}

// Record godoc
// @Summary Record an hourly or whole-day attendance status
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.RecordAttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Record(c *gin.Context) {
	var req service.RecordAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	echo, err := h.attendance.Record(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, echo)
}

// Period godoc
// @Summary Per-student attendance over a date range
// @Tags Attendance
// @Produce json
// @Param start query string true "Start date (YYYY-MM-DD)"
// @Param end query string true "End date (YYYY-MM-DD)"
// @Param group query string false "Filter by group"
// @Success 200 {object} response.Envelope
// @Router /attendance/period [get]
func (h *AttendanceHandler) Period(c *gin.Context) {
	req := service.PeriodRequest{
		StartDate: c.Query("start"),
		EndDate:   c.Query("end"),
		Group:     c.Query("group"),
	}
	students, err := h.attendance.Period(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students)
}

// DailyStats godoc
// @Summary Per-group attendance counters for one date
// @Tags Attendance
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/stats [get]
func (h *AttendanceHandler) DailyStats(c *gin.Context) {
	stats, err := h.attendance.DailyStats(c.Request.Context(), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats)
}

// ExportPeriod godoc
// @Summary Download a period report as CSV or PDF
// @Tags Attendance
// @Produce octet-stream
// @Param start query string true "Start date (YYYY-MM-DD)"
// @Param end query string true "End date (YYYY-MM-DD)"
// @Param group query string false "Filter by group"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /attendance/period/export [get]
func (h *AttendanceHandler) ExportPeriod(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return
	}
	req := service.PeriodRequest{
		StartDate: c.Query("start"),
		EndDate:   c.Query("end"),
		Group:     c.Query("group"),
	}
	format := c.DefaultQuery("format", service.ExportFormatCSV)
	file, err := h.exports.PeriodReport(c.Request.Context(), req, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
