package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/edulog/attendance-api/internal/models"
	"github.com/edulog/attendance-api/internal/service"
	appErrors "github.com/edulog/attendance-api/pkg/errors"
	"github.com/edulog/attendance-api/pkg/response"
)

type studentService interface {
	List(ctx context.Context) ([]models.Student, error)
	Create(ctx context.Context, req service.CreateStudentRequest) (*models.Student, error)
	Delete(ctx context.Context, id int64) (*models.DeletedStudent, error)
	BatchRegister(ctx context.Context, items []models.BatchStudentInput) (*models.BatchRegisterResult, error)
}

// BatchRegisterRequest wraps the batch registration payload.
type BatchRegisterRequest struct {
	Students []models.BatchStudentInput `json:"students"`
}

// StudentHandler exposes roster endpoints.
type StudentHandler struct {
	students studentService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students studentService) *StudentHandler {
	return &StudentHandler{students: students}
}

// List godoc
// @Summary List students ordered by name
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	students, err := h.students.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students)
}

// Create godoc
// @Summary Register a student
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body service.CreateStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var req service.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	student, err := h.students.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Delete godoc
// @Summary Delete a student and its attendance facts
// @Tags Students
// @Produce json
// @Param id path int true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid student id"))
		return
	}
	deleted, err := h.students.Delete(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, deleted)
}

// BatchRegister godoc
// @Summary Register many students in one batch
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body handler.BatchRegisterRequest true "Batch payload"
// @Success 200 {object} response.Envelope
// @Router /students/batch [post]
func (h *StudentHandler) BatchRegister(c *gin.Context) {
	var req BatchRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if len(req.Students) == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "students list is required"))
		return
	}
	result, err := h.students.BatchRegister(c.Request.Context(), req.Students)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
