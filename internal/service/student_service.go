package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edulog/attendance-api/internal/models"
	appErrors "github.com/edulog/attendance-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context) ([]models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id int64) error
	BatchCreate(ctx context.Context, students []*models.Student) error
}

// CreateStudentRequest holds payload for registering a single student.
type CreateStudentRequest struct {
	Name   string `json:"name" validate:"required"`
	Group  string `json:"group" validate:"required"`
	Course int    `json:"course" validate:"required,gt=0"`
}

// StudentService handles roster use-cases.
type StudentService struct {
	repo      studentRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns the roster ordered by name.
func (s *StudentService) List(ctx context.Context) ([]models.Student, error) {
	students, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list students")
	}
	if students == nil {
		students = []models.Student{}
	}
	return students, nil
}

// Create registers a single student.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student := &models.Student{Name: req.Name, Group: req.Group, Course: req.Course}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to create student")
	}
	s.invalidateDerived(ctx)
	return student, nil
}

// Delete removes a student and, transitively, every attendance fact
// referencing it.
func (s *StudentService) Delete(ctx context.Context, id int64) (*models.DeletedStudent, error) {
	if id <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid student id")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to delete student")
	}
	s.invalidateDerived(ctx)
	return &models.DeletedStudent{DeletedID: id}, nil
}

// BatchRegister registers many students at once. Items are validated before
// the insert transaction opens: malformed items become error entries and
// never enter the transaction, so a reported success is always a committed
// row. An infrastructure failure rolls the whole batch back and surfaces a
// storage error instead of a partial report.
func (s *StudentService) BatchRegister(ctx context.Context, items []models.BatchStudentInput) (*models.BatchRegisterResult, error) {
	result := &models.BatchRegisterResult{Results: make([]models.BatchItemResult, len(items))}

	valid := make([]*models.Student, 0, len(items))
	validIdx := make([]int, 0, len(items))
	for i := range items {
		item := items[i]
		if reason := validateBatchItem(item); reason != "" {
			input := item
			result.Results[i] = models.BatchItemResult{Error: reason, Input: &input}
			result.Errors++
			continue
		}
		student := &models.Student{Name: item.Name, Group: item.Group, Course: item.Course}
		valid = append(valid, student)
		validIdx = append(validIdx, i)
	}

	if len(valid) > 0 {
		if err := s.repo.BatchCreate(ctx, valid); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "batch registration failed")
		}
	}

	for n, student := range valid {
		result.Results[validIdx[n]] = models.BatchItemResult{Student: student}
	}
	result.Added = len(valid)

	if result.Added > 0 {
		s.invalidateDerived(ctx)
	}
	return result, nil
}

func (s *StudentService) invalidateDerived(ctx context.Context) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, cacheKeyPrefix+"*"); err != nil {
		s.logger.Warn("cache invalidation failed", zap.Error(err))
	}
}

func validateBatchItem(item models.BatchStudentInput) string {
	switch {
	case item.Name == "":
		return "name is required"
	case item.Group == "":
		return "group is required"
	case item.Course <= 0:
		return fmt.Sprintf("course must be positive, got %d", item.Course)
	default:
		return ""
	}
}
