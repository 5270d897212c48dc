package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edulog/attendance-api/internal/models"
	appErrors "github.com/edulog/attendance-api/pkg/errors"
)

const dateLayout = "2006-01-02"

// cacheKeyPrefix scopes every cached attendance aggregate so writes can
// invalidate them wholesale.
const cacheKeyPrefix = "attendance:"

type attendanceRepository interface {
	Upsert(ctx context.Context, fact models.AttendanceFact) error
	DeleteByKey(ctx context.Context, studentID int64, date string, hour int) error
	ReplaceDay(ctx context.Context, studentID int64, date string, facts []models.AttendanceFact) error
	ListAll(ctx context.Context) ([]models.AttendanceFact, error)
	ListRange(ctx context.Context, startDate, endDate, group string) ([]models.PeriodFactRow, error)
	DailyStats(ctx context.Context, date string) ([]models.GroupDailyStat, error)
}

type rosterChecker interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// RecordAttendanceRequest carries one attendance write. A nil Hour selects the
// legacy whole-day mode.
type RecordAttendanceRequest struct {
	StudentID int64  `json:"student_id" validate:"required,gt=0"`
	Date      string `json:"date" validate:"required"`
	Status    string `json:"status" validate:"required"`
	Hour      *int   `json:"hour" validate:"omitempty,gt=0"`
}

// PeriodRequest scopes a period aggregation.
type PeriodRequest struct {
	StartDate string `validate:"required"`
	EndDate   string `validate:"required"`
	Group     string
}

// AttendanceService owns the attendance write path and the derived read
// views. All state lives in the store; the service is safe for concurrent use.
type AttendanceService struct {
	repo      attendanceRepository
	roster    rosterChecker
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(repo attendanceRepository, roster rosterChecker, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{repo: repo, roster: roster, cache: cache, validator: validate, logger: logger}
}

// Record applies one attendance observation. In hourly mode an "unknown"
// status deletes the fact at that key (idempotent) and any other status
// upserts it. Without an hour the student's whole day is rewritten: previous
// hourly facts for the date are dropped and, unless the status is "unknown",
// every canonical hour is filled uniformly.
func (s *AttendanceService) Record(ctx context.Context, req RecordAttendanceRequest) (*models.AttendanceEcho, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	if err := validateDate(req.Date); err != nil {
		return nil, err
	}

	exists, err := s.roster.Exists(ctx, req.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to check student")
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	if req.Hour != nil {
		if err := s.recordHour(ctx, req); err != nil {
			return nil, err
		}
	} else {
		if err := s.recordDay(ctx, req); err != nil {
			return nil, err
		}
	}

	s.invalidateDerived(ctx)

	return &models.AttendanceEcho{
		StudentID: req.StudentID,
		Date:      req.Date,
		Status:    req.Status,
		Hour:      req.Hour,
	}, nil
}

func (s *AttendanceService) recordHour(ctx context.Context, req RecordAttendanceRequest) error {
	if req.Status == models.StatusUnknown {
		if err := s.repo.DeleteByKey(ctx, req.StudentID, req.Date, *req.Hour); err != nil {
			return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to delete attendance")
		}
		return nil
	}
	fact := models.AttendanceFact{StudentID: req.StudentID, Date: req.Date, Hour: *req.Hour, Status: req.Status}
	if err := s.repo.Upsert(ctx, fact); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to record attendance")
	}
	return nil
}

func (s *AttendanceService) recordDay(ctx context.Context, req RecordAttendanceRequest) error {
	var facts []models.AttendanceFact
	if req.Status != models.StatusUnknown {
		facts = make([]models.AttendanceFact, 0, len(models.CanonicalHours))
		for _, hour := range models.CanonicalHours {
			facts = append(facts, models.AttendanceFact{StudentID: req.StudentID, Date: req.Date, Hour: hour, Status: req.Status})
		}
	}
	if err := s.repo.ReplaceDay(ctx, req.StudentID, req.Date, facts); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to rewrite day")
	}
	return nil
}

// List returns the full attendance view: raw hourly facts plus the daily
// status derived from them. The daily view is recomputed on every call and is
// never persisted.
func (s *AttendanceService) List(ctx context.Context) (*models.AttendanceOverview, error) {
	facts, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list attendance")
	}

	overview := &models.AttendanceOverview{
		Hourly: make(map[string]map[int64]map[int]string),
		Daily:  make(map[string]map[int64]string),
	}

	dayStatuses := make(map[string]map[int64][]string)
	for _, fact := range facts {
		byStudent, ok := overview.Hourly[fact.Date]
		if !ok {
			byStudent = make(map[int64]map[int]string)
			overview.Hourly[fact.Date] = byStudent
		}
		byHour, ok := byStudent[fact.StudentID]
		if !ok {
			byHour = make(map[int]string)
			byStudent[fact.StudentID] = byHour
		}
		byHour[fact.Hour] = fact.Status

		perDay, ok := dayStatuses[fact.Date]
		if !ok {
			perDay = make(map[int64][]string)
			dayStatuses[fact.Date] = perDay
		}
		perDay[fact.StudentID] = append(perDay[fact.StudentID], fact.Status)
	}

	for date, perStudent := range dayStatuses {
		for studentID, statuses := range perStudent {
			derived, ok := models.DeriveDailyStatus(statuses)
			if !ok {
				continue
			}
			byStudent, exists := overview.Daily[date]
			if !exists {
				byStudent = make(map[int64]string)
				overview.Daily[date] = byStudent
			}
			byStudent[studentID] = derived
		}
	}

	return overview, nil
}

// Period joins the roster against facts in [StartDate, EndDate], optionally
// restricted to one group. Every matching student appears, ordered by name,
// with a date→hour→status mapping built only from facts that exist.
func (s *AttendanceService) Period(ctx context.Context, req PeriodRequest) ([]models.PeriodStudent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "start and end dates are required")
	}
	if err := validateDate(req.StartDate); err != nil {
		return nil, err
	}
	if err := validateDate(req.EndDate); err != nil {
		return nil, err
	}

	rows, err := s.repo.ListRange(ctx, req.StartDate, req.EndDate, req.Group)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load period")
	}

	students := make([]models.PeriodStudent, 0)
	index := make(map[int64]int)
	for _, row := range rows {
		pos, seen := index[row.ID]
		if !seen {
			students = append(students, models.PeriodStudent{
				ID:         row.ID,
				Name:       row.Name,
				Group:      row.Group,
				Course:     row.Course,
				Attendance: make(map[string]map[int]string),
			})
			pos = len(students) - 1
			index[row.ID] = pos
		}
		if row.Date == nil || row.Hour == nil || row.Status == nil {
			continue
		}
		byHour, ok := students[pos].Attendance[*row.Date]
		if !ok {
			byHour = make(map[int]string)
			students[pos].Attendance[*row.Date] = byHour
		}
		byHour[*row.Hour] = *row.Status
	}

	return students, nil
}

// DailyStats returns per-group counts for one date: roster size plus distinct
// students holding present and absent facts. Results are cached briefly when
// a cache is configured; any write path invalidates them.
func (s *AttendanceService) DailyStats(ctx context.Context, date string) ([]models.GroupDailyStat, error) {
	if date == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date is required")
	}
	if err := validateDate(date); err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("%sstats:%s", cacheKeyPrefix, date)
	if s.cache.Enabled() {
		var cached []models.GroupDailyStat
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached, nil
		}
	}

	stats, err := s.repo.DailyStats(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to compute daily stats")
	}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, cacheKey, stats, 0); err != nil {
			s.logger.Warn("stats cache set failed", zap.Error(err))
		}
	}

	return stats, nil
}

func (s *AttendanceService) invalidateDerived(ctx context.Context) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, cacheKeyPrefix+"*"); err != nil {
		s.logger.Warn("cache invalidation failed", zap.Error(err))
	}
}

func validateDate(raw string) error {
	if _, err := time.Parse(dateLayout, raw); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", raw))
	}
	return nil
}
