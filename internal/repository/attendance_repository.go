package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/edulog/attendance-api/internal/models"
)

// AttendanceRepository handles persistence for hourly attendance facts.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Upsert writes a single hourly fact, replacing the status when the
// (student, date, hour) key already holds one. Concurrent writers to the same
// key converge on the last committed status instead of failing on the unique
// constraint.
func (r *AttendanceRepository) Upsert(ctx context.Context, fact models.AttendanceFact) error {
	const query = `INSERT INTO attendance (student_id, date, hour, status)
VALUES ($1, $2, $3, $4)
ON CONFLICT (student_id, date, hour)
DO UPDATE SET status = EXCLUDED.status`
	if _, err := r.db.ExecContext(ctx, query, fact.StudentID, fact.Date, fact.Hour, fact.Status); err != nil {
		return fmt.Errorf("upsert attendance: %w", err)
	}
	return nil
}

// DeleteByKey removes the fact at (student, date, hour). Deleting an absent
// key is a no-op.
func (r *AttendanceRepository) DeleteByKey(ctx context.Context, studentID int64, date string, hour int) error {
	const query = `DELETE FROM attendance WHERE student_id = $1 AND date = $2 AND hour = $3`
	if _, err := r.db.ExecContext(ctx, query, studentID, date, hour); err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	return nil
}

// ReplaceDay rewrites a student's whole day in one transaction: every fact for
// (student, date) is removed, then the provided facts are inserted. Passing no
// facts clears the day.
func (r *AttendanceRepository) ReplaceDay(ctx context.Context, studentID int64, date string, facts []models.AttendanceFact) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace day: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM attendance WHERE student_id = $1 AND date = $2`, studentID, date); err != nil {
		return fmt.Errorf("clear day: %w", err)
	}

	const insert = `INSERT INTO attendance (student_id, date, hour, status) VALUES ($1, $2, $3, $4)`
	for _, fact := range facts {
		if _, err := tx.ExecContext(ctx, insert, fact.StudentID, fact.Date, fact.Hour, fact.Status); err != nil {
			return fmt.Errorf("insert day fact: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace day: %w", err)
	}
	committed = true
	return nil
}

// ListAll returns every fact ordered by date, student and hour ascending.
func (r *AttendanceRepository) ListAll(ctx context.Context) ([]models.AttendanceFact, error) {
	const query = `SELECT student_id, date, hour, status FROM attendance ORDER BY date ASC, student_id ASC, hour ASC`
	var facts []models.AttendanceFact
	if err := r.db.SelectContext(ctx, &facts, query); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return facts, nil
}

// ListRange joins the roster against facts whose date falls in
// [startDate, endDate], optionally filtered to one group. The join is an
// outer one: students without facts in range still produce a row with null
// fact columns. Rows come back ordered by student name, then date and hour.
func (r *AttendanceRepository) ListRange(ctx context.Context, startDate, endDate, group string) ([]models.PeriodFactRow, error) {
	query := `SELECT s.id, s.name, s.group_name, s.course, a.date, a.hour, a.status
FROM students s
LEFT JOIN attendance a ON a.student_id = s.id AND a.date >= $1 AND a.date <= $2`
	args := []interface{}{startDate, endDate}
	if group != "" {
		query += ` WHERE s.group_name = $3`
		args = append(args, group)
	}
	query += ` ORDER BY s.name ASC, s.id ASC, a.date ASC, a.hour ASC`

	var rows []models.PeriodFactRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance range: %w", err)
	}
	return rows, nil
}

// DailyStats aggregates one date per group, counting distinct students whose
// facts for the date hold each voting status.
func (r *AttendanceRepository) DailyStats(ctx context.Context, date string) ([]models.GroupDailyStat, error) {
	const query = `SELECT s.group_name,
COUNT(DISTINCT s.id) AS total_students,
COUNT(DISTINCT s.id) FILTER (WHERE a.status = $2) AS present,
COUNT(DISTINCT s.id) FILTER (WHERE a.status = $3) AS absent
FROM students s
LEFT JOIN attendance a ON a.student_id = s.id AND a.date = $1
GROUP BY s.group_name
ORDER BY s.group_name ASC`
	var stats []models.GroupDailyStat
	if err := r.db.SelectContext(ctx, &stats, query, date, models.StatusPresent, models.StatusAbsent); err != nil {
		return nil, fmt.Errorf("daily stats: %w", err)
	}
	return stats, nil
}
