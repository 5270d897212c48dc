package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulog/attendance-api/internal/models"
)

func TestAttendanceRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (student_id, date, hour)")).
		WithArgs(int64(1), "2024-09-02", 3, models.StatusPresent).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Upsert(context.Background(), models.AttendanceFact{StudentID: 1, Date: "2024-09-02", Hour: 3, Status: models.StatusPresent})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryDeleteByKeyAbsent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	// Deleting a key with no fact affects zero rows and is still a success.
	mock.ExpectExec("DELETE FROM attendance WHERE student_id").
		WithArgs(int64(1), "2024-09-02", 3).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteByKey(context.Background(), 1, "2024-09-02", 3)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryReplaceDay(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM attendance WHERE student_id").
		WithArgs(int64(5), "2024-09-02").
		WillReturnResult(sqlmock.NewResult(0, 2))
	facts := make([]models.AttendanceFact, 0, len(models.CanonicalHours))
	for _, hour := range models.CanonicalHours {
		facts = append(facts, models.AttendanceFact{StudentID: 5, Date: "2024-09-02", Hour: hour, Status: models.StatusPresent})
		mock.ExpectExec("INSERT INTO attendance").
			WithArgs(int64(5), "2024-09-02", hour, models.StatusPresent).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceDay(context.Background(), 5, "2024-09-02", facts))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryReplaceDayClears(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM attendance WHERE student_id").
		WithArgs(int64(5), "2024-09-02").
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceDay(context.Background(), 5, "2024-09-02", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryListRangeFiltersGroup(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "group_name", "course", "date", "hour", "status"}).
		AddRow(1, "Aibek", "SE-2201", 2, "2024-09-02", 1, models.StatusPresent).
		AddRow(2, "Dana", "SE-2201", 2, nil, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.group_name = $3")).
		WithArgs("2024-09-01", "2024-09-07", "SE-2201").
		WillReturnRows(rows)

	result, err := repo.ListRange(context.Background(), "2024-09-01", "2024-09-07", "SE-2201")
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Nil(t, result[1].Date)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryDailyStats(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	rows := sqlmock.NewRows([]string{"group_name", "total_students", "present", "absent"}).
		AddRow("IT-2302", 12, 10, 2).
		AddRow("SE-2201", 15, 14, 0)
	mock.ExpectQuery("GROUP BY s.group_name").
		WithArgs("2024-09-02", models.StatusPresent, models.StatusAbsent).
		WillReturnRows(rows)

	stats, err := repo.DailyStats(context.Background(), "2024-09-02")
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "IT-2302", stats[0].Group)
	assert.Equal(t, 10, stats[0].Present)
	assert.NoError(t, mock.ExpectationsWereMet())
}
