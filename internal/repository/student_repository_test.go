package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulog/attendance-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestStudentRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "group_name", "course", "created_at"}).
		AddRow(1, "Aibek", "SE-2201", 2, time.Now()).
		AddRow(2, "Dana", "SE-2201", 2, time.Now())
	mock.ExpectQuery("SELECT id, name, group_name, course, created_at FROM students ORDER BY name ASC").
		WillReturnRows(rows)

	students, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, students, 2)
	assert.Equal(t, "Aibek", students[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryExists(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("SELECT 1 FROM students WHERE id").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	exists, err := repo.Exists(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery("SELECT 1 FROM students WHERE id").
		WithArgs(int64(8)).
		WillReturnError(sql.ErrNoRows)
	exists, err = repo.Exists(context.Background(), 8)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("INSERT INTO students").
		WithArgs("Aruzhan", "IT-2302", 1, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	student := &models.Student{Name: "Aruzhan", Group: "IT-2302", Course: 1}
	require.NoError(t, repo.Create(context.Background(), student))
	assert.Equal(t, int64(11), student.ID)
	assert.False(t, student.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDeleteCascades(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM attendance WHERE student_id").
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM students WHERE id").
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), 4))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDeleteUnknown(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM attendance WHERE student_id").
		WithArgs(int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM students WHERE id").
		WithArgs(int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), 99)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryBatchCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO students").
		WithArgs("Miras", "SE-2201", 2, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(21))
	mock.ExpectQuery("INSERT INTO students").
		WithArgs("Aigerim", "SE-2201", 2, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(22))
	mock.ExpectCommit()

	students := []*models.Student{
		{Name: "Miras", Group: "SE-2201", Course: 2},
		{Name: "Aigerim", Group: "SE-2201", Course: 2},
	}
	require.NoError(t, repo.BatchCreate(context.Background(), students))
	assert.Equal(t, int64(21), students[0].ID)
	assert.Equal(t, int64(22), students[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryBatchCreateRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	boom := errors.New("connection reset")
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO students").
		WithArgs("Miras", "SE-2201", 2, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(21))
	mock.ExpectQuery("INSERT INTO students").
		WithArgs("Aigerim", "SE-2201", 2, sqlmock.AnyArg()).
		WillReturnError(boom)
	mock.ExpectRollback()

	students := []*models.Student{
		{Name: "Miras", Group: "SE-2201", Course: 2},
		{Name: "Aigerim", Group: "SE-2201", Course: 2},
	}
	err := repo.BatchCreate(context.Background(), students)
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}
