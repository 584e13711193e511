package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-admin-api/internal/models"
	appErrors "github.com/noah-isme/campus-admin-api/pkg/errors"
)

func newEnrollmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "postgres"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryReserveSeat(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacity FROM courses WHERE id = $1 FOR UPDATE")).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"capacity"}).AddRow(30))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2 AND status IN ($3, $4) LIMIT 1")).
		WithArgs("stu-1", "course-1", models.EnrollmentStatusRequested, models.EnrollmentStatusApproved).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND status IN ($2, $3)")).
		WithArgs("course-1", models.EnrollmentStatusRequested, models.EnrollmentStatusApproved).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments (id, student_id, course_id, status, requested_at) VALUES ($1, $2, $3, $4, $5)")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	enrollment := &models.Enrollment{StudentID: "stu-1", CourseID: "course-1"}
	err := repo.ReserveSeat(context.Background(), enrollment)
	require.NoError(t, err)
	assert.NotEmpty(t, enrollment.ID)
	assert.Equal(t, models.EnrollmentStatusRequested, enrollment.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryReserveSeatCourseFull(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacity FROM courses WHERE id = $1 FOR UPDATE")).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"capacity"}).AddRow(30))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2 AND status IN ($3, $4) LIMIT 1")).
		WithArgs("stu-1", "course-1", models.EnrollmentStatusRequested, models.EnrollmentStatusApproved).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND status IN ($2, $3)")).
		WithArgs("course-1", models.EnrollmentStatusRequested, models.EnrollmentStatusApproved).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(30))
	mock.ExpectRollback()

	err := repo.ReserveSeat(context.Background(), &models.Enrollment{StudentID: "stu-1", CourseID: "course-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrCourseFull)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryReserveSeatDuplicate(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacity FROM courses WHERE id = $1 FOR UPDATE")).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"capacity"}).AddRow(30))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2 AND status IN ($3, $4) LIMIT 1")).
		WithArgs("stu-1", "course-1", models.EnrollmentStatusRequested, models.EnrollmentStatusApproved).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.ReserveSeat(context.Background(), &models.Enrollment{StudentID: "stu-1", CourseID: "course-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrDuplicateEnrollment)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryReserveSeatUnknownCourse(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacity FROM courses WHERE id = $1 FOR UPDATE")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"capacity"}))
	mock.ExpectRollback()

	err := repo.ReserveSeat(context.Background(), &models.Enrollment{StudentID: "stu-1", CourseID: "missing"})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrCourseNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryDecide(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	decidedAt := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET status = $2, decided_at = $3, decided_by = $4 WHERE id = $1 AND status = $5")).
		WithArgs("enr-1", models.EnrollmentStatusApproved, decidedAt, "adm-1", models.EnrollmentStatusRequested).
		WillReturnResult(sqlmock.NewResult(0, 1))

	applied, err := repo.Decide(context.Background(), "enr-1", models.EnrollmentStatusApproved, "adm-1", decidedAt)
	require.NoError(t, err)
	assert.True(t, applied)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryDecideAlreadyDecided(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	decidedAt := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET status = $2, decided_at = $3, decided_by = $4 WHERE id = $1 AND status = $5")).
		WithArgs("enr-1", models.EnrollmentStatusRejected, decidedAt, "adm-1", models.EnrollmentStatusRequested).
		WillReturnResult(sqlmock.NewResult(0, 0))

	applied, err := repo.Decide(context.Background(), "enr-1", models.EnrollmentStatusRejected, "adm-1", decidedAt)
	require.NoError(t, err)
	assert.False(t, applied)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListPendingByCollege(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{
		"id", "student_id", "course_id", "status", "requested_at", "decided_at", "decided_by",
		"student_name", "student_email", "course_code", "course_name", "credits", "college_id", "department_name",
	}).
		AddRow("enr-1", "stu-1", "course-1", models.EnrollmentStatusRequested, time.Now(), nil, nil,
			"Ada Park", "ada@uni.edu", "CS101", "Intro to Computing", 3, "col-1", "Computer Science")

	mock.ExpectQuery("SELECT e.id, e.student_id, e.course_id, e.status").
		WithArgs("col-1", models.EnrollmentStatusRequested).
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM enrollments e`).
		WithArgs("col-1", models.EnrollmentStatusRequested).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	enrollments, total, err := repo.ListPendingByCollege(context.Background(), models.EnrollmentFilter{CollegeID: "col-1"})
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	assert.Equal(t, "CS101", enrollments[0].CourseCode)
	assert.Equal(t, 7, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListPendingByCollegePaginates(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(`ORDER BY e.requested_at ASC LIMIT 5 OFFSET 10`).
		WithArgs("col-1", models.EnrollmentStatusRequested).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM enrollments e`).
		WithArgs("col-1", models.EnrollmentStatusRequested).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	enrollments, total, err := repo.ListPendingByCollege(context.Background(), models.EnrollmentFilter{
		CollegeID: "col-1",
		Page:      3,
		PageSize:  5,
	})
	require.NoError(t, err)
	assert.Empty(t, enrollments)
	assert.Equal(t, 12, total)
	require.NoError(t, mock.ExpectationsWereMet())
}
