package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-admin-api/internal/models"
	appErrors "github.com/noah-isme/campus-admin-api/pkg/errors"
)

// EnrollmentRepository owns the enrollment ledger. Records are appended by
// ReserveSeat, decided exactly once by Decide, and never deleted.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentColumns = `id, student_id, course_id, status, requested_at, decided_at, decided_by`

// ReserveSeat atomically checks capacity and appends a REQUESTED record.
//
// The whole check-and-insert runs in one transaction holding a row lock on the
// course offering, so two concurrent requests for the last seat cannot both
// observe occupancy < capacity. Returns ErrCourseNotFound, ErrCourseFull or
// ErrDuplicateEnrollment without writing anything; on success exactly one row
// is inserted.
func (r *EnrollmentRepository) ReserveSeat(ctx context.Context, enrollment *models.Enrollment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reserve seat: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var capacity int
	if err := tx.GetContext(ctx, &capacity, `SELECT capacity FROM courses WHERE id = $1 FOR UPDATE`, enrollment.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrCourseNotFound
		}
		return fmt.Errorf("lock course row: %w", err)
	}

	// Re-check the duplicate invariant under the same lock; the service's
	// earlier check may have raced with another request by this student.
	dupQuery, dupArgs, err := sqlx.In(
		`SELECT 1 FROM enrollments WHERE student_id = ? AND course_id = ? AND status IN (?) LIMIT 1`,
		enrollment.StudentID, enrollment.CourseID, models.ReservingStatuses)
	if err != nil {
		return fmt.Errorf("build active enrollment query: %w", err)
	}
	var active int
	err = tx.GetContext(ctx, &active, tx.Rebind(dupQuery), dupArgs...)
	if err == nil {
		return appErrors.ErrDuplicateEnrollment
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check active enrollment: %w", err)
	}

	occQuery, occArgs, err := sqlx.In(
		`SELECT COUNT(*) FROM enrollments WHERE course_id = ? AND status IN (?)`,
		enrollment.CourseID, models.ReservingStatuses)
	if err != nil {
		return fmt.Errorf("build occupancy query: %w", err)
	}
	var occupied int
	if err := tx.GetContext(ctx, &occupied, tx.Rebind(occQuery), occArgs...); err != nil {
		return fmt.Errorf("count occupancy: %w", err)
	}
	if occupied >= capacity {
		return appErrors.ErrCourseFull
	}

	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.RequestedAt.IsZero() {
		enrollment.RequestedAt = time.Now().UTC()
	}
	enrollment.Status = models.EnrollmentStatusRequested

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO enrollments (id, student_id, course_id, status, requested_at) VALUES ($1, $2, $3, $4, $5)`,
		enrollment.ID, enrollment.StudentID, enrollment.CourseID, enrollment.Status, enrollment.RequestedAt); err != nil {
		return fmt.Errorf("insert enrollment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reserve seat: %w", err)
	}
	return nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments WHERE id = $1`, enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment joined with student and course context,
// including the course's owning college for authorization checks.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.course_id, e.status, e.requested_at, e.decided_at, e.decided_by,
        s.full_name AS student_name, s.email AS student_email,
        c.code AS course_code, c.name AS course_name, c.credits, c.college_id,
        d.name AS department_name
        FROM enrollments e
        JOIN students s ON s.id = e.student_id
        JOIN courses c ON c.id = e.course_id
        JOIN departments d ON d.id = c.department_id
        WHERE e.id = $1`
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsActive checks whether the student already holds a record in one of the
// reserving statuses for the course.
func (r *EnrollmentRepository) ExistsActive(ctx context.Context, studentID, courseID string) (bool, error) {
	query, args, err := sqlx.In(
		`SELECT 1 FROM enrollments WHERE student_id = ? AND course_id = ? AND status IN (?) LIMIT 1`,
		studentID, courseID, models.ReservingStatuses)
	if err != nil {
		return false, fmt.Errorf("build active enrollment query: %w", err)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, r.db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check active enrollment: %w", err)
	}
	return true, nil
}

// CountReserving returns the occupancy for a course offering.
func (r *EnrollmentRepository) CountReserving(ctx context.Context, courseID string) (int, error) {
	query, args, err := sqlx.In(
		`SELECT COUNT(*) FROM enrollments WHERE course_id = ? AND status IN (?)`,
		courseID, models.ReservingStatuses)
	if err != nil {
		return 0, fmt.Errorf("build occupancy query: %w", err)
	}
	var count int
	if err := r.db.GetContext(ctx, &count, r.db.Rebind(query), args...); err != nil {
		return 0, fmt.Errorf("count reserving enrollments: %w", err)
	}
	return count, nil
}

// Decide applies a terminal status to a still-pending record. The status guard
// in the WHERE clause makes concurrent decisions on the same record safe: the
// second caller affects zero rows and is reported as not applied.
func (r *EnrollmentRepository) Decide(ctx context.Context, id string, status models.EnrollmentStatus, adminID string, decidedAt time.Time) (bool, error) {
	const query = `UPDATE enrollments SET status = $2, decided_at = $3, decided_by = $4 WHERE id = $1 AND status = $5`
	res, err := r.db.ExecContext(ctx, query, id, status, decidedAt, adminID, models.EnrollmentStatusRequested)
	if err != nil {
		return false, fmt.Errorf("decide enrollment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("decide enrollment rows affected: %w", err)
	}
	return affected == 1, nil
}

// ListActiveByStudent returns the student's non-rejected records joined with
// course metadata, newest request first.
func (r *EnrollmentRepository) ListActiveByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.course_id, e.status, e.requested_at, e.decided_at, e.decided_by,
        s.full_name AS student_name, s.email AS student_email,
        c.code AS course_code, c.name AS course_name, c.credits, c.college_id,
        d.name AS department_name
        FROM enrollments e
        JOIN students s ON s.id = e.student_id
        JOIN courses c ON c.id = e.course_id
        JOIN departments d ON d.id = c.department_id
        WHERE e.student_id = $1 AND e.status <> $2
        ORDER BY e.requested_at DESC`
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID, models.EnrollmentStatusRejected); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return enrollments, nil
}

// ListPendingByCollege returns one page of the college's pending records in
// FIFO order so administrators review the oldest request first, together with
// the total count for pagination.
func (r *EnrollmentRepository) ListPendingByCollege(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	status := filter.Status
	if status == "" {
		status = models.EnrollmentStatusRequested
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT e.id, e.student_id, e.course_id, e.status, e.requested_at, e.decided_at, e.decided_by,
        s.full_name AS student_name, s.email AS student_email,
        c.code AS course_code, c.name AS course_name, c.credits, c.college_id,
        d.name AS department_name
        FROM enrollments e
        JOIN students s ON s.id = e.student_id
        JOIN courses c ON c.id = e.course_id
        JOIN departments d ON d.id = c.department_id
        WHERE c.college_id = $1 AND e.status = $2
        ORDER BY e.requested_at ASC LIMIT %d OFFSET %d`, size, offset)
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, filter.CollegeID, status); err != nil {
		return nil, 0, fmt.Errorf("list pending enrollments: %w", err)
	}

	const countQuery = `SELECT COUNT(*) FROM enrollments e
        JOIN courses c ON c.id = e.course_id
        WHERE c.college_id = $1 AND e.status = $2`
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, filter.CollegeID, status); err != nil {
		return nil, 0, fmt.Errorf("count pending enrollments: %w", err)
	}
	return enrollments, total, nil
}
