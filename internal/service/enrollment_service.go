package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-admin-api/internal/models"
	appErrors "github.com/noah-isme/campus-admin-api/pkg/errors"
)

type enrollmentLedger interface {
	ReserveSeat(ctx context.Context, enrollment *models.Enrollment) error
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	ExistsActive(ctx context.Context, studentID, courseID string) (bool, error)
	Decide(ctx context.Context, id string, status models.EnrollmentStatus, adminID string, decidedAt time.Time) (bool, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.CourseOffering, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type adminReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// EnrollRequest describes a student's enrollment attempt.
type EnrollRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	CourseID  string `json:"course_id" validate:"required"`
}

// EnrollmentService implements the enrollment workflow: the capacity-checked
// request path and the one-directional approve/reject lifecycle. All identity
// is passed in explicitly; nothing is read from ambient session state.
type EnrollmentService struct {
	ledger    enrollmentLedger
	courses   courseReader
	students  studentReader
	admins    adminReader
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(ledger enrollmentLedger, courses courseReader, students studentReader, admins adminReader, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		ledger:    ledger,
		courses:   courses,
		students:  students,
		admins:    admins,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Request attempts to reserve a seat for the student. The seat is claimed at
// request time: the new record enters REQUESTED, which already counts against
// capacity. The final check-and-insert is atomic in the ledger, so the
// precondition checks here only exist to produce precise error causes early.
func (s *EnrollmentService) Request(ctx context.Context, req EnrollRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "student account is inactive")
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrCourseNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if s.now().UTC().After(course.EndsAt) {
		s.metrics.RecordEnrollmentOutcome("offering_closed")
		return nil, appErrors.ErrOfferingClosed
	}

	exists, err := s.ledger.ExistsActive(ctx, req.StudentID, req.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate enrollment")
	}
	if exists {
		s.metrics.RecordEnrollmentOutcome("duplicate")
		return nil, appErrors.ErrDuplicateEnrollment
	}

	enrollment := &models.Enrollment{
		StudentID:   req.StudentID,
		CourseID:    req.CourseID,
		RequestedAt: s.now().UTC(),
	}
	start := time.Now()
	err = s.ledger.ReserveSeat(ctx, enrollment)
	s.metrics.ObserveDBQuery("reserve_seat", time.Since(start))
	if err != nil {
		switch {
		case errors.Is(err, appErrors.ErrCourseFull):
			s.metrics.RecordEnrollmentOutcome("course_full")
		case errors.Is(err, appErrors.ErrDuplicateEnrollment):
			s.metrics.RecordEnrollmentOutcome("duplicate")
		}
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reserve seat")
	}

	s.metrics.RecordEnrollmentOutcome("reserved")
	s.invalidateSeats(ctx, req.CourseID)
	s.logger.Info("enrollment requested",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("student_id", req.StudentID),
		zap.String("course_id", req.CourseID),
	)

	detail, err := s.ledger.FindDetailByID(ctx, enrollment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}
	return detail, nil
}

// Approve transitions a REQUESTED record to APPROVED. Capacity is not
// re-checked: the seat was reserved when the request was accepted.
func (s *EnrollmentService) Approve(ctx context.Context, recordID, adminID string) (*models.EnrollmentDetail, error) {
	return s.decide(ctx, recordID, adminID, models.EnrollmentStatusApproved)
}

// Reject transitions a REQUESTED record to REJECTED, releasing its seat.
func (s *EnrollmentService) Reject(ctx context.Context, recordID, adminID string) (*models.EnrollmentDetail, error) {
	return s.decide(ctx, recordID, adminID, models.EnrollmentStatusRejected)
}

func (s *EnrollmentService) decide(ctx context.Context, recordID, adminID string, status models.EnrollmentStatus) (*models.EnrollmentDetail, error) {
	detail, err := s.ledger.FindDetailByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment record")
	}

	admin, err := s.admins.FindByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "administrator not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load administrator")
	}
	if admin.Role != models.RoleCollegeAdmin || admin.CollegeID == nil || *admin.CollegeID != detail.CollegeID {
		return nil, appErrors.ErrNotAuthorized
	}

	if detail.Decided() {
		return nil, appErrors.ErrInvalidTransition
	}

	applied, err := s.ledger.Decide(ctx, recordID, status, adminID, s.now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decide enrollment")
	}
	if !applied {
		// Another administrator decided the record between our read and the
		// guarded update; a repeat decision is an error, not a no-op.
		return nil, appErrors.ErrInvalidTransition
	}

	outcome := "approved"
	if status == models.EnrollmentStatusRejected {
		outcome = "rejected"
		s.invalidateSeats(ctx, detail.CourseID)
	}
	s.metrics.RecordEnrollmentOutcome(outcome)
	s.logger.Info("enrollment decided",
		zap.String("enrollment_id", recordID),
		zap.String("admin_id", adminID),
		zap.String("status", string(status)),
	)

	updated, err := s.ledger.FindDetailByID(ctx, recordID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}
	return updated, nil
}

func (s *EnrollmentService) invalidateSeats(ctx context.Context, courseID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("seats:%s", courseID)); err != nil {
		s.logger.Warn("failed to invalidate seat cache", zap.String("course_id", courseID), zap.Error(err))
	}
}
