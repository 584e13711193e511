package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-admin-api/internal/models"
	appErrors "github.com/noah-isme/campus-admin-api/pkg/errors"
)

type courseCatalog interface {
	FindByID(ctx context.Context, id string) (*models.CourseOffering, error)
	ListWithOccupancy(ctx context.Context, filter models.CourseFilter) ([]models.CourseSeats, error)
	FindDepartment(ctx context.Context, id string) (*models.Department, error)
}

type enrollmentProjections interface {
	ListActiveByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
	ListPendingByCollege(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	CountReserving(ctx context.Context, courseID string) (int, error)
}

// QueryService serves the read-side projections: course browsing with seat
// availability, a student's own records and a college's pending review queue.
// Seat counts may be served from cache and can lag the ledger slightly; the
// write path never consults them.
type QueryService struct {
	courses         courseCatalog
	enrollments     enrollmentProjections
	cache           *CacheService
	seatTTL         time.Duration
	pendingPageSize int
	logger          *zap.Logger
}

// NewQueryService constructs QueryService. pendingPageSize is the page size
// used for the pending queue when the caller does not request one.
func NewQueryService(courses courseCatalog, enrollments enrollmentProjections, cache *CacheService, seatTTL time.Duration, pendingPageSize int, logger *zap.Logger) *QueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pendingPageSize <= 0 {
		pendingPageSize = 20
	}
	return &QueryService{
		courses:         courses,
		enrollments:     enrollments,
		cache:           cache,
		seatTTL:         seatTTL,
		pendingPageSize: pendingPageSize,
		logger:          logger,
	}
}

// BrowseCourses lists course offerings with live occupancy and derived seat
// availability. Remaining seats never go below zero in the projection even if
// capacity was lowered after seats were taken.
func (s *QueryService) BrowseCourses(ctx context.Context, filter models.CourseFilter) ([]models.CourseSeats, error) {
	courses, err := s.courses.ListWithOccupancy(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	for i := range courses {
		courses[i].SeatsRemaining = remaining(courses[i].Capacity, courses[i].Occupied)
	}
	return courses, nil
}

// SeatsRemaining returns the seat availability for one course offering,
// served from cache when fresh enough.
func (s *QueryService) SeatsRemaining(ctx context.Context, courseID string) (*models.CourseSeats, error) {
	cacheKey := fmt.Sprintf("seats:%s", courseID)
	if s.cache != nil {
		var cached models.CourseSeats
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrCourseNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	occupied, err := s.enrollments.CountReserving(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count occupancy")
	}

	seats := &models.CourseSeats{
		CourseOffering: *course,
		Occupied:       occupied,
		SeatsRemaining: remaining(course.Capacity, occupied),
	}
	if dept, err := s.courses.FindDepartment(ctx, course.DepartmentID); err == nil {
		seats.DepartmentName = dept.Name
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, seats, s.seatTTL); err != nil {
			s.logger.Warn("failed to cache seat count", zap.String("course_id", courseID), zap.Error(err))
		}
	}
	return seats, nil
}

// StudentEnrollments returns the student's REQUESTED and APPROVED records,
// newest request first.
func (s *QueryService) StudentEnrollments(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	enrollments, err := s.enrollments.ListActiveByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, nil
}

// PendingQueue returns one page of the college's REQUESTED records in arrival
// order, with pagination metadata for the response envelope.
func (s *QueryService) PendingQueue(ctx context.Context, collegeID string, page, pageSize int) ([]models.EnrollmentDetail, *models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.pendingPageSize
	}
	if pageSize > 100 {
		pageSize = 100
	}

	enrollments, total, err := s.enrollments.ListPendingByCollege(ctx, models.EnrollmentFilter{
		CollegeID: collegeID,
		Status:    models.EnrollmentStatusRequested,
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending enrollments")
	}
	return enrollments, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

func remaining(capacity, occupied int) int {
	if occupied >= capacity {
		return 0
	}
	return capacity - occupied
}
