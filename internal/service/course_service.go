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

type courseStore interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseOffering, int, error)
	FindByID(ctx context.Context, id string) (*models.CourseOffering, error)
	ExistsByCode(ctx context.Context, collegeID, code, excludeID string) (bool, error)
	Create(ctx context.Context, course *models.CourseOffering) error
	Update(ctx context.Context, course *models.CourseOffering) error
	Delete(ctx context.Context, id string) error
	FindDepartment(ctx context.Context, id string) (*models.Department, error)
}

type occupancyCounter interface {
	CountReserving(ctx context.Context, courseID string) (int, error)
}

// CourseRequest is the payload for creating or updating a course offering.
type CourseRequest struct {
	DepartmentID string    `json:"department_id" validate:"required"`
	Code         string    `json:"code" validate:"required,min=2,max=16"`
	Name         string    `json:"name" validate:"required,min=3,max=150"`
	Credits      int       `json:"credits" validate:"required,min=1,max=10"`
	Capacity     int       `json:"capacity" validate:"required,min=1"`
	StartsAt     time.Time `json:"starts_at" validate:"required"`
	EndsAt       time.Time `json:"ends_at" validate:"required,gtfield=StartsAt"`
}

// CourseService provides course offering management for college
// administrators. Every mutation is scoped to the administrator's college.
type CourseService struct {
	courses   courseStore
	occupancy occupancyCounter
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs CourseService.
func NewCourseService(courses courseStore, occupancy occupancyCounter, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{
		courses:   courses,
		occupancy: occupancy,
		cache:     cache,
		validator: validate,
		logger:    logger,
	}
}

// List returns course offerings with pagination metadata.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseOffering, *models.Pagination, error) {
	courses, total, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return courses, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one course offering.
func (s *CourseService) Get(ctx context.Context, id string) (*models.CourseOffering, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrCourseNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create adds a new course offering under the administrator's college.
func (s *CourseService) Create(ctx context.Context, collegeID string, req CourseRequest) (*models.CourseOffering, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	dept, err := s.courses.FindDepartment(ctx, req.DepartmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
	}
	if dept.CollegeID != collegeID {
		return nil, appErrors.ErrNotAuthorized
	}

	taken, err := s.courses.ExistsByCode(ctx, collegeID, req.Code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course code")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course code is already in use")
	}

	course := &models.CourseOffering{
		CollegeID:    collegeID,
		DepartmentID: req.DepartmentID,
		Code:         req.Code,
		Name:         req.Name,
		Credits:      req.Credits,
		Capacity:     req.Capacity,
		StartsAt:     req.StartsAt,
		EndsAt:       req.EndsAt,
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}

	s.logger.Info("course created",
		zap.String("course_id", course.ID),
		zap.String("college_id", collegeID),
		zap.String("code", course.Code),
	)
	return course, nil
}

// Update modifies a course offering. Capacity can never be lowered below the
// current occupancy; seats already reserved stay reserved.
func (s *CourseService) Update(ctx context.Context, collegeID, courseID string, req CourseRequest) (*models.CourseOffering, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course, err := s.ownedCourse(ctx, collegeID, courseID)
	if err != nil {
		return nil, err
	}

	occupied, err := s.occupancy.CountReserving(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count occupancy")
	}
	if req.Capacity < occupied {
		return nil, appErrors.Clone(appErrors.ErrConflict,
			fmt.Sprintf("capacity %d is below current occupancy %d", req.Capacity, occupied))
	}

	if req.Code != course.Code {
		taken, err := s.courses.ExistsByCode(ctx, collegeID, req.Code, courseID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course code")
		}
		if taken {
			return nil, appErrors.Clone(appErrors.ErrConflict, "course code is already in use")
		}
	}

	course.Code = req.Code
	course.Name = req.Name
	course.Credits = req.Credits
	course.Capacity = req.Capacity
	course.StartsAt = req.StartsAt
	course.EndsAt = req.EndsAt
	if err := s.courses.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}

	s.invalidateSeats(ctx, courseID)
	s.logger.Info("course updated", zap.String("course_id", courseID), zap.Int("capacity", course.Capacity))
	return course, nil
}

// Delete removes a course offering with no active enrollments.
func (s *CourseService) Delete(ctx context.Context, collegeID, courseID string) error {
	if _, err := s.ownedCourse(ctx, collegeID, courseID); err != nil {
		return err
	}

	occupied, err := s.occupancy.CountReserving(ctx, courseID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count occupancy")
	}
	if occupied > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "course has active enrollments")
	}

	if err := s.courses.Delete(ctx, courseID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}

	s.invalidateSeats(ctx, courseID)
	s.logger.Info("course deleted", zap.String("course_id", courseID))
	return nil
}

func (s *CourseService) ownedCourse(ctx context.Context, collegeID, courseID string) (*models.CourseOffering, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrCourseNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.CollegeID != collegeID {
		return nil, appErrors.ErrNotAuthorized
	}
	return course, nil
}

func (s *CourseService) invalidateSeats(ctx context.Context, courseID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("seats:%s", courseID)); err != nil {
		s.logger.Warn("failed to invalidate seat cache", zap.String("course_id", courseID), zap.Error(err))
	}
}
