package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-admin-api/internal/models"
	appErrors "github.com/noah-isme/campus-admin-api/pkg/errors"
)

type mockCourseCatalog struct {
	courses  map[string]*models.CourseOffering
	occupied map[string]int
}

func (m *mockCourseCatalog) FindByID(ctx context.Context, id string) (*models.CourseOffering, error) {
	if c, ok := m.courses[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseCatalog) ListWithOccupancy(ctx context.Context, filter models.CourseFilter) ([]models.CourseSeats, error) {
	var list []models.CourseSeats
	for _, c := range m.courses {
		list = append(list, models.CourseSeats{CourseOffering: *c, Occupied: m.occupied[c.ID]})
	}
	return list, nil
}

func (m *mockCourseCatalog) FindDepartment(ctx context.Context, id string) (*models.Department, error) {
	return &models.Department{ID: id, Name: "Computer Science"}, nil
}

type mockProjections struct {
	occupied   map[string]int
	active     []models.EnrollmentDetail
	pending    []models.EnrollmentDetail
	lastFilter models.EnrollmentFilter
}

func (m *mockProjections) ListActiveByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	return m.active, nil
}

func (m *mockProjections) ListPendingByCollege(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	m.lastFilter = filter
	return m.pending, len(m.pending), nil
}

func (m *mockProjections) CountReserving(ctx context.Context, courseID string) (int, error) {
	return m.occupied[courseID], nil
}

func TestQueryServiceSeatsRemaining(t *testing.T) {
	catalog := &mockCourseCatalog{courses: map[string]*models.CourseOffering{
		"course-1": {ID: "course-1", DepartmentID: "dep-1", Capacity: 30},
	}}
	projections := &mockProjections{occupied: map[string]int{"course-1": 12}}
	svc := NewQueryService(catalog, projections, nil, time.Minute, 20, zap.NewNop())

	seats, err := svc.SeatsRemaining(context.Background(), "course-1")
	require.NoError(t, err)
	assert.Equal(t, 12, seats.Occupied)
	assert.Equal(t, 18, seats.SeatsRemaining)
	assert.Equal(t, "Computer Science", seats.DepartmentName)
}

func TestQueryServiceSeatsRemainingUnknownCourse(t *testing.T) {
	svc := NewQueryService(&mockCourseCatalog{}, &mockProjections{}, nil, time.Minute, 20, zap.NewNop())

	_, err := svc.SeatsRemaining(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrCourseNotFound)
}

func TestQueryServiceSeatsRemainingNeverNegative(t *testing.T) {
	// Capacity lowered after seats were taken; the projection clamps at zero.
	catalog := &mockCourseCatalog{courses: map[string]*models.CourseOffering{
		"course-1": {ID: "course-1", DepartmentID: "dep-1", Capacity: 10},
	}}
	projections := &mockProjections{occupied: map[string]int{"course-1": 14}}
	svc := NewQueryService(catalog, projections, nil, time.Minute, 20, zap.NewNop())

	seats, err := svc.SeatsRemaining(context.Background(), "course-1")
	require.NoError(t, err)
	assert.Equal(t, 0, seats.SeatsRemaining)
}

func TestQueryServiceBrowseCourses(t *testing.T) {
	catalog := &mockCourseCatalog{
		courses: map[string]*models.CourseOffering{
			"course-1": {ID: "course-1", Capacity: 25},
		},
		occupied: map[string]int{"course-1": 5},
	}
	svc := NewQueryService(catalog, &mockProjections{}, nil, time.Minute, 20, zap.NewNop())

	courses, err := svc.BrowseCourses(context.Background(), models.CourseFilter{})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, 20, courses[0].SeatsRemaining)
}

func TestQueryServicePendingQueue(t *testing.T) {
	projections := &mockProjections{pending: []models.EnrollmentDetail{
		{Enrollment: models.Enrollment{ID: "enr-1", Status: models.EnrollmentStatusRequested}},
		{Enrollment: models.Enrollment{ID: "enr-2", Status: models.EnrollmentStatusRequested}},
	}}
	svc := NewQueryService(&mockCourseCatalog{}, projections, nil, time.Minute, 20, zap.NewNop())

	queue, pagination, err := svc.PendingQueue(context.Background(), "col-1", 2, 10)
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, "enr-1", queue[0].ID)
	require.NotNil(t, pagination)
	assert.Equal(t, 2, pagination.Page)
	assert.Equal(t, 10, pagination.PageSize)
	assert.Equal(t, 2, pagination.TotalCount)
	assert.Equal(t, models.EnrollmentStatusRequested, projections.lastFilter.Status)
	assert.Equal(t, "col-1", projections.lastFilter.CollegeID)
}

func TestQueryServicePendingQueueDefaultPageSize(t *testing.T) {
	projections := &mockProjections{}
	svc := NewQueryService(&mockCourseCatalog{}, projections, nil, time.Minute, 15, zap.NewNop())

	_, pagination, err := svc.PendingQueue(context.Background(), "col-1", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 15, pagination.PageSize)
	assert.Equal(t, 15, projections.lastFilter.PageSize)
}
