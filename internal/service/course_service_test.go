package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-admin-api/internal/models"
	appErrors "github.com/noah-isme/campus-admin-api/pkg/errors"
)

type mockCourseStore struct {
	courses     map[string]*models.CourseOffering
	departments map[string]*models.Department
	codes       map[string]bool
	deleted     []string
}

func (m *mockCourseStore) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseOffering, int, error) {
	var list []models.CourseOffering
	for _, c := range m.courses {
		list = append(list, *c)
	}
	return list, len(list), nil
}

func (m *mockCourseStore) FindByID(ctx context.Context, id string) (*models.CourseOffering, error) {
	if c, ok := m.courses[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseStore) ExistsByCode(ctx context.Context, collegeID, code, excludeID string) (bool, error) {
	return m.codes[code], nil
}

func (m *mockCourseStore) Create(ctx context.Context, course *models.CourseOffering) error {
	if course.ID == "" {
		course.ID = "course-new"
	}
	m.courses[course.ID] = course
	return nil
}

func (m *mockCourseStore) Update(ctx context.Context, course *models.CourseOffering) error {
	m.courses[course.ID] = course
	return nil
}

func (m *mockCourseStore) Delete(ctx context.Context, id string) error {
	delete(m.courses, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockCourseStore) FindDepartment(ctx context.Context, id string) (*models.Department, error) {
	if d, ok := m.departments[id]; ok {
		return d, nil
	}
	return nil, sql.ErrNoRows
}

type mockOccupancy struct {
	counts map[string]int
}

func (m *mockOccupancy) CountReserving(ctx context.Context, courseID string) (int, error) {
	return m.counts[courseID], nil
}

func courseFixture(occupied int) (*CourseService, *mockCourseStore) {
	store := &mockCourseStore{
		courses: map[string]*models.CourseOffering{
			"course-1": {
				ID:           "course-1",
				CollegeID:    "col-1",
				DepartmentID: "dep-1",
				Code:         "CS101",
				Name:         "Intro to Computing",
				Credits:      3,
				Capacity:     30,
				StartsAt:     time.Now(),
				EndsAt:       time.Now().Add(90 * 24 * time.Hour),
			},
		},
		departments: map[string]*models.Department{
			"dep-1": {ID: "dep-1", CollegeID: "col-1", Name: "Computer Science"},
		},
		codes: make(map[string]bool),
	}
	occ := &mockOccupancy{counts: map[string]int{"course-1": occupied}}
	return NewCourseService(store, occ, nil, validator.New(), zap.NewNop()), store
}

func courseRequestFixture() CourseRequest {
	return CourseRequest{
		DepartmentID: "dep-1",
		Code:         "CS102",
		Name:         "Data Structures",
		Credits:      4,
		Capacity:     25,
		StartsAt:     time.Now(),
		EndsAt:       time.Now().Add(90 * 24 * time.Hour),
	}
}

func TestCourseServiceCreate(t *testing.T) {
	svc, store := courseFixture(0)

	course, err := svc.Create(context.Background(), "col-1", courseRequestFixture())
	require.NoError(t, err)
	assert.Equal(t, "col-1", course.CollegeID)
	assert.Len(t, store.courses, 2)
}

func TestCourseServiceCreateForeignDepartment(t *testing.T) {
	svc, _ := courseFixture(0)

	_, err := svc.Create(context.Background(), "col-2", courseRequestFixture())
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrNotAuthorized)
}

func TestCourseServiceUpdateCapacityBelowOccupancy(t *testing.T) {
	svc, _ := courseFixture(20)

	req := courseRequestFixture()
	req.Code = "CS101"
	req.Capacity = 10

	_, err := svc.Update(context.Background(), "col-1", "course-1", req)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestCourseServiceUpdateCapacityAtOccupancy(t *testing.T) {
	svc, store := courseFixture(20)

	req := courseRequestFixture()
	req.Code = "CS101"
	req.Capacity = 20

	course, err := svc.Update(context.Background(), "col-1", "course-1", req)
	require.NoError(t, err)
	assert.Equal(t, 20, course.Capacity)
	assert.Equal(t, 20, store.courses["course-1"].Capacity)
}

func TestCourseServiceDeleteWithEnrollments(t *testing.T) {
	svc, _ := courseFixture(3)

	err := svc.Delete(context.Background(), "col-1", "course-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestCourseServiceDeleteEmptyCourse(t *testing.T) {
	svc, store := courseFixture(0)

	err := svc.Delete(context.Background(), "col-1", "course-1")
	require.NoError(t, err)
	assert.Contains(t, store.deleted, "course-1")
}

func TestCourseServiceDeleteForeignCollege(t *testing.T) {
	svc, _ := courseFixture(0)

	err := svc.Delete(context.Background(), "col-2", "course-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrNotAuthorized)
}
