package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-admin-api/internal/middleware"
	"github.com/noah-isme/campus-admin-api/internal/models"
	"github.com/noah-isme/campus-admin-api/internal/service"
)

type fakeCatalog struct{}

func (f *fakeCatalog) FindByID(ctx context.Context, id string) (*models.CourseOffering, error) {
	return &models.CourseOffering{ID: id, Capacity: 30}, nil
}

func (f *fakeCatalog) ListWithOccupancy(ctx context.Context, filter models.CourseFilter) ([]models.CourseSeats, error) {
	return nil, nil
}

func (f *fakeCatalog) FindDepartment(ctx context.Context, id string) (*models.Department, error) {
	return &models.Department{ID: id}, nil
}

type fakeProjections struct {
	active  []models.EnrollmentDetail
	pending []models.EnrollmentDetail
}

func (f *fakeProjections) ListActiveByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	return f.active, nil
}

func (f *fakeProjections) ListPendingByCollege(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	return f.pending, len(f.pending), nil
}

func (f *fakeProjections) CountReserving(ctx context.Context, courseID string) (int, error) {
	return 0, nil
}

func newQueryHandler(projections *fakeProjections) *EnrollmentHandler {
	queries := service.NewQueryService(&fakeCatalog{}, projections, nil, time.Minute, 20, zap.NewNop())
	return NewEnrollmentHandler(nil, queries)
}

func studentContext(t *testing.T, studentID string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{
		UserID:    "usr-1",
		Role:      models.RoleStudent,
		StudentID: &studentID,
	})
	return c, rec
}

func TestEnrollmentHandlerMyEnrollments(t *testing.T) {
	handler := newQueryHandler(&fakeProjections{active: []models.EnrollmentDetail{
		{Enrollment: models.Enrollment{ID: "enr-1", Status: models.EnrollmentStatusRequested}},
	}})

	c, rec := studentContext(t, "stu-1")
	handler.MyEnrollments(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data []models.EnrollmentDetail `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "enr-1", envelope.Data[0].ID)
}

func TestEnrollmentHandlerMyEnrollmentsWithoutStudentBinding(t *testing.T) {
	handler := newQueryHandler(&fakeProjections{})

	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "usr-1", Role: models.RoleCollegeAdmin})

	handler.MyEnrollments(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEnrollmentHandlerPendingQueuePagination(t *testing.T) {
	handler := newQueryHandler(&fakeProjections{pending: []models.EnrollmentDetail{
		{Enrollment: models.Enrollment{ID: "enr-9", Status: models.EnrollmentStatusRequested}},
	}})

	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=2&page_size=5", nil)
	collegeID := "col-1"
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "usr-2", Role: models.RoleCollegeAdmin, CollegeID: &collegeID})

	handler.PendingQueue(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data       []models.EnrollmentDetail `json:"data"`
		Pagination *models.Pagination        `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 2, envelope.Pagination.Page)
	assert.Equal(t, 5, envelope.Pagination.PageSize)
	assert.Equal(t, 1, envelope.Pagination.TotalCount)
}

func TestEnrollmentHandlerPendingQueueRequiresCollege(t *testing.T) {
	handler := newQueryHandler(&fakeProjections{})

	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	handler.PendingQueue(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
