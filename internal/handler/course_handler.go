package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-admin-api/internal/models"
	"github.com/noah-isme/campus-admin-api/internal/service"
	appErrors "github.com/noah-isme/campus-admin-api/pkg/errors"
	"github.com/noah-isme/campus-admin-api/pkg/response"
)

// CourseHandler serves course browsing for students and course management for
// college administrators.
type CourseHandler struct {
	courses *service.CourseService
	queries *service.QueryService
}

// NewCourseHandler creates a new handler.
func NewCourseHandler(courses *service.CourseService, queries *service.QueryService) *CourseHandler {
	return &CourseHandler{courses: courses, queries: queries}
}

// Browse godoc
// @Summary Browse course offerings
// @Description List course offerings with live seat availability
// @Tags Courses
// @Produce json
// @Param college_id query string false "Filter by college"
// @Param department_id query string false "Filter by department"
// @Param search query string false "Search by name or code"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) Browse(c *gin.Context) {
	filter := models.CourseFilter{
		CollegeID:    c.Query("college_id"),
		DepartmentID: c.Query("department_id"),
		Search:       c.Query("search"),
	}

	courses, err := h.queries.BrowseCourses(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, courses, nil)
}

// Seats godoc
// @Summary Get seat availability
// @Description Returns occupancy and remaining seats for one course offering
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/seats [get]
func (h *CourseHandler) Seats(c *gin.Context) {
	seats, err := h.queries.SeatsRemaining(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, seats, nil)
}

// ListOwn godoc
// @Summary List college courses
// @Description List the administrator's college course offerings
// @Tags Courses
// @Produce json
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /college/courses [get]
func (h *CourseHandler) ListOwn(c *gin.Context) {
	collegeID := collegeIDFromContext(c)
	if collegeID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	filter := models.CourseFilter{
		CollegeID: collegeID,
		Search:    c.Query("search"),
		Page:      page,
		PageSize:  pageSize,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	courses, pagination, err := h.courses.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, courses, pagination)
}

// Create godoc
// @Summary Create course offering
// @Description Add a new course offering under the administrator's college
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body service.CourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /college/courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	collegeID := collegeIDFromContext(c)
	if collegeID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid course payload"))
		return
	}

	course, err := h.courses.Create(c.Request.Context(), collegeID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusCreated, course, nil)
}

// Update godoc
// @Summary Update course offering
// @Description Modify a course offering; capacity cannot drop below occupancy
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body service.CourseRequest true "Course payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /college/courses/{id} [put]
func (h *CourseHandler) Update(c *gin.Context) {
	collegeID := collegeIDFromContext(c)
	if collegeID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid course payload"))
		return
	}

	course, err := h.courses.Update(c.Request.Context(), collegeID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, course, nil)
}

// Delete godoc
// @Summary Delete course offering
// @Description Remove a course offering with no active enrollments
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /college/courses/{id} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	collegeID := collegeIDFromContext(c)
	if collegeID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.courses.Delete(c.Request.Context(), collegeID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
