package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-admin-api/internal/service"
	appErrors "github.com/noah-isme/campus-admin-api/pkg/errors"
	"github.com/noah-isme/campus-admin-api/pkg/response"
)

// EnrollmentHandler exposes the enrollment workflow over HTTP: students
// request seats, college administrators work the pending queue.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
	queries     *service.QueryService
}

// NewEnrollmentHandler creates a new handler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService, queries *service.QueryService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments, queries: queries}
}

// Request godoc
// @Summary Request enrollment
// @Description Reserve a seat in a course offering for the authenticated student
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body object{course_id=string} true "Course offering"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /student/enroll [post]
func (h *EnrollmentHandler) Request(c *gin.Context) {
	studentID := studentIDFromContext(c)
	if studentID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		CourseID string `json:"course_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "course_id required"))
		return
	}

	detail, err := h.enrollments.Request(c.Request.Context(), service.EnrollRequest{
		StudentID: studentID,
		CourseID:  payload.CourseID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusCreated, detail, nil)
}

// MyEnrollments godoc
// @Summary List own enrollments
// @Description Returns the authenticated student's requested and approved enrollments
// @Tags Enrollments
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /student/enrollments [get]
func (h *EnrollmentHandler) MyEnrollments(c *gin.Context) {
	studentID := studentIDFromContext(c)
	if studentID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	enrollments, err := h.queries.StudentEnrollments(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, enrollments, nil)
}

// PendingQueue godoc
// @Summary List pending enrollment requests
// @Description Returns the college's REQUESTED enrollments in arrival order
// @Tags Enrollments
// @Produce json
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /college/enrollments/pending [get]
func (h *EnrollmentHandler) PendingQueue(c *gin.Context) {
	collegeID := collegeIDFromContext(c)
	if collegeID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	page, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("page_size"))

	enrollments, pagination, err := h.queries.PendingQueue(c.Request.Context(), collegeID, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, enrollments, pagination)
}

// Approve godoc
// @Summary Approve enrollment request
// @Description Confirm a pending enrollment; the seat was reserved at request time
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /college/enrollments/{id}/approve [post]
func (h *EnrollmentHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	detail, err := h.enrollments.Approve(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}

// Reject godoc
// @Summary Reject enrollment request
// @Description Decline a pending enrollment and release its seat
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /college/enrollments/{id}/reject [post]
func (h *EnrollmentHandler) Reject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	detail, err := h.enrollments.Reject(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}
