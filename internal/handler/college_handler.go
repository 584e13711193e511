package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-admin-api/internal/models"
	"github.com/noah-isme/campus-admin-api/internal/service"
	appErrors "github.com/noah-isme/campus-admin-api/pkg/errors"
	"github.com/noah-isme/campus-admin-api/pkg/response"
)

// CollegeHandler serves college registration intake and the
// super-administrator's review endpoints.
type CollegeHandler struct {
	colleges *service.CollegeService
}

// NewCollegeHandler creates a new handler.
func NewCollegeHandler(colleges *service.CollegeService) *CollegeHandler {
	return &CollegeHandler{colleges: colleges}
}

// Register godoc
// @Summary Register college
// @Description Submit a college registration request for review
// @Tags Colleges
// @Accept json
// @Produce json
// @Param payload body service.CollegeRegisterRequest true "Registration payload"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /college/register [post]
func (h *CollegeHandler) Register(c *gin.Context) {
	var req service.CollegeRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}

	request, err := h.colleges.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusAccepted, request, nil)
}

// List godoc
// @Summary List colleges
// @Description Returns all active colleges
// @Tags Colleges
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /colleges [get]
func (h *CollegeHandler) List(c *gin.Context) {
	colleges, err := h.colleges.ListColleges(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, colleges, nil)
}

// ListRequests godoc
// @Summary List registration requests
// @Description Returns college registration requests, optionally filtered by status
// @Tags Colleges
// @Produce json
// @Param status query string false "PENDING, APPROVED or REJECTED"
// @Success 200 {object} response.Envelope
// @Router /superadmin/requests [get]
func (h *CollegeHandler) ListRequests(c *gin.Context) {
	status := models.CollegeRequestStatus(c.Query("status"))
	requests, err := h.colleges.ListRequests(c.Request.Context(), status)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, requests, nil)
}

// ApproveRequest godoc
// @Summary Approve registration request
// @Description Approve a pending request, provisioning the college and its administrator
// @Tags Colleges
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /superadmin/requests/{id}/approve [post]
func (h *CollegeHandler) ApproveRequest(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	college, err := h.colleges.Approve(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, college, nil)
}

// RejectRequest godoc
// @Summary Reject registration request
// @Description Decline a pending college registration request
// @Tags Colleges
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /superadmin/requests/{id}/reject [post]
func (h *CollegeHandler) RejectRequest(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	request, err := h.colleges.Reject(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, request, nil)
}
