package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/campus-admin-api/internal/models"
	appErrors "github.com/noah-isme/campus-admin-api/pkg/errors"
)

type collegeStore interface {
	FindByID(ctx context.Context, id string) (*models.College, error)
	ListActive(ctx context.Context) ([]models.College, error)
	Create(ctx context.Context, college *models.College) error
	ExistsByCode(ctx context.Context, code string) (bool, error)
	CreateRequest(ctx context.Context, req *models.CollegeRequest) error
	FindRequestByID(ctx context.Context, id string) (*models.CollegeRequest, error)
	ListRequests(ctx context.Context, status models.CollegeRequestStatus) ([]models.CollegeRequest, error)
	DecideRequest(ctx context.Context, id string, status models.CollegeRequestStatus, adminID string, decidedAt time.Time) (bool, error)
}

type accountProvisioner interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *models.User) error
}

// CollegeRegisterRequest is the payload for a college registration request.
type CollegeRegisterRequest struct {
	CollegeName   string `json:"college_name" validate:"required,min=3,max=120"`
	CollegeCode   string `json:"college_code" validate:"required,alphanum,min=2,max=16"`
	Address       string `json:"address" validate:"required,max=255"`
	AdminName     string `json:"admin_name" validate:"required,min=2,max=100"`
	AdminEmail    string `json:"admin_email" validate:"required,email"`
	AdminPassword string `json:"admin_password" validate:"required,min=8,max=72"`
}

// CollegeService handles college registration intake and the
// super-administrator's approval workflow. Approval provisions the college
// record and its first administrator account in one pass.
type CollegeService struct {
	colleges  collegeStore
	accounts  accountProvisioner
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewCollegeService constructs CollegeService.
func NewCollegeService(colleges collegeStore, accounts accountProvisioner, validate *validator.Validate, logger *zap.Logger) *CollegeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CollegeService{
		colleges:  colleges,
		accounts:  accounts,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Register records a college registration request. The admin password is
// hashed immediately; the plaintext never leaves this call.
func (s *CollegeService) Register(ctx context.Context, req CollegeRegisterRequest) (*models.CollegeRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	taken, err := s.colleges.ExistsByCode(ctx, req.CollegeCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check college code")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "college code is already in use")
	}

	used, err := s.accounts.ExistsByEmail(ctx, req.AdminEmail)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check admin email")
	}
	if used {
		return nil, appErrors.Clone(appErrors.ErrConflict, "admin email is already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	request := &models.CollegeRequest{
		CollegeName:       req.CollegeName,
		CollegeCode:       req.CollegeCode,
		Address:           req.Address,
		AdminName:         req.AdminName,
		AdminEmail:        req.AdminEmail,
		AdminPasswordHash: string(hash),
		Status:            models.CollegeRequestPending,
		RequestedAt:       s.now().UTC(),
	}
	if err := s.colleges.CreateRequest(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store registration request")
	}

	s.logger.Info("college registration requested",
		zap.String("request_id", request.ID),
		zap.String("college_code", request.CollegeCode),
	)
	return request, nil
}

// ListRequests returns registration requests, optionally filtered by status.
func (s *CollegeService) ListRequests(ctx context.Context, status models.CollegeRequestStatus) ([]models.CollegeRequest, error) {
	requests, err := s.colleges.ListRequests(ctx, status)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list registration requests")
	}
	return requests, nil
}

// ListColleges returns all active colleges.
func (s *CollegeService) ListColleges(ctx context.Context) ([]models.College, error) {
	colleges, err := s.colleges.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list colleges")
	}
	return colleges, nil
}

// Approve accepts a pending registration request, creating the college and its
// administrator account. A request already decided is rejected with
// INVALID_TRANSITION regardless of which terminal state it holds.
func (s *CollegeService) Approve(ctx context.Context, requestID, adminID string) (*models.College, error) {
	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	applied, err := s.colleges.DecideRequest(ctx, requestID, models.CollegeRequestApproved, adminID, s.now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decide registration request")
	}
	if !applied {
		return nil, appErrors.ErrInvalidTransition
	}

	college := &models.College{
		Name:    request.CollegeName,
		Code:    request.CollegeCode,
		Address: request.Address,
		Email:   request.AdminEmail,
		Active:  true,
	}
	if err := s.colleges.Create(ctx, college); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create college")
	}

	admin := &models.User{
		Email:        request.AdminEmail,
		PasswordHash: request.AdminPasswordHash,
		FullName:     request.AdminName,
		Role:         models.RoleCollegeAdmin,
		CollegeID:    &college.ID,
		Active:       true,
	}
	if err := s.accounts.Create(ctx, admin); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to provision college administrator")
	}

	s.logger.Info("college registration approved",
		zap.String("request_id", requestID),
		zap.String("college_id", college.ID),
		zap.String("admin_id", admin.ID),
	)
	return college, nil
}

// Reject declines a pending registration request.
func (s *CollegeService) Reject(ctx context.Context, requestID, adminID string) (*models.CollegeRequest, error) {
	if _, err := s.loadRequest(ctx, requestID); err != nil {
		return nil, err
	}

	applied, err := s.colleges.DecideRequest(ctx, requestID, models.CollegeRequestRejected, adminID, s.now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decide registration request")
	}
	if !applied {
		return nil, appErrors.ErrInvalidTransition
	}

	s.logger.Info("college registration rejected", zap.String("request_id", requestID))
	return s.loadRequest(ctx, requestID)
}

func (s *CollegeService) loadRequest(ctx context.Context, id string) (*models.CollegeRequest, error) {
	request, err := s.colleges.FindRequestByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration request")
	}
	return request, nil
}
