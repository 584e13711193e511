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

type studentStore interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
}

type collegeReader interface {
	FindByID(ctx context.Context, id string) (*models.College, error)
}

// StudentRegisterRequest is the payload for student self-registration.
type StudentRegisterRequest struct {
	CollegeID string `json:"college_id" validate:"required"`
	FullName  string `json:"full_name" validate:"required,min=2,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"omitempty,min=7,max=20"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
}

// StudentProfileUpdate is the payload for profile edits.
type StudentProfileUpdate struct {
	FullName string `json:"full_name" validate:"required,min=2,max=100"`
	Phone    string `json:"phone" validate:"omitempty,min=7,max=20"`
}

// StudentService handles student self-registration and profile management.
type StudentService struct {
	students  studentStore
	colleges  collegeReader
	accounts  accountProvisioner
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(students studentStore, colleges collegeReader, accounts accountProvisioner, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		students:  students,
		colleges:  colleges,
		accounts:  accounts,
		validator: validate,
		logger:    logger,
	}
}

// Register creates a student account under an active college. The login user
// and the student record are provisioned together.
func (s *StudentService) Register(ctx context.Context, req StudentRegisterRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	college, err := s.colleges.FindByID(ctx, req.CollegeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "college not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load college")
	}
	if !college.Active {
		return nil, appErrors.Clone(appErrors.ErrConflict, "college is not accepting registrations")
	}

	used, err := s.accounts.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}
	if used {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email is already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         models.RoleStudent,
		Active:       true,
	}
	if err := s.accounts.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create account")
	}

	student := &models.Student{
		UserID:    user.ID,
		CollegeID: req.CollegeID,
		FullName:  req.FullName,
		Email:     req.Email,
		Phone:     req.Phone,
		Active:    true,
	}
	if err := s.students.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student record")
	}

	s.logger.Info("student registered",
		zap.String("student_id", student.ID),
		zap.String("college_id", student.CollegeID),
	)
	return student, nil
}

// Profile returns the student record.
func (s *StudentService) Profile(ctx context.Context, studentID string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// UpdateProfile applies profile edits to the student record.
func (s *StudentService) UpdateProfile(ctx context.Context, studentID string, req StudentProfileUpdate) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	student, err := s.Profile(ctx, studentID)
	if err != nil {
		return nil, err
	}

	student.FullName = req.FullName
	student.Phone = req.Phone
	student.UpdatedAt = time.Now().UTC()
	if err := s.students.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}
