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
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/campus-admin-api/internal/models"
	appErrors "github.com/noah-isme/campus-admin-api/pkg/errors"
)

type mockCollegeStore struct {
	colleges map[string]*models.College
	requests map[string]*models.CollegeRequest
	codes    map[string]bool
	created  []*models.College
}

func newMockCollegeStore() *mockCollegeStore {
	return &mockCollegeStore{
		colleges: make(map[string]*models.College),
		requests: make(map[string]*models.CollegeRequest),
		codes:    make(map[string]bool),
	}
}

func (m *mockCollegeStore) FindByID(ctx context.Context, id string) (*models.College, error) {
	if c, ok := m.colleges[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCollegeStore) ListActive(ctx context.Context) ([]models.College, error) {
	var list []models.College
	for _, c := range m.colleges {
		if c.Active {
			list = append(list, *c)
		}
	}
	return list, nil
}

func (m *mockCollegeStore) Create(ctx context.Context, college *models.College) error {
	if college.ID == "" {
		college.ID = "col-new"
	}
	m.colleges[college.ID] = college
	m.created = append(m.created, college)
	return nil
}

func (m *mockCollegeStore) ExistsByCode(ctx context.Context, code string) (bool, error) {
	return m.codes[code], nil
}

func (m *mockCollegeStore) CreateRequest(ctx context.Context, req *models.CollegeRequest) error {
	if req.ID == "" {
		req.ID = "req-new"
	}
	m.requests[req.ID] = req
	m.codes[req.CollegeCode] = true
	return nil
}

func (m *mockCollegeStore) FindRequestByID(ctx context.Context, id string) (*models.CollegeRequest, error) {
	if r, ok := m.requests[id]; ok {
		return r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCollegeStore) ListRequests(ctx context.Context, status models.CollegeRequestStatus) ([]models.CollegeRequest, error) {
	var list []models.CollegeRequest
	for _, r := range m.requests {
		if status == "" || r.Status == status {
			list = append(list, *r)
		}
	}
	return list, nil
}

func (m *mockCollegeStore) DecideRequest(ctx context.Context, id string, status models.CollegeRequestStatus, adminID string, decidedAt time.Time) (bool, error) {
	r, ok := m.requests[id]
	if !ok || r.Status != models.CollegeRequestPending {
		return false, nil
	}
	r.Status = status
	r.DecidedAt = &decidedAt
	r.DecidedBy = &adminID
	return true, nil
}

type mockAccounts struct {
	emails  map[string]bool
	created []*models.User
}

func (m *mockAccounts) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return m.emails[email], nil
}

func (m *mockAccounts) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "usr-new"
	}
	if m.emails == nil {
		m.emails = make(map[string]bool)
	}
	m.emails[user.Email] = true
	m.created = append(m.created, user)
	return nil
}

func collegeFixture() (*CollegeService, *mockCollegeStore, *mockAccounts) {
	store := newMockCollegeStore()
	accounts := &mockAccounts{emails: make(map[string]bool)}
	svc := NewCollegeService(store, accounts, validator.New(), zap.NewNop())
	return svc, store, accounts
}

func validCollegeRequest() CollegeRegisterRequest {
	return CollegeRegisterRequest{
		CollegeName:   "Institute of Technology",
		CollegeCode:   "IOT",
		Address:       "1 Campus Way",
		AdminName:     "Dana Morgan",
		AdminEmail:    "dana@iot.edu",
		AdminPassword: "verysecret1",
	}
}

func TestCollegeServiceRegister(t *testing.T) {
	svc, store, _ := collegeFixture()

	request, err := svc.Register(context.Background(), validCollegeRequest())
	require.NoError(t, err)
	assert.Equal(t, models.CollegeRequestPending, request.Status)
	assert.NotEmpty(t, request.AdminPasswordHash)
	assert.NotEqual(t, "verysecret1", request.AdminPasswordHash)
	assert.Len(t, store.requests, 1)
}

func TestCollegeServiceRegisterDuplicateCode(t *testing.T) {
	svc, store, _ := collegeFixture()
	store.codes["IOT"] = true

	_, err := svc.Register(context.Background(), validCollegeRequest())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestCollegeServiceApproveProvisionsAdmin(t *testing.T) {
	svc, store, accounts := collegeFixture()

	request, err := svc.Register(context.Background(), validCollegeRequest())
	require.NoError(t, err)

	college, err := svc.Approve(context.Background(), request.ID, "super-1")
	require.NoError(t, err)
	assert.True(t, college.Active)
	assert.Equal(t, "IOT", college.Code)

	require.Len(t, accounts.created, 1)
	admin := accounts.created[0]
	assert.Equal(t, models.RoleCollegeAdmin, admin.Role)
	require.NotNil(t, admin.CollegeID)
	assert.Equal(t, college.ID, *admin.CollegeID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("verysecret1")))

	assert.Equal(t, models.CollegeRequestApproved, store.requests[request.ID].Status)
}

func TestCollegeServiceDecideIsTerminal(t *testing.T) {
	svc, _, _ := collegeFixture()

	request, err := svc.Register(context.Background(), validCollegeRequest())
	require.NoError(t, err)

	_, err = svc.Reject(context.Background(), request.ID, "super-1")
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), request.ID, "super-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
}

func TestCollegeServiceApproveUnknownRequest(t *testing.T) {
	svc, _, _ := collegeFixture()

	_, err := svc.Approve(context.Background(), "missing", "super-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
