package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-admin-api/internal/models"
)

// CollegeRepository manages colleges and their registration requests.
type CollegeRepository struct {
	db *sqlx.DB
}

// NewCollegeRepository constructs a new college repository.
func NewCollegeRepository(db *sqlx.DB) *CollegeRepository {
	return &CollegeRepository{db: db}
}

// FindByID returns a college by ID.
func (r *CollegeRepository) FindByID(ctx context.Context, id string) (*models.College, error) {
	const query = `SELECT id, name, code, address, email, active, created_at, updated_at FROM colleges WHERE id = $1`
	var college models.College
	if err := r.db.GetContext(ctx, &college, query, id); err != nil {
		return nil, err
	}
	return &college, nil
}

// ListActive returns all active colleges ordered by name.
func (r *CollegeRepository) ListActive(ctx context.Context) ([]models.College, error) {
	const query = `SELECT id, name, code, address, email, active, created_at, updated_at FROM colleges WHERE active = TRUE ORDER BY name ASC`
	var colleges []models.College
	if err := r.db.SelectContext(ctx, &colleges, query); err != nil {
		return nil, fmt.Errorf("list colleges: %w", err)
	}
	return colleges, nil
}

// Create persists a college record.
func (r *CollegeRepository) Create(ctx context.Context, college *models.College) error {
	if college.ID == "" {
		college.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if college.CreatedAt.IsZero() {
		college.CreatedAt = now
	}
	college.UpdatedAt = now

	const query = `INSERT INTO colleges (id, name, code, address, email, active, created_at, updated_at)
        VALUES (:id, :name, :code, :address, :email, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, college); err != nil {
		return fmt.Errorf("create college: %w", err)
	}
	return nil
}

// ExistsByCode checks whether a college code is already taken, either by a
// registered college or a still-pending request.
func (r *CollegeRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	const query = `SELECT 1 FROM colleges WHERE LOWER(code) = LOWER($1)
        UNION SELECT 1 FROM college_requests WHERE LOWER(college_code) = LOWER($1) AND status = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, code, models.CollegeRequestPending); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check college code: %w", err)
	}
	return true, nil
}

// CreateRequest persists a college registration request.
func (r *CollegeRepository) CreateRequest(ctx context.Context, req *models.CollegeRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now().UTC()
	}
	if req.Status == "" {
		req.Status = models.CollegeRequestPending
	}
	const query = `INSERT INTO college_requests (id, college_name, college_code, address, admin_name, admin_email, admin_password_hash, status, requested_at)
        VALUES (:id, :college_name, :college_code, :address, :admin_name, :admin_email, :admin_password_hash, :status, :requested_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create college request: %w", err)
	}
	return nil
}

// FindRequestByID returns a registration request by ID.
func (r *CollegeRepository) FindRequestByID(ctx context.Context, id string) (*models.CollegeRequest, error) {
	const query = `SELECT id, college_name, college_code, address, admin_name, admin_email, admin_password_hash, status, requested_at, decided_at, decided_by
        FROM college_requests WHERE id = $1`
	var req models.CollegeRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// ListRequests returns registration requests, optionally filtered by status,
// oldest first.
func (r *CollegeRepository) ListRequests(ctx context.Context, status models.CollegeRequestStatus) ([]models.CollegeRequest, error) {
	query := `SELECT id, college_name, college_code, address, admin_name, admin_email, admin_password_hash, status, requested_at, decided_at, decided_by
        FROM college_requests`
	var args []interface{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY requested_at ASC`

	var requests []models.CollegeRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("list college requests: %w", err)
	}
	return requests, nil
}

// DecideRequest applies a terminal status to a still-pending request. Mirrors
// the enrollment ledger's guard: zero rows affected means the request was
// already decided.
func (r *CollegeRepository) DecideRequest(ctx context.Context, id string, status models.CollegeRequestStatus, adminID string, decidedAt time.Time) (bool, error) {
	const query = `UPDATE college_requests SET status = $2, decided_at = $3, decided_by = $4 WHERE id = $1 AND status = $5`
	res, err := r.db.ExecContext(ctx, query, id, status, decidedAt, adminID, models.CollegeRequestPending)
	if err != nil {
		return false, fmt.Errorf("decide college request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("decide college request rows affected: %w", err)
	}
	return affected == 1, nil
}
