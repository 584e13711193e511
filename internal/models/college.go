package models

import "time"

// College is a registered institution owning course offerings.
type College struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Code      string    `db:"code" json:"code"`
	Address   string    `db:"address" json:"address"`
	Email     string    `db:"email" json:"email"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Department groups course offerings inside a college.
type Department struct {
	ID        string    `db:"id" json:"id"`
	CollegeID string    `db:"college_id" json:"college_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CollegeRequestStatus is the lifecycle of a registration request.
type CollegeRequestStatus string

// Possible college request statuses.
const (
	CollegeRequestPending  CollegeRequestStatus = "PENDING"
	CollegeRequestApproved CollegeRequestStatus = "APPROVED"
	CollegeRequestRejected CollegeRequestStatus = "REJECTED"
)

// CollegeRequest is a pending college registration awaiting the
// super-administrator's decision. Approval provisions the college and its
// first administrator account; a decided request is never re-decided.
type CollegeRequest struct {
	ID          string `db:"id" json:"id"`
	CollegeName string `db:"college_name" json:"college_name"`
	CollegeCode string `db:"college_code" json:"college_code"`
	Address     string `db:"address" json:"address"`
	AdminName   string `db:"admin_name" json:"admin_name"`
	AdminEmail  string `db:"admin_email" json:"admin_email"`
	// Password hash captured at registration; the admin account is only
	// provisioned from it once the request is approved.
	AdminPasswordHash string               `db:"admin_password_hash" json:"-"`
	Status            CollegeRequestStatus `db:"status" json:"status"`
	RequestedAt       time.Time            `db:"requested_at" json:"requested_at"`
	DecidedAt         *time.Time           `db:"decided_at" json:"decided_at,omitempty"`
	DecidedBy         *string              `db:"decided_by" json:"decided_by,omitempty"`
}
