package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment record.
type EnrollmentStatus string

// Possible enrollment statuses. REQUESTED and APPROVED both count against the
// course capacity (a request reserves its seat); REJECTED records remain for
// audit but release the seat.
const (
	EnrollmentStatusRequested EnrollmentStatus = "REQUESTED"
	EnrollmentStatusApproved  EnrollmentStatus = "APPROVED"
	EnrollmentStatusRejected  EnrollmentStatus = "REJECTED"
)

// ReservingStatuses is the set of statuses counted toward occupancy.
var ReservingStatuses = []EnrollmentStatus{EnrollmentStatusRequested, EnrollmentStatusApproved}

// Enrollment is one student's claim against a course offering's capacity.
// Records are appended, decided exactly once, and never deleted.
type Enrollment struct {
	ID          string           `db:"id" json:"id"`
	StudentID   string           `db:"student_id" json:"student_id"`
	CourseID    string           `db:"course_id" json:"course_id"`
	Status      EnrollmentStatus `db:"status" json:"status"`
	RequestedAt time.Time        `db:"requested_at" json:"requested_at"`
	DecidedAt   *time.Time       `db:"decided_at" json:"decided_at,omitempty"`
	DecidedBy   *string          `db:"decided_by" json:"decided_by,omitempty"`
}

// Decided reports whether the record reached a terminal status.
func (e Enrollment) Decided() bool {
	return e.Status == EnrollmentStatusApproved || e.Status == EnrollmentStatusRejected
}

// EnrollmentDetail enriches Enrollment with student and course info.
type EnrollmentDetail struct {
	Enrollment
	StudentName    string `db:"student_name" json:"student_name"`
	StudentEmail   string `db:"student_email" json:"student_email"`
	CourseCode     string `db:"course_code" json:"course_code"`
	CourseName     string `db:"course_name" json:"course_name"`
	Credits        int    `db:"credits" json:"credits"`
	DepartmentName string `db:"department_name" json:"department_name"`
	CollegeID      string `db:"college_id" json:"college_id"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID string
	CourseID  string
	CollegeID string
	Status    EnrollmentStatus
	Page      int
	PageSize  int
}
