package models

import "time"

// CourseOffering is a scheduled instance of a course at a college with a fixed
// seat capacity. Capacity is the only field the enrollment core re-reads.
type CourseOffering struct {
	ID           string    `db:"id" json:"id"`
	CollegeID    string    `db:"college_id" json:"college_id"`
	DepartmentID string    `db:"department_id" json:"department_id"`
	Code         string    `db:"code" json:"code"`
	Name         string    `db:"name" json:"name"`
	Credits      int       `db:"credits" json:"credits"`
	Capacity     int       `db:"capacity" json:"capacity"`
	StartsAt     time.Time `db:"starts_at" json:"starts_at"`
	EndsAt       time.Time `db:"ends_at" json:"ends_at"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// CourseFilter provides filters for listing course offerings.
type CourseFilter struct {
	CollegeID    string
	DepartmentID string
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// CourseSeats pairs a course offering with its derived seat availability.
type CourseSeats struct {
	CourseOffering
	DepartmentName string `db:"department_name" json:"department_name"`
	Occupied       int    `db:"occupied" json:"occupied"`
	SeatsRemaining int    `json:"seats_remaining"`
}
