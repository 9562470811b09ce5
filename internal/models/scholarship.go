package models

import "time"

// Scholarship is funding offered by a university.
type Scholarship struct {
	ID               string     `db:"id" json:"id"`
	UniversityID     string     `db:"university_id" json:"university_id"`
	Name             string     `db:"name" json:"name"`
	Description      *string    `db:"description" json:"description,omitempty"`
	CoveragePercent  int        `db:"coverage_percent" json:"coverage_percent"`
	Accommodation    bool       `db:"accommodation" json:"accommodation"`
	Stipend          bool       `db:"stipend" json:"stipend"`
	MedicalInsurance bool       `db:"medical_insurance" json:"medical_insurance"`
	Deadline         *time.Time `db:"deadline" json:"deadline,omitempty"`
	Active           bool       `db:"active" json:"active"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// ScholarshipFilter captures listing criteria.
type ScholarshipFilter struct {
	UniversityID string
	MinCoverage  *int
	ActiveOnly   bool
	Page         int
	PageSize     int
}
