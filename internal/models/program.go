package models

import "time"

// CatalogProgram is a canonical program that universities reference.
type CatalogProgram struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Field       *string   `db:"field" json:"field,omitempty"`
	DegreeLevel string    `db:"degree_level" json:"degree_level"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Program is a university's offering stored in university_programs.
type Program struct {
	ID               string    `db:"id" json:"id"`
	UniversityID     string    `db:"university_id" json:"university_id"`
	CatalogProgramID *string   `db:"catalog_program_id" json:"catalog_program_id,omitempty"`
	Name             string    `db:"name" json:"name"`
	Description      *string   `db:"description" json:"description,omitempty"`
	DegreeLevel      string    `db:"degree_level" json:"degree_level"`
	Language         string    `db:"language" json:"language"`
	DurationYears    *float64  `db:"duration_years" json:"duration_years,omitempty"`
	Intake           *string   `db:"intake" json:"intake,omitempty"`
	TuitionFee       float64   `db:"tuition_fee" json:"tuition_fee"`
	ServiceFee       float64   `db:"service_fee" json:"service_fee"`
	Currency         string    `db:"currency" json:"currency"`
	ForcePayment     bool      `db:"force_payment" json:"force_payment"`
	Active           bool      `db:"active" json:"active"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// TotalFee is the amount charged on submission.
func (p Program) TotalFee() float64 {
	return p.TuitionFee + p.ServiceFee
}

// ProgramView is a row of v_university_programs_full.
type ProgramView struct {
	Program
	UniversityName string  `db:"university_name" json:"university_name"`
	UniversitySlug string  `db:"university_slug" json:"university_slug"`
	UniversityCity string  `db:"university_city" json:"university_city"`
	CatalogName    *string `db:"catalog_name" json:"catalog_name,omitempty"`
}

// ProgramDetail bundles a program with its requirement links.
type ProgramDetail struct {
	ProgramView
	Requirements []ProgramRequirement `json:"requirements"`
}

// ProgramFilter captures listing criteria for the program view.
type ProgramFilter struct {
	UniversityID string
	DegreeLevel  string
	Language     string
	Search       string
	MinTuition   *float64
	MaxTuition   *float64
	ActiveOnly   bool
	Locale       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// ProgramLocalePair identifies a program translation slot.
type ProgramLocalePair struct {
	ProgramID string `db:"program_id"`
	Locale    string `db:"locale"`
}
