package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ApplicationStatus is the lifecycle state of an application.
type ApplicationStatus string

const (
	ApplicationPending          ApplicationStatus = "pending"
	ApplicationSubmitted        ApplicationStatus = "submitted"
	ApplicationUnderReview      ApplicationStatus = "under_review"
	ApplicationPendingDocuments ApplicationStatus = "pending_documents"
	ApplicationPendingPayment   ApplicationStatus = "pending_payment"
	ApplicationAccepted         ApplicationStatus = "accepted"
	ApplicationRejected         ApplicationStatus = "rejected"
)

var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationPending:          {ApplicationSubmitted, ApplicationPendingPayment, ApplicationRejected},
	ApplicationSubmitted:        {ApplicationUnderReview, ApplicationPendingDocuments, ApplicationRejected},
	ApplicationUnderReview:      {ApplicationAccepted, ApplicationRejected, ApplicationPendingDocuments},
	ApplicationPendingDocuments: {ApplicationUnderReview, ApplicationRejected},
	ApplicationPendingPayment:   {ApplicationSubmitted, ApplicationRejected},
	ApplicationAccepted:         nil,
	ApplicationRejected:         nil,
}

// Valid reports whether the status is known.
func (s ApplicationStatus) Valid() bool {
	_, ok := applicationTransitions[s]
	return ok
}

// Terminal reports whether no further transitions are allowed.
func (s ApplicationStatus) Terminal() bool {
	return s.Valid() && len(applicationTransitions[s]) == 0
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	for _, candidate := range applicationTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// PersonalInfo is the first wizard step, stored as jsonb.
type PersonalInfo struct {
	FullName       string `json:"full_name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Nationality    string `json:"nationality"`
	DateOfBirth    string `json:"date_of_birth"`
	PassportNumber string `json:"passport_number"`
	Address        string `json:"address,omitempty"`
	Gender         string `json:"gender,omitempty"`
}

// MissingFields returns the json names of required fields that are blank.
func (p PersonalInfo) MissingFields() []string {
	required := []struct {
		name  string
		value string
	}{
		{"full_name", p.FullName},
		{"email", p.Email},
		{"phone", p.Phone},
		{"nationality", p.Nationality},
		{"date_of_birth", p.DateOfBirth},
		{"passport_number", p.PassportNumber},
	}
	var missing []string
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	return missing
}

// Value implements driver.Valuer.
func (p PersonalInfo) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner.
func (p *PersonalInfo) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*p = PersonalInfo{}
		return nil
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return fmt.Errorf("unsupported personal_info type %T", src)
	}
}

// Application is a student's submission for a program.
type Application struct {
	ID              string            `db:"id" json:"id"`
	StudentID       string            `db:"student_id" json:"student_id"`
	ProgramID       string            `db:"program_id" json:"program_id"`
	Status          ApplicationStatus `db:"status" json:"status"`
	PersonalInfo    PersonalInfo      `db:"personal_info" json:"personal_info"`
	PaymentAmount   float64           `db:"payment_amount" json:"payment_amount"`
	PaymentCurrency string            `db:"payment_currency" json:"payment_currency"`
	ClientReference *string           `db:"client_reference" json:"client_reference,omitempty"`
	Notes           *string           `db:"notes" json:"notes,omitempty"`
	SubmittedAt     *time.Time        `db:"submitted_at" json:"submitted_at,omitempty"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`

	Documents []ApplicationDocument `db:"-" json:"documents,omitempty"`
}

// ApplicationDocument links a student document to an application requirement.
type ApplicationDocument struct {
	ApplicationID string `db:"application_id" json:"application_id"`
	RequirementID string `db:"requirement_id" json:"requirement_id"`
	DocumentID    string `db:"document_id" json:"document_id"`
	Reused        bool   `db:"reused" json:"reused"`
}

// ApplicationSummary is an admin listing row joined with program and student data.
type ApplicationSummary struct {
	Application
	ProgramName    string `db:"program_name" json:"program_name"`
	UniversityID   string `db:"university_id" json:"university_id"`
	UniversityName string `db:"university_name" json:"university_name"`
	StudentEmail   string `db:"student_email" json:"student_email"`
}

// ApplicationFilter captures listing criteria.
type ApplicationFilter struct {
	StudentID    string
	Status       ApplicationStatus
	ProgramID    string
	UniversityID string
	Page         int
	PageSize     int
}

// StatusCount is one bucket of an applications-by-status aggregate.
type StatusCount struct {
	Status ApplicationStatus `db:"status" json:"status"`
	Count  int               `db:"count" json:"count"`
}
