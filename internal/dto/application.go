package dto

import "github.com/noah-isme/studyabroad-api/internal/models"

// ApplicationDraft is the wizard state submitted by the client.
// Uploaded and Reused map requirement ids to student document ids.
type ApplicationDraft struct {
	ProgramID       string              `json:"program_id" validate:"required"`
	PersonalInfo    models.PersonalInfo `json:"personal_info"`
	Uploaded        map[string]string   `json:"uploaded"`
	Reused          map[string]string   `json:"reused"`
	Notes           *string             `json:"notes" validate:"omitempty,max=2000"`
	ClientReference string              `json:"client_reference" validate:"omitempty,max=128"`
}

// StepValidation reports the outcome of a wizard step check.
type StepValidation struct {
	Step                int      `json:"step"`
	Valid               bool     `json:"valid"`
	MissingFields       []string `json:"missing_fields"`
	MissingRequirements []string `json:"missing_requirements"`
}

// UpdateApplicationStatusRequest moves an application to a new status.
type UpdateApplicationStatusRequest struct {
	Status models.ApplicationStatus `json:"status" validate:"required"`
	Notes  *string                  `json:"notes" validate:"omitempty,max=2000"`
}

// SubmitApplicationResult wraps a submission and whether it replayed an earlier one.
type SubmitApplicationResult struct {
	Application *models.Application `json:"application"`
	Replayed    bool                `json:"replayed"`
}
