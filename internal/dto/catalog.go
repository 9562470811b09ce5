package dto

// UniversityRequest creates or replaces a university.
type UniversityRequest struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Slug        string   `json:"slug" validate:"omitempty,max=200"`
	City        string   `json:"city" validate:"required,max=120"`
	Country     string   `json:"country" validate:"required,max=120"`
	Description *string  `json:"description"`
	Website     *string  `json:"website" validate:"omitempty,url"`
	VideoURL    *string  `json:"video_url" validate:"omitempty,url"`
	MapEmbedURL *string  `json:"map_embed_url" validate:"omitempty,url"`
	Features    []string `json:"features" validate:"omitempty,dive,max=60"`
	Active      *bool    `json:"active"`
}

// TranslationRequest stores a localised name and description.
type TranslationRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Description *string `json:"description"`
}

// CatalogProgramRequest adds an entry to the canonical program catalog.
type CatalogProgramRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Field       *string `json:"field"`
	DegreeLevel string  `json:"degree_level" validate:"required,max=60"`
}

// ProgramRequest creates or replaces a university program.
type ProgramRequest struct {
	UniversityID     string   `json:"university_id" validate:"required"`
	CatalogProgramID *string  `json:"catalog_program_id"`
	Name             string   `json:"name" validate:"required,max=200"`
	Description      *string  `json:"description"`
	DegreeLevel      string   `json:"degree_level" validate:"required,max=60"`
	Language         string   `json:"language" validate:"required,max=60"`
	DurationYears    *float64 `json:"duration_years" validate:"omitempty,gt=0"`
	Intake           *string  `json:"intake"`
	TuitionFee       float64  `json:"tuition_fee" validate:"gte=0"`
	ServiceFee       float64  `json:"service_fee" validate:"gte=0"`
	Currency         string   `json:"currency" validate:"required,len=3"`
	ForcePayment     bool     `json:"force_payment"`
	Active           *bool    `json:"active"`
}

// RequirementRequest creates or updates a catalog requirement.
type RequirementRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description *string `json:"description"`
}

// ProgramRequirementLink is one element of a program's requirement set.
type ProgramRequirementLink struct {
	RequirementID string `json:"requirement_id" validate:"required"`
	IsMandatory   bool   `json:"is_mandatory"`
}

// SetProgramRequirementsRequest replaces a program's requirement set.
type SetProgramRequirementsRequest struct {
	Requirements []ProgramRequirementLink `json:"requirements" validate:"dive"`
}

// ScholarshipRequest creates or replaces a scholarship.
type ScholarshipRequest struct {
	UniversityID     string  `json:"university_id" validate:"required"`
	Name             string  `json:"name" validate:"required,max=200"`
	Description      *string `json:"description"`
	CoveragePercent  int     `json:"coverage_percent" validate:"gte=0,lte=100"`
	Accommodation    bool    `json:"accommodation"`
	Stipend          bool    `json:"stipend"`
	MedicalInsurance bool    `json:"medical_insurance"`
	Deadline         *string `json:"deadline" validate:"omitempty,datetime=2006-01-02"`
	Active           *bool   `json:"active"`
}
