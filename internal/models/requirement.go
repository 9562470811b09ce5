package models

import (
	"regexp"
	"strings"
	"time"
)

// Requirement is a catalog entry for a document students must provide.
type Requirement struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ProgramRequirement links a requirement to a program.
type ProgramRequirement struct {
	ProgramID     string  `db:"program_id" json:"program_id"`
	RequirementID string  `db:"requirement_id" json:"requirement_id"`
	IsMandatory   bool    `db:"is_mandatory" json:"is_mandatory"`
	Title         string  `db:"title" json:"title"`
	Description   *string `db:"description" json:"description,omitempty"`
}

// DocumentType derives the reuse key from the requirement title.
func (r ProgramRequirement) DocumentType() string {
	return DocumentTypeFromTitle(r.Title)
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// DocumentTypeFromTitle lower-cases a requirement title and replaces whitespace
// runs with underscores: "Passport Copy" becomes "passport_copy".
func DocumentTypeFromTitle(title string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(title)), "_")
}
