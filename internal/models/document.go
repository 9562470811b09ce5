package models

import "time"

// StudentDocument is a file a student uploaded against a requirement.
type StudentDocument struct {
	ID            string    `db:"id" json:"id"`
	StudentID     string    `db:"student_id" json:"student_id"`
	RequirementID *string   `db:"requirement_id" json:"requirement_id,omitempty"`
	DocumentType  string    `db:"document_type" json:"document_type"`
	FileName      string    `db:"file_name" json:"file_name"`
	FileURL       string    `db:"file_url" json:"file_url"`
	StorageKey    string    `db:"storage_key" json:"-"`
	MimeType      string    `db:"mime_type" json:"mime_type"`
	SizeBytes     int64     `db:"size_bytes" json:"size_bytes"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// ReusableDocument pairs a program requirement with the student's latest matching upload.
type ReusableDocument struct {
	RequirementID string           `json:"requirement_id"`
	Title         string           `json:"title"`
	DocumentType  string           `json:"document_type"`
	IsMandatory   bool             `json:"is_mandatory"`
	Document      *StudentDocument `json:"document,omitempty"`
}
