package models

import (
	"time"

	"github.com/lib/pq"
)

// University is a partner institution listed in the marketplace.
type University struct {
	ID          string         `db:"id" json:"id"`
	Name        string         `db:"name" json:"name"`
	Slug        string         `db:"slug" json:"slug"`
	City        string         `db:"city" json:"city"`
	Country     string         `db:"country" json:"country"`
	Description *string        `db:"description" json:"description,omitempty"`
	Website     *string        `db:"website" json:"website,omitempty"`
	LogoURL     *string        `db:"logo_url" json:"logo_url,omitempty"`
	CoverURL    *string        `db:"cover_url" json:"cover_url,omitempty"`
	VideoURL    *string        `db:"video_url" json:"video_url,omitempty"`
	MapEmbedURL *string        `db:"map_embed_url" json:"map_embed_url,omitempty"`
	Features    pq.StringArray `db:"features" json:"features"`
	Active      bool           `db:"active" json:"active"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// UniversityDetail enriches a university with related counts and scholarships.
type UniversityDetail struct {
	University
	ProgramsCount int           `json:"programs_count"`
	Scholarships  []Scholarship `json:"scholarships"`
}

// UniversityFilter captures listing criteria.
type UniversityFilter struct {
	Search     string
	City       string
	Country    string
	Feature    string
	ActiveOnly bool
	Locale     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// Translation is a localised name and description for a catalog entity.
type Translation struct {
	EntityID    string    `db:"entity_id" json:"entity_id"`
	Locale      string    `db:"locale" json:"locale"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// UniversityMediaKind selects which image column an upload replaces.
type UniversityMediaKind string

const (
	MediaLogo  UniversityMediaKind = "logo"
	MediaCover UniversityMediaKind = "cover"
)
