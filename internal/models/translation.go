package models

import "time"

// TranslationItemStatus tracks one (program, locale) pair in a run.
type TranslationItemStatus string

const (
	TranslationItemExisting TranslationItemStatus = "existing"
	TranslationItemPending  TranslationItemStatus = "pending"
	TranslationItemRunning  TranslationItemStatus = "running"
	TranslationItemDone     TranslationItemStatus = "done"
	TranslationItemError    TranslationItemStatus = "error"
)

// TranslationRunStatus tracks a whole run.
type TranslationRunStatus string

const (
	TranslationRunQueued    TranslationRunStatus = "queued"
	TranslationRunRunning   TranslationRunStatus = "running"
	TranslationRunCompleted TranslationRunStatus = "completed"
	TranslationRunCancelled TranslationRunStatus = "cancelled"
)

// Finished reports whether the run no longer processes items.
func (s TranslationRunStatus) Finished() bool {
	return s == TranslationRunCompleted || s == TranslationRunCancelled
}

// TranslationItem is one unit of work in a run.
type TranslationItem struct {
	ProgramID   string                `json:"program_id"`
	ProgramName string                `json:"program_name"`
	Locale      string                `json:"locale"`
	Status      TranslationItemStatus `json:"status"`
	Error       string                `json:"error,omitempty"`
}

// TranslationProgress holds the run counters.
type TranslationProgress struct {
	Total    int    `json:"total"`
	Existing int    `json:"existing"`
	Pending  int    `json:"pending"`
	Done     int    `json:"done"`
	Failed   int    `json:"failed"`
	Current  string `json:"current,omitempty"`
}

// TranslationRunSnapshot is a point-in-time copy of a run.
type TranslationRunSnapshot struct {
	ID         string               `json:"id"`
	Status     TranslationRunStatus `json:"status"`
	Locales    []string             `json:"locales"`
	Progress   TranslationProgress  `json:"progress"`
	Items      []TranslationItem    `json:"items,omitempty"`
	CreatedBy  string               `json:"created_by,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
	StartedAt  *time.Time           `json:"started_at,omitempty"`
	FinishedAt *time.Time           `json:"finished_at,omitempty"`
}

// TranslationSource is the text a program translation is produced from.
type TranslationSource struct {
	ProgramID   string  `db:"id"`
	Name        string  `db:"name"`
	Description *string `db:"description"`
}
