package models

import "time"

// FavoriteItemType enumerates what a student can save.
type FavoriteItemType string

const (
	FavoriteUniversity  FavoriteItemType = "university"
	FavoriteProgram     FavoriteItemType = "program"
	FavoriteScholarship FavoriteItemType = "scholarship"
)

// Valid reports whether the type is supported.
func (t FavoriteItemType) Valid() bool {
	switch t {
	case FavoriteUniversity, FavoriteProgram, FavoriteScholarship:
		return true
	}
	return false
}

// Favorite is a saved item; (user_id, item_type, item_id) is unique.
type Favorite struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"user_id"`
	ItemType  FavoriteItemType `db:"item_type" json:"item_type"`
	ItemID    string           `db:"item_id" json:"item_id"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}
