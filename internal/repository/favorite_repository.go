package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/studyabroad-api/internal/models"
	"github.com/noah-isme/studyabroad-api/pkg/database"
)

// FavoriteRepository stores saved items per user.
type FavoriteRepository struct {
	db *sqlx.DB
}

// NewFavoriteRepository constructs a FavoriteRepository.
func NewFavoriteRepository(db *sqlx.DB) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

// Toggle removes the favorite when present and inserts it otherwise.
// It reports whether the item is favorited afterwards. A concurrent insert
// of the same item resolves to favorited.
func (r *FavoriteRepository) Toggle(ctx context.Context, userID string, itemType models.FavoriteItemType, itemID string) (bool, error) {
	const deleteQuery = `DELETE FROM favorites WHERE user_id = $1 AND item_type = $2 AND item_id = $3`
	res, err := r.db.ExecContext(ctx, deleteQuery, userID, itemType, itemID)
	if err != nil {
		return false, fmt.Errorf("remove favorite: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows > 0 {
		return false, nil
	}

	const insertQuery = `INSERT INTO favorites (id, user_id, item_type, item_id, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, insertQuery, uuid.NewString(), userID, itemType, itemID, time.Now().UTC()); err != nil {
		if database.IsUniqueViolation(err, "") {
			return true, nil
		}
		return false, fmt.Errorf("add favorite: %w", err)
	}
	return true, nil
}

// Exists reports whether the user saved the item.
func (r *FavoriteRepository) Exists(ctx context.Context, userID string, itemType models.FavoriteItemType, itemID string) (bool, error) {
	const query = `SELECT id FROM favorites WHERE user_id = $1 AND item_type = $2 AND item_id = $3`
	var id string
	if err := r.db.GetContext(ctx, &id, query, userID, itemType, itemID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check favorite: %w", err)
	}
	return true, nil
}

// List returns a user's favorites, optionally limited to one item type.
func (r *FavoriteRepository) List(ctx context.Context, userID string, itemType models.FavoriteItemType) ([]models.Favorite, error) {
	query := `SELECT id, user_id, item_type, item_id, created_at FROM favorites WHERE user_id = $1`
	args := []interface{}{userID}
	if itemType != "" {
		query += ` AND item_type = $2`
		args = append(args, itemType)
	}
	query += ` ORDER BY created_at DESC`
	var items []models.Favorite
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return items, nil
}
