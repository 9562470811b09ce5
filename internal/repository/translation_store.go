package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/studyabroad-api/internal/models"
)

// translationStore reads and writes a <entity>_translations table keyed by (fk, locale).
type translationStore struct {
	db    *sqlx.DB
	table string
	fk    string
}

func (s translationStore) upsert(ctx context.Context, tr *models.Translation) error {
	tr.UpdatedAt = time.Now().UTC()
	query := fmt.Sprintf(`INSERT INTO %s (%s, locale, name, description, updated_at) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (%s, locale) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description, updated_at = EXCLUDED.updated_at`, s.table, s.fk, s.fk)
	if _, err := s.db.ExecContext(ctx, query, tr.EntityID, tr.Locale, tr.Name, tr.Description, tr.UpdatedAt); err != nil {
		return fmt.Errorf("upsert %s: %w", s.table, err)
	}
	return nil
}

func (s translationStore) list(ctx context.Context, entityID string) ([]models.Translation, error) {
	query := fmt.Sprintf(`SELECT %s AS entity_id, locale, name, description, updated_at FROM %s WHERE %s = $1 ORDER BY locale`, s.fk, s.table, s.fk)
	var items []models.Translation
	if err := s.db.SelectContext(ctx, &items, query, entityID); err != nil {
		return nil, fmt.Errorf("list %s: %w", s.table, err)
	}
	return items, nil
}

// byLocale returns the translations for ids in one locale keyed by entity id.
func (s translationStore) byLocale(ctx context.Context, locale string, ids []string) (map[string]models.Translation, error) {
	result := make(map[string]models.Translation, len(ids))
	if len(ids) == 0 || locale == "" {
		return result, nil
	}
	query := fmt.Sprintf(`SELECT %s AS entity_id, locale, name, description, updated_at FROM %s WHERE locale = $1 AND %s = ANY($2)`, s.fk, s.table, s.fk)
	var items []models.Translation
	if err := s.db.SelectContext(ctx, &items, query, locale, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("load %s: %w", s.table, err)
	}
	for _, item := range items {
		result[item.EntityID] = item
	}
	return result, nil
}
