package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/studyabroad-api/internal/models"
)

const universityColumns = `id, name, slug, city, country, description, website, logo_url, cover_url, video_url, map_embed_url, features, active, created_at, updated_at`

// UniversityRepository manages universities and their translations.
type UniversityRepository struct {
	db           *sqlx.DB
	translations translationStore
}

// NewUniversityRepository constructs a UniversityRepository.
func NewUniversityRepository(db *sqlx.DB) *UniversityRepository {
	return &UniversityRepository{
		db:           db,
		translations: translationStore{db: db, table: "university_translations", fk: "university_id"},
	}
}

// List returns universities matching the filter with the total count.
func (r *UniversityRepository) List(ctx context.Context, filter models.UniversityFilter) ([]models.University, int, error) {
	baseQuery := `FROM universities WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.ActiveOnly {
		conditions = append(conditions, "active = TRUE")
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(city) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.City != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(city) = $%d", len(args)+1))
		args = append(args, strings.ToLower(filter.City))
	}
	if filter.Country != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(country) = $%d", len(args)+1))
		args = append(args, strings.ToLower(filter.Country))
	}
	if filter.Feature != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(features)", len(args)+1))
		args = append(args, filter.Feature)
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"name": true, "city": true, "created_at": true}
	if !allowedSorts[sortBy] {
		sortBy = "name"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "ASC"
	}
	page, pageSize := normalizePage(filter.Page, filter.PageSize)

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", universityColumns, baseQuery, sortBy, sortOrder, pageSize, (page-1)*pageSize)
	var items []models.University
	if err := r.db.SelectContext(ctx, &items, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list universities: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", baseQuery), args...); err != nil {
		return nil, 0, fmt.Errorf("count universities: %w", err)
	}
	return items, total, nil
}

// FindByID returns a university by id.
func (r *UniversityRepository) FindByID(ctx context.Context, id string) (*models.University, error) {
	return r.findOne(ctx, "id", id)
}

// FindBySlug returns a university by slug.
func (r *UniversityRepository) FindBySlug(ctx context.Context, slug string) (*models.University, error) {
	return r.findOne(ctx, "slug", slug)
}

func (r *UniversityRepository) findOne(ctx context.Context, column, value string) (*models.University, error) {
	query := fmt.Sprintf("SELECT %s FROM universities WHERE %s = $1", universityColumns, column)
	var u models.University
	if err := r.db.GetContext(ctx, &u, query, value); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find university: %w", err)
	}
	return &u, nil
}

// Create inserts a university.
func (r *UniversityRepository) Create(ctx context.Context, u *models.University) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	const query = `INSERT INTO universities (id, name, slug, city, country, description, website, logo_url, cover_url, video_url, map_embed_url, features, active, created_at, updated_at) VALUES (:id, :name, :slug, :city, :country, :description, :website, :logo_url, :cover_url, :video_url, :map_embed_url, :features, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, u); err != nil {
		return fmt.Errorf("create university: %w", err)
	}
	return nil
}

// Update replaces the editable columns of a university.
func (r *UniversityRepository) Update(ctx context.Context, u *models.University) error {
	u.UpdatedAt = time.Now().UTC()
	const query = `UPDATE universities SET name = :name, slug = :slug, city = :city, country = :country, description = :description, website = :website, video_url = :video_url, map_embed_url = :map_embed_url, features = :features, active = :active, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, u)
	if err != nil {
		return fmt.Errorf("update university: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateMedia sets the logo or cover URL.
func (r *UniversityRepository) UpdateMedia(ctx context.Context, id string, kind models.UniversityMediaKind, url string) error {
	column := "logo_url"
	if kind == models.MediaCover {
		column = "cover_url"
	}
	query := fmt.Sprintf("UPDATE universities SET %s = $2, updated_at = $3 WHERE id = $1", column)
	res, err := r.db.ExecContext(ctx, query, id, url, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update university media: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a university.
func (r *UniversityRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM universities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete university: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountPrograms returns the number of active programs offered by a university.
func (r *UniversityRepository) CountPrograms(ctx context.Context, id string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM university_programs WHERE university_id = $1 AND active = TRUE`, id); err != nil {
		return 0, fmt.Errorf("count university programs: %w", err)
	}
	return total, nil
}

// Count returns the number of universities.
func (r *UniversityRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM universities`); err != nil {
		return 0, fmt.Errorf("count universities: %w", err)
	}
	return total, nil
}

// UpsertTranslation stores a localised name and description.
func (r *UniversityRepository) UpsertTranslation(ctx context.Context, tr *models.Translation) error {
	return r.translations.upsert(ctx, tr)
}

// ListTranslations returns every translation of a university.
func (r *UniversityRepository) ListTranslations(ctx context.Context, id string) ([]models.Translation, error) {
	return r.translations.list(ctx, id)
}

// TranslationsByLocale returns translations for the given universities in one locale.
func (r *UniversityRepository) TranslationsByLocale(ctx context.Context, locale string, ids []string) (map[string]models.Translation, error) {
	return r.translations.byLocale(ctx, locale, ids)
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
