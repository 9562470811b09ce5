package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/studyabroad-api/internal/models"
)

const (
	programColumns     = `id, university_id, catalog_program_id, name, description, degree_level, language, duration_years, intake, tuition_fee, service_fee, currency, force_payment, active, created_at, updated_at`
	programViewColumns = programColumns + `, university_name, university_slug, university_city, catalog_name`
)

// ProgramRepository manages university programs, the program catalog and program translations.
type ProgramRepository struct {
	db           *sqlx.DB
	translations translationStore
}

// NewProgramRepository constructs a ProgramRepository.
func NewProgramRepository(db *sqlx.DB) *ProgramRepository {
	return &ProgramRepository{
		db:           db,
		translations: translationStore{db: db, table: "program_translations", fk: "program_id"},
	}
}

// List reads v_university_programs_full with the filter applied.
func (r *ProgramRepository) List(ctx context.Context, filter models.ProgramFilter) ([]models.ProgramView, int, error) {
	baseQuery := `FROM v_university_programs_full WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.ActiveOnly {
		conditions = append(conditions, "active = TRUE")
	}
	if filter.UniversityID != "" {
		conditions = append(conditions, fmt.Sprintf("university_id = $%d", len(args)+1))
		args = append(args, filter.UniversityID)
	}
	if filter.DegreeLevel != "" {
		conditions = append(conditions, fmt.Sprintf("degree_level = $%d", len(args)+1))
		args = append(args, filter.DegreeLevel)
	}
	if filter.Language != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(language) = $%d", len(args)+1))
		args = append(args, strings.ToLower(filter.Language))
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(university_name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.MinTuition != nil {
		conditions = append(conditions, fmt.Sprintf("tuition_fee >= $%d", len(args)+1))
		args = append(args, *filter.MinTuition)
	}
	if filter.MaxTuition != nil {
		conditions = append(conditions, fmt.Sprintf("tuition_fee <= $%d", len(args)+1))
		args = append(args, *filter.MaxTuition)
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"name": true, "tuition_fee": true, "created_at": true, "university_name": true}
	if !allowedSorts[sortBy] {
		sortBy = "name"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "ASC"
	}
	page, pageSize := normalizePage(filter.Page, filter.PageSize)

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", programViewColumns, baseQuery, sortBy, sortOrder, pageSize, (page-1)*pageSize)
	var items []models.ProgramView
	if err := r.db.SelectContext(ctx, &items, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list programs: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", baseQuery), args...); err != nil {
		return nil, 0, fmt.Errorf("count programs: %w", err)
	}
	return items, total, nil
}

// FindView returns one program row from the joined view.
func (r *ProgramRepository) FindView(ctx context.Context, id string) (*models.ProgramView, error) {
	query := fmt.Sprintf("SELECT %s FROM v_university_programs_full WHERE id = $1", programViewColumns)
	var item models.ProgramView
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find program view: %w", err)
	}
	return &item, nil
}

// FindByID returns a program from university_programs.
func (r *ProgramRepository) FindByID(ctx context.Context, id string) (*models.Program, error) {
	query := fmt.Sprintf("SELECT %s FROM university_programs WHERE id = $1", programColumns)
	var item models.Program
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find program: %w", err)
	}
	return &item, nil
}

// Create inserts a program.
func (r *ProgramRepository) Create(ctx context.Context, p *models.Program) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	const query = `INSERT INTO university_programs (id, university_id, catalog_program_id, name, description, degree_level, language, duration_years, intake, tuition_fee, service_fee, currency, force_payment, active, created_at, updated_at) VALUES (:id, :university_id, :catalog_program_id, :name, :description, :degree_level, :language, :duration_years, :intake, :tuition_fee, :service_fee, :currency, :force_payment, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("create program: %w", err)
	}
	return nil
}

// Update replaces the editable columns of a program.
func (r *ProgramRepository) Update(ctx context.Context, p *models.Program) error {
	p.UpdatedAt = time.Now().UTC()
	const query = `UPDATE university_programs SET university_id = :university_id, catalog_program_id = :catalog_program_id, name = :name, description = :description, degree_level = :degree_level, language = :language, duration_years = :duration_years, intake = :intake, tuition_fee = :tuition_fee, service_fee = :service_fee, currency = :currency, force_payment = :force_payment, active = :active, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, p)
	if err != nil {
		return fmt.Errorf("update program: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a program.
func (r *ProgramRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM university_programs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete program: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Count returns the number of active programs.
func (r *ProgramRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM university_programs WHERE active = TRUE`); err != nil {
		return 0, fmt.Errorf("count programs: %w", err)
	}
	return total, nil
}

// ListCatalog returns the canonical program catalog.
func (r *ProgramRepository) ListCatalog(ctx context.Context, search string) ([]models.CatalogProgram, error) {
	query := `SELECT id, name, field, degree_level, created_at FROM program_catalog`
	var args []interface{}
	if search != "" {
		query += ` WHERE LOWER(name) LIKE $1`
		args = append(args, "%"+strings.ToLower(search)+"%")
	}
	query += ` ORDER BY name ASC`
	var items []models.CatalogProgram
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list program catalog: %w", err)
	}
	return items, nil
}

// CreateCatalog inserts a catalog program.
func (r *ProgramRepository) CreateCatalog(ctx context.Context, item *models.CatalogProgram) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO program_catalog (id, name, field, degree_level, created_at) VALUES (:id, :name, :field, :degree_level, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create catalog program: %w", err)
	}
	return nil
}

// ActiveSources returns the base name and description of every active program.
func (r *ProgramRepository) ActiveSources(ctx context.Context) ([]models.TranslationSource, error) {
	const query = `SELECT id, name, description FROM university_programs WHERE active = TRUE ORDER BY name ASC`
	var items []models.TranslationSource
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list translation sources: %w", err)
	}
	return items, nil
}

// ExistingTranslationPairs returns the (program, locale) pairs already translated for the locales.
func (r *ProgramRepository) ExistingTranslationPairs(ctx context.Context, locales []string) ([]models.ProgramLocalePair, error) {
	const query = `SELECT program_id, locale FROM program_translations WHERE locale = ANY($1)`
	var pairs []models.ProgramLocalePair
	if err := r.db.SelectContext(ctx, &pairs, query, pq.Array(locales)); err != nil {
		return nil, fmt.Errorf("list existing translations: %w", err)
	}
	return pairs, nil
}

// UpsertTranslation stores a localised program name and description.
func (r *ProgramRepository) UpsertTranslation(ctx context.Context, tr *models.Translation) error {
	return r.translations.upsert(ctx, tr)
}

// ListTranslations returns every translation of a program.
func (r *ProgramRepository) ListTranslations(ctx context.Context, id string) ([]models.Translation, error) {
	return r.translations.list(ctx, id)
}

// TranslationsByLocale returns translations for the given programs in one locale.
func (r *ProgramRepository) TranslationsByLocale(ctx context.Context, locale string, ids []string) (map[string]models.Translation, error) {
	return r.translations.byLocale(ctx, locale, ids)
}
