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

const scholarshipColumns = `id, university_id, name, description, coverage_percent, accommodation, stipend, medical_insurance, deadline, active, created_at, updated_at`

// ScholarshipRepository manages scholarships.
type ScholarshipRepository struct {
	db *sqlx.DB
}

// NewScholarshipRepository constructs a ScholarshipRepository.
func NewScholarshipRepository(db *sqlx.DB) *ScholarshipRepository {
	return &ScholarshipRepository{db: db}
}

// List returns scholarships matching the filter.
func (r *ScholarshipRepository) List(ctx context.Context, filter models.ScholarshipFilter) ([]models.Scholarship, int, error) {
	baseQuery := `FROM scholarships WHERE 1=1`
	var conditions []string
	var args []interface{}
	if filter.ActiveOnly {
		conditions = append(conditions, "active = TRUE")
	}
	if filter.UniversityID != "" {
		conditions = append(conditions, fmt.Sprintf("university_id = $%d", len(args)+1))
		args = append(args, filter.UniversityID)
	}
	if filter.MinCoverage != nil {
		conditions = append(conditions, fmt.Sprintf("coverage_percent >= $%d", len(args)+1))
		args = append(args, *filter.MinCoverage)
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}
	page, pageSize := normalizePage(filter.Page, filter.PageSize)

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY coverage_percent DESC, name ASC LIMIT %d OFFSET %d", scholarshipColumns, baseQuery, pageSize, (page-1)*pageSize)
	var items []models.Scholarship
	if err := r.db.SelectContext(ctx, &items, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list scholarships: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", baseQuery), args...); err != nil {
		return nil, 0, fmt.Errorf("count scholarships: %w", err)
	}
	return items, total, nil
}

// ForUniversity returns the active scholarships of a university.
func (r *ScholarshipRepository) ForUniversity(ctx context.Context, universityID string) ([]models.Scholarship, error) {
	query := fmt.Sprintf("SELECT %s FROM scholarships WHERE university_id = $1 AND active = TRUE ORDER BY coverage_percent DESC", scholarshipColumns)
	var items []models.Scholarship
	if err := r.db.SelectContext(ctx, &items, query, universityID); err != nil {
		return nil, fmt.Errorf("list university scholarships: %w", err)
	}
	return items, nil
}

// FindByID returns a scholarship.
func (r *ScholarshipRepository) FindByID(ctx context.Context, id string) (*models.Scholarship, error) {
	query := fmt.Sprintf("SELECT %s FROM scholarships WHERE id = $1", scholarshipColumns)
	var item models.Scholarship
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find scholarship: %w", err)
	}
	return &item, nil
}

// Create inserts a scholarship.
func (r *ScholarshipRepository) Create(ctx context.Context, item *models.Scholarship) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	const query = `INSERT INTO scholarships (id, university_id, name, description, coverage_percent, accommodation, stipend, medical_insurance, deadline, active, created_at, updated_at) VALUES (:id, :university_id, :name, :description, :coverage_percent, :accommodation, :stipend, :medical_insurance, :deadline, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create scholarship: %w", err)
	}
	return nil
}

// Update replaces the editable columns of a scholarship.
func (r *ScholarshipRepository) Update(ctx context.Context, item *models.Scholarship) error {
	item.UpdatedAt = time.Now().UTC()
	const query = `UPDATE scholarships SET university_id = :university_id, name = :name, description = :description, coverage_percent = :coverage_percent, accommodation = :accommodation, stipend = :stipend, medical_insurance = :medical_insurance, deadline = :deadline, active = :active, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, item)
	if err != nil {
		return fmt.Errorf("update scholarship: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a scholarship.
func (r *ScholarshipRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM scholarships WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete scholarship: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Count returns the number of active scholarships.
func (r *ScholarshipRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM scholarships WHERE active = TRUE`); err != nil {
		return 0, fmt.Errorf("count scholarships: %w", err)
	}
	return total, nil
}
