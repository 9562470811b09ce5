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

// RequirementRepository manages the requirement catalog and program links.
type RequirementRepository struct {
	db *sqlx.DB
}

// NewRequirementRepository constructs a RequirementRepository.
func NewRequirementRepository(db *sqlx.DB) *RequirementRepository {
	return &RequirementRepository{db: db}
}

// List returns every catalog requirement.
func (r *RequirementRepository) List(ctx context.Context) ([]models.Requirement, error) {
	var items []models.Requirement
	if err := r.db.SelectContext(ctx, &items, `SELECT id, title, description, created_at FROM requirements ORDER BY title ASC`); err != nil {
		return nil, fmt.Errorf("list requirements: %w", err)
	}
	return items, nil
}

// FindByID returns a requirement.
func (r *RequirementRepository) FindByID(ctx context.Context, id string) (*models.Requirement, error) {
	var item models.Requirement
	if err := r.db.GetContext(ctx, &item, `SELECT id, title, description, created_at FROM requirements WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find requirement: %w", err)
	}
	return &item, nil
}

// Create inserts a requirement.
func (r *RequirementRepository) Create(ctx context.Context, item *models.Requirement) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO requirements (id, title, description, created_at) VALUES (:id, :title, :description, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create requirement: %w", err)
	}
	return nil
}

// Update changes a requirement's title and description.
func (r *RequirementRepository) Update(ctx context.Context, item *models.Requirement) error {
	res, err := r.db.NamedExecContext(ctx, `UPDATE requirements SET title = :title, description = :description WHERE id = :id`, item)
	if err != nil {
		return fmt.Errorf("update requirement: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a requirement and its program links.
func (r *RequirementRepository) Delete(ctx context.Context, id string) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM program_requirements WHERE requirement_id = $1`, id); err != nil {
			return fmt.Errorf("unlink requirement: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM requirements WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete requirement: %w", err)
		}
		if rows, _ := res.RowsAffected(); rows == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}

// ForProgram returns the requirements linked to a program.
func (r *RequirementRepository) ForProgram(ctx context.Context, programID string) ([]models.ProgramRequirement, error) {
	const query = `SELECT pr.program_id, pr.requirement_id, pr.is_mandatory, rq.title, rq.description FROM program_requirements pr JOIN requirements rq ON rq.id = pr.requirement_id WHERE pr.program_id = $1 ORDER BY pr.is_mandatory DESC, rq.title ASC`
	var items []models.ProgramRequirement
	if err := r.db.SelectContext(ctx, &items, query, programID); err != nil {
		return nil, fmt.Errorf("list program requirements: %w", err)
	}
	return items, nil
}

// ReplaceForProgram swaps a program's requirement set.
func (r *RequirementRepository) ReplaceForProgram(ctx context.Context, programID string, links []models.ProgramRequirement) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM program_requirements WHERE program_id = $1`, programID); err != nil {
			return fmt.Errorf("clear program requirements: %w", err)
		}
		for _, link := range links {
			if _, err := tx.ExecContext(ctx, `INSERT INTO program_requirements (program_id, requirement_id, is_mandatory) VALUES ($1, $2, $3)`, programID, link.RequirementID, link.IsMandatory); err != nil {
				return fmt.Errorf("link requirement %s: %w", link.RequirementID, err)
			}
		}
		return nil
	})
}
