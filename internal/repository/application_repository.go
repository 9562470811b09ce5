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
	"github.com/noah-isme/studyabroad-api/pkg/database"
)

// ClientReferenceConstraint is the unique index guarding duplicate submissions.
const ClientReferenceConstraint = "applications_student_id_client_reference_key"

const (
	applicationColumns        = `id, student_id, program_id, status, personal_info, payment_amount, payment_currency, client_reference, notes, submitted_at, created_at, updated_at`
	applicationSummaryColumns = `a.id, a.student_id, a.program_id, a.status, a.personal_info, a.payment_amount, a.payment_currency, a.client_reference, a.notes, a.submitted_at, a.created_at, a.updated_at, p.name AS program_name, p.university_id, u.name AS university_name, usr.email AS student_email`
	applicationSummaryFrom    = `FROM applications a JOIN university_programs p ON p.id = a.program_id JOIN universities u ON u.id = p.university_id JOIN users usr ON usr.id = a.student_id WHERE 1=1`
)

// ApplicationRepository persists applications and their document links.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs an ApplicationRepository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Create inserts the application and its document links in one transaction.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	app.CreatedAt = now
	app.UpdatedAt = now
	if app.SubmittedAt == nil {
		app.SubmittedAt = &now
	}

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const query = `INSERT INTO applications (id, student_id, program_id, status, personal_info, payment_amount, payment_currency, client_reference, notes, submitted_at, created_at, updated_at) VALUES (:id, :student_id, :program_id, :status, :personal_info, :payment_amount, :payment_currency, :client_reference, :notes, :submitted_at, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, query, app); err != nil {
			return fmt.Errorf("create application: %w", err)
		}
		for i := range app.Documents {
			doc := &app.Documents[i]
			doc.ApplicationID = app.ID
			if _, err := tx.ExecContext(ctx, `INSERT INTO application_documents (application_id, requirement_id, document_id, reused) VALUES ($1, $2, $3, $4)`, doc.ApplicationID, doc.RequirementID, doc.DocumentID, doc.Reused); err != nil {
				return fmt.Errorf("link application document: %w", err)
			}
		}
		return nil
	})
}

// FindByID returns an application with its document links.
func (r *ApplicationRepository) FindByID(ctx context.Context, id string) (*models.Application, error) {
	query := fmt.Sprintf("SELECT %s FROM applications WHERE id = $1", applicationColumns)
	var app models.Application
	if err := r.db.GetContext(ctx, &app, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find application: %w", err)
	}
	if err := r.loadDocuments(ctx, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// FindByClientReference returns the student's application submitted with the reference.
func (r *ApplicationRepository) FindByClientReference(ctx context.Context, studentID, reference string) (*models.Application, error) {
	query := fmt.Sprintf("SELECT %s FROM applications WHERE student_id = $1 AND client_reference = $2", applicationColumns)
	var app models.Application
	if err := r.db.GetContext(ctx, &app, query, studentID, reference); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find application by reference: %w", err)
	}
	if err := r.loadDocuments(ctx, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *ApplicationRepository) loadDocuments(ctx context.Context, app *models.Application) error {
	const query = `SELECT application_id, requirement_id, document_id, reused FROM application_documents WHERE application_id = $1`
	if err := r.db.SelectContext(ctx, &app.Documents, query, app.ID); err != nil {
		return fmt.Errorf("load application documents: %w", err)
	}
	return nil
}

// List returns application summaries matching the filter with the total count.
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationSummary, int, error) {
	where, args := applicationConditions(filter)
	page, pageSize := normalizePage(filter.Page, filter.PageSize)

	listQuery := fmt.Sprintf("SELECT %s %s%s ORDER BY a.created_at DESC LIMIT %d OFFSET %d", applicationSummaryColumns, applicationSummaryFrom, where, pageSize, (page-1)*pageSize)
	var items []models.ApplicationSummary
	if err := r.db.SelectContext(ctx, &items, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s%s", applicationSummaryFrom, where), args...); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}
	return items, total, nil
}

// ListAll returns every application summary matching the filter, ignoring pagination.
func (r *ApplicationRepository) ListAll(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationSummary, error) {
	where, args := applicationConditions(filter)
	query := fmt.Sprintf("SELECT %s %s%s ORDER BY a.created_at DESC", applicationSummaryColumns, applicationSummaryFrom, where)
	var items []models.ApplicationSummary
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("export applications: %w", err)
	}
	return items, nil
}

func applicationConditions(filter models.ApplicationFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("a.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.ProgramID != "" {
		conditions = append(conditions, fmt.Sprintf("a.program_id = $%d", len(args)+1))
		args = append(args, filter.ProgramID)
	}
	if filter.UniversityID != "" {
		conditions = append(conditions, fmt.Sprintf("p.university_id = $%d", len(args)+1))
		args = append(args, filter.UniversityID)
	}
	if len(conditions) == 0 {
		return "", args
	}
	return " AND " + strings.Join(conditions, " AND "), args
}

// UpdateStatus moves the application to status only when it is still in from.
// It returns sql.ErrNoRows when the row changed underneath the caller.
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id string, from, to models.ApplicationStatus, notes *string) error {
	const query = `UPDATE applications SET status = $3, notes = COALESCE($4, notes), updated_at = $5 WHERE id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, query, id, from, to, notes, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update application status: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountByStatus aggregates applications per status.
func (r *ApplicationRepository) CountByStatus(ctx context.Context) ([]models.StatusCount, error) {
	var counts []models.StatusCount
	if err := r.db.SelectContext(ctx, &counts, `SELECT status, COUNT(*) AS count FROM applications GROUP BY status`); err != nil {
		return nil, fmt.Errorf("count applications by status: %w", err)
	}
	return counts, nil
}
