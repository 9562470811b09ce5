package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/studyabroad-api/internal/models"
)

const documentColumns = `id, student_id, requirement_id, document_type, file_name, file_url, storage_key, mime_type, size_bytes, created_at`

// DocumentRepository stores student document metadata.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs a DocumentRepository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create inserts document metadata.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.StudentDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO student_documents (id, student_id, requirement_id, document_type, file_name, file_url, storage_key, mime_type, size_bytes, created_at) VALUES (:id, :student_id, :requirement_id, :document_type, :file_name, :file_url, :storage_key, :mime_type, :size_bytes, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("create student document: %w", err)
	}
	return nil
}

// FindByID returns a document.
func (r *DocumentRepository) FindByID(ctx context.Context, id string) (*models.StudentDocument, error) {
	query := fmt.Sprintf("SELECT %s FROM student_documents WHERE id = $1", documentColumns)
	var doc models.StudentDocument
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student document: %w", err)
	}
	return &doc, nil
}

// ListByStudent returns a student's documents, newest first.
func (r *DocumentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.StudentDocument, error) {
	query := fmt.Sprintf("SELECT %s FROM student_documents WHERE student_id = $1 ORDER BY created_at DESC", documentColumns)
	var docs []models.StudentDocument
	if err := r.db.SelectContext(ctx, &docs, query, studentID); err != nil {
		return nil, fmt.Errorf("list student documents: %w", err)
	}
	return docs, nil
}

// LatestByType returns the student's newest document for each of the given document types.
func (r *DocumentRepository) LatestByType(ctx context.Context, studentID string, types []string) (map[string]models.StudentDocument, error) {
	result := make(map[string]models.StudentDocument, len(types))
	if len(types) == 0 {
		return result, nil
	}
	query := fmt.Sprintf("SELECT DISTINCT ON (document_type) %s FROM student_documents WHERE student_id = $1 AND document_type = ANY($2) ORDER BY document_type, created_at DESC", documentColumns)
	var docs []models.StudentDocument
	if err := r.db.SelectContext(ctx, &docs, query, studentID, pq.Array(types)); err != nil {
		return nil, fmt.Errorf("list reusable documents: %w", err)
	}
	for _, doc := range docs {
		result[doc.DocumentType] = doc
	}
	return result, nil
}

// OwnedIDs returns which of ids belong to the student.
func (r *DocumentRepository) OwnedIDs(ctx context.Context, studentID string, ids []string) (map[string]bool, error) {
	owned := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return owned, nil
	}
	var found []string
	if err := r.db.SelectContext(ctx, &found, `SELECT id FROM student_documents WHERE student_id = $1 AND id = ANY($2)`, studentID, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("check document ownership: %w", err)
	}
	for _, id := range found {
		owned[id] = true
	}
	return owned, nil
}

// Delete removes a document row.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM student_documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete student document: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
