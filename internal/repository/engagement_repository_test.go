package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyabroad-api/internal/models"
)

func TestFavoriteToggleRemovesExisting(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFavoriteRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM favorites WHERE user_id = $1 AND item_type = $2 AND item_id = $3")).
		WithArgs("s1", models.FavoriteProgram, "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	favorited, err := repo.Toggle(context.Background(), "s1", models.FavoriteProgram, "p1")
	require.NoError(t, err)
	assert.False(t, favorited)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFavoriteToggleInsertsMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFavoriteRepository(db)

	mock.ExpectExec("DELETE FROM favorites").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO favorites (id, user_id, item_type, item_id, created_at)")).
		WithArgs(sqlmock.AnyArg(), "s1", models.FavoriteUniversity, "u1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	favorited, err := repo.Toggle(context.Background(), "s1", models.FavoriteUniversity, "u1")
	require.NoError(t, err)
	assert.True(t, favorited)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFavoriteToggleConcurrentInsertResolvesFavorited(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFavoriteRepository(db)

	mock.ExpectExec("DELETE FROM favorites").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO favorites").WillReturnError(&pq.Error{Code: "23505", Constraint: "favorites_user_id_item_type_item_id_key"})

	favorited, err := repo.Toggle(context.Background(), "s1", models.FavoriteScholarship, "x1")
	require.NoError(t, err)
	assert.True(t, favorited)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFavoriteExistsFalseOnNoRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFavoriteRepository(db)

	mock.ExpectQuery("SELECT id FROM favorites").WillReturnError(sql.ErrNoRows)

	ok, err := repo.Exists(context.Background(), "s1", models.FavoriteProgram, "p1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDocumentLatestByType(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "student_id", "requirement_id", "document_type", "file_name", "file_url", "storage_key", "mime_type", "size_bytes", "created_at"}).
		AddRow("d1", "s1", nil, "passport_copy", "passport.pdf", "https://files/x", "s1/passport_copy/1_ab.pdf", "application/pdf", 1024, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT ON (document_type)")).
		WithArgs("s1", pq.Array([]string{"passport_copy", "transcript"})).
		WillReturnRows(rows)

	got, err := repo.LatestByType(context.Background(), "s1", []string{"passport_copy", "transcript"})
	require.NoError(t, err)
	require.Contains(t, got, "passport_copy")
	assert.Equal(t, "d1", got["passport_copy"].ID)
	assert.NotContains(t, got, "transcript")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentOwnedIDs(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM student_documents WHERE student_id = $1 AND id = ANY($2)")).
		WithArgs("s1", pq.Array([]string{"d1", "d2"})).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("d1"))

	owned, err := repo.OwnedIDs(context.Background(), "s1", []string{"d1", "d2"})
	require.NoError(t, err)
	assert.True(t, owned["d1"])
	assert.False(t, owned["d2"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationCreateWritesDocumentsInTx(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO applications").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO application_documents (application_id, requirement_id, document_id, reused) VALUES ($1, $2, $3, $4)")).
		WithArgs("a1", "r1", "d1", false).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO application_documents").
		WithArgs("a1", "r2", "d2", true).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	app := &models.Application{
		ID:        "a1",
		StudentID: "s1",
		ProgramID: "p1",
		Status:    models.ApplicationSubmitted,
		Documents: []models.ApplicationDocument{
			{RequirementID: "r1", DocumentID: "d1"},
			{RequirementID: "r2", DocumentID: "d2", Reused: true},
		},
	}
	require.NoError(t, repo.Create(context.Background(), app))
	assert.NotNil(t, app.SubmittedAt)
	assert.Equal(t, "a1", app.Documents[1].ApplicationID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationCreateRollsBackOnDocumentFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO applications").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO application_documents").WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Application{StudentID: "s1", ProgramID: "p1", Documents: []models.ApplicationDocument{{RequirementID: "r1", DocumentID: "d1"}}})
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationFindByClientReference(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	now := time.Now()
	ref := "key-1"
	mock.ExpectQuery(regexp.QuoteMeta("FROM applications WHERE student_id = $1 AND client_reference = $2")).
		WithArgs("s1", ref).
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "program_id", "status", "personal_info", "payment_amount", "payment_currency", "client_reference", "notes", "submitted_at", "created_at", "updated_at"}).
			AddRow("a1", "s1", "p1", "submitted", []byte(`{"full_name":"Ada"}`), 0, "USD", ref, nil, now, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT application_id, requirement_id, document_id, reused FROM application_documents WHERE application_id = $1")).
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows([]string{"application_id", "requirement_id", "document_id", "reused"}).AddRow("a1", "r1", "d1", false))

	app, err := repo.FindByClientReference(context.Background(), "s1", ref)
	require.NoError(t, err)
	assert.Equal(t, "Ada", app.PersonalInfo.FullName)
	assert.Len(t, app.Documents, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationUpdateStatusDetectsStaleRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE applications SET status = $3")).
		WithArgs("a1", models.ApplicationSubmitted, models.ApplicationUnderReview, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "a1", models.ApplicationSubmitted, models.ApplicationUnderReview, nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationListFiltersByUniversity(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 AND a.status = $1 AND p.university_id = $2 ORDER BY a.created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs(models.ApplicationSubmitted, "u1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM applications a")).
		WithArgs(models.ApplicationSubmitted, "u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, total, err := repo.List(context.Background(), models.ApplicationFilter{Status: models.ApplicationSubmitted, UniversityID: "u1"})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
