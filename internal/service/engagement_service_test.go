package service

import (
	"bytes"
	"context"
	"database/sql"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyabroad-api/internal/dto"
	"github.com/noah-isme/studyabroad-api/internal/models"
	"github.com/noah-isme/studyabroad-api/internal/repository"
	appErrors "github.com/noah-isme/studyabroad-api/pkg/errors"
	"github.com/noah-isme/studyabroad-api/pkg/export"
)

type mockFavoriteRepo struct {
	set map[string]bool
}

func favoriteKey(userID string, itemType models.FavoriteItemType, itemID string) string {
	return userID + "|" + string(itemType) + "|" + itemID
}

func (m *mockFavoriteRepo) Toggle(ctx context.Context, userID string, itemType models.FavoriteItemType, itemID string) (bool, error) {
	key := favoriteKey(userID, itemType, itemID)
	if m.set[key] {
		delete(m.set, key)
		return false, nil
	}
	m.set[key] = true
	return true, nil
}

func (m *mockFavoriteRepo) Exists(ctx context.Context, userID string, itemType models.FavoriteItemType, itemID string) (bool, error) {
	return m.set[favoriteKey(userID, itemType, itemID)], nil
}

func (m *mockFavoriteRepo) List(ctx context.Context, userID string, itemType models.FavoriteItemType) ([]models.Favorite, error) {
	var out []models.Favorite
	for key := range m.set {
		parts := strings.Split(key, "|")
		if parts[0] != userID || (itemType != "" && parts[1] != string(itemType)) {
			continue
		}
		out = append(out, models.Favorite{UserID: parts[0], ItemType: models.FavoriteItemType(parts[1]), ItemID: parts[2]})
	}
	return out, nil
}

func TestFavoriteServiceToggleRemovesOnce(t *testing.T) {
	repo := &mockFavoriteRepo{set: map[string]bool{}}
	svc := NewFavoriteService(repo, nil)
	ctx := context.Background()

	on, err := svc.Toggle(ctx, "s1", models.FavoriteProgram, "p1")
	require.NoError(t, err)
	assert.True(t, on)

	off, err := svc.Toggle(ctx, "s1", models.FavoriteProgram, "p1")
	require.NoError(t, err)
	assert.False(t, off)
	assert.Empty(t, repo.set)

	exists, err := svc.Check(ctx, "s1", models.FavoriteProgram, "p1")
	require.NoError(t, err)
	assert.False(t, exists)

	items, err := svc.List(ctx, "s1", "")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestFavoriteServiceRejectsUnknownType(t *testing.T) {
	svc := NewFavoriteService(&mockFavoriteRepo{set: map[string]bool{}}, nil)
	_, err := svc.Toggle(context.Background(), "s1", "course", "c1")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	_, err = svc.Toggle(context.Background(), "s1", models.FavoriteUniversity, " ")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

type mockDocumentRepo struct {
	docs    map[string]*models.StudentDocument
	created int
}

func newMockDocumentRepo() *mockDocumentRepo {
	return &mockDocumentRepo{docs: map[string]*models.StudentDocument{}}
}

func (m *mockDocumentRepo) Create(ctx context.Context, doc *models.StudentDocument) error {
	m.created++
	doc.ID = "d" + string(rune('0'+m.created))
	doc.CreatedAt = time.Now()
	copy := *doc
	m.docs[doc.ID] = &copy
	return nil
}

func (m *mockDocumentRepo) FindByID(ctx context.Context, id string) (*models.StudentDocument, error) {
	d, ok := m.docs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *d
	return &copy, nil
}

func (m *mockDocumentRepo) ListByStudent(ctx context.Context, studentID string) ([]models.StudentDocument, error) {
	var out []models.StudentDocument
	for _, d := range m.docs {
		if d.StudentID == studentID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *mockDocumentRepo) LatestByType(ctx context.Context, studentID string, types []string) (map[string]models.StudentDocument, error) {
	out := map[string]models.StudentDocument{}
	for _, d := range m.docs {
		if d.StudentID != studentID {
			continue
		}
		for _, t := range types {
			if d.DocumentType == t {
				if prev, ok := out[t]; !ok || d.CreatedAt.After(prev.CreatedAt) {
					out[t] = *d
				}
			}
		}
	}
	return out, nil
}

func (m *mockDocumentRepo) OwnedIDs(ctx context.Context, studentID string, ids []string) (map[string]bool, error) {
	out := map[string]bool{}
	for _, id := range ids {
		if d, ok := m.docs[id]; ok && d.StudentID == studentID {
			out[id] = true
		}
	}
	return out, nil
}

func (m *mockDocumentRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.docs[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.docs, id)
	return nil
}

func newDocumentFixture() (*DocumentService, *mockDocumentRepo, *mockRequirementRepo, *fakeObjectStorage) {
	docs := newMockDocumentRepo()
	reqs := newMockRequirementRepo()
	reqs.items["r1"] = &models.Requirement{ID: "r1", Title: "Passport Copy"}
	reqs.items["r2"] = &models.Requirement{ID: "r2", Title: "Language  Certificate"}
	reqs.links["p1"] = []models.ProgramRequirement{
		{ProgramID: "p1", RequirementID: "r1", Title: "Passport Copy", IsMandatory: true},
		{ProgramID: "p1", RequirementID: "r2", Title: "Language  Certificate"},
	}
	store := newFakeObjectStorage()
	svc := NewDocumentService(docs, reqs, store, nil, DocumentServiceConfig{MaxFileSize: 1024})
	svc.now = func() time.Time { return time.Unix(1700000000, 0) }
	return svc, docs, reqs, store
}

func pdfUpload(name string) DocumentUpload {
	content := []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")
	return DocumentUpload{Filename: name, Size: int64(len(content)), Content: bytes.NewReader(content)}
}

func TestDocumentServiceUploadDerivesTypeAndKey(t *testing.T) {
	svc, docs, _, store := newDocumentFixture()

	doc, err := svc.Upload(context.Background(), "s1", "r1", pdfUpload("scan.PDF"))
	require.NoError(t, err)
	assert.Equal(t, "passport_copy", doc.DocumentType)
	assert.Equal(t, "application/pdf", doc.MimeType)
	assert.Regexp(t, regexp.MustCompile(`^s1/passport_copy/1700000000_[0-9a-f]{8}\.pdf$`), doc.StorageKey)
	assert.Equal(t, "scan.PDF", doc.FileName)
	assert.Equal(t, 1, docs.created)
	assert.Len(t, store.keys(), 1)
	assert.True(t, strings.HasPrefix(store.keys()[0], "application-documents/"))
}

func TestDocumentServiceUploadValidation(t *testing.T) {
	svc, _, _, store := newDocumentFixture()
	ctx := context.Background()

	big := DocumentUpload{Filename: "big.pdf", Size: 4096, Content: bytes.NewReader(make([]byte, 4096))}
	_, err := svc.Upload(ctx, "s1", "r1", big)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	text := []byte("just some notes")
	_, err = svc.Upload(ctx, "s1", "r1", DocumentUpload{Filename: "a.txt", Size: int64(len(text)), Content: bytes.NewReader(text)})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Upload(ctx, "s1", "r404", pdfUpload("a.pdf"))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.Upload(ctx, "s1", "", pdfUpload("a.pdf"))
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.keys())
}

func TestDocumentServiceDeleteOwnOnly(t *testing.T) {
	svc, docs, _, store := newDocumentFixture()
	ctx := context.Background()
	doc, err := svc.Upload(ctx, "s1", "r1", pdfUpload("a.pdf"))
	require.NoError(t, err)

	err = svc.Delete(ctx, "s2", doc.ID)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Len(t, docs.docs, 1)

	require.NoError(t, svc.Delete(ctx, "s1", doc.ID))
	assert.Empty(t, docs.docs)
	assert.Empty(t, store.keys())
	assert.Len(t, store.deleted, 1)
}

func TestDocumentServiceReusableMatchesDocumentType(t *testing.T) {
	svc, docs, _, _ := newDocumentFixture()
	docs.docs["old"] = &models.StudentDocument{ID: "old", StudentID: "s1", DocumentType: "passport_copy", CreatedAt: time.Unix(100, 0)}
	docs.docs["new"] = &models.StudentDocument{ID: "new", StudentID: "s1", DocumentType: "passport_copy", CreatedAt: time.Unix(200, 0)}
	docs.docs["other"] = &models.StudentDocument{ID: "other", StudentID: "s2", DocumentType: "language_certificate", CreatedAt: time.Unix(300, 0)}

	items, err := svc.Reusable(context.Background(), "s1", "p1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.NotNil(t, items[0].Document)
	assert.Equal(t, "new", items[0].Document.ID)
	assert.True(t, items[0].IsMandatory)
	assert.Equal(t, "language_certificate", items[1].DocumentType)
	assert.Nil(t, items[1].Document)
}

type mockApplicationRepo struct {
	apps      map[string]*models.Application
	created   int
	createErr error
	raced     *models.Application
	staleOnce bool
}

func newMockApplicationRepo() *mockApplicationRepo {
	return &mockApplicationRepo{apps: map[string]*models.Application{}}
}

func (m *mockApplicationRepo) Create(ctx context.Context, app *models.Application) error {
	if m.createErr != nil {
		if m.raced != nil {
			m.apps[m.raced.ID] = m.raced
		}
		return m.createErr
	}
	m.created++
	app.ID = "a" + string(rune('0'+m.created))
	copy := *app
	m.apps[app.ID] = &copy
	return nil
}

func (m *mockApplicationRepo) FindByID(ctx context.Context, id string) (*models.Application, error) {
	a, ok := m.apps[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *a
	return &copy, nil
}

func (m *mockApplicationRepo) FindByClientReference(ctx context.Context, studentID, reference string) (*models.Application, error) {
	for _, a := range m.apps {
		if a.StudentID == studentID && a.ClientReference != nil && *a.ClientReference == reference {
			copy := *a
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockApplicationRepo) List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationSummary, int, error) {
	var out []models.ApplicationSummary
	for _, a := range m.apps {
		if filter.StudentID != "" && a.StudentID != filter.StudentID {
			continue
		}
		out = append(out, models.ApplicationSummary{Application: *a})
	}
	return out, len(out), nil
}

func (m *mockApplicationRepo) ListAll(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationSummary, error) {
	items, _, err := m.List(ctx, filter)
	return items, err
}

func (m *mockApplicationRepo) UpdateStatus(ctx context.Context, id string, from, to models.ApplicationStatus, notes *string) error {
	a, ok := m.apps[id]
	if !ok || a.Status != from || m.staleOnce {
		m.staleOnce = false
		return sql.ErrNoRows
	}
	a.Status = to
	return nil
}

type applicationFixture struct {
	svc      *ApplicationService
	apps     *mockApplicationRepo
	docs     *mockDocumentRepo
	programs *mockProgramRepo
	audit    *mockRoleRepo
}

func newApplicationFixture() applicationFixture {
	programs := newMockProgramRepo()
	programs.programs["p1"] = &models.Program{ID: "p1", Name: "Medicine", TuitionFee: 5000, ServiceFee: 250, Currency: "USD", ForcePayment: true, Active: true}
	programs.programs["p2"] = &models.Program{ID: "p2", Name: "Arts", TuitionFee: 3000, Currency: "EUR", Active: true}
	programs.programs["p3"] = &models.Program{ID: "p3", Name: "Free", ForcePayment: true, Currency: "USD", Active: true}
	reqs := newMockRequirementRepo()
	reqs.links["p1"] = []models.ProgramRequirement{
		{ProgramID: "p1", RequirementID: "r1", Title: "Passport Copy", IsMandatory: true},
		{ProgramID: "p1", RequirementID: "r2", Title: "Transcript", IsMandatory: true},
		{ProgramID: "p1", RequirementID: "r3", Title: "Portfolio"},
	}
	docs := newMockDocumentRepo()
	docs.docs["d1"] = &models.StudentDocument{ID: "d1", StudentID: "s1", DocumentType: "passport_copy"}
	docs.docs["d2"] = &models.StudentDocument{ID: "d2", StudentID: "s1", DocumentType: "transcript"}
	docs.docs["dx"] = &models.StudentDocument{ID: "dx", StudentID: "s2", DocumentType: "transcript"}
	apps := newMockApplicationRepo()
	audit := newMockRoleRepo()
	svc := NewApplicationService(apps, programs, reqs, docs, audit, NewMetricsService(), nil, nil).WithPermissions(staticPermissions{
		models.RoleAdmin: {{Module: models.ModuleApplications, Action: models.ActionView}},
		"counselor":      {{Module: models.ModuleUniversities, Action: models.ActionView}},
	})
	return applicationFixture{svc: svc, apps: apps, docs: docs, programs: programs, audit: audit}
}

func completeInfo() models.PersonalInfo {
	return models.PersonalInfo{
		FullName:       "Amina Yusuf",
		Email:          "amina@example.com",
		Phone:          "+201000000",
		Nationality:    "Egyptian",
		DateOfBirth:    "2004-05-01",
		PassportNumber: "A1234567",
	}
}

func completeDraft(programID string) dto.ApplicationDraft {
	return dto.ApplicationDraft{
		ProgramID:    programID,
		PersonalInfo: completeInfo(),
		Uploaded:     map[string]string{"r1": "d1"},
		Reused:       map[string]string{"r2": "d2"},
	}
}

func TestValidateStepPersonalInfo(t *testing.T) {
	f := newApplicationFixture()
	draft := completeDraft("p1")
	draft.PersonalInfo.PassportNumber = "  "

	res, err := f.svc.ValidateStep(context.Background(), StepPersonalInfo, draft)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, []string{"passport_number"}, res.MissingFields)

	_, err = f.svc.ValidateStep(context.Background(), 4, draft)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestValidateStepDocumentsRequiresEveryMandatory(t *testing.T) {
	f := newApplicationFixture()
	ctx := context.Background()

	none := dto.ApplicationDraft{ProgramID: "p1"}
	res, err := f.svc.ValidateStep(ctx, StepDocuments, none)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.ElementsMatch(t, []string{"r1", "r2"}, res.MissingRequirements)

	partial := dto.ApplicationDraft{ProgramID: "p1", Reused: map[string]string{"r1": "d1"}}
	res, err = f.svc.ValidateStep(ctx, StepDocuments, partial)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, []string{"r2"}, res.MissingRequirements)

	res, err = f.svc.ValidateStep(ctx, StepDocuments, completeDraft("p1"))
	require.NoError(t, err)
	assert.True(t, res.Valid)

	review := completeDraft("p1")
	review.PersonalInfo.Email = ""
	res, err = f.svc.ValidateStep(ctx, StepReview, review)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, []string{"email"}, res.MissingFields)
}

func TestSubmissionStatus(t *testing.T) {
	assert.Equal(t, models.ApplicationPendingPayment, SubmissionStatus(models.Program{ForcePayment: true, TuitionFee: 100}))
	assert.Equal(t, models.ApplicationPendingPayment, SubmissionStatus(models.Program{ForcePayment: true, ServiceFee: 50}))
	assert.Equal(t, models.ApplicationSubmitted, SubmissionStatus(models.Program{ForcePayment: true}))
	assert.Equal(t, models.ApplicationSubmitted, SubmissionStatus(models.Program{TuitionFee: 100}))
}

func TestApplicationServiceSubmitPendingPayment(t *testing.T) {
	f := newApplicationFixture()

	res, err := f.svc.Submit(context.Background(), "s1", completeDraft("p1"), "", models.RequestMeta{IP: "127.0.0.1"})
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	app := res.Application
	assert.Equal(t, models.ApplicationPendingPayment, app.Status)
	assert.Equal(t, 5250.0, app.PaymentAmount)
	assert.Equal(t, "USD", app.PaymentCurrency)
	require.Len(t, app.Documents, 2)
	assert.Equal(t, models.ApplicationDocument{RequirementID: "r1", DocumentID: "d1"}, app.Documents[0])
	assert.Equal(t, models.ApplicationDocument{RequirementID: "r2", DocumentID: "d2", Reused: true}, app.Documents[1])
	assert.Contains(t, f.audit.auditActions, models.AuditActionApplicationSubmit)
}

func TestApplicationServiceSubmitWithoutForcedPayment(t *testing.T) {
	f := newApplicationFixture()
	ctx := context.Background()

	res, err := f.svc.Submit(ctx, "s1", dto.ApplicationDraft{ProgramID: "p2", PersonalInfo: completeInfo()}, "", models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationSubmitted, res.Application.Status)

	res, err = f.svc.Submit(ctx, "s1", dto.ApplicationDraft{ProgramID: "p3", PersonalInfo: completeInfo()}, "", models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationSubmitted, res.Application.Status)
}

func TestApplicationServiceSubmitIsIdempotent(t *testing.T) {
	f := newApplicationFixture()
	ctx := context.Background()

	first, err := f.svc.Submit(ctx, "s1", completeDraft("p1"), "key-123", models.RequestMeta{})
	require.NoError(t, err)
	second, err := f.svc.Submit(ctx, "s1", completeDraft("p1"), "key-123", models.RequestMeta{})
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.Application.ID, second.Application.ID)
	assert.Equal(t, 1, f.apps.created)
	assert.Len(t, f.apps.apps, 1)

	draft := completeDraft("p1")
	draft.ClientReference = "key-123"
	third, err := f.svc.Submit(ctx, "s1", draft, "", models.RequestMeta{})
	require.NoError(t, err)
	assert.True(t, third.Replayed)

	other, err := f.svc.Submit(ctx, "s1", completeDraft("p1"), "key-456", models.RequestMeta{})
	require.NoError(t, err)
	assert.False(t, other.Replayed)
	assert.Equal(t, 2, f.apps.created)
}

func TestApplicationServiceSubmitConcurrentDuplicate(t *testing.T) {
	f := newApplicationFixture()
	ref := "key-race"
	f.apps.raced = &models.Application{ID: "a-first", StudentID: "s1", ProgramID: "p1", Status: models.ApplicationPendingPayment, ClientReference: &ref}
	f.apps.createErr = &pq.Error{Code: "23505", Constraint: repository.ClientReferenceConstraint}

	res, err := f.svc.Submit(context.Background(), "s1", completeDraft("p1"), ref, models.RequestMeta{})
	require.NoError(t, err)
	assert.True(t, res.Replayed)
	assert.Equal(t, "a-first", res.Application.ID)
}

func TestApplicationServiceSubmitRejectsIncompleteAndForeignDocuments(t *testing.T) {
	f := newApplicationFixture()
	ctx := context.Background()

	missing := completeDraft("p1")
	delete(missing.Reused, "r2")
	_, err := f.svc.Submit(ctx, "s1", missing, "", models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrIncompleteApplication.Code, appErrors.FromError(err).Code)
	assert.Contains(t, err.Error(), "r2")

	foreign := completeDraft("p1")
	foreign.Reused["r2"] = "dx"
	_, err = f.svc.Submit(ctx, "s1", foreign, "", models.RequestMeta{})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	stray := completeDraft("p1")
	stray.Uploaded["r9"] = "d1"
	_, err = f.svc.Submit(ctx, "s1", stray, "", models.RequestMeta{})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = f.svc.Submit(ctx, "s1", completeDraft("p404"), "", models.RequestMeta{})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Zero(t, f.apps.created)
}

func TestApplicationServiceUpdateStatusTransitions(t *testing.T) {
	f := newApplicationFixture()
	ctx := context.Background()
	f.apps.apps["a1"] = &models.Application{ID: "a1", StudentID: "s1", Status: models.ApplicationSubmitted}

	app, err := f.svc.UpdateStatus(ctx, "a1", dto.UpdateApplicationStatusRequest{Status: models.ApplicationUnderReview}, "admin", models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationUnderReview, app.Status)

	_, err = f.svc.UpdateStatus(ctx, "a1", dto.UpdateApplicationStatusRequest{Status: models.ApplicationPendingPayment}, "admin", models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 409, appErrors.FromError(err).Status)

	f.apps.staleOnce = true
	_, err = f.svc.UpdateStatus(ctx, "a1", dto.UpdateApplicationStatusRequest{Status: models.ApplicationAccepted}, "admin", models.RequestMeta{})
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)

	_, err = f.svc.UpdateStatus(ctx, "a1", dto.UpdateApplicationStatusRequest{Status: models.ApplicationAccepted}, "admin", models.RequestMeta{})
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, "a1", dto.UpdateApplicationStatusRequest{Status: models.ApplicationRejected}, "admin", models.RequestMeta{})
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)

	_, err = f.svc.UpdateStatus(ctx, "a1", dto.UpdateApplicationStatusRequest{Status: "archived"}, "admin", models.RequestMeta{})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestApplicationServiceGetHidesOtherStudents(t *testing.T) {
	f := newApplicationFixture()
	f.apps.apps["a1"] = &models.Application{ID: "a1", StudentID: "s1", Status: models.ApplicationSubmitted}
	ctx := context.Background()

	_, err := f.svc.Get(ctx, "a1", &models.JWTClaims{UserID: "s2", Role: models.RoleStudent})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	app, err := f.svc.Get(ctx, "a1", &models.JWTClaims{UserID: "s1", Role: models.RoleStudent})
	require.NoError(t, err)
	assert.Equal(t, "a1", app.ID)

	_, err = f.svc.Get(ctx, "a1", &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})
	require.NoError(t, err)
}

func TestApplicationServiceGetRequiresReviewPermission(t *testing.T) {
	f := newApplicationFixture()
	ctx := context.Background()
	res, err := f.svc.Submit(ctx, "s1", completeDraft("p1"), "", models.RequestMeta{})
	require.NoError(t, err)
	app := res.Application

	_, err = f.svc.Get(ctx, app.ID, &models.JWTClaims{UserID: "s9", Role: "counselor"})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	got, err := f.svc.Get(ctx, app.ID, &models.JWTClaims{UserID: "u-super", Role: models.RoleSuperAdmin})
	require.NoError(t, err)
	assert.Equal(t, "A1234567", got.PersonalInfo.PassportNumber)

	bare := NewApplicationService(f.apps, f.programs, newMockRequirementRepo(), f.docs, f.audit, NewMetricsService(), nil, nil)
	_, err = bare.Get(ctx, app.ID, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestApplicationServiceExportCSV(t *testing.T) {
	f := newApplicationFixture()
	submitted := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	f.apps.apps["a1"] = &models.Application{ID: "a1", StudentID: "s1", Status: models.ApplicationSubmitted, PaymentAmount: 12.5, PaymentCurrency: "USD", SubmittedAt: &submitted}

	out, err := f.svc.Export(context.Background(), models.ApplicationFilter{}, export.FormatCSV)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,student_email,university,program,status,amount,currency,submitted_at", lines[0])
	assert.Equal(t, "a1,,,,submitted,12.50,USD,2026-01-02T03:04:05Z", lines[1])
}
