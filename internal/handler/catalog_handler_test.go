package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyabroad-api/internal/dto"
	"github.com/noah-isme/studyabroad-api/internal/models"
	"github.com/noah-isme/studyabroad-api/internal/service"
	appErrors "github.com/noah-isme/studyabroad-api/pkg/errors"
)

type fakeUniversitySrv struct {
	hit         bool
	lastFilter  models.UniversityFilter
	lastGet     string
	lastLocale  string
	lastKind    models.UniversityMediaKind
	mediaBytes  []byte
	createErr   error
	translation dto.TranslationRequest
}

func (f *fakeUniversitySrv) List(_ context.Context, filter models.UniversityFilter) (*service.UniversityPage, bool, error) {
	f.lastFilter = filter
	return &service.UniversityPage{
		Items:      []models.University{{ID: "u1", Name: "Bosphorus"}},
		Pagination: models.NewPagination(filter.Page, filter.PageSize, 1),
	}, f.hit, nil
}

func (f *fakeUniversitySrv) Get(_ context.Context, idOrSlug, locale string) (*models.UniversityDetail, error) {
	f.lastGet = idOrSlug
	f.lastLocale = locale
	if idOrSlug == "missing" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "university not found")
	}
	return &models.UniversityDetail{}, nil
}

func (f *fakeUniversitySrv) Create(_ context.Context, req dto.UniversityRequest) (*models.University, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &models.University{ID: "u2", Name: req.Name}, nil
}

func (f *fakeUniversitySrv) Update(_ context.Context, id string, req dto.UniversityRequest) (*models.University, error) {
	return &models.University{ID: id, Name: req.Name}, nil
}

func (f *fakeUniversitySrv) Delete(context.Context, string) error { return nil }

func (f *fakeUniversitySrv) UploadMedia(_ context.Context, id string, kind models.UniversityMediaKind, content io.Reader) (*models.University, error) {
	f.lastKind = kind
	f.mediaBytes, _ = io.ReadAll(content)
	return &models.University{ID: id}, nil
}

func (f *fakeUniversitySrv) UpsertTranslation(_ context.Context, id, locale string, req dto.TranslationRequest) (*models.Translation, error) {
	f.translation = req
	return &models.Translation{EntityID: id, Locale: locale, Name: req.Name}, nil
}

func (f *fakeUniversitySrv) ListTranslations(context.Context, string) ([]models.Translation, error) {
	return nil, nil
}

type fakeProgramSrv struct {
	lastFilter models.ProgramFilter
	setReq     dto.SetProgramRequirementsRequest
}

func (f *fakeProgramSrv) List(_ context.Context, filter models.ProgramFilter) (*service.ProgramPage, bool, error) {
	f.lastFilter = filter
	return &service.ProgramPage{Items: []models.ProgramView{}, Pagination: models.NewPagination(1, 20, 0)}, false, nil
}

func (f *fakeProgramSrv) Get(context.Context, string, string) (*models.ProgramDetail, error) {
	return &models.ProgramDetail{}, nil
}

func (f *fakeProgramSrv) Requirements(context.Context, string) ([]models.ProgramRequirement, error) {
	return []models.ProgramRequirement{}, nil
}

func (f *fakeProgramSrv) Create(_ context.Context, req dto.ProgramRequest) (*models.Program, error) {
	return &models.Program{ID: "p1", Name: req.Name}, nil
}

func (f *fakeProgramSrv) Update(_ context.Context, id string, req dto.ProgramRequest) (*models.Program, error) {
	return &models.Program{ID: id, Name: req.Name}, nil
}

func (f *fakeProgramSrv) Delete(context.Context, string) error { return nil }

func (f *fakeProgramSrv) ListCatalog(context.Context, string) ([]models.CatalogProgram, error) {
	return []models.CatalogProgram{}, nil
}

func (f *fakeProgramSrv) CreateCatalog(_ context.Context, req dto.CatalogProgramRequest) (*models.CatalogProgram, error) {
	return &models.CatalogProgram{ID: "c1", Name: req.Name}, nil
}

func (f *fakeProgramSrv) UpsertTranslation(_ context.Context, id, locale string, req dto.TranslationRequest) (*models.Translation, error) {
	return &models.Translation{EntityID: id, Locale: locale, Name: req.Name}, nil
}

func (f *fakeProgramSrv) ListTranslations(context.Context, string) ([]models.Translation, error) {
	return nil, nil
}

func (f *fakeProgramSrv) SetForProgram(_ context.Context, _ string, req dto.SetProgramRequirementsRequest) ([]models.ProgramRequirement, error) {
	f.setReq = req
	return []models.ProgramRequirement{}, nil
}

func (f *fakeProgramSrv) requirementsSrv() requirementService { return programRequirementsAdapter{f} }

type programRequirementsAdapter struct{ f *fakeProgramSrv }

func (a programRequirementsAdapter) List(context.Context) ([]models.Requirement, error) {
	return []models.Requirement{}, nil
}

func (a programRequirementsAdapter) Create(_ context.Context, req dto.RequirementRequest) (*models.Requirement, error) {
	return &models.Requirement{ID: "r1", Title: req.Title}, nil
}

func (a programRequirementsAdapter) Update(_ context.Context, id string, req dto.RequirementRequest) (*models.Requirement, error) {
	return &models.Requirement{ID: id, Title: req.Title}, nil
}

func (a programRequirementsAdapter) Delete(context.Context, string) error { return nil }

func (a programRequirementsAdapter) SetForProgram(ctx context.Context, programID string, req dto.SetProgramRequirementsRequest) ([]models.ProgramRequirement, error) {
	return a.f.SetForProgram(ctx, programID, req)
}

type fakeScholarshipSrv struct {
	lastFilter models.ScholarshipFilter
}

func (f *fakeScholarshipSrv) List(_ context.Context, filter models.ScholarshipFilter) ([]models.Scholarship, *models.Pagination, error) {
	f.lastFilter = filter
	return []models.Scholarship{}, models.NewPagination(filter.Page, filter.PageSize, 0), nil
}

func (f *fakeScholarshipSrv) Get(_ context.Context, id string) (*models.Scholarship, error) {
	return &models.Scholarship{ID: id}, nil
}

func (f *fakeScholarshipSrv) Create(_ context.Context, req dto.ScholarshipRequest) (*models.Scholarship, error) {
	return &models.Scholarship{ID: "sch1", Name: req.Name}, nil
}

func (f *fakeScholarshipSrv) Update(_ context.Context, id string, req dto.ScholarshipRequest) (*models.Scholarship, error) {
	return &models.Scholarship{ID: id, Name: req.Name}, nil
}

func (f *fakeScholarshipSrv) Delete(context.Context, string) error { return nil }

func multipartRequest(t *testing.T, target string, fields map[string]string, fileField, filename string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if fileField != "" {
		part, err := writer.CreateFormFile(fileField, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestUniversityHandlerListBuildsFilter(t *testing.T) {
	srv := &fakeUniversitySrv{hit: true}
	handler := NewUniversityHandler(srv, 0)
	req := httptest.NewRequest(http.MethodGet, "/universities?search=%20bos%20&country=Turkey&feature=dorms&page=3", nil)
	req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9,en;q=0.8")
	c, rec := testContext(req, nil)

	handler.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bos", srv.lastFilter.Search)
	assert.Equal(t, "Turkey", srv.lastFilter.Country)
	assert.Equal(t, "dorms", srv.lastFilter.Feature)
	assert.Equal(t, "fr", srv.lastFilter.Locale)
	assert.True(t, srv.lastFilter.ActiveOnly)
	assert.Equal(t, 3, srv.lastFilter.Page)
	assert.Equal(t, 20, srv.lastFilter.PageSize)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 1, envelope.Pagination.TotalCount)
}

func TestUniversityHandlerGetLocaleQueryWins(t *testing.T) {
	srv := &fakeUniversitySrv{}
	handler := NewUniversityHandler(srv, 0)
	req := httptest.NewRequest(http.MethodGet, "/universities/bosphorus?locale=AR", nil)
	req.Header.Set("Accept-Language", "fr")
	c, rec := testContext(req, nil)
	c.AddParam("id", "bosphorus")

	handler.Get(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bosphorus", srv.lastGet)
	assert.Equal(t, "ar", srv.lastLocale)
}

func TestUniversityHandlerGetNotFound(t *testing.T) {
	handler := NewUniversityHandler(&fakeUniversitySrv{}, 0)
	c, rec := testContext(httptest.NewRequest(http.MethodGet, "/universities/missing", nil), nil)
	c.AddParam("id", "missing")

	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUniversityHandlerCreateConflict(t *testing.T) {
	srv := &fakeUniversitySrv{createErr: appErrors.Clone(appErrors.ErrConflict, "slug already exists")}
	handler := NewUniversityHandler(srv, 0)
	c, rec := testContext(jsonRequest(http.MethodPost, "/admin/universities", `{"name":"Bosphorus","city":"Istanbul","country":"Turkey"}`), nil)

	handler.Create(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUniversityHandlerCreateRejectsMalformedJSON(t *testing.T) {
	handler := NewUniversityHandler(&fakeUniversitySrv{}, 0)
	c, rec := testContext(jsonRequest(http.MethodPost, "/admin/universities", `{"name":`), nil)

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUniversityHandlerUploadMedia(t *testing.T) {
	srv := &fakeUniversitySrv{}
	handler := NewUniversityHandler(srv, 1024)
	req := multipartRequest(t, "/admin/universities/u1/media", map[string]string{"kind": " Logo "}, "file", "logo.png", []byte("png-bytes"))
	c, rec := testContext(req, nil)
	c.AddParam("id", "u1")

	handler.UploadMedia(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.MediaLogo, srv.lastKind)
	assert.Equal(t, []byte("png-bytes"), srv.mediaBytes)
}

func TestUniversityHandlerUploadMediaValidation(t *testing.T) {
	handler := NewUniversityHandler(&fakeUniversitySrv{}, 4)

	t.Run("missing file", func(t *testing.T) {
		req := multipartRequest(t, "/admin/universities/u1/media", map[string]string{"kind": "logo"}, "", "", nil)
		c, rec := testContext(req, nil)
		handler.UploadMedia(c)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("too large", func(t *testing.T) {
		req := multipartRequest(t, "/admin/universities/u1/media", map[string]string{"kind": "logo"}, "file", "logo.png", []byte("too many bytes"))
		c, rec := testContext(req, nil)
		handler.UploadMedia(c)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "image is too large")
	})
}

func TestProgramHandlerListParsesTuition(t *testing.T) {
	srv := &fakeProgramSrv{}
	handler := NewProgramHandler(srv, srv.requirementsSrv())
	c, rec := testContext(httptest.NewRequest(http.MethodGet, "/programs?degree_level=master&min_tuition=1000&max_tuition=5000.5", nil), nil)

	handler.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "master", srv.lastFilter.DegreeLevel)
	require.NotNil(t, srv.lastFilter.MinTuition)
	require.NotNil(t, srv.lastFilter.MaxTuition)
	assert.Equal(t, 1000.0, *srv.lastFilter.MinTuition)
	assert.Equal(t, 5000.5, *srv.lastFilter.MaxTuition)
	assert.Equal(t, false, decodeEnvelope(t, rec).Meta["cache_hit"])
}

func TestProgramHandlerListRejectsBadTuition(t *testing.T) {
	srv := &fakeProgramSrv{}
	handler := NewProgramHandler(srv, srv.requirementsSrv())
	c, rec := testContext(httptest.NewRequest(http.MethodGet, "/programs?min_tuition=cheap", nil), nil)

	handler.List(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "min_tuition must be a number")
}

func TestProgramHandlerSetRequirements(t *testing.T) {
	srv := &fakeProgramSrv{}
	handler := NewProgramHandler(srv, srv.requirementsSrv())
	body := `{"requirements":[{"requirement_id":"r1","is_mandatory":true},{"requirement_id":"r2"}]}`
	c, rec := testContext(jsonRequest(http.MethodPut, "/admin/programs/p1/requirements", body), nil)
	c.AddParam("id", "p1")

	handler.SetRequirements(c)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, srv.setReq.Requirements, 2)
	assert.True(t, srv.setReq.Requirements[0].IsMandatory)
	assert.False(t, srv.setReq.Requirements[1].IsMandatory)
}

func TestProgramHandlerCreateRequirement(t *testing.T) {
	srv := &fakeProgramSrv{}
	handler := NewProgramHandler(srv, srv.requirementsSrv())
	c, rec := testContext(jsonRequest(http.MethodPost, "/admin/requirements", `{"title":"Passport Copy"}`), nil)

	handler.CreateRequirement(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "Passport Copy")
}

func TestScholarshipHandlerListCoverage(t *testing.T) {
	srv := &fakeScholarshipSrv{}
	handler := NewScholarshipHandler(srv)

	c, rec := testContext(httptest.NewRequest(http.MethodGet, "/scholarships?min_coverage=50&university_id=u1", nil), nil)
	handler.List(c)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, srv.lastFilter.MinCoverage)
	assert.Equal(t, 50, *srv.lastFilter.MinCoverage)
	assert.Equal(t, "u1", srv.lastFilter.UniversityID)

	c, rec = testContext(httptest.NewRequest(http.MethodGet, "/scholarships?min_coverage=half", nil), nil)
	handler.List(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
