package handler

import (
	"context"
	"encoding/json"
	"io"
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

type fakeFavoriteSrv struct {
	state    map[string]bool
	lastType models.FavoriteItemType
}

func (f *fakeFavoriteSrv) Toggle(_ context.Context, userID string, itemType models.FavoriteItemType, itemID string) (bool, error) {
	if !itemType.Valid() {
		return false, appErrors.Clone(appErrors.ErrValidation, "unsupported item type")
	}
	key := userID + "|" + string(itemType) + "|" + itemID
	f.state[key] = !f.state[key]
	return f.state[key], nil
}

func (f *fakeFavoriteSrv) Check(_ context.Context, userID string, itemType models.FavoriteItemType, itemID string) (bool, error) {
	return f.state[userID+"|"+string(itemType)+"|"+itemID], nil
}

func (f *fakeFavoriteSrv) List(_ context.Context, _ string, itemType models.FavoriteItemType) ([]models.Favorite, error) {
	f.lastType = itemType
	return []models.Favorite{}, nil
}

type fakeDocumentSrv struct {
	upload      service.DocumentUpload
	body        []byte
	requirement string
	reusableFor string
	deleteErr   error
}

func (f *fakeDocumentSrv) Upload(_ context.Context, studentID, requirementID string, upload service.DocumentUpload) (*models.StudentDocument, error) {
	f.requirement = requirementID
	f.upload = upload
	f.body, _ = io.ReadAll(upload.Content)
	return &models.StudentDocument{ID: "d1", StudentID: studentID, FileName: upload.Filename}, nil
}

func (f *fakeDocumentSrv) List(context.Context, string) ([]models.StudentDocument, error) {
	return []models.StudentDocument{}, nil
}

func (f *fakeDocumentSrv) DownloadURL(_ context.Context, _, id string) (string, error) {
	return "http://files/signed/" + id, nil
}

func (f *fakeDocumentSrv) Delete(context.Context, string, string) error { return f.deleteErr }

func (f *fakeDocumentSrv) Reusable(_ context.Context, _, programID string) ([]models.ReusableDocument, error) {
	f.reusableFor = programID
	return []models.ReusableDocument{}, nil
}

type fakeAISrv struct {
	chat dto.ChatRequest
	err  error
}

func (f *fakeAISrv) Chat(_ context.Context, req dto.ChatRequest) (*dto.ChatResponse, error) {
	f.chat = req
	if f.err != nil {
		return nil, f.err
	}
	return &dto.ChatResponse{Reply: "hello"}, nil
}

func (f *fakeAISrv) Generate(_ context.Context, req dto.GenerateRequest) (*dto.GenerateResponse, error) {
	return &dto.GenerateResponse{Text: req.Prompt}, nil
}

type fakeRunner struct {
	launched []string
	actor    string
	err      error
}

func (f *fakeRunner) Launch(_ context.Context, locales []string, actorID string) (*models.TranslationRunSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.launched = locales
	f.actor = actorID
	return &models.TranslationRunSnapshot{ID: "run-1", Status: models.TranslationRunQueued, Locales: locales}, nil
}

func (f *fakeRunner) Get(id string) (*models.TranslationRunSnapshot, error) {
	if id != "run-1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "translation run not found")
	}
	return &models.TranslationRunSnapshot{ID: id}, nil
}

func (f *fakeRunner) List() []models.TranslationRunSnapshot {
	return []models.TranslationRunSnapshot{{ID: "run-1"}}
}

func (f *fakeRunner) Cancel(id string) (*models.TranslationRunSnapshot, error) {
	return &models.TranslationRunSnapshot{ID: id, Status: models.TranslationRunCancelled}, nil
}

func (f *fakeRunner) Retry(string) (*models.TranslationRunSnapshot, error) {
	return nil, appErrors.Clone(appErrors.ErrConflict, "run is still in progress")
}

func TestFavoriteHandlerToggleTwice(t *testing.T) {
	srv := &fakeFavoriteSrv{state: map[string]bool{}}
	handler := NewFavoriteHandler(srv)
	body := `{"item_type":"program","item_id":"p1"}`

	for _, want := range []bool{true, false} {
		c, rec := testContext(jsonRequest(http.MethodPost, "/favorites/toggle", body), studentClaims)
		handler.Toggle(c)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp dto.ToggleFavoriteResponse
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &resp))
		assert.Equal(t, want, resp.Favorited)
	}
}

func TestFavoriteHandlerCheckAndList(t *testing.T) {
	srv := &fakeFavoriteSrv{state: map[string]bool{"s1|university|u1": true}}
	handler := NewFavoriteHandler(srv)

	c, rec := testContext(httptest.NewRequest(http.MethodGet, "/favorites/check?item_type=university&item_id=u1", nil), studentClaims)
	handler.Check(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"favorited":true`)

	c, rec = testContext(httptest.NewRequest(http.MethodGet, "/favorites?item_type=scholarship", nil), studentClaims)
	handler.List(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.FavoriteScholarship, srv.lastType)
}

func TestFavoriteHandlerRequiresAuth(t *testing.T) {
	handler := NewFavoriteHandler(&fakeFavoriteSrv{state: map[string]bool{}})
	c, rec := testContext(jsonRequest(http.MethodPost, "/favorites/toggle", `{"item_type":"program","item_id":"p1"}`), nil)

	handler.Toggle(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDocumentHandlerUpload(t *testing.T) {
	srv := &fakeDocumentSrv{}
	handler := NewDocumentHandler(srv)
	req := multipartRequest(t, "/documents", map[string]string{"requirement_id": " r1 "}, "file", "passport.pdf", []byte("%PDF-1.4"))
	c, rec := testContext(req, studentClaims)

	handler.Upload(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "r1", srv.requirement)
	assert.Equal(t, "passport.pdf", srv.upload.Filename)
	assert.Equal(t, int64(8), srv.upload.Size)
	assert.Equal(t, "application/octet-stream", srv.upload.MimeType)
	assert.Equal(t, []byte("%PDF-1.4"), srv.body)
}

func TestDocumentHandlerUploadRequiresFile(t *testing.T) {
	handler := NewDocumentHandler(&fakeDocumentSrv{})
	req := multipartRequest(t, "/documents", map[string]string{"requirement_id": "r1"}, "", "", nil)
	c, rec := testContext(req, studentClaims)

	handler.Upload(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocumentHandlerReusable(t *testing.T) {
	srv := &fakeDocumentSrv{}
	handler := NewDocumentHandler(srv)

	c, rec := testContext(httptest.NewRequest(http.MethodGet, "/documents/reusable", nil), studentClaims)
	handler.Reusable(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = testContext(httptest.NewRequest(http.MethodGet, "/documents/reusable?program_id=p1", nil), studentClaims)
	handler.Reusable(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "p1", srv.reusableFor)
}

func TestDocumentHandlerDeleteForeign(t *testing.T) {
	handler := NewDocumentHandler(&fakeDocumentSrv{deleteErr: appErrors.Clone(appErrors.ErrNotFound, "document not found")})
	c, rec := testContext(httptest.NewRequest(http.MethodDelete, "/documents/d9", nil), studentClaims)
	c.AddParam("id", "d9")

	handler.Delete(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAIHandlerChatUsesHeaderLocale(t *testing.T) {
	srv := &fakeAISrv{}
	handler := NewAIHandler(srv)
	req := jsonRequest(http.MethodPost, "/ai/chat", `{"messages":[{"role":"user","content":"Which city?"}]}`)
	req.Header.Set("Accept-Language", "tr-TR")
	c, rec := testContext(req, studentClaims)

	handler.Chat(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tr", srv.chat.Locale)
	assert.Contains(t, rec.Body.String(), `"reply":"hello"`)
}

func TestAIHandlerUpstreamError(t *testing.T) {
	handler := NewAIHandler(&fakeAISrv{err: appErrors.Clone(appErrors.ErrUpstream, "ai provider returned 429")})
	c, rec := testContext(jsonRequest(http.MethodPost, "/ai/chat", `{"messages":[{"role":"user","content":"hi"}],"locale":"en"}`), studentClaims)

	handler.Chat(c)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestTranslationHandlerStart(t *testing.T) {
	runner := &fakeRunner{}
	handler := NewTranslationHandler(runner)
	adminClaims := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}

	c, rec := testContext(jsonRequest(http.MethodPost, "/admin/translations/runs", `{"locales":["ar","fr"]}`), adminClaims)
	handler.Start(c)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"ar", "fr"}, runner.launched)
	assert.Equal(t, "admin-1", runner.actor)

	c, rec = testContext(httptest.NewRequest(http.MethodPost, "/admin/translations/runs", nil), adminClaims)
	handler.Start(c)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Nil(t, runner.launched)
}

func TestTranslationHandlerErrors(t *testing.T) {
	handler := NewTranslationHandler(&fakeRunner{err: appErrors.Clone(appErrors.ErrConflict, "a translation run is already active")})
	adminClaims := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}

	c, rec := testContext(jsonRequest(http.MethodPost, "/admin/translations/runs", `{}`), adminClaims)
	handler.Start(c)
	assert.Equal(t, http.StatusConflict, rec.Code)

	c, rec = testContext(httptest.NewRequest(http.MethodGet, "/admin/translations/runs/nope", nil), adminClaims)
	c.AddParam("id", "nope")
	handler.Get(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	c, rec = testContext(httptest.NewRequest(http.MethodPost, "/admin/translations/runs/run-1/retry", nil), adminClaims)
	c.AddParam("id", "run-1")
	handler.Retry(c)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
