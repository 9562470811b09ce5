package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyabroad-api/internal/models"
)

type tokenTable map[string]*models.JWTClaims

func (t tokenTable) ValidateToken(token string) (*models.JWTClaims, error) {
	claims, ok := t[token]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

type staticPermissions map[models.UserRole]models.PermissionSet

func (s staticPermissions) PermissionsFor(_ context.Context, role models.UserRole) (models.PermissionSet, error) {
	return s[role], nil
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []*models.AuditLog
}

func (r *recordingAudit) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, log)
	return nil
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

func buildTestRouter(audit *recordingAudit, ready Pinger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	programs := &fakeProgramSrv{}
	handlers := Handlers{
		University:  NewUniversityHandler(&fakeUniversitySrv{}, 0),
		Program:     NewProgramHandler(programs, programs.requirementsSrv()),
		Scholarship: NewScholarshipHandler(&fakeScholarshipSrv{}),
		Favorite:    NewFavoriteHandler(&fakeFavoriteSrv{state: map[string]bool{}}),
		Document:    NewDocumentHandler(&fakeDocumentSrv{}),
		Application: NewApplicationHandler(&fakeApplicationSrv{}, ""),
		AI:          NewAIHandler(&fakeAISrv{}),
		Translation: NewTranslationHandler(&fakeRunner{}),
		Dashboard:   NewDashboardHandler(&fakeDashboardSrv{stats: &models.DashboardStats{}}),
		Metrics:     NewMetricsHandler(nil, map[string]Pinger{"database": ready}),
	}
	deps := RouterDeps{
		Tokens: tokenTable{
			"student-token": {UserID: "s1", Role: models.RoleStudent},
			"admin-token":   {UserID: "a1", Role: models.RoleAdmin},
		},
		Permissions: staticPermissions{
			models.RoleAdmin: models.NewPermissionSet([]models.Permission{
				{Module: models.ModuleDashboard, Action: models.ActionView},
				{Module: models.ModuleUniversities, Action: models.ActionCreate},
			}),
		},
		Audit: audit,
	}
	router := gin.New()
	RegisterRoutes(router, "/api/v1", handlers, deps)
	return router
}

func authorized(method, target, token, body string) *http.Request {
	req := jsonRequest(method, target, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestRouterAccessControl(t *testing.T) {
	router := buildTestRouter(&recordingAudit{}, nil)

	cases := []struct {
		name   string
		req    *http.Request
		status int
	}{
		{"public catalog", httptest.NewRequest(http.MethodGet, "/api/v1/universities", nil), http.StatusOK},
		{"public program requirements", httptest.NewRequest(http.MethodGet, "/api/v1/programs/p1/requirements", nil), http.StatusOK},
		{"favorites anonymous", httptest.NewRequest(http.MethodGet, "/api/v1/favorites", nil), http.StatusUnauthorized},
		{"favorites bad token", authorized(http.MethodGet, "/api/v1/favorites", "forged", ""), http.StatusUnauthorized},
		{"favorites student", authorized(http.MethodGet, "/api/v1/favorites", "student-token", ""), http.StatusOK},
		{"reusable documents", authorized(http.MethodGet, "/api/v1/documents/reusable?program_id=p1", "student-token", ""), http.StatusOK},
		{"dashboard student", authorized(http.MethodGet, "/api/v1/admin/dashboard", "student-token", ""), http.StatusForbidden},
		{"dashboard admin", authorized(http.MethodGet, "/api/v1/admin/dashboard", "admin-token", ""), http.StatusOK},
		{"applications admin without permission", authorized(http.MethodGet, "/api/v1/admin/applications", "admin-token", ""), http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := performRequest(router, tc.req)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}
}

func TestRouterForbiddenNamesPermission(t *testing.T) {
	router := buildTestRouter(&recordingAudit{}, nil)

	rec := performRequest(router, authorized(http.MethodPost, "/api/v1/admin/translations/runs", "admin-token", `{}`))

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "translations:create")
}

func TestRouterAuditsCatalogMutations(t *testing.T) {
	audit := &recordingAudit{}
	router := buildTestRouter(audit, nil)

	rec := performRequest(router, authorized(http.MethodPost, "/api/v1/admin/universities", "admin-token", `{"name":"Bosphorus","city":"Istanbul","country":"Turkey"}`))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, "UNIVERSITY_CREATE", audit.entries[0].Action)
	require.NotNil(t, audit.entries[0].UserID)
	assert.Equal(t, "a1", *audit.entries[0].UserID)
}

func TestRouterResponseMetaOnAPI(t *testing.T) {
	router := buildTestRouter(&recordingAudit{}, nil)

	rec := performRequest(router, httptest.NewRequest(http.MethodGet, "/api/v1/universities", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, false, envelope.Meta["cache_hit"])
}

func TestRouterReadiness(t *testing.T) {
	healthy := buildTestRouter(&recordingAudit{}, pingFunc(func(context.Context) error { return nil }))
	rec := performRequest(healthy, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"ok"`)

	down := buildTestRouter(&recordingAudit{}, pingFunc(func(context.Context) error { return errors.New("connection refused") }))
	rec = performRequest(down, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")

	rec = performRequest(down, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
