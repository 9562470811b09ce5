package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(origins []string, extra ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(New(origins, extra...))
	r.GET("/universities", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func do(r http.Handler, method, origin string, preflight bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/universities", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	if preflight {
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestPreflightFromAllowedOrigin(t *testing.T) {
	r := newRouter([]string{"https://app.example.com/"}, "Idempotency-Key")
	rec := do(r, http.MethodOptions, "https://app.example.com", true)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Idempotency-Key")
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Accept-Language")
}

func TestPreflightFromUnknownOriginIsRefused(t *testing.T) {
	r := newRouter([]string{"https://app.example.com"})
	rec := do(r, http.MethodOptions, "https://evil.test", true)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSimpleRequestFromUnknownOriginPassesWithoutHeaders(t *testing.T) {
	r := newRouter([]string{"https://app.example.com"})
	rec := do(r, http.MethodGet, "https://evil.test", false)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))
}

func TestWildcardSubdomains(t *testing.T) {
	r := newRouter([]string{"https://*.example.com"})

	rec := do(r, http.MethodGet, "https://admin.example.com", false)
	assert.Equal(t, "https://admin.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(r, http.MethodGet, "http://admin.example.com", false)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(r, http.MethodGet, "https://example.com", false)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestEmptyListAllowsAnyOriginByEcho(t *testing.T) {
	r := newRouter(nil)
	rec := do(r, http.MethodGet, "http://localhost:5173", false)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "X-Request-ID")

	rec = do(r, http.MethodGet, "", false)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
