package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/studyabroad-api/pkg/errors"
	"github.com/noah-isme/studyabroad-api/pkg/middleware/requestid"
)

func TestErrorHidesCauseAndCarriesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(requestid.Middleware())
	var recorded []*gin.Error
	r.GET("/boom", func(c *gin.Context) {
		Error(c, errors.New("dial tcp: connection refused"))
		recorded = c.Errors
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(requestid.Header, "req-12345678")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.NotContains(t, rec.Body.String(), "connection refused")

	var body struct {
		Error     appErrors.Error `json:"error"`
		RequestID string          `json:"request_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, appErrors.ErrInternal.Code, body.Error.Code)
	assert.Equal(t, "req-12345678", body.RequestID)
	assert.Len(t, recorded, 1)
}

func TestErrorClientFailureIsNotLogged(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var recorded []*gin.Error
	r.GET("/missing", func(c *gin.Context) {
		Error(c, appErrors.Clone(appErrors.ErrNotFound, "program not found"))
		recorded = c.Errors
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "program not found")
	assert.Empty(t, recorded)
}

func TestJSONDropsEmptyMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ok", func(c *gin.Context) {
		JSON(c, http.StatusOK, gin.H{"favorited": true}, nil, map[string]interface{}{})
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"favorited":true}}`, rec.Body.String())
}

func TestAttachmentSetsDisposition(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/export", func(c *gin.Context) {
		Attachment(c, "applications.csv", "text/csv", []byte("id\n1\n"))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export", nil))

	assert.Equal(t, `attachment; filename="applications.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, "id\n1\n", rec.Body.String())
}
