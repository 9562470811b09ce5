package handler

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/studyabroad-api/pkg/errors"
	"github.com/noah-isme/studyabroad-api/pkg/response"
	"github.com/noah-isme/studyabroad-api/pkg/storage"
)

type fileStore interface {
	Open(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	ResolveToken(token string) (bucket, key string, err error)
}

// FileHandler streams objects kept by the local storage driver.
type FileHandler struct {
	store         fileStore
	publicBuckets map[string]struct{}
}

// NewFileHandler serves public reads only for the listed buckets.
func NewFileHandler(store fileStore, publicBuckets ...string) *FileHandler {
	set := make(map[string]struct{}, len(publicBuckets))
	for _, b := range publicBuckets {
		set[b] = struct{}{}
	}
	return &FileHandler{store: store, publicBuckets: set}
}

// Public godoc
// @Summary Download a public media object
// @Tags Files
// @Param bucket path string true "Bucket"
// @Param key path string true "Object key"
// @Success 200 {file} file
// @Router /files/public/{bucket}/{key} [get]
func (h *FileHandler) Public(c *gin.Context) {
	bucket := c.Param("bucket")
	if _, ok := h.publicBuckets[bucket]; !ok {
		response.Error(c, appErrors.ErrNotFound)
		return
	}
	h.stream(c, bucket, strings.TrimPrefix(c.Param("key"), "/"), "public, max-age=3600")
}

// Signed godoc
// @Summary Download an object through a signed token
// @Tags Files
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /files/signed/{token} [get]
func (h *FileHandler) Signed(c *gin.Context) {
	bucket, key, err := h.store.ResolveToken(c.Param("token"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "download link is invalid or expired"))
		return
	}
	h.stream(c, bucket, key, "private, no-store")
}

func (h *FileHandler) stream(c *gin.Context, bucket, key, cacheControl string) {
	reader, err := h.store.Open(c.Request.Context(), bucket, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			response.Error(c, appErrors.ErrNotFound)
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrNotFound.Code, http.StatusNotFound, "file not found"))
		return
	}
	defer reader.Close() //nolint:errcheck

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Cache-Control", cacheControl)
	c.DataFromReader(http.StatusOK, -1, contentType, reader, nil)
}
