package handler

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studyabroad-api/internal/dto"
	"github.com/noah-isme/studyabroad-api/internal/models"
	"github.com/noah-isme/studyabroad-api/internal/service"
	appErrors "github.com/noah-isme/studyabroad-api/pkg/errors"
	"github.com/noah-isme/studyabroad-api/pkg/response"
)

type universityService interface {
	List(ctx context.Context, filter models.UniversityFilter) (*service.UniversityPage, bool, error)
	Get(ctx context.Context, idOrSlug, locale string) (*models.UniversityDetail, error)
	Create(ctx context.Context, req dto.UniversityRequest) (*models.University, error)
	Update(ctx context.Context, id string, req dto.UniversityRequest) (*models.University, error)
	Delete(ctx context.Context, id string) error
	UploadMedia(ctx context.Context, id string, kind models.UniversityMediaKind, content io.Reader) (*models.University, error)
	UpsertTranslation(ctx context.Context, id, locale string, req dto.TranslationRequest) (*models.Translation, error)
	ListTranslations(ctx context.Context, id string) ([]models.Translation, error)
}

// UniversityHandler serves the university catalog.
type UniversityHandler struct {
	service       universityService
	maxImageBytes int64
}

// NewUniversityHandler constructs the handler. maxImageBytes bounds media uploads.
func NewUniversityHandler(svc universityService, maxImageBytes int64) *UniversityHandler {
	if maxImageBytes <= 0 {
		maxImageBytes = 8 << 20
	}
	return &UniversityHandler{service: svc, maxImageBytes: maxImageBytes}
}

// List godoc
// @Summary List universities
// @Tags Universities
// @Produce json
// @Param search query string false "Search by name"
// @Param city query string false "City"
// @Param country query string false "Country"
// @Param feature query string false "Feature tag"
// @Param locale query string false "Locale for translated fields"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /universities [get]
func (h *UniversityHandler) List(c *gin.Context) {
	filter := models.UniversityFilter{
		Search:     strings.TrimSpace(c.Query("search")),
		City:       strings.TrimSpace(c.Query("city")),
		Country:    strings.TrimSpace(c.Query("country")),
		Feature:    strings.TrimSpace(c.Query("feature")),
		ActiveOnly: true,
		Locale:     queryLocale(c),
		SortBy:     c.Query("sort_by"),
		SortOrder:  c.Query("sort_order"),
	}
	filter.Page, filter.PageSize = pageParams(c)

	page, hit, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, page.Items, page.Pagination, withCacheMeta(c, hit))
}

// Get godoc
// @Summary Get university by id or slug
// @Tags Universities
// @Produce json
// @Param idOrSlug path string true "University ID or slug"
// @Param locale query string false "Locale for translated fields"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /universities/{idOrSlug} [get]
func (h *UniversityHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"), queryLocale(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Create university
// @Tags Universities
// @Accept json
// @Produce json
// @Param payload body dto.UniversityRequest true "University"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/universities [post]
func (h *UniversityHandler) Create(c *gin.Context) {
	var req dto.UniversityRequest
	if !bindJSON(c, &req, "invalid university payload") {
		return
	}
	item, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update university
// @Tags Universities
// @Accept json
// @Produce json
// @Param id path string true "University ID"
// @Param payload body dto.UniversityRequest true "University"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/universities/{id} [put]
func (h *UniversityHandler) Update(c *gin.Context) {
	var req dto.UniversityRequest
	if !bindJSON(c, &req, "invalid university payload") {
		return
	}
	item, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete university
// @Tags Universities
// @Param id path string true "University ID"
// @Success 204 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/universities/{id} [delete]
func (h *UniversityHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UploadMedia godoc
// @Summary Upload logo or cover image
// @Tags Universities
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "University ID"
// @Param kind formData string true "logo or cover"
// @Param file formData file true "Image"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/universities/{id}/media [post]
func (h *UniversityHandler) UploadMedia(c *gin.Context) {
	kind := models.UniversityMediaKind(strings.ToLower(strings.TrimSpace(c.PostForm("kind"))))
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	if header.Size > h.maxImageBytes {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "image is too large"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable upload"))
		return
	}
	defer file.Close() //nolint:errcheck

	item, err := h.service.UploadMedia(c.Request.Context(), c.Param("id"), kind, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// UpsertTranslation godoc
// @Summary Store a translated name and description
// @Tags Universities
// @Accept json
// @Produce json
// @Param id path string true "University ID"
// @Param locale path string true "Locale"
// @Param payload body dto.TranslationRequest true "Translation"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/universities/{id}/translations/{locale} [put]
func (h *UniversityHandler) UpsertTranslation(c *gin.Context) {
	var req dto.TranslationRequest
	if !bindJSON(c, &req, "invalid translation payload") {
		return
	}
	tr, err := h.service.UpsertTranslation(c.Request.Context(), c.Param("id"), c.Param("locale"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tr, nil)
}

// ListTranslations godoc
// @Summary List translations of a university
// @Tags Universities
// @Produce json
// @Param id path string true "University ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/universities/{id}/translations [get]
func (h *UniversityHandler) ListTranslations(c *gin.Context) {
	items, err := h.service.ListTranslations(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}
