package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studyabroad-api/internal/dto"
	"github.com/noah-isme/studyabroad-api/internal/models"
	"github.com/noah-isme/studyabroad-api/pkg/response"
)

type translationRunner interface {
	Launch(ctx context.Context, locales []string, actorID string) (*models.TranslationRunSnapshot, error)
	Get(id string) (*models.TranslationRunSnapshot, error)
	List() []models.TranslationRunSnapshot
	Cancel(id string) (*models.TranslationRunSnapshot, error)
	Retry(id string) (*models.TranslationRunSnapshot, error)
}

// TranslationHandler controls bulk program translation runs.
type TranslationHandler struct {
	runner translationRunner
}

// NewTranslationHandler constructs the handler.
func NewTranslationHandler(runner translationRunner) *TranslationHandler {
	return &TranslationHandler{runner: runner}
}

// Start godoc
// @Summary Start a bulk translation run
// @Description Translates every active program into the requested locales, skipping existing translations.
// @Tags Translations
// @Accept json
// @Produce json
// @Param payload body dto.StartTranslationRunRequest false "Locales, defaults to every non-default locale"
// @Success 202 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/translations/runs [post]
func (h *TranslationHandler) Start(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.StartTranslationRunRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req, "invalid translation run payload") {
		return
	}
	snap, err := h.runner.Launch(c.Request.Context(), req.Locales, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, snap)
}

// List godoc
// @Summary List retained translation runs
// @Tags Translations
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/translations/runs [get]
func (h *TranslationHandler) List(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.runner.List(), nil)
}

// Get godoc
// @Summary Translation run progress
// @Tags Translations
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/translations/runs/{id} [get]
func (h *TranslationHandler) Get(c *gin.Context) {
	snap, err := h.runner.Get(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snap, nil)
}

// Cancel godoc
// @Summary Cancel a translation run
// @Tags Translations
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/translations/runs/{id}/cancel [post]
func (h *TranslationHandler) Cancel(c *gin.Context) {
	snap, err := h.runner.Cancel(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snap, nil)
}

// Retry godoc
// @Summary Retry the failed items of a finished run
// @Tags Translations
// @Produce json
// @Param id path string true "Run ID"
// @Success 202 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/translations/runs/{id}/retry [post]
func (h *TranslationHandler) Retry(c *gin.Context) {
	snap, err := h.runner.Retry(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, snap)
}
