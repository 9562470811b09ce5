package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studyabroad-api/internal/dto"
	"github.com/noah-isme/studyabroad-api/internal/models"
	"github.com/noah-isme/studyabroad-api/internal/service"
	"github.com/noah-isme/studyabroad-api/pkg/response"
)

type programService interface {
	List(ctx context.Context, filter models.ProgramFilter) (*service.ProgramPage, bool, error)
	Get(ctx context.Context, id, locale string) (*models.ProgramDetail, error)
	Requirements(ctx context.Context, id string) ([]models.ProgramRequirement, error)
	Create(ctx context.Context, req dto.ProgramRequest) (*models.Program, error)
	Update(ctx context.Context, id string, req dto.ProgramRequest) (*models.Program, error)
	Delete(ctx context.Context, id string) error
	ListCatalog(ctx context.Context, search string) ([]models.CatalogProgram, error)
	CreateCatalog(ctx context.Context, req dto.CatalogProgramRequest) (*models.CatalogProgram, error)
	UpsertTranslation(ctx context.Context, id, locale string, req dto.TranslationRequest) (*models.Translation, error)
	ListTranslations(ctx context.Context, id string) ([]models.Translation, error)
}

type requirementService interface {
	List(ctx context.Context) ([]models.Requirement, error)
	Create(ctx context.Context, req dto.RequirementRequest) (*models.Requirement, error)
	Update(ctx context.Context, id string, req dto.RequirementRequest) (*models.Requirement, error)
	Delete(ctx context.Context, id string) error
	SetForProgram(ctx context.Context, programID string, req dto.SetProgramRequirementsRequest) ([]models.ProgramRequirement, error)
}

// ProgramHandler serves university programs, the program catalog and requirements.
type ProgramHandler struct {
	programs     programService
	requirements requirementService
}

// NewProgramHandler constructs the handler.
func NewProgramHandler(programs programService, requirements requirementService) *ProgramHandler {
	return &ProgramHandler{programs: programs, requirements: requirements}
}

// List godoc
// @Summary List programs
// @Tags Programs
// @Produce json
// @Param university_id query string false "University"
// @Param degree_level query string false "Degree level"
// @Param language query string false "Teaching language"
// @Param search query string false "Search"
// @Param min_tuition query number false "Minimum tuition"
// @Param max_tuition query number false "Maximum tuition"
// @Param locale query string false "Locale"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /programs [get]
func (h *ProgramHandler) List(c *gin.Context) {
	filter := models.ProgramFilter{
		UniversityID: strings.TrimSpace(c.Query("university_id")),
		DegreeLevel:  strings.TrimSpace(c.Query("degree_level")),
		Language:     strings.TrimSpace(c.Query("language")),
		Search:       strings.TrimSpace(c.Query("search")),
		ActiveOnly:   true,
		Locale:       queryLocale(c),
		SortBy:       c.Query("sort_by"),
		SortOrder:    c.Query("sort_order"),
	}
	filter.Page, filter.PageSize = pageParams(c)
	var err error
	if filter.MinTuition, err = queryFloat(c, "min_tuition"); err != nil {
		response.Error(c, err)
		return
	}
	if filter.MaxTuition, err = queryFloat(c, "max_tuition"); err != nil {
		response.Error(c, err)
		return
	}

	page, hit, err := h.programs.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, page.Items, page.Pagination, withCacheMeta(c, hit))
}

// Get godoc
// @Summary Get program with requirements
// @Tags Programs
// @Produce json
// @Param id path string true "Program ID"
// @Param locale query string false "Locale"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /programs/{id} [get]
func (h *ProgramHandler) Get(c *gin.Context) {
	detail, err := h.programs.Get(c.Request.Context(), c.Param("id"), queryLocale(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Requirements godoc
// @Summary List the document requirements of a program
// @Tags Programs
// @Produce json
// @Param id path string true "Program ID"
// @Success 200 {object} response.Envelope
// @Router /programs/{id}/requirements [get]
func (h *ProgramHandler) Requirements(c *gin.Context) {
	items, err := h.programs.Requirements(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Create godoc
// @Summary Create program
// @Tags Programs
// @Accept json
// @Produce json
// @Param payload body dto.ProgramRequest true "Program"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/programs [post]
func (h *ProgramHandler) Create(c *gin.Context) {
	var req dto.ProgramRequest
	if !bindJSON(c, &req, "invalid program payload") {
		return
	}
	item, err := h.programs.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update program
// @Tags Programs
// @Accept json
// @Produce json
// @Param id path string true "Program ID"
// @Param payload body dto.ProgramRequest true "Program"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/programs/{id} [put]
func (h *ProgramHandler) Update(c *gin.Context) {
	var req dto.ProgramRequest
	if !bindJSON(c, &req, "invalid program payload") {
		return
	}
	item, err := h.programs.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete program
// @Tags Programs
// @Param id path string true "Program ID"
// @Success 204 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/programs/{id} [delete]
func (h *ProgramHandler) Delete(c *gin.Context) {
	if err := h.programs.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListCatalog godoc
// @Summary List the canonical program catalog
// @Tags Programs
// @Produce json
// @Param search query string false "Search"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/catalog/programs [get]
func (h *ProgramHandler) ListCatalog(c *gin.Context) {
	items, err := h.programs.ListCatalog(c.Request.Context(), strings.TrimSpace(c.Query("search")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// CreateCatalog godoc
// @Summary Add a catalog program
// @Tags Programs
// @Accept json
// @Produce json
// @Param payload body dto.CatalogProgramRequest true "Catalog entry"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/catalog/programs [post]
func (h *ProgramHandler) CreateCatalog(c *gin.Context) {
	var req dto.CatalogProgramRequest
	if !bindJSON(c, &req, "invalid catalog payload") {
		return
	}
	item, err := h.programs.CreateCatalog(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// UpsertTranslation godoc
// @Summary Store a program translation
// @Tags Programs
// @Accept json
// @Produce json
// @Param id path string true "Program ID"
// @Param locale path string true "Locale"
// @Param payload body dto.TranslationRequest true "Translation"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/programs/{id}/translations/{locale} [put]
func (h *ProgramHandler) UpsertTranslation(c *gin.Context) {
	var req dto.TranslationRequest
	if !bindJSON(c, &req, "invalid translation payload") {
		return
	}
	tr, err := h.programs.UpsertTranslation(c.Request.Context(), c.Param("id"), c.Param("locale"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tr, nil)
}

// ListTranslations godoc
// @Summary List program translations
// @Tags Programs
// @Produce json
// @Param id path string true "Program ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/programs/{id}/translations [get]
func (h *ProgramHandler) ListTranslations(c *gin.Context) {
	items, err := h.programs.ListTranslations(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// SetRequirements godoc
// @Summary Replace the requirement set of a program
// @Tags Requirements
// @Accept json
// @Produce json
// @Param id path string true "Program ID"
// @Param payload body dto.SetProgramRequirementsRequest true "Requirements"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/programs/{id}/requirements [put]
func (h *ProgramHandler) SetRequirements(c *gin.Context) {
	var req dto.SetProgramRequirementsRequest
	if !bindJSON(c, &req, "invalid requirements payload") {
		return
	}
	items, err := h.requirements.SetForProgram(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// ListRequirementCatalog godoc
// @Summary List catalog requirements
// @Tags Requirements
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/requirements [get]
func (h *ProgramHandler) ListRequirementCatalog(c *gin.Context) {
	items, err := h.requirements.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// CreateRequirement godoc
// @Summary Create catalog requirement
// @Tags Requirements
// @Accept json
// @Produce json
// @Param payload body dto.RequirementRequest true "Requirement"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/requirements [post]
func (h *ProgramHandler) CreateRequirement(c *gin.Context) {
	var req dto.RequirementRequest
	if !bindJSON(c, &req, "invalid requirement payload") {
		return
	}
	item, err := h.requirements.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// UpdateRequirement godoc
// @Summary Update catalog requirement
// @Tags Requirements
// @Accept json
// @Produce json
// @Param id path string true "Requirement ID"
// @Param payload body dto.RequirementRequest true "Requirement"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/requirements/{id} [put]
func (h *ProgramHandler) UpdateRequirement(c *gin.Context) {
	var req dto.RequirementRequest
	if !bindJSON(c, &req, "invalid requirement payload") {
		return
	}
	item, err := h.requirements.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// DeleteRequirement godoc
// @Summary Delete catalog requirement
// @Tags Requirements
// @Param id path string true "Requirement ID"
// @Success 204 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/requirements/{id} [delete]
func (h *ProgramHandler) DeleteRequirement(c *gin.Context) {
	if err := h.requirements.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
