package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studyabroad-api/internal/dto"
	"github.com/noah-isme/studyabroad-api/internal/models"
	appErrors "github.com/noah-isme/studyabroad-api/pkg/errors"
	"github.com/noah-isme/studyabroad-api/pkg/response"
)

type scholarshipService interface {
	List(ctx context.Context, filter models.ScholarshipFilter) ([]models.Scholarship, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Scholarship, error)
	Create(ctx context.Context, req dto.ScholarshipRequest) (*models.Scholarship, error)
	Update(ctx context.Context, id string, req dto.ScholarshipRequest) (*models.Scholarship, error)
	Delete(ctx context.Context, id string) error
}

// ScholarshipHandler serves scholarships.
type ScholarshipHandler struct {
	service scholarshipService
}

// NewScholarshipHandler constructs the handler.
func NewScholarshipHandler(svc scholarshipService) *ScholarshipHandler {
	return &ScholarshipHandler{service: svc}
}

// List godoc
// @Summary List scholarships
// @Tags Scholarships
// @Produce json
// @Param university_id query string false "University"
// @Param min_coverage query int false "Minimum coverage percent"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /scholarships [get]
func (h *ScholarshipHandler) List(c *gin.Context) {
	filter := models.ScholarshipFilter{
		UniversityID: strings.TrimSpace(c.Query("university_id")),
		ActiveOnly:   true,
	}
	filter.Page, filter.PageSize = pageParams(c)
	if raw := strings.TrimSpace(c.Query("min_coverage")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "min_coverage must be an integer"))
			return
		}
		filter.MinCoverage = &value
	}

	items, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get scholarship
// @Tags Scholarships
// @Produce json
// @Param id path string true "Scholarship ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /scholarships/{id} [get]
func (h *ScholarshipHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Create scholarship
// @Tags Scholarships
// @Accept json
// @Produce json
// @Param payload body dto.ScholarshipRequest true "Scholarship"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/scholarships [post]
func (h *ScholarshipHandler) Create(c *gin.Context) {
	var req dto.ScholarshipRequest
	if !bindJSON(c, &req, "invalid scholarship payload") {
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
// @Summary Update scholarship
// @Tags Scholarships
// @Accept json
// @Produce json
// @Param id path string true "Scholarship ID"
// @Param payload body dto.ScholarshipRequest true "Scholarship"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/scholarships/{id} [put]
func (h *ScholarshipHandler) Update(c *gin.Context) {
	var req dto.ScholarshipRequest
	if !bindJSON(c, &req, "invalid scholarship payload") {
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
// @Summary Delete scholarship
// @Tags Scholarships
// @Param id path string true "Scholarship ID"
// @Success 204 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/scholarships/{id} [delete]
func (h *ScholarshipHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
