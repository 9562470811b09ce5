package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studyabroad-api/internal/dto"
	"github.com/noah-isme/studyabroad-api/internal/models"
	appErrors "github.com/noah-isme/studyabroad-api/pkg/errors"
	"github.com/noah-isme/studyabroad-api/pkg/export"
	"github.com/noah-isme/studyabroad-api/pkg/response"
)

// DefaultIdempotencyHeader deduplicates application submissions.
const DefaultIdempotencyHeader = "Idempotency-Key"

type applicationService interface {
	ValidateStep(ctx context.Context, step int, draft dto.ApplicationDraft) (*dto.StepValidation, error)
	Submit(ctx context.Context, studentID string, draft dto.ApplicationDraft, idempotencyKey string, meta models.RequestMeta) (*dto.SubmitApplicationResult, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Application, error)
	ListOwn(ctx context.Context, studentID string, filter models.ApplicationFilter) ([]models.ApplicationSummary, *models.Pagination, error)
	ListAll(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationSummary, *models.Pagination, error)
	UpdateStatus(ctx context.Context, id string, req dto.UpdateApplicationStatusRequest, actorID string, meta models.RequestMeta) (*models.Application, error)
	Export(ctx context.Context, filter models.ApplicationFilter, format export.Format) ([]byte, error)
}

// ApplicationHandler serves the application wizard and admin review.
type ApplicationHandler struct {
	service           applicationService
	idempotencyHeader string
	now               func() time.Time
}

// NewApplicationHandler constructs the handler. An empty header name falls back to Idempotency-Key.
func NewApplicationHandler(svc applicationService, idempotencyHeader string) *ApplicationHandler {
	if strings.TrimSpace(idempotencyHeader) == "" {
		idempotencyHeader = DefaultIdempotencyHeader
	}
	return &ApplicationHandler{service: svc, idempotencyHeader: idempotencyHeader, now: time.Now}
}

// Validate godoc
// @Summary Validate one wizard step
// @Tags Applications
// @Accept json
// @Produce json
// @Param step query int true "Step 1, 2 or 3"
// @Param payload body dto.ApplicationDraft true "Draft"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /applications/validate [post]
func (h *ApplicationHandler) Validate(c *gin.Context) {
	step, err := strconv.Atoi(strings.TrimSpace(c.Query("step")))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "step must be 1, 2 or 3"))
		return
	}
	var draft dto.ApplicationDraft
	if !bindJSON(c, &draft, "invalid application draft") {
		return
	}
	result, err := h.service.ValidateStep(c.Request.Context(), step, draft)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Submit godoc
// @Summary Submit an application
// @Tags Applications
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Deduplication key"
// @Param payload body dto.ApplicationDraft true "Draft"
// @Success 201 {object} response.Envelope
// @Success 200 {object} response.Envelope "Replayed submission"
// @Failure 422 {object} response.Envelope
// @Security BearerAuth
// @Router /applications [post]
func (h *ApplicationHandler) Submit(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var draft dto.ApplicationDraft
	if !bindJSON(c, &draft, "invalid application draft") {
		return
	}
	result, err := h.service.Submit(c.Request.Context(), claims.UserID, draft, strings.TrimSpace(c.GetHeader(h.idempotencyHeader)), requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Replayed {
		response.JSON(c, http.StatusOK, result.Application, nil, map[string]interface{}{"replayed": true})
		return
	}
	response.Created(c, result.Application)
}

// ListOwn godoc
// @Summary List my applications
// @Tags Applications
// @Produce json
// @Param status query string false "Status"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /applications [get]
func (h *ApplicationHandler) ListOwn(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	items, pagination, err := h.service.ListOwn(c.Request.Context(), claims.UserID, applicationFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get an application
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /applications/{id} [get]
func (h *ApplicationHandler) Get(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	app, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}

// ListAll godoc
// @Summary List all applications
// @Tags Applications
// @Produce json
// @Param status query string false "Status"
// @Param program_id query string false "Program"
// @Param university_id query string false "University"
// @Param student_id query string false "Student"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/applications [get]
func (h *ApplicationHandler) ListAll(c *gin.Context) {
	items, pagination, err := h.service.ListAll(c.Request.Context(), applicationFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// UpdateStatus godoc
// @Summary Move an application to another status
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body dto.UpdateApplicationStatusRequest true "Status"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/applications/{id}/status [patch]
func (h *ApplicationHandler) UpdateStatus(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.UpdateApplicationStatusRequest
	if !bindJSON(c, &req, "invalid status payload") {
		return
	}
	app, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req, claims.UserID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}

// Export godoc
// @Summary Export applications
// @Tags Applications
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /admin/applications/export [get]
func (h *ApplicationHandler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	filter := applicationFilter(c)
	filter.Page, filter.PageSize = 0, 0
	body, err := h.service.Export(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("applications_%s.%s", h.now().UTC().Format("20060102_150405"), format)
	response.Attachment(c, filename, format.ContentType(), body)
}

func applicationFilter(c *gin.Context) models.ApplicationFilter {
	filter := models.ApplicationFilter{
		StudentID:    strings.TrimSpace(c.Query("student_id")),
		Status:       models.ApplicationStatus(strings.TrimSpace(c.Query("status"))),
		ProgramID:    strings.TrimSpace(c.Query("program_id")),
		UniversityID: strings.TrimSpace(c.Query("university_id")),
	}
	filter.Page, filter.PageSize = pageParams(c)
	return filter
}
