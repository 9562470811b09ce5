package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studyabroad-api/internal/dto"
	"github.com/noah-isme/studyabroad-api/internal/models"
	"github.com/noah-isme/studyabroad-api/internal/service"
	appErrors "github.com/noah-isme/studyabroad-api/pkg/errors"
	"github.com/noah-isme/studyabroad-api/pkg/response"
)

type documentService interface {
	Upload(ctx context.Context, studentID, requirementID string, upload service.DocumentUpload) (*models.StudentDocument, error)
	List(ctx context.Context, studentID string) ([]models.StudentDocument, error)
	DownloadURL(ctx context.Context, studentID, id string) (string, error)
	Delete(ctx context.Context, studentID, id string) error
	Reusable(ctx context.Context, studentID, programID string) ([]models.ReusableDocument, error)
}

// DocumentHandler serves a student's document library.
type DocumentHandler struct {
	service documentService
}

// NewDocumentHandler constructs the handler.
func NewDocumentHandler(svc documentService) *DocumentHandler {
	return &DocumentHandler{service: svc}
}

// Upload godoc
// @Summary Upload a requirement document
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param requirement_id formData string true "Requirement ID"
// @Param file formData file true "Document"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /documents [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var form dto.DocumentUploadRequest
	if err := c.ShouldBind(&form); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid upload form"))
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable upload"))
		return
	}
	defer file.Close() //nolint:errcheck

	doc, err := h.service.Upload(c.Request.Context(), claims.UserID, strings.TrimSpace(form.RequirementID), service.DocumentUpload{
		Filename: header.Filename,
		Size:     header.Size,
		MimeType: header.Header.Get("Content-Type"),
		Content:  file,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// List godoc
// @Summary List my documents
// @Tags Documents
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	items, err := h.service.List(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Download godoc
// @Summary Get a short-lived download link
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{id}/download [get]
func (h *DocumentHandler) Download(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	url, err := h.service.DownloadURL(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"url": url}, nil)
}

// Delete godoc
// @Summary Delete one of my documents
// @Tags Documents
// @Param id path string true "Document ID"
// @Success 204 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{id} [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	if err := h.service.Delete(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Reusable godoc
// @Summary Latest stored document per requirement of a program
// @Tags Documents
// @Produce json
// @Param program_id query string true "Program ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/reusable [get]
func (h *DocumentHandler) Reusable(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	programID := strings.TrimSpace(c.Query("program_id"))
	if programID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "program_id is required"))
		return
	}
	items, err := h.service.Reusable(c.Request.Context(), claims.UserID, programID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}
