package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studyabroad-api/internal/dto"
	"github.com/noah-isme/studyabroad-api/pkg/response"
)

type aiService interface {
	Chat(ctx context.Context, req dto.ChatRequest) (*dto.ChatResponse, error)
	Generate(ctx context.Context, req dto.GenerateRequest) (*dto.GenerateResponse, error)
}

// AIHandler proxies the hosted completion provider.
type AIHandler struct {
	service aiService
}

// NewAIHandler constructs the handler.
func NewAIHandler(svc aiService) *AIHandler {
	return &AIHandler{service: svc}
}

// Chat godoc
// @Summary Chat with the study advisor
// @Tags AI
// @Accept json
// @Produce json
// @Param payload body dto.ChatRequest true "Conversation"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Security BearerAuth
// @Router /ai/chat [post]
func (h *AIHandler) Chat(c *gin.Context) {
	var req dto.ChatRequest
	if !bindJSON(c, &req, "invalid chat payload") {
		return
	}
	if req.Locale == "" {
		req.Locale = queryLocale(c)
	}
	resp, err := h.service.Chat(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Generate godoc
// @Summary Free-form generation
// @Tags AI
// @Accept json
// @Produce json
// @Param payload body dto.GenerateRequest true "Prompt"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Security BearerAuth
// @Router /ai/generate [post]
func (h *AIHandler) Generate(c *gin.Context) {
	var req dto.GenerateRequest
	if !bindJSON(c, &req, "invalid generate payload") {
		return
	}
	resp, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}
