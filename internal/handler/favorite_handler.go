package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studyabroad-api/internal/dto"
	"github.com/noah-isme/studyabroad-api/internal/models"
	"github.com/noah-isme/studyabroad-api/pkg/response"
)

type favoriteService interface {
	Toggle(ctx context.Context, userID string, itemType models.FavoriteItemType, itemID string) (bool, error)
	Check(ctx context.Context, userID string, itemType models.FavoriteItemType, itemID string) (bool, error)
	List(ctx context.Context, userID string, itemType models.FavoriteItemType) ([]models.Favorite, error)
}

// FavoriteHandler serves a student's saved items.
type FavoriteHandler struct {
	service favoriteService
}

// NewFavoriteHandler constructs the handler.
func NewFavoriteHandler(svc favoriteService) *FavoriteHandler {
	return &FavoriteHandler{service: svc}
}

// Toggle godoc
// @Summary Add or remove a favorite
// @Tags Favorites
// @Accept json
// @Produce json
// @Param payload body dto.ToggleFavoriteRequest true "Item"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /favorites/toggle [post]
func (h *FavoriteHandler) Toggle(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.ToggleFavoriteRequest
	if !bindJSON(c, &req, "invalid favorite payload") {
		return
	}
	favorited, err := h.service.Toggle(c.Request.Context(), claims.UserID, req.ItemType, req.ItemID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ToggleFavoriteResponse{Favorited: favorited}, nil)
}

// List godoc
// @Summary List favorites
// @Tags Favorites
// @Produce json
// @Param item_type query string false "university, program or scholarship"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /favorites [get]
func (h *FavoriteHandler) List(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	itemType := models.FavoriteItemType(strings.TrimSpace(c.Query("item_type")))
	items, err := h.service.List(c.Request.Context(), claims.UserID, itemType)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Check godoc
// @Summary Check whether an item is a favorite
// @Tags Favorites
// @Produce json
// @Param item_type query string true "Item type"
// @Param item_id query string true "Item ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /favorites/check [get]
func (h *FavoriteHandler) Check(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	itemType := models.FavoriteItemType(strings.TrimSpace(c.Query("item_type")))
	favorited, err := h.service.Check(c.Request.Context(), claims.UserID, itemType, strings.TrimSpace(c.Query("item_id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ToggleFavoriteResponse{Favorited: favorited}, nil)
}
