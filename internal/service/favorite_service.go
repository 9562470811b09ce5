package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/studyabroad-api/internal/models"
	appErrors "github.com/noah-isme/studyabroad-api/pkg/errors"
)

type favoriteRepository interface {
	Toggle(ctx context.Context, userID string, itemType models.FavoriteItemType, itemID string) (bool, error)
	Exists(ctx context.Context, userID string, itemType models.FavoriteItemType, itemID string) (bool, error)
	List(ctx context.Context, userID string, itemType models.FavoriteItemType) ([]models.Favorite, error)
}

// FavoriteService manages a student's saved universities, programs and scholarships.
type FavoriteService struct {
	repo   favoriteRepository
	logger *zap.Logger
}

// NewFavoriteService constructs a FavoriteService.
func NewFavoriteService(repo favoriteRepository, logger *zap.Logger) *FavoriteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FavoriteService{repo: repo, logger: logger}
}

// Toggle flips the favorite state and returns whether the item is now favorited.
func (s *FavoriteService) Toggle(ctx context.Context, userID string, itemType models.FavoriteItemType, itemID string) (bool, error) {
	if err := checkFavoriteRef(itemType, itemID); err != nil {
		return false, err
	}
	favorited, err := s.repo.Toggle(ctx, userID, itemType, itemID)
	if err != nil {
		return false, internalError(err, "failed to toggle favorite")
	}
	s.logger.Debug("favorite toggled", zap.String("user_id", userID), zap.String("item_type", string(itemType)), zap.Bool("favorited", favorited))
	return favorited, nil
}

// Check reports whether the item is favorited.
func (s *FavoriteService) Check(ctx context.Context, userID string, itemType models.FavoriteItemType, itemID string) (bool, error) {
	if err := checkFavoriteRef(itemType, itemID); err != nil {
		return false, err
	}
	ok, err := s.repo.Exists(ctx, userID, itemType, itemID)
	if err != nil {
		return false, internalError(err, "failed to check favorite")
	}
	return ok, nil
}

// List returns the user's favorites, optionally narrowed to one item type.
func (s *FavoriteService) List(ctx context.Context, userID string, itemType models.FavoriteItemType) ([]models.Favorite, error) {
	if itemType != "" && !itemType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid item_type")
	}
	items, err := s.repo.List(ctx, userID, itemType)
	if err != nil {
		return nil, internalError(err, "failed to list favorites")
	}
	if items == nil {
		items = []models.Favorite{}
	}
	return items, nil
}

func checkFavoriteRef(itemType models.FavoriteItemType, itemID string) error {
	if !itemType.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "invalid item_type")
	}
	if strings.TrimSpace(itemID) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "item_id is required")
	}
	return nil
}
