package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/studyabroad-api/internal/dto"
	"github.com/noah-isme/studyabroad-api/internal/models"
	appErrors "github.com/noah-isme/studyabroad-api/pkg/errors"
)

type requirementRepository interface {
	List(ctx context.Context) ([]models.Requirement, error)
	FindByID(ctx context.Context, id string) (*models.Requirement, error)
	Create(ctx context.Context, item *models.Requirement) error
	Update(ctx context.Context, item *models.Requirement) error
	Delete(ctx context.Context, id string) error
	ForProgram(ctx context.Context, programID string) ([]models.ProgramRequirement, error)
	ReplaceForProgram(ctx context.Context, programID string, links []models.ProgramRequirement) error
}

type programFinder interface {
	FindByID(ctx context.Context, id string) (*models.Program, error)
}

// RequirementService manages the requirement catalog and program requirement sets.
type RequirementService struct {
	repo      requirementRepository
	programs  programFinder
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRequirementService constructs a RequirementService.
func NewRequirementService(repo requirementRepository, programs programFinder, cacheSvc *CacheService, validate *validator.Validate, logger *zap.Logger) *RequirementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &RequirementService{repo: repo, programs: programs, cache: cacheSvc, validator: validate, logger: logger}
}

// List returns the requirement catalog.
func (s *RequirementService) List(ctx context.Context) ([]models.Requirement, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, internalError(err, "failed to list requirements")
	}
	return items, nil
}

// Create adds a requirement to the catalog.
func (s *RequirementService) Create(ctx context.Context, req dto.RequirementRequest) (*models.Requirement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid requirement payload")
	}
	item := &models.Requirement{Title: strings.TrimSpace(req.Title), Description: req.Description}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, internalError(err, "failed to create requirement")
	}
	return item, nil
}

// Update changes a requirement. Renaming changes the document type derived from the title.
func (s *RequirementService) Update(ctx context.Context, id string, req dto.RequirementRequest) (*models.Requirement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid requirement payload")
	}
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "requirement not found", "failed to load requirement")
	}
	item.Title = strings.TrimSpace(req.Title)
	item.Description = req.Description
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, notFoundOr(err, "requirement not found", "failed to update requirement")
	}
	invalidateCatalog(ctx, s.cache)
	return item, nil
}

// Delete removes a requirement and its program links.
func (s *RequirementService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "requirement not found", "failed to delete requirement")
	}
	invalidateCatalog(ctx, s.cache)
	return nil
}

// SetForProgram replaces the requirement set of a program.
func (s *RequirementService) SetForProgram(ctx context.Context, programID string, req dto.SetProgramRequirementsRequest) ([]models.ProgramRequirement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid requirements payload")
	}
	if _, err := s.programs.FindByID(ctx, programID); err != nil {
		return nil, notFoundOr(err, "program not found", "failed to load program")
	}

	seen := make(map[string]bool, len(req.Requirements))
	links := make([]models.ProgramRequirement, 0, len(req.Requirements))
	for _, link := range req.Requirements {
		if seen[link.RequirementID] {
			return nil, appErrors.Clone(appErrors.ErrValidation, "duplicate requirement "+link.RequirementID)
		}
		seen[link.RequirementID] = true
		if _, err := s.repo.FindByID(ctx, link.RequirementID); err != nil {
			return nil, notFoundOr(err, "requirement "+link.RequirementID+" not found", "failed to load requirement")
		}
		links = append(links, models.ProgramRequirement{ProgramID: programID, RequirementID: link.RequirementID, IsMandatory: link.IsMandatory})
	}

	if err := s.repo.ReplaceForProgram(ctx, programID, links); err != nil {
		return nil, internalError(err, "failed to replace program requirements")
	}
	invalidateCatalog(ctx, s.cache)

	items, err := s.repo.ForProgram(ctx, programID)
	if err != nil {
		return nil, internalError(err, "failed to load program requirements")
	}
	return items, nil
}
