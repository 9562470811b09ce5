package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/studyabroad-api/internal/dto"
	"github.com/noah-isme/studyabroad-api/internal/models"
	appErrors "github.com/noah-isme/studyabroad-api/pkg/errors"
)

type scholarshipRepository interface {
	List(ctx context.Context, filter models.ScholarshipFilter) ([]models.Scholarship, int, error)
	FindByID(ctx context.Context, id string) (*models.Scholarship, error)
	Create(ctx context.Context, item *models.Scholarship) error
	Update(ctx context.Context, item *models.Scholarship) error
	Delete(ctx context.Context, id string) error
}

// ScholarshipService manages scholarships.
type ScholarshipService struct {
	repo         scholarshipRepository
	universities universityFinder
	cache        *CacheService
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewScholarshipService constructs a ScholarshipService.
func NewScholarshipService(repo scholarshipRepository, universities universityFinder, cacheSvc *CacheService, validate *validator.Validate, logger *zap.Logger) *ScholarshipService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &ScholarshipService{repo: repo, universities: universities, cache: cacheSvc, validator: validate, logger: logger}
}

// List returns scholarships matching the filter.
func (s *ScholarshipService) List(ctx context.Context, filter models.ScholarshipFilter) ([]models.Scholarship, *models.Pagination, error) {
	if filter.MinCoverage != nil && (*filter.MinCoverage < 0 || *filter.MinCoverage > 100) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "min_coverage must be between 0 and 100")
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list scholarships")
	}
	return items, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a scholarship.
func (s *ScholarshipService) Get(ctx context.Context, id string) (*models.Scholarship, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "scholarship not found", "failed to load scholarship")
	}
	return item, nil
}

// Create adds a scholarship.
func (s *ScholarshipService) Create(ctx context.Context, req dto.ScholarshipRequest) (*models.Scholarship, error) {
	item := &models.Scholarship{Active: true}
	if err := s.apply(ctx, item, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, internalError(err, "failed to create scholarship")
	}
	invalidateCatalog(ctx, s.cache)
	return item, nil
}

// Update replaces a scholarship's editable fields.
func (s *ScholarshipService) Update(ctx context.Context, id string, req dto.ScholarshipRequest) (*models.Scholarship, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "scholarship not found", "failed to load scholarship")
	}
	if err := s.apply(ctx, item, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, notFoundOr(err, "scholarship not found", "failed to update scholarship")
	}
	invalidateCatalog(ctx, s.cache)
	return item, nil
}

// Delete removes a scholarship.
func (s *ScholarshipService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "scholarship not found", "failed to delete scholarship")
	}
	invalidateCatalog(ctx, s.cache)
	return nil
}

func (s *ScholarshipService) apply(ctx context.Context, item *models.Scholarship, req dto.ScholarshipRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid scholarship payload")
	}
	if s.universities != nil && item.UniversityID != req.UniversityID {
		if _, err := s.universities.FindByID(ctx, req.UniversityID); err != nil {
			return notFoundOr(err, "university not found", "failed to load university")
		}
	}
	item.UniversityID = req.UniversityID
	item.Name = strings.TrimSpace(req.Name)
	item.Description = req.Description
	item.CoveragePercent = req.CoveragePercent
	item.Accommodation = req.Accommodation
	item.Stipend = req.Stipend
	item.MedicalInsurance = req.MedicalInsurance
	item.Deadline = nil
	if req.Deadline != nil {
		deadline, err := time.Parse("2006-01-02", *req.Deadline)
		if err != nil {
			return validationError(err, "deadline must be YYYY-MM-DD")
		}
		item.Deadline = &deadline
	}
	if req.Active != nil {
		item.Active = *req.Active
	}
	return nil
}
