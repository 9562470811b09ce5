package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/studyabroad-api/internal/dto"
	"github.com/noah-isme/studyabroad-api/internal/models"
	"github.com/noah-isme/studyabroad-api/pkg/cache"
	"github.com/noah-isme/studyabroad-api/pkg/config"
	appErrors "github.com/noah-isme/studyabroad-api/pkg/errors"
)

type programRepository interface {
	List(ctx context.Context, filter models.ProgramFilter) ([]models.ProgramView, int, error)
	FindView(ctx context.Context, id string) (*models.ProgramView, error)
	FindByID(ctx context.Context, id string) (*models.Program, error)
	Create(ctx context.Context, p *models.Program) error
	Update(ctx context.Context, p *models.Program) error
	Delete(ctx context.Context, id string) error
	ListCatalog(ctx context.Context, search string) ([]models.CatalogProgram, error)
	CreateCatalog(ctx context.Context, item *models.CatalogProgram) error
	UpsertTranslation(ctx context.Context, tr *models.Translation) error
	ListTranslations(ctx context.Context, id string) ([]models.Translation, error)
	TranslationsByLocale(ctx context.Context, locale string, ids []string) (map[string]models.Translation, error)
}

type programRequirementReader interface {
	ForProgram(ctx context.Context, programID string) ([]models.ProgramRequirement, error)
}

type universityFinder interface {
	FindByID(ctx context.Context, id string) (*models.University, error)
}

// ProgramPage is a cached page of programs.
type ProgramPage struct {
	Items      []models.ProgramView `json:"items"`
	Pagination *models.Pagination   `json:"pagination"`
}

// ProgramService exposes university programs and the program catalog.
type ProgramService struct {
	repo         programRepository
	requirements programRequirementReader
	universities universityFinder
	cache        *CacheService
	validator    *validator.Validate
	logger       *zap.Logger
	locales      config.LocaleConfig
	cacheTTL     time.Duration
}

// NewProgramService constructs a ProgramService.
func NewProgramService(repo programRepository, requirements programRequirementReader, universities universityFinder, cacheSvc *CacheService, validate *validator.Validate, logger *zap.Logger, locales config.LocaleConfig, cacheTTL time.Duration) *ProgramService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &ProgramService{repo: repo, requirements: requirements, universities: universities, cache: cacheSvc, validator: validate, logger: logger, locales: locales, cacheTTL: cacheTTL}
}

// List returns a localised page of programs. The boolean reports a cache hit.
func (s *ProgramService) List(ctx context.Context, filter models.ProgramFilter) (*ProgramPage, bool, error) {
	params := map[string]string{
		"university": filter.UniversityID,
		"degree":     filter.DegreeLevel,
		"language":   filter.Language,
		"search":     filter.Search,
		"active":     strconv.FormatBool(filter.ActiveOnly),
		"locale":     filter.Locale,
		"page":       strconv.Itoa(filter.Page),
		"size":       strconv.Itoa(filter.PageSize),
		"sort":       filter.SortBy + " " + filter.SortOrder,
	}
	if filter.MinTuition != nil {
		params["min"] = strconv.FormatFloat(*filter.MinTuition, 'f', -1, 64)
	}
	if filter.MaxTuition != nil {
		params["max"] = strconv.FormatFloat(*filter.MaxTuition, 'f', -1, 64)
	}
	key := cache.QueryKey(cache.NamespaceCatalog, "programs", params)

	return readThrough(ctx, s.cache, key, s.cacheTTL, func(ctx context.Context) (*ProgramPage, error) {
		items, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, internalError(err, "failed to list programs")
		}
		if err := s.localize(ctx, filter.Locale, items); err != nil {
			return nil, err
		}
		return &ProgramPage{Items: items, Pagination: models.NewPagination(filter.Page, filter.PageSize, total)}, nil
	})
}

// Get returns a localised program with its requirements.
func (s *ProgramService) Get(ctx context.Context, id, locale string) (*models.ProgramDetail, error) {
	view, err := s.repo.FindView(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "program not found", "failed to load program")
	}
	items := []models.ProgramView{*view}
	if err := s.localize(ctx, locale, items); err != nil {
		return nil, err
	}
	reqs, err := s.Requirements(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.ProgramDetail{ProgramView: items[0], Requirements: reqs}, nil
}

// Requirements returns the requirement links of a program.
func (s *ProgramService) Requirements(ctx context.Context, id string) ([]models.ProgramRequirement, error) {
	reqs, err := s.requirements.ForProgram(ctx, id)
	if err != nil {
		return nil, internalError(err, "failed to load requirements")
	}
	if reqs == nil {
		reqs = []models.ProgramRequirement{}
	}
	return reqs, nil
}

func (s *ProgramService) localize(ctx context.Context, locale string, items []models.ProgramView) error {
	if !overlayLocale(s.locales, locale) || len(items) == 0 {
		return nil
	}
	ids := make([]string, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	translations, err := s.repo.TranslationsByLocale(ctx, locale, ids)
	if err != nil {
		return internalError(err, "failed to load translations")
	}
	for i := range items {
		if tr, ok := translations[items[i].ID]; ok {
			applyTranslation(&items[i].Name, &items[i].Description, tr)
		}
	}
	return nil
}

// Create adds a program to a university.
func (s *ProgramService) Create(ctx context.Context, req dto.ProgramRequest) (*models.Program, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid program payload")
	}
	if err := s.ensureUniversity(ctx, req.UniversityID); err != nil {
		return nil, err
	}
	p := &models.Program{Active: true}
	applyProgram(p, req)
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, internalError(err, "failed to create program")
	}
	invalidateCatalog(ctx, s.cache)
	return p, nil
}

// Update replaces a program's editable fields.
func (s *ProgramService) Update(ctx context.Context, id string, req dto.ProgramRequest) (*models.Program, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid program payload")
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "program not found", "failed to load program")
	}
	if req.UniversityID != p.UniversityID {
		if err := s.ensureUniversity(ctx, req.UniversityID); err != nil {
			return nil, err
		}
	}
	applyProgram(p, req)
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, notFoundOr(err, "program not found", "failed to update program")
	}
	invalidateCatalog(ctx, s.cache)
	return p, nil
}

// Delete removes a program.
func (s *ProgramService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "program not found", "failed to delete program")
	}
	invalidateCatalog(ctx, s.cache)
	return nil
}

func (s *ProgramService) ensureUniversity(ctx context.Context, id string) error {
	if s.universities == nil {
		return nil
	}
	if _, err := s.universities.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "university does not exist")
		}
		return internalError(err, "failed to load university")
	}
	return nil
}

func applyProgram(p *models.Program, req dto.ProgramRequest) {
	p.UniversityID = req.UniversityID
	p.CatalogProgramID = req.CatalogProgramID
	p.Name = strings.TrimSpace(req.Name)
	p.Description = req.Description
	p.DegreeLevel = req.DegreeLevel
	p.Language = req.Language
	p.DurationYears = req.DurationYears
	p.Intake = req.Intake
	p.TuitionFee = req.TuitionFee
	p.ServiceFee = req.ServiceFee
	p.Currency = strings.ToUpper(req.Currency)
	p.ForcePayment = req.ForcePayment
	if req.Active != nil {
		p.Active = *req.Active
	}
}

// ListCatalog returns the canonical program catalog.
func (s *ProgramService) ListCatalog(ctx context.Context, search string) ([]models.CatalogProgram, error) {
	items, err := s.repo.ListCatalog(ctx, search)
	if err != nil {
		return nil, internalError(err, "failed to list program catalog")
	}
	return items, nil
}

// CreateCatalog adds an entry to the program catalog.
func (s *ProgramService) CreateCatalog(ctx context.Context, req dto.CatalogProgramRequest) (*models.CatalogProgram, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid catalog payload")
	}
	item := &models.CatalogProgram{Name: strings.TrimSpace(req.Name), Field: req.Field, DegreeLevel: req.DegreeLevel}
	if err := s.repo.CreateCatalog(ctx, item); err != nil {
		return nil, internalError(err, "failed to create catalog program")
	}
	return item, nil
}

// UpsertTranslation stores a program's name and description in a locale.
func (s *ProgramService) UpsertTranslation(ctx context.Context, id, locale string, req dto.TranslationRequest) (*models.Translation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid translation payload")
	}
	if err := validateTranslationLocale(s.locales, locale); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, notFoundOr(err, "program not found", "failed to load program")
	}
	tr := &models.Translation{EntityID: id, Locale: locale, Name: strings.TrimSpace(req.Name), Description: req.Description}
	if err := s.repo.UpsertTranslation(ctx, tr); err != nil {
		return nil, internalError(err, "failed to store translation")
	}
	invalidateCatalog(ctx, s.cache)
	return tr, nil
}

// ListTranslations returns every stored translation of a program.
func (s *ProgramService) ListTranslations(ctx context.Context, id string) ([]models.Translation, error) {
	items, err := s.repo.ListTranslations(ctx, id)
	if err != nil {
		return nil, internalError(err, "failed to list translations")
	}
	return items, nil
}
