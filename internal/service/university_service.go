package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/studyabroad-api/internal/dto"
	"github.com/noah-isme/studyabroad-api/internal/models"
	"github.com/noah-isme/studyabroad-api/pkg/cache"
	"github.com/noah-isme/studyabroad-api/pkg/config"
	"github.com/noah-isme/studyabroad-api/pkg/database"
	appErrors "github.com/noah-isme/studyabroad-api/pkg/errors"
	"github.com/noah-isme/studyabroad-api/pkg/storage"
)

type universityRepository interface {
	List(ctx context.Context, filter models.UniversityFilter) ([]models.University, int, error)
	FindByID(ctx context.Context, id string) (*models.University, error)
	FindBySlug(ctx context.Context, slug string) (*models.University, error)
	Create(ctx context.Context, u *models.University) error
	Update(ctx context.Context, u *models.University) error
	UpdateMedia(ctx context.Context, id string, kind models.UniversityMediaKind, url string) error
	Delete(ctx context.Context, id string) error
	CountPrograms(ctx context.Context, id string) (int, error)
	UpsertTranslation(ctx context.Context, tr *models.Translation) error
	ListTranslations(ctx context.Context, id string) ([]models.Translation, error)
	TranslationsByLocale(ctx context.Context, locale string, ids []string) (map[string]models.Translation, error)
}

type universityScholarships interface {
	ForUniversity(ctx context.Context, universityID string) ([]models.Scholarship, error)
}

// UniversityPage is a cached page of universities.
type UniversityPage struct {
	Items      []models.University `json:"items"`
	Pagination *models.Pagination  `json:"pagination"`
}

// UniversityServiceConfig wires storage and locale settings.
type UniversityServiceConfig struct {
	MediaBucket string
	Locales     config.LocaleConfig
	CacheTTL    time.Duration
}

// UniversityService exposes the public university catalog and its administration.
type UniversityService struct {
	repo         universityRepository
	scholarships universityScholarships
	storage      storage.ObjectStorage
	cache        *CacheService
	validator    *validator.Validate
	logger       *zap.Logger
	cfg          UniversityServiceConfig
	now          func() time.Time
}

// NewUniversityService constructs a UniversityService.
func NewUniversityService(repo universityRepository, scholarships universityScholarships, store storage.ObjectStorage, cacheSvc *CacheService, validate *validator.Validate, logger *zap.Logger, cfg UniversityServiceConfig) *UniversityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if cfg.MediaBucket == "" {
		cfg.MediaBucket = "universities"
	}
	return &UniversityService{repo: repo, scholarships: scholarships, storage: store, cache: cacheSvc, validator: validate, logger: logger, cfg: cfg, now: time.Now}
}

// List returns a localised page of universities. The boolean reports a cache hit.
func (s *UniversityService) List(ctx context.Context, filter models.UniversityFilter) (*UniversityPage, bool, error) {
	key := cache.QueryKey(cache.NamespaceCatalog, "universities", map[string]string{
		"search":  filter.Search,
		"city":    filter.City,
		"country": filter.Country,
		"feature": filter.Feature,
		"active":  strconv.FormatBool(filter.ActiveOnly),
		"locale":  filter.Locale,
		"page":    strconv.Itoa(filter.Page),
		"size":    strconv.Itoa(filter.PageSize),
		"sort":    filter.SortBy + " " + filter.SortOrder,
	})
	return readThrough(ctx, s.cache, key, s.cfg.CacheTTL, func(ctx context.Context) (*UniversityPage, error) {
		items, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, internalError(err, "failed to list universities")
		}
		if err := s.localize(ctx, filter.Locale, items); err != nil {
			return nil, err
		}
		return &UniversityPage{Items: items, Pagination: models.NewPagination(filter.Page, filter.PageSize, total)}, nil
	})
}

// Get resolves a university by id or slug with its program count and scholarships.
func (s *UniversityService) Get(ctx context.Context, idOrSlug, locale string) (*models.UniversityDetail, error) {
	u, err := s.find(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	items := []models.University{*u}
	if err := s.localize(ctx, locale, items); err != nil {
		return nil, err
	}
	detail := &models.UniversityDetail{University: items[0]}
	if detail.ProgramsCount, err = s.repo.CountPrograms(ctx, u.ID); err != nil {
		return nil, internalError(err, "failed to count programs")
	}
	if s.scholarships != nil {
		if detail.Scholarships, err = s.scholarships.ForUniversity(ctx, u.ID); err != nil {
			return nil, internalError(err, "failed to load scholarships")
		}
	}
	if detail.Scholarships == nil {
		detail.Scholarships = []models.Scholarship{}
	}
	return detail, nil
}

func (s *UniversityService) find(ctx context.Context, idOrSlug string) (*models.University, error) {
	u, err := s.repo.FindBySlug(ctx, idOrSlug)
	if err == nil {
		return u, nil
	}
	u, err = s.repo.FindByID(ctx, idOrSlug)
	if err != nil {
		return nil, notFoundOr(err, "university not found", "failed to load university")
	}
	return u, nil
}

func (s *UniversityService) localize(ctx context.Context, locale string, items []models.University) error {
	if !overlayLocale(s.cfg.Locales, locale) || len(items) == 0 {
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

// Create adds a university, deriving the slug from the name when omitted.
func (s *UniversityService) Create(ctx context.Context, req dto.UniversityRequest) (*models.University, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid university payload")
	}
	u := &models.University{Active: true}
	s.apply(u, req)
	if u.Slug == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "slug cannot be derived from name")
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, s.writeError(err, "failed to create university")
	}
	invalidateCatalog(ctx, s.cache)
	return u, nil
}

// Update replaces a university's editable fields.
func (s *UniversityService) Update(ctx context.Context, id string, req dto.UniversityRequest) (*models.University, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid university payload")
	}
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "university not found", "failed to load university")
	}
	s.apply(u, req)
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, s.writeError(err, "failed to update university")
	}
	invalidateCatalog(ctx, s.cache)
	return u, nil
}

func (s *UniversityService) apply(u *models.University, req dto.UniversityRequest) {
	u.Name = strings.TrimSpace(req.Name)
	u.Slug = Slugify(req.Slug)
	if u.Slug == "" {
		u.Slug = Slugify(u.Name)
	}
	u.City = strings.TrimSpace(req.City)
	u.Country = strings.TrimSpace(req.Country)
	u.Description = req.Description
	u.Website = req.Website
	u.VideoURL = req.VideoURL
	u.MapEmbedURL = req.MapEmbedURL
	u.Features = append(u.Features[:0], req.Features...)
	if u.Features == nil {
		u.Features = []string{}
	}
	if req.Active != nil {
		u.Active = *req.Active
	}
}

func (s *UniversityService) writeError(err error, message string) error {
	if database.IsUniqueViolation(err, "") {
		return appErrors.Clone(appErrors.ErrConflict, "slug already in use")
	}
	return notFoundOr(err, "university not found", message)
}

// Delete removes a university.
func (s *UniversityService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "university not found", "failed to delete university")
	}
	invalidateCatalog(ctx, s.cache)
	return nil
}

// UploadMedia normalises an image and stores it as the university's logo or cover.
func (s *UniversityService) UploadMedia(ctx context.Context, id string, kind models.UniversityMediaKind, content io.Reader) (*models.University, error) {
	var spec storage.ImageSpec
	switch kind {
	case models.MediaLogo:
		spec = storage.LogoSpec
	case models.MediaCover:
		spec = storage.CoverSpec
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "kind must be logo or cover")
	}
	if s.storage == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "storage not configured")
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, notFoundOr(err, "university not found", "failed to load university")
	}

	encoded, err := storage.NormalizeImage(content, spec)
	if err != nil {
		return nil, validationError(err, "file is not a supported image")
	}
	key := storage.JoinKey(id, fmt.Sprintf("%s_%d.jpg", kind, s.now().Unix()))
	obj, err := s.storage.Put(ctx, s.cfg.MediaBucket, key, bytes.NewReader(encoded), "image/jpeg")
	if err != nil {
		return nil, internalError(err, "failed to store image")
	}
	if err := s.repo.UpdateMedia(ctx, id, kind, obj.URL); err != nil {
		return nil, notFoundOr(err, "university not found", "failed to update university media")
	}
	invalidateCatalog(ctx, s.cache)

	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "university not found", "failed to load university")
	}
	return u, nil
}

// UpsertTranslation stores the university's name and description in a locale.
func (s *UniversityService) UpsertTranslation(ctx context.Context, id, locale string, req dto.TranslationRequest) (*models.Translation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid translation payload")
	}
	if err := validateTranslationLocale(s.cfg.Locales, locale); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, notFoundOr(err, "university not found", "failed to load university")
	}
	tr := &models.Translation{EntityID: id, Locale: locale, Name: strings.TrimSpace(req.Name), Description: req.Description}
	if err := s.repo.UpsertTranslation(ctx, tr); err != nil {
		return nil, internalError(err, "failed to store translation")
	}
	invalidateCatalog(ctx, s.cache)
	return tr, nil
}

// ListTranslations returns every stored translation of a university.
func (s *UniversityService) ListTranslations(ctx context.Context, id string) ([]models.Translation, error) {
	items, err := s.repo.ListTranslations(ctx, id)
	if err != nil {
		return nil, internalError(err, "failed to list translations")
	}
	return items, nil
}
