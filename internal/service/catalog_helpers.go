package service

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"

	"github.com/noah-isme/studyabroad-api/internal/models"
	"github.com/noah-isme/studyabroad-api/pkg/cache"
	"github.com/noah-isme/studyabroad-api/pkg/config"
	appErrors "github.com/noah-isme/studyabroad-api/pkg/errors"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lower-cases s and collapses every run of non-alphanumerics into a dash.
func Slugify(s string) string {
	return strings.Trim(nonSlugChars.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// applyTranslation overlays a translated name and description. A missing
// translated description keeps the base one.
func applyTranslation(name *string, description **string, tr models.Translation) {
	if strings.TrimSpace(tr.Name) != "" {
		*name = tr.Name
	}
	if tr.Description != nil && strings.TrimSpace(*tr.Description) != "" {
		*description = tr.Description
	}
}

// overlayLocale reports whether reads in locale need the translation tables.
func overlayLocale(locales config.LocaleConfig, locale string) bool {
	return locale != "" && locale != locales.Default && locales.IsSupported(locale)
}

func validateTranslationLocale(locales config.LocaleConfig, locale string) error {
	if !locales.IsSupported(locale) {
		return appErrors.Clone(appErrors.ErrValidation, "unsupported locale")
	}
	if locale == locales.Default {
		return appErrors.Clone(appErrors.ErrValidation, "default locale is stored on the base record")
	}
	return nil
}

func invalidateCatalog(ctx context.Context, c *CacheService) {
	_ = c.Invalidate(ctx, cache.Pattern(cache.NamespaceCatalog))
}

func notFoundOr(err error, message, failure string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, failure)
}

func internalError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
