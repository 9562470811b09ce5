package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyabroad-api/internal/models"
	appErrors "github.com/noah-isme/studyabroad-api/pkg/errors"
)

type stubCounter struct {
	n   int
	err error
}

func (s stubCounter) Count(ctx context.Context) (int, error) { return s.n, s.err }

type stubRoleCounter struct{ n int }

func (s stubRoleCounter) CountByRole(ctx context.Context, role models.UserRole) (int, error) {
	return s.n, nil
}

type stubStatusCounter struct{ counts []models.StatusCount }

func (s stubStatusCounter) CountByStatus(ctx context.Context) ([]models.StatusCount, error) {
	return s.counts, nil
}

func TestDashboardServiceStatsCached(t *testing.T) {
	memory := newMemoryCache()
	svc := NewDashboardService(DashboardServiceParams{
		Universities: stubCounter{n: 4},
		Programs:     stubCounter{n: 12},
		Scholarships: stubCounter{n: 3},
		Users:        stubRoleCounter{n: 40},
		Applications: stubStatusCounter{counts: []models.StatusCount{
			{Status: models.ApplicationSubmitted, Count: 5},
			{Status: models.ApplicationUnderReview, Count: 2},
			{Status: models.ApplicationAccepted, Count: 1},
		}},
		Cache: newTestCache(memory),
	})

	stats, hit, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 4, stats.Universities)
	assert.Equal(t, 40, stats.Students)
	assert.Equal(t, 8, stats.Applications)
	assert.Equal(t, 7, stats.PendingReviews)
	assert.Equal(t, 5, stats.ByStatus["submitted"])

	_, hit, err = svc.Stats(context.Background())
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestDashboardServiceStatsError(t *testing.T) {
	svc := NewDashboardService(DashboardServiceParams{
		Universities: stubCounter{err: errors.New("db down")},
		Programs:     stubCounter{},
		Scholarships: stubCounter{},
		Users:        stubRoleCounter{},
		Applications: stubStatusCounter{},
	})
	_, _, err := svc.Stats(context.Background())
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestDashboardServiceAttachesLiveMetrics(t *testing.T) {
	metrics := NewMetricsService()
	metrics.RecordTranslation("fr", nil)
	svc := NewDashboardService(DashboardServiceParams{
		Universities: stubCounter{n: 1},
		Programs:     stubCounter{},
		Scholarships: stubCounter{},
		Users:        stubRoleCounter{},
		Applications: stubStatusCounter{},
		Metrics:      metrics,
	})

	stats, _, err := svc.Stats(context.Background())
	require.NoError(t, err)
	require.NotNil(t, stats.System)
	assert.Equal(t, uint64(1), stats.System.TranslationsDone)
}
