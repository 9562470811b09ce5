package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/studyabroad-api/internal/models"
	"github.com/noah-isme/studyabroad-api/pkg/cache"
)

type entityCounter interface {
	Count(ctx context.Context) (int, error)
}

type roleCounter interface {
	CountByRole(ctx context.Context, role models.UserRole) (int, error)
}

type statusCounter interface {
	CountByStatus(ctx context.Context) ([]models.StatusCount, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Universities entityCounter
	Programs     entityCounter
	Scholarships entityCounter
	Users        roleCounter
	Applications statusCounter
	Cache        *CacheService
	Metrics      *MetricsService
	Logger       *zap.Logger
	Config       DashboardServiceConfig
}

// DashboardService composes the admin overview.
type DashboardService struct {
	universities entityCounter
	programs     entityCounter
	scholarships entityCounter
	users        roleCounter
	applications statusCounter
	cache        *CacheService
	metrics      *MetricsService
	logger       *zap.Logger
	now          func() time.Time
	cfg          DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		universities: params.Universities,
		programs:     params.Programs,
		scholarships: params.Scholarships,
		users:        params.Users,
		applications: params.Applications,
		cache:        params.Cache,
		metrics:      params.Metrics,
		logger:       logger,
		now:          time.Now,
		cfg:          cfg,
	}
}

// Stats returns catalog and application counts and indicates cache utilisation.
func (s *DashboardService) Stats(ctx context.Context) (*models.DashboardStats, bool, error) {
	key := cache.Key(cache.NamespaceDashboard, "stats")
	var cached models.DashboardStats
	if hit, err := s.cache.Get(ctx, key, &cached); err != nil {
		s.logger.Warn("dashboard cache read failed", zap.Error(err))
	} else if hit {
		s.attachSystem(&cached)
		return &cached, true, nil
	}

	stats, err := s.compose(ctx)
	if err != nil {
		return nil, false, err
	}
	if err := s.cache.Set(ctx, key, stats, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
	s.attachSystem(stats)
	return stats, false, nil
}

// attachSystem adds live process metrics, which are never cached.
func (s *DashboardService) attachSystem(stats *models.DashboardStats) {
	if s.metrics == nil {
		return
	}
	snapshot := s.metrics.Snapshot()
	stats.System = &snapshot
}

func (s *DashboardService) compose(ctx context.Context) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{ByStatus: map[string]int{}, GeneratedAt: s.now().UTC()}
	var byStatus []models.StatusCount

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.Universities, err = s.universities.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.Programs, err = s.programs.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.Scholarships, err = s.scholarships.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.Students, err = s.users.CountByRole(gctx, models.RoleStudent)
		return err
	})
	g.Go(func() (err error) {
		byStatus, err = s.applications.CountByStatus(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, internalError(err, "failed to compose dashboard")
	}

	for _, bucket := range byStatus {
		stats.ByStatus[string(bucket.Status)] = bucket.Count
		stats.Applications += bucket.Count
		switch bucket.Status {
		case models.ApplicationSubmitted, models.ApplicationUnderReview, models.ApplicationPendingDocuments:
			stats.PendingReviews += bucket.Count
		}
	}
	return stats, nil
}
