package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/studyabroad-api/pkg/scheduler"
)

type refreshTokenPurger interface {
	PurgeRefreshTokens(ctx context.Context, cutoff time.Time) (int64, error)
}

type runReaper interface {
	Reap(ctx context.Context) error
}

type taskRegistrar interface {
	Register(name, spec string, task scheduler.Task) error
}

// MaintenanceSchedules holds cron specs for periodic housekeeping.
type MaintenanceSchedules struct {
	RefreshTokenPurge string
	TranslationReaper string
}

// MaintenanceService holds the periodic housekeeping tasks.
type MaintenanceService struct {
	tokens refreshTokenPurger
	runs   runReaper
	logger *zap.Logger
	now    func() time.Time
}

// NewMaintenanceService constructs a MaintenanceService.
func NewMaintenanceService(tokens refreshTokenPurger, runs runReaper, logger *zap.Logger) *MaintenanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaintenanceService{tokens: tokens, runs: runs, logger: logger, now: time.Now}
}

// PurgeRefreshTokens deletes expired tokens and tokens revoked before now.
func (s *MaintenanceService) PurgeRefreshTokens(ctx context.Context) error {
	removed, err := s.tokens.PurgeRefreshTokens(ctx, s.now().UTC())
	if err != nil {
		return internalError(err, "failed to purge refresh tokens")
	}
	s.logger.Info("refresh tokens purged", zap.Int64("removed", removed))
	return nil
}

// ReapTranslationRuns drops finished translation runs past their retention.
func (s *MaintenanceService) ReapTranslationRuns(ctx context.Context) error {
	if s.runs == nil {
		return nil
	}
	return s.runs.Reap(ctx)
}

// Register adds the housekeeping tasks to the scheduler. Empty specs are skipped.
func (s *MaintenanceService) Register(reg taskRegistrar, schedules MaintenanceSchedules) error {
	if schedules.RefreshTokenPurge != "" {
		if err := reg.Register("refresh_token_purge", schedules.RefreshTokenPurge, s.PurgeRefreshTokens); err != nil {
			return err
		}
	}
	if schedules.TranslationReaper != "" {
		if err := reg.Register("translation_run_reaper", schedules.TranslationReaper, s.ReapTranslationRuns); err != nil {
			return err
		}
	}
	return nil
}
