package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/studyabroad-api/api/swagger"
	"github.com/noah-isme/studyabroad-api/internal/handler"
	internalmiddleware "github.com/noah-isme/studyabroad-api/internal/middleware"
	"github.com/noah-isme/studyabroad-api/internal/repository"
	"github.com/noah-isme/studyabroad-api/internal/service"
	"github.com/noah-isme/studyabroad-api/pkg/ai"
	"github.com/noah-isme/studyabroad-api/pkg/cache"
	"github.com/noah-isme/studyabroad-api/pkg/config"
	"github.com/noah-isme/studyabroad-api/pkg/database"
	"github.com/noah-isme/studyabroad-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/studyabroad-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/studyabroad-api/pkg/middleware/requestid"
	"github.com/noah-isme/studyabroad-api/pkg/scheduler"
	"github.com/noah-isme/studyabroad-api/pkg/storage"
)

// @title Study Abroad API
// @version 1.0.0
// @description Marketplace API for universities, programs, scholarships and student applications
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			defer redisClient.Close() //nolint:errcheck
		}
	}

	store, localStore, err := newObjectStorage(cfg.Storage)
	if err != nil {
		logr.Fatal("failed to init object storage", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	aiClient, err := ai.New(ctx, cfg.AI)
	if err != nil {
		if !errors.Is(err, ai.ErrNotConfigured) {
			logr.Fatal("failed to init ai provider", zap.Error(err))
		}
		logr.Warn("ai provider not configured, ai endpoints return 503")
		aiClient = nil
	}

	app := wire(cfg, logr, db, redisClient, store, aiClient)

	app.runner.StartWorker(ctx)
	defer app.runner.StopWorker()

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(logr, 5*time.Minute)
		if err := app.maintenance.Register(sched, service.MaintenanceSchedules{
			RefreshTokenPurge: cfg.Scheduler.RefreshTokenPurgeSchedule,
			TranslationReaper: cfg.Scheduler.TranslationReaperSchedule,
		}); err != nil {
			logr.Fatal("failed to register maintenance jobs", zap.Error(err))
		}
		sched.Start()
		defer sched.Stop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins, cfg.Applications.IdempotencyHeader))
	r.Use(internalmiddleware.Metrics(app.metrics, "/metrics", "/health", "/ready"))

	checks := map[string]handler.Pinger{"database": db}
	if redisClient != nil {
		checks["redis"] = redisPinger{client: redisClient}
	}
	app.handlers.Metrics = handler.NewMetricsHandler(app.metrics, checks)
	if localStore != nil {
		app.handlers.File = handler.NewFileHandler(localStore, cfg.Storage.MediaBucket)
	}

	handler.RegisterRoutes(r, cfg.APIPrefix, app.handlers, app.routerDeps)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

type application struct {
	handlers    handler.Handlers
	routerDeps  handler.RouterDeps
	metrics     *service.MetricsService
	runner      *service.TranslationRunner
	maintenance *service.MaintenanceService
}

func wire(cfg *config.Config, logr *zap.Logger, db *sqlx.DB, redisClient *redis.Client, store storage.ObjectStorage, aiClient ai.Client) *application {
	validate := service.NewValidator()
	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled && cacheRepo != nil)

	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	universityRepo := repository.NewUniversityRepository(db)
	programRepo := repository.NewProgramRepository(db)
	requirementRepo := repository.NewRequirementRepository(db)
	scholarshipRepo := repository.NewScholarshipRepository(db)
	favoriteRepo := repository.NewFavoriteRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)

	roleSvc := service.NewRoleService(roleRepo, userRepo, cacheSvc, validate, logr)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	}).WithPermissions(roleSvc)
	userSvc := service.NewUserService(userRepo, roleSvc, validate, logr)

	universitySvc := service.NewUniversityService(universityRepo, scholarshipRepo, store, cacheSvc, validate, logr, service.UniversityServiceConfig{
		MediaBucket: cfg.Storage.MediaBucket,
		Locales:     cfg.Locales,
		CacheTTL:    cfg.Cache.TTL,
	})
	programSvc := service.NewProgramService(programRepo, requirementRepo, universityRepo, cacheSvc, validate, logr, cfg.Locales, cfg.Cache.TTL)
	requirementSvc := service.NewRequirementService(requirementRepo, programRepo, cacheSvc, validate, logr)
	scholarshipSvc := service.NewScholarshipService(scholarshipRepo, universityRepo, cacheSvc, validate, logr)
	favoriteSvc := service.NewFavoriteService(favoriteRepo, logr)
	documentSvc := service.NewDocumentService(documentRepo, requirementRepo, store, logr, service.DocumentServiceConfig{
		Bucket:       cfg.Storage.DocumentsBucket,
		MaxFileSize:  cfg.Documents.MaxFileSizeBytes,
		AllowedMIMEs: cfg.Documents.AllowedMIMEs,
		SignedURLTTL: cfg.Storage.SignedURLTTL,
	})
	applicationSvc := service.NewApplicationService(applicationRepo, programRepo, requirementRepo, documentRepo, userRepo, metrics, validate, logr).WithPermissions(roleSvc)

	aiSvc := service.NewAIService(aiClient, metrics, validate, logr)
	runner := service.NewTranslationRunner(programRepo, aiSvc, metrics, logr, service.TranslationRunnerConfig{
		Delay:   cfg.Translation.Delay,
		RunTTL:  cfg.Translation.RunTTL,
		Locales: cfg.Locales,
	})

	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Universities: universityRepo,
		Programs:     programRepo,
		Scholarships: scholarshipRepo,
		Users:        userRepo,
		Applications: applicationRepo,
		Cache:        cacheSvc,
		Metrics:      metrics,
		Logger:       logr,
		Config:       service.DashboardServiceConfig{CacheTTL: time.Minute},
	})
	maintenanceSvc := service.NewMaintenanceService(userRepo, runner, logr)

	return &application{
		handlers: handler.Handlers{
			Auth:        handler.NewAuthHandler(authSvc),
			User:        handler.NewUserHandler(userSvc),
			Role:        handler.NewRoleHandler(roleSvc),
			University:  handler.NewUniversityHandler(universitySvc, cfg.Documents.MaxFileSizeBytes),
			Program:     handler.NewProgramHandler(programSvc, requirementSvc),
			Scholarship: handler.NewScholarshipHandler(scholarshipSvc),
			Favorite:    handler.NewFavoriteHandler(favoriteSvc),
			Document:    handler.NewDocumentHandler(documentSvc),
			Application: handler.NewApplicationHandler(applicationSvc, cfg.Applications.IdempotencyHeader),
			AI:          handler.NewAIHandler(aiSvc),
			Translation: handler.NewTranslationHandler(runner),
			Dashboard:   handler.NewDashboardHandler(dashboardSvc),
		},
		routerDeps: handler.RouterDeps{
			Tokens:      authSvc,
			Permissions: roleSvc,
			Audit:       userRepo,
		},
		metrics:     metrics,
		runner:      runner,
		maintenance: maintenanceSvc,
	}
}

// newObjectStorage returns the configured backend. The local backend is also
// returned on its own so the file routes can stream from it.
func newObjectStorage(cfg config.StorageConfig) (storage.ObjectStorage, *storage.LocalStorage, error) {
	switch cfg.Driver {
	case config.StorageDriverS3:
		s3Store, err := storage.NewS3Storage(storage.S3Config{
			Endpoint:       cfg.S3Endpoint,
			Region:         cfg.S3Region,
			AccessKey:      cfg.S3AccessKey,
			SecretKey:      cfg.S3SecretKey,
			ForcePathStyle: cfg.S3ForcePath,
			PublicBaseURL:  cfg.PublicBaseURL,
		})
		if err != nil {
			return nil, nil, err
		}
		return s3Store, nil, nil
	case config.StorageDriverLocal, "":
		signer := storage.NewSignedURLSigner(cfg.SignedURLSecret, cfg.SignedURLTTL)
		local, err := storage.NewLocalStorage(cfg.LocalDir, cfg.PublicBaseURL, signer)
		if err != nil {
			return nil, nil, err
		}
		return local, local, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
