package main

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/studyabroad-api/pkg/config"
	"github.com/noah-isme/studyabroad-api/pkg/database"
	"github.com/noah-isme/studyabroad-api/pkg/logger"
)

type cliEnv struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *sqlx.DB
}

func openEnv() (*cliEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return &cliEnv{cfg: cfg, logger: logr, db: db}, nil
}

func (r *cliEnv) Close() {
	_ = r.db.Close()
	_ = r.logger.Sync()
}
