package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/Dosada05/golf-society/config"
	"github.com/Dosada05/golf-society/db"
	"github.com/Dosada05/golf-society/repositories"
	"github.com/Dosada05/golf-society/schema"
	"github.com/Dosada05/golf-society/services"
	"github.com/Dosada05/golf-society/storage"
)

// app собирает зависимости один раз перед выполнением подкоманды.
type app struct {
	logger *slog.Logger
	level  *slog.LevelVar

	ready     bool
	dbConn    *sql.DB
	standings services.StandingsService
	reports   services.ReportService
	migrator  *schema.Migrator
}

func (a *app) init(ctx context.Context) error {
	if a.ready {
		return nil
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	a.level.Set(cfg.SlogLevel())
	a.logger.Debug("configuration loaded", slog.Bool("snapshots_enabled", cfg.R2.Enabled()))

	dbConn, err := db.Connect(cfg.DatabaseURL, cfg.DBConnectTimeout, a.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	a.dbConn = dbConn
	a.logger.Debug("database connection established")

	var archive storage.ObjectStore
	if cfg.R2.Enabled() {
		archive, err = storage.NewCloudflareR2Store(ctx, storage.CloudflareR2Config{
			AccountID:       cfg.R2.AccountID,
			AccessKeyID:     cfg.R2.AccessKeyID,
			SecretAccessKey: cfg.R2.SecretAccessKey,
			BucketName:      cfg.R2.BucketName,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize snapshot storage: %w", err)
		}
	} else {
		a.logger.Warn("R2 is not configured, migration runs without a legacy snapshot")
	}

	// Инициализация репозиториев
	leagueRepo := repositories.NewPostgresLeagueRepository(dbConn)
	scoreRepo := repositories.NewPostgresScoreRepository(dbConn)
	reportRepo := repositories.NewPostgresReportRepository(dbConn)

	// Инициализация сервисов
	a.standings = services.NewStandingsService(leagueRepo, scoreRepo, a.logger)
	a.reports = services.NewReportService(reportRepo)
	migrations := services.NewMigrationService(archive, cfg.SnapshotPrefix, a.logger)
	a.migrator = schema.NewMigrator(dbConn, migrations, a.logger)
	a.ready = true
	return nil
}

func (a *app) close() {
	if a.dbConn == nil {
		return
	}
	if err := a.dbConn.Close(); err != nil {
		a.logger.Error("failed to close database connection", slog.Any("error", err))
	}
	a.dbConn = nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
