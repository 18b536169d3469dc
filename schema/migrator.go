package schema

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/golf-society/repositories"
	"github.com/Dosada05/golf-society/services"
	"github.com/pressly/goose/v3"
)

// versionSocietyToClub covers both the club schema and the data migration.
// They share one transaction, so a failed run leaves the legacy schema as it
// was.
const versionSocietyToClub int64 = 1

// Migrator applies the society to club migration as a goose version, so a
// completed run is recorded in goose_db_version.
type Migrator struct {
	db         *sql.DB
	migrations services.MigrationService
	newRunner  func(db *sql.DB, opts ...repositories.TxOption) repositories.LegacyTxRunner
	logger     *slog.Logger
}

func NewMigrator(db *sql.DB, migrations services.MigrationService, logger *slog.Logger) *Migrator {
	return &Migrator{
		db:         db,
		migrations: migrations,
		newRunner:  repositories.NewPostgresLegacyTxRunner,
		logger:     logger,
	}
}

// run executes the migration in one transaction that also creates the club
// schema. A dry run rolls that transaction back.
func (m *Migrator) run(ctx context.Context, db *sql.DB, dryRun bool) (*services.MigrationResult, error) {
	opts := []repositories.TxOption{repositories.WithSetup(CreateClubSchema)}
	if dryRun {
		opts = append(opts, repositories.WithRollbackOnly())
	}
	return m.migrations.Run(ctx, m.newRunner(db, opts...), services.MigrationOptions{DryRun: dryRun})
}

// Up applies pending versions. When the data migration was recorded by an
// earlier run the result has AlreadyMigrated set.
func (m *Migrator) Up(ctx context.Context) (*services.MigrationResult, error) {
	var result *services.MigrationResult
	dataUp := func(ctx context.Context, db *sql.DB) error {
		// Транзакцию открывает раннер миграции, а не goose: DDL идёт в ней же.
		res, err := m.run(ctx, db, false)
		if err != nil {
			return err
		}
		result = res
		return nil
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, m.db, nil, goose.WithGoMigrations(goMigrations(dataUp)...))
	if err != nil {
		return nil, fmt.Errorf("failed to create schema provider: %w", err)
	}

	applied, err := provider.Up(ctx)
	for _, r := range applied {
		m.logger.InfoContext(ctx, "schema version applied",
			slog.Int64("version", r.Source.Version),
			slog.Duration("duration", r.Duration),
		)
	}
	if err != nil {
		var partial *goose.PartialError
		if errors.As(err, &partial) && partial.Err != nil {
			return nil, partial.Err
		}
		return nil, fmt.Errorf("failed to apply schema versions: %w", err)
	}

	if result == nil {
		m.logger.InfoContext(ctx, "society to club migration already recorded", slog.Int64("version", versionSocietyToClub))
		result = &services.MigrationResult{AlreadyMigrated: true}
	}
	return result, nil
}

// DryRun runs the whole migration, schema included, in one transaction that
// is always rolled back. goose is not involved so nothing is recorded.
func (m *Migrator) DryRun(ctx context.Context) (*services.MigrationResult, error) {
	return m.run(ctx, m.db, true)
}

// Version returns the highest applied schema version, 0 on a fresh database.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	provider, err := goose.NewProvider(goose.DialectPostgres, m.db, nil, goose.WithGoMigrations(goMigrations(nil)...))
	if err != nil {
		return 0, fmt.Errorf("failed to create schema provider: %w", err)
	}
	version, err := provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

func goMigrations(dataUp func(context.Context, *sql.DB) error) []*goose.Migration {
	if dataUp == nil {
		dataUp = func(context.Context, *sql.DB) error {
			return errors.New("data migration is not available in read-only mode")
		}
	}
	// Откат удаляет только схему клубов: исходные данные лежат в снапшоте R2.
	return []*goose.Migration{
		goose.NewGoMigration(versionSocietyToClub,
			&goose.GoFunc{RunDB: dataUp},
			&goose.GoFunc{RunDB: dropClubSchemaDB},
		),
	}
}
