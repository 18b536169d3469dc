package schema

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/Dosada05/golf-society/repositories"
	"github.com/Dosada05/golf-society/services"
)

func TestSchemaAndDataShareOneVersion(t *testing.T) {
	migrations := goMigrations(nil)
	if len(migrations) != 1 {
		t.Fatalf("got %d migrations, want 1", len(migrations))
	}
	if migrations[0].Version != versionSocietyToClub {
		t.Fatalf("version = %d, want %d", migrations[0].Version, versionSocietyToClub)
	}
}

func TestClubSchemaStatementsAreIdempotent(t *testing.T) {
	for i, stmt := range clubSchemaUp {
		if !strings.Contains(stmt, "IF NOT EXISTS") {
			t.Errorf("up statement %d is not guarded: %s", i+1, stmt)
		}
	}
	for i, stmt := range clubSchemaDown {
		if !strings.Contains(stmt, "IF EXISTS") {
			t.Errorf("down statement %d is not guarded: %s", i+1, stmt)
		}
	}
}

type recordingMigrations struct {
	opts services.MigrationOptions
}

func (r *recordingMigrations) Run(ctx context.Context, runner repositories.LegacyTxRunner, opts services.MigrationOptions) (*services.MigrationResult, error) {
	r.opts = opts
	return &services.MigrationResult{DryRun: opts.DryRun}, nil
}

func TestMigrationRunnerCreatesSchemaInSameTransaction(t *testing.T) {
	tests := []struct {
		name     string
		dryRun   bool
		wantOpts int
	}{
		{"apply", false, 1},  // schema setup
		{"dry run", true, 2}, // schema setup + rollback
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			migrations := &recordingMigrations{}
			m := NewMigrator(nil, migrations, slog.New(slog.NewTextHandler(io.Discard, nil)))
			var gotOpts int
			m.newRunner = func(db *sql.DB, opts ...repositories.TxOption) repositories.LegacyTxRunner {
				gotOpts = len(opts)
				return repositories.NewPostgresLegacyTxRunner(db, opts...)
			}

			result, err := m.run(context.Background(), nil, tt.dryRun)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if gotOpts != tt.wantOpts {
				t.Fatalf("runner built with %d options, want %d", gotOpts, tt.wantOpts)
			}
			if result.DryRun != tt.dryRun || migrations.opts.DryRun != tt.dryRun {
				t.Fatalf("dry run flag not passed through: %+v", migrations.opts)
			}
		})
	}
}
