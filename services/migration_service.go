package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/Dosada05/golf-society/migrate"
	"github.com/Dosada05/golf-society/models"
	"github.com/Dosada05/golf-society/repositories"
	"github.com/Dosada05/golf-society/storage"
	"github.com/google/uuid"
)

const snapshotContentType = "application/json"

// MigrationOptions controls a single run of the society to club migration.
type MigrationOptions struct {
	// DryRun skips the snapshot upload and marks the result. Rolling the
	// transaction back is the runner's job (repositories.WithRollbackOnly).
	DryRun bool
}

// Anomaly is a record the migration could not link but did not fail on.
type Anomaly struct {
	ScoreID      int    `json:"score_id"`
	TournamentID int    `json:"tournament_id"`
	UserID       int    `json:"user_id"`
	Reason       string `json:"reason"`
}

type MigrationResult struct {
	RunID               string    `json:"run_id"`
	AlreadyMigrated     bool      `json:"already_migrated"`
	DryRun              bool      `json:"dry_run"`
	SnapshotKey         string    `json:"snapshot_key,omitempty"`
	Clubs               int       `json:"clubs"`
	ClubMembers         int       `json:"club_members"`
	Participants        int       `json:"participants"`
	ParticipantsSkipped int       `json:"participants_skipped"`
	TournamentsLinked   int       `json:"tournaments_linked"`
	ScoresLinked        int       `json:"scores_linked"`
	Anomalies           []Anomaly `json:"anomalies,omitempty"`
}

type MigrationService interface {
	// Run converts societies into clubs inside one transaction provided by
	// runner. A database that was already migrated yields a result with
	// AlreadyMigrated set and no writes.
	Run(ctx context.Context, runner repositories.LegacyTxRunner, opts MigrationOptions) (*MigrationResult, error)
}

type migrationService struct {
	archive        storage.ObjectStore
	snapshotPrefix string
	generateToken  func(length int) (string, error)
	logger         *slog.Logger
}

// NewMigrationService creates the migration driver. archive may be nil, in
// which case no pre-migration snapshot is taken.
func NewMigrationService(archive storage.ObjectStore, snapshotPrefix string, logger *slog.Logger) MigrationService {
	return &migrationService{
		archive:        archive,
		snapshotPrefix: snapshotPrefix,
		generateToken:  generateSecureToken,
		logger:         logger,
	}
}

// legacyData is everything the migration reads before writing.
type legacyData struct {
	Societies   []models.Society         `json:"societies"`
	Users       []models.User            `json:"users"`
	Tournaments []models.Tournament      `json:"tournaments"`
	Scores      []models.TournamentScore `json:"scores"`
}

// migrationPlan carries the output of each step to the next ones.
type migrationPlan struct {
	legacy legacyData
	tokens migrate.TokenFunc
	clubs  []models.Club
}

func (s *migrationService) Run(ctx context.Context, runner repositories.LegacyTxRunner, opts MigrationOptions) (*MigrationResult, error) {
	result := &MigrationResult{RunID: uuid.NewString(), DryRun: opts.DryRun}
	logger := s.logger.With(slog.String("run_id", result.RunID), slog.Bool("dry_run", opts.DryRun))

	err := runner.WithinTx(ctx, func(ctx context.Context, repo repositories.LegacyRepository) error {
		migrated, err := s.alreadyMigrated(ctx, repo)
		if err != nil {
			return err
		}
		if migrated {
			result.AlreadyMigrated = true
			return nil
		}

		legacy, err := s.loadLegacy(ctx, repo)
		if err != nil {
			return err
		}
		logger.InfoContext(ctx, "legacy data loaded",
			slog.Int("societies", len(legacy.Societies)),
			slog.Int("users", len(legacy.Users)),
			slog.Int("tournaments", len(legacy.Tournaments)),
			slog.Int("scores", len(legacy.Scores)),
		)

		if !opts.DryRun && s.archive != nil {
			key, err := s.snapshot(ctx, result.RunID, legacy)
			if err != nil {
				return err
			}
			result.SnapshotKey = key
			logger.InfoContext(ctx, "legacy snapshot archived", slog.String("key", key))
		}

		plan := &migrationPlan{legacy: *legacy, tokens: newTokenSource(s.generateToken)}
		for _, step := range migrate.Steps {
			if err := s.runStep(ctx, repo, step, plan, result); err != nil {
				return fmt.Errorf("step %s: %w", step, err)
			}
			logger.InfoContext(ctx, "migration step finished", slog.String("step", step.String()))
		}
		return nil
	})
	if err != nil {
		logger.ErrorContext(ctx, "migration rolled back", slog.Any("error", err))
		return nil, fmt.Errorf("%w: %w", ErrTransactionAborted, err)
	}

	if result.AlreadyMigrated {
		logger.InfoContext(ctx, "database already migrated, nothing to do")
		return result, nil
	}
	for _, a := range result.Anomalies {
		logger.WarnContext(ctx, "score left without participant",
			slog.Int("score_id", a.ScoreID),
			slog.Int("tournament_id", a.TournamentID),
			slog.Int("user_id", a.UserID),
		)
	}
	logger.InfoContext(ctx, "migration finished",
		slog.Int("clubs", result.Clubs),
		slog.Int("club_members", result.ClubMembers),
		slog.Int("participants", result.Participants),
		slog.Int("tournaments_linked", result.TournamentsLinked),
		slog.Int("scores_linked", result.ScoresLinked),
		slog.Int("anomalies", len(result.Anomalies)),
	)
	return result, nil
}

// alreadyMigrated reports whether the legacy tables are gone or clubs were
// already created by an earlier run.
func (s *migrationService) alreadyMigrated(ctx context.Context, repo repositories.LegacyRepository) (bool, error) {
	present, err := repo.LegacySchemaPresent(ctx)
	if err != nil {
		return false, err
	}
	if !present {
		return true, nil
	}
	clubs, err := repo.CountClubs(ctx)
	if err != nil {
		return false, err
	}
	return clubs > 0, nil
}

func (s *migrationService) loadLegacy(ctx context.Context, repo repositories.LegacyRepository) (*legacyData, error) {
	var (
		data legacyData
		err  error
	)
	if data.Societies, err = repo.ListSocieties(ctx); err != nil {
		return nil, err
	}
	if len(data.Societies) == 0 {
		return nil, ErrNoLegacyData
	}
	if data.Users, err = repo.ListSocietyUsers(ctx); err != nil {
		return nil, err
	}
	if data.Tournaments, err = repo.ListSocietyTournaments(ctx); err != nil {
		return nil, err
	}
	if data.Scores, err = repo.ListScores(ctx); err != nil {
		return nil, err
	}
	return &data, nil
}

func (s *migrationService) snapshot(ctx context.Context, runID string, legacy *legacyData) (string, error) {
	doc := struct {
		RunID   string      `json:"run_id"`
		TakenAt time.Time   `json:"taken_at"`
		Legacy  *legacyData `json:"legacy"`
	}{RunID: runID, TakenAt: time.Now().UTC(), Legacy: legacy}

	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode legacy snapshot: %w", err)
	}
	key := path.Join(s.snapshotPrefix, runID+".json")
	if _, err := s.archive.Put(ctx, key, snapshotContentType, bytes.NewReader(body)); err != nil {
		return "", fmt.Errorf("failed to archive legacy snapshot: %w", err)
	}
	return key, nil
}

func (s *migrationService) runStep(ctx context.Context, repo repositories.LegacyRepository, step migrate.Step, plan *migrationPlan, result *MigrationResult) error {
	switch step {
	case migrate.StepClubs:
		clubs, err := migrate.BuildClubs(plan.legacy.Societies, plan.legacy.Users, plan.tokens)
		if err != nil {
			return integrityError(err)
		}
		if err := repo.InsertClubs(ctx, clubs); err != nil {
			return integrityError(err)
		}
		plan.clubs = clubs
		result.Clubs = len(clubs)

	case migrate.StepMemberships:
		members, err := migrate.BuildClubMembers(plan.legacy.Users, plan.clubs)
		if err != nil {
			return integrityError(err)
		}
		if err := repo.InsertClubMembers(ctx, members); err != nil {
			return integrityError(err)
		}
		result.ClubMembers = len(members)

	case migrate.StepParticipants:
		participants := migrate.BuildParticipants(plan.legacy.Scores)
		inserted, err := repo.InsertParticipants(ctx, participants)
		if err != nil {
			return err
		}
		result.Participants = inserted
		result.ParticipantsSkipped = len(participants) - inserted

	case migrate.StepTournamentLinks:
		linked, err := migrate.LinkTournaments(plan.legacy.Tournaments, plan.tokens)
		if err != nil {
			return err
		}
		if err := repo.LinkTournaments(ctx, linked); err != nil {
			return err
		}
		result.TournamentsLinked = len(linked)

	case migrate.StepScoreBackfill:
		participants, err := repo.ListParticipants(ctx)
		if err != nil {
			return err
		}
		links, unlinked := migrate.LinkScores(plan.legacy.Scores, participants)
		for _, l := range links {
			if err := repo.SetScoreParticipant(ctx, l.ScoreID, l.ParticipantID); err != nil {
				return err
			}
		}
		result.ScoresLinked = len(links)
		for _, sc := range unlinked {
			result.Anomalies = append(result.Anomalies, Anomaly{
				ScoreID:      sc.ID,
				TournamentID: sc.TournamentID,
				UserID:       sc.UserID,
				Reason:       fmt.Sprintf("%v: no participant for tournament %d user %d", ErrDataIntegrity, sc.TournamentID, sc.UserID),
			})
		}

	default:
		return fmt.Errorf("unknown migration step %d", int(step))
	}
	return nil
}

// integrityError marks relationship failures so callers can match them
// with errors.Is(err, ErrDataIntegrity).
func integrityError(err error) error {
	switch {
	case errors.Is(err, migrate.ErrSocietyWithoutUsers),
		errors.Is(err, migrate.ErrClubMissing),
		errors.Is(err, migrate.ErrOwnerMismatch),
		errors.Is(err, repositories.ErrClubReference):
		return fmt.Errorf("%w: %w", ErrDataIntegrity, err)
	}
	return err
}
