package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/golf-society/models"
)

var (
	ErrClubConflict        = errors.New("club id or invite code already exists")
	ErrClubMemberConflict  = errors.New("club member already exists")
	ErrClubReference       = errors.New("club row references a missing user or club")
	ErrTournamentNotLinked = errors.New("legacy tournament not found for linking")
	ErrScoreNotFound       = errors.New("tournament score not found")
)

// LegacyRepository reads the society-centric tables and writes the club
// model. It is bound to one executor, normally the migration transaction.
type LegacyRepository interface {
	LegacySchemaPresent(ctx context.Context) (bool, error)
	CountClubs(ctx context.Context) (int, error)

	ListSocieties(ctx context.Context) ([]models.Society, error)
	ListSocietyUsers(ctx context.Context) ([]models.User, error)
	ListSocietyTournaments(ctx context.Context) ([]models.Tournament, error)
	ListScores(ctx context.Context) ([]models.TournamentScore, error)
	ListParticipants(ctx context.Context) ([]models.TournamentParticipant, error)

	InsertClubs(ctx context.Context, clubs []models.Club) error
	InsertClubMembers(ctx context.Context, members []models.ClubMember) error
	// InsertParticipants skips pairs that already exist and reports how many
	// rows were written.
	InsertParticipants(ctx context.Context, participants []models.TournamentParticipant) (int, error)
	LinkTournaments(ctx context.Context, tournaments []models.Tournament) error
	SetScoreParticipant(ctx context.Context, scoreID, participantID int) error
}

// LegacyTxRunner runs a block of LegacyRepository calls atomically.
type LegacyTxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repo LegacyRepository) error) error
}

type postgresLegacyRepository struct {
	exec SQLExecutor
}

func NewPostgresLegacyRepository(exec SQLExecutor) LegacyRepository {
	return &postgresLegacyRepository{exec: exec}
}

func (r *postgresLegacyRepository) tableExists(ctx context.Context, table string) (bool, error) {
	var present bool
	err := r.exec.QueryRowContext(ctx, `SELECT to_regclass($1) IS NOT NULL`, table).Scan(&present)
	if err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", table, err)
	}
	return present, nil
}

func (r *postgresLegacyRepository) LegacySchemaPresent(ctx context.Context) (bool, error) {
	return r.tableExists(ctx, "societies")
}

// CountClubs probes the table first: a failed statement would abort the
// surrounding transaction.
func (r *postgresLegacyRepository) CountClubs(ctx context.Context) (int, error) {
	present, err := r.tableExists(ctx, "clubs")
	if err != nil || !present {
		return 0, err
	}
	var n int
	if err := r.exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM clubs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count clubs: %w", err)
	}
	return n, nil
}

func (r *postgresLegacyRepository) ListSocieties(ctx context.Context) ([]models.Society, error) {
	rows, err := r.exec.QueryContext(ctx, `
		SELECT id, name, format, created_at, updated_at
		FROM societies
		ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list societies: %w", err)
	}
	defer rows.Close()

	societies := make([]models.Society, 0)
	for rows.Next() {
		var s models.Society
		if err := rows.Scan(&s.ID, &s.Name, &s.Format, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan society row: %w", err)
		}
		societies = append(societies, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating society rows: %w", err)
	}
	return societies, nil
}

func (r *postgresLegacyRepository) ListSocietyUsers(ctx context.Context) ([]models.User, error) {
	rows, err := r.exec.QueryContext(ctx, `
		SELECT id, name, email, role, society_id, created_at
		FROM users
		WHERE society_id IS NOT NULL
		ORDER BY society_id ASC, created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list society users: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.SocietyID, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}
	return users, nil
}

func (r *postgresLegacyRepository) ListSocietyTournaments(ctx context.Context) ([]models.Tournament, error) {
	rows, err := r.exec.QueryContext(ctx, `
		SELECT id, name, league_id, society_id, status, created_at
		FROM tournaments
		WHERE society_id IS NOT NULL
		ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list legacy tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		if err := rows.Scan(&t.ID, &t.Name, &t.LeagueID, &t.SocietyID, &t.Status, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", err)
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tournament rows: %w", err)
	}
	return tournaments, nil
}

func (r *postgresLegacyRepository) ListScores(ctx context.Context) ([]models.TournamentScore, error) {
	return listScores(ctx, r.exec, "")
}

func (r *postgresLegacyRepository) ListParticipants(ctx context.Context) ([]models.TournamentParticipant, error) {
	rows, err := r.exec.QueryContext(ctx, `
		SELECT id, tournament_id, user_id, role, status, joined_at
		FROM tournament_participants
		ORDER BY tournament_id ASC, joined_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournament participants: %w", err)
	}
	defer rows.Close()

	participants := make([]models.TournamentParticipant, 0)
	for rows.Next() {
		var p models.TournamentParticipant
		if err := rows.Scan(&p.ID, &p.TournamentID, &p.UserID, &p.Role, &p.Status, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant row: %w", err)
		}
		participants = append(participants, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participant rows: %w", err)
	}
	return participants, nil
}

func (r *postgresLegacyRepository) InsertClubs(ctx context.Context, clubs []models.Club) error {
	if len(clubs) == 0 {
		return nil
	}
	query := `
		INSERT INTO clubs (id, name, format, invite_code, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, c := range clubs {
		_, err := r.exec.ExecContext(ctx, query, c.ID, c.Name, c.Format, c.InviteCode, c.OwnerID, c.CreatedAt, c.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: club %d", ErrClubConflict, c.ID)
			}
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: club %d owner %d", ErrClubReference, c.ID, c.OwnerID)
			}
			return fmt.Errorf("failed to insert club %d: %w", c.ID, err)
		}
	}

	// Идентификаторы клубов заданы явно, сдвигаем последовательность за максимум.
	_, err := r.exec.ExecContext(ctx, `SELECT setval(pg_get_serial_sequence('clubs', 'id'), (SELECT MAX(id) FROM clubs))`)
	if err != nil {
		return fmt.Errorf("failed to advance clubs id sequence: %w", err)
	}
	return nil
}

func (r *postgresLegacyRepository) InsertClubMembers(ctx context.Context, members []models.ClubMember) error {
	query := `
		INSERT INTO club_members (club_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, $4)`
	for _, m := range members {
		_, err := r.exec.ExecContext(ctx, query, m.ClubID, m.UserID, m.Role, m.JoinedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: club %d user %d", ErrClubMemberConflict, m.ClubID, m.UserID)
			}
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: club %d user %d", ErrClubReference, m.ClubID, m.UserID)
			}
			return fmt.Errorf("failed to insert club member (club %d, user %d): %w", m.ClubID, m.UserID, err)
		}
	}
	return nil
}

func (r *postgresLegacyRepository) InsertParticipants(ctx context.Context, participants []models.TournamentParticipant) (int, error) {
	query := `
		INSERT INTO tournament_participants (tournament_id, user_id, role, status, joined_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tournament_id, user_id) DO NOTHING`
	inserted := 0
	for _, p := range participants {
		result, err := r.exec.ExecContext(ctx, query, p.TournamentID, p.UserID, p.Role, p.Status, p.JoinedAt)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert participant (tournament %d, user %d): %w", p.TournamentID, p.UserID, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("failed to check affected rows: %w", err)
		}
		inserted += int(n)
	}
	return inserted, nil
}

func (r *postgresLegacyRepository) LinkTournaments(ctx context.Context, tournaments []models.Tournament) error {
	query := `
		UPDATE tournaments
		SET club_id = $1, invite_code = $2, allow_self_join = $3, player_cap = $4, leaderboard_visible = $5
		WHERE id = $6`
	for _, t := range tournaments {
		result, err := r.exec.ExecContext(ctx, query, t.ClubID, t.InviteCode, t.AllowSelfJoin, t.PlayerCap, t.LeaderboardVisible, t.ID)
		if err != nil {
			return fmt.Errorf("failed to link tournament %d: %w", t.ID, err)
		}
		if err := checkAffectedRows(result, ErrTournamentNotLinked); err != nil {
			return fmt.Errorf("tournament %d: %w", t.ID, err)
		}
	}
	return nil
}

func (r *postgresLegacyRepository) SetScoreParticipant(ctx context.Context, scoreID, participantID int) error {
	result, err := r.exec.ExecContext(ctx, `UPDATE tournament_scores SET participant_id = $1 WHERE id = $2`, participantID, scoreID)
	if err != nil {
		return fmt.Errorf("failed to link score %d: %w", scoreID, err)
	}
	return checkAffectedRows(result, ErrScoreNotFound)
}

// TxOption configures a postgresLegacyTxRunner.
type TxOption func(*postgresLegacyTxRunner)

// WithRollbackOnly makes every transaction roll back, even on success.
func WithRollbackOnly() TxOption {
	return func(r *postgresLegacyTxRunner) { r.rollbackOnly = true }
}

// WithSetup runs setup inside the transaction before the block.
func WithSetup(setup func(ctx context.Context, tx *sql.Tx) error) TxOption {
	return func(r *postgresLegacyTxRunner) { r.setup = setup }
}

type postgresLegacyTxRunner struct {
	db           *sql.DB
	rollbackOnly bool
	setup        func(ctx context.Context, tx *sql.Tx) error
}

func NewPostgresLegacyTxRunner(db *sql.DB, opts ...TxOption) LegacyTxRunner {
	r := &postgresLegacyTxRunner{db: db}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var errRollbackOnly = errors.New("rollback requested")

func (r *postgresLegacyTxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context, repo LegacyRepository) error) error {
	err := withTx(ctx, r.db, &sql.TxOptions{Isolation: sql.LevelSerializable}, func(tx *sql.Tx) error {
		if r.setup != nil {
			if err := r.setup(ctx, tx); err != nil {
				return fmt.Errorf("transaction setup: %w", err)
			}
		}
		if err := fn(ctx, NewPostgresLegacyRepository(tx)); err != nil {
			return err
		}
		if r.rollbackOnly {
			return errRollbackOnly
		}
		return nil
	})
	if errors.Is(err, errRollbackOnly) {
		return nil
	}
	return err
}
