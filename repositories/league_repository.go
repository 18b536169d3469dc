package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/golf-society/models"
	"github.com/lib/pq"
)

var (
	ErrLeagueNotFound       = errors.New("league not found")
	ErrLeagueMemberNotFound = errors.New("league member not found")
	ErrTournamentNotFound   = errors.New("tournament not found")
)

type LeagueRepository interface {
	GetByID(ctx context.Context, id int) (*models.League, error)
	// GetTournament returns the tournament without its scores.
	GetTournament(ctx context.Context, tournamentID int) (*models.Tournament, error)
	// ListCompletedTournaments returns the league's completed tournaments with
	// their scores ordered by net_score ASC, id ASC.
	ListCompletedTournaments(ctx context.Context, leagueID int) ([]models.Tournament, error)
	ListMembers(ctx context.Context, leagueID int) ([]models.LeagueMember, error)
	SetMemberStanding(ctx context.Context, leagueID, userID, seasonPoints, eventsPlayed int) error
	// IncrementMemberStanding adds points and one event to the member row
	// while holding a row lock on it.
	IncrementMemberStanding(ctx context.Context, leagueID, userID, points int) (*models.LeagueMember, error)
	ResetMembers(ctx context.Context, leagueID int) (int64, error)
}

type postgresLeagueRepository struct {
	db *sql.DB
}

func NewPostgresLeagueRepository(db *sql.DB) LeagueRepository {
	return &postgresLeagueRepository{db: db}
}

func (r *postgresLeagueRepository) GetByID(ctx context.Context, id int) (*models.League, error) {
	query := `SELECT id, name, club_id, points_system, created_at FROM leagues WHERE id = $1`

	var l models.League
	var pointsSystem []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(&l.ID, &l.Name, &l.ClubID, &pointsSystem, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLeagueNotFound
		}
		return nil, fmt.Errorf("failed to get league %d: %w", id, err)
	}
	l.PointsSystem = pointsSystem
	return &l, nil
}

func (r *postgresLeagueRepository) GetTournament(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	query := `SELECT id, name, league_id, status, created_at FROM tournaments WHERE id = $1`

	var t models.Tournament
	err := r.db.QueryRowContext(ctx, query, tournamentID).Scan(&t.ID, &t.Name, &t.LeagueID, &t.Status, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %d: %w", tournamentID, err)
	}
	return &t, nil
}

func (r *postgresLeagueRepository) ListCompletedTournaments(ctx context.Context, leagueID int) ([]models.Tournament, error) {
	query := `
		SELECT id, name, league_id, status, created_at
		FROM tournaments
		WHERE league_id = $1 AND status = $2
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, leagueID, models.StatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed tournaments for league %d: %w", leagueID, err)
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	index := make(map[int]int)
	ids := make([]int64, 0)
	for rows.Next() {
		var t models.Tournament
		if err := rows.Scan(&t.ID, &t.Name, &t.LeagueID, &t.Status, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", err)
		}
		index[t.ID] = len(tournaments)
		ids = append(ids, int64(t.ID))
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tournament rows: %w", err)
	}
	if len(tournaments) == 0 {
		return tournaments, nil
	}

	scores, err := listScores(ctx, r.db, `WHERE tournament_id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	for _, s := range scores {
		i := index[s.TournamentID]
		tournaments[i].Scores = append(tournaments[i].Scores, s)
	}
	return tournaments, nil
}

func (r *postgresLeagueRepository) scanMember(rowScanner interface{ Scan(...interface{}) error }) (*models.LeagueMember, error) {
	var m models.LeagueMember
	err := rowScanner.Scan(&m.ID, &m.LeagueID, &m.UserID, &m.SeasonPoints, &m.EventsPlayed, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLeagueMemberNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *postgresLeagueRepository) ListMembers(ctx context.Context, leagueID int) ([]models.LeagueMember, error) {
	query := `
		SELECT id, league_id, user_id, season_points, events_played, updated_at
		FROM league_members
		WHERE league_id = $1
		ORDER BY season_points DESC, events_played ASC, user_id ASC`

	rows, err := r.db.QueryContext(ctx, query, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list league members: %w", err)
	}
	defer rows.Close()

	members := make([]models.LeagueMember, 0)
	for rows.Next() {
		m, errScan := r.scanMember(rows)
		if errScan != nil {
			return nil, fmt.Errorf("failed to scan league member row: %w", errScan)
		}
		members = append(members, *m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating league member rows: %w", err)
	}
	return members, nil
}

func (r *postgresLeagueRepository) SetMemberStanding(ctx context.Context, leagueID, userID, seasonPoints, eventsPlayed int) error {
	query := `
		UPDATE league_members
		SET season_points = $1, events_played = $2, updated_at = NOW()
		WHERE league_id = $3 AND user_id = $4`
	result, err := r.db.ExecContext(ctx, query, seasonPoints, eventsPlayed, leagueID, userID)
	if err != nil {
		return fmt.Errorf("failed to set standing for league %d user %d: %w", leagueID, userID, err)
	}
	return checkAffectedRows(result, ErrLeagueMemberNotFound)
}

func (r *postgresLeagueRepository) IncrementMemberStanding(ctx context.Context, leagueID, userID, points int) (*models.LeagueMember, error) {
	var member *models.LeagueMember
	err := withTx(ctx, r.db, nil, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			SELECT id, league_id, user_id, season_points, events_played, updated_at
			FROM league_members
			WHERE league_id = $1 AND user_id = $2
			FOR UPDATE`, leagueID, userID)
		m, err := r.scanMember(row)
		if err != nil {
			return err
		}

		m.SeasonPoints += points
		m.EventsPlayed++
		err = tx.QueryRowContext(ctx, `
			UPDATE league_members
			SET season_points = $1, events_played = $2, updated_at = NOW()
			WHERE id = $3
			RETURNING updated_at`, m.SeasonPoints, m.EventsPlayed, m.ID).Scan(&m.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to update league member %d: %w", m.ID, err)
		}
		member = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

func (r *postgresLeagueRepository) ResetMembers(ctx context.Context, leagueID int) (int64, error) {
	query := `
		UPDATE league_members
		SET season_points = 0, events_played = 0, updated_at = NOW()
		WHERE league_id = $1`
	result, err := r.db.ExecContext(ctx, query, leagueID)
	if err != nil {
		return 0, fmt.Errorf("failed to reset members of league %d: %w", leagueID, err)
	}
	return result.RowsAffected()
}
