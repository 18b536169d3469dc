package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Dosada05/golf-society/models"
)

type ScoreRepository interface {
	// ListByTournament returns scores ordered by net_score ASC, id ASC.
	ListByTournament(ctx context.Context, tournamentID int) ([]models.TournamentScore, error)
}

type postgresScoreRepository struct {
	db *sql.DB
}

func NewPostgresScoreRepository(db *sql.DB) ScoreRepository {
	return &postgresScoreRepository{db: db}
}

func (r *postgresScoreRepository) ListByTournament(ctx context.Context, tournamentID int) ([]models.TournamentScore, error) {
	return listScores(ctx, r.db, `WHERE tournament_id = $1`, tournamentID)
}

// listScores loads scores matching where, ordered the way ranking expects:
// tournament, then net score, then insertion order.
func listScores(ctx context.Context, exec SQLExecutor, where string, args ...interface{}) ([]models.TournamentScore, error) {
	query := `
		SELECT id, tournament_id, user_id, participant_id, net_score, created_at
		FROM tournament_scores ` + where + `
		ORDER BY tournament_id ASC, net_score ASC, id ASC`

	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournament scores: %w", err)
	}
	defer rows.Close()

	scores := make([]models.TournamentScore, 0)
	for rows.Next() {
		var s models.TournamentScore
		if err := rows.Scan(&s.ID, &s.TournamentID, &s.UserID, &s.ParticipantID, &s.NetScore, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan score row: %w", err)
		}
		scores = append(scores, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating score rows: %w", err)
	}
	return scores, nil
}
