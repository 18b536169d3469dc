package repositories

import (
	"context"
	"database/sql"
	"fmt"
)

// ReportRepository runs the aggregate queries behind the migration report.
// Missing tables count as zero so the report also works before migrating.
type ReportRepository interface {
	CountClubs(ctx context.Context) (int, error)
	CountClubMembersByRole(ctx context.Context) (map[string]int, error)
	CountParticipants(ctx context.Context) (int, error)
	CountSocietyUsersWithoutMembership(ctx context.Context) (int, error)
	CountTournamentsWithoutClub(ctx context.Context) (int, error)
	CountScoresWithoutParticipant(ctx context.Context) (int, error)
}

type postgresReportRepository struct {
	db *sql.DB
}

func NewPostgresReportRepository(db *sql.DB) ReportRepository {
	return &postgresReportRepository{db: db}
}

func (r *postgresReportRepository) count(ctx context.Context, what, query string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		if isUndefinedTable(err) || pqErrorCode(err) == pqUndefinedColumn {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to count %s: %w", what, err)
	}
	return n, nil
}

func (r *postgresReportRepository) CountClubs(ctx context.Context) (int, error) {
	return r.count(ctx, "clubs", `SELECT COUNT(*) FROM clubs`)
}

func (r *postgresReportRepository) CountClubMembersByRole(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	rows, err := r.db.QueryContext(ctx, `SELECT role, COUNT(*) FROM club_members GROUP BY role`)
	if err != nil {
		if isUndefinedTable(err) {
			return counts, nil
		}
		return nil, fmt.Errorf("failed to count club members by role: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var role string
		var n int
		if err := rows.Scan(&role, &n); err != nil {
			return nil, fmt.Errorf("failed to scan role count: %w", err)
		}
		counts[role] = n
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating role counts: %w", err)
	}
	return counts, nil
}

func (r *postgresReportRepository) CountParticipants(ctx context.Context) (int, error) {
	return r.count(ctx, "tournament participants", `SELECT COUNT(*) FROM tournament_participants`)
}

func (r *postgresReportRepository) CountSocietyUsersWithoutMembership(ctx context.Context) (int, error) {
	return r.count(ctx, "society users without membership", `
		SELECT COUNT(*)
		FROM users u
		WHERE u.society_id IS NOT NULL
		  AND NOT EXISTS (
			SELECT 1 FROM club_members cm WHERE cm.user_id = u.id AND cm.club_id = u.society_id
		  )`)
}

func (r *postgresReportRepository) CountTournamentsWithoutClub(ctx context.Context) (int, error) {
	return r.count(ctx, "tournaments without club", `
		SELECT COUNT(*) FROM tournaments WHERE society_id IS NOT NULL AND club_id IS NULL`)
}

func (r *postgresReportRepository) CountScoresWithoutParticipant(ctx context.Context) (int, error) {
	return r.count(ctx, "scores without participant", `
		SELECT COUNT(*) FROM tournament_scores WHERE participant_id IS NULL`)
}
