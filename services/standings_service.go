package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Dosada05/golf-society/models"
	"github.com/Dosada05/golf-society/points"
	"github.com/Dosada05/golf-society/repositories"
)

// MemberPointsResult is the outcome of crediting one tournament to a member.
type MemberPointsResult struct {
	Points   int `json:"points"`
	Position int `json:"position"`
}

type StandingsService interface {
	// CalculateLeagueStandings recomputes every member's points from all
	// completed tournaments of the league and overwrites their rows. Members
	// without completed results are not touched. A scorer without a member
	// row fails the call before any row is written.
	CalculateLeagueStandings(ctx context.Context, leagueID int) (map[int]points.Standing, error)

	// UpdateMemberPoints credits a single completed tournament of the league
	// to a member. It increments the stored totals and must be called at most
	// once per (league, user, tournament); a second call counts the tournament
	// twice. A tournament of another league or not yet completed is
	// ErrTournamentNotFound.
	UpdateMemberPoints(ctx context.Context, leagueID, userID, tournamentID int) (*MemberPointsResult, error)

	// RecalculateLeagueStandings zeroes every member of the league and then
	// rebuilds the standings from the full history.
	RecalculateLeagueStandings(ctx context.Context, leagueID int) (map[int]points.Standing, error)

	// LeagueTable returns the persisted member rows, best first.
	LeagueTable(ctx context.Context, leagueID int) ([]models.LeagueMember, error)
}

type standingsService struct {
	leagueRepo repositories.LeagueRepository
	scoreRepo  repositories.ScoreRepository
	logger     *slog.Logger
}

func NewStandingsService(
	leagueRepo repositories.LeagueRepository,
	scoreRepo repositories.ScoreRepository,
	logger *slog.Logger,
) StandingsService {
	return &standingsService{
		leagueRepo: leagueRepo,
		scoreRepo:  scoreRepo,
		logger:     logger,
	}
}

func (s *standingsService) getLeague(ctx context.Context, leagueID int) (*models.League, error) {
	league, err := s.leagueRepo.GetByID(ctx, leagueID)
	if err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrLeagueNotFound, leagueID)
		}
		return nil, fmt.Errorf("failed to get league %d: %w", leagueID, err)
	}
	return league, nil
}

func (s *standingsService) policyFor(ctx context.Context, league *models.League) points.Policy {
	policy, ok := points.ParsePolicy(league.PointsSystem)
	if !ok {
		s.logger.DebugContext(ctx, "league has no usable points system, using default",
			slog.Int("league_id", league.ID))
	}
	return policy
}

// leagueStandings tallies the league's completed tournaments and checks that
// every scorer has a member row, before anything is written.
func (s *standingsService) leagueStandings(ctx context.Context, league *models.League) (map[int]points.Standing, []int, int, error) {
	policy := s.policyFor(ctx, league)

	tournaments, err := s.leagueRepo.ListCompletedTournaments(ctx, league.ID)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("failed to load completed tournaments for league %d: %w", league.ID, err)
	}
	standings := points.Tally(tournaments, policy)

	members, err := s.leagueRepo.ListMembers(ctx, league.ID)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("failed to list members of league %d: %w", league.ID, err)
	}
	isMember := make(map[int]bool, len(members))
	for _, m := range members {
		isMember[m.UserID] = true
	}

	userIDs := make([]int, 0, len(standings))
	for userID := range standings {
		userIDs = append(userIDs, userID)
	}
	sort.Ints(userIDs)
	for _, userID := range userIDs {
		if !isMember[userID] {
			return nil, nil, 0, fmt.Errorf("%w: league %d user %d", ErrLeagueMemberNotFound, league.ID, userID)
		}
	}
	return standings, userIDs, len(tournaments), nil
}

func (s *standingsService) storeStandings(ctx context.Context, leagueID int, standings map[int]points.Standing, userIDs []int) error {
	for _, userID := range userIDs {
		st := standings[userID]
		if err := s.leagueRepo.SetMemberStanding(ctx, leagueID, userID, st.Points, st.EventsPlayed); err != nil {
			if errors.Is(err, repositories.ErrLeagueMemberNotFound) {
				return fmt.Errorf("%w: league %d user %d", ErrLeagueMemberNotFound, leagueID, userID)
			}
			return fmt.Errorf("failed to store standing for user %d: %w", userID, err)
		}
	}
	return nil
}

func (s *standingsService) CalculateLeagueStandings(ctx context.Context, leagueID int) (map[int]points.Standing, error) {
	league, err := s.getLeague(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	standings, userIDs, tournaments, err := s.leagueStandings(ctx, league)
	if err != nil {
		return nil, err
	}
	if err := s.storeStandings(ctx, leagueID, standings, userIDs); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "league standings calculated",
		slog.Int("league_id", leagueID),
		slog.Int("tournaments", tournaments),
		slog.Int("members_updated", len(userIDs)),
	)
	return standings, nil
}

func (s *standingsService) UpdateMemberPoints(ctx context.Context, leagueID, userID, tournamentID int) (*MemberPointsResult, error) {
	league, err := s.getLeague(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	policy := s.policyFor(ctx, league)

	// Турнир должен быть завершённым турниром этой лиги, иначе пересчёт
	// не даст тех же очков.
	tournament, err := s.leagueRepo.GetTournament(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrTournamentNotFound, tournamentID)
		}
		return nil, fmt.Errorf("failed to get tournament %d: %w", tournamentID, err)
	}
	if tournament.LeagueID == nil || *tournament.LeagueID != leagueID || !tournament.IsCompleted() {
		return nil, fmt.Errorf("%w: tournament %d is not a completed tournament of league %d", ErrTournamentNotFound, tournamentID, leagueID)
	}

	scores, err := s.scoreRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load scores for tournament %d: %w", tournamentID, err)
	}
	placement, ok := points.PlacementOf(scores, userID)
	if !ok {
		return nil, fmt.Errorf("%w: tournament %d user %d", ErrScoreNotFound, tournamentID, userID)
	}

	result := &MemberPointsResult{
		Points:   policy.PointsFor(placement.Position),
		Position: placement.Position,
	}
	member, err := s.leagueRepo.IncrementMemberStanding(ctx, leagueID, userID, result.Points)
	if err != nil {
		if errors.Is(err, repositories.ErrLeagueMemberNotFound) {
			return nil, fmt.Errorf("%w: league %d user %d", ErrLeagueMemberNotFound, leagueID, userID)
		}
		return nil, fmt.Errorf("failed to update points for user %d: %w", userID, err)
	}

	s.logger.InfoContext(ctx, "member points updated",
		slog.Int("league_id", leagueID),
		slog.Int("user_id", userID),
		slog.Int("tournament_id", tournamentID),
		slog.Int("position", result.Position),
		slog.Int("points", result.Points),
		slog.Int("season_points", member.SeasonPoints),
	)
	return result, nil
}

func (s *standingsService) RecalculateLeagueStandings(ctx context.Context, leagueID int) (map[int]points.Standing, error) {
	league, err := s.getLeague(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	// Проверяем членство до сброса, чтобы ошибка не обнулила лигу.
	standings, userIDs, tournaments, err := s.leagueStandings(ctx, league)
	if err != nil {
		return nil, err
	}

	reset, err := s.leagueRepo.ResetMembers(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to reset standings for league %d: %w", leagueID, err)
	}
	if err := s.storeStandings(ctx, leagueID, standings, userIDs); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "league standings recalculated",
		slog.Int("league_id", leagueID),
		slog.Int("tournaments", tournaments),
		slog.Int64("members_reset", reset),
		slog.Int("members_updated", len(userIDs)),
	)
	return standings, nil
}

func (s *standingsService) LeagueTable(ctx context.Context, leagueID int) ([]models.LeagueMember, error) {
	if _, err := s.getLeague(ctx, leagueID); err != nil {
		return nil, err
	}
	members, err := s.leagueRepo.ListMembers(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members of league %d: %w", leagueID, err)
	}
	return members, nil
}
