package services

import (
	"context"
	"fmt"

	"github.com/Dosada05/golf-society/models"
	"github.com/Dosada05/golf-society/repositories"
	"golang.org/x/sync/errgroup"
)

// MigrationReport summarises the club model after (or before) migrating.
type MigrationReport struct {
	Clubs                         int            `json:"clubs"`
	ClubMembersByRole             map[string]int `json:"club_members_by_role"`
	Participants                  int            `json:"participants"`
	SocietyUsersWithoutMembership int            `json:"society_users_without_membership"`
	TournamentsWithoutClub        int            `json:"tournaments_without_club"`
	ScoresWithoutParticipant      int            `json:"scores_without_participant"`
}

// Consistent reports whether every legacy relationship made it across.
func (r *MigrationReport) Consistent() bool {
	return r.Clubs > 0 &&
		r.ClubMembersByRole[string(models.ClubRoleOwner)] == r.Clubs &&
		r.SocietyUsersWithoutMembership == 0 &&
		r.TournamentsWithoutClub == 0 &&
		r.ScoresWithoutParticipant == 0
}

type ReportService interface {
	MigrationReport(ctx context.Context) (*MigrationReport, error)
}

type reportService struct {
	reportRepo repositories.ReportRepository
}

func NewReportService(reportRepo repositories.ReportRepository) ReportService {
	return &reportService{reportRepo: reportRepo}
}

func (s *reportService) MigrationReport(ctx context.Context) (*MigrationReport, error) {
	report := &MigrationReport{}
	g, gCtx := errgroup.WithContext(ctx)

	counts := []struct {
		name string
		dst  *int
		fn   func(context.Context) (int, error)
	}{
		{"clubs", &report.Clubs, s.reportRepo.CountClubs},
		{"participants", &report.Participants, s.reportRepo.CountParticipants},
		{"society users without membership", &report.SocietyUsersWithoutMembership, s.reportRepo.CountSocietyUsersWithoutMembership},
		{"tournaments without club", &report.TournamentsWithoutClub, s.reportRepo.CountTournamentsWithoutClub},
		{"scores without participant", &report.ScoresWithoutParticipant, s.reportRepo.CountScoresWithoutParticipant},
	}
	for _, c := range counts {
		g.Go(func() error {
			n, err := c.fn(gCtx)
			if err != nil {
				return fmt.Errorf("failed to count %s: %w", c.name, err)
			}
			*c.dst = n
			return nil
		})
	}

	g.Go(func() error {
		byRole, err := s.reportRepo.CountClubMembersByRole(gCtx)
		if err != nil {
			return fmt.Errorf("failed to count club members by role: %w", err)
		}
		report.ClubMembersByRole = byRole
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}
