// Package migrate contains the pure transformations that turn the legacy
// society model into clubs, club members and tournament participants.
// Every step takes loaded records and returns the records to persist; the
// transaction around them lives in services.MigrationService.
package migrate

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Dosada05/golf-society/models"
)

var (
	ErrSocietyWithoutUsers = errors.New("society has no users")
	ErrClubMissing         = errors.New("user references a society without a club")
	ErrOwnerMismatch       = errors.New("club owner did not receive the owner role")
)

// Step is one state of the linear migration.
type Step int

const (
	StepClubs Step = iota + 1
	StepMemberships
	StepParticipants
	StepTournamentLinks
	StepScoreBackfill
)

// Steps lists the migration states in the only order they may run.
var Steps = []Step{StepClubs, StepMemberships, StepParticipants, StepTournamentLinks, StepScoreBackfill}

func (s Step) String() string {
	switch s {
	case StepClubs:
		return "clubs"
	case StepMemberships:
		return "club_memberships"
	case StepParticipants:
		return "tournament_participants"
	case StepTournamentLinks:
		return "tournament_links"
	case StepScoreBackfill:
		return "score_backfill"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// TokenFunc returns a fresh invite token.
type TokenFunc func() (string, error)

// ScoreLink assigns a participant to a score.
type ScoreLink struct {
	ScoreID       int
	ParticipantID int
}

// BuildClubs creates one club per society. The owner is the earliest
// created admin of the society, or the earliest created user when the
// society has no admin.
func BuildClubs(societies []models.Society, users []models.User, newToken TokenFunc) ([]models.Club, error) {
	bySociety := usersBySociety(users)

	clubs := make([]models.Club, 0, len(societies))
	for _, society := range societies {
		members := bySociety[society.ID]
		if len(members) == 0 {
			return nil, fmt.Errorf("%w: society %d (%s)", ErrSocietyWithoutUsers, society.ID, society.Name)
		}

		owner := members[0]
		for _, u := range members {
			if u.IsAdmin() {
				owner = u
				break
			}
		}

		token, err := newToken()
		if err != nil {
			return nil, fmt.Errorf("invite token for club %d: %w", society.ID, err)
		}

		clubs = append(clubs, models.Club{
			ID:         society.ID,
			Name:       society.Name,
			Format:     society.Format,
			InviteCode: token,
			OwnerID:    owner.ID,
			CreatedAt:  society.CreatedAt,
			UpdatedAt:  society.UpdatedAt,
		})
	}
	return clubs, nil
}

// BuildClubMembers maps legacy roles to club roles. Users are walked in
// creation order per club: the first admin becomes owner, later admins stay
// admin, everyone else is a player. A club without admins has its owner
// (chosen by BuildClubs) promoted so every club ends with exactly its owner
// in the owner role.
func BuildClubMembers(users []models.User, clubs []models.Club) ([]models.ClubMember, error) {
	clubsByID := make(map[int]models.Club, len(clubs))
	for _, c := range clubs {
		clubsByID[c.ID] = c
	}

	bySociety := usersBySociety(users)
	societyIDs := make([]int, 0, len(bySociety))
	for id := range bySociety {
		societyIDs = append(societyIDs, id)
	}
	sort.Ints(societyIDs)

	members := make([]models.ClubMember, 0, len(users))
	for _, clubID := range societyIDs {
		club, ok := clubsByID[clubID]
		if !ok {
			return nil, fmt.Errorf("%w: society %d", ErrClubMissing, clubID)
		}

		start := len(members)
		ownerIdx := -1
		for _, u := range bySociety[clubID] {
			role := models.ClubRolePlayer
			if u.IsAdmin() {
				role = models.ClubRoleAdmin
				if ownerIdx < 0 {
					role = models.ClubRoleOwner
					ownerIdx = len(members)
				}
			}
			members = append(members, models.ClubMember{
				ClubID:   clubID,
				UserID:   u.ID,
				Role:     role,
				JoinedAt: u.CreatedAt,
			})
		}

		if ownerIdx < 0 {
			for i := start; i < len(members); i++ {
				if members[i].UserID == club.OwnerID {
					members[i].Role = models.ClubRoleOwner
					ownerIdx = i
					break
				}
			}
		}
		if ownerIdx < 0 || members[ownerIdx].UserID != club.OwnerID {
			return nil, fmt.Errorf("%w: club %d owner %d", ErrOwnerMismatch, clubID, club.OwnerID)
		}
	}
	return members, nil
}

// BuildParticipants derives one participant per distinct (tournament, user)
// pair seen in scores, joined at the earliest score of the pair. The result
// is ordered by tournament, then join time.
func BuildParticipants(scores []models.TournamentScore) []models.TournamentParticipant {
	type pair struct{ tournamentID, userID int }
	earliest := make(map[pair]time.Time)
	for _, s := range scores {
		k := pair{s.TournamentID, s.UserID}
		if t, ok := earliest[k]; !ok || s.CreatedAt.Before(t) {
			earliest[k] = s.CreatedAt
		}
	}

	participants := make([]models.TournamentParticipant, 0, len(earliest))
	for k, joined := range earliest {
		participants = append(participants, models.TournamentParticipant{
			TournamentID: k.tournamentID,
			UserID:       k.userID,
			Role:         models.ParticipantRolePlayer,
			Status:       models.ParticipantStatusRegistered,
			JoinedAt:     joined,
		})
	}
	sort.Slice(participants, func(i, j int) bool {
		a, b := participants[i], participants[j]
		if a.TournamentID != b.TournamentID {
			return a.TournamentID < b.TournamentID
		}
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return a.UserID < b.UserID
	})
	return participants
}

// LinkTournaments attaches legacy tournaments to the club that replaced
// their society and applies the new defaults. Tournaments without a society
// are left out.
func LinkTournaments(tournaments []models.Tournament, newToken TokenFunc) ([]models.Tournament, error) {
	linked := make([]models.Tournament, 0, len(tournaments))
	for _, t := range tournaments {
		if t.SocietyID == nil {
			continue
		}
		token, err := newToken()
		if err != nil {
			return nil, fmt.Errorf("invite token for tournament %d: %w", t.ID, err)
		}
		clubID := *t.SocietyID
		t.ClubID = &clubID
		t.InviteCode = &token
		t.AllowSelfJoin = false
		t.PlayerCap = nil
		t.LeaderboardVisible = true
		linked = append(linked, t)
	}
	return linked, nil
}

// LinkScores pairs every score with the participant of the same
// (tournament, user). Scores without a participant are returned separately.
func LinkScores(scores []models.TournamentScore, participants []models.TournamentParticipant) ([]ScoreLink, []models.TournamentScore) {
	type pair struct{ tournamentID, userID int }
	byPair := make(map[pair]int, len(participants))
	for _, p := range participants {
		byPair[pair{p.TournamentID, p.UserID}] = p.ID
	}

	links := make([]ScoreLink, 0, len(scores))
	var unlinked []models.TournamentScore
	for _, s := range scores {
		id, ok := byPair[pair{s.TournamentID, s.UserID}]
		if !ok {
			unlinked = append(unlinked, s)
			continue
		}
		links = append(links, ScoreLink{ScoreID: s.ID, ParticipantID: id})
	}
	return links, unlinked
}

// usersBySociety groups users with a society by society id, each group in
// ascending creation order (id breaks ties).
func usersBySociety(users []models.User) map[int][]models.User {
	grouped := make(map[int][]models.User)
	for _, u := range users {
		if u.SocietyID == nil {
			continue
		}
		grouped[*u.SocietyID] = append(grouped[*u.SocietyID], u)
	}
	for _, group := range grouped {
		sort.SliceStable(group, func(i, j int) bool {
			if !group[i].CreatedAt.Equal(group[j].CreatedAt) {
				return group[i].CreatedAt.Before(group[j].CreatedAt)
			}
			return group[i].ID < group[j].ID
		})
	}
	return grouped
}
