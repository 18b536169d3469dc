package points

import (
	"sort"

	"github.com/Dosada05/golf-society/models"
)

// Placement is a score with its 1-based finishing position.
type Placement struct {
	Score    models.TournamentScore
	Position int
}

// Standing is a member's accumulated result within a league.
type Standing struct {
	Points       int `json:"points"`
	EventsPlayed int `json:"events_played"`
}

// Rank orders scores by ascending net score. Equal scores keep their input
// order, so callers must pass scores in stored order (id ASC).
func Rank(scores []models.TournamentScore) []Placement {
	ordered := make([]models.TournamentScore, len(scores))
	copy(ordered, scores)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].NetScore < ordered[j].NetScore
	})

	placements := make([]Placement, len(ordered))
	for i, s := range ordered {
		placements[i] = Placement{Score: s, Position: i + 1}
	}
	return placements
}

// PlacementOf returns the placement of userID among scores.
func PlacementOf(scores []models.TournamentScore, userID int) (Placement, bool) {
	for _, p := range Rank(scores) {
		if p.Score.UserID == userID {
			return p, true
		}
	}
	return Placement{}, false
}

// Tally accumulates points and event counts per user over every completed
// tournament. Tournaments in any other status are ignored.
func Tally(tournaments []models.Tournament, policy Policy) map[int]Standing {
	standings := make(map[int]Standing)
	for _, t := range tournaments {
		if !t.IsCompleted() {
			continue
		}
		for _, p := range Rank(t.Scores) {
			s := standings[p.Score.UserID]
			s.Points += policy.PointsFor(p.Position)
			s.EventsPlayed++
			standings[p.Score.UserID] = s
		}
	}
	return standings
}
