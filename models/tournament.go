package models

import "time"

// TournamentStatus представляет статусы турнира, соответствующие значениям в БД.
type TournamentStatus string

const (
	StatusScheduled TournamentStatus = "scheduled"
	StatusActive    TournamentStatus = "active"
	StatusCompleted TournamentStatus = "completed"
	StatusCancelled TournamentStatus = "cancelled"
)

// Tournament представляет турнир. Поля SocietyID относятся к старой модели,
// ClubID и настройки приглашений заполняются миграцией.
type Tournament struct {
	ID                 int              `json:"id" db:"id"`
	Name               string           `json:"name" db:"name"`
	LeagueID           *int             `json:"league_id,omitempty" db:"league_id"`
	SocietyID          *int             `json:"society_id,omitempty" db:"society_id"`
	ClubID             *int             `json:"club_id,omitempty" db:"club_id"`
	Status             TournamentStatus `json:"status" db:"status"`
	InviteCode         *string          `json:"invite_code,omitempty" db:"invite_code"`
	AllowSelfJoin      bool             `json:"allow_self_join" db:"allow_self_join"`
	PlayerCap          *int             `json:"player_cap,omitempty" db:"player_cap"`
	LeaderboardVisible bool             `json:"leaderboard_visible" db:"leaderboard_visible"`
	CreatedAt          time.Time        `json:"created_at" db:"created_at"`

	// Результаты, отсортированные по net_score (не мапятся напрямую)
	Scores []TournamentScore `json:"scores,omitempty" db:"-"`
}

func (t Tournament) IsCompleted() bool {
	return t.Status == StatusCompleted
}
