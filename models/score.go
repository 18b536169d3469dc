package models

import "time"

// TournamentScore is a single player's result in a tournament. Lower NetScore is better.
type TournamentScore struct {
	ID            int       `json:"id" db:"id"`
	TournamentID  int       `json:"tournament_id" db:"tournament_id"`
	UserID        int       `json:"user_id" db:"user_id"`
	ParticipantID *int      `json:"participant_id,omitempty" db:"participant_id"`
	NetScore      int       `json:"net_score" db:"net_score"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
