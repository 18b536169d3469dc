package models

import "time"

type ParticipantRole string

type ParticipantStatus string

const (
	ParticipantRolePlayer ParticipantRole = "player"

	ParticipantStatusRegistered ParticipantStatus = "registered"
)

// TournamentParticipant is a user's registration for a tournament,
// unique per (tournament_id, user_id).
type TournamentParticipant struct {
	ID           int               `json:"id"`
	TournamentID int               `json:"tournament_id"`
	UserID       int               `json:"user_id"`
	Role         ParticipantRole   `json:"role"`
	Status       ParticipantStatus `json:"status"`
	JoinedAt     time.Time         `json:"joined_at"`
}
