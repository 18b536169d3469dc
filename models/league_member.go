package models

import "time"

// LeagueMember хранит накопленные очки участника лиги. Строка создаётся вне
// этого модуля, движок очков только обновляет её.
type LeagueMember struct {
	ID           int       `json:"id" db:"id"`
	LeagueID     int       `json:"league_id" db:"league_id"`
	UserID       int       `json:"user_id" db:"user_id"`
	SeasonPoints int       `json:"season_points" db:"season_points"`
	EventsPlayed int       `json:"events_played" db:"events_played"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
