package models

import (
	"encoding/json"
	"time"
)

type League struct {
	ID           int             `json:"id" db:"id"`
	Name         string          `json:"name" db:"name"`
	ClubID       *int            `json:"club_id,omitempty" db:"club_id"`
	PointsSystem json.RawMessage `json:"points_system,omitempty" db:"points_system"` // Raw JSONB from DB, parsed by points.ParsePolicy
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`

	Tournaments []Tournament `json:"tournaments,omitempty" db:"-"`
}
