package models

import "time"

// LegacyRole is the society-level role stored on users before the club migration.
type LegacyRole string

const (
	LegacyRoleAdmin  LegacyRole = "admin"
	LegacyRolePlayer LegacyRole = "player"
)

type User struct {
	ID        int        `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      LegacyRole `json:"role"`
	SocietyID *int       `json:"society_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func (u User) IsAdmin() bool {
	return u.Role == LegacyRoleAdmin
}
