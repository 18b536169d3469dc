package models

import "time"

type ClubRole string

const (
	ClubRoleOwner  ClubRole = "owner"
	ClubRoleAdmin  ClubRole = "admin"
	ClubRolePlayer ClubRole = "player"
)

// Club replaces a legacy Society and keeps its identifier.
type Club struct {
	ID         int       `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Format     *string   `json:"format,omitempty" db:"format"`
	InviteCode string    `json:"-" db:"invite_code"`
	OwnerID    int       `json:"owner_id" db:"owner_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

type ClubMember struct {
	ID       int       `json:"id" db:"id"`
	ClubID   int       `json:"club_id" db:"club_id"`
	UserID   int       `json:"user_id" db:"user_id"`
	Role     ClubRole  `json:"role" db:"role"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`
}
