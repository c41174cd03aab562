package entity

import "time"

// Role represents an authorization role
// Many-to-many with User via user_roles.
// NormalizedName carries the case-insensitive uniqueness key.
type Role struct {
	ID             string
	Name           string
	NormalizedName string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
