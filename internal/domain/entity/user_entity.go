package entity

import (
	"time"
)

// User is the aggregate root for the identity domain
// Passwords are stored as bcrypt hashes in PasswordHash.
//
// UserName and Email are unique case-insensitively through their normalized twins.
type User struct {
	ID                 string
	UserName           string
	NormalizedUserName string
	Email              string
	NormalizedEmail    string
	EmailConfirmed     bool
	PasswordHash       string
	Name               string
	AvatarURL          string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
