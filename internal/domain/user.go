package domain

import "time"

// User represents a registered account. PasswordHash never leaves the
// auth layer; read paths hand out Profile instead.
type User struct {
	ID              string
	Username        string
	PasswordHash    string
	ProfileImageURL string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ProfileOf strips a user down to its client-safe shape.
func ProfileOf(u *User) Profile {
	return Profile{
		ID:              u.ID,
		Username:        u.Username,
		ProfileImageURL: u.ProfileImageURL,
	}
}
