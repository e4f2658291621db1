package domain

import "time"

type ID string

type User struct {
	ID           ID
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Summary is the listing view of a user: everything but the password hash.
type Summary struct {
	ID        ID
	Username  string
	Email     string
	CreatedAt time.Time
}

func (u User) Summary() Summary {
	return Summary{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}
