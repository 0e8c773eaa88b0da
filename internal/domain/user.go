package domain

import "time"

// User represents a registered user of the application.
// PasswordHash is a bcrypt hash; it is persisted with the user collection
// but stripped from the active-session copy and from every API response.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Avatar       string    `json:"avatar"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Sanitized returns a copy of the user with the credential removed.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}
