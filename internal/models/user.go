package models

import (
	"strings"
	"time"
)

// DefaultAvatar is the placeholder picture for users who never uploaded one.
const DefaultAvatar = "default.jpg"

// User represents a row in the PostgreSQL users table.
type User struct {
	ID                int64     `json:"id"`
	Handle            string    `json:"handle"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	PasswordHash      string    `json:"-"` // never serialize
	Active            bool      `json:"active"`
	MustResetPassword bool      `json:"must_reset_password"`
	Avatar            string    `json:"avatar"`
	CreatedAt         time.Time `json:"created_at"`
}

// NewUser builds a freshly registered account: in good standing and with no
// pending forced reset.
func NewUser(name, handle, email, passwordHash string) *User {
	return &User{
		Handle:       strings.TrimSpace(handle),
		Name:         strings.TrimSpace(name),
		Email:        strings.TrimSpace(email),
		PasswordHash: passwordHash,
		Active:       true,
	}
}

// AvatarOrDefault returns the stored avatar file name or the placeholder.
func (u *User) AvatarOrDefault() string {
	if u.Avatar == "" {
		return DefaultAvatar
	}
	return u.Avatar
}

// RegisterRequest is the form body for POST /register.
type RegisterRequest struct {
	Name     string
	Handle   string
	Email    string
	Password string
}

// PasswordChange is the form body for POST /password.
type PasswordChange struct {
	Current string
	New     string
	Confirm string
}
