package dto

import (
	"time"

	"github.com/spec-kit/provider-directory/internal/domain"
)

// CredentialsPayload is an email/password pair.
type CredentialsPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionRequest accepts credentials nested under "session" (login form),
// "user" (registration form) or flat at the top level.
type SessionRequest struct {
	CredentialsPayload
	Session *CredentialsPayload `json:"session"`
	User    *CredentialsPayload `json:"user"`
}

// Credentials resolves whichever nesting the client used.
func (r SessionRequest) Credentials() (string, string) {
	if r.Session != nil {
		return r.Session.Email, r.Session.Password
	}
	if r.User != nil {
		return r.User.Email, r.User.Password
	}
	return r.Email, r.Password
}

// UserData is the minimal public profile returned with a token.
type UserData struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUserData serializes an account.
func NewUserData(user *domain.User) UserData {
	return UserData{ID: user.ID, Email: user.Email, CreatedAt: user.CreatedAt}
}
