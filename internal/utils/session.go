package utils

import (
	"time"

	"github.com/google/uuid"
)

// SessionData is what the session middleware needs from a stored session.
type SessionData struct {
	UserID    string
	ExpiresAt time.Time
}

// UserData is what the admin middleware needs from a stored user.
type UserData struct {
	UserID   string
	Role     string
	IsActive bool
}

func GenerateUUID() string {
	return uuid.NewString()
}
