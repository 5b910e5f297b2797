package auth

import (
	"github.com/GreenHydrogen/H2-Backend/internal/db"
	"github.com/GreenHydrogen/H2-Backend/internal/utils"
)

// SessionInfo implements the middleware fetchers on top of the database.
type SessionInfo struct{}

func (si SessionInfo) FindSessionByID(id string) (utils.SessionData, error) {
	var session Session

	err := db.DB.First(&session, "session_id = ?", id).Error
	if err != nil {
		return utils.SessionData{}, err
	}

	return utils.SessionData{
		UserID:    session.UserID,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

func (si SessionInfo) FindUserByID(id string) (utils.UserData, error) {
	var user User

	err := db.DB.Select("user_id", "role", "is_active").First(&user, "user_id = ?", id).Error
	if err != nil {
		return utils.UserData{}, err
	}

	return utils.UserData{
		UserID:   user.UserID,
		Role:     user.Role,
		IsActive: user.IsActive,
	}, nil
}
