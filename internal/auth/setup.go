package auth

import (
	"log"
	"time"

	"github.com/GreenHydrogen/H2-Backend/internal/db"
)

func Init(sessionFor time.Duration) {
	if sessionFor > 0 {
		SessionDuration = sessionFor
	}

	if err := db.EnsureSchema(db.DB, db.AuthSchema); err != nil {
		log.Fatal("Failed to ensure schema app_auth: ", err)
	}

	if err := db.DB.AutoMigrate(&User{}, &Session{}); err != nil {
		log.Fatal("Failed to auto-migrate tables", err)
	}
}
