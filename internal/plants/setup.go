package plants

import (
	"log"

	"github.com/GreenHydrogen/H2-Backend/internal/db"
)

func Init() {
	if err := db.EnsureSchema(db.DB, db.PlantsSchema); err != nil {
		log.Fatal("Failed to ensure schema h2: ", err)
	}

	if err := db.DB.AutoMigrate(&Plant{}); err != nil {
		log.Fatal("Failed to auto-migrate plants", err)
	}
}
