package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/GreenHydrogen/H2-Backend/internal/auth"
	"github.com/GreenHydrogen/H2-Backend/internal/db"
)

func main() {
	_ = godotenv.Load(".env.local")

	var (
		email  = flag.String("email", "", "email of the user to promote (required)")
		demote = flag.Bool("demote", false, "set the role back to user instead")
	)
	flag.Parse()

	if *email == "" {
		flag.Usage()
		os.Exit(2)
	}

	db.Connect(os.Getenv("DATABASE_URL"))

	role := "admin"
	if *demote {
		role = "user"
	}

	res := db.DB.Model(&auth.User{}).
		Where("email = ?", strings.ToLower(strings.TrimSpace(*email))).
		Update("role", role)
	if res.Error != nil {
		log.Fatalf("update role: %v", res.Error)
	}
	if res.RowsAffected == 0 {
		log.Fatalf("User %s not found", *email)
	}
	fmt.Printf("User %s is now %s.\n", *email, role)
}
