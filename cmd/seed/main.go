package main

import (
	"log"

	"authgate-backend/shared/config"
	"authgate-backend/shared/database"
)

func main() {
	log.Println("🌱 Starting database seeding...")

	// Load configuration
	config.LoadConfig()

	// Initialize database
	if err := database.InitDatabase(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.CloseDatabase()

	if err := database.SeedDemoUser("demo@authgate.local", "demo", "demo-password-1"); err != nil {
		log.Fatalf("Failed to seed demo user: %v", err)
	}

	log.Println("✅ Database seeding completed successfully!")
}
