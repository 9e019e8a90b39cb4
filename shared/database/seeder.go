package database

import (
	"errors"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"authgate-backend/shared/database/models"
)

// SeedDemoUser creates a credentials-based user for local development.
// Idempotent: an existing user with the same email is left untouched.
func SeedDemoUser(email, username, password string) error {
	var existing models.User
	err := DB.Where("email = ?", email).First(&existing).Error
	if err == nil {
		log.Printf("✅ Demo user already exists: %s", email)
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check demo user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash demo password: %w", err)
	}

	user := models.User{
		Email:         email,
		Username:      username,
		Password:      string(hash),
		Provider:      "credentials",
		EmailVerified: true,
	}

	if err := DB.Create(&user).Error; err != nil {
		return fmt.Errorf("failed to create demo user: %w", err)
	}

	log.Printf("✅ Demo user created: %s", email)
	return nil
}
