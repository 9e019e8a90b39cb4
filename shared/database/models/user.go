package models

import (
	"time"
)

type User struct {
	ID                  uint       `json:"id" gorm:"primaryKey"`
	Email               string     `json:"email" gorm:"size:255;uniqueIndex;not null"`
	Username            string     `json:"username" gorm:"size:30;uniqueIndex;not null"`
	Password            string     `json:"-"` // bcrypt hash, empty for OAuth-only accounts
	Provider            string     `json:"provider" gorm:"size:50;default:'credentials'"`
	ProviderID          *string    `json:"provider_id" gorm:"size:255;index"`
	EmailVerified       bool       `json:"email_verified" gorm:"default:false"`
	Image               string     `json:"image"`
	FailedLoginAttempts int        `json:"failed_login_attempts" gorm:"default:0;not null"`
	LockedUntil         *time.Time `json:"locked_until"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}
