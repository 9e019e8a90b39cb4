package auth

import (
	"time"

	"authgate-backend/shared/database/models"
)

// RefreshToken - one outstanding long-lived credential per row. The signed
// token string is the key; revoked_at set means the row is dead forever.
type RefreshToken struct {
	Token     string     `json:"token" gorm:"size:512;primaryKey"`
	UserID    uint       `json:"user_id" gorm:"index;not null"`
	ExpiresAt time.Time  `json:"expires_at" gorm:"not null"`
	RevokedAt *time.Time `json:"revoked_at"`
	CreatedAt time.Time  `json:"created_at"`

	// Relations
	User models.User `json:"user" gorm:"foreignKey:UserID"`
}
