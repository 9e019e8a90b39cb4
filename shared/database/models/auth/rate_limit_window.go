package auth

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RateLimitWindow - fixed-window request counter per (identifier, endpoint).
type RateLimitWindow struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Identifier  string    `json:"identifier" gorm:"size:100;index:idx_rate_limit_key;not null"`
	Endpoint    string    `json:"endpoint" gorm:"size:255;index:idx_rate_limit_key;not null"`
	Count       int       `json:"count" gorm:"default:1;not null"`
	WindowStart time.Time `json:"window_start" gorm:"index;not null"`
	CreatedAt   time.Time `json:"created_at"`
}

func (w *RateLimitWindow) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}
