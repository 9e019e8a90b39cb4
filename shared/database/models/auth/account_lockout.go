package auth

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccountLockout - append-only audit log of lock events. Never mutated.
type AccountLockout struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID      uint      `json:"user_id" gorm:"index;not null"`
	LockedUntil time.Time `json:"locked_until" gorm:"not null"`
	Reason      string    `json:"reason" gorm:"size:255"`
	CreatedAt   time.Time `json:"created_at"`
}

func (l *AccountLockout) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
