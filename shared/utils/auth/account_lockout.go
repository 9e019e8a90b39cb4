package utils

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"authgate-backend/shared/database/models"
	"authgate-backend/shared/database/models/auth"
)

const (
	// MaxFailedAttempts is the failed-login threshold before a lock
	MaxFailedAttempts = 5
	// LockoutDuration is how long an account stays locked
	LockoutDuration = 15 * time.Minute
)

type LockoutResult struct {
	Locked            bool
	AttemptsRemaining int
	LockedUntil       *time.Time
}

// IsAccountLocked reports whether the user is currently locked. An expired
// lock is reconciled here: the expiry is cleared and the failed counter reset
// on this read rather than by a background job.
func IsAccountLocked(db *gorm.DB, userID uint) (bool, error) {
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	if user.LockedUntil == nil {
		return false, nil
	}

	if user.LockedUntil.After(time.Now()) {
		return true, nil
	}

	err := db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"locked_until":          nil,
		"failed_login_attempts": 0,
	}).Error
	if err != nil {
		return false, err
	}

	return false, nil
}

// RecordFailedLoginAttempt increments the user's failed counter and imposes a
// lock once the threshold is reached. Call sites resolve the user row first,
// so a missing user here is a hard error.
func RecordFailedLoginAttempt(db *gorm.DB, userID uint) (*LockoutResult, error) {
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		return nil, fmt.Errorf("record failed attempt for user %d: %w", userID, err)
	}

	if err := db.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("failed_login_attempts", gorm.Expr("failed_login_attempts + 1")).Error; err != nil {
		return nil, err
	}

	if err := db.First(&user, userID).Error; err != nil {
		return nil, err
	}

	if user.FailedLoginAttempts >= MaxFailedAttempts {
		lockedUntil := time.Now().Add(LockoutDuration)

		if err := db.Model(&models.User{}).Where("id = ?", userID).
			Update("locked_until", lockedUntil).Error; err != nil {
			return nil, err
		}

		lockout := auth.AccountLockout{
			UserID:      userID,
			LockedUntil: lockedUntil,
			Reason:      "too_many_failed_attempts",
		}
		if err := db.Create(&lockout).Error; err != nil {
			return nil, err
		}

		return &LockoutResult{
			Locked:            true,
			AttemptsRemaining: 0,
			LockedUntil:       &lockedUntil,
		}, nil
	}

	return &LockoutResult{
		Locked:            false,
		AttemptsRemaining: MaxFailedAttempts - user.FailedLoginAttempts,
	}, nil
}

// ResetFailedLoginAttempts zeroes the counter and clears any lock,
// unconditionally. Called on successful authentication.
func ResetFailedLoginAttempts(db *gorm.DB, userID uint) error {
	return db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"failed_login_attempts": 0,
		"locked_until":          nil,
	}).Error
}
