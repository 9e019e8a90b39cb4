package utils

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"authgate-backend/shared/database/models/auth"
)

// ErrInvalidRefreshToken covers every rotation failure that must look
// identical to the caller: token absent, already rotated, revoked or expired.
var ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")

type RotatedTokens struct {
	AccessToken  string
	RefreshToken string
}

// StoreRefreshToken inserts a new active refresh token row
func StoreRefreshToken(db *gorm.DB, userID uint, token string, expiresAt time.Time) error {
	rt := auth.RefreshToken{
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt,
	}
	return db.Create(&rt).Error
}

// RotateRefreshToken exchanges a refresh token for a fresh access/refresh pair.
// A refresh token can mint at most one successor: revoking the old row and
// inserting the new one commit together, and the guarded update makes a
// concurrent rotation on the same token lose with zero rows affected.
func RotateRefreshToken(db *gorm.DB, oldToken string) (*RotatedTokens, error) {
	claims, err := ValidateRefreshToken(oldToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	now := time.Now()
	var rotated RotatedTokens

	err = db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&auth.RefreshToken{}).
			Where("token = ? AND revoked_at IS NULL AND expires_at > ?", oldToken, now).
			Update("revoked_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidRefreshToken
		}

		newRefreshToken, err := GenerateRefreshToken(claims.UserID, claims.Email)
		if err != nil {
			return err
		}
		newAccessToken, err := GenerateAccessToken(claims.UserID, claims.Email)
		if err != nil {
			return err
		}

		newRT := auth.RefreshToken{
			Token:     newRefreshToken,
			UserID:    claims.UserID,
			ExpiresAt: now.Add(RefreshTokenTTL),
		}
		if err := tx.Create(&newRT).Error; err != nil {
			return err
		}

		rotated = RotatedTokens{
			AccessToken:  newAccessToken,
			RefreshToken: newRefreshToken,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &rotated, nil
}

// RevokeRefreshToken marks one unrevoked row revoked. Idempotent: a second
// call, or a call for an unknown token, is a no-op.
func RevokeRefreshToken(db *gorm.DB, token string) error {
	return db.Model(&auth.RefreshToken{}).
		Where("token = ? AND revoked_at IS NULL", token).
		Update("revoked_at", time.Now()).Error
}

// RevokeAllUserRefreshTokens revokes every active refresh token for a user
// ("log out everywhere")
func RevokeAllUserRefreshTokens(db *gorm.DB, userID uint) error {
	return db.Model(&auth.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", time.Now()).Error
}

// CleanupExpiredRefreshTokens deletes rows past their expiry regardless of
// revocation state. Storage reclamation only.
func CleanupExpiredRefreshTokens(db *gorm.DB) error {
	return db.Where("expires_at < ?", time.Now()).Delete(&auth.RefreshToken{}).Error
}
