package utils

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"authgate-backend/shared/database/models/auth"
	"authgate-backend/shared/utils/cache"
)

// BlacklistToken adds an access token to the blacklist. The entry expires when
// the token's own exp claim would have expired it anyway; without a readable
// exp claim it defaults to the refresh token lifetime.
func BlacklistToken(db *gorm.DB, token string) error {
	expiresAt := time.Now().Add(RefreshTokenTTL)

	if claims, err := DecodeToken(token); err == nil && claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	entry := auth.TokenBlacklist{
		Token:     token,
		ExpiresAt: expiresAt,
	}

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"expires_at"}),
	}).Create(&entry).Error
	if err != nil {
		return err
	}

	if cm := cache.GetCacheManager(); cm != nil {
		_ = cm.SetBlacklistedToken(token, time.Until(expiresAt))
	}

	return nil
}

// IsTokenBlacklisted reports whether a token has been revoked before its
// natural expiry. Entries whose stored expiry has passed are purged on read.
func IsTokenBlacklisted(db *gorm.DB, token string) (bool, error) {
	if cm := cache.GetCacheManager(); cm.IsBlacklistedToken(token) {
		return true, nil
	}

	var entry auth.TokenBlacklist
	err := db.Where("token = ?", token).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	if entry.ExpiresAt.Before(time.Now()) {
		if err := db.Delete(&entry).Error; err != nil {
			return false, err
		}
		return false, nil
	}

	return true, nil
}

// CleanupExpiredBlacklistTokens deletes blacklist entries whose tokens have
// expired naturally
func CleanupExpiredBlacklistTokens(db *gorm.DB) error {
	return db.Where("expires_at < ?", time.Now()).Delete(&auth.TokenBlacklist{}).Error
}
