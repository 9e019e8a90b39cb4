package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authgate-backend/shared/database/models/auth"
)

func TestBlacklistTokenRejectsUntilExpiry(t *testing.T) {
	db := setupTestDB(t)

	token, err := GenerateAccessToken(1, "blacklist@example.com")
	require.NoError(t, err)

	blacklisted, err := IsTokenBlacklisted(db, token)
	require.NoError(t, err)
	assert.False(t, blacklisted)

	require.NoError(t, BlacklistToken(db, token))

	blacklisted, err = IsTokenBlacklisted(db, token)
	require.NoError(t, err)
	assert.True(t, blacklisted)

	// The stored expiry comes from the token's own exp claim
	var entry auth.TokenBlacklist
	require.NoError(t, db.First(&entry, "token = ?", token).Error)
	assert.WithinDuration(t, time.Now().Add(AccessTokenTTL), entry.ExpiresAt, time.Minute)
}

func TestBlacklistEntrySelfExpires(t *testing.T) {
	db := setupTestDB(t)

	token, err := GenerateAccessToken(2, "selfexpire@example.com")
	require.NoError(t, err)
	require.NoError(t, BlacklistToken(db, token))

	// Age the entry past its expiry; the next lookup purges it
	err = db.Model(&auth.TokenBlacklist{}).
		Where("token = ?", token).
		Update("expires_at", time.Now().Add(-time.Minute)).Error
	require.NoError(t, err)

	blacklisted, err := IsTokenBlacklisted(db, token)
	require.NoError(t, err)
	assert.False(t, blacklisted)

	var count int64
	require.NoError(t, db.Model(&auth.TokenBlacklist{}).Where("token = ?", token).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestBlacklistTokenUpsert(t *testing.T) {
	db := setupTestDB(t)

	token, err := GenerateAccessToken(3, "upsert@example.com")
	require.NoError(t, err)

	require.NoError(t, BlacklistToken(db, token))
	require.NoError(t, BlacklistToken(db, token))

	var count int64
	require.NoError(t, db.Model(&auth.TokenBlacklist{}).Where("token = ?", token).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestBlacklistMalformedTokenDefaultsExpiry(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, BlacklistToken(db, "opaque-garbage"))

	blacklisted, err := IsTokenBlacklisted(db, "opaque-garbage")
	require.NoError(t, err)
	assert.True(t, blacklisted)
}

func TestCleanupExpiredBlacklistTokens(t *testing.T) {
	db := setupTestDB(t)

	stale := auth.TokenBlacklist{Token: "stale", ExpiresAt: time.Now().Add(-time.Hour)}
	live := auth.TokenBlacklist{Token: "live", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, db.Create(&stale).Error)
	require.NoError(t, db.Create(&live).Error)

	require.NoError(t, CleanupExpiredBlacklistTokens(db))

	var count int64
	require.NoError(t, db.Model(&auth.TokenBlacklist{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
