package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authgate-backend/shared/database/models/auth"
)

func TestRotateRefreshTokenSingleUse(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "rotate@example.com")

	token, err := GenerateRefreshToken(user.ID, user.Email)
	require.NoError(t, err)
	require.NoError(t, StoreRefreshToken(db, user.ID, token, time.Now().Add(RefreshTokenTTL)))

	rotated, err := RotateRefreshToken(db, token)
	require.NoError(t, err)
	assert.NotEmpty(t, rotated.AccessToken)
	assert.NotEmpty(t, rotated.RefreshToken)
	assert.NotEqual(t, token, rotated.RefreshToken)

	// Replay of the rotated token must fail as if it never existed
	_, err = RotateRefreshToken(db, token)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	// The successor remains usable
	_, err = RotateRefreshToken(db, rotated.RefreshToken)
	assert.NoError(t, err)
}

func TestRotateUnknownTokenFails(t *testing.T) {
	db := setupTestDB(t)

	// Validly signed but never stored
	token, err := GenerateRefreshToken(99, "ghost@example.com")
	require.NoError(t, err)

	_, err = RotateRefreshToken(db, token)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRotateExpiredRowFails(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "expired@example.com")

	token, err := GenerateRefreshToken(user.ID, user.Email)
	require.NoError(t, err)
	require.NoError(t, StoreRefreshToken(db, user.ID, token, time.Now().Add(-time.Hour)))

	_, err = RotateRefreshToken(db, token)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRevokeRefreshTokenIdempotent(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "revoke@example.com")

	token, err := GenerateRefreshToken(user.ID, user.Email)
	require.NoError(t, err)
	require.NoError(t, StoreRefreshToken(db, user.ID, token, time.Now().Add(RefreshTokenTTL)))

	require.NoError(t, RevokeRefreshToken(db, token))

	var row auth.RefreshToken
	require.NoError(t, db.First(&row, "token = ?", token).Error)
	require.NotNil(t, row.RevokedAt)
	firstRevokedAt := *row.RevokedAt

	// Second revoke is a no-op, including for unknown tokens
	require.NoError(t, RevokeRefreshToken(db, token))
	require.NoError(t, RevokeRefreshToken(db, "never-seen"))

	require.NoError(t, db.First(&row, "token = ?", token).Error)
	assert.Equal(t, firstRevokedAt.Unix(), row.RevokedAt.Unix())

	_, err = RotateRefreshToken(db, token)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRevokeAllUserRefreshTokens(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "revokeall@example.com")

	var tokens []string
	for i := 0; i < 3; i++ {
		token, err := GenerateRefreshToken(user.ID, user.Email)
		require.NoError(t, err)
		require.NoError(t, StoreRefreshToken(db, user.ID, token, time.Now().Add(RefreshTokenTTL)))
		tokens = append(tokens, token)
	}

	require.NoError(t, RevokeAllUserRefreshTokens(db, user.ID))

	for _, token := range tokens {
		_, err := RotateRefreshToken(db, token)
		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	}
}

func TestCleanupExpiredRefreshTokens(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "cleanup@example.com")

	expired, err := GenerateRefreshToken(user.ID, user.Email)
	require.NoError(t, err)
	require.NoError(t, StoreRefreshToken(db, user.ID, expired, time.Now().Add(-time.Minute)))

	active, err := GenerateRefreshToken(user.ID, user.Email)
	require.NoError(t, err)
	require.NoError(t, StoreRefreshToken(db, user.ID, active, time.Now().Add(RefreshTokenTTL)))

	require.NoError(t, CleanupExpiredRefreshTokens(db))

	var count int64
	require.NoError(t, db.Model(&auth.RefreshToken{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
