package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("a@x.com"))
	assert.Error(t, ValidateEmail(""))
	assert.Error(t, ValidateEmail("not-an-email"))
}

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, ValidateUsername("ann"))
	assert.Error(t, ValidateUsername("ab"))
	assert.Error(t, ValidateUsername("this-username-is-way-too-long-to-pass"))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("longenough1"))
	assert.Error(t, ValidatePassword("short"))
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("longenough1")
	require.NoError(t, err)
	assert.NotEqual(t, "longenough1", hash)

	assert.True(t, CheckPasswordHash("longenough1", hash))
	assert.False(t, CheckPasswordHash("wrong-password", hash))
}
