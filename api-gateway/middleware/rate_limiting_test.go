package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterBlocksAfterCap(t *testing.T) {
	limiter := NewRateLimiter(time.Hour)
	cfg := RateLimitConfig{
		MaxRequests:   3,
		TimeWindow:    time.Minute,
		BlockDuration: time.Minute,
	}

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.isAllowed("global:1.2.3.4", cfg), "request %d", i+1)
	}

	assert.False(t, limiter.isAllowed("global:1.2.3.4", cfg))
	// Once blocked, subsequent requests stay blocked for the block duration
	assert.False(t, limiter.isAllowed("global:1.2.3.4", cfg))

	// Other keys are unaffected
	assert.True(t, limiter.isAllowed("global:5.6.7.8", cfg))
}

func TestRateLimiterUnblocksAfterBlockExpiry(t *testing.T) {
	limiter := NewRateLimiter(time.Hour)
	cfg := RateLimitConfig{
		MaxRequests:   1,
		TimeWindow:    time.Minute,
		BlockDuration: time.Minute,
	}

	assert.True(t, limiter.isAllowed("global:9.9.9.9", cfg))
	assert.False(t, limiter.isAllowed("global:9.9.9.9", cfg))

	// Expire the block directly instead of sleeping
	limiter.mutex.Lock()
	limiter.store["global:9.9.9.9"].BlockUntil = time.Now().Add(-time.Second)
	limiter.mutex.Unlock()

	assert.True(t, limiter.isAllowed("global:9.9.9.9", cfg))
}
