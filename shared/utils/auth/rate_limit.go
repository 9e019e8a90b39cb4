package utils

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"authgate-backend/shared/database/models/auth"
)

const (
	// RateLimitWindow is the fixed window length
	RateLimitWindow = 60 * time.Second
	// MaxRequestsPerWindow is the request cap per (identifier, endpoint) window
	MaxRequestsPerWindow = 5
)

type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// CheckRateLimit counts a request against the fixed window for
// (identifier, endpoint) and reports whether it is allowed. Windows are not
// sliding: a burst straddling a window boundary can admit up to twice the cap.
func CheckRateLimit(db *gorm.DB, identifier, endpoint string) (*RateLimitResult, error) {
	now := time.Now()
	cutoff := now.Add(-RateLimitWindow)

	// Lazy global sweep of stale windows, not scoped to this key.
	if err := db.Where("window_start < ?", cutoff).Delete(&auth.RateLimitWindow{}).Error; err != nil {
		return nil, err
	}

	var existing auth.RateLimitWindow
	err := db.Where("identifier = ? AND endpoint = ? AND window_start >= ?", identifier, endpoint, cutoff).
		First(&existing).Error

	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		// First request in a window is always allowed, even over stale state.
		window := auth.RateLimitWindow{
			Identifier:  identifier,
			Endpoint:    endpoint,
			Count:       1,
			WindowStart: now,
		}
		if err := db.Create(&window).Error; err != nil {
			return nil, err
		}

		return &RateLimitResult{
			Allowed:   true,
			Remaining: MaxRequestsPerWindow - 1,
			ResetAt:   now.Add(RateLimitWindow),
		}, nil
	}

	// Increment in SQL so two concurrent requests cannot both read the same
	// stale count.
	if err := db.Model(&auth.RateLimitWindow{}).
		Where("id = ?", existing.ID).
		UpdateColumn("count", gorm.Expr("count + 1")).Error; err != nil {
		return nil, err
	}

	var updated auth.RateLimitWindow
	if err := db.First(&updated, "id = ?", existing.ID).Error; err != nil {
		return nil, err
	}

	remaining := MaxRequestsPerWindow - updated.Count
	if remaining < 0 {
		remaining = 0
	}

	return &RateLimitResult{
		Allowed:   updated.Count <= MaxRequestsPerWindow,
		Remaining: remaining,
		ResetAt:   existing.WindowStart.Add(RateLimitWindow),
	}, nil
}
