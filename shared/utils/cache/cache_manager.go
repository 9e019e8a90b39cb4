package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"authgate-backend/shared/config"
)

// CacheManager fronts the token blacklist with redis. The relational store
// stays authoritative - every method here degrades to a miss when redis is
// unavailable so callers always fall through to the database.
type CacheManager struct {
	client *redis.Client
	ctx    context.Context
}

var globalCacheManager *CacheManager

// InitCacheManager initializes the global cache manager
func InitCacheManager() error {
	cfg := config.GetConfig()

	redisDB, err := strconv.Atoi(cfg.RedisDB)
	if err != nil {
		log.Printf("❌ Invalid Redis DB number: %s, using default 0", cfg.RedisDB)
		redisDB = 0
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       redisDB,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %v", err)
	}

	globalCacheManager = &CacheManager{
		client: client,
		ctx:    ctx,
	}

	log.Printf("✅ Redis Cache Manager initialized successfully - %s:%s DB:%d",
		cfg.RedisHost, cfg.RedisPort, redisDB)

	return nil
}

// GetCacheManager returns the global cache manager instance, or nil when redis
// is not reachable
func GetCacheManager() *CacheManager {
	return globalCacheManager
}

// GenerateBlacklistKey generates a cache key for a blacklisted token. Tokens
// are hashed because raw JWTs are too long for sane key inspection.
func GenerateBlacklistKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return fmt.Sprintf("blacklist:%s", hex.EncodeToString(sum[:]))
}

// SetBlacklistedToken caches a blacklist entry until the token's own expiry.
func (cm *CacheManager) SetBlacklistedToken(token string, ttl time.Duration) error {
	if cm == nil || cm.client == nil {
		return fmt.Errorf("cache manager not initialized")
	}
	if ttl <= 0 {
		return nil
	}

	key := GenerateBlacklistKey(token)
	if err := cm.client.Set(cm.ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %v", err)
	}

	return nil
}

// IsBlacklistedToken reports whether the token has a live cache entry.
// A miss says nothing - the caller must still check the store.
func (cm *CacheManager) IsBlacklistedToken(token string) bool {
	if cm == nil || cm.client == nil {
		return false
	}

	key := GenerateBlacklistKey(token)
	_, err := cm.client.Get(cm.ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("❌ Cache error: %v", err)
		}
		return false
	}

	return true
}

// InvalidateBlacklistedToken removes a cached blacklist entry
func (cm *CacheManager) InvalidateBlacklistedToken(token string) error {
	if cm == nil || cm.client == nil {
		return fmt.Errorf("cache manager not initialized")
	}

	key := GenerateBlacklistKey(token)
	if err := cm.client.Del(cm.ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete cache key %s: %v", key, err)
	}

	return nil
}

// Close closes the cache manager connection
func (cm *CacheManager) Close() error {
	if cm != nil && cm.client != nil {
		return cm.client.Close()
	}
	return nil
}
