package main

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"authgate-backend/auth-service/handlers"
	"authgate-backend/auth-service/middleware"
	"authgate-backend/shared/config"
	"authgate-backend/shared/database"
	utils "authgate-backend/shared/utils/auth"
	"authgate-backend/shared/utils/cache"
)

// cleanupInterval is how often expired refresh tokens and blacklist entries
// are swept from the database
const cleanupInterval = time.Hour

func main() {
	// Load configuration
	config.LoadConfig()

	cfg := config.GetConfig()
	if cfg.JWTSecret == cfg.JWTRefreshSecret {
		log.Fatal("JWT_SECRET and JWT_REFRESH_SECRET must differ")
	}

	// Initialize database
	if err := database.InitDatabase(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.CloseDatabase()

	// Redis cache is optional: without it the blacklist falls back to the database
	if err := cache.InitCacheManager(); err != nil {
		log.Printf("Warning: Redis cache unavailable, blacklist lookups will hit the database: %v", err)
	}

	db := database.GetDB()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db)
	oauthHandler := handlers.NewOAuthHandler(db)

	go runCleanupLoop(db)

	router := gin.Default()

	// Auth endpoints
	router.POST("/api/auth/signin", authHandler.SignIn)
	router.POST("/api/auth/signup", authHandler.SignUp)
	router.POST("/api/auth/refresh", authHandler.Refresh)
	router.POST("/api/auth/logout", authHandler.Logout)
	router.GET("/api/auth/me", middleware.AuthMiddleware(db), authHandler.Me)

	// Google OAuth endpoints
	router.GET("/api/auth/google", oauthHandler.GoogleCallback)
	router.POST("/api/auth/google", oauthHandler.GoogleAuthURL)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "auth",
		})
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	port := strings.Split(cfg.AuthServiceURL, ":")[2]
	log.Printf("Auth Service starting on port %s...", port)
	router.Run(":" + port)
}

// runCleanupLoop periodically removes expired refresh tokens and blacklist
// entries. Both stores stay correct without it; this only reclaims storage.
func runCleanupLoop(db *gorm.DB) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		if err := utils.CleanupExpiredRefreshTokens(db); err != nil {
			log.Printf("❌ Refresh token cleanup failed: %v", err)
		}
		if err := utils.CleanupExpiredBlacklistTokens(db); err != nil {
			log.Printf("❌ Blacklist cleanup failed: %v", err)
		}
	}
}
