package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"authgate-backend/shared/config"
	"authgate-backend/shared/database/models"
	utils "authgate-backend/shared/utils/auth"
)

const refreshCookieName = "refreshToken"

type AuthHandler struct {
	db *gorm.DB
}

func NewAuthHandler(db *gorm.DB) *AuthHandler {
	return &AuthHandler{db: db}
}

// SignIn Request/Response structs
type SignInRequest struct {
	Email    string `json:"email" binding:"required" example:"user@example.com"`
	Password string `json:"password" binding:"required" example:"longenough1"`
}

type SignUpRequest struct {
	Username string `json:"username" binding:"required" example:"ann"`
	Email    string `json:"email" binding:"required" example:"a@x.com"`
	Password string `json:"password" binding:"required" example:"longenough1"`
}

type UserInfo struct {
	ID       uint   `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Image    string `json:"image,omitempty"`
}

type AuthResponse struct {
	Success     bool     `json:"success"`
	User        UserInfo `json:"user"`
	AccessToken string   `json:"accessToken"`
}

type RefreshResponse struct {
	Success     bool   `json:"success"`
	AccessToken string `json:"accessToken"`
}

// POST /api/auth/signin
// @Summary Sign in with email and password
// @Description Authenticate a user and return an access token plus a refresh token cookie
// @Tags auth
// @Accept json
// @Produce json
// @Param signin body SignInRequest true "Credentials"
// @Success 200 {object} handlers.AuthResponse "Successful sign in"
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 401 {object} map[string]string "Invalid credentials"
// @Failure 423 {object} map[string]string "Account locked"
// @Failure 429 {object} map[string]string "Too many requests"
// @Router /auth/signin [post]
func (h *AuthHandler) SignIn(c *gin.Context) {
	if !h.allowRequest(c, "/api/auth/signin") {
		return
	}

	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation error", "details": err.Error()})
		return
	}

	if err := utils.ValidateEmail(req.Email); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation error", "details": err.Error()})
		return
	}

	// Find user by lowercased email
	var user models.User
	if err := h.db.Where("email = ?", strings.ToLower(req.Email)).First(&user).Error; err != nil {
		// Don't reveal if user exists
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	// OAuth-only accounts have no password to check
	if user.Password == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	locked, err := utils.IsAccountLocked(h.db, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if locked {
		c.JSON(http.StatusLocked, gin.H{
			"error":       "Account is locked. Please try again later.",
			"lockedUntil": user.LockedUntil,
		})
		return
	}

	if !utils.CheckPasswordHash(req.Password, user.Password) {
		result, err := utils.RecordFailedLoginAttempt(h.db, user.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		if result.Locked {
			c.JSON(http.StatusLocked, gin.H{
				"error":       "Account locked due to too many failed attempts",
				"lockedUntil": result.LockedUntil,
			})
			return
		}

		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	// Reset failed attempts on successful password verification
	if err := utils.ResetFailedLoginAttempts(h.db, user.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	accessToken, refreshToken, ok := h.issueTokenPair(c, &user)
	if !ok {
		return
	}

	h.setRefreshCookie(c, refreshToken)

	c.JSON(http.StatusOK, AuthResponse{
		Success: true,
		User: UserInfo{
			ID:       user.ID,
			Email:    user.Email,
			Username: user.Username,
			Image:    user.Image,
		},
		AccessToken: accessToken,
	})
}

// POST /api/auth/signup
// @Summary Register a new account
// @Description Create a credentials-based user and sign them in
// @Tags auth
// @Accept json
// @Produce json
// @Param signup body SignUpRequest true "Registration data"
// @Success 201 {object} handlers.AuthResponse "User created"
// @Failure 400 {object} map[string]string "Validation failure"
// @Failure 409 {object} map[string]string "Duplicate email or username"
// @Failure 429 {object} map[string]string "Too many requests"
// @Router /auth/signup [post]
func (h *AuthHandler) SignUp(c *gin.Context) {
	if !h.allowRequest(c, "/api/auth/signup") {
		return
	}

	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation error", "details": err.Error()})
		return
	}

	if err := utils.ValidateEmail(req.Email); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation error", "details": err.Error()})
		return
	}
	if err := utils.ValidateUsername(req.Username); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation error", "details": err.Error()})
		return
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation error", "details": err.Error()})
		return
	}

	email := strings.ToLower(req.Email)
	username := strings.ToLower(req.Username)

	var existing models.User
	if err := h.db.Where("email = ? OR username = ?", email, username).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "User with this email or username already exists"})
		return
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not hash password"})
		return
	}

	user := models.User{
		Email:         email,
		Username:      username,
		Password:      hashedPassword,
		Provider:      "credentials",
		EmailVerified: false,
	}

	if err := h.db.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create user"})
		return
	}

	accessToken, refreshToken, ok := h.issueTokenPair(c, &user)
	if !ok {
		return
	}

	h.setRefreshCookie(c, refreshToken)

	c.JSON(http.StatusCreated, AuthResponse{
		Success: true,
		User: UserInfo{
			ID:       user.ID,
			Email:    user.Email,
			Username: user.Username,
		},
		AccessToken: accessToken,
	})
}

// POST /api/auth/refresh
// @Summary Rotate the refresh token
// @Description Exchange the refresh token cookie for a new access token and a rotated cookie
// @Tags auth
// @Produce json
// @Success 200 {object} handlers.RefreshResponse "New access token"
// @Failure 401 {object} map[string]string "Invalid, expired or revoked refresh token"
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken, err := c.Cookie(refreshCookieName)
	if err != nil || refreshToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token not found"})
		return
	}

	blacklisted, err := utils.IsTokenBlacklisted(h.db, refreshToken)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if blacklisted {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token has been revoked"})
		return
	}

	rotated, err := utils.RotateRefreshToken(h.db, refreshToken)
	if err != nil {
		if errors.Is(err, utils.ErrInvalidRefreshToken) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired refresh token"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	h.setRefreshCookie(c, rotated.RefreshToken)

	c.JSON(http.StatusOK, RefreshResponse{
		Success:     true,
		AccessToken: rotated.AccessToken,
	})
}

// POST /api/auth/logout
// @Summary Log out
// @Description Best-effort revocation of the refresh token and blacklisting of the access token. Always returns 200.
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]interface{} "Logged out"
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if refreshToken, err := c.Cookie(refreshCookieName); err == nil && refreshToken != "" {
		if err := utils.RevokeRefreshToken(h.db, refreshToken); err != nil {
			log.Printf("logout: could not revoke refresh token: %v", err)
		}
	}

	// Only a still-valid access token is worth blacklisting; expired ones are
	// trivially invalid already.
	if accessToken := extractBearerToken(c); accessToken != "" {
		if _, err := utils.ValidateAccessToken(accessToken); err == nil {
			if err := utils.BlacklistToken(h.db, accessToken); err != nil {
				log.Printf("logout: could not blacklist access token: %v", err)
			}
		}
	}

	h.clearRefreshCookie(c)

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out successfully"})
}

// GET /api/auth/me
// @Summary Current user
// @Description Return the authenticated user's profile
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "User profile"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "User not found"
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetUint("userID")

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user": UserInfo{
			ID:       user.ID,
			Email:    user.Email,
			Username: user.Username,
			Image:    user.Image,
		},
	})
}

// allowRequest applies the store-backed fixed-window rate limit and writes the
// 429 response itself when the caller is throttled
func (h *AuthHandler) allowRequest(c *gin.Context, endpoint string) bool {
	result, err := utils.CheckRateLimit(h.db, clientIP(c), endpoint)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return false
	}

	if !result.Allowed {
		c.Header("X-RateLimit-Limit", strconv.Itoa(utils.MaxRequestsPerWindow))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", result.ResetAt.Format(time.RFC3339))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":   "Too many requests",
			"message": "Rate limit exceeded. Please try again after " + result.ResetAt.Format(time.RFC3339),
		})
		return false
	}

	return true
}

func (h *AuthHandler) issueTokenPair(c *gin.Context, user *models.User) (accessToken, refreshToken string, ok bool) {
	accessToken, err := utils.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not generate token"})
		return "", "", false
	}

	refreshToken, err = utils.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not generate refresh token"})
		return "", "", false
	}

	expiresAt := time.Now().Add(utils.RefreshTokenTTL)
	if err := utils.StoreRefreshToken(h.db, user.ID, refreshToken, expiresAt); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not store refresh token"})
		return "", "", false
	}

	return accessToken, refreshToken, true
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookieName, token, int(utils.RefreshTokenTTL.Seconds()), "/", "",
		config.GetConfig().CookieSecure, true)
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookieName, "", -1, "/", "", config.GetConfig().CookieSecure, true)
}

func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	tokenParts := strings.Split(authHeader, " ")
	if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
		return ""
	}

	return tokenParts[1]
}

// clientIP resolves the caller's IP for rate limiting, falling back to
// "unknown" when the address cannot be determined
func clientIP(c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "" {
		return "unknown"
	}
	return ip
}
