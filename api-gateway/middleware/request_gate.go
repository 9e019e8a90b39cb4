package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	utils "authgate-backend/shared/utils/auth"
)

// publicPrefixes bypass authentication entirely. The root path is matched
// exactly, everything else by prefix.
var publicPrefixes = []string{
	"/landing",
	"/auth/signin",
	"/auth/signup",
	"/api/auth/signin",
	"/api/auth/signup",
	"/api/auth/google",
	"/api/auth/refresh",
	"/api/auth/logout",
	"/health",
	"/swagger",
}

// protectedPagePrefixes are frontend pages that require a session; failures
// redirect to the sign-in page instead of returning JSON
var protectedPagePrefixes = []string{
	"/dashboard",
	"/components",
}

// RequestGate classifies every inbound request as public, protected API or
// protected page, and verifies the access token locally. The gate never
// touches the database: blacklist checks belong to the auth service, which
// re-verifies every token it receives.
func RequestGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		if isPublicPath(path) {
			c.Next()
			return
		}

		if strings.HasPrefix(path, "/api/") {
			gateAPIRequest(c)
			return
		}

		if isProtectedPage(path) {
			gatePageRequest(c)
			return
		}

		c.Next()
	}
}

func isPublicPath(path string) bool {
	if path == "/" {
		return true
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func isProtectedPage(path string) bool {
	for _, prefix := range protectedPagePrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// gateAPIRequest requires a Bearer token on protected API paths. A valid token
// annotates the forwarded request with the resolved identity; an invalid or
// missing token is still forwarded when a refresh cookie is present, so the
// downstream handler can attempt a refresh.
func gateAPIRequest(c *gin.Context) {
	tokenString := bearerToken(c)
	if tokenString == "" {
		if hasRefreshCookie(c) {
			c.Next()
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		c.Abort()
		return
	}

	claims, err := utils.ValidateAccessToken(tokenString)
	if err != nil {
		if hasRefreshCookie(c) {
			c.Next()
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		c.Abort()
		return
	}

	// Trusted identity headers for downstream services. Strip any client
	// supplied values first.
	c.Request.Header.Set("X-User-Id", strconv.FormatUint(uint64(claims.UserID), 10))
	c.Request.Header.Set("X-User-Email", claims.Email)
	c.Next()
}

// gatePageRequest applies the same token-or-refresh-cookie check to protected
// frontend pages, but failure redirects to the sign-in page
func gatePageRequest(c *gin.Context) {
	tokenString := bearerToken(c)
	if tokenString == "" {
		if hasRefreshCookie(c) {
			c.Next()
			return
		}
		c.Redirect(http.StatusTemporaryRedirect, "/auth/signin")
		c.Abort()
		return
	}

	if _, err := utils.ValidateAccessToken(tokenString); err != nil {
		if hasRefreshCookie(c) {
			c.Next()
			return
		}
		c.Redirect(http.StatusTemporaryRedirect, "/auth/signin?error=invalid_token")
		c.Abort()
		return
	}

	c.Next()
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

func hasRefreshCookie(c *gin.Context) bool {
	cookie, err := c.Cookie("refreshToken")
	return err == nil && cookie != ""
}
