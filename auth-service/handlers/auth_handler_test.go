package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"authgate-backend/auth-service/middleware"
	"authgate-backend/shared/database/models"
	"authgate-backend/shared/database/models/auth"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&auth.RefreshToken{},
		&auth.TokenBlacklist{},
		&auth.RateLimitWindow{},
		&auth.AccountLockout{},
	)
	require.NoError(t, err)

	return db
}

func setupRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)

	authHandler := NewAuthHandler(db)

	router := gin.New()
	router.POST("/api/auth/signin", authHandler.SignIn)
	router.POST("/api/auth/signup", authHandler.SignUp)
	router.POST("/api/auth/refresh", authHandler.Refresh)
	router.POST("/api/auth/logout", authHandler.Logout)
	router.GET("/api/auth/me", middleware.AuthMiddleware(db), authHandler.Me)
	return router
}

func postJSON(router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func refreshCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == refreshCookieName {
			return c
		}
	}
	t.Fatal("response has no refreshToken cookie")
	return nil
}

func signUpUser(t *testing.T, router *gin.Engine) (*httptest.ResponseRecorder, AuthResponse) {
	t.Helper()

	w := postJSON(router, "/api/auth/signup", gin.H{
		"username": "ann",
		"email":    "a@x.com",
		"password": "longenough1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestSignUpAndSignIn(t *testing.T) {
	router := setupRouter(setupTestDB(t))

	w, resp := signUpUser(t, router)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "ann", resp.User.Username)
	assert.Equal(t, "a@x.com", resp.User.Email)

	cookie := refreshCookie(t, w)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)

	w = postJSON(router, "/api/auth/signin", gin.H{
		"email":    "a@x.com",
		"password": "longenough1",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var signin AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &signin))
	assert.True(t, signin.Success)
	assert.NotEmpty(t, signin.AccessToken)
}

func TestSignUpDuplicate(t *testing.T) {
	router := setupRouter(setupTestDB(t))
	signUpUser(t, router)

	w := postJSON(router, "/api/auth/signup", gin.H{
		"username": "ann",
		"email":    "a@x.com",
		"password": "longenough1",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSignUpValidation(t *testing.T) {
	router := setupRouter(setupTestDB(t))

	w := postJSON(router, "/api/auth/signup", gin.H{
		"username": "ab",
		"email":    "a@x.com",
		"password": "longenough1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(router, "/api/auth/signup", gin.H{
		"username": "ann",
		"email":    "a@x.com",
		"password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(router, "/api/auth/signup", gin.H{
		"username": "ann",
		"email":    "not-an-email",
		"password": "longenough1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignInRejectsMalformedEmail(t *testing.T) {
	router := setupRouter(setupTestDB(t))

	w := postJSON(router, "/api/auth/signin", gin.H{
		"email":    "not-an-email",
		"password": "longenough1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignInUnknownEmail(t *testing.T) {
	router := setupRouter(setupTestDB(t))

	w := postJSON(router, "/api/auth/signin", gin.H{
		"email":    "nobody@x.com",
		"password": "longenough1",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSignInLocksAfterRepeatedFailures(t *testing.T) {
	router := setupRouter(setupTestDB(t))
	signUpUser(t, router)

	for i := 1; i <= 4; i++ {
		w := postJSON(router, "/api/auth/signin", gin.H{
			"email":    "a@x.com",
			"password": "wrong-password",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code, "attempt %d", i)
	}

	w := postJSON(router, "/api/auth/signin", gin.H{
		"email":    "a@x.com",
		"password": "wrong-password",
	})
	require.Equal(t, http.StatusLocked, w.Code, w.Body.String())

	var body struct {
		LockedUntil time.Time `json:"lockedUntil"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), body.LockedUntil, time.Minute)
}

func TestSignInRateLimited(t *testing.T) {
	router := setupRouter(setupTestDB(t))

	for i := 0; i < 5; i++ {
		w := postJSON(router, "/api/auth/signin", gin.H{
			"email":    "nobody@x.com",
			"password": "longenough1",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}

	w := postJSON(router, "/api/auth/signin", gin.H{
		"email":    "nobody@x.com",
		"password": "longenough1",
	})
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
}

func TestRefreshRotatesSingleUse(t *testing.T) {
	router := setupRouter(setupTestDB(t))
	w, _ := signUpUser(t, router)
	oldCookie := refreshCookie(t, w)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.AddCookie(oldCookie)
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req)
	require.Equal(t, http.StatusOK, w2.Code, w2.Body.String())

	var resp RefreshResponse
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.AccessToken)

	newCookie := refreshCookie(t, w2)
	assert.NotEqual(t, oldCookie.Value, newCookie.Value)

	// Replay of the pre-rotation cookie must fail
	req = httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.AddCookie(oldCookie)
	w3 := httptest.NewRecorder()
	router.ServeHTTP(w3, req)
	assert.Equal(t, http.StatusUnauthorized, w3.Code)

	// The rotated cookie still works
	req = httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.AddCookie(newCookie)
	w4 := httptest.NewRecorder()
	router.ServeHTTP(w4, req)
	assert.Equal(t, http.StatusOK, w4.Code)
}

func TestRefreshWithoutCookie(t *testing.T) {
	router := setupRouter(setupTestDB(t))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutBlacklistsAccessToken(t *testing.T) {
	router := setupRouter(setupTestDB(t))
	w, resp := signUpUser(t, router)
	cookie := refreshCookie(t, w)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+resp.AccessToken)
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req)
	require.Equal(t, http.StatusOK, w2.Code, w2.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+resp.AccessToken)
	req.AddCookie(cookie)
	w3 := httptest.NewRecorder()
	router.ServeHTTP(w3, req)
	require.Equal(t, http.StatusOK, w3.Code)

	cleared := refreshCookie(t, w3)
	assert.Empty(t, cleared.Value)

	// The blacklisted access token no longer authenticates
	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+resp.AccessToken)
	w4 := httptest.NewRecorder()
	router.ServeHTTP(w4, req)
	assert.Equal(t, http.StatusUnauthorized, w4.Code)

	// The revoked refresh token cannot rotate either
	req = httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.AddCookie(cookie)
	w5 := httptest.NewRecorder()
	router.ServeHTTP(w5, req)
	assert.Equal(t, http.StatusUnauthorized, w5.Code)
}

func TestLogoutWithoutCredentials(t *testing.T) {
	router := setupRouter(setupTestDB(t))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMeRequiresToken(t *testing.T) {
	router := setupRouter(setupTestDB(t))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
