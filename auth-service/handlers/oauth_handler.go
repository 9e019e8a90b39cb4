package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"authgate-backend/shared/config"
	"authgate-backend/shared/database/models"
	utils "authgate-backend/shared/utils/auth"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type OAuthHandler struct {
	db *gorm.DB
}

func NewOAuthHandler(db *gorm.DB) *OAuthHandler {
	return &OAuthHandler{db: db}
}

type googleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

type AuthURLResponse struct {
	AuthURL string `json:"authUrl"`
}

func googleOAuthConfig() *oauth2.Config {
	cfg := config.GetConfig()
	return &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.AppURL + "/api/auth/google",
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
	}
}

// POST /api/auth/google
// @Summary Start Google sign in
// @Description Return the Google consent screen URL for the frontend to redirect to
// @Tags auth
// @Produce json
// @Success 200 {object} handlers.AuthURLResponse "Consent screen URL"
// @Router /auth/google [post]
func (h *OAuthHandler) GoogleAuthURL(c *gin.Context) {
	authURL := googleOAuthConfig().AuthCodeURL("",
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"))

	c.JSON(http.StatusOK, AuthURLResponse{AuthURL: authURL})
}

// GET /api/auth/google
// @Summary Google OAuth callback
// @Description Exchange the authorization code, create or link the user and redirect to the dashboard. Failures redirect back to the sign-in page with an error code.
// @Tags auth
// @Param code query string false "Authorization code from Google"
// @Param error query string false "Error code from Google"
// @Success 307 "Redirect to the frontend"
// @Router /auth/google [get]
func (h *OAuthHandler) GoogleCallback(c *gin.Context) {
	if errParam := c.Query("error"); errParam != "" {
		h.redirectSignIn(c, errParam)
		return
	}

	code := c.Query("code")
	if code == "" {
		h.redirectSignIn(c, "missing_code")
		return
	}

	result, err := utils.CheckRateLimit(h.db, clientIP(c), "/api/auth/google")
	if err != nil {
		h.redirectSignIn(c, "internal_error")
		return
	}
	if !result.Allowed {
		h.redirectSignIn(c, "rate_limit_exceeded")
		return
	}

	conf := googleOAuthConfig()
	token, err := conf.Exchange(c.Request.Context(), code)
	if err != nil {
		h.redirectSignIn(c, "oauth_failed")
		return
	}

	googleUser, err := fetchGoogleUser(c, conf, token)
	if err != nil {
		h.redirectSignIn(c, "user_info_failed")
		return
	}
	if googleUser.Email == "" {
		h.redirectSignIn(c, "no_email")
		return
	}

	user, err := h.findOrCreateGoogleUser(googleUser)
	if err != nil {
		h.redirectSignIn(c, "internal_error")
		return
	}

	// The frontend obtains its access token through the refresh endpoint after
	// the redirect, so only the refresh cookie is issued here.
	refreshToken, err := utils.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		h.redirectSignIn(c, "internal_error")
		return
	}
	if err := utils.StoreRefreshToken(h.db, user.ID, refreshToken, time.Now().Add(utils.RefreshTokenTTL)); err != nil {
		h.redirectSignIn(c, "internal_error")
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookieName, refreshToken, int(utils.RefreshTokenTTL.Seconds()), "/", "",
		config.GetConfig().CookieSecure, true)

	c.Redirect(http.StatusTemporaryRedirect, config.GetConfig().FrontendURL+"/dashboard")
}

func fetchGoogleUser(c *gin.Context, conf *oauth2.Config, token *oauth2.Token) (*googleUserInfo, error) {
	client := conf.Client(c.Request.Context(), token)
	resp, err := client.Get(googleUserInfoURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo request returned status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	return &info, nil
}

// findOrCreateGoogleUser matches by email or by (provider, provider_id). An
// existing credentials account with the same email gets the Google identity
// linked onto it.
func (h *OAuthHandler) findOrCreateGoogleUser(info *googleUserInfo) (*models.User, error) {
	email := strings.ToLower(info.Email)

	var user models.User
	err := h.db.Where("email = ? OR (provider = ? AND provider_id = ?)", email, "google", info.ID).
		First(&user).Error
	if err == nil {
		if user.ProviderID == nil || user.Provider != "google" {
			updates := map[string]interface{}{
				"provider":       "google",
				"provider_id":    info.ID,
				"email_verified": true,
			}
			if user.Image == "" && info.Picture != "" {
				updates["image"] = info.Picture
			}
			if err := h.db.Model(&user).Updates(updates).Error; err != nil {
				return nil, err
			}
		}
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	providerID := info.ID
	user = models.User{
		Email:         email,
		Username:      generateUsername(email),
		Provider:      "google",
		ProviderID:    &providerID,
		EmailVerified: true,
		Image:         info.Picture,
	}
	if err := h.db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// generateUsername derives a unique username from the email local part with a
// random suffix, respecting the 30 character column limit
func generateUsername(email string) string {
	local := strings.ToLower(strings.Split(email, "@")[0])
	if len(local) > 21 {
		local = local[:21]
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return local + "_" + suffix
}

func (h *OAuthHandler) redirectSignIn(c *gin.Context, errCode string) {
	c.Redirect(http.StatusTemporaryRedirect,
		config.GetConfig().FrontendURL+"/auth/signin?error="+url.QueryEscape(errCode))
}
