package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"authgate-backend/shared/config"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"

	// AccessTokenTTL is the lifetime of short-lived access tokens
	AccessTokenTTL = 15 * time.Minute
	// RefreshTokenTTL is the lifetime of long-lived refresh tokens
	RefreshTokenTTL = 7 * 24 * time.Hour
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrWrongTokenUse = errors.New("token type mismatch")
)

type Claims struct {
	UserID    uint   `json:"user_id"`
	Email     string `json:"email"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

func accessSecret() []byte {
	return []byte(config.GetConfig().JWTSecret)
}

// refreshSecret must differ from the access secret so a leaked access secret
// cannot forge refresh tokens (or vice versa).
func refreshSecret() []byte {
	return []byte(config.GetConfig().JWTRefreshSecret)
}

// GenerateAccessToken creates a short-lived access token
func GenerateAccessToken(userID uint, email string) (string, error) {
	return generateToken(userID, email, TokenTypeAccess, AccessTokenTTL, accessSecret())
}

// GenerateRefreshToken creates a long-lived refresh token
func GenerateRefreshToken(userID uint, email string) (string, error) {
	return generateToken(userID, email, TokenTypeRefresh, RefreshTokenTTL, refreshSecret())
}

func generateToken(userID uint, email, tokenType string, ttl time.Duration, secret []byte) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    userID,
		Email:     email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			// The jti keeps two tokens minted within the same second distinct;
			// refresh tokens are row-keyed by the full token string.
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateAccessToken verifies signature, expiry and that the token really is
// an access token. A structurally valid refresh token is rejected here.
func ValidateAccessToken(tokenString string) (*Claims, error) {
	return validateToken(tokenString, TokenTypeAccess, accessSecret())
}

// ValidateRefreshToken verifies signature, expiry and the refresh token type.
func ValidateRefreshToken(tokenString string) (*Claims, error) {
	return validateToken(tokenString, TokenTypeRefresh, refreshSecret())
}

func validateToken(tokenString, expectedType string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return secret, nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.TokenType != expectedType {
		return nil, ErrWrongTokenUse
	}

	return claims, nil
}

// DecodeToken parses a token without verifying the signature. For inspection
// only - never use the result for a trust decision.
func DecodeToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, _, err := jwt.NewParser().ParseUnverified(tokenString, claims)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
