package authUtils

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
)

const (
	// CookieName carries the token for browser clients.
	CookieName = "auth_token"
	TokenTTL   = 72 * time.Hour
)

var ErrInvalidToken = errors.New("invalid authorization token")

// GenerateToken signs a JWT for a given user ID
func GenerateToken(secret, userID string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("JWT secret is not configured")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(TokenTTL).Unix(),
	})

	return token.SignedString([]byte(secret))
}

// GenerateAndSetToken signs a token and also sets it as an HTTP-only cookie.
func GenerateAndSetToken(c *gin.Context, secret, userID string, secure bool) (string, error) {
	token, err := GenerateToken(secret, userID)
	if err != nil {
		return "", err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, token, int(TokenTTL.Seconds()), "/", "", secure, true)
	return token, nil
}

// ClearToken expires the auth cookie.
func ClearToken(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, "", -1, "/", "", secure, true)
}

// ParseToken validates tokenString and returns the user ID it was issued for.
func ParseToken(secret, tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", ErrInvalidToken
	}
	return userID, nil
}
