package middlewares

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"civicpulse-be/models"
	"civicpulse-be/services"
	authUtils "civicpulse-be/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Context keys set by the auth middleware.
const (
	UserIDKey = "user_id"
	UserKey   = "user"
)

// UserFinder loads the account a token was issued for.
type UserFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

type Auth struct {
	secret string
	users  UserFinder
}

func NewAuth(secret string, users UserFinder) *Auth {
	return &Auth{secret: secret, users: users}
}

// Required rejects requests without a valid token for an existing user.
func (a *Auth) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "You are not logged in! Please log in to get access."})
			return
		}

		user, err := a.authenticate(c.Request.Context(), tokenString)
		if err != nil {
			if errors.Is(err, authUtils.ErrInvalidToken) || errors.Is(err, services.ErrNotFound) {
				log.Printf("Token validation failed: %v", err)
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization token"})
				return
			}
			log.Printf("auth lookup failed: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
			return
		}

		setUser(c, user)
		c.Next()
	}
}

// Optional attaches the user when a valid token is present and otherwise
// lets the request through as a public visitor.
func (a *Auth) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString := extractToken(c); tokenString != "" {
			user, err := a.authenticate(c.Request.Context(), tokenString)
			switch {
			case err == nil:
				setUser(c, user)
			case errors.Is(err, authUtils.ErrInvalidToken), errors.Is(err, services.ErrNotFound):
			default:
				log.Printf("auth lookup failed, continuing as public visitor: %v", err)
			}
		}
		c.Next()
	}
}

// RequireRole must run after Required.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "You are not logged in! Please log in to get access."})
			return
		}
		for _, role := range roles {
			if user.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You do not have permission to perform this action"})
	}
}

// CurrentUser returns the authenticated user, if any.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(UserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}

// CurrentViewer returns nil for public visitors.
func CurrentViewer(c *gin.Context) *services.Viewer {
	user, ok := CurrentUser(c)
	if !ok {
		return nil
	}
	return &services.Viewer{ID: user.ID, Role: user.Role}
}

func (a *Auth) authenticate(ctx context.Context, tokenString string) (*models.User, error) {
	userID, err := authUtils.ParseToken(a.secret, tokenString)
	if err != nil {
		return nil, err
	}
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, authUtils.ErrInvalidToken
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return a.users.FindByID(ctx, id)
}

// extractToken reads "Bearer <token>" from the Authorization header, falling
// back to the auth cookie.
func extractToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := c.Cookie(authUtils.CookieName); err == nil {
		return cookie
	}
	return ""
}

func setUser(c *gin.Context, user *models.User) {
	c.Set(UserIDKey, user.ID.Hex())
	c.Set(UserKey, user)
}
