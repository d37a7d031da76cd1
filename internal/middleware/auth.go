package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"leasing-site-api/internal/auth"
	"leasing-site-api/internal/store"
)

type ctxKey string

const UserIDKey ctxKey = "uid"

const userIDGinKey = "uid"

// AdminChecker looks up the is_admin flag for a profile.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// RequireUser validates the bearer token and stores the caller in the context.
func RequireUser(tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := BearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		claims, err := tokens.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(userIDGinKey, claims.UserID())
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), UserIDKey, claims.UserID()))
		c.Next()
	}
}

// RequireAdmin must run after RequireUser. The flag is read from the database
// on every request so a revoked admin loses access before the token expires.
func RequireAdmin(admins AdminChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := UserID(c)
		if uid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		ok, err := admins.IsAdmin(c.Request.Context(), uid)
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
			return
		case err != nil:
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		case !ok:
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
			return
		}
		c.Next()
	}
}

func UserID(c *gin.Context) string { return c.GetString(userIDGinKey) }

func UserIDFrom(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}
