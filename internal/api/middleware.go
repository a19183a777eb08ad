package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// Identity is the caller identity the auth collaborator supplies with every
// authenticated request. The core trusts it as given.
type Identity struct {
	UserID  int64
	IsAdmin bool
}

// AuthContextMiddleware reads the identity headers set by the auth
// collaborator into the request context
func AuthContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64)
		if err != nil || userID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid X-User-ID"})
			return
		}

		c.Set(identityKey, Identity{
			UserID:  userID,
			IsAdmin: c.GetHeader("X-User-Role") == "admin",
		})
		c.Next()
	}
}

// RequireAdmin rejects requests whose identity lacks the admin role
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetIdentity(c).IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin privilege required"})
			return
		}
		c.Next()
	}
}

// GetIdentity returns the identity stored by AuthContextMiddleware
func GetIdentity(c *gin.Context) Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(Identity); ok {
			return id
		}
	}
	return Identity{}
}
