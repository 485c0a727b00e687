// README: Firebase auth middleware and caller accessors.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"campusride/internal/infra"
	"campusride/internal/modules/identity"
	"campusride/internal/modules/ride"
	"campusride/internal/types"
)

const (
	ctxUID  = "caller_uid"
	ctxRole = "caller_role"
	ctxUser = "caller_user"
)

// Auth verifies the Firebase ID token from the Authorization header. Browsers
// cannot set headers on websocket upgrades, so GET requests may carry the
// token in the "token" query parameter instead.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token, err := verifier.VerifyIDToken(c.Request.Context(), raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(ctxUID, token.UID)
		if role, ok := token.Claims["role"].(string); ok {
			c.Set(ctxRole, role)
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			return ""
		}
		return strings.TrimSpace(token)
	}
	if c.Request.Method == http.MethodGet {
		return c.Query("token")
	}
	return ""
}

// CallerUID returns the verified uid, or "" outside Auth.
func CallerUID(c *gin.Context) string {
	return c.GetString(ctxUID)
}

// CallerRole returns the role claim on the token, if any. The profile role
// set by Profile is authoritative.
func CallerRole(c *gin.Context) string {
	if u, ok := CallerUser(c); ok {
		return string(u.Role)
	}
	return c.GetString(ctxRole)
}

// ProfileLoader reads a user's stored profile.
type ProfileLoader interface {
	Profile(ctx context.Context, uid types.ID) (identity.User, error)
}

// Profile loads the caller's profile. Tokens without a profile are refused.
func Profile(loader ProfileLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := CallerUID(c)
		if uid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		user, err := loader.Profile(c.Request.Context(), types.ID(uid))
		if errors.Is(err, identity.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "profile not found"})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.Set(ctxUser, user)
		c.Next()
	}
}

func CallerUser(c *gin.Context) (identity.User, bool) {
	v, ok := c.Get(ctxUser)
	if !ok {
		return identity.User{}, false
	}
	u, ok := v.(identity.User)
	return u, ok
}

// CallerActor is the caller as a ride participant.
func CallerActor(c *gin.Context) ride.Actor {
	u, _ := CallerUser(c)
	return ride.Actor{ID: u.UID, Name: u.Name, Role: u.Role}
}

// RequireRole refuses callers whose profile role is not listed.
func RequireRole(roles ...types.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CallerUser(c)
		if ok {
			for _, r := range roles {
				if u.Role == r {
					c.Next()
					return
				}
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}
