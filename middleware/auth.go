package middleware

import (
	"strings"

	apperrors "marketplace-service/errors"
	"marketplace-service/models"

	"github.com/gin-gonic/gin"
)

const (
	// TokenCookie holds the session JWT.
	TokenCookie = "token"
	actorKey    = "actor"

	invalidTokenKey = "invalid_token"
)

// TokenValidator resolves a session token to the caller it identifies.
type TokenValidator interface {
	Validate(token string) (models.Actor, error)
}

// Authenticate identifies the caller when a valid token is present. Requests
// without one, or with a stale one, continue anonymously so that public
// routes such as login and logout keep working; RequireAuth and AdminOnly
// reject them.
func Authenticate(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := TokenFromRequest(c, false)
		if raw == "" {
			c.Next()
			return
		}
		actor, err := tokens.Validate(raw)
		if err != nil {
			c.Set(invalidTokenKey, true)
			c.Next()
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// RequireAuth rejects anonymous callers.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetActor(c).IsAnonymous() {
			c.Error(unauthenticated(c))
			c.Abort()
			return
		}
		c.Next()
	}
}

func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := GetActor(c)
		if actor.IsAnonymous() {
			c.Error(unauthenticated(c))
			c.Abort()
			return
		}
		if !actor.IsAdmin() {
			c.Error(apperrors.Forbidden("Admin role required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func unauthenticated(c *gin.Context) error {
	if c.GetBool(invalidTokenKey) {
		return apperrors.Unauthorized("Invalid or expired token")
	}
	return apperrors.Unauthorized("Authentication required")
}

// GetActor returns the authenticated caller, or the anonymous actor.
func GetActor(c *gin.Context) models.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(models.Actor); ok {
			return actor
		}
	}
	return models.Actor{}
}

// TokenFromRequest reads the session token from the token cookie or a Bearer
// Authorization header, and from the token query parameter when allowQuery is
// set.
func TokenFromRequest(c *gin.Context, allowQuery bool) string {
	if v, err := c.Cookie(TokenCookie); err == nil && v != "" {
		return v
	}
	if h := c.GetHeader("Authorization"); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
			return strings.TrimSpace(h[7:])
		}
	}
	if allowQuery {
		return c.Query("token")
	}
	return ""
}
