// Package middleware holds the gin middleware in front of pages and the API:
// session loading, authentication, capability checks, rate limiting and
// auditing.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"

	"storefront/internal/models"
	"storefront/internal/session"
)

const (
	cookieKey       = "session_cookie"
	identityKey     = "identity"
	capabilitiesKey = "capabilities"
)

// Sessions opens the session cookie of every request.
func Sessions(store *sessions.CookieStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(cookieKey, session.OpenCookie(store, c.Writer, c.Request))
		c.Next()
	}
}

// Cookie returns the session cookie opened by Sessions.
func Cookie(c *gin.Context) *session.Cookie {
	v, _ := c.Get(cookieKey)
	cookie, _ := v.(*session.Cookie)
	return cookie
}

// Identity returns the identity confirmed by RequireSession.
func Identity(c *gin.Context) (models.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return models.Identity{}, false
	}
	id, ok := v.(models.Identity)
	return id, ok
}

// SetIdentity is used by handlers that sign a user in mid-request.
func SetIdentity(c *gin.Context, id models.Identity) {
	c.Set(identityKey, id)
}

// Capabilities returns what RequireCapability resolved, if it ran.
func Capabilities(c *gin.Context) (models.Capabilities, bool) {
	v, ok := c.Get(capabilitiesKey)
	if !ok {
		return models.Capabilities{}, false
	}
	caps, ok := v.(models.Capabilities)
	return caps, ok
}

func isAPI(c *gin.Context) bool {
	return strings.HasPrefix(c.Request.URL.Path, "/api/")
}
