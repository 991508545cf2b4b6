package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/authz"
)

// RequireCapability resolves the capabilities of the confirmed identity and
// refuses callers that may not manage the catalog. It must run after
// RequireSession.
func RequireCapability(policy *authz.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := Identity(c)
		if !ok {
			deny(c)
			return
		}
		caps := policy.Capabilities(c.Request.Context(), id)
		c.Set(capabilitiesKey, caps)
		if !caps.CanManageCatalog {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "catalog management is reserved to administrators"})
			return
		}
		c.Next()
	}
}
