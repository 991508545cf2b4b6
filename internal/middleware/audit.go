package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AuditCatalog writes one audit line per catalog mutation: who, what and how
// it ended.
func AuditCatalog(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		ev := log.Info()
		if c.Writer.Status() >= 400 {
			ev = log.Warn()
		}
		if id, ok := Identity(c); ok {
			ev = ev.Str("uid", id.UID).Str("email", id.Email)
		}
		if pid := c.Param("id"); pid != "" {
			ev = ev.Str("product", pid)
		} else if created := c.GetString(CreatedProductKey); created != "" {
			ev = ev.Str("product", created)
		}
		ev.Str("method", c.Request.Method).
			Int("status", c.Writer.Status()).
			Msg("catalog audit")
	}
}

// CreatedProductKey is where the create handler leaves the new product id.
const CreatedProductKey = "created_product"
