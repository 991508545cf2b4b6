package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"storefront/internal/guard"
	"storefront/internal/identity"
	"storefront/internal/session"
	"storefront/internal/token"
)

// Auth confirms who is calling, either from the browser session or from a
// bearer token.
type Auth struct {
	Identities *identity.Service
	Tokens     *token.Issuer // nil disables bearer tokens
	Log        zerolog.Logger
}

// RequireSession lets the request through only with a confirmed identity.
// Pages are redirected to the login page in place (303); API calls get 401.
func (a *Auth) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, ok := BearerToken(c.Request); ok {
			a.bearer(c, raw)
			return
		}

		cookie := Cookie(c)
		if cookie == nil {
			deny(c)
			return
		}
		store := session.New(cookie)
		cached, hasCached := store.Load()

		id, ok, err := a.Identities.Current(c.Request.Context(), cookie.PeekSID())
		if err != nil {
			// Unconfirmable sessions are treated as signed out.
			a.Log.Warn().Err(err).Msg("session confirmation failed")
		}
		if !ok {
			if hasCached {
				if err := store.Clear(); err != nil {
					a.Log.Error().Err(err).Msg("clear stale session")
				}
			}
			deny(c)
			return
		}
		if !hasCached || cached != id {
			if err := store.Save(id); err != nil {
				a.Log.Error().Err(err).Str("uid", id.UID).Msg("save session")
			}
		}
		SetIdentity(c, id)
		c.Next()
	}
}

func (a *Auth) bearer(c *gin.Context, raw string) {
	if a.Tokens == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "bearer tokens are not accepted"})
		return
	}
	claims, err := a.Tokens.Verify(c.Request.Context(), raw)
	if err != nil {
		a.Log.Debug().Err(err).Msg("bearer token rejected")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	c.Set(claimsKey, claims)
	SetIdentity(c, claims.Identity())
	c.Next()
}

const claimsKey = "token_claims"

// Claims returns the verified bearer token of the request, if any.
func Claims(c *gin.Context) (*token.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*token.Claims)
	return claims, ok
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, raw, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

func deny(c *gin.Context) {
	if isAPI(c) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
		return
	}
	c.Redirect(http.StatusSeeOther, guard.LoginPath)
	c.Abort()
}
