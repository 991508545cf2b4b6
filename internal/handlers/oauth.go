package handlers

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/markbates/goth/gothic"

	"storefront/internal/identity"
	"storefront/internal/notify"
)

// withProvider exposes the :provider path segment where gothic looks for it.
func (h *Handler) withProvider(c *gin.Context) bool {
	provider := c.Param("provider")
	if !slices.Contains(h.Providers, provider) {
		h.flash(c, notify.Error, identity.ErrProviderDisabled.Message)
		c.Redirect(http.StatusSeeOther, "/login")
		return false
	}
	q := c.Request.URL.Query()
	q.Set("provider", provider)
	c.Request.URL.RawQuery = q.Encode()
	return true
}

func (h *Handler) BeginOAuth(c *gin.Context) {
	if !h.withProvider(c) {
		return
	}
	gothic.BeginAuthHandler(c.Writer, c.Request)
}

// OAuthCallback signs in the account owning the provider's e-mail. Provider
// sign-ins always persist until an explicit sign-out.
func (h *Handler) OAuthCallback(c *gin.Context) {
	if !h.withProvider(c) {
		return
	}
	user, err := gothic.CompleteUserAuth(c.Writer, c.Request)
	if err != nil {
		h.Log.Warn().Err(err).Str("provider", c.Param("provider")).Msg("oauth callback failed")
		h.flash(c, notify.Error, "Sign-in with "+c.Param("provider")+" failed.")
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	id, err := h.Identities.SignInWithProvider(c.Request.Context(), identity.FederatedUser{
		Provider:   user.Provider,
		ProviderID: user.UserID,
		Email:      user.Email,
		Name:       user.Name,
	})
	if err == nil {
		err = h.signIn(c, id, identity.PersistLocal)
	}
	if err != nil {
		h.flash(c, notify.Error, err.Error())
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}
	h.flash(c, notify.Success, "Signed in with "+user.Provider)
	c.Redirect(http.StatusSeeOther, "/dashboard")
}
