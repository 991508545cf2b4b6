// Package handlers serves the storefront: server-rendered pages, the JSON
// API and the live channel.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"storefront/internal/authz"
	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/identity"
	"storefront/internal/media"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/notify"
	"storefront/internal/remote"
	"storefront/internal/search"
	"storefront/internal/session"
	"storefront/internal/token"
	"storefront/internal/web"
)

// Deps are the collaborators of the handlers. Tokens and Media may be nil.
type Deps struct {
	Log        zerolog.Logger
	Docs       remote.Documents
	Identities *identity.Service
	Tokens     *token.Issuer
	Policy     *authz.Policy
	Catalog    *catalog.Service
	// Mirror is the process-wide catalog subscription pages render from.
	Mirror    *catalog.Subscription
	Carts     *cart.Service
	Search    search.Searcher
	Media     media.Uploader
	Providers []string
}

type Handler struct {
	Deps
}

func New(d Deps) *Handler {
	return &Handler{Deps: d}
}

// ui collects the notices of one request and confirms from its headers.
func ui(c *gin.Context) (notify.UI, *notify.Recorder) {
	rec := &notify.Recorder{}
	return notify.UI{Notifier: rec, Confirmer: notify.RequestConfirmer(c.Request)}, rec
}

// page fills what every page shows: the signed-in user and pending flashes.
func (h *Handler) page(c *gin.Context, p web.Page) web.Page {
	if id, ok := middleware.Identity(c); ok {
		p.Identity = &id
		if caps, ok := middleware.Capabilities(c); ok {
			p.Caps = caps
		} else {
			p.Caps = h.Policy.Capabilities(c.Request.Context(), id)
		}
	}
	if cookie := middleware.Cookie(c); cookie != nil {
		p.Flashes = cookie.Flashes()
	}
	return p
}

func (h *Handler) flash(c *gin.Context, level notify.Level, msg string) {
	if cookie := middleware.Cookie(c); cookie != nil {
		if err := cookie.AddFlash(string(level), msg); err != nil {
			h.Log.Error().Err(err).Msg("add flash")
		}
	}
}

// currentUser is the identity confirmed by RequireSession. Routes without it
// are a wiring mistake.
func currentUser(c *gin.Context) models.Identity {
	id, _ := middleware.Identity(c)
	return id
}

// --- Sessions ---

// signIn makes id the signed-in identity of the browser session. Every tab
// watching the session is notified.
func (h *Handler) signIn(c *gin.Context, id models.Identity, p identity.Persistence) error {
	cookie := middleware.Cookie(c)
	if cookie == nil {
		return errors.New("handlers: no session cookie")
	}
	sid, err := cookie.SID()
	if err != nil {
		return err
	}
	if err := cookie.SetPersistence(p); err != nil {
		return err
	}
	if err := h.Identities.StartSession(c.Request.Context(), sid, id, p); err != nil {
		return err
	}
	if err := session.New(cookie).Save(id); err != nil {
		h.Log.Error().Err(err).Str("uid", id.UID).Msg("save session")
	}
	middleware.SetIdentity(c, id)
	return nil
}

func (h *Handler) signOut(c *gin.Context) error {
	cookie := middleware.Cookie(c)
	if cookie == nil {
		return nil
	}
	if sid := cookie.PeekSID(); sid != "" {
		if err := h.Identities.EndSession(c.Request.Context(), sid); err != nil {
			return err
		}
	}
	if err := session.New(cookie).Clear(); err != nil {
		h.Log.Error().Err(err).Msg("clear session")
	}
	return nil
}

// --- Errors ---

// identityStatus maps identity error codes to HTTP statuses.
func identityStatus(err error) int {
	switch identity.Code(err) {
	case identity.ErrInvalidEmail.Code, identity.ErrWeakPassword.Code:
		return http.StatusBadRequest
	case identity.ErrEmailInUse.Code:
		return http.StatusConflict
	case identity.ErrInvalidCredential.Code, identity.ErrInvalidToken.Code:
		return http.StatusUnauthorized
	case identity.ErrUserNotFound.Code:
		return http.StatusNotFound
	case identity.ErrProviderDisabled.Code, identity.ErrUnverifiedEmail.Code:
		return http.StatusForbidden
	case "auth/network-request-failed":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func identityError(c *gin.Context, err error) {
	c.JSON(identityStatus(err), gin.H{"error": err.Error(), "code": identity.Code(err)})
}

// mutationError answers a failed catalog or cart mutation.
func mutationError(c *gin.Context, err error, rec *notify.Recorder) {
	var invalid *catalog.ValidationError
	var declined *notify.DeclinedError
	switch {
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "fields": invalid.Fields, "notices": rec.Visible()})
	case errors.As(err, &declined):
		c.JSON(http.StatusPreconditionRequired, gin.H{"error": err.Error(), "prompt": declined.Prompt})
	case errors.Is(err, catalog.ErrProductNotFound), errors.Is(err, cart.ErrNotInCart):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "notices": rec.Visible()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "Something went wrong.", "notices": rec.Visible()})
	}
}
