package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/identity"
	"storefront/internal/middleware"
	"storefront/internal/notify"
	"storefront/internal/session"
	"storefront/internal/web"
)

const (
	msgPasswordMismatch = "Passwords do not match!"
	msgAccountCreated   = "Account created successfully"
	msgWelcome          = "Welcome!"
)

type loginForm struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
	Remember bool   `form:"remember" json:"remember"`
}

func (f loginForm) persistence() identity.Persistence {
	if f.Remember {
		return identity.PersistLocal
	}
	return identity.PersistSession
}

type signupForm struct {
	Name            string `form:"name" json:"name"`
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirmPassword" json:"confirmPassword"`
}

// =============================================
// PAGES
// =============================================

func (h *Handler) LoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", h.page(c, web.Page{Title: "Sign in", Providers: h.Providers}))
}

func (h *Handler) Login(c *gin.Context) {
	var form loginForm
	_ = c.ShouldBind(&form)

	id, err := h.Identities.SignInWithPassword(c.Request.Context(), form.Email, form.Password)
	if err == nil {
		err = h.signIn(c, id, form.persistence())
	}
	if err != nil {
		h.Log.Info().Err(err).Str("code", identity.Code(err)).Msg("sign-in refused")
		c.HTML(identityStatus(err), "login.html", h.page(c, web.Page{
			Title:     "Sign in",
			Error:     err.Error(),
			Email:     form.Email,
			Providers: h.Providers,
		}))
		return
	}
	h.flash(c, notify.Success, msgWelcome)
	c.Redirect(http.StatusSeeOther, "/dashboard")
}

func (h *Handler) SignupPage(c *gin.Context) {
	c.HTML(http.StatusOK, "signup.html", h.page(c, web.Page{Title: "Create an account"}))
}

// Signup creates the account, signs it in and sends the user to the login
// page with a success notice.
func (h *Handler) Signup(c *gin.Context) {
	var form signupForm
	_ = c.ShouldBind(&form)

	fail := func(status int, msg string) {
		c.HTML(status, "signup.html", h.page(c, web.Page{
			Title: "Create an account",
			Error: msg,
			Name:  form.Name,
			Email: form.Email,
		}))
	}
	if form.Password != form.ConfirmPassword {
		fail(http.StatusBadRequest, msgPasswordMismatch)
		return
	}
	id, err := h.Identities.CreateAccount(c.Request.Context(), form.Email, form.Password, form.Name)
	if err == nil {
		err = h.signIn(c, id, identity.PersistLocal)
	}
	if err != nil {
		fail(identityStatus(err), err.Error())
		return
	}
	h.flash(c, notify.Success, msgAccountCreated)
	c.Redirect(http.StatusSeeOther, "/login")
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.signOut(c); err != nil {
		h.Log.Error().Err(err).Msg("sign-out failed")
		h.flash(c, notify.Error, err.Error())
	}
	c.Redirect(http.StatusSeeOther, "/login")
}

// =============================================
// API
// =============================================

func (h *Handler) APILogin(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	id, err := h.Identities.SignInWithPassword(c.Request.Context(), form.Email, form.Password)
	if err == nil {
		err = h.signIn(c, id, form.persistence())
	}
	if err != nil {
		identityError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": id})
}

func (h *Handler) APISignup(c *gin.Context) {
	var form signupForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if form.Password != form.ConfirmPassword {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgPasswordMismatch})
		return
	}
	id, err := h.Identities.CreateAccount(c.Request.Context(), form.Email, form.Password, form.Name)
	if err == nil {
		err = h.signIn(c, id, identity.PersistLocal)
	}
	if err != nil {
		identityError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": id})
}

// APIFirebaseLogin signs in with an ID token from a client-side Firebase
// sign-in.
func (h *Handler) APIFirebaseLogin(c *gin.Context) {
	var in struct {
		IDToken  string `json:"idToken" binding:"required"`
		Remember bool   `json:"remember"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "idToken is required"})
		return
	}
	id, err := h.Identities.SignInWithIDToken(c.Request.Context(), in.IDToken)
	if err == nil {
		err = h.signIn(c, id, loginForm{Remember: in.Remember}.persistence())
	}
	if err != nil {
		identityError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": id})
}

// APILogout ends the browser session and revokes the bearer token the call
// was made with, if any.
func (h *Handler) APILogout(c *gin.Context) {
	if claims, ok := middleware.Claims(c); ok && h.Tokens != nil {
		if err := h.Tokens.Revoke(c.Request.Context(), claims); err != nil {
			h.Log.Error().Err(err).Msg("revoke token")
			c.JSON(http.StatusBadGateway, gin.H{"error": "Something went wrong."})
			return
		}
	}
	if err := h.signOut(c); err != nil {
		identityError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Me(c *gin.Context) {
	id := currentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"user":         id,
		"capabilities": h.Policy.Capabilities(c.Request.Context(), id),
	})
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var in struct {
		DisplayName string `json:"displayName" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "displayName is required"})
		return
	}
	id, err := h.Identities.UpdateProfile(c.Request.Context(), currentUser(c).UID, in.DisplayName)
	if err != nil {
		identityError(c, err)
		return
	}
	// Republish the session so open tabs pick up the new name.
	if cookie := middleware.Cookie(c); cookie != nil && cookie.PeekSID() != "" {
		if err := h.Identities.StartSession(c.Request.Context(), cookie.PeekSID(), id, cookie.Persistence()); err != nil {
			h.Log.Error().Err(err).Str("uid", id.UID).Msg("republish session")
		}
		if err := session.New(cookie).Save(id); err != nil {
			h.Log.Error().Err(err).Str("uid", id.UID).Msg("save session")
		}
	}
	c.JSON(http.StatusOK, gin.H{"user": id})
}

// IssueToken hands the signed-in user a bearer token for API clients.
func (h *Handler) IssueToken(c *gin.Context) {
	if h.Tokens == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "bearer tokens are disabled"})
		return
	}
	raw, claims, err := h.Tokens.Issue(currentUser(c))
	if err != nil {
		h.Log.Error().Err(err).Msg("issue token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong."})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"token":     raw,
		"tokenType": "Bearer",
		"expiresAt": claims.ExpiresAt.Time,
	})
}
