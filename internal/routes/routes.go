// Package routes maps paths to pages and API endpoints.
package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"

	"storefront/internal/authz"
	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/guard"
	"storefront/internal/handlers"
	"storefront/internal/logger"
	"storefront/internal/media"
	"storefront/internal/middleware"
	"storefront/internal/web"
)

type Options struct {
	Log       zerolog.Logger
	HTTP      config.HTTPConfig
	RateLimit config.RateLimitConfig
	Cookies   *sessions.CookieStore
	Auth      *middleware.Auth
	Policy    *authz.Policy
	Cache     cache.Cache
}

// New builds the router. The root path and every unknown path lead to the
// login page.
func New(h *handlers.Handler, o Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logger.Middleware(o.Log))
	if len(o.HTTP.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     o.HTTP.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Confirm"},
			ExposeHeaders:    []string{"Retry-After", "X-RateLimit-Remaining"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	r.MaxMultipartMemory = media.MaxImageSize + 1<<20
	r.SetHTMLTemplate(web.Templates())
	r.Use(middleware.Sessions(o.Cookies))

	toLogin := func(c *gin.Context) { c.Redirect(http.StatusFound, guard.LoginPath) }
	r.GET("/", toLogin)
	r.NoRoute(toLogin)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	loginLimit := middleware.LoginRateLimit(o.Cache, o.RateLimit, o.Log)
	signupLimit := middleware.SignupRateLimit(o.Cache, o.RateLimit, o.Log)
	requireSession := o.Auth.RequireSession()
	requireAdmin := middleware.RequireCapability(o.Policy)

	// --- Pages ---
	r.GET(guard.LoginPath, h.LoginPage)
	r.POST(guard.LoginPath, loginLimit, h.Login)
	r.GET("/signup", h.SignupPage)
	r.POST("/signup", signupLimit, h.Signup)
	r.POST("/logout", h.Logout)
	r.GET("/auth/:provider", h.BeginOAuth)
	r.GET("/auth/:provider/callback", h.OAuthCallback)

	pages := r.Group("/", requireSession)
	pages.GET("/dashboard", h.Dashboard)
	pages.GET("/cart", h.CartPage)

	// --- API ---
	api := r.Group("/api")
	api.POST("/auth/login", loginLimit, h.APILogin)
	api.POST("/auth/signup", signupLimit, h.APISignup)
	api.POST("/auth/firebase", loginLimit, h.APIFirebaseLogin)
	// The live channel runs its own auth guard.
	api.GET("/live", h.Live)

	authed := api.Group("", requireSession)
	authed.POST("/auth/logout", h.APILogout)
	authed.GET("/auth/me", h.Me)
	authed.PATCH("/auth/profile", h.UpdateProfile)
	authed.POST("/auth/token", h.IssueToken)

	authed.GET("/products", h.ListProducts)
	authed.GET("/products/search", h.SearchProducts)
	authed.GET("/products/:id", h.GetProduct)
	admin := authed.Group("", requireAdmin)
	catalog := admin.Group("/products", middleware.AuditCatalog(o.Log))
	catalog.POST("", h.CreateProduct)
	catalog.PUT("/:id", h.UpdateProduct)
	catalog.DELETE("/:id", h.DeleteProduct)
	admin.POST("/images", h.UploadImage)

	authed.GET("/cart", h.GetCart)
	authed.POST("/cart/items", h.AddToCart)
	authed.PUT("/cart/items/:id", h.SetQuantity)
	authed.DELETE("/cart/items/:id", h.RemoveFromCart)

	return r
}
