package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/web"
)

// Dashboard renders the catalog as currently mirrored; the page then follows
// changes over the live channel.
func (h *Handler) Dashboard(c *gin.Context) {
	c.HTML(http.StatusOK, "dashboard.html", h.page(c, web.Page{
		Title:    "Dashboard",
		Live:     "dashboard",
		Products: h.Mirror.Products(),
	}))
}

func (h *Handler) CartPage(c *gin.Context) {
	p := web.Page{Title: "Your cart", Live: "cart"}
	cart, err := h.Carts.Load(c.Request.Context(), currentUser(c).UID)
	if err != nil {
		h.Log.Error().Err(err).Str("uid", currentUser(c).UID).Msg("load cart")
		p.Error = "Something went wrong."
	}
	p.Cart = cart
	c.HTML(http.StatusOK, "cart.html", h.page(c, p))
}
