package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/cart"
	"storefront/internal/models"
)

func cartBody(c models.Cart) gin.H {
	items := c.Items
	if items == nil {
		items = []models.CartItem{}
	}
	return gin.H{"items": items, "total": c.Total(), "count": c.Count()}
}

func (h *Handler) GetCart(c *gin.Context) {
	uid := currentUser(c).UID
	cart, err := h.Carts.Load(c.Request.Context(), uid)
	if err != nil {
		h.Log.Error().Err(err).Str("uid", uid).Msg("load cart")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Something went wrong."})
		return
	}
	c.JSON(http.StatusOK, cartBody(cart))
}

func (h *Handler) AddToCart(c *gin.Context) {
	var in struct {
		ProductID string `json:"productId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "productId is required"})
		return
	}
	u, rec := ui(c)
	if err := h.Carts.AddItem(c.Request.Context(), u, currentUser(c).UID, in.ProductID); err != nil {
		mutationError(c, err, rec)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notices": rec.Visible()})
}

// SetQuantity accepts the quantity as a number or as the raw input text.
// Anything below one, or not a number, is stored as one.
func (h *Handler) SetQuantity(c *gin.Context) {
	var in struct {
		Quantity any `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	var qty int
	switch v := in.Quantity.(type) {
	case float64:
		qty = cart.Clamp(int(v))
	case string:
		qty = cart.ParseQuantity(v)
	default:
		qty = cart.MinQuantity
	}

	u, rec := ui(c)
	if err := h.Carts.SetQuantity(c.Request.Context(), u, currentUser(c).UID, c.Param("id"), qty); err != nil {
		mutationError(c, err, rec)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quantity": qty, "notices": rec.Visible()})
}

func (h *Handler) RemoveFromCart(c *gin.Context) {
	u, rec := ui(c)
	if err := h.Carts.RemoveItem(c.Request.Context(), u, currentUser(c).UID, c.Param("id")); err != nil {
		mutationError(c, err, rec)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notices": rec.Visible()})
}

