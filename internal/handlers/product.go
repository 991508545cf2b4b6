package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storefront/internal/catalog"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/search"
)

const maxSearchLimit = 100

// productInput accepts the price as a JSON number or as text.
type productInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       any    `json:"price"`
	ImageURL    string `json:"imageUrl"`
}

func (in productInput) draft() models.ProductDraft {
	var price string
	switch v := in.Price.(type) {
	case string:
		price = v
	case float64:
		price = strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		price = strconv.FormatBool(v)
	}
	return models.ProductDraft{
		Title:       in.Title,
		Description: in.Description,
		Price:       price,
		ImageURL:    in.ImageURL,
	}
}

func (h *Handler) ListProducts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"products": h.Mirror.Products(),
		"loaded":   h.Mirror.Loaded(),
	})
}

func (h *Handler) GetProduct(c *gin.Context) {
	p, err := h.Catalog.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, catalog.ErrProductNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.Log.Error().Err(err).Str("product", c.Param("id")).Msg("get product")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Something went wrong."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": p, "draft": models.DraftOf(p)})
}

func (h *Handler) CreateProduct(c *gin.Context) {
	var in productInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	u, rec := ui(c)
	id, err := h.Catalog.Create(c.Request.Context(), u, in.draft())
	if err != nil {
		mutationError(c, err, rec)
		return
	}
	c.Set(middleware.CreatedProductKey, id)
	c.JSON(http.StatusCreated, gin.H{"id": id, "notices": rec.Visible()})
}

func (h *Handler) UpdateProduct(c *gin.Context) {
	var in productInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	u, rec := ui(c)
	if err := h.Catalog.Update(c.Request.Context(), u, c.Param("id"), in.draft()); err != nil {
		mutationError(c, err, rec)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notices": rec.Visible()})
}

// DeleteProduct needs a confirmed request; otherwise it answers 428 with the
// prompt to show.
func (h *Handler) DeleteProduct(c *gin.Context) {
	u, rec := ui(c)
	if err := h.Catalog.Delete(c.Request.Context(), u, c.Param("id")); err != nil {
		mutationError(c, err, rec)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notices": rec.Visible()})
}

func (h *Handler) SearchProducts(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(search.DefaultLimit)))
	if err != nil || limit <= 0 {
		limit = search.DefaultLimit
	}
	limit = min(limit, maxSearchLimit)

	products, err := h.Search.Search(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		h.Log.Error().Err(err).Str("q", c.Query("q")).Msg("product search")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Something went wrong."})
		return
	}
	if products == nil {
		products = []models.Product{}
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}
