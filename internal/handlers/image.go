package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/media"
)

// UploadImage stores a product image and returns the URL a draft's imageUrl
// should carry.
func (h *Handler) UploadImage(c *gin.Context) {
	if h.Media == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image storage is not configured"})
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "the file field is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}
	defer f.Close()

	url, err := h.Media.Upload(c.Request.Context(), fh.Header.Get("Content-Type"), f, fh.Size)
	switch {
	case errors.Is(err, media.ErrNotImage):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
	case errors.Is(err, media.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	case err != nil:
		h.Log.Error().Err(err).Str("file", fh.Filename).Msg("image upload")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Something went wrong."})
	default:
		h.Log.Info().Str("url", url).Str("uid", currentUser(c).UID).Msg("image uploaded")
		c.JSON(http.StatusCreated, gin.H{"imageUrl": url})
	}
}
