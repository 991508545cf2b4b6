// Package media stores product images in a MinIO bucket.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"

	"storefront/internal/config"
)

const MaxImageSize = 5 << 20

var (
	ErrNotImage = errors.New("only image files can be uploaded")
	ErrTooLarge = fmt.Errorf("images are limited to %d MB", MaxImageSize>>20)
)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type Uploader interface {
	Upload(ctx context.Context, contentType string, r io.Reader, size int64) (string, error)
}

type MinIO struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

// NewMinIO serves uploaded objects from cfg.PublicURL when set, from the
// MinIO endpoint otherwise.
func NewMinIO(client *minio.Client, cfg config.MinIOConfig) *MinIO {
	base := cfg.PublicURL
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = scheme + "://" + cfg.Endpoint
	}
	return &MinIO{client: client, bucket: cfg.Bucket, baseURL: strings.TrimRight(base, "/")}
}

// Check validates an upload before any byte is sent.
func Check(contentType string, size int64) (string, error) {
	ext, ok := extensions[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return "", ErrNotImage
	}
	if size <= 0 || size > MaxImageSize {
		return "", ErrTooLarge
	}
	return ext, nil
}

func objectName(ext string) string {
	return path.Join("products", uuid.NewString()+ext)
}

// Upload stores the image and returns the URL to put in a product's imageUrl.
func (m *MinIO) Upload(ctx context.Context, contentType string, r io.Reader, size int64) (string, error) {
	ext, err := Check(contentType, size)
	if err != nil {
		return "", err
	}
	name := objectName(ext)
	_, err = m.client.PutObject(ctx, m.bucket, name, r, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=31536000, immutable",
	})
	if err != nil {
		return "", fmt.Errorf("media: put %s: %w", name, err)
	}
	return m.url(name), nil
}

func (m *MinIO) url(object string) string {
	return m.baseURL + "/" + m.bucket + "/" + object
}
