package catalog

import (
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"storefront/internal/models"
)

var ErrInvalidDraft = errors.New("invalid product")

// ValidationError lists the offending draft fields and why.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, e.Fields[k])
	}
	return strings.Join(parts, " ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidDraft }

var validate = validator.New()

// Parse checks a product draft and returns the product it describes (without
// an id). The checks are advisory: the remote store enforces no schema.
func Parse(d models.ProductDraft) (models.Product, error) {
	p := models.Product{
		Title:       strings.TrimSpace(d.Title),
		Description: strings.TrimSpace(d.Description),
		ImageURL:    strings.TrimSpace(d.ImageURL),
	}
	fields := map[string]string{}
	if p.Title == "" {
		fields["title"] = "Title is required."
	}
	if p.Description == "" {
		fields["description"] = "Description is required."
	}
	price, err := parsePrice(d.Price)
	if err != nil {
		fields["price"] = err.Error()
	}
	p.Price = price
	if validate.Var(p.ImageURL, "required,http_url") != nil {
		fields["imageUrl"] = "Image URL must be an absolute http(s) URL."
	}
	if len(fields) > 0 {
		return models.Product{}, &ValidationError{Fields: fields}
	}
	return p, nil
}

func parsePrice(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("Price is required.")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("Price must be a number.")
	}
	if v < 0 {
		return 0, errors.New("Price cannot be negative.")
	}
	return v, nil
}
