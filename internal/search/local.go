package search

import (
	"context"
	"strings"

	"storefront/internal/models"
)

// Local searches an in-memory product list by substring. It stands in for
// the index when Elasticsearch is not configured.
type Local struct {
	products func() []models.Product
}

func NewLocal(products func() []models.Product) *Local {
	return &Local{products: products}
}

func (l *Local) Search(_ context.Context, query string, limit int) ([]models.Product, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	terms := strings.Fields(strings.ToLower(query))
	var out []models.Product
	for _, p := range l.products() {
		text := strings.ToLower(p.Title + " " + p.Description)
		match := true
		for _, t := range terms {
			if !strings.Contains(text, t) {
				match = false
				break
			}
		}
		if match {
			out = append(out, p)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}
