package catalog

import (
	"strconv"

	"storefront/internal/models"
	"storefront/internal/remote"
)

const collection = "products"

func encode(p models.Product) remote.Data {
	return remote.Data{
		"title":       p.Title,
		"description": p.Description,
		"price":       p.Price,
		"imageUrl":    p.ImageURL,
	}
}

// decode is lenient: older records kept the price as the raw form text.
func decode(doc remote.Document) models.Product {
	p := models.Product{ID: doc.ID}
	p.Title, _ = doc.Data["title"].(string)
	p.Description, _ = doc.Data["description"].(string)
	p.ImageURL, _ = doc.Data["imageUrl"].(string)
	switch v := doc.Data["price"].(type) {
	case float64:
		p.Price = v
	case int64:
		p.Price = float64(v)
	case int:
		p.Price = float64(v)
	case string:
		p.Price, _ = strconv.ParseFloat(v, 64)
	}
	return p
}

func decodeAll(docs []remote.Document) []models.Product {
	out := make([]models.Product, 0, len(docs))
	for _, d := range docs {
		out = append(out, decode(d))
	}
	return out
}
