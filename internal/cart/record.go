package cart

import (
	"strconv"
	"strings"

	"storefront/internal/models"
	"storefront/internal/remote"
)

const collection = "cart"

// MinQuantity is the smallest quantity a line can hold.
const MinQuantity = 1

// Clamp raises q to MinQuantity.
func Clamp(q int) int {
	if q < MinQuantity {
		return MinQuantity
	}
	return q
}

// ParseQuantity reads a quantity typed by the user from its leading integer,
// so "2.5" and "3abc" read as 2 and 3. Text without one counts as 1.
func ParseQuantity(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return MinQuantity
	}
	q, err := strconv.Atoi(s[:end])
	if err != nil {
		return MinQuantity
	}
	return Clamp(q)
}

func encodeItems(items []models.CartItem) (remote.Data, error) {
	if items == nil {
		items = []models.CartItem{}
	}
	return remote.Encode(models.Cart{Items: items})
}

// decode reads a cart document. Lines stored as a bare product id (no
// display fields) are kept with quantity 1.
func decode(doc *remote.Document) models.Cart {
	if doc == nil {
		return models.Cart{}
	}
	raw, _ := doc.Data["items"].([]any)
	items := make([]models.CartItem, 0, len(raw))
	for _, entry := range raw {
		var item models.CartItem
		switch v := entry.(type) {
		case string:
			item = models.CartItem{ID: v}
		case map[string]any:
			if err := remote.Decode(remote.Data(v), &item); err != nil || item.ID == "" {
				continue
			}
		default:
			continue
		}
		item.Quantity = Clamp(item.Quantity)
		items = append(items, item)
	}
	return models.Cart{Items: items}
}
