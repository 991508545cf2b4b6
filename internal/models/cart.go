package models

// CartItem is one line of a user's cart. Besides the product reference and the
// quantity it keeps a copy of the product's display fields taken when the item
// was added; Price is that snapshot and is never re-validated.
type CartItem struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"imageUrl"`
	Quantity    int     `json:"quantity"`
}

// Cart is the per-user aggregate document: every line item of one user.
type Cart struct {
	Items []CartItem `json:"items"`
}

// Total is derived from the items on every call, it is never stored.
func (c Cart) Total() float64 {
	total := 0.0
	for _, item := range c.Items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

func (c Cart) Count() int {
	return len(c.Items)
}

// Find returns the index of the line for productID, or -1.
func (c Cart) Find(productID string) int {
	for i := range c.Items {
		if c.Items[i].ID == productID {
			return i
		}
	}
	return -1
}
