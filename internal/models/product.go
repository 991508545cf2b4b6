package models

// Product is a catalog record. ID is assigned by the remote store on creation.
type Product struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"imageUrl"`
}

// ProductDraft is the raw product form buffer. Price stays textual until the
// draft has been validated.
type ProductDraft struct {
	Title       string `json:"title" form:"title"`
	Description string `json:"description" form:"description"`
	Price       string `json:"price" form:"price"`
	ImageURL    string `json:"imageUrl" form:"imageUrl"`
}

// DraftOf returns a form buffer pre-filled with p, as used by the edit dialog.
func DraftOf(p Product) ProductDraft {
	return ProductDraft{
		Title:       p.Title,
		Description: p.Description,
		Price:       formatPrice(p.Price),
		ImageURL:    p.ImageURL,
	}
}
