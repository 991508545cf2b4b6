package cart

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"storefront/internal/models"
	"storefront/internal/notify"
	"storefront/internal/remote"
)

var ErrNotInCart = errors.New("product is not in the cart")

var removePrompt = notify.Prompt{
	Title:       "Remove item?",
	Text:        "This will delete the product from your cart.",
	ConfirmText: "Yes, remove it",
}

// ProductSource looks products up for the display fields copied into a line.
type ProductSource interface {
	Get(ctx context.Context, id string) (models.Product, error)
}

// Service mutates carts. Each operation reads the cart fresh before writing
// and nothing else; open subscriptions see the result when the store pushes.
type Service struct {
	docs     remote.Documents
	products ProductSource
	log      zerolog.Logger
}

func NewService(docs remote.Documents, products ProductSource, log zerolog.Logger) *Service {
	return &Service{docs: docs, products: products, log: log}
}

// Load reads the cart once, for rendering.
func (s *Service) Load(ctx context.Context, uid string) (models.Cart, error) {
	c, _, err := s.read(ctx, uid)
	return c, err
}

func (s *Service) read(ctx context.Context, uid string) (models.Cart, bool, error) {
	doc, err := s.docs.Get(ctx, collection, uid)
	if errors.Is(err, remote.ErrNotFound) {
		return models.Cart{}, false, nil
	}
	if err != nil {
		return models.Cart{}, false, err
	}
	return decode(doc), true, nil
}

// AddItem puts productID in the cart with quantity 1. A product already in the
// cart is left as is; adding never increments.
func (s *Service) AddItem(ctx context.Context, ui notify.UI, uid, productID string) error {
	p, err := s.products.Get(ctx, productID)
	if err != nil {
		s.failed(ui, err, "add", uid, productID)
		return err
	}
	c, exists, err := s.read(ctx, uid)
	if err != nil {
		s.failed(ui, err, "add", uid, productID)
		return err
	}
	if c.Find(productID) < 0 {
		c.Items = append(c.Items, models.CartItem{
			ID:          p.ID,
			Title:       p.Title,
			Description: p.Description,
			Price:       p.Price,
			ImageURL:    p.ImageURL,
			Quantity:    MinQuantity,
		})
		if err := s.write(ctx, uid, c.Items, exists); err != nil {
			s.failed(ui, err, "add", uid, productID)
			return err
		}
	}
	ui.Notify(notify.Notice{Level: notify.Success, Title: "Added!", Text: "Product added to cart."})
	return nil
}

// SetQuantity stores Clamp(qty) for the line of productID.
func (s *Service) SetQuantity(ctx context.Context, ui notify.UI, uid, productID string, qty int) error {
	c, exists, err := s.read(ctx, uid)
	if err != nil {
		s.failed(ui, err, "quantity", uid, productID)
		return err
	}
	i := c.Find(productID)
	if !exists || i < 0 {
		return ErrNotInCart
	}
	c.Items[i].Quantity = Clamp(qty)
	if err := s.write(ctx, uid, c.Items, true); err != nil {
		s.failed(ui, err, "quantity", uid, productID)
		return err
	}
	return nil
}

// RemoveItem asks for confirmation, then drops the line of productID.
func (s *Service) RemoveItem(ctx context.Context, ui notify.UI, uid, productID string) error {
	if err := notify.Require(ctx, ui.Confirmer, removePrompt); err != nil {
		return err
	}
	c, exists, err := s.read(ctx, uid)
	if err != nil {
		s.failed(ui, err, "remove", uid, productID)
		return err
	}
	if !exists {
		return nil
	}
	kept := make([]models.CartItem, 0, len(c.Items))
	for _, item := range c.Items {
		if item.ID != productID {
			kept = append(kept, item)
		}
	}
	if err := s.write(ctx, uid, kept, true); err != nil {
		s.failed(ui, err, "remove", uid, productID)
		return err
	}
	ui.Notify(notify.Notice{Level: notify.Success, Title: "Removed!", Text: "Item has been removed."})
	return nil
}

// write merge-writes the items field, creating the cart when it is missing.
func (s *Service) write(ctx context.Context, uid string, items []models.CartItem, exists bool) error {
	data, err := encodeItems(items)
	if err != nil {
		return err
	}
	if !exists {
		return s.docs.Set(ctx, collection, uid, data)
	}
	err = s.docs.Update(ctx, collection, uid, data)
	if errors.Is(err, remote.ErrNotFound) {
		// Deleted since the read.
		return s.docs.Set(ctx, collection, uid, data)
	}
	return err
}

func (s *Service) failed(ui notify.UI, err error, op, uid, productID string) {
	s.log.Error().Err(err).Str("op", op).Str("uid", uid).Str("product", productID).Msg("cart write failed")
	ui.Notify(notify.Notice{Level: notify.Error, Title: "Error!", Text: "Something went wrong."})
}
