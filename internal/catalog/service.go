package catalog

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"storefront/internal/models"
	"storefront/internal/notify"
	"storefront/internal/remote"
)

var ErrProductNotFound = errors.New("product not found")

var deletePrompt = notify.Prompt{
	Title:       "Are you sure?",
	Text:        "This will permanently delete the product.",
	ConfirmText: "Yes, delete it!",
}

// Service writes to the product collection. It never touches a Subscription:
// open subscriptions see the change when the store pushes it.
type Service struct {
	docs remote.Documents
	log  zerolog.Logger
}

func NewService(docs remote.Documents, log zerolog.Logger) *Service {
	return &Service{docs: docs, log: log}
}

func (s *Service) Get(ctx context.Context, id string) (models.Product, error) {
	doc, err := s.docs.Get(ctx, collection, id)
	if errors.Is(err, remote.ErrNotFound) {
		return models.Product{}, ErrProductNotFound
	}
	if err != nil {
		return models.Product{}, err
	}
	return decode(*doc), nil
}

func (s *Service) Create(ctx context.Context, ui notify.UI, draft models.ProductDraft) (string, error) {
	p, err := s.check(ui, draft)
	if err != nil {
		return "", err
	}
	defer notify.StartLoading(ui, "Saving product…")()
	id, err := s.docs.Add(ctx, collection, encode(p))
	if err != nil {
		s.failed(ui, err, "create", "")
		return "", err
	}
	s.log.Info().Str("product", id).Msg("product created")
	ui.Notify(notify.Notice{Level: notify.Success, Title: "Added!", Text: "New product added successfully."})
	return id, nil
}

// Update merge-writes the draft's fields over the product.
func (s *Service) Update(ctx context.Context, ui notify.UI, id string, draft models.ProductDraft) error {
	p, err := s.check(ui, draft)
	if err != nil {
		return err
	}
	defer notify.StartLoading(ui, "Saving product…")()
	if err := s.docs.Update(ctx, collection, id, encode(p)); err != nil {
		s.failed(ui, err, "update", id)
		if errors.Is(err, remote.ErrNotFound) {
			return ErrProductNotFound
		}
		return err
	}
	ui.Notify(notify.Notice{Level: notify.Success, Title: "Updated!", Text: "Product updated successfully."})
	return nil
}

// Delete asks for confirmation first; a declined prompt returns a
// *notify.DeclinedError and writes nothing.
func (s *Service) Delete(ctx context.Context, ui notify.UI, id string) error {
	if err := notify.Require(ctx, ui.Confirmer, deletePrompt); err != nil {
		return err
	}
	defer notify.StartLoading(ui, "Deleting product…")()
	if err := s.docs.Delete(ctx, collection, id); err != nil {
		s.failed(ui, err, "delete", id)
		return err
	}
	s.log.Info().Str("product", id).Msg("product deleted")
	ui.Notify(notify.Notice{Level: notify.Success, Title: "Deleted!", Text: "Product has been deleted."})
	return nil
}

func (s *Service) check(ui notify.UI, draft models.ProductDraft) (models.Product, error) {
	p, err := Parse(draft)
	if err != nil {
		ui.Notify(notify.Notice{Level: notify.Error, Title: "Invalid product", Text: err.Error()})
		return models.Product{}, err
	}
	return p, nil
}

func (s *Service) failed(ui notify.UI, err error, op, id string) {
	s.log.Error().Err(err).Str("op", op).Str("product", id).Msg("catalog write failed")
	ui.Notify(notify.Notice{Level: notify.Error, Title: "Error!", Text: "Something went wrong."})
}
