// Package catalog mirrors the product collection and mutates it.
package catalog

import (
	"context"
	"sync"

	"storefront/internal/models"
	"storefront/internal/remote"
)

// Subscription holds the product list as last pushed by the remote store.
// Every push replaces the whole list; nothing else ever changes it.
type Subscription struct {
	docs remote.Documents

	mu        sync.Mutex
	products  []models.Product
	loaded    bool
	unsub     remote.Unsubscribe
	listeners map[int]func([]models.Product)
	nextID    int
}

func NewSubscription(docs remote.Documents) *Subscription {
	return &Subscription{docs: docs, listeners: make(map[int]func([]models.Product))}
}

func (s *Subscription) Mount(ctx context.Context) error {
	unsub, err := s.docs.WatchQuery(ctx, collection, s.replace)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.unsub = unsub
	s.mu.Unlock()
	return nil
}

func (s *Subscription) Unmount() {
	s.mu.Lock()
	unsub := s.unsub
	s.unsub = nil
	s.listeners = make(map[int]func([]models.Product))
	s.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (s *Subscription) replace(docs []remote.Document) {
	products := decodeAll(docs)
	s.mu.Lock()
	s.products = products
	s.loaded = true
	listeners := make([]func([]models.Product), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(copyProducts(products))
	}
}

// Products returns a copy of the current list, ordered by id.
func (s *Subscription) Products() []models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyProducts(s.products)
}

// Loaded reports whether the first push has arrived.
func (s *Subscription) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// OnChange calls fn with every future push. The returned func stops it.
func (s *Subscription) OnChange(fn func([]models.Product)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func copyProducts(in []models.Product) []models.Product {
	return append([]models.Product(nil), in...)
}
