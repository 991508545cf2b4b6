// Package cart mirrors one user's cart document and mutates it with
// read-modify-write cycles. Concurrent writers race; the last write wins.
package cart

import (
	"context"
	"sync"

	"storefront/internal/models"
	"storefront/internal/remote"
)

// Subscription holds the cart of one user as last pushed by the remote store.
type Subscription struct {
	docs remote.Documents
	uid  string

	mu        sync.Mutex
	cart      models.Cart
	loaded    bool
	unsub     remote.Unsubscribe
	listeners map[int]func(models.Cart)
	nextID    int
}

func NewSubscription(docs remote.Documents, uid string) *Subscription {
	return &Subscription{docs: docs, uid: uid, listeners: make(map[int]func(models.Cart))}
}

func (s *Subscription) Mount(ctx context.Context) error {
	unsub, err := s.docs.WatchDocument(ctx, collection, s.uid, s.replace)
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
	s.listeners = make(map[int]func(models.Cart))
	s.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (s *Subscription) replace(doc *remote.Document) {
	c := decode(doc)
	s.mu.Lock()
	s.cart = c
	s.loaded = true
	listeners := make([]func(models.Cart), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(copyCart(c))
	}
}

func (s *Subscription) Cart() models.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyCart(s.cart)
}

// Total is recomputed from the current lines on every call.
func (s *Subscription) Total() float64 {
	return s.Cart().Total()
}

func (s *Subscription) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

func (s *Subscription) OnChange(fn func(models.Cart)) func() {
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

func copyCart(c models.Cart) models.Cart {
	return models.Cart{Items: append([]models.CartItem(nil), c.Items...)}
}
