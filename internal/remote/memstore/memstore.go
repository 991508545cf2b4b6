// Package memstore is an in-process remote store. It backs local development
// and the test suites; data lives only as long as the process.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"storefront/internal/remote"
)

type watch struct {
	collection string
	id         string
	query      bool
	onDoc      remote.DocumentFunc
	onQuery    remote.QueryFunc
	out        *remote.Dispatcher
}

type Store struct {
	mu          sync.Mutex
	collections map[string]map[string]remote.Data
	watches     map[*watch]struct{}
	newID       func() string
}

func New() *Store {
	return &Store{
		collections: make(map[string]map[string]remote.Data),
		watches:     make(map[*watch]struct{}),
		newID:       uuid.NewString,
	}
}

func (s *Store) Get(ctx context.Context, collection, id string) (*remote.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.lookup(collection, id)
	if doc == nil {
		return nil, remote.ErrNotFound
	}
	return doc, nil
}

func (s *Store) Add(ctx context.Context, collection string, data remote.Data) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := s.newID()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(collection, id, remote.Clone(data))
	return id, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, data remote.Data) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(collection, id, remote.Clone(data))
	return nil
}

func (s *Store) Create(ctx context.Context, collection, id string, data remote.Data) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[collection][id]; ok {
		return remote.ErrExists
	}
	s.put(collection, id, remote.Clone(data))
	return nil
}

func (s *Store) Update(ctx context.Context, collection, id string, data remote.Data) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.collections[collection][id]
	if !ok {
		return remote.ErrNotFound
	}
	s.put(collection, id, remote.Merge(current, remote.Clone(data)))
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[collection][id]; !ok {
		return nil
	}
	delete(s.collections[collection], id)
	s.fanOut(collection, id)
	return nil
}

func (s *Store) WatchDocument(ctx context.Context, collection, id string, fn remote.DocumentFunc) (remote.Unsubscribe, error) {
	w := &watch{collection: collection, id: id, onDoc: fn, out: remote.NewDispatcher()}
	return s.register(ctx, w)
}

func (s *Store) WatchQuery(ctx context.Context, collection string, fn remote.QueryFunc) (remote.Unsubscribe, error) {
	w := &watch{collection: collection, query: true, onQuery: fn, out: remote.NewDispatcher()}
	return s.register(ctx, w)
}

// Subscribers reports how many live subscriptions are open.
func (s *Store) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watches)
}

func (s *Store) register(ctx context.Context, w *watch) (remote.Unsubscribe, error) {
	if err := ctx.Err(); err != nil {
		w.out.Close()
		return nil, err
	}
	s.mu.Lock()
	s.watches[w] = struct{}{}
	s.push(w)
	s.mu.Unlock()

	return remote.CloseOnDone(ctx, func() {
		s.mu.Lock()
		delete(s.watches, w)
		s.mu.Unlock()
		w.out.Close()
	}), nil
}

// put and fanOut must be called with s.mu held.
func (s *Store) put(collection, id string, data remote.Data) {
	col, ok := s.collections[collection]
	if !ok {
		col = make(map[string]remote.Data)
		s.collections[collection] = col
	}
	col[id] = data
	s.fanOut(collection, id)
}

func (s *Store) fanOut(collection, id string) {
	for w := range s.watches {
		if w.collection != collection {
			continue
		}
		if w.query || w.id == id {
			s.push(w)
		}
	}
}

func (s *Store) push(w *watch) {
	if w.query {
		docs := s.list(w.collection)
		fn := w.onQuery
		w.out.Push(func() { fn(docs) })
		return
	}
	doc := s.lookup(w.collection, w.id)
	fn := w.onDoc
	w.out.Push(func() { fn(doc) })
}

func (s *Store) lookup(collection, id string) *remote.Document {
	data, ok := s.collections[collection][id]
	if !ok {
		return nil
	}
	return &remote.Document{ID: id, Data: remote.Clone(data)}
}

func (s *Store) list(collection string) []remote.Document {
	col := s.collections[collection]
	ids := make([]string, 0, len(col))
	for id := range col {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	docs := make([]remote.Document, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, remote.Document{ID: id, Data: remote.Clone(col[id])})
	}
	return docs
}
