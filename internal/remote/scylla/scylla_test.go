package scylla

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/broker"
	"storefront/internal/remote"
)

// mapTable stands in for the CQL table.
type mapTable struct {
	mu   sync.Mutex
	rows map[string]map[string]string
}

func (m *mapTable) get(_ context.Context, collection, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	body, ok := m.rows[collection][id]
	if !ok {
		return "", remote.ErrNotFound
	}
	return body, nil
}

func (m *mapTable) put(_ context.Context, collection, id, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rows[collection] == nil {
		m.rows[collection] = make(map[string]string)
	}
	m.rows[collection][id] = body
	return nil
}

func (m *mapTable) insert(_ context.Context, collection, id, body string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[collection][id]; ok {
		return false, nil
	}
	if m.rows[collection] == nil {
		m.rows[collection] = make(map[string]string)
	}
	m.rows[collection][id] = body
	return true, nil
}

func (m *mapTable) del(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows[collection], id)
	return nil
}

func (m *mapTable) list(_ context.Context, collection string) ([]row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []row
	for id, body := range m.rows[collection] {
		out = append(out, row{id: id, body: body})
	}
	return out, nil
}

func newTestStore() *Store {
	return &Store{
		table:  &mapTable{rows: make(map[string]map[string]string)},
		broker: broker.NewMemory(),
		log:    zerolog.Nop(),
	}
}

func TestSetGetUpdateDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	_, err := s.Get(ctx, "cart", "u1")
	assert.ErrorIs(t, err, remote.ErrNotFound)
	assert.ErrorIs(t, s.Update(ctx, "cart", "u1", remote.Data{"items": []any{}}), remote.ErrNotFound)

	require.NoError(t, s.Set(ctx, "cart", "u1", remote.Data{"items": []any{}, "owner": "u1"}))
	require.NoError(t, s.Update(ctx, "cart", "u1", remote.Data{"items": []any{"p1"}}))

	doc, err := s.Get(ctx, "cart", "u1")
	require.NoError(t, err)
	assert.Equal(t, remote.Data{"items": []any{"p1"}, "owner": "u1"}, doc.Data)

	require.NoError(t, s.Delete(ctx, "cart", "u1"))
	require.NoError(t, s.Delete(ctx, "cart", "u1"))
	_, err = s.Get(ctx, "cart", "u1")
	assert.ErrorIs(t, err, remote.ErrNotFound)
}

func TestCreateRefusesExistingID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	require.NoError(t, s.Create(ctx, "account_emails", "ada@example.com", remote.Data{"uid": "u1"}))
	assert.ErrorIs(t, s.Create(ctx, "account_emails", "ada@example.com", remote.Data{"uid": "u2"}), remote.ErrExists)

	doc, err := s.Get(ctx, "account_emails", "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", doc.Data["uid"])
}

func TestWatchQueryFollowsChangeFeed(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	_, err := s.Add(ctx, "products", remote.Data{"title": "Lamp"})
	require.NoError(t, err)

	pushes := make(chan []remote.Document, 8)
	unsub, err := s.WatchQuery(ctx, "products", func(docs []remote.Document) { pushes <- docs })
	require.NoError(t, err)
	defer unsub()

	first := receive(t, pushes)
	require.Len(t, first, 1)
	assert.Equal(t, "Lamp", first[0].Data["title"])

	require.NoError(t, s.Set(ctx, "products", "a-first", remote.Data{"title": "Chair"}))
	second := receive(t, pushes)
	require.Len(t, second, 2)
	assert.Equal(t, "a-first", second[0].ID)
}

func TestWatchDocumentIgnoresOtherIDs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	pushes := make(chan *remote.Document, 8)
	unsub, err := s.WatchDocument(ctx, "cart", "u1", func(doc *remote.Document) { pushes <- doc })
	require.NoError(t, err)

	assert.Nil(t, receive(t, pushes))

	require.NoError(t, s.Set(ctx, "cart", "u2", remote.Data{"items": []any{}}))
	require.NoError(t, s.Set(ctx, "cart", "u1", remote.Data{"items": []any{}}))
	doc := receive(t, pushes)
	require.NotNil(t, doc)
	assert.Equal(t, "u1", doc.ID)

	unsub()
	unsub()
	require.NoError(t, s.Set(ctx, "cart", "u1", remote.Data{"items": []any{"x"}}))
	select {
	case <-pushes:
		t.Fatal("push after unsubscribe")
	case <-time.After(30 * time.Millisecond):
	}
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for push")
	}
	var zero T
	return zero
}
