package memstore_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/remote"
	"storefront/internal/remote/memstore"
)

type docRecorder struct {
	mu   sync.Mutex
	seen []*remote.Document
}

func (r *docRecorder) push(doc *remote.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, doc)
}

func (r *docRecorder) snapshot() []*remote.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*remote.Document(nil), r.seen...)
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	s := memstore.New()
	_, err := s.Get(context.Background(), "products", "nope")
	assert.ErrorIs(t, err, remote.ErrNotFound)
}

func TestUpdateMergesTopLevelFields(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	require.NoError(t, s.Set(ctx, "products", "p1", remote.Data{"title": "Mug", "price": 9.99}))
	require.NoError(t, s.Update(ctx, "products", "p1", remote.Data{"price": 5.0}))

	doc, err := s.Get(ctx, "products", "p1")
	require.NoError(t, err)
	assert.Equal(t, "Mug", doc.Data["title"])
	assert.Equal(t, 5.0, doc.Data["price"])

	assert.ErrorIs(t, s.Update(ctx, "products", "missing", remote.Data{"x": 1}), remote.ErrNotFound)
}

func TestCreateOnlyOnce(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	var wg sync.WaitGroup
	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results <- s.Create(ctx, "account_emails", "ada@example.com", remote.Data{"uid": i})
		}(i)
	}
	wg.Wait()
	close(results)

	created := 0
	for err := range results {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, remote.ErrExists)
	}
	assert.Equal(t, 1, created)
}

func TestWatchDocumentPushesInitialAndChanges(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	rec := &docRecorder{}

	unsub, err := s.WatchDocument(ctx, "cart", "u1", rec.push)
	require.NoError(t, err)
	defer unsub()

	require.NoError(t, s.Set(ctx, "cart", "u1", remote.Data{"items": []any{}}))
	require.NoError(t, s.Set(ctx, "cart", "other", remote.Data{"items": []any{}}))
	require.NoError(t, s.Delete(ctx, "cart", "u1"))

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 3 }, time.Second, 5*time.Millisecond)
	seen := rec.snapshot()
	assert.Nil(t, seen[0], "initial push reports absence")
	require.NotNil(t, seen[1])
	assert.Equal(t, "u1", seen[1].ID)
	assert.Nil(t, seen[2])
}

func TestWatchQueryDeliversFullOrderedSnapshots(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	var mu sync.Mutex
	var last []remote.Document
	pushes := 0
	unsub, err := s.WatchQuery(ctx, "products", func(docs []remote.Document) {
		mu.Lock()
		defer mu.Unlock()
		last = docs
		pushes++
	})
	require.NoError(t, err)
	defer unsub()

	require.NoError(t, s.Set(ctx, "products", "b", remote.Data{"title": "B"}))
	require.NoError(t, s.Set(ctx, "products", "a", remote.Data{"title": "A"}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return pushes == 3
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, last, 2)
	assert.Equal(t, "a", last[0].ID)
	assert.Equal(t, "b", last[1].ID)
}

func TestUnsubscribeStopsPushes(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	rec := &docRecorder{}

	unsub, err := s.WatchDocument(ctx, "cart", "u1", rec.push)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)

	unsub()
	unsub()
	assert.Equal(t, 0, s.Subscribers())

	require.NoError(t, s.Set(ctx, "cart", "u1", remote.Data{"items": []any{}}))
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, rec.snapshot(), 1)
}

func TestCancelledContextClosesSubscription(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := memstore.New()

	_, err := s.WatchQuery(ctx, "products", func([]remote.Document) {})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Subscribers())

	cancel()
	require.Eventually(t, func() bool { return s.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
}

func TestSnapshotsAreIsolatedFromStore(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	require.NoError(t, s.Set(ctx, "cart", "u1", remote.Data{"items": []any{map[string]any{"id": "p1"}}}))

	doc, err := s.Get(ctx, "cart", "u1")
	require.NoError(t, err)
	doc.Data["items"].([]any)[0].(map[string]any)["id"] = "tampered"

	again, err := s.Get(ctx, "cart", "u1")
	require.NoError(t, err)
	assert.Equal(t, "p1", again.Data["items"].([]any)[0].(map[string]any)["id"])
}
