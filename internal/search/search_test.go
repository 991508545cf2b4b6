package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/models"
)

var (
	mug  = models.Product{ID: "p1", Title: "Mug", Description: "Ceramic coffee mug", Price: 9.99}
	lamp = models.Product{ID: "p2", Title: "Desk lamp", Description: "Brass", Price: 20}
)

func TestLocalSearch(t *testing.T) {
	l := NewLocal(func() []models.Product { return []models.Product{mug, lamp} })
	ctx := context.Background()

	got, err := l.Search(ctx, "COFFEE mug", 0)
	require.NoError(t, err)
	assert.Equal(t, []models.Product{mug}, got)

	got, _ = l.Search(ctx, "", 1)
	assert.Equal(t, []models.Product{mug}, got)

	got, _ = l.Search(ctx, "chair", 0)
	assert.Empty(t, got)
}

// fakeElastic answers just enough of the Elasticsearch API for Index.
func fakeElastic(t *testing.T, requests *[]string) *elasticsearch.Client {
	t.Helper()
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		*requests = append(*requests, r.Method+" "+r.URL.Path)
		mu.Unlock()
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/_search"):
			body, _ := io.ReadAll(r.Body)
			var q map[string]any
			_ = json.Unmarshal(body, &q)
			assert.EqualValues(t, 5, q["size"])
			_, _ = io.WriteString(w, `{"hits":{"hits":[{"_id":"p1","_source":{"title":"Mug","description":"Ceramic coffee mug","price":9.99}}]}}`)
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"result":"not_found"}`)
		default:
			_, _ = io.WriteString(w, `{"result":"created"}`)
		}
	}))
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return es
}

func TestIndexRoundTrip(t *testing.T) {
	var requests []string
	x := New(fakeElastic(t, &requests), "products", zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, x.Put(ctx, mug))
	require.NoError(t, x.Remove(ctx, "gone"))
	got, err := x.Search(ctx, "mug", 5)
	require.NoError(t, err)
	assert.Equal(t, []models.Product{mug}, got)

	assert.Equal(t, []string{
		"PUT /products/_doc/p1",
		"DELETE /products/_doc/gone",
		"POST /products/_search",
	}, requests)
}

type fakeIndexer struct {
	mu      sync.Mutex
	puts    []string
	removes []string
}

func (f *fakeIndexer) Put(_ context.Context, p models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, p.ID)
	return nil
}

func (f *fakeIndexer) Remove(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removes = append(f.removes, id)
	return nil
}

func TestSyncerAppliesDiffs(t *testing.T) {
	idx := &fakeIndexer{}
	s := NewSyncer(idx, zerolog.Nop())
	ctx := context.Background()

	s.apply(ctx, []models.Product{mug, lamp})
	s.apply(ctx, []models.Product{mug})
	changed := mug
	changed.Price = 11
	s.apply(ctx, []models.Product{changed})

	assert.Equal(t, []string{"p1", "p2", "p1"}, idx.puts)
	assert.Equal(t, []string{"p2"}, idx.removes)
}

func TestSyncerOfferCoalesces(t *testing.T) {
	idx := &fakeIndexer{}
	s := NewSyncer(idx, zerolog.Nop())

	s.Offer([]models.Product{mug})
	s.Offer([]models.Product{lamp})

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	require.Eventually(t, func() bool {
		idx.mu.Lock()
		defer idx.mu.Unlock()
		return len(idx.puts) == 1
	}, time.Second, 5*time.Millisecond)
	cancel()
	s.Wait()

	assert.Equal(t, []string{"p2"}, idx.puts)
}
