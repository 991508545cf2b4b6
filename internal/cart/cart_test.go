package cart

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/catalog"
	"storefront/internal/models"
	"storefront/internal/notify"
	"storefront/internal/remote"
	"storefront/internal/remote/memstore"
)

type fixture struct {
	docs *memstore.Store
	svc  *Service
	ui   notify.UI
	rec  *notify.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	docs := memstore.New()
	require.NoError(t, docs.Set(ctx, "products", "P1", remote.Data{
		"title": "Mug", "description": "Ceramic", "price": 9.99, "imageUrl": "https://x/y.png",
	}))
	require.NoError(t, docs.Set(ctx, "products", "P2", remote.Data{
		"title": "Lamp", "description": "Brass", "price": 20.0, "imageUrl": "https://x/l.png",
	}))
	rec := &notify.Recorder{}
	return &fixture{
		docs: docs,
		svc:  NewService(docs, catalog.NewService(docs, zerolog.Nop()), zerolog.Nop()),
		ui:   notify.UI{Notifier: rec, Confirmer: notify.Always},
		rec:  rec,
	}
}

func TestParseQuantity(t *testing.T) {
	for in, want := range map[string]int{
		"3": 3, "1": 1, "0": 1, "-5": 1, "abc": 1, "": 1,
		"2.5": 2, "3abc": 3, " 4 ": 4, "+6": 6, "-": 1, "0.9": 1,
	} {
		assert.Equal(t, want, ParseQuantity(in), in)
	}
	assert.Equal(t, 1, Clamp(0))
	assert.Equal(t, 1, Clamp(-5))
	assert.Equal(t, 7, Clamp(7))
}

func TestAddItemCreatesCartAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.svc.AddItem(ctx, f.ui, "u1", "P1"))
	require.NoError(t, f.svc.AddItem(ctx, f.ui, "u1", "P1"))

	c, err := f.svc.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []models.CartItem{{
		ID: "P1", Title: "Mug", Description: "Ceramic", Price: 9.99, ImageURL: "https://x/y.png", Quantity: 1,
	}}, c.Items)
}

func TestAddItemUnknownProduct(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	assert.ErrorIs(t, f.svc.AddItem(ctx, f.ui, "u1", "nope"), catalog.ErrProductNotFound)
	assert.Equal(t, notify.Error, f.rec.Notices()[0].Level)
	_, err := f.docs.Get(ctx, "cart", "u1")
	assert.ErrorIs(t, err, remote.ErrNotFound)
}

func TestSetQuantityClamps(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.svc.AddItem(ctx, f.ui, "u1", "P1"))

	for _, q := range []int{0, -5} {
		require.NoError(t, f.svc.SetQuantity(ctx, f.ui, "u1", "P1", 4))
		require.NoError(t, f.svc.SetQuantity(ctx, f.ui, "u1", "P1", q))
		c, err := f.svc.Load(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 1, c.Items[0].Quantity)
	}

	assert.ErrorIs(t, f.svc.SetQuantity(ctx, f.ui, "u1", "P2", 2), ErrNotInCart)
	assert.ErrorIs(t, f.svc.SetQuantity(ctx, f.ui, "u2", "P1", 2), ErrNotInCart)
}

func TestAddThenSetQuantityIsPushed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sub := NewSubscription(f.docs, "u1")
	require.NoError(t, sub.Mount(ctx))
	defer sub.Unmount()

	require.NoError(t, f.svc.AddItem(ctx, f.ui, "u1", "P1"))
	require.NoError(t, f.svc.SetQuantity(ctx, f.ui, "u1", "P1", 3))

	require.Eventually(t, func() bool {
		c := sub.Cart()
		return len(c.Items) == 1 && c.Items[0].Quantity == 3
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "P1", sub.Cart().Items[0].ID)
	assert.InDelta(t, 9.99*3, sub.Total(), 1e-9)
}

func TestRemoveItem(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.svc.AddItem(ctx, f.ui, "u1", "P1"))
	require.NoError(t, f.svc.AddItem(ctx, f.ui, "u1", "P2"))

	declined := notify.UI{Notifier: f.rec, Confirmer: notify.Never}
	assert.Error(t, f.svc.RemoveItem(ctx, declined, "u1", "P1"))
	c, _ := f.svc.Load(ctx, "u1")
	assert.Len(t, c.Items, 2)

	require.NoError(t, f.svc.RemoveItem(ctx, f.ui, "u1", "P1"))

	// A subscription opened afterwards never sees P1 again.
	sub := NewSubscription(f.docs, "u1")
	require.NoError(t, sub.Mount(ctx))
	defer sub.Unmount()
	require.Eventually(t, sub.Loaded, time.Second, 5*time.Millisecond)
	assert.Equal(t, -1, sub.Cart().Find("P1"))
	assert.Equal(t, 0, sub.Cart().Find("P2"))

	require.NoError(t, f.svc.RemoveItem(ctx, f.ui, "nobody", "P1"))
}

// staleDocs serves every cart read from a snapshot taken earlier, like a tab
// that read before another tab wrote.
type staleDocs struct {
	remote.Documents
	snapshot *remote.Document
}

func (s staleDocs) Get(ctx context.Context, collection, id string) (*remote.Document, error) {
	if collection == "cart" {
		return &remote.Document{ID: s.snapshot.ID, Data: remote.Clone(s.snapshot.Data)}, nil
	}
	return s.Documents.Get(ctx, collection, id)
}

func TestConcurrentTabsLastWriterWins(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.svc.AddItem(ctx, f.ui, "u1", "P1"))
	snap, err := f.docs.Get(ctx, "cart", "u1")
	require.NoError(t, err)

	tabA := NewService(staleDocs{Documents: f.docs, snapshot: snap}, nil, zerolog.Nop())
	tabB := NewService(staleDocs{Documents: f.docs, snapshot: snap}, nil, zerolog.Nop())
	require.NoError(t, tabA.SetQuantity(ctx, f.ui, "u1", "P1", 2))
	require.NoError(t, tabB.SetQuantity(ctx, f.ui, "u1", "P1", 5))

	c, err := f.svc.Load(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 5, c.Items[0].Quantity)
}

func TestDecodeLegacyAndBrokenLines(t *testing.T) {
	c := decode(&remote.Document{ID: "u1", Data: remote.Data{"items": []any{
		"P9",
		map[string]any{"id": "P1", "price": 2.5, "quantity": 0.0},
		map[string]any{"title": "no id"},
		42.0,
	}}})
	assert.Equal(t, []models.CartItem{{ID: "P9", Quantity: 1}, {ID: "P1", Price: 2.5, Quantity: 1}}, c.Items)
	assert.Empty(t, decode(nil).Items)
}

func TestTotal(t *testing.T) {
	c := models.Cart{Items: []models.CartItem{{Price: 9.99, Quantity: 3}, {Price: 20, Quantity: 1}, {Price: 0.5, Quantity: 4}}}
	assert.InDelta(t, 9.99*3+20+0.5*4, c.Total(), 1e-9)
	assert.Equal(t, 0.0, models.Cart{}.Total())
}
