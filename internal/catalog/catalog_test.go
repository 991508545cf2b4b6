package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/models"
	"storefront/internal/notify"
	"storefront/internal/remote"
	"storefront/internal/remote/memstore"
)

var mug = models.ProductDraft{Title: "Mug", Description: "Ceramic", Price: "9.99", ImageURL: "https://x/y.png"}

func testUI(c notify.Confirmer) (notify.UI, *notify.Recorder) {
	rec := &notify.Recorder{}
	return notify.UI{Notifier: rec, Confirmer: c}, rec
}

func TestParse(t *testing.T) {
	p, err := Parse(mug)
	require.NoError(t, err)
	assert.Equal(t, models.Product{Title: "Mug", Description: "Ceramic", Price: 9.99, ImageURL: "https://x/y.png"}, p)

	_, err = Parse(models.ProductDraft{Title: " ", Price: "-1", ImageURL: "ftp://x/y.png"})
	require.ErrorIs(t, err, ErrInvalidDraft)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Fields, 4)
	assert.Equal(t, "Price cannot be negative.", verr.Fields["price"])

	for _, price := range []string{"", "abc", "NaN", "Inf"} {
		_, err = Parse(models.ProductDraft{Title: "t", Description: "d", Price: price, ImageURL: "https://x"})
		assert.ErrorIs(t, err, ErrInvalidDraft, price)
	}
	_, err = Parse(models.ProductDraft{Title: "t", Description: "d", Price: "0", ImageURL: "/relative.png"})
	assert.ErrorIs(t, err, ErrInvalidDraft)
}

func TestCreateIsReflectedBySubscription(t *testing.T) {
	ctx := context.Background()
	docs := memstore.New()
	sub := NewSubscription(docs)
	require.NoError(t, sub.Mount(ctx))
	defer sub.Unmount()
	require.Eventually(t, sub.Loaded, time.Second, 5*time.Millisecond)
	assert.Empty(t, sub.Products())

	ui, rec := testUI(notify.Always)
	id, err := NewService(docs, zerolog.Nop()).Create(ctx, ui, mug)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	require.Eventually(t, func() bool { return len(sub.Products()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, models.Product{ID: id, Title: "Mug", Description: "Ceramic", Price: 9.99, ImageURL: "https://x/y.png"}, sub.Products()[0])
	assert.Equal(t, []notify.Notice{{Level: notify.Success, Title: "Added!", Text: "New product added successfully."}}, rec.Visible())
}

func TestCreateRejectsInvalidDraftWithoutWriting(t *testing.T) {
	ctx := context.Background()
	docs := memstore.New()
	ui, rec := testUI(notify.Always)

	_, err := NewService(docs, zerolog.Nop()).Create(ctx, ui, models.ProductDraft{Title: "Mug"})
	assert.ErrorIs(t, err, ErrInvalidDraft)
	require.Len(t, rec.Notices(), 1)
	assert.Equal(t, notify.Error, rec.Notices()[0].Level)

	got := make(chan []remote.Document, 1)
	unsub, err := docs.WatchQuery(ctx, "products", func(d []remote.Document) { got <- d })
	require.NoError(t, err)
	defer unsub()
	assert.Empty(t, <-got)
}

func TestUpdateMergesFields(t *testing.T) {
	ctx := context.Background()
	docs := memstore.New()
	require.NoError(t, docs.Set(ctx, "products", "p1", remote.Data{"title": "Mug", "price": "4", "featured": true}))
	svc := NewService(docs, zerolog.Nop())
	ui, _ := testUI(notify.Always)

	require.NoError(t, svc.Update(ctx, ui, "p1", mug))

	doc, err := docs.Get(ctx, "products", "p1")
	require.NoError(t, err)
	assert.Equal(t, true, doc.Data["featured"])
	assert.Equal(t, 9.99, doc.Data["price"])

	assert.ErrorIs(t, svc.Update(ctx, ui, "missing", mug), ErrProductNotFound)
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	ctx := context.Background()
	docs := memstore.New()
	require.NoError(t, docs.Set(ctx, "products", "p1", encode(models.Product{Title: "Mug"})))
	svc := NewService(docs, zerolog.Nop())

	declineUI, rec := testUI(notify.Never)
	err := svc.Delete(ctx, declineUI, "p1")
	var declined *notify.DeclinedError
	require.True(t, errors.As(err, &declined))
	assert.Equal(t, "Are you sure?", declined.Prompt.Title)
	assert.Empty(t, rec.Notices())
	_, err = svc.Get(ctx, "p1")
	require.NoError(t, err)

	ui, rec := testUI(notify.Always)
	require.NoError(t, svc.Delete(ctx, ui, "p1"))
	assert.Equal(t, "Deleted!", rec.Visible()[0].Title)
	_, err = svc.Get(ctx, "p1")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestDecodeToleratesTextPrice(t *testing.T) {
	p := decode(remote.Document{ID: "p1", Data: remote.Data{"title": "Mug", "price": "12.5"}})
	assert.Equal(t, models.Product{ID: "p1", Title: "Mug", Price: 12.5}, p)
}

func TestSubscriptionListenersAndUnmount(t *testing.T) {
	ctx := context.Background()
	docs := memstore.New()
	sub := NewSubscription(docs)

	pushes := make(chan []models.Product, 8)
	sub.OnChange(func(p []models.Product) { pushes <- p })
	require.NoError(t, sub.Mount(ctx))

	select {
	case p := <-pushes:
		assert.Empty(t, p)
	case <-time.After(time.Second):
		t.Fatal("no initial push")
	}

	sub.Unmount()
	assert.Equal(t, 0, docs.Subscribers())
}
