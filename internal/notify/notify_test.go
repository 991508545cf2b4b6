package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStartLoadingDismissesOnce(t *testing.T) {
	rec := &Recorder{}
	done := StartLoading(rec, "Deleting…")
	done()
	done()

	assert.Equal(t, []Notice{
		{Level: Loading, Title: "Deleting…"},
		{Level: Dismiss, Title: "Deleting…"},
	}, rec.Notices())
	assert.Empty(t, rec.Visible())
}

func TestRequire(t *testing.T) {
	ctx := context.Background()
	p := Prompt{Title: "Are you sure?"}

	assert.NoError(t, Require(ctx, Always, p))

	err := Require(ctx, Never, p)
	var declined *DeclinedError
	if assert.True(t, errors.As(err, &declined)) {
		assert.Equal(t, p, declined.Prompt)
	}
	assert.Error(t, Require(ctx, nil, p))
}

func TestRequestConfirmer(t *testing.T) {
	ctx := context.Background()

	r := httptest.NewRequest(http.MethodDelete, "/api/products/p1", nil)
	assert.False(t, RequestConfirmer(r).Confirm(ctx, Prompt{}))

	r.Header.Set(ConfirmHeader, "yes")
	assert.True(t, RequestConfirmer(r).Confirm(ctx, Prompt{}))

	r = httptest.NewRequest(http.MethodDelete, "/api/products/p1?confirm=true", nil)
	assert.True(t, RequestConfirmer(r).Confirm(ctx, Prompt{}))
}
