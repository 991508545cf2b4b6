package guard_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/guard"
	"storefront/internal/identity"
	"storefront/internal/models"
	"storefront/internal/remote"
	"storefront/internal/remote/memstore"
)

type recordingView struct {
	mu    sync.Mutex
	calls []string
}

func (v *recordingView) add(s string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, s)
}

func (v *recordingView) Placeholder()                 { v.add("placeholder") }
func (v *recordingView) Protected(id models.Identity) { v.add("protected:" + id.UID) }
func (v *recordingView) Redirect(path string)         { v.add("redirect:" + path) }

func (v *recordingView) Calls() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.calls...)
}

// manualSource hands the subscriber to the test, which emits by hand.
type manualSource struct {
	fn       func(*models.Identity)
	released bool
}

func (m *manualSource) watch(_ context.Context, fn func(*models.Identity)) (remote.Unsubscribe, error) {
	m.fn = fn
	return func() { m.released = true }, nil
}

var ann = models.Identity{UID: "u1", Email: "ann@example.com", DisplayName: "Ann"}

func TestGuardSignedInThenSignedOut(t *testing.T) {
	src := &manualSource{}
	view := &recordingView{}
	g := guard.New(src.watch, view)

	require.NoError(t, g.Mount(context.Background()))
	assert.Equal(t, guard.Pending, g.State())

	src.fn(&ann)
	src.fn(nil)

	assert.Equal(t, []guard.State{guard.Pending, guard.Authenticated, guard.Unauthenticated}, g.History())
	assert.Equal(t, []string{"placeholder", "protected:u1", "redirect:/login"}, view.Calls())

	// A later sign-in never brings the protected view back.
	src.fn(&ann)
	assert.Equal(t, []string{"placeholder", "protected:u1", "redirect:/login"}, view.Calls())

	g.Unmount()
	assert.True(t, src.released)
}

func TestGuardSignedOutFromTheStart(t *testing.T) {
	src := &manualSource{}
	view := &recordingView{}
	g := guard.New(src.watch, view)
	require.NoError(t, g.Mount(context.Background()))

	src.fn(nil)

	assert.Equal(t, []guard.State{guard.Pending, guard.Unauthenticated}, g.History())
	assert.Equal(t, []string{"placeholder", "redirect:/login"}, view.Calls())
	_, ok := g.Identity()
	assert.False(t, ok)
}

func TestGuardUnmountWhilePending(t *testing.T) {
	src := &manualSource{}
	view := &recordingView{}
	g := guard.New(src.watch, view)
	require.NoError(t, g.Mount(context.Background()))

	g.Unmount()
	assert.True(t, src.released)

	src.fn(&ann)
	assert.Equal(t, []string{"placeholder"}, view.Calls())
	assert.Equal(t, guard.Pending, g.State())
}

func TestGuardWatchFailureRedirects(t *testing.T) {
	view := &recordingView{}
	failing := func(context.Context, func(*models.Identity)) (remote.Unsubscribe, error) {
		return nil, errors.New("store unreachable")
	}
	g := guard.New(failing, view)

	assert.Error(t, g.Mount(context.Background()))
	assert.Equal(t, guard.Unauthenticated, g.State())
	assert.Equal(t, []string{"placeholder", "redirect:/login"}, view.Calls())
}

func TestGuardFollowsIdentitySessions(t *testing.T) {
	ctx := context.Background()
	ids := identity.New(memstore.New(), zerolog.Nop())
	require.NoError(t, ids.StartSession(ctx, "sid", ann, identity.PersistLocal))

	view := &recordingView{}
	g := guard.New(func(ctx context.Context, fn func(*models.Identity)) (remote.Unsubscribe, error) {
		return ids.Watch(ctx, "sid", fn)
	}, view)
	require.NoError(t, g.Mount(ctx))
	defer g.Unmount()

	require.Eventually(t, func() bool { return g.State() == guard.Authenticated }, time.Second, 5*time.Millisecond)

	// Signing out in another tab sharing the session.
	require.NoError(t, ids.EndSession(ctx, "sid"))
	require.Eventually(t, func() bool { return g.State() == guard.Unauthenticated }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"placeholder", "protected:u1", "redirect:/login"}, view.Calls())
}
