// Package guard gates a protected view on a confirmed session.
//
// A guard starts Pending and shows a neutral placeholder. The first identity
// notification settles it: a present identity renders the protected view, an
// absent one redirects to the login page. Once redirected the guard is
// finished and never renders the protected view again.
package guard

import (
	"context"
	"sync"

	"storefront/internal/models"
	"storefront/internal/remote"
)

const LoginPath = "/login"

type State int

const (
	Pending State = iota
	Authenticated
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "pending"
	}
}

// Watcher subscribes to identity changes of one browser session. fn receives
// nil when nobody is signed in.
type Watcher func(ctx context.Context, fn func(*models.Identity)) (remote.Unsubscribe, error)

// View renders the guard's verdict. Calls arrive one at a time and must not
// call back into the guard.
type View interface {
	Placeholder()
	Protected(id models.Identity)
	// Redirect replaces the current location; back-navigation must not
	// return to the guarded page.
	Redirect(path string)
}

type Guard struct {
	watch Watcher
	view  View

	mu       sync.Mutex
	state    State
	identity models.Identity
	history  []State
	unsub    remote.Unsubscribe
	mounted  bool
	done     bool
}

func New(watch Watcher, view View) *Guard {
	return &Guard{watch: watch, view: view}
}

// Mount renders the placeholder and subscribes. A failed subscription is
// treated as signed out, so the page never stays pending.
func (g *Guard) Mount(ctx context.Context) error {
	g.mu.Lock()
	if g.mounted {
		g.mu.Unlock()
		return nil
	}
	g.mounted = true
	g.enter(Pending)
	g.view.Placeholder()
	g.mu.Unlock()

	unsub, err := g.watch(ctx, g.onChange)
	if err != nil {
		g.onChange(nil)
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done {
		// Unmounted while subscribing.
		unsub()
		return nil
	}
	g.unsub = unsub
	return nil
}

// Unmount releases the subscription whatever state was reached.
func (g *Guard) Unmount() {
	g.mu.Lock()
	unsub := g.unsub
	g.unsub = nil
	g.done = true
	g.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (g *Guard) onChange(id *models.Identity) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done {
		return
	}
	if id == nil {
		g.enter(Unauthenticated)
		g.done = true
		g.view.Redirect(LoginPath)
		return
	}
	g.identity = *id
	g.enter(Authenticated)
	g.view.Protected(*id)
}

// enter records a state change. Callers hold g.mu.
func (g *Guard) enter(s State) {
	if len(g.history) > 0 && g.state == s {
		return
	}
	g.state = s
	g.history = append(g.history, s)
}

func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Identity is the confirmed identity while Authenticated.
func (g *Guard) Identity() (models.Identity, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.identity, g.state == Authenticated
}

// History lists the states the guard went through, in order.
func (g *Guard) History() []State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]State(nil), g.history...)
}
