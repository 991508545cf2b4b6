// Package notify is the user-facing notification and confirmation surface:
// toasts for success, failure and progress, and confirmation of destructive
// actions.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

type Level string

const (
	Success Level = "success"
	Error   Level = "error"
	Info    Level = "info"
	Loading Level = "loading"
	Dismiss Level = "dismiss"
)

type Notice struct {
	Level Level  `json:"level"`
	Title string `json:"title"`
	Text  string `json:"text,omitempty"`
}

type Notifier interface {
	Notify(Notice)
}

// Prompt asks the user to confirm a destructive action.
type Prompt struct {
	Title       string `json:"title"`
	Text        string `json:"text"`
	ConfirmText string `json:"confirmText"`
}

type Confirmer interface {
	Confirm(ctx context.Context, p Prompt) bool
}

type ConfirmFunc func(ctx context.Context, p Prompt) bool

func (f ConfirmFunc) Confirm(ctx context.Context, p Prompt) bool { return f(ctx, p) }

var (
	Always Confirmer = ConfirmFunc(func(context.Context, Prompt) bool { return true })
	Never  Confirmer = ConfirmFunc(func(context.Context, Prompt) bool { return false })
)

// UI bundles the surfaces of one user interaction.
type UI struct {
	Notifier
	Confirmer
}

// DeclinedError reports an action the user did not confirm.
type DeclinedError struct {
	Prompt Prompt
}

func (e *DeclinedError) Error() string {
	return fmt.Sprintf("not confirmed: %s", e.Prompt.Title)
}

// Require returns a *DeclinedError unless the user confirms p.
func Require(ctx context.Context, c Confirmer, p Prompt) error {
	if c != nil && c.Confirm(ctx, p) {
		return nil
	}
	return &DeclinedError{Prompt: p}
}

// StartLoading shows a loading notice and returns the func that dismisses
// it. Use it with defer so a failure never leaves the indicator up.
func StartLoading(n Notifier, title string) func() {
	n.Notify(Notice{Level: Loading, Title: title})
	var once sync.Once
	return func() {
		once.Do(func() { n.Notify(Notice{Level: Dismiss, Title: title}) })
	}
}

// Recorder collects the notices of one request.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Visible drops loading notices that were already dismissed.
func (r *Recorder) Visible() []Notice {
	all := r.Notices()
	out := make([]Notice, 0, len(all))
	for _, n := range all {
		if n.Level != Loading && n.Level != Dismiss {
			out = append(out, n)
		}
	}
	return out
}

// ConfirmHeader is the request header that confirms a destructive action.
const ConfirmHeader = "X-Confirm"

// RequestConfirmer confirms when r carries "X-Confirm: yes" or confirm=true.
func RequestConfirmer(r *http.Request) Confirmer {
	return ConfirmFunc(func(context.Context, Prompt) bool {
		if v := strings.ToLower(r.Header.Get(ConfirmHeader)); v == "yes" || v == "true" {
			return true
		}
		return r.FormValue("confirm") == "true"
	})
}
