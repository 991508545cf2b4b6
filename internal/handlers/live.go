package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/guard"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/remote"
)

const (
	viewDashboard = "dashboard"
	viewCart      = "cart"

	livePing      = 30 * time.Second
	livePongWait  = 70 * time.Second
	liveWriteWait = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type outbound struct {
	msg gin.H
	// last closes the socket once written.
	last bool
}

// Live streams one screen to the browser. The connection is gated by an auth
// guard over the browser session; once the session is confirmed the screen's
// subscription is mounted and every push is forwarded. Signing out anywhere
// sends a redirect and closes the socket.
func (h *Handler) Live(c *gin.Context) {
	view := c.Query("view")
	if view != viewDashboard && view != viewCart {
		c.JSON(http.StatusBadRequest, gin.H{"error": "view must be dashboard or cart"})
		return
	}
	var sid string
	if cookie := middleware.Cookie(c); cookie != nil {
		sid = cookie.PeekSID()
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	out := make(chan outbound, 16)
	screen := &liveScreen{h: h, view: view, ctx: ctx, out: out}
	g := guard.New(h.sessionWatcher(sid), screen)
	defer screen.unmount()
	defer g.Unmount()
	// Cancel first: it releases pushes blocked on a full outbox.
	defer cancel()

	go readPump(conn, cancel)
	if err := g.Mount(ctx); err != nil {
		h.Log.Warn().Err(err).Msg("live session watch failed")
	}
	h.writePump(ctx, conn, out)
}

func (h *Handler) sessionWatcher(sid string) guard.Watcher {
	return func(ctx context.Context, fn func(*models.Identity)) (remote.Unsubscribe, error) {
		if sid == "" {
			fn(nil)
			return func() {}, nil
		}
		return h.Identities.Watch(ctx, sid, fn)
	}
}

// readPump drains the client until it goes away. Pongs keep the read
// deadline moving.
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(1024)
	_ = conn.SetReadDeadline(time.Now().Add(livePongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(livePongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump is the only writer of conn.
func (h *Handler) writePump(ctx context.Context, conn *websocket.Conn, out <-chan outbound) {
	ping := time.NewTicker(livePing)
	defer ping.Stop()
	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(liveWriteWait))
			return
		case m := <-out:
			_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteJSON(m.msg); err != nil {
				h.Log.Debug().Err(err).Msg("live write failed")
				return
			}
			if m.last {
				_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(liveWriteWait))
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteWait)); err != nil {
				return
			}
		}
	}
}

// liveScreen is the guard's view on a socket: guard states become messages
// and a confirmed identity mounts the screen's subscription.
type liveScreen struct {
	h    *Handler
	view string
	ctx  context.Context
	out  chan<- outbound

	mu   sync.Mutex
	uid  string
	stop func()
}

func (s *liveScreen) send(msg gin.H, last bool) {
	select {
	case s.out <- outbound{msg: msg, last: last}:
	case <-s.ctx.Done():
	}
}

func (s *liveScreen) Placeholder() {
	s.send(gin.H{"type": "auth", "state": guard.Pending.String()}, false)
}

func (s *liveScreen) Protected(id models.Identity) {
	s.send(gin.H{"type": "auth", "state": guard.Authenticated.String(), "user": id}, false)
	s.mount(id)
}

func (s *liveScreen) Redirect(path string) {
	s.send(gin.H{"type": "auth", "state": guard.Unauthenticated.String()}, false)
	s.send(gin.H{"type": "redirect", "to": path}, true)
}

// mount opens the subscription of the screen for id. A different identity
// signing in under the same session swaps the cart subscription.
func (s *liveScreen) mount(id models.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil && (s.view == viewDashboard || s.uid == id.UID) {
		return
	}
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
	s.uid = id.UID

	switch s.view {
	case viewDashboard:
		sub := catalog.NewSubscription(s.h.Docs)
		off := sub.OnChange(func(products []models.Product) {
			if products == nil {
				products = []models.Product{}
			}
			s.send(gin.H{"type": "products", "products": products}, false)
		})
		if err := sub.Mount(s.ctx); err != nil {
			s.h.Log.Error().Err(err).Msg("live catalog subscription failed")
			off()
			return
		}
		s.stop = func() { off(); sub.Unmount() }
	case viewCart:
		sub := cart.NewSubscription(s.h.Docs, id.UID)
		off := sub.OnChange(func(c models.Cart) {
			msg := cartBody(c)
			msg["type"] = "cart"
			s.send(msg, false)
		})
		if err := sub.Mount(s.ctx); err != nil {
			s.h.Log.Error().Err(err).Str("uid", id.UID).Msg("live cart subscription failed")
			off()
			return
		}
		s.stop = func() { off(); sub.Unmount() }
	}
}

func (s *liveScreen) unmount() {
	s.mu.Lock()
	stop := s.stop
	s.stop = nil
	s.mu.Unlock()
	if stop != nil {
		stop()
	}
}
