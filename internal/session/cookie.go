package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"storefront/internal/identity"
)

const (
	CookieName = "storefront_session"

	sidKey     = "sid"
	persistKey = "persist"
)

// NewCookieStore returns the signed cookie store every request's Cookie
// storage is opened from. maxAge is the lifetime of a "remember me" cookie.
func NewCookieStore(secret string, secure bool, maxAge time.Duration) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// Cookie is Storage kept in a gorilla session cookie. It also carries the
// browser's session id and one-shot flash notices. Every change is written to
// the response immediately.
type Cookie struct {
	sess   *sessions.Session
	maxAge int
	r      *http.Request
	w      http.ResponseWriter
}

// OpenCookie reads the session cookie of r. A cookie that cannot be decoded
// (rotated secret, tampering) is replaced by a fresh one.
func OpenCookie(store *sessions.CookieStore, w http.ResponseWriter, r *http.Request) *Cookie {
	sess, err := store.Get(r, CookieName)
	if err != nil {
		sess, _ = store.New(r, CookieName)
	}
	maxAge := 0
	if store.Options != nil {
		maxAge = store.Options.MaxAge
	}
	return &Cookie{sess: sess, maxAge: maxAge, r: r, w: w}
}

func (c *Cookie) save() error {
	opts := *c.sess.Options
	if p, _ := c.sess.Values[persistKey].(string); p == string(identity.PersistSession) {
		// No Max-Age: the browser drops the cookie when it closes.
		opts.MaxAge = 0
	} else {
		opts.MaxAge = c.maxAge
	}
	c.sess.Options = &opts
	return c.sess.Save(c.r, c.w)
}

func (c *Cookie) SetItem(key, value string) error {
	c.sess.Values[key] = value
	return c.save()
}

func (c *Cookie) GetItem(key string) (string, bool) {
	v, ok := c.sess.Values[key].(string)
	return v, ok
}

func (c *Cookie) RemoveItem(key string) error {
	if _, ok := c.sess.Values[key]; !ok {
		return nil
	}
	delete(c.sess.Values, key)
	return c.save()
}

// SID returns the id shared by every tab of this browser, minting one on
// first use. It survives sign-out so open tabs keep watching the same
// session.
func (c *Cookie) SID() (string, error) {
	if sid, ok := c.sess.Values[sidKey].(string); ok && sid != "" {
		return sid, nil
	}
	sid := uuid.NewString()
	c.sess.Values[sidKey] = sid
	return sid, c.save()
}

// PeekSID returns the session id without minting one.
func (c *Cookie) PeekSID() string {
	sid, _ := c.sess.Values[sidKey].(string)
	return sid
}

func (c *Cookie) SetPersistence(p identity.Persistence) error {
	c.sess.Values[persistKey] = string(p)
	return c.save()
}

// Persistence is the mode of the last sign-in, PersistLocal when unset.
func (c *Cookie) Persistence() identity.Persistence {
	if p, _ := c.sess.Values[persistKey].(string); p == string(identity.PersistSession) {
		return identity.PersistSession
	}
	return identity.PersistLocal
}

func (c *Cookie) AddFlash(level, message string) error {
	c.sess.AddFlash(level+"|"+message)
	return c.save()
}

// Flash is a notice carried over one redirect.
type Flash struct {
	Level   string
	Message string
}

// Flashes returns and clears the pending notices.
func (c *Cookie) Flashes() []Flash {
	raw := c.sess.Flashes()
	if len(raw) == 0 {
		return nil
	}
	out := make([]Flash, 0, len(raw))
	for _, f := range raw {
		s, ok := f.(string)
		if !ok {
			continue
		}
		level, msg, found := strings.Cut(s, "|")
		if !found {
			level, msg = "info", s
		}
		out = append(out, Flash{Level: level, Message: msg})
	}
	_ = c.save()
	return out
}
