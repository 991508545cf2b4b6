package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/guard"
)

// limiter counts attempts per key in a window. Reaching max arms a cooldown
// of the same length; while it runs every attempt is refused with 429.
type limiter struct {
	cache  cache.Cache
	log    zerolog.Logger
	prefix string
	max    int
	window time.Duration
	key    func(c *gin.Context) string
	// counts reports whether the finished request counts as an attempt.
	counts func(status int) bool
	// resets reports whether the finished request clears the counter.
	resets func(status int) bool
}

// LoginRateLimit limits failed sign-ins per e-mail address (per client IP
// when the body carries none).
func LoginRateLimit(c cache.Cache, cfg config.RateLimitConfig, log zerolog.Logger) gin.HandlerFunc {
	l := &limiter{
		cache:  c,
		log:    log,
		prefix: "login",
		max:    cfg.LoginAttempts,
		window: cfg.Window,
		key:    emailOrIP,
		counts: func(status int) bool { return status == http.StatusUnauthorized },
		resets: func(status int) bool { return status == http.StatusOK || status == http.StatusSeeOther },
	}
	return l.handle
}

// SignupRateLimit limits account creations per client IP.
func SignupRateLimit(c cache.Cache, cfg config.RateLimitConfig, log zerolog.Logger) gin.HandlerFunc {
	l := &limiter{
		cache:  c,
		log:    log,
		prefix: "signup",
		max:    cfg.LoginAttempts,
		window: cfg.Window,
		key:    func(c *gin.Context) string { return c.ClientIP() },
		counts: func(status int) bool { return status == http.StatusCreated || status == http.StatusSeeOther },
		resets: func(int) bool { return false },
	}
	return l.handle
}

func (l *limiter) handle(c *gin.Context) {
	ctx := c.Request.Context()
	key := l.key(c)
	attemptsKey := l.prefix + "_attempts:" + key
	cooldownKey := l.prefix + "_cooldown:" + key

	ttl, cooling, err := l.cache.TTL(ctx, cooldownKey)
	if err != nil {
		l.log.Error().Err(err).Str("key", cooldownKey).Msg("rate limit lookup failed")
		c.Next()
		return
	}
	if cooling {
		l.refuse(c, ttl)
		return
	}

	attempts, err := l.cache.Count(ctx, attemptsKey)
	if err != nil {
		l.log.Error().Err(err).Str("key", attemptsKey).Msg("rate limit lookup failed")
		c.Next()
		return
	}
	if attempts >= int64(l.max) {
		if err := l.cache.Flag(ctx, cooldownKey, l.window); err != nil {
			l.log.Error().Err(err).Msg("arm cooldown")
		}
		_ = l.cache.Delete(ctx, attemptsKey)
		l.refuse(c, l.window)
		return
	}

	c.Header("X-RateLimit-Remaining", strconv.FormatInt(int64(l.max)-attempts, 10))
	c.Next()

	status := c.Writer.Status()
	switch {
	case l.counts(status):
		if _, err := l.cache.Incr(ctx, attemptsKey, l.window); err != nil {
			l.log.Error().Err(err).Msg("count attempt")
		}
	case l.resets(status):
		_ = l.cache.Delete(ctx, attemptsKey, cooldownKey)
	}
}

func (l *limiter) refuse(c *gin.Context, wait time.Duration) {
	minutes := int(wait.Round(time.Minute).Minutes())
	if minutes < 1 {
		minutes = 1
	}
	msg := fmt.Sprintf("Too many attempts. Try again in %d minutes.", minutes)
	c.Header("Retry-After", strconv.Itoa(int(wait.Seconds())))

	if !isAPI(c) {
		if cookie := Cookie(c); cookie != nil {
			_ = cookie.AddFlash("error", msg)
		}
		c.Redirect(http.StatusSeeOther, guard.LoginPath)
		c.Abort()
		return
	}
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error":       msg,
		"retry_after": int(wait.Seconds()),
	})
}

// emailOrIP reads the e-mail from a JSON or form body and puts the body back
// for the handler.
func emailOrIP(c *gin.Context) string {
	if c.Request.Body == nil {
		return c.ClientIP()
	}
	body, err := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil || len(body) == 0 {
		return c.ClientIP()
	}

	var email string
	if strings.HasPrefix(c.ContentType(), "application/json") {
		var in struct {
			Email string `json:"email"`
		}
		if json.Unmarshal(body, &in) == nil {
			email = in.Email
		}
	} else if values, err := url.ParseQuery(string(body)); err == nil {
		email = values.Get("email")
	}
	if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
		return email
	}
	return c.ClientIP()
}
