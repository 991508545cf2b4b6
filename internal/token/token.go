// Package token issues and verifies the bearer tokens handed to API clients.
// A token carries the identity it was issued for; revoked token ids are kept
// in the cache until the token would have expired.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/models"
)

var (
	ErrInvalid = errors.New("token: invalid")
	ErrRevoked = errors.New("token: revoked")
)

type Claims struct {
	jwt.RegisteredClaims
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

func (c *Claims) Identity() models.Identity {
	return models.Identity{UID: c.UID, Email: c.Email, DisplayName: c.DisplayName}
}

type Issuer struct {
	cfg   config.JWTConfig
	cache cache.Cache
	now   func() time.Time
}

func NewIssuer(cfg config.JWTConfig, c cache.Cache) *Issuer {
	return &Issuer{cfg: cfg, cache: c, now: time.Now}
}

// Issue signs a token for id valid for the configured expiration.
func (i *Issuer) Issue(id models.Identity) (string, *Claims, error) {
	if i.cfg.Secret == "" {
		return "", nil, errors.New("token: empty secret")
	}
	now := i.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    i.cfg.Issuer,
			Subject:   id.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.Expiration)),
		},
		UID:         id.UID,
		Email:       id.Email,
		DisplayName: id.DisplayName,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(i.cfg.Secret))
	if err != nil {
		return "", nil, fmt.Errorf("token: sign: %w", err)
	}
	return signed, claims, nil
}

// Verify parses raw and rejects it when expired, forged or revoked.
func (i *Issuer) Verify(ctx context.Context, raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(i.cfg.Secret), nil
	}, jwt.WithTimeFunc(i.now), jwt.WithIssuer(i.cfg.Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if !tok.Valid || claims.UID == "" || claims.ID == "" {
		return nil, ErrInvalid
	}

	revoked, err := cache.IsRevoked(ctx, i.cache, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("token: revocation lookup: %w", err)
	}
	if revoked {
		return nil, ErrRevoked
	}
	return claims, nil
}

// Revoke blacklists claims for the rest of their lifetime.
func (i *Issuer) Revoke(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ExpiresAt == nil {
		return nil
	}
	return cache.Revoke(ctx, i.cache, claims.ID, claims.ExpiresAt.Sub(i.now()))
}
