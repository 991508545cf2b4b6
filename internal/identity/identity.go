// Package identity owns accounts and sign-in sessions: password and federated
// sign-in, profile updates and the current-session change notifications the
// auth guard subscribes to.
package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"storefront/internal/models"
	"storefront/internal/remote"
)

const (
	accountsCollection = "accounts"
	emailsCollection   = "account_emails"
	sessionsCollection = "sessions"

	minPasswordLength = 6
)

// Persistence is how long a sign-in outlives the browser session.
type Persistence string

const (
	// PersistSession ends when the browser closes.
	PersistSession Persistence = "session"
	// PersistLocal lasts until an explicit sign-out.
	PersistLocal Persistence = "local"
)

// FederatedUser is what an external identity provider vouches for.
type FederatedUser struct {
	Provider   string
	ProviderID string
	Email      string
	Name       string
}

// Welcomer greets new accounts. Failures never fail the sign-up.
type Welcomer interface {
	Welcome(ctx context.Context, id models.Identity) error
}

// TokenVerifier checks Firebase ID tokens; *auth.Client satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type account struct {
	UID          string    `json:"uid"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	Provider     string    `json:"provider"`
	ProviderID   string    `json:"providerId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (a account) identity() models.Identity {
	return models.Identity{UID: a.UID, Email: a.Email, DisplayName: models.DefaultDisplayName(a.DisplayName, a.Email)}
}

type emailIndex struct {
	UID string `json:"uid"`
}

type sessionRecord struct {
	UID         string      `json:"uid"`
	Email       string      `json:"email"`
	DisplayName string      `json:"displayName"`
	Persistence Persistence `json:"persistence"`
	CreatedAt   time.Time   `json:"createdAt"`
}

type Service struct {
	docs     remote.Documents
	log      zerolog.Logger
	welcomer Welcomer
	verifier TokenVerifier
	validate *validator.Validate
	now      func() time.Time
	newID    func() string
}

type Option func(*Service)

func WithWelcomer(w Welcomer) Option { return func(s *Service) { s.welcomer = w } }

func WithTokenVerifier(v TokenVerifier) Option { return func(s *Service) { s.verifier = v } }

func New(docs remote.Documents, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		docs:     docs,
		log:      log,
		validate: validator.New(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateAccount registers an e-mail/password account. An empty display name
// defaults to the local part of the e-mail.
func (s *Service) CreateAccount(ctx context.Context, email, password, displayName string) (models.Identity, error) {
	email = strings.TrimSpace(email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return models.Identity{}, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return models.Identity{}, ErrWeakPassword
	}
	if _, err := s.lookupEmail(ctx, email); err == nil {
		return models.Identity{}, ErrEmailInUse
	} else if !errors.Is(err, remote.ErrNotFound) {
		return models.Identity{}, networkError(err)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return models.Identity{}, err
	}
	acc := account{
		UID:          s.newID(),
		Email:        email,
		DisplayName:  models.DefaultDisplayName(strings.TrimSpace(displayName), email),
		PasswordHash: hash,
		Provider:     "password",
		CreatedAt:    s.now().UTC(),
	}
	if err := s.insert(ctx, acc); err != nil {
		return models.Identity{}, err
	}
	s.log.Info().Str("uid", acc.UID).Msg("account created")
	s.welcome(acc.identity())
	return acc.identity(), nil
}

func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (models.Identity, error) {
	acc, err := s.lookupEmail(ctx, email)
	if errors.Is(err, remote.ErrNotFound) {
		return models.Identity{}, ErrInvalidCredential
	}
	if err != nil {
		return models.Identity{}, networkError(err)
	}
	if acc.PasswordHash == "" {
		return models.Identity{}, ErrInvalidCredential
	}
	ok, err := verifyPassword(password, acc.PasswordHash)
	if err != nil {
		s.log.Error().Err(err).Str("uid", acc.UID).Msg("stored password hash unreadable")
		return models.Identity{}, ErrInvalidCredential
	}
	if !ok {
		return models.Identity{}, ErrInvalidCredential
	}
	return acc.identity(), nil
}

// SignInWithProvider finds the account owning the provider's e-mail, creating
// it on first sign-in.
func (s *Service) SignInWithProvider(ctx context.Context, fu FederatedUser) (models.Identity, error) {
	email := strings.TrimSpace(fu.Email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return models.Identity{}, ErrInvalidEmail
	}
	acc, err := s.lookupEmail(ctx, email)
	if err == nil {
		return acc.identity(), nil
	}
	if !errors.Is(err, remote.ErrNotFound) {
		return models.Identity{}, networkError(err)
	}

	acc = account{
		UID:         s.newID(),
		Email:       email,
		DisplayName: models.DefaultDisplayName(strings.TrimSpace(fu.Name), email),
		Provider:    fu.Provider,
		ProviderID:  fu.ProviderID,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.insert(ctx, acc); errors.Is(err, ErrEmailInUse) {
		existing, lerr := s.lookupEmail(ctx, email)
		if lerr != nil {
			return models.Identity{}, networkError(lerr)
		}
		return existing.identity(), nil
	} else if err != nil {
		return models.Identity{}, err
	}
	s.log.Info().Str("uid", acc.UID).Str("provider", fu.Provider).Msg("account created from provider")
	s.welcome(acc.identity())
	return acc.identity(), nil
}

// SignInWithIDToken accepts a Firebase ID token minted by a client-side
// Firebase sign-in.
func (s *Service) SignInWithIDToken(ctx context.Context, idToken string) (models.Identity, error) {
	if s.verifier == nil {
		return models.Identity{}, ErrProviderDisabled
	}
	tok, err := s.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		return models.Identity{}, &Error{Code: ErrInvalidToken.Code, Message: ErrInvalidToken.Message, Err: err}
	}
	// An unverified address proves nothing about who owns it.
	if verified, _ := tok.Claims["email_verified"].(bool); !verified {
		return models.Identity{}, ErrUnverifiedEmail
	}
	email, _ := tok.Claims["email"].(string)
	name, _ := tok.Claims["name"].(string)
	return s.SignInWithProvider(ctx, FederatedUser{
		Provider:   "firebase",
		ProviderID: tok.UID,
		Email:      email,
		Name:       name,
	})
}

func (s *Service) UpdateProfile(ctx context.Context, uid, displayName string) (models.Identity, error) {
	err := s.docs.Update(ctx, accountsCollection, uid, remote.Data{"displayName": strings.TrimSpace(displayName)})
	if errors.Is(err, remote.ErrNotFound) {
		return models.Identity{}, ErrUserNotFound
	}
	if err != nil {
		return models.Identity{}, networkError(err)
	}
	acc, err := s.account(ctx, uid)
	if err != nil {
		return models.Identity{}, networkError(err)
	}
	return acc.identity(), nil
}

func (s *Service) account(ctx context.Context, uid string) (account, error) {
	doc, err := s.docs.Get(ctx, accountsCollection, uid)
	if err != nil {
		return account{}, err
	}
	var acc account
	if err := remote.Decode(doc.Data, &acc); err != nil {
		return account{}, err
	}
	return acc, nil
}

func (s *Service) lookupEmail(ctx context.Context, email string) (account, error) {
	doc, err := s.docs.Get(ctx, emailsCollection, normalizeEmail(email))
	if err != nil {
		return account{}, err
	}
	var idx emailIndex
	if err := remote.Decode(doc.Data, &idx); err != nil {
		return account{}, err
	}
	return s.account(ctx, idx.UID)
}

// insert claims the e-mail index before writing the account, so two
// concurrent sign-ups for one e-mail cannot both succeed. A failed account
// write releases the claim.
func (s *Service) insert(ctx context.Context, acc account) error {
	data, err := remote.Encode(acc)
	if err != nil {
		return err
	}
	key := normalizeEmail(acc.Email)
	err = s.docs.Create(ctx, emailsCollection, key, remote.Data{"uid": acc.UID})
	if errors.Is(err, remote.ErrExists) {
		return ErrEmailInUse
	}
	if err != nil {
		return networkError(err)
	}
	if err := s.docs.Set(ctx, accountsCollection, acc.UID, data); err != nil {
		if derr := s.docs.Delete(ctx, emailsCollection, key); derr != nil {
			s.log.Error().Err(derr).Str("email", key).Msg("release e-mail claim")
		}
		return networkError(err)
	}
	return nil
}

func (s *Service) welcome(id models.Identity) {
	if s.welcomer == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.welcomer.Welcome(ctx, id); err != nil {
			s.log.Warn().Err(err).Str("uid", id.UID).Msg("welcome mail not sent")
		}
	}()
}
