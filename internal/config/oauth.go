package config

import (
	"errors"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/facebook"
	"github.com/markbates/goth/providers/google"
)

// OAuthProviders registers the configured goth providers and returns their
// names. Callbacks land on /auth/<provider>/callback.
func OAuthProviders(cfg *Config) []string {
	store := sessions.NewCookieStore([]byte(cfg.Session.Secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   cfg.Session.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	gothic.Store = store

	gothic.GetProviderName = func(req *http.Request) (string, error) {
		if provider := req.URL.Query().Get("provider"); provider != "" {
			return provider, nil
		}
		if provider := req.FormValue("provider"); provider != "" {
			return provider, nil
		}
		return "", errors.New("provider not found")
	}

	var providers []goth.Provider
	var names []string
	if cfg.OAuth.GoogleClientID != "" && cfg.OAuth.GoogleClientSecret != "" {
		providers = append(providers, google.New(
			cfg.OAuth.GoogleClientID,
			cfg.OAuth.GoogleClientSecret,
			cfg.App.BaseURL+"/auth/google/callback",
			"email", "profile",
		))
		names = append(names, "google")
	}
	if cfg.OAuth.FacebookClientID != "" && cfg.OAuth.FacebookClientSecret != "" {
		providers = append(providers, facebook.New(
			cfg.OAuth.FacebookClientID,
			cfg.OAuth.FacebookClientSecret,
			cfg.App.BaseURL+"/auth/facebook/callback",
			"email",
		))
		names = append(names, "facebook")
	}
	if len(providers) > 0 {
		goth.UseProviders(providers...)
	}
	return names
}
