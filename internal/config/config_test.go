package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testViper(values map[string]any) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for k, val := range values {
		v.Set(k, val)
	}
	return v
}

func TestFromViperDefaults(t *testing.T) {
	cfg, err := FromViper(testViper(map[string]any{"SESSION_SECRET": "s3cret"}))
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.Equal(t, 720*time.Hour, cfg.Session.MaxAge)
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Elastic.Enabled())
	assert.False(t, cfg.IsProduction())
}

func TestFromViperLists(t *testing.T) {
	cfg, err := FromViper(testViper(map[string]any{
		"SESSION_SECRET": "x",
		"ADMIN_EMAILS":   " Admin@Shop.io, ops@shop.io ,",
		"SCYLLA_HOSTS":   "10.0.0.1,10.0.0.2",
		"BASE_URL":       "https://shop.io/",
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{"admin@shop.io", "ops@shop.io"}, cfg.Admin.Emails)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.Scylla.Hosts)
	assert.Equal(t, "https://shop.io", cfg.App.BaseURL)
}

func TestFromViperRejectsInvalid(t *testing.T) {
	_, err := FromViper(testViper(nil))
	assert.ErrorContains(t, err, "SESSION_SECRET")

	_, err = FromViper(testViper(map[string]any{"SESSION_SECRET": "x", "STORE_BACKEND": "mongo"}))
	assert.ErrorContains(t, err, "unknown STORE_BACKEND")

	_, err = FromViper(testViper(map[string]any{"SESSION_SECRET": "x", "STORE_BACKEND": "firestore"}))
	assert.ErrorContains(t, err, "FIREBASE_PROJECT_ID")
}
