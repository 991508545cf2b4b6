// Package config reads the storefront configuration from the environment.
// A .env file in the working directory is loaded first; real environment
// variables always win.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendMemory    = "memory"
	BackendScylla    = "scylla"
	BackendFirestore = "firestore"
)

type Config struct {
	App       AppConfig
	HTTP      HTTPConfig
	Log       LogConfig
	Session   SessionConfig
	Store     StoreConfig
	Scylla    ScyllaConfig
	Redis     RedisConfig
	Elastic   ElasticConfig
	MinIO     MinIOConfig
	Firebase  FirebaseConfig
	OAuth     OAuthConfig
	SMTP      SMTPConfig
	JWT       JWTConfig
	Admin     AdminConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Env     string // development, production
	Name    string
	BaseURL string
}

type HTTPConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type LogConfig struct {
	Level string
}

type SessionConfig struct {
	Secret string
	MaxAge time.Duration // lifetime of a "remember me" session
	Secure bool
}

// StoreConfig selects the remote store implementation.
type StoreConfig struct {
	Backend string
}

type ScyllaConfig struct {
	Hosts      []string
	Keyspace   string
	Username   string
	Password   string
	SSLEnabled bool
	CACertPath string
	Timeout    time.Duration
	NumConns   int
}

// RedisConfig is optional; without an address the broker and the cache run
// in-process.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (c RedisConfig) Enabled() bool { return c.Addr != "" }

type ElasticConfig struct {
	URL      string
	User     string
	Password string
	Index    string
}

func (c ElasticConfig) Enabled() bool { return c.URL != "" }

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	PublicURL string
}

func (c MinIOConfig) Enabled() bool { return c.Endpoint != "" }

type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

type OAuthConfig struct {
	GoogleClientID       string
	GoogleClientSecret   string
	FacebookClientID     string
	FacebookClientSecret string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (c SMTPConfig) Enabled() bool { return c.Host != "" }

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

// AdminConfig lists the e-mail addresses allowed to manage the catalog.
type AdminConfig struct {
	Emails []string
}

type RateLimitConfig struct {
	LoginAttempts int
	Window        time.Duration
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_NAME", "storefront")
	v.SetDefault("BASE_URL", "http://localhost:8080")
	v.SetDefault("HTTP_HOST", "0.0.0.0")
	v.SetDefault("PORT", 8080)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SESSION_MAX_AGE", "720h")
	v.SetDefault("STORE_BACKEND", BackendMemory)
	v.SetDefault("SCYLLA_HOSTS", "127.0.0.1")
	v.SetDefault("SCYLLA_KEYSPACE", "storefront")
	v.SetDefault("SCYLLA_TIMEOUT", "5s")
	v.SetDefault("SCYLLA_NUM_CONNS", 20)
	v.SetDefault("ELASTIC_INDEX", "products")
	v.SetDefault("MINIO_BUCKET", "product-images")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_FROM", "no-reply@storefront.local")
	v.SetDefault("JWT_EXPIRATION", "1h")
	v.SetDefault("JWT_ISSUER", "storefront")
	v.SetDefault("LOGIN_RATE_LIMIT", 10)
	v.SetDefault("LOGIN_RATE_WINDOW", "1m")
}

// FromViper builds a Config out of v and validates it.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Env:     v.GetString("APP_ENV"),
			Name:    v.GetString("APP_NAME"),
			BaseURL: strings.TrimRight(v.GetString("BASE_URL"), "/"),
		},
		HTTP: HTTPConfig{
			Host:           v.GetString("HTTP_HOST"),
			Port:           v.GetInt("PORT"),
			AllowedOrigins: splitList(v.GetString("CORS_ORIGINS")),
		},
		Log: LogConfig{Level: v.GetString("LOG_LEVEL")},
		Session: SessionConfig{
			Secret: v.GetString("SESSION_SECRET"),
			MaxAge: v.GetDuration("SESSION_MAX_AGE"),
			Secure: v.GetBool("SESSION_SECURE"),
		},
		Store: StoreConfig{Backend: strings.ToLower(v.GetString("STORE_BACKEND"))},
		Scylla: ScyllaConfig{
			Hosts:      splitList(v.GetString("SCYLLA_HOSTS")),
			Keyspace:   v.GetString("SCYLLA_KEYSPACE"),
			Username:   v.GetString("SCYLLA_USERNAME"),
			Password:   v.GetString("SCYLLA_PASSWORD"),
			SSLEnabled: v.GetBool("SCYLLA_SSL_ENABLED"),
			CACertPath: v.GetString("SCYLLA_SSL_CA_PATH"),
			Timeout:    v.GetDuration("SCYLLA_TIMEOUT"),
			NumConns:   v.GetInt("SCYLLA_NUM_CONNS"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_HOST"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Elastic: ElasticConfig{
			URL:      v.GetString("ELASTIC_URL"),
			User:     v.GetString("ELASTIC_USER"),
			Password: v.GetString("ELASTIC_PASSWORD"),
			Index:    v.GetString("ELASTIC_INDEX"),
		},
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
			Bucket:    v.GetString("MINIO_BUCKET"),
			PublicURL: strings.TrimRight(v.GetString("MINIO_PUBLIC_URL"), "/"),
		},
		Firebase: FirebaseConfig{
			ProjectID:       v.GetString("FIREBASE_PROJECT_ID"),
			CredentialsFile: v.GetString("GOOGLE_APPLICATION_CREDENTIALS"),
		},
		OAuth: OAuthConfig{
			GoogleClientID:       v.GetString("GOOGLE_CLIENT_ID"),
			GoogleClientSecret:   v.GetString("GOOGLE_CLIENT_SECRET"),
			FacebookClientID:     v.GetString("FACEBOOK_CLIENT_ID"),
			FacebookClientSecret: v.GetString("FACEBOOK_CLIENT_SECRET"),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("SMTP_FROM"),
		},
		JWT: JWTConfig{
			Secret:     v.GetString("JWT_SECRET"),
			Expiration: v.GetDuration("JWT_EXPIRATION"),
			Issuer:     v.GetString("JWT_ISSUER"),
		},
		Admin: AdminConfig{Emails: lowerAll(splitList(v.GetString("ADMIN_EMAILS")))},
		RateLimit: RateLimitConfig{
			LoginAttempts: v.GetInt("LOGIN_RATE_LIMIT"),
			Window:        v.GetDuration("LOGIN_RATE_WINDOW"),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool { return c.App.Env == "production" }

func (c *Config) validate() error {
	if c.Session.Secret == "" {
		return fmt.Errorf("config: SESSION_SECRET is required")
	}
	switch c.Store.Backend {
	case BackendMemory:
	case BackendScylla:
		if len(c.Scylla.Hosts) == 0 {
			return fmt.Errorf("config: SCYLLA_HOSTS is required for the scylla backend")
		}
	case BackendFirestore:
		if c.Firebase.ProjectID == "" {
			return fmt.Errorf("config: FIREBASE_PROJECT_ID is required for the firestore backend")
		}
	default:
		return fmt.Errorf("config: unknown STORE_BACKEND %q", c.Store.Backend)
	}
	if c.JWT.Secret == "" {
		// Bearer tokens are signed with the session secret unless told otherwise.
		c.JWT.Secret = c.Session.Secret
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func lowerAll(in []string) []string {
	for i := range in {
		in[i] = strings.ToLower(in[i])
	}
	return in
}
