package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"storefront/internal/authz"
	"storefront/internal/broker"
	"storefront/internal/cache"
	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handlers"
	"storefront/internal/identity"
	"storefront/internal/logger"
	"storefront/internal/mailer"
	"storefront/internal/media"
	"storefront/internal/middleware"
	"storefront/internal/remote"
	"storefront/internal/remote/firestoredb"
	"storefront/internal/remote/memstore"
	"storefront/internal/remote/scylla"
	"storefront/internal/routes"
	"storefront/internal/search"
	"storefront/internal/session"
	"storefront/internal/token"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	lg := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, lg); err != nil {
		lg.Fatal().Err(err).Msg("storefront stopped")
	}
}

// backends are the connections run opened; close releases them in reverse.
type backends struct {
	docs     remote.Documents
	broker   broker.Broker
	cache    cache.Cache
	verifier identity.TokenVerifier
	closers  []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func connect(ctx context.Context, cfg *config.Config, lg zerolog.Logger) (*backends, error) {
	b := &backends{broker: broker.NewMemory(), cache: cache.NewMemory()}

	if cfg.Redis.Enabled() {
		rdb, err := database.ConnectRedis(ctx, cfg.Redis, lg)
		if err != nil {
			return b, err
		}
		b.closers = append(b.closers, func() { _ = rdb.Close() })
		b.broker = broker.NewRedis(rdb)
		b.cache = cache.NewRedis(rdb, cfg.App.Name+":")
	}

	switch cfg.Store.Backend {
	case config.BackendScylla:
		sess, err := database.ConnectScylla(cfg.Scylla, lg)
		if err != nil {
			return b, err
		}
		b.closers = append(b.closers, sess.Close)
		if err := scylla.EnsureSchema(sess); err != nil {
			return b, fmt.Errorf("scylla schema: %w", err)
		}
		b.docs = scylla.New(sess, b.broker, lg)
	case config.BackendFirestore:
		fb, err := database.ConnectFirebase(ctx, cfg.Firebase, lg)
		if err != nil {
			return b, err
		}
		b.closers = append(b.closers, func() { _ = fb.Close() })
		b.docs = firestoredb.New(fb.Firestore, lg)
		b.verifier = fb.Auth
	default:
		b.docs = memstore.New()
	}

	// Firebase ID-token sign-in works with any document backend.
	if b.verifier == nil && cfg.Firebase.ProjectID != "" {
		fb, err := database.ConnectFirebase(ctx, cfg.Firebase, lg)
		if err != nil {
			return b, err
		}
		b.closers = append(b.closers, func() { _ = fb.Close() })
		b.verifier = fb.Auth
	}
	lg.Info().Str("backend", cfg.Store.Backend).Bool("redis", cfg.Redis.Enabled()).Msg("remote store ready")
	return b, nil
}

func run(ctx context.Context, cfg *config.Config, lg zerolog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	b, err := connect(ctx, cfg, lg)
	defer b.close()
	if err != nil {
		return err
	}

	var opts []identity.Option
	if cfg.SMTP.Enabled() {
		opts = append(opts, identity.WithWelcomer(mailer.New(cfg.SMTP, cfg.App, lg)))
	}
	if b.verifier != nil {
		opts = append(opts, identity.WithTokenVerifier(b.verifier))
	}
	ids := identity.New(b.docs, lg, opts...)

	products := catalog.NewService(b.docs, lg)
	mirror := catalog.NewSubscription(b.docs)

	var searcher search.Searcher = search.NewLocal(mirror.Products)
	var syncer *search.Syncer
	if cfg.Elastic.Enabled() {
		es, err := database.ConnectElastic(cfg.Elastic, lg)
		if err != nil {
			return err
		}
		index := search.New(es, cfg.Elastic.Index, lg)
		if err := index.EnsureIndex(ctx); err != nil {
			return err
		}
		syncer = search.NewSyncer(index, lg)
		defer mirror.OnChange(syncer.Offer)()
		go syncer.Run(ctx)
		searcher = index
	}
	if err := mirror.Mount(ctx); err != nil {
		return fmt.Errorf("catalog mirror: %w", err)
	}
	defer mirror.Unmount()

	var uploader media.Uploader
	if cfg.MinIO.Enabled() {
		mc, err := database.ConnectMinIO(ctx, cfg.MinIO, lg)
		if err != nil {
			return err
		}
		uploader = media.NewMinIO(mc, cfg.MinIO)
	}

	tokens := token.NewIssuer(cfg.JWT, b.cache)
	policy := authz.New(cfg.Admin.Emails, b.docs, lg)

	h := handlers.New(handlers.Deps{
		Log:        lg,
		Docs:       b.docs,
		Identities: ids,
		Tokens:     tokens,
		Policy:     policy,
		Catalog:    products,
		Mirror:     mirror,
		Carts:      cart.NewService(b.docs, products, lg),
		Search:     searcher,
		Media:      uploader,
		Providers:  config.OAuthProviders(cfg),
	})
	router := routes.New(h, routes.Options{
		Log:       lg,
		HTTP:      cfg.HTTP,
		RateLimit: cfg.RateLimit,
		Cookies:   session.NewCookieStore(cfg.Session.Secret, cfg.Session.Secure, cfg.Session.MaxAge),
		Auth:      &middleware.Auth{Identities: ids, Tokens: tokens, Log: lg},
		Policy:    policy,
		Cache:     b.cache,
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Live sockets are hijacked and outlive Shutdown; they end with ctx.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	errc := make(chan error, 1)
	go func() {
		lg.Info().Str("addr", srv.Addr).Str("env", cfg.App.Env).Msg("storefront listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		lg.Info().Msg("shutting down")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	cancel()
	if syncer != nil {
		syncer.Wait()
	}
	return nil
}
