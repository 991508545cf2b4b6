// Package database opens the connections the storefront depends on. Every
// constructor verifies the connection before returning it.
package database

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gocql/gocql"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"storefront/internal/config"
)

// =============================================
// SCYLLA DB
// =============================================

func scyllaCluster(cfg config.ScyllaConfig) *gocql.ClusterConfig {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = cfg.Timeout
	cluster.NumConns = cfg.NumConns
	cluster.MaxWaitSchemaAgreement = 30 * time.Second
	cluster.ReconnectInterval = time.Second
	if cfg.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}
	if cfg.SSLEnabled {
		cluster.SslOpts = &gocql.SslOptions{
			CaPath:                 cfg.CACertPath,
			EnableHostVerification: cfg.CACertPath != "",
		}
	}
	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())
	return cluster
}

// ConnectScylla opens a session on the configured keyspace.
func ConnectScylla(cfg config.ScyllaConfig, log zerolog.Logger) (*gocql.Session, error) {
	session, err := scyllaCluster(cfg).CreateSession()
	if err != nil {
		return nil, fmt.Errorf("database: scylla session for %s: %w", cfg.Keyspace, err)
	}
	if err := session.Query("SELECT now() FROM system.local").Exec(); err != nil {
		session.Close()
		return nil, fmt.Errorf("database: scylla ping: %w", err)
	}
	log.Info().Str("keyspace", cfg.Keyspace).Strs("hosts", cfg.Hosts).Msg("connected to scylla")
	return session, nil
}

// =============================================
// REDIS
// =============================================

func ConnectRedis(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("database: redis ping: %w", err)
	}
	log.Info().Str("addr", cfg.Addr).Msg("connected to redis")
	return client, nil
}

// =============================================
// ELASTICSEARCH
// =============================================

func ConnectElastic(cfg config.ElasticConfig, log zerolog.Logger) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.User,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("database: elastic client: %w", err)
	}
	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("database: elastic info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("database: elastic info: %s", res.Status())
	}
	log.Info().Str("url", cfg.URL).Msg("connected to elasticsearch")
	return client, nil
}

// =============================================
// MINIO
// =============================================

// ConnectMinIO returns a client whose bucket is guaranteed to exist.
func ConnectMinIO(ctx context.Context, cfg config.MinIOConfig, log zerolog.Logger) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("database: minio client: %w", err)
	}
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("database: minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("database: minio make bucket %s: %w", cfg.Bucket, err)
		}
		log.Info().Str("bucket", cfg.Bucket).Msg("created minio bucket")
	}
	log.Info().Str("endpoint", cfg.Endpoint).Msg("connected to minio")
	return client, nil
}

// =============================================
// FIREBASE
// =============================================

// Firebase groups the clients of one Firebase project.
type Firebase struct {
	App       *firebase.App
	Firestore *firestore.Client
	Auth      *firebaseauth.Client
}

func (f *Firebase) Close() error {
	if f == nil || f.Firestore == nil {
		return nil
	}
	return f.Firestore.Close()
}

// ConnectFirebase uses the credentials file when given and Application
// Default Credentials otherwise.
func ConnectFirebase(ctx context.Context, cfg config.FirebaseConfig, log zerolog.Logger) (*Firebase, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("database: firebase app (project=%s): %w", cfg.ProjectID, err)
	}
	fs, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("database: firestore client: %w", err)
	}
	auth, err := app.Auth(ctx)
	if err != nil {
		_ = fs.Close()
		return nil, fmt.Errorf("database: firebase auth client: %w", err)
	}
	log.Info().Str("project", cfg.ProjectID).Msg("connected to firebase")
	return &Firebase{App: app, Firestore: fs, Auth: auth}, nil
}
