// Package firestoredb backs the remote store with Cloud Firestore. Live
// subscriptions are Firestore snapshot listeners.
package firestoredb

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"storefront/internal/remote"
)

type Store struct {
	client *firestore.Client
	log    zerolog.Logger
}

func New(client *firestore.Client, log zerolog.Logger) *Store {
	return &Store{client: client, log: log}
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func isAlreadyExists(err error) bool {
	return status.Code(err) == codes.AlreadyExists
}

// stopped reports whether a listener ended because it was closed.
func stopped(err error) bool {
	return errors.Is(err, iterator.Done) || errors.Is(err, context.Canceled) || status.Code(err) == codes.Canceled
}

func toDocument(snap *firestore.DocumentSnapshot) *remote.Document {
	if snap == nil || !snap.Exists() {
		return nil
	}
	return &remote.Document{ID: snap.Ref.ID, Data: remote.Data(snap.Data())}
}

func (s *Store) Get(ctx context.Context, collection, id string) (*remote.Document, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if isNotFound(err) {
		return nil, remote.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("firestore: get %s/%s: %w", collection, id, err)
	}
	return toDocument(snap), nil
}

func (s *Store) Add(ctx context.Context, collection string, data remote.Data) (string, error) {
	ref, _, err := s.client.Collection(collection).Add(ctx, map[string]any(data))
	if err != nil {
		return "", fmt.Errorf("firestore: add %s: %w", collection, err)
	}
	return ref.ID, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, data remote.Data) error {
	if _, err := s.client.Collection(collection).Doc(id).Set(ctx, map[string]any(data)); err != nil {
		return fmt.Errorf("firestore: set %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, collection, id string, data remote.Data) error {
	_, err := s.client.Collection(collection).Doc(id).Create(ctx, map[string]any(data))
	if isAlreadyExists(err) {
		return remote.ErrExists
	}
	if err != nil {
		return fmt.Errorf("firestore: create %s/%s: %w", collection, id, err)
	}
	return nil
}

// Update writes the top-level fields of data. Firestore rejects the update
// when the document does not exist.
func (s *Store) Update(ctx context.Context, collection, id string, data remote.Data) error {
	updates := make([]firestore.Update, 0, len(data))
	for k, v := range data {
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{k}, Value: v})
	}
	_, err := s.client.Collection(collection).Doc(id).Update(ctx, updates)
	if isNotFound(err) {
		return remote.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("firestore: update %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.client.Collection(collection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("firestore: delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) WatchDocument(ctx context.Context, collection, id string, fn remote.DocumentFunc) (remote.Unsubscribe, error) {
	wctx, cancel := context.WithCancel(context.Background())
	it := s.client.Collection(collection).Doc(id).Snapshots(wctx)
	go func() {
		for {
			snap, err := it.Next()
			if err != nil {
				if !stopped(err) {
					s.log.Error().Err(err).Str("collection", collection).Str("id", id).Msg("document listener failed")
				}
				return
			}
			fn(toDocument(snap))
		}
	}()
	return remote.CloseOnDone(ctx, func() {
		cancel()
		it.Stop()
	}), nil
}

func (s *Store) WatchQuery(ctx context.Context, collection string, fn remote.QueryFunc) (remote.Unsubscribe, error) {
	wctx, cancel := context.WithCancel(context.Background())
	it := s.client.Collection(collection).OrderBy(firestore.DocumentID, firestore.Asc).Snapshots(wctx)
	go func() {
		for {
			qs, err := it.Next()
			if err != nil {
				if !stopped(err) {
					s.log.Error().Err(err).Str("collection", collection).Msg("query listener failed")
				}
				return
			}
			snaps, err := qs.Documents.GetAll()
			if err != nil {
				s.log.Error().Err(err).Str("collection", collection).Msg("query snapshot unreadable")
				continue
			}
			docs := make([]remote.Document, 0, len(snaps))
			for _, snap := range snaps {
				if doc := toDocument(snap); doc != nil {
					docs = append(docs, *doc)
				}
			}
			fn(docs)
		}
	}()
	return remote.CloseOnDone(ctx, func() {
		cancel()
		it.Stop()
	}), nil
}
