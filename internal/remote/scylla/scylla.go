// Package scylla stores documents in a single ScyllaDB table and turns the
// broker into a change feed: every write publishes the changed document id on
// "docs:<collection>" and watchers reload on each message.
package scylla

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"storefront/internal/broker"
	"storefront/internal/remote"
)

type Store struct {
	table  table
	broker broker.Broker
	log    zerolog.Logger
}

func New(session *gocql.Session, b broker.Broker, log zerolog.Logger) *Store {
	return &Store{table: cqlTable{session: session}, broker: b, log: log}
}

func topic(collection string) string { return "docs:" + collection }

func (s *Store) Get(ctx context.Context, collection, id string) (*remote.Document, error) {
	body, err := s.table.get(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	data, err := decodeBody(body)
	if err != nil {
		return nil, err
	}
	return &remote.Document{ID: id, Data: data}, nil
}

func (s *Store) Add(ctx context.Context, collection string, data remote.Data) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, data remote.Data) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("scylla: encode %s/%s: %w", collection, id, err)
	}
	if err := s.table.put(ctx, collection, id, string(body)); err != nil {
		return fmt.Errorf("scylla: write %s/%s: %w", collection, id, err)
	}
	s.changed(ctx, collection, id)
	return nil
}

// Create is a lightweight transaction, so it is serialized against other
// Creates of the same id.
func (s *Store) Create(ctx context.Context, collection, id string, data remote.Data) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("scylla: encode %s/%s: %w", collection, id, err)
	}
	applied, err := s.table.insert(ctx, collection, id, string(body))
	if err != nil {
		return fmt.Errorf("scylla: create %s/%s: %w", collection, id, err)
	}
	if !applied {
		return remote.ErrExists
	}
	s.changed(ctx, collection, id)
	return nil
}

// Update reads, merges and rewrites. Concurrent updates of one document race;
// the last write wins.
func (s *Store) Update(ctx context.Context, collection, id string, data remote.Data) error {
	current, err := s.Get(ctx, collection, id)
	if err != nil {
		return err
	}
	return s.Set(ctx, collection, id, remote.Merge(current.Data, data))
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := s.table.del(ctx, collection, id); err != nil {
		return fmt.Errorf("scylla: delete %s/%s: %w", collection, id, err)
	}
	s.changed(ctx, collection, id)
	return nil
}

// changed publishes a change notice. The write already succeeded, so a failed
// publish is only logged; watchers catch up on the next change.
func (s *Store) changed(ctx context.Context, collection, id string) {
	if err := s.broker.Publish(ctx, topic(collection), []byte(id)); err != nil {
		s.log.Warn().Err(err).Str("collection", collection).Str("id", id).Msg("change notice not published")
	}
}

func (s *Store) WatchDocument(ctx context.Context, collection, id string, fn remote.DocumentFunc) (remote.Unsubscribe, error) {
	load := func(ctx context.Context) {
		doc, err := s.Get(ctx, collection, id)
		switch {
		case err == nil:
			fn(doc)
		case errors.Is(err, remote.ErrNotFound):
			fn(nil)
		default:
			s.log.Error().Err(err).Str("collection", collection).Str("id", id).Msg("watch reload failed")
		}
	}
	return s.watch(ctx, collection, func(changed string) bool { return changed == id }, load)
}

func (s *Store) WatchQuery(ctx context.Context, collection string, fn remote.QueryFunc) (remote.Unsubscribe, error) {
	load := func(ctx context.Context) {
		docs, err := s.list(ctx, collection)
		if err != nil {
			s.log.Error().Err(err).Str("collection", collection).Msg("watch reload failed")
			return
		}
		fn(docs)
	}
	return s.watch(ctx, collection, func(string) bool { return true }, load)
}

// watch subscribes before the first load so that no change between the load
// and the subscription is lost. Reloads run on one goroutine, in order.
func (s *Store) watch(ctx context.Context, collection string, match func(id string) bool, load func(context.Context)) (remote.Unsubscribe, error) {
	sub, err := s.broker.Subscribe(ctx, topic(collection))
	if err != nil {
		return nil, fmt.Errorf("scylla: watch %s: %w", collection, err)
	}
	wctx, cancel := context.WithCancel(context.Background())
	go func() {
		load(wctx)
		for msg := range sub.C() {
			if wctx.Err() != nil {
				return
			}
			if match(string(msg)) {
				load(wctx)
			}
		}
	}()
	return remote.CloseOnDone(ctx, func() {
		cancel()
		_ = sub.Close()
	}), nil
}

func (s *Store) list(ctx context.Context, collection string) ([]remote.Document, error) {
	rows, err := s.table.list(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("scylla: list %s: %w", collection, err)
	}
	docs := make([]remote.Document, 0, len(rows))
	for _, r := range rows {
		data, err := decodeBody(r.body)
		if err != nil {
			return nil, err
		}
		docs = append(docs, remote.Document{ID: r.id, Data: data})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func decodeBody(body string) (remote.Data, error) {
	var data remote.Data
	if err := json.Unmarshal([]byte(body), &data); err != nil {
		return nil, fmt.Errorf("scylla: decode body: %w", err)
	}
	return data, nil
}
