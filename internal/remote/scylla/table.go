package scylla

import (
	"context"
	"errors"
	"time"

	"github.com/gocql/gocql"

	"storefront/internal/remote"
)

const schema = `CREATE TABLE IF NOT EXISTS documents (
	collection text,
	id         text,
	body       text,
	updated_at timestamp,
	PRIMARY KEY (collection, id)
) WITH CLUSTERING ORDER BY (id ASC)`

type row struct {
	id   string
	body string
}

// table is the storage the Store reads and writes through.
type table interface {
	get(ctx context.Context, collection, id string) (string, error)
	put(ctx context.Context, collection, id, body string) error
	insert(ctx context.Context, collection, id, body string) (applied bool, err error)
	del(ctx context.Context, collection, id string) error
	list(ctx context.Context, collection string) ([]row, error)
}

type cqlTable struct {
	session *gocql.Session
}

// EnsureSchema creates the documents table in the session's keyspace.
func EnsureSchema(session *gocql.Session) error {
	return session.Query(schema).Exec()
}

func (t cqlTable) get(ctx context.Context, collection, id string) (string, error) {
	var body string
	err := t.session.Query(`SELECT body FROM documents WHERE collection = ? AND id = ?`,
		collection, id).WithContext(ctx).Scan(&body)
	if errors.Is(err, gocql.ErrNotFound) {
		return "", remote.ErrNotFound
	}
	return body, err
}

func (t cqlTable) put(ctx context.Context, collection, id, body string) error {
	return t.session.Query(`INSERT INTO documents (collection, id, body, updated_at) VALUES (?, ?, ?, ?)`,
		collection, id, body, time.Now().UTC()).WithContext(ctx).Exec()
}

func (t cqlTable) insert(ctx context.Context, collection, id, body string) (bool, error) {
	existing := map[string]any{}
	return t.session.Query(`INSERT INTO documents (collection, id, body, updated_at) VALUES (?, ?, ?, ?) IF NOT EXISTS`,
		collection, id, body, time.Now().UTC()).WithContext(ctx).MapScanCAS(existing)
}

func (t cqlTable) del(ctx context.Context, collection, id string) error {
	return t.session.Query(`DELETE FROM documents WHERE collection = ? AND id = ?`,
		collection, id).WithContext(ctx).Exec()
}

func (t cqlTable) list(ctx context.Context, collection string) ([]row, error) {
	iter := t.session.Query(`SELECT id, body FROM documents WHERE collection = ?`,
		collection).WithContext(ctx).Iter()
	var (
		out      []row
		id, body string
	)
	for iter.Scan(&id, &body) {
		out = append(out, row{id: id, body: body})
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return out, nil
}
