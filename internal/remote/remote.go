// Package remote is the boundary to the backend that owns every persisted
// document: point reads and writes plus live subscriptions that push full
// snapshots whenever the watched data changes.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("document not found")
	ErrExists   = errors.New("document already exists")
)

// Data is a JSON-compatible document body.
type Data map[string]any

// Document is one stored record.
type Document struct {
	ID   string
	Data Data
}

// Unsubscribe closes a live subscription. Calling it more than once is safe.
type Unsubscribe func()

// DocumentFunc receives the current snapshot of a watched document; nil means
// the document does not exist.
type DocumentFunc func(doc *Document)

// QueryFunc receives the complete result set of a watched collection, ordered
// by document id.
type QueryFunc func(docs []Document)

// Documents is the document side of the remote store.
//
// Watch* push the current state once before returning control to the event
// stream and again after each change. Pushes of one subscription arrive in
// order on a single goroutine; a write never updates a subscriber
// synchronously.
type Documents interface {
	Get(ctx context.Context, collection, id string) (*Document, error)
	Add(ctx context.Context, collection string, data Data) (string, error)
	Set(ctx context.Context, collection, id string, data Data) error
	// Create writes data only when no document has the id; otherwise it
	// returns ErrExists and leaves the stored document alone.
	Create(ctx context.Context, collection, id string, data Data) error
	Update(ctx context.Context, collection, id string, data Data) error
	Delete(ctx context.Context, collection, id string) error
	WatchDocument(ctx context.Context, collection, id string, fn DocumentFunc) (Unsubscribe, error)
	WatchQuery(ctx context.Context, collection string, fn QueryFunc) (Unsubscribe, error)
}

// Encode turns a JSON-tagged value into a document body.
func Encode(v any) (Data, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("remote: encode: %w", err)
	}
	var d Data
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("remote: encode: %w", err)
	}
	return d, nil
}

// Decode fills v from a document body.
func Decode(d Data, v any) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("remote: decode: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("remote: decode: %w", err)
	}
	return nil
}

// Merge applies the top-level fields of patch over base and returns a new body.
func Merge(base, patch Data) Data {
	out := make(Data, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// Clone returns a deep copy of d so that subscribers never share mutable state
// with the store.
func Clone(d Data) Data {
	if d == nil {
		return nil
	}
	out := make(Data, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return map[string]any(Clone(Data(t)))
	case Data:
		return Clone(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	default:
		return v
	}
}
