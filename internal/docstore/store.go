// Package docstore is the contract the ride core uses to reach the document
// store and its change feed. Two implementations exist: Firestore for
// production and an in-memory store for tests and local runs.
package docstore

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("document not found")

// Document is one raw record as read from the store. Data holds store-native
// values: strings, bools, nil, time.Time, []any and nested maps.
type Document struct {
	ID         string
	Data       map[string]any
	CreateTime time.Time
}

// Update sets a single top-level field. Value may be one of the sentinels
// below.
type Update struct {
	Path  string
	Value any
}

type serverTimestamp struct{}

// ServerTimestamp asks the store to fill the field with its own clock.
var ServerTimestamp any = serverTimestamp{}

type arrayUnion struct {
	elems []any
}

// ArrayUnion adds elems to an array field, skipping values already present.
func ArrayUnion(elems ...any) any {
	return arrayUnion{elems: elems}
}

const (
	OpEqual = "=="
	OpIn    = "in"
)

type Filter struct {
	Field string
	Op    string
	Value any
}

type Query struct {
	Filters []Filter
	OrderBy string
	Desc    bool
}

func (q Query) Where(field, op string, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Op: op, Value: value})
	return q
}

// Snapshot is one delivery of a subscription: the full current result set plus
// the documents that entered the result set since the previous delivery.
type Snapshot struct {
	Inserted []Document
	Docs     []Document
	ReadTime time.Time
}

type Store interface {
	Create(ctx context.Context, collection string, fields map[string]any) (string, error)
	Set(ctx context.Context, collection, id string, fields map[string]any) error
	Update(ctx context.Context, collection, id string, updates []Update) error
	Get(ctx context.Context, collection, id string) (Document, error)
	List(ctx context.Context, collection string, q Query) ([]Document, error)
	// Watch streams snapshots until ctx is cancelled or the feed fails; the
	// channel is closed in both cases.
	Watch(ctx context.Context, collection string, q Query) (<-chan Snapshot, error)
}
