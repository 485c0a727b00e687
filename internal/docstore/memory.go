package docstore

import (
	"context"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store with change-feed semantics close to
// Firestore: the first delivery reports every matching document as inserted,
// later deliveries report documents that newly entered the result set.
type Memory struct {
	mu       sync.Mutex
	now      func() time.Time
	colls    map[string]map[string]*memDoc
	watchers map[*memWatcher]struct{}
}

type memDoc struct {
	data    map[string]any
	created time.Time
}

type MemoryOption func(*Memory)

// WithClock replaces the wall clock used for ServerTimestamp and CreateTime.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		now:      time.Now,
		colls:    make(map[string]map[string]*memDoc),
		watchers: make(map[*memWatcher]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Create(_ context.Context, collection string, fields map[string]any) (string, error) {
	id := uuid.NewString()
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	doc := &memDoc{data: make(map[string]any, len(fields)), created: now}
	for k, v := range fields {
		doc.data[k] = resolve(nil, v, now)
	}
	m.coll(collection)[id] = doc
	m.publishLocked(collection)
	return id, nil
}

func (m *Memory) Set(_ context.Context, collection, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	docs := m.coll(collection)
	doc, ok := docs[id]
	if !ok {
		doc = &memDoc{data: make(map[string]any), created: now}
		docs[id] = doc
	}
	for k, v := range fields {
		doc.data[k] = resolve(doc.data[k], v, now)
	}
	m.publishLocked(collection)
	return nil
}

func (m *Memory) Update(_ context.Context, collection, id string, updates []Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.coll(collection)[id]
	if !ok {
		return ErrNotFound
	}
	now := m.now()
	for _, u := range updates {
		doc.data[u.Path] = resolve(doc.data[u.Path], u.Value, now)
	}
	m.publishLocked(collection)
	return nil
}

func (m *Memory) Get(_ context.Context, collection, id string) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.coll(collection)[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc.snapshot(id), nil
}

func (m *Memory) List(_ context.Context, collection string, q Query) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queryLocked(collection, q), nil
}

func (m *Memory) Watch(ctx context.Context, collection string, q Query) (<-chan Snapshot, error) {
	w := &memWatcher{
		collection: collection,
		query:      q,
		seen:       make(map[string]bool),
		signal:     make(chan struct{}, 1),
	}
	out := make(chan Snapshot)

	m.mu.Lock()
	m.watchers[w] = struct{}{}
	w.stage(m.queryLocked(collection, q), m.now())
	m.mu.Unlock()

	go func() {
		defer close(out)
		defer func() {
			m.mu.Lock()
			delete(m.watchers, w)
			m.mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.signal:
			}
			snap, ok := w.take()
			if !ok {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case out <- snap:
			}
		}
	}()
	return out, nil
}

func (m *Memory) coll(name string) map[string]*memDoc {
	docs, ok := m.colls[name]
	if !ok {
		docs = make(map[string]*memDoc)
		m.colls[name] = docs
	}
	return docs
}

func (m *Memory) queryLocked(collection string, q Query) []Document {
	var out []Document
	for id, doc := range m.coll(collection) {
		if matches(doc.data, q.Filters) {
			out = append(out, doc.snapshot(id))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if q.OrderBy != "" {
			a, b := orderKey(out[i], q.OrderBy), orderKey(out[j], q.OrderBy)
			if !a.Equal(b) {
				if q.Desc {
					return a.After(b)
				}
				return a.Before(b)
			}
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *Memory) publishLocked(collection string) {
	now := m.now()
	for w := range m.watchers {
		if w.collection != collection {
			continue
		}
		w.stage(m.queryLocked(collection, w.query), now)
	}
}

// memWatcher coalesces deliveries for slow consumers: the pending snapshot is
// replaced by newer ones while inserted documents accumulate.
type memWatcher struct {
	collection string
	query      Query

	mu      sync.Mutex
	seen    map[string]bool
	pending *Snapshot
	signal  chan struct{}
}

func (w *memWatcher) stage(docs []Document, now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	next := make(map[string]bool, len(docs))
	var inserted []Document
	for _, d := range docs {
		next[d.ID] = true
		if !w.seen[d.ID] {
			inserted = append(inserted, d)
		}
	}
	w.seen = next
	if w.pending != nil {
		inserted = mergeInserted(w.pending.Inserted, inserted, next)
	}
	w.pending = &Snapshot{Inserted: inserted, Docs: docs, ReadTime: now}
	select {
	case w.signal <- struct{}{}:
	default:
	}
}

func (w *memWatcher) take() (Snapshot, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending == nil {
		return Snapshot{}, false
	}
	snap := *w.pending
	w.pending = nil
	return snap, true
}

// mergeInserted keeps earlier insertions that are still part of the result,
// refreshed with the latest document contents.
func mergeInserted(prev, next []Document, present map[string]bool) []Document {
	byID := make(map[string]int)
	var out []Document
	for _, d := range prev {
		if present[d.ID] {
			byID[d.ID] = len(out)
			out = append(out, d)
		}
	}
	for _, d := range next {
		if i, ok := byID[d.ID]; ok {
			out[i] = d
			continue
		}
		out = append(out, d)
	}
	return out
}

func (d *memDoc) snapshot(id string) Document {
	return Document{ID: id, Data: copyMap(d.data), CreateTime: d.created}
}

func resolve(current, v any, now time.Time) any {
	switch val := v.(type) {
	case serverTimestamp:
		return now
	case arrayUnion:
		existing, _ := current.([]any)
		out := append([]any(nil), existing...)
		for _, e := range val.elems {
			if !containsValue(out, e) {
				out = append(out, e)
			}
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	default:
		return v
	}
}

func matches(data map[string]any, filters []Filter) bool {
	for _, f := range filters {
		v, ok := data[f.Field]
		switch f.Op {
		case OpEqual:
			if !ok || !reflect.DeepEqual(v, f.Value) {
				return false
			}
		case OpIn:
			list, _ := f.Value.([]any)
			if !ok || !containsValue(list, v) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func containsValue(list []any, v any) bool {
	for _, e := range list {
		if reflect.DeepEqual(e, v) {
			return true
		}
	}
	return false
}

func orderKey(d Document, field string) time.Time {
	t, _ := d.Data[field].(time.Time)
	return t
}

func copyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if list, ok := v.([]any); ok {
			v = append([]any(nil), list...)
		}
		out[k] = v
	}
	return out
}
