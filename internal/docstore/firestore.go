package docstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore adapts a Cloud Firestore client to the Store contract. Watch is
// backed by query snapshot listeners; DocumentAdded changes become
// Snapshot.Inserted.
type Firestore struct {
	client *firestore.Client
	log    *slog.Logger
}

func NewFirestore(client *firestore.Client, log *slog.Logger) *Firestore {
	return &Firestore{client: client, log: log}
}

func (s *Firestore) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	ref, _, err := s.client.Collection(collection).Add(ctx, toNative(fields))
	if err != nil {
		return "", fmt.Errorf("firestore add %s: %w", collection, err)
	}
	return ref.ID, nil
}

func (s *Firestore) Set(ctx context.Context, collection, id string, fields map[string]any) error {
	_, err := s.client.Collection(collection).Doc(id).Set(ctx, toNative(fields), firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("firestore set %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Firestore) Update(ctx context.Context, collection, id string, updates []Update) error {
	native := make([]firestore.Update, len(updates))
	for i, u := range updates {
		native[i] = firestore.Update{Path: u.Path, Value: nativeValue(u.Value)}
	}
	_, err := s.client.Collection(collection).Doc(id).Update(ctx, native)
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("firestore update %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Firestore) Get(ctx context.Context, collection, id string) (Document, error) {
	ds, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("firestore get %s/%s: %w", collection, id, err)
	}
	return fromNative(ds), nil
}

func (s *Firestore) List(ctx context.Context, collection string, q Query) ([]Document, error) {
	snaps, err := s.query(collection, q).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("firestore list %s: %w", collection, err)
	}
	out := make([]Document, 0, len(snaps))
	for _, ds := range snaps {
		out = append(out, fromNative(ds))
	}
	return out, nil
}

func (s *Firestore) Watch(ctx context.Context, collection string, q Query) (<-chan Snapshot, error) {
	it := s.query(collection, q).Snapshots(ctx)
	out := make(chan Snapshot)
	go func() {
		defer close(out)
		defer it.Stop()
		for {
			qs, err := it.Next()
			if err != nil {
				if ctx.Err() == nil && status.Code(err) != codes.Canceled {
					s.log.Warn("firestore watch stopped", "collection", collection, "error", err)
				}
				return
			}
			snaps, err := qs.Documents.GetAll()
			if err != nil {
				s.log.Warn("firestore snapshot read failed", "collection", collection, "error", err)
				continue
			}
			snap := Snapshot{ReadTime: qs.ReadTime, Docs: make([]Document, 0, len(snaps))}
			for _, ds := range snaps {
				snap.Docs = append(snap.Docs, fromNative(ds))
			}
			for _, ch := range qs.Changes {
				if ch.Kind == firestore.DocumentAdded {
					snap.Inserted = append(snap.Inserted, fromNative(ch.Doc))
				}
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

func (s *Firestore) query(collection string, q Query) firestore.Query {
	fq := s.client.Collection(collection).Query
	for _, f := range q.Filters {
		fq = fq.Where(f.Field, f.Op, f.Value)
	}
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Desc {
			dir = firestore.Desc
		}
		fq = fq.OrderBy(q.OrderBy, dir)
	}
	return fq
}

func toNative(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = nativeValue(v)
	}
	return out
}

func nativeValue(v any) any {
	switch val := v.(type) {
	case serverTimestamp:
		return firestore.ServerTimestamp
	case arrayUnion:
		return firestore.ArrayUnion(val.elems...)
	default:
		return v
	}
}

func fromNative(ds *firestore.DocumentSnapshot) Document {
	return Document{ID: ds.Ref.ID, Data: ds.Data(), CreateTime: ds.CreateTime}
}

// IsNotFound reports whether err means the addressed document does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
