package docstore

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func recv(t *testing.T, ch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case s, ok := <-ch:
		if !ok {
			t.Fatal("watch channel closed")
		}
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return Snapshot{}
}

func TestMemory_CreateResolvesServerTimestamp(t *testing.T) {
	clock := newClock()
	m := NewMemory(WithClock(clock.Now))
	ctx := context.Background()

	id, err := m.Create(ctx, "rides", map[string]any{"status": "REQUESTED", "createdAt": ServerTimestamp})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	doc, err := m.Get(ctx, "rides", id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got, _ := doc.Data["createdAt"].(time.Time); !got.Equal(clock.Now()) {
		t.Errorf("createdAt = %v, want %v", doc.Data["createdAt"], clock.Now())
	}
}

func TestMemory_ArrayUnionSkipsDuplicates(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	id, _ := m.Create(ctx, "rides", map[string]any{"declinedDriverIds": []string{"d1"}})

	for _, d := range []string{"d2", "d1", "d2"} {
		if err := m.Update(ctx, "rides", id, []Update{{Path: "declinedDriverIds", Value: ArrayUnion(d)}}); err != nil {
			t.Fatalf("update: %v", err)
		}
	}
	doc, _ := m.Get(ctx, "rides", id)
	list, _ := doc.Data["declinedDriverIds"].([]any)
	if len(list) != 2 || list[0] != "d1" || list[1] != "d2" {
		t.Errorf("declinedDriverIds = %v, want [d1 d2]", list)
	}
}

func TestMemory_UpdateMissing(t *testing.T) {
	m := NewMemory()
	err := m.Update(context.Background(), "rides", "nope", []Update{{Path: "status", Value: "CANCELLED"}})
	if !IsNotFound(err) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemory_ListFiltersAndOrders(t *testing.T) {
	clock := newClock()
	m := NewMemory(WithClock(clock.Now))
	ctx := context.Background()

	first, _ := m.Create(ctx, "rides", map[string]any{"status": "REQUESTED", "createdAt": ServerTimestamp})
	clock.Advance(time.Minute)
	_, _ = m.Create(ctx, "rides", map[string]any{"status": "CANCELLED", "createdAt": ServerTimestamp})
	clock.Advance(time.Minute)
	third, _ := m.Create(ctx, "rides", map[string]any{"status": "OFFERED", "createdAt": ServerTimestamp})

	q := Query{OrderBy: "createdAt", Desc: true}.Where("status", OpIn, []any{"REQUESTED", "OFFERED"})
	docs, err := m.List(ctx, "rides", q)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != third || docs[1].ID != first {
		t.Fatalf("unexpected list result: %+v", docs)
	}
}

func TestMemory_ReadsAreCopies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	id, _ := m.Create(ctx, "rides", map[string]any{"status": "REQUESTED", "declinedDriverIds": []any{"d1"}})

	doc, _ := m.Get(ctx, "rides", id)
	doc.Data["status"] = "CANCELLED"
	doc.Data["declinedDriverIds"].([]any)[0] = "x"

	again, _ := m.Get(ctx, "rides", id)
	if again.Data["status"] != "REQUESTED" || again.Data["declinedDriverIds"].([]any)[0] != "d1" {
		t.Fatalf("store mutated through a read: %+v", again.Data)
	}
}

func TestMemory_WatchReportsInsertionsOnly(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	existing, _ := m.Create(ctx, "rides", map[string]any{"status": "REQUESTED"})
	ch, err := m.Watch(ctx, "rides", Query{})
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	initial := recv(t, ch)
	if len(initial.Inserted) != 1 || initial.Inserted[0].ID != existing {
		t.Fatalf("initial delivery should report existing doc as inserted: %+v", initial.Inserted)
	}

	if err := m.Update(ctx, "rides", existing, []Update{{Path: "status", Value: "CANCELLED"}}); err != nil {
		t.Fatalf("update: %v", err)
	}
	updated := recv(t, ch)
	if len(updated.Inserted) != 0 {
		t.Fatalf("update must not be reported as insertion: %+v", updated.Inserted)
	}
	if len(updated.Docs) != 1 || updated.Docs[0].Data["status"] != "CANCELLED" {
		t.Fatalf("full set not refreshed: %+v", updated.Docs)
	}

	added, _ := m.Create(ctx, "rides", map[string]any{"status": "OFFERED"})
	inserted := recv(t, ch)
	if len(inserted.Inserted) != 1 || inserted.Inserted[0].ID != added {
		t.Fatalf("expected new doc as insertion: %+v", inserted.Inserted)
	}
	if len(inserted.Docs) != 2 {
		t.Fatalf("expected 2 docs in full set, got %d", len(inserted.Docs))
	}
}

func TestMemory_WatchClosesOnCancel(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := m.Watch(ctx, "rides", Query{})
	recv(t, ch)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			// A pending delivery may race the cancel; the next read must close.
			if _, ok := <-ch; ok {
				t.Fatal("channel still open after cancel")
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestMergeInserted_DropsDocsThatLeftTheResult(t *testing.T) {
	prev := []Document{{ID: "a"}, {ID: "b"}}
	next := []Document{{ID: "c"}, {ID: "a", Data: map[string]any{"v": 2}}}
	out := mergeInserted(prev, next, map[string]bool{"a": true, "c": true})
	if len(out) != 2 || out[0].ID != "a" || out[1].ID != "c" {
		t.Fatalf("unexpected merge: %+v", out)
	}
	if out[0].Data["v"] != 2 {
		t.Errorf("merged doc not refreshed")
	}
}
