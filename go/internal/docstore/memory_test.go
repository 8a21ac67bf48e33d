package docstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func receive(t *testing.T, sub *Subscription) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-sub.C:
		if !ok {
			t.Fatal("subscription closed unexpectedly")
		}
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return Snapshot{}
}

func TestMemoryStoreMergeKeepsUnnamedFields(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(clockwork.NewFakeClock())

	if _, err := store.Write(ctx, "gameState", "current", Patch{"homeScore": 7, "awayScore": 3}, true); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := store.Write(ctx, "gameState", "current", Patch{"isHalftime": true}, true); err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	doc, err := store.Get(ctx, "gameState", "current")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	var state struct {
		HomeScore  int  `json:"homeScore"`
		AwayScore  int  `json:"awayScore"`
		IsHalftime bool `json:"isHalftime"`
	}
	if err := doc.Decode(&state); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if state.HomeScore != 7 || state.AwayScore != 3 || !state.IsHalftime {
		t.Fatalf("merge lost fields: %+v", state)
	}
}

func TestMemoryStoreReplaceDropsUnnamedFields(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)

	if _, err := store.Write(ctx, "ranks", "u1", Patch{"userName": "Ann", "points": 5}, true); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := store.Write(ctx, "ranks", "u1", Patch{"userName": "Ann"}, false); err != nil {
		t.Fatalf("replace failed: %v", err)
	}
	doc, _ := store.Get(ctx, "ranks", "u1")
	var entry map[string]any
	if err := doc.Decode(&entry); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if _, ok := entry["points"]; ok {
		t.Fatalf("replace should drop points, got %v", entry)
	}
}

func TestMemoryStoreGetMissing(t *testing.T) {
	store := NewMemoryStore(nil)
	_, err := store.Get(context.Background(), "ranks", "nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreAutoID(t *testing.T) {
	store := NewMemoryStore(nil)
	id, err := store.Write(context.Background(), "chat", "", Patch{"text": "hi"}, false)
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated id")
	}
}

func TestMemoryStoreSubscribeInitialThenChanges(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)
	store.Write(ctx, "chat", "a", Patch{"timestamp": 1}, false)

	sub, err := store.Subscribe(ctx, Collection("chat").OrderedBy("timestamp"))
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer sub.Cancel()

	if snap := receive(t, sub); len(snap.Docs) != 1 {
		t.Fatalf("expected initial snapshot with 1 doc, got %d", len(snap.Docs))
	}

	store.Write(ctx, "chat", "b", Patch{"timestamp": 2}, false)
	snap := receive(t, sub)
	if len(snap.Docs) != 2 || snap.Docs[1].ID != "b" {
		t.Fatalf("expected 2 docs ending with b, got %+v", snap.Docs)
	}

	// Writes to other collections are not delivered.
	store.Write(ctx, "ranks", "u1", Patch{"points": 1}, true)
	select {
	case snap := <-sub.C:
		t.Fatalf("unexpected snapshot %+v", snap)
	default:
	}
}

func TestMemoryStoreSingletonSubscriptionIgnoresSiblings(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)
	sub, _ := store.Subscribe(ctx, Doc("gameState", "current"))
	defer sub.Cancel()
	receive(t, sub)

	store.Write(ctx, "gameState", "other", Patch{"x": 1}, true)
	select {
	case snap := <-sub.C:
		t.Fatalf("unexpected snapshot %+v", snap)
	default:
	}
}

func TestMemoryStoreSubscriptionKeepsNewestSnapshot(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)
	sub, _ := store.Subscribe(ctx, Collection("chat"))
	defer sub.Cancel()

	for _, id := range []string{"a", "b", "c"} {
		store.Write(ctx, "chat", id, Patch{"text": id}, false)
	}
	snap := receive(t, sub)
	if len(snap.Docs) != 3 {
		t.Fatalf("expected the newest snapshot with 3 docs, got %d", len(snap.Docs))
	}
}

func TestMemoryStoreCancelClosesStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := NewMemoryStore(nil)
	sub, _ := store.Subscribe(ctx, Collection("chat"))
	receive(t, sub)

	cancel()
	select {
	case _, ok := <-sub.C:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not closed after context cancel")
	}

	deadline := time.Now().Add(2 * time.Second)
	for store.SubscriberCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber not removed, count %d", store.SubscriberCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
	sub.Cancel() // second cancel is a no-op
}

func TestLocalStoreIsNotAvailable(t *testing.T) {
	if NewLocalStore(nil).Available() {
		t.Fatal("local store must report unavailable")
	}
	if !NewMemoryStore(nil).Available() {
		t.Fatal("memory store must report available")
	}
	if (Unavailable{}).Available() {
		t.Fatal("unavailable store must report unavailable")
	}
}

func TestMemoryStoreServerTimestamp(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 2, 8, 18, 30, 0, 0, time.UTC))
	store := NewMemoryStore(clock)

	if _, err := store.Write(ctx, "chat", "m1", Patch{"text": "hi", "timestamp": ServerTimestamp}, false); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	doc, err := store.Get(ctx, "chat", "m1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	var body struct {
		Text      string `json:"text"`
		Timestamp int64  `json:"timestamp"`
	}
	if err := doc.Decode(&body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if body.Text != "hi" || body.Timestamp != clock.Now().UnixMilli() {
		t.Fatalf("unexpected body %+v", body)
	}
}
