package leaderboard

import (
	"context"
	"testing"

	"github.com/mcdev12/huddle/go/internal/cache"
	"github.com/mcdev12/huddle/go/internal/docstore"
	"github.com/mcdev12/huddle/go/internal/models"
)

type recordingCache struct {
	cache.LeaderboardCache
	updates []models.RankEntry
}

func (r *recordingCache) UpdateScore(ctx context.Context, e models.RankEntry) error {
	r.updates = append(r.updates, e)
	return nil
}

func TestTableAwardCreatesAndAccumulates(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore(nil)
	mirror := &recordingCache{}
	table := NewTable(docstore.Fixed(store), mirror)

	if err := table.EnsureEntry(ctx, models.Participant{ID: "u1", DisplayName: "Ann", Side: models.SideAway}); err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if total, err := table.Award(ctx, "u1", 10); err != nil || total != 10 {
		t.Fatalf("expected 10, got %d %v", total, err)
	}
	if total, err := table.Award(ctx, "u1", models.BetLossPoints); err != nil || total != 7 {
		t.Fatalf("expected 7, got %d %v", total, err)
	}

	e, err := table.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if e.Points != 7 || e.UserName != "Ann" || e.Side != models.SideAway {
		t.Fatalf("unexpected entry %+v", e)
	}
	if len(mirror.updates) != 2 || mirror.updates[1].Points != 7 {
		t.Fatalf("unexpected cache updates %+v", mirror.updates)
	}
}

func TestEnsureEntryKeepsPoints(t *testing.T) {
	ctx := context.Background()
	table := NewTable(docstore.Fixed(docstore.NewMemoryStore(nil)), nil)
	table.Award(ctx, "u1", 25)

	if err := table.EnsureEntry(ctx, models.Participant{ID: "u1", DisplayName: "Ann", Side: models.SideHome}); err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	e, _ := table.Get(ctx, "u1")
	if e.Points != 25 {
		t.Fatalf("rejoin must not reset points, got %d", e.Points)
	}
}

func TestGetMissingEntryIsZero(t *testing.T) {
	table := NewTable(docstore.Fixed(docstore.NewMemoryStore(nil)), nil)
	e, err := table.Get(context.Background(), "ghost")
	if err != nil || e.Points != 0 || e.UserID != "ghost" {
		t.Fatalf("expected zero entry, got %+v %v", e, err)
	}
}

func TestEntriesDecodesSnapshot(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore(nil)
	table := NewTable(docstore.Fixed(store), nil)
	table.Award(ctx, "u1", 3)
	table.Award(ctx, "u2", 4)

	docs, _ := store.Query(ctx, Query())
	if got := Entries(docs); len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
}
