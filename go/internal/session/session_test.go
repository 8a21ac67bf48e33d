package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/huddle/go/internal/assistant"
	"github.com/mcdev12/huddle/go/internal/cache"
	"github.com/mcdev12/huddle/go/internal/content"
	"github.com/mcdev12/huddle/go/internal/docstore"
	"github.com/mcdev12/huddle/go/internal/events"
	"github.com/mcdev12/huddle/go/internal/identity"
	"github.com/mcdev12/huddle/go/internal/leaderboard"
	"github.com/mcdev12/huddle/go/internal/models"
)

// silentStore accepts subscriptions but only delivers snapshots when released.
type silentStore struct {
	*docstore.MemoryStore
	mu    sync.Mutex
	feeds []func(docstore.Snapshot)
}

func (s *silentStore) Subscribe(ctx context.Context, q docstore.Query) (*docstore.Subscription, error) {
	sub, deliver := docstore.Feed(ctx, q, nil)
	s.mu.Lock()
	s.feeds = append(s.feeds, deliver)
	s.mu.Unlock()
	return sub, nil
}

func (s *silentStore) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, deliver := range s.feeds {
		deliver(docstore.Snapshot{})
	}
}

type recordingCache struct {
	cache.LeaderboardCache
	mu      sync.Mutex
	updates []models.RankEntry
}

func (r *recordingCache) UpdateScore(ctx context.Context, e models.RankEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, e)
	return nil
}

func (r *recordingCache) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.updates)
}

func newApp(t *testing.T, shared docstore.Store, clock clockwork.Clock, collab assistant.Collaborator) *AppContext {
	t.Helper()
	catalog, err := content.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if collab == nil {
		collab = &assistant.Scripted{}
	}
	return &AppContext{Shared: shared, Catalog: catalog, Collab: collab, Clock: clock}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func hasMessage(v View, text string) bool {
	for _, m := range v.Messages {
		if m.Text == text {
			return true
		}
	}
	return false
}

func TestJoinWithoutBackendIsSolo(t *testing.T) {
	ctx := context.Background()
	s := New(newApp(t, nil, clockwork.NewFakeClock(), nil), nil)
	defer s.Leave()

	if _, err := s.Join(ctx, "Ann", models.SideHome); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if s.State() != StateSolo {
		t.Fatalf("expected solo, got %s", s.State())
	}

	if _, err := s.SendMessage(ctx, "first down!"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	waitFor(t, "local message", func() bool { return hasMessage(s.View(), "first down!") })
}

func TestJoinWithBackendGoesLive(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	shared := docstore.NewMemoryStore(clock)
	app := newApp(t, shared, clock, &assistant.Scripted{FactText: "Fun fact."})

	host := New(app, nil)
	guest := New(app, nil)
	var transitions []string
	var tmu sync.Mutex
	host.OnTransition(func(c events.SyncStateChangedPayload) {
		tmu.Lock()
		transitions = append(transitions, c.To)
		tmu.Unlock()
	})

	if _, err := host.Join(ctx, "Ann", models.SideHome); err != nil {
		t.Fatalf("host join failed: %v", err)
	}
	if _, err := guest.Join(ctx, "Bob", models.SideAway); err != nil {
		t.Fatalf("guest join failed: %v", err)
	}
	waitFor(t, "host live", func() bool { return host.State() == StateLive })
	waitFor(t, "guest live", func() bool { return guest.State() == StateLive })

	// The scheduler broadcasts a fact on its first tick.
	waitFor(t, "fact", func() bool { return hasMessage(guest.View(), "Fun fact.") })

	host.SendMessage(ctx, "hello from the couch")
	waitFor(t, "fan-out", func() bool { return hasMessage(guest.View(), "hello from the couch") })

	waitFor(t, "rank table", func() bool { return len(guest.View().Board.Standings) == 2 })

	host.Leave()
	guest.Leave()
	if host.State() != StateDisconnected {
		t.Fatalf("expected disconnected, got %s", host.State())
	}
	waitFor(t, "subscriptions closed", func() bool { return shared.SubscriberCount() == 0 })

	tmu.Lock()
	defer tmu.Unlock()
	// Join and the first snapshot notify from different goroutines, so only the set is fixed.
	seen := make(map[string]bool)
	for _, to := range transitions {
		seen[to] = true
	}
	if len(transitions) != 3 || !seen["syncing"] || !seen["live"] || transitions[2] != "disconnected" {
		t.Fatalf("unexpected transitions %v", transitions)
	}
}

func TestGraceWindowFallsBackToSolo(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	shared := &silentStore{MemoryStore: docstore.NewMemoryStore(clock)}
	s := New(newApp(t, shared, clock, nil), nil)
	defer s.Leave()

	if _, err := s.Join(ctx, "Ann", models.SideHome); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if s.State() != StateSyncing {
		t.Fatalf("expected syncing, got %s", s.State())
	}

	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("grace timer not armed: %v", err)
	}
	clock.Advance(DefaultGraceWindow - time.Millisecond)
	if s.State() != StateSyncing {
		t.Fatal("fell back before the grace window elapsed")
	}
	clock.Advance(time.Millisecond)
	waitFor(t, "solo", func() bool { return s.State() == StateSolo })

	// A late snapshot from the shared store does not revive the session.
	shared.release()
	s.SendMessage(ctx, "anyone there?")
	waitFor(t, "local message", func() bool { return hasMessage(s.View(), "anyone there?") })
	if s.State() != StateSolo {
		t.Fatalf("expected solo to stick, got %s", s.State())
	}

	docs, _ := shared.Query(ctx, docstore.Collection("chat"))
	if len(docs) != 0 {
		t.Fatal("solo message reached the shared store")
	}
}

func TestSnapshotWithinGraceWindowGoesLive(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	shared := &silentStore{MemoryStore: docstore.NewMemoryStore(clock)}
	s := New(newApp(t, shared, clock, nil), nil)
	defer s.Leave()

	s.Join(ctx, "Ann", models.SideHome)
	shared.release()
	waitFor(t, "live", func() bool { return s.State() == StateLive })

	clock.Advance(DefaultGraceWindow)
	if s.State() != StateLive {
		t.Fatalf("grace timer fired after going live, state %s", s.State())
	}
}

func TestIntentsRequireJoin(t *testing.T) {
	ctx := context.Background()
	s := New(newApp(t, nil, clockwork.NewFakeClock(), nil), nil)

	if _, err := s.SendMessage(ctx, "hi"); !errors.Is(err, ErrNotJoined) {
		t.Fatalf("expected ErrNotJoined, got %v", err)
	}
	if _, err := s.PlaceBet(ctx, "coin-toss", "Heads"); !errors.Is(err, ErrNotJoined) {
		t.Fatalf("expected ErrNotJoined, got %v", err)
	}
	if _, err := s.AnswerTrivia(ctx, "q-main-1", 1); !errors.Is(err, ErrNotJoined) {
		t.Fatalf("expected ErrNotJoined, got %v", err)
	}

	s.Join(ctx, "Ann", models.SideHome)
	defer s.Leave()
	if _, err := s.Join(ctx, "Ann", models.SideHome); !errors.Is(err, ErrAlreadyJoined) {
		t.Fatalf("expected ErrAlreadyJoined, got %v", err)
	}
}

func TestResumeUsesSavedIdentity(t *testing.T) {
	ctx := context.Background()
	ids := &identity.MemoryStore{}
	app := newApp(t, nil, clockwork.NewFakeClock(), nil)

	first := New(app, ids)
	p, err := first.Join(ctx, "Ann", models.SideAway)
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	first.Leave()

	second := New(app, ids)
	defer second.Leave()
	resumed, err := second.Resume(ctx)
	if err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if resumed.ID != p.ID {
		t.Fatalf("expected id %s, got %s", p.ID, resumed.ID)
	}
}

func TestSoloScoringReachesView(t *testing.T) {
	ctx := context.Background()
	s := New(newApp(t, nil, clockwork.NewFakeClock(), nil), nil)
	defer s.Leave()
	s.Join(ctx, "Ann", models.SideHome)

	if _, err := s.PlaceBet(ctx, "coin-toss", "Heads"); err != nil {
		t.Fatalf("place failed: %v", err)
	}
	res, err := s.ResolveBet(ctx, "coin-toss", "Heads")
	if err != nil || res.Winners != 1 {
		t.Fatalf("resolve failed: %+v %v", res, err)
	}
	result, err := s.AnswerTrivia(ctx, "q-main-1", 1)
	if err != nil || !result.Correct {
		t.Fatalf("answer failed: %+v %v", result, err)
	}

	waitFor(t, "settled view", func() bool {
		v := s.View()
		return v.Participant.CumulativePoints == 20 && v.MyBets["coin-toss"].Status == models.BetStatusWon
	})

	v := s.View()
	if v.BetStats["coin-toss"].TotalCount != 1 {
		t.Fatalf("unexpected stats %+v", v.BetStats["coin-toss"])
	}
	var mvp bool
	for _, a := range v.Board.Awards {
		if a.Kind == leaderboard.AwardMVP {
			mvp = true
		}
	}
	if !mvp {
		t.Fatal("expected an MVP award")
	}
	for _, q := range v.Trivia {
		if q.ID == "q-main-1" {
			t.Fatal("answered question still offered")
		}
	}
}

func TestSoloScoringStaysOffLeaderboardCache(t *testing.T) {
	ctx := context.Background()
	mirror := &recordingCache{}
	app := newApp(t, nil, clockwork.NewFakeClock(), nil)
	app.Leaderboard = mirror
	s := New(app, nil)
	defer s.Leave()
	s.Join(ctx, "Ann", models.SideHome)

	result, err := s.AnswerTrivia(ctx, "q-main-1", 1)
	if err != nil || !result.Correct {
		t.Fatalf("answer failed: %+v %v", result, err)
	}
	if n := mirror.count(); n != 0 {
		t.Fatalf("solo points reached the leaderboard cache: %+v", mirror.updates)
	}
}

func TestLiveScoringUpdatesLeaderboardCache(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	mirror := &recordingCache{}
	app := newApp(t, docstore.NewMemoryStore(clock), clock, nil)
	app.Leaderboard = mirror
	s := New(app, nil)
	defer s.Leave()
	s.Join(ctx, "Ann", models.SideHome)
	waitFor(t, "live", func() bool { return s.State() == StateLive })

	if _, err := s.AnswerTrivia(ctx, "q-main-1", 1); err != nil {
		t.Fatalf("answer failed: %v", err)
	}
	if n := mirror.count(); n != 1 {
		t.Fatalf("expected one cache update, got %d", n)
	}
}
