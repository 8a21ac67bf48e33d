package gamestate

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/huddle/go/internal/assistant"
	"github.com/mcdev12/huddle/go/internal/chat"
	"github.com/mcdev12/huddle/go/internal/docstore"
	"github.com/mcdev12/huddle/go/internal/models"
)

var kickoff = time.Date(2026, 2, 8, 23, 30, 0, 0, time.UTC)

type fixture struct {
	sched  *Scheduler
	repo   *Repository
	store  *docstore.MemoryStore
	clock  *clockwork.FakeClock
	collab *assistant.Scripted
}

func newFixture(t *testing.T, collab *assistant.Scripted) fixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(kickoff)
	store := docstore.NewMemoryStore(clock)
	stores := docstore.Fixed(store)
	repo := NewRepository(stores)
	ch := chat.NewChannel(stores, clock, collab)
	return fixture{
		sched:  NewScheduler(repo, ch, collab, clock, DefaultSchedulerConfig()),
		repo:   repo,
		store:  store,
		clock:  clock,
		collab: collab,
	}
}

func (f fixture) factMessages(t *testing.T) []models.ChatMessage {
	t.Helper()
	docs, err := f.store.Query(context.Background(), chat.Query())
	if err != nil {
		t.Fatalf("query chat: %v", err)
	}
	var out []models.ChatMessage
	for _, m := range chat.Window(docs) {
		if m.Kind == models.SenderFactBot {
			out = append(out, m)
		}
	}
	return out
}

func intPtr(v int) *int { return &v }

func TestTickBroadcastsFactOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &assistant.Scripted{FactText: "The longest field goal is 66 yards."})

	f.sched.Tick(ctx)
	f.sched.Wait()

	facts := f.factMessages(t)
	if len(facts) != 1 || facts[0].SenderID != models.FactBotID {
		t.Fatalf("expected one fact message, got %+v", facts)
	}
	state, _ := f.repo.Get(ctx)
	if state.LastFactBroadcastAt != kickoff.UnixMilli() {
		t.Fatalf("expected claim at %d, got %d", kickoff.UnixMilli(), state.LastFactBroadcastAt)
	}

	f.sched.Tick(ctx)
	f.sched.Wait()
	if got := len(f.factMessages(t)); got != 1 {
		t.Fatalf("second immediate tick must not broadcast, got %d facts", got)
	}
	if f.collab.Calls("Fact") != 1 {
		t.Fatalf("expected one fact call, got %d", f.collab.Calls("Fact"))
	}
}

func TestTickFactDueAfterInterval(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &assistant.Scripted{FactText: "fact"})
	f.sched.Tick(ctx)
	f.sched.Wait()

	f.clock.Advance(FactInterval - time.Second)
	f.sched.Tick(ctx)
	f.sched.Wait()
	if got := len(f.factMessages(t)); got != 1 {
		t.Fatalf("fact broadcast before interval, got %d", got)
	}

	f.clock.Advance(time.Second)
	f.sched.Tick(ctx)
	f.sched.Wait()
	if got := len(f.factMessages(t)); got != 2 {
		t.Fatalf("expected second fact at interval, got %d", got)
	}
}

func TestTickNullScoreLeavesScores(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &assistant.Scripted{Score: &assistant.ScoreReport{HomeScore: nil, AwayScore: intPtr(3), IsHalftime: true}})
	if err := f.repo.Patch(ctx, docstore.Patch{"homeScore": 7, "awayScore": 0}); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	f.sched.Tick(ctx)
	f.sched.Wait()

	state, _ := f.repo.Get(ctx)
	if state.HomeScore != 7 || state.AwayScore != 0 || state.IsHalftime {
		t.Fatalf("null score changed state: %+v", state)
	}
	if state.LastScoreCheckAt != kickoff.UnixMilli() {
		t.Fatalf("expected score check claim, got %d", state.LastScoreCheckAt)
	}
}

func TestTickAppliesScore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &assistant.Scripted{Score: &assistant.ScoreReport{
		HomeScore:  intPtr(14),
		AwayScore:  intPtr(10),
		IsHalftime: true,
		Sources:    []string{"https://scores.example/game"},
	}})
	f.repo.Patch(ctx, docstore.Patch{"lastFactBroadcastAt": kickoff.UnixMilli()})

	f.sched.Tick(ctx)
	f.sched.Wait()

	state, _ := f.repo.Get(ctx)
	want := models.SharedGameState{
		HomeScore:           14,
		AwayScore:           10,
		IsHalftime:          true,
		LastFactBroadcastAt: kickoff.UnixMilli(),
		LastScoreCheckAt:    kickoff.UnixMilli(),
		VerificationSources: []string{"https://scores.example/game"},
	}
	if !reflect.DeepEqual(state, want) {
		t.Fatalf("expected %+v, got %+v", want, state)
	}
}

func TestTickFailureKeepsClaim(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &assistant.Scripted{Fail: true})

	f.sched.Tick(ctx)
	f.sched.Wait()

	state, _ := f.repo.Get(ctx)
	if state.LastFactBroadcastAt != kickoff.UnixMilli() || state.LastScoreCheckAt != kickoff.UnixMilli() {
		t.Fatalf("claims must survive collaborator failure: %+v", state)
	}
	if len(f.factMessages(t)) != 0 {
		t.Fatal("failed fact must not post")
	}

	f.sched.Tick(ctx)
	f.sched.Wait()
	if f.collab.Calls("Fact") != 1 || f.collab.Calls("LookupScore") != 1 {
		t.Fatal("a failed attempt still consumes its interval")
	}
}

func TestTickCancelledContextWritesNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := newFixture(t, &assistant.Scripted{FactText: "fact"})
	cancel()

	f.sched.Tick(ctx)
	f.sched.Wait()
	if len(f.factMessages(t)) != 0 {
		t.Fatal("task wrote after cancellation")
	}
}

func TestRunTicksOnClock(t *testing.T) {
	f := newFixture(t, &assistant.Scripted{FactText: "fact"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		f.sched.Run(ctx)
		close(done)
	}()

	waitFor(t, func() bool { return len(f.factMessages(t)) == 1 })

	if err := f.clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("ticker never registered: %v", err)
	}
	f.clock.Advance(FactInterval)
	waitFor(t, func() bool { return len(f.factMessages(t)) == 2 })

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
