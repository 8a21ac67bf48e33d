package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/huddle/go/internal/betting"
	"github.com/mcdev12/huddle/go/internal/chat"
	"github.com/mcdev12/huddle/go/internal/docstore"
	"github.com/mcdev12/huddle/go/internal/events"
	"github.com/mcdev12/huddle/go/internal/gamestate"
	"github.com/mcdev12/huddle/go/internal/identity"
	"github.com/mcdev12/huddle/go/internal/leaderboard"
	"github.com/mcdev12/huddle/go/internal/models"
	"github.com/mcdev12/huddle/go/internal/trivia"
	"github.com/rs/zerolog/log"
)

// SyncState is where a session is in its connection lifecycle.
type SyncState string

const (
	StateDisconnected SyncState = "disconnected"
	StateSyncing      SyncState = "syncing"
	StateLive         SyncState = "live"
	StateSolo         SyncState = "solo"
)

var (
	ErrNotJoined     = errors.New("session has not joined")
	ErrAlreadyJoined = errors.New("session already joined")
)

// Session is one device. Intents are serialized; snapshots from the store update the view as
// they arrive.
//
// Joining with a shared backend moves the session to syncing. The first chat snapshot makes it
// live and starts the background scheduler. If no snapshot arrives within the grace window the
// session continues solo on device-local state. Without a backend it goes solo directly.
type Session struct {
	app    *AppContext
	ids    identity.Store
	router *docstore.Router

	chat     *chat.Channel
	table    *leaderboard.Table
	trivia   *trivia.Engine
	betting  *betting.Engine
	sched    *gamestate.Scheduler
	recapper *gamestate.Recapper

	ops sync.Mutex

	mu          sync.Mutex
	state       SyncState
	participant models.Participant
	docs        [feedCount][]docstore.Document
	gen         uint64
	viewSeq     uint64
	ctx         context.Context
	cancel      context.CancelFunc
	subCancel   context.CancelFunc
	grace       clockwork.Timer
	onChange    []func(View)
	onTransit   []func(events.SyncStateChangedPayload)

	wg sync.WaitGroup
}

// New creates a disconnected session.
func New(app *AppContext, ids identity.Store) *Session {
	app = app.WithDefaults()
	if ids == nil {
		ids = &identity.MemoryStore{}
	}
	router := docstore.NewRouter(app.Shared, docstore.NewLocalStore(app.Clock))
	table := leaderboard.NewTable(router, app.Leaderboard)
	channel := chat.NewChannel(router, app.Clock, app.Collab)
	repo := gamestate.NewRepository(router)

	return &Session{
		app:      app,
		ids:      ids,
		router:   router,
		chat:     channel,
		table:    table,
		trivia:   trivia.NewEngine(app.Catalog, table),
		betting:  betting.NewEngine(app.Catalog, router, table, app.Clock),
		sched:    gamestate.NewScheduler(repo, channel, app.Collab, app.Clock, app.Scheduler),
		recapper: gamestate.NewRecapper(repo, app.Collab, app.Clock),
		state:    StateDisconnected,
	}
}

// Join creates a participant from the join form, saves it on the device and joins.
func (s *Session) Join(ctx context.Context, name string, side models.Side) (models.Participant, error) {
	p, err := identity.NewParticipant(name, side)
	if err != nil {
		return p, err
	}
	if err := s.ids.Save(p); err != nil {
		log.Warn().Err(err).Msg("failed to save identity, continuing")
	}
	return p, s.start(ctx, p)
}

// Resume joins with the participant saved on the device.
func (s *Session) Resume(ctx context.Context) (models.Participant, error) {
	p, err := s.ids.Load()
	if err != nil {
		return p, err
	}
	return p, s.start(ctx, p)
}

func (s *Session) start(ctx context.Context, p models.Participant) error {
	s.mu.Lock()
	if s.state != StateDisconnected {
		s.mu.Unlock()
		return ErrAlreadyJoined
	}
	s.participant = p
	s.ctx, s.cancel = context.WithCancel(context.Background())

	var changes []events.SyncStateChangedPayload
	if s.app.Shared.Available() {
		s.router.UseRemote(true)
		changes = append(changes, s.transitionLocked(StateSyncing))
		s.grace = s.app.Clock.AfterFunc(s.app.GraceWindow, s.graceExpired)
		if err := s.subscribeLocked(s.router.Shared()); err != nil {
			log.Warn().Err(err).Str("participant_id", p.ID).Msg("shared subscription failed, continuing solo")
			s.stopGraceLocked()
			changes = append(changes, s.goSoloLocked()...)
		}
	} else {
		changes = append(changes, s.goSoloLocked()...)
	}

	if err := s.table.EnsureEntry(ctx, p); err != nil {
		log.Warn().Err(err).Str("participant_id", p.ID).Msg("failed to create rank entry")
	}

	log.Info().
		Str("participant_id", p.ID).
		Str("name", p.DisplayName).
		Str("side", string(p.Side)).
		Str("state", string(s.state)).
		Msg("participant joined")

	view, onChange, onTransit := s.viewLocked(), s.onChange, s.onTransit
	s.mu.Unlock()
	notify(view, onChange, changes, onTransit)
	return nil
}

// subscribeLocked replaces the current subscriptions with fresh ones on store.
func (s *Session) subscribeLocked(store docstore.Store) error {
	if s.subCancel != nil {
		s.subCancel()
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.subCancel = cancel
	s.gen++
	gen := s.gen
	s.docs = [feedCount][]docstore.Document{}

	for f := feed(0); f < feedCount; f++ {
		sub, err := store.Subscribe(ctx, feedQueries[f]())
		if err != nil {
			cancel()
			return fmt.Errorf("subscribe %s: %w", f, err)
		}
		s.wg.Add(1)
		go s.consume(gen, f, sub)
	}
	return nil
}

func (s *Session) consume(gen uint64, f feed, sub *docstore.Subscription) {
	defer s.wg.Done()
	for snap := range sub.C {
		s.apply(gen, f, snap)
	}
}

func (s *Session) apply(gen uint64, f feed, snap docstore.Snapshot) {
	s.mu.Lock()
	if gen != s.gen || s.state == StateDisconnected {
		s.mu.Unlock()
		return
	}
	s.docs[f] = snap.Docs

	var changes []events.SyncStateChangedPayload
	if s.state == StateSyncing && f == feedChat {
		s.stopGraceLocked()
		changes = append(changes, s.transitionLocked(StateLive))
		s.startSchedulerLocked()
	}

	view, onChange, onTransit := s.viewLocked(), s.onChange, s.onTransit
	s.mu.Unlock()
	notify(view, onChange, changes, onTransit)
}

func (s *Session) graceExpired() {
	s.mu.Lock()
	if s.state != StateSyncing {
		s.mu.Unlock()
		return
	}
	s.grace = nil
	log.Warn().
		Str("participant_id", s.participant.ID).
		Dur("grace", s.app.GraceWindow).
		Msg("no snapshot within grace window, continuing solo")

	changes := s.goSoloLocked()
	if err := s.table.EnsureEntry(s.ctx, s.participant); err != nil {
		log.Warn().Err(err).Msg("failed to create local rank entry")
	}

	view, onChange, onTransit := s.viewLocked(), s.onChange, s.onTransit
	s.mu.Unlock()
	notify(view, onChange, changes, onTransit)
}

func (s *Session) goSoloLocked() []events.SyncStateChangedPayload {
	s.router.UseRemote(false)
	change := s.transitionLocked(StateSolo)
	if err := s.subscribeLocked(s.router.Local()); err != nil {
		log.Error().Err(err).Msg("failed to subscribe to local state")
	}
	return []events.SyncStateChangedPayload{change}
}

func (s *Session) startSchedulerLocked() {
	ctx := s.ctx
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.sched.Run(ctx)
	}()
}

func (s *Session) stopGraceLocked() {
	if s.grace != nil {
		s.grace.Stop()
		s.grace = nil
	}
}

func (s *Session) transitionLocked(to SyncState) events.SyncStateChangedPayload {
	change := events.SyncStateChangedPayload{
		ParticipantID: s.participant.ID,
		From:          string(s.state),
		To:            string(to),
		ChangedAt:     s.app.Clock.Now().UTC(),
	}
	s.state = to
	log.Debug().
		Str("participant_id", change.ParticipantID).
		Str("from", change.From).
		Str("to", change.To).
		Msg("sync state changed")
	return change
}

func notify(view View, onChange []func(View), changes []events.SyncStateChangedPayload, onTransit []func(events.SyncStateChangedPayload)) {
	for _, c := range changes {
		for _, fn := range onTransit {
			fn(c)
		}
	}
	for _, fn := range onChange {
		fn(view)
	}
}

// Leave cancels every subscription, the grace timer and the scheduler, and waits for them.
func (s *Session) Leave() {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return
	}
	s.stopGraceLocked()
	s.cancel()
	s.subCancel = nil
	s.gen++
	s.router.UseRemote(false)
	change := s.transitionLocked(StateDisconnected)
	onTransit := s.onTransit
	s.mu.Unlock()

	s.wg.Wait()
	log.Info().Str("participant_id", change.ParticipantID).Msg("participant left")
	for _, fn := range onTransit {
		fn(change)
	}
}

// OnChange registers fn to receive a fresh view after every change. fn must not block.
func (s *Session) OnChange(fn func(View)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// OnTransition registers fn to be told about sync state changes.
func (s *Session) OnTransition(fn func(events.SyncStateChangedPayload)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTransit = append(s.onTransit, fn)
}

func (s *Session) State() SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Participant() models.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.participant
}

// View assembles the current view.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) joined() (models.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDisconnected {
		return models.Participant{}, ErrNotJoined
	}
	return s.participant, nil
}

// SendMessage posts text to the chat.
func (s *Session) SendMessage(ctx context.Context, text string) (*models.ChatMessage, error) {
	s.ops.Lock()
	defer s.ops.Unlock()
	p, err := s.joined()
	if err != nil {
		return nil, err
	}
	return s.chat.Send(ctx, p, text)
}

// AnswerTrivia answers a trivia question.
func (s *Session) AnswerTrivia(ctx context.Context, questionID string, chosen int) (trivia.Result, error) {
	s.ops.Lock()
	defer s.ops.Unlock()
	p, err := s.joined()
	if err != nil {
		return trivia.Result{}, err
	}
	return s.trivia.Answer(ctx, p, questionID, chosen)
}

// PlaceBet places a prop bet.
func (s *Session) PlaceBet(ctx context.Context, betID, selection string) (*models.UserBet, error) {
	s.ops.Lock()
	defer s.ops.Unlock()
	p, err := s.joined()
	if err != nil {
		return nil, err
	}
	return s.betting.PlaceBet(ctx, p, betID, selection)
}

// ResolveBet is the host action settling a prop bet.
func (s *Session) ResolveBet(ctx context.Context, betID, outcome string) (events.BetResolvedPayload, error) {
	s.ops.Lock()
	defer s.ops.Unlock()
	if _, err := s.joined(); err != nil {
		return events.BetResolvedPayload{BetID: betID}, err
	}
	return s.betting.ResolveBet(ctx, betID, outcome)
}

// BetStats aggregates the picks on a prop bet.
func (s *Session) BetStats(ctx context.Context, betID string) (models.BetStats, error) {
	if _, err := s.joined(); err != nil {
		return models.BetStats{}, err
	}
	return s.betting.Stats(ctx, betID)
}

// PublishRecap asks for a fresh recap of the game.
func (s *Session) PublishRecap(ctx context.Context) (*models.Recap, error) {
	s.ops.Lock()
	defer s.ops.Unlock()
	p, err := s.joined()
	if err != nil {
		return nil, err
	}
	return s.recapper.Publish(ctx, p.ID)
}
