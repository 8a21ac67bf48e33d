package gamestate

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/huddle/go/internal/assistant"
	"github.com/mcdev12/huddle/go/internal/chat"
	"github.com/mcdev12/huddle/go/internal/docstore"
	"github.com/mcdev12/huddle/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Default intervals.
const (
	TickInterval  = 30 * time.Second
	FactInterval  = 8 * time.Minute
	ScoreInterval = 5 * time.Minute
)

// SchedulerConfig holds the scheduler intervals.
type SchedulerConfig struct {
	Tick  time.Duration `yaml:"tick"`
	Fact  time.Duration `yaml:"fact"`
	Score time.Duration `yaml:"score"`
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{Tick: TickInterval, Fact: FactInterval, Score: ScoreInterval}
}

// Scheduler is the per-client background loop. On every tick it checks how long ago the shared
// state says a fact was broadcast and the score was checked, and claims whichever is due by
// writing the new timestamp before doing the work. The claim is advisory: two clients ticking
// together may both broadcast.
type Scheduler struct {
	repo   *Repository
	chat   *chat.Channel
	collab assistant.Collaborator
	clock  clockwork.Clock
	config SchedulerConfig

	wg sync.WaitGroup
}

func NewScheduler(repo *Repository, ch *chat.Channel, collab assistant.Collaborator, clock clockwork.Clock, config SchedulerConfig) *Scheduler {
	return &Scheduler{
		repo:   repo,
		chat:   ch,
		collab: collab,
		clock:  clock,
		config: config,
	}
}

// Run ticks until ctx is done, then waits for in-flight tasks. The first tick runs immediately.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(s.config.Tick)
	defer ticker.Stop()

	log.Info().Dur("tick", s.config.Tick).Msg("scheduler started")
	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.Wait()
			log.Info().Msg("scheduler stopped")
			return
		case <-ticker.Chan():
			s.Tick(ctx)
		}
	}
}

// Wait blocks until every task started by Tick has finished.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Tick claims and starts whichever of the fact broadcast and score refresh is due. Tasks stop
// writing once ctx is done.
func (s *Scheduler) Tick(ctx context.Context) {
	state, err := s.repo.Get(ctx)
	if err != nil {
		log.Error().Err(err).Msg("scheduler tick skipped")
		return
	}

	now := s.clock.Now()
	nowMillis := now.UnixMilli()

	if elapsed(now, state.LastFactBroadcastAt) >= s.config.Fact {
		if err := s.repo.Patch(ctx, docstore.Patch{"lastFactBroadcastAt": nowMillis}); err != nil {
			log.Error().Err(err).Msg("failed to claim fact broadcast")
		} else {
			s.spawn(ctx, s.broadcastFact)
		}
	}

	if elapsed(now, state.LastScoreCheckAt) >= s.config.Score {
		if err := s.repo.Patch(ctx, docstore.Patch{"lastScoreCheckAt": nowMillis}); err != nil {
			log.Error().Err(err).Msg("failed to claim score check")
		} else {
			s.spawn(ctx, s.refreshScore)
		}
	}
}

func elapsed(now time.Time, lastMillis int64) time.Duration {
	return now.Sub(time.UnixMilli(lastMillis))
}

func (s *Scheduler) spawn(ctx context.Context, task func(context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		task(ctx)
	}()
}

func (s *Scheduler) broadcastFact(ctx context.Context) {
	fact, err := s.collab.Fact(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("fact broadcast skipped")
		return
	}
	if ctx.Err() != nil {
		return
	}
	if _, err := s.chat.PostBot(ctx, models.SenderFactBot, fact); err != nil {
		log.Error().Err(err).Msg("failed to post fact")
		return
	}
	log.Debug().Msg("fact broadcast")
}

func (s *Scheduler) refreshScore(ctx context.Context) {
	report, err := s.collab.LookupScore(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("score refresh skipped")
		return
	}
	if !report.Usable() {
		log.Debug().Msg("score lookup returned no usable score")
		return
	}
	if ctx.Err() != nil {
		return
	}

	sources := report.Sources
	if sources == nil {
		sources = []string{}
	}
	patch := docstore.Patch{
		"homeScore":           *report.HomeScore,
		"awayScore":           *report.AwayScore,
		"isHalftime":          report.IsHalftime,
		"verificationSources": sources,
	}
	if err := s.repo.Patch(ctx, patch); err != nil {
		log.Error().Err(err).Msg("failed to store refreshed score")
		return
	}
	log.Info().
		Int("home", *report.HomeScore).
		Int("away", *report.AwayScore).
		Bool("halftime", report.IsHalftime).
		Msg("score refreshed")
}
