// Package session runs one participant's device: joining, the sync state machine, the engines
// and the assembled view.
package session

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/huddle/go/internal/assistant"
	"github.com/mcdev12/huddle/go/internal/cache"
	"github.com/mcdev12/huddle/go/internal/content"
	"github.com/mcdev12/huddle/go/internal/docstore"
	"github.com/mcdev12/huddle/go/internal/gamestate"
)

// DefaultGraceWindow is how long a syncing session waits for its first snapshot.
const DefaultGraceWindow = 5 * time.Second

// AppContext carries the process-wide dependencies every session shares.
type AppContext struct {
	// Shared is the backend all devices sync through. Unavailable means every session is solo.
	Shared  docstore.Store
	Catalog *content.Catalog
	Collab  assistant.Collaborator
	Clock   clockwork.Clock
	// Leaderboard mirrors rank changes into Redis. Optional.
	Leaderboard cache.LeaderboardCache
	Scheduler   gamestate.SchedulerConfig
	GraceWindow time.Duration
}

// WithDefaults returns a copy with every unset dependency filled in.
func (a *AppContext) WithDefaults() *AppContext {
	c := *a
	if c.Shared == nil {
		c.Shared = docstore.Unavailable{}
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.Collab == nil {
		c.Collab = assistant.New(nil, "")
	}
	if c.Scheduler == (gamestate.SchedulerConfig{}) {
		c.Scheduler = gamestate.DefaultSchedulerConfig()
	}
	if c.GraceWindow <= 0 {
		c.GraceWindow = DefaultGraceWindow
	}
	return &c
}
