package hub

import (
	"context"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/huddle/go/clients/openai"
	"github.com/mcdev12/huddle/go/clients/sports_api_client"
	"github.com/mcdev12/huddle/go/internal/assistant"
	"github.com/mcdev12/huddle/go/internal/cache"
	"github.com/mcdev12/huddle/go/internal/content"
	"github.com/mcdev12/huddle/go/internal/dbconfig"
	"github.com/mcdev12/huddle/go/internal/session"
	"github.com/rs/zerolog/log"
)

// App holds the session context and the connections behind it.
type App struct {
	Context     *session.AppContext
	Shared      *Shared
	Leaderboard cache.LeaderboardCache

	closeCache func()
}

// Open loads the content and connects the backends. Only bad content is an error.
func Open(ctx context.Context, cfg *Config, db dbconfig.Config) (*App, error) {
	catalog, err := content.Load(cfg.Content.Trivia, cfg.Content.Props)
	if err != nil {
		return nil, err
	}

	clock := clockwork.NewRealClock()
	shared := OpenShared(ctx, db, clock)
	leaderboard, closeCache := OpenLeaderboardCache(ctx, db, cfg.Party)

	appCtx := &session.AppContext{
		Shared:      shared.Store,
		Catalog:     catalog,
		Collab:      NewCollaborator(cfg.Assistant),
		Clock:       clock,
		Leaderboard: leaderboard,
		Scheduler:   cfg.Scheduler,
		GraceWindow: cfg.GraceWindow,
	}

	return &App{
		Context:     appCtx,
		Shared:      shared,
		Leaderboard: leaderboard,
		closeCache:  closeCache,
	}, nil
}

func (a *App) Close() {
	a.closeCache()
	a.Shared.Close()
}

// NewCollaborator builds the assistant. Without an API key facts, coach replies and recaps fail
// and are skipped; with a sports API key and game id scores come from that API.
func NewCollaborator(cfg AssistantConfig) assistant.Collaborator {
	var provider assistant.Provider
	if cfg.APIKey != "" {
		provider = openai.New(cfg.APIKey, cfg.BaseURL)
	} else {
		log.Warn().Msg("OPENAI_API_KEY not set, assistant features are disabled")
	}

	a := assistant.New(provider, cfg.Model)
	if cfg.SportsAPIKey != "" && cfg.SportsGameID != "" {
		client := sports_api_client.NewSportsApiClient(cfg.SportsAPIKey)
		a.WithScoreSource(assistant.NewSportsAPIScores(client, cfg.SportsGameID))
		log.Info().Str("game_id", cfg.SportsGameID).Msg("scores come from the sports API")
	}
	return a
}
