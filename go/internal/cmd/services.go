package main

import (
	"github.com/mcdev12/huddle/go/internal/cache"
	"github.com/mcdev12/huddle/go/internal/gateway"
	"github.com/mcdev12/huddle/go/internal/hub"
)

type Services struct {
	Gateway     *gateway.Service
	Leaderboard cache.LeaderboardCache
	Backend     string
	// BackendConnected reports whether the shared backend's change feed is up.
	BackendConnected func() bool
}

func setupServices(app *hub.App) *Services {
	// Shared store → sessions → gateway (websockets + host RPC)
	return &Services{
		Gateway:     gateway.NewService(gateway.DefaultConfig(), app.Context),
		Leaderboard: app.Leaderboard,
		Backend:     string(app.Shared.Mode),

		BackendConnected: app.Shared.Connected,
	}
}
