package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func setupServer(services *Services, cfg ServerConfig) *http.Server {
	mux := http.NewServeMux()

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	registerServices(mux, services)
	setupHealthCheck(mux)
	setupInfo(mux, services)
	setupLeaderboard(mux, services, cfg.LeaderboardSize)

	handler := c.Handler(mux)

	return &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}
}

func registerServices(mux *http.ServeMux, services *Services) {
	// /ws, /ws/stats and the host service
	services.Gateway.RegisterRoutes(mux)
}

func setupHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}

func setupInfo(mux *http.ServeMux, services *Services) {
	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		stats := services.Gateway.GetStats()
		stats["backend"] = services.Backend
		stats["backend_connected"] = services.BackendConnected()
		stats["leaderboard_cache"] = services.Leaderboard != nil
		writeJSON(w, http.StatusOK, stats)
	})
}

func setupLeaderboard(mux *http.ServeMux, services *Services, defaultLimit int) {
	mux.HandleFunc("/api/leaderboard/top", func(w http.ResponseWriter, r *http.Request) {
		if services.Leaderboard == nil {
			http.Error(w, "leaderboard cache is not configured", http.StatusServiceUnavailable)
			return
		}
		limit := defaultLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			limit = n
		}

		top, err := services.Leaderboard.GetTop(r.Context(), limit)
		if err != nil {
			log.Error().Err(err).Msg("failed to read leaderboard cache")
			http.Error(w, "failed to read leaderboard", http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, top)
	})

	mux.HandleFunc("/api/leaderboard/rank", func(w http.ResponseWriter, r *http.Request) {
		if services.Leaderboard == nil {
			http.Error(w, "leaderboard cache is not configured", http.StatusServiceUnavailable)
			return
		}
		userID := r.URL.Query().Get("user")
		if userID == "" {
			http.Error(w, "user is required", http.StatusBadRequest)
			return
		}

		rank, err := services.Leaderboard.GetRank(r.Context(), userID)
		if err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("failed to read leaderboard rank")
			http.Error(w, "failed to read leaderboard", http.StatusBadGateway)
			return
		}
		if rank < 0 {
			http.Error(w, "user has no rank", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"userId": userID, "rank": rank})
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}
