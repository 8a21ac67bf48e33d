package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mcdev12/huddle/go/internal/dbconfig"
	"github.com/mcdev12/huddle/go/internal/hub"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	setupLogging()
	serverCfg := loadServerConfig()

	cfg, err := hub.LoadConfig(hub.ConfigPath())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := hub.Open(ctx, cfg, dbconfig.NewConfigFromEnv())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open party hub")
	}
	defer app.Close()

	services := setupServices(app)
	server := setupServer(services, serverCfg)

	go services.Gateway.Start(ctx)

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("party", cfg.Party).
			Str("backend", string(app.Shared.Mode)).
			Msg("huddle server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	// closes every websocket; each one leaves its session
	cancel()
	time.Sleep(500 * time.Millisecond)

	log.Info().Msg("huddle server shutdown complete")
}

func setupLogging() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	level, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
