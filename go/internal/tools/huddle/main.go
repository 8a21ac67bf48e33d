package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mcdev12/huddle/go/internal/dbconfig"
	"github.com/mcdev12/huddle/go/internal/hub"
	"github.com/mcdev12/huddle/go/internal/identity"
	"github.com/mcdev12/huddle/go/internal/models"
	"github.com/mcdev12/huddle/go/internal/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	identityPath := flag.String("identity", identity.DefaultPath(), "file remembering who you are on this device")
	name := flag.String("name", "", "display name, needed the first time")
	side := flag.String("side", string(models.SideHome), "team you cheer for: home or away")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	level, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(level)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := hub.LoadConfig(hub.ConfigPath())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	app, err := hub.Open(ctx, cfg, dbconfig.NewConfigFromEnv())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open party hub")
	}
	defer app.Close()

	s := session.New(app.Context, identity.NewFileStore(*identityPath))
	term := newTerminal(os.Stdout, s)

	p, err := join(ctx, s, *name, models.Side(*side))
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not join: %v\n", err)
		os.Exit(1)
	}
	defer s.Leave()
	term.printf("welcome %s (%s), type /help for commands\n", p.DisplayName, p.Side)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok || !term.handle(ctx, line) {
				return
			}
		}
	}
}

// join resumes the saved participant, or joins as a new one when -name is given or nothing is
// saved yet.
func join(ctx context.Context, s *session.Session, name string, side models.Side) (models.Participant, error) {
	if name == "" {
		p, err := s.Resume(ctx)
		if errors.Is(err, identity.ErrNoIdentity) {
			return p, fmt.Errorf("first run on this device, pass -name and -side")
		}
		return p, err
	}
	return s.Join(ctx, name, side)
}
