package hub

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/huddle/go/internal/cache"
	"github.com/mcdev12/huddle/go/internal/dbconfig"
	"github.com/mcdev12/huddle/go/internal/docstore"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	connectTimeout = 10 * time.Second
	redisTimeout   = 3 * time.Second
)

// Shared is the store every session syncs through.
type Shared struct {
	Store docstore.Store
	Mode  dbconfig.Backend
	close func()
}

// Connected reports whether the shared store can currently reach its peers. A process memory
// store is always connected; solo never is.
func (s *Shared) Connected() bool {
	switch store := s.Store.(type) {
	case *docstore.LiveStore:
		return store.Connected()
	default:
		return store.Available()
	}
}

func (s *Shared) Close() {
	if s.close != nil {
		s.close()
	}
}

// OpenShared connects the backend cfg selects. A backend that is not configured or cannot be
// reached leaves the process solo, so this never fails.
func OpenShared(ctx context.Context, cfg dbconfig.Config, clock clockwork.Clock) *Shared {
	solo := &Shared{Store: docstore.Unavailable{}, Mode: dbconfig.BackendNone}

	switch cfg.Mode() {
	case dbconfig.BackendMemory:
		log.Info().Msg("sharing documents in process memory")
		return &Shared{Store: docstore.NewMemoryStore(clock), Mode: dbconfig.BackendMemory}

	case dbconfig.BackendPostgres:
		store, closeFn, err := openLive(ctx, cfg)
		if err != nil {
			log.Warn().Err(err).Msg("shared backend unreachable, devices will run solo")
			return solo
		}
		log.Info().
			Str("host", cfg.Host).
			Str("database", cfg.Database).
			Str("nats_url", cfg.NATSURL).
			Msg("connected to shared backend")
		return &Shared{Store: store, Mode: dbconfig.BackendPostgres, close: closeFn}
	}

	if cfg.Backend == dbconfig.BackendPostgres {
		log.Warn().Msg("backend credentials incomplete, devices will run solo")
	}
	return solo
}

func openLive(ctx context.Context, cfg dbconfig.Config) (*docstore.LiveStore, func(), error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	feedCfg := docstore.DefaultJetStreamConfig()
	feedCfg.URL = cfg.NATSURL
	feed, err := docstore.NewJetStreamFeed(ctx, feedCfg)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	store := docstore.NewLiveStore(pool, feed)
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		pool.Close()
		return nil, nil, err
	}

	return store, func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close change feed")
		}
		pool.Close()
	}, nil
}

// OpenLeaderboardCache returns the Redis mirror for party, or nil when Redis is not configured
// or not answering.
func OpenLeaderboardCache(ctx context.Context, cfg dbconfig.Config, party string) (cache.LeaderboardCache, func()) {
	if !cfg.HasRedis() {
		return nil, func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, leaderboard cache disabled")
		client.Close()
		return nil, func() {}
	}

	log.Info().Str("addr", cfg.RedisAddr).Str("party", party).Msg("leaderboard cache enabled")
	return cache.NewLeaderboardCache(client, party), func() {
		if err := client.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close redis client")
		}
	}
}
