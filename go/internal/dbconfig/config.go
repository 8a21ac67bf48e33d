package dbconfig

import (
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Backend names the shared document store a process talks to.
type Backend string

const (
	// BackendNone means every device runs solo.
	BackendNone Backend = "none"
	// BackendMemory shares documents between sessions of one process.
	BackendMemory Backend = "memory"
	// BackendPostgres stores documents in Postgres and fans changes out over NATS.
	BackendPostgres Backend = "postgres"
)

// Config holds the shared backend connection settings.
type Config struct {
	Backend Backend

	// Postgres
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	// NATS JetStream change feed
	NATSURL string

	// Redis leaderboard cache, optional
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// NewConfigFromEnv reads HUDDLE_BACKEND, DB_*, NATS_URL and REDIS_* environment variables.
// Credentials have no defaults: leaving them unset keeps the process in solo mode.
func NewConfigFromEnv() Config {
	port, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		port = 5432
	}
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		redisDB = 0
	}

	return Config{
		Backend:       Backend(strings.ToLower(getEnv("HUDDLE_BACKEND", string(BackendPostgres)))),
		Host:          os.Getenv("DB_HOST"),
		Port:          port,
		User:          os.Getenv("DB_USER"),
		Password:      os.Getenv("DB_PASSWORD"),
		Database:      getEnv("DB_NAME", "huddle"),
		SSLMode:       getEnv("DB_SSLMODE", "disable"),
		NATSURL:       os.Getenv("NATS_URL"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,
	}
}

// IsComplete reports whether every credential the postgres backend needs is present and
// shaped right. It does not dial anything.
func (c Config) IsComplete() bool {
	if c.Host == "" || c.User == "" || c.Password == "" || c.Database == "" {
		return false
	}
	if c.Port <= 0 || c.Port > 65535 {
		return false
	}
	return strings.HasPrefix(c.NATSURL, "nats://") || strings.HasPrefix(c.NATSURL, "tls://")
}

// Mode returns the backend the process should actually run with.
func (c Config) Mode() Backend {
	switch c.Backend {
	case BackendMemory:
		return BackendMemory
	case BackendPostgres:
		if c.IsComplete() {
			return BackendPostgres
		}
	}
	return BackendNone
}

// HasRedis reports whether the leaderboard cache is configured.
func (c Config) HasRedis() bool {
	return c.RedisAddr != ""
}

// DSN returns the Postgres connection URL.
func (c Config) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
