// Package hub assembles the dependencies a process needs to run party sessions: the shared
// store, the leaderboard mirror, the assistant and the game content.
package hub

import (
	"fmt"
	"os"
	"time"

	"github.com/mcdev12/huddle/go/internal/gamestate"
	"github.com/mcdev12/huddle/go/internal/session"
	"gopkg.in/yaml.v3"
)

const (
	DefaultParty = "default"
	DefaultModel = "gpt-4o-mini"
)

// Config is read from the optional YAML file named by HUDDLE_CONFIG. Secrets only come from the
// environment.
type Config struct {
	Party       string                    `yaml:"party"`
	Content     ContentConfig             `yaml:"content"`
	Scheduler   gamestate.SchedulerConfig `yaml:"scheduler"`
	GraceWindow time.Duration             `yaml:"grace_window"`
	Assistant   AssistantConfig           `yaml:"assistant"`
}

// ContentConfig points at trivia and prop files replacing the built-in ones.
type ContentConfig struct {
	Trivia string `yaml:"trivia"`
	Props  string `yaml:"props"`
}

type AssistantConfig struct {
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`

	APIKey       string `yaml:"-"`
	SportsAPIKey string `yaml:"-"`
	SportsGameID string `yaml:"-"`
}

func DefaultConfig() *Config {
	return &Config{
		Party:       DefaultParty,
		Scheduler:   gamestate.DefaultSchedulerConfig(),
		GraceWindow: session.DefaultGraceWindow,
		Assistant:   AssistantConfig{Model: DefaultModel},
	}
}

// LoadConfig overlays the file at path on the defaults, then applies the environment. An empty
// path skips the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// ConfigPath is the YAML file named by HUDDLE_CONFIG, if any.
func ConfigPath() string {
	return os.Getenv("HUDDLE_CONFIG")
}

func (c *Config) applyEnv() {
	c.Party = getEnv("HUDDLE_PARTY", c.Party)
	c.Assistant.Model = getEnv("OPENAI_MODEL", c.Assistant.Model)
	c.Assistant.BaseURL = getEnv("OPENAI_BASE_URL", c.Assistant.BaseURL)
	c.Assistant.APIKey = os.Getenv("OPENAI_API_KEY")
	c.Assistant.SportsAPIKey = os.Getenv("SPORTS_API_KEY")
	c.Assistant.SportsGameID = os.Getenv("SPORTS_GAME_ID")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
