// Package assistant wraps the text generation service the party relies on for stat facts,
// coach replies, score lookups and recaps.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mcdev12/huddle/go/internal/models"
)

// ErrNoProvider is returned when no text generation backend is configured.
var ErrNoProvider = errors.New("no text generation provider configured")

// ScoreReport is the structured result of a score lookup. A nil score means no usable result.
type ScoreReport struct {
	HomeScore  *int     `json:"homeScore"`
	AwayScore  *int     `json:"awayScore"`
	IsHalftime bool     `json:"isHalftime"`
	Sources    []string `json:"sources"`
}

// Usable reports whether both scores were found.
func (r *ScoreReport) Usable() bool {
	return r != nil && r.HomeScore != nil && r.AwayScore != nil &&
		*r.HomeScore >= 0 && *r.AwayScore >= 0
}

// Collaborator is everything the realtime core asks of the text generation service.
type Collaborator interface {
	Fact(ctx context.Context) (string, error)
	Coach(ctx context.Context, prompt string) (string, error)
	LookupScore(ctx context.Context) (*ScoreReport, error)
	Recap(ctx context.Context, state models.SharedGameState) (string, error)
}

// Provider completes prompts. The openai client satisfies it.
type Provider interface {
	CompleteWithSystem(ctx context.Context, model string, systemPrompt string, prompt string) (string, error)
}

// ScoreSource looks the live score up somewhere other than the text provider.
type ScoreSource interface {
	LookupScore(ctx context.Context) (*ScoreReport, error)
}

const (
	systemPrompt = "You are a lively football party host. Keep every answer to one or two short sentences."

	factPrompt  = "Share one surprising, true football statistic or piece of championship game history."
	coachPrompt = "A fan at the watch party asks the coach: %q. Answer in character as a gruff but funny football coach."
	scorePrompt = `Find the current score of today's championship football game.
Reply with JSON only, no prose, in this shape:
{"homeScore": <int or null>, "awayScore": <int or null>, "isHalftime": <bool>, "sources": [<url>, ...]}
Use null for any score you cannot verify.`
	recapPrompt = "Write a two sentence recap of the game so far. Home %d, away %d%s."
)

// Assistant implements Collaborator on top of a Provider.
type Assistant struct {
	provider Provider
	model    string
	scores   ScoreSource
}

var _ Collaborator = (*Assistant)(nil)

// New creates an assistant. A nil provider makes every call fail with ErrNoProvider.
func New(provider Provider, model string) *Assistant {
	return &Assistant{provider: provider, model: model}
}

// WithScoreSource makes LookupScore use src instead of asking the provider.
func (a *Assistant) WithScoreSource(src ScoreSource) *Assistant {
	a.scores = src
	return a
}

func (a *Assistant) complete(ctx context.Context, prompt string) (string, error) {
	if a.provider == nil {
		return "", ErrNoProvider
	}
	text, err := a.provider.CompleteWithSystem(ctx, a.model, systemPrompt, prompt)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("empty completion")
	}
	return text, nil
}

func (a *Assistant) Fact(ctx context.Context) (string, error) {
	return a.complete(ctx, factPrompt)
}

func (a *Assistant) Coach(ctx context.Context, prompt string) (string, error) {
	return a.complete(ctx, fmt.Sprintf(coachPrompt, prompt))
}

func (a *Assistant) LookupScore(ctx context.Context) (*ScoreReport, error) {
	if a.scores != nil {
		return a.scores.LookupScore(ctx)
	}
	text, err := a.complete(ctx, scorePrompt)
	if err != nil {
		return nil, err
	}
	return ParseScoreReport(text)
}

func (a *Assistant) Recap(ctx context.Context, state models.SharedGameState) (string, error) {
	half := ""
	if state.IsHalftime {
		half = ", and it is halftime"
	}
	return a.complete(ctx, fmt.Sprintf(recapPrompt, state.HomeScore, state.AwayScore, half))
}

// ParseScoreReport extracts the JSON object from a completion, tolerating code fences and prose
// around it.
func ParseScoreReport(text string) (*ScoreReport, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object in score lookup reply: %q", text)
	}

	var report ScoreReport
	if err := json.Unmarshal([]byte(text[start:end+1]), &report); err != nil {
		return nil, fmt.Errorf("failed to parse score lookup reply: %w", err)
	}
	return &report, nil
}
