package assistant

import (
	"context"
	"errors"
	"sync"

	"github.com/mcdev12/huddle/go/internal/models"
)

var errScripted = errors.New("scripted failure")

// Scripted is a canned Collaborator for tests and offline demos. It counts calls.
type Scripted struct {
	FactText  string
	CoachText string
	Score     *ScoreReport
	RecapText string
	Fail      bool

	mu     sync.Mutex
	calls  map[string]int
	prompt string
}

var _ Collaborator = (*Scripted)(nil)

func (s *Scripted) record(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[name]++
	if s.Fail {
		return errScripted
	}
	return nil
}

// Calls returns how many times the named method was invoked.
func (s *Scripted) Calls(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

// LastPrompt returns the last prompt passed to Coach.
func (s *Scripted) LastPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prompt
}

func (s *Scripted) Fact(ctx context.Context) (string, error) {
	if err := s.record("Fact"); err != nil {
		return "", err
	}
	return s.FactText, nil
}

func (s *Scripted) Coach(ctx context.Context, prompt string) (string, error) {
	if err := s.record("Coach"); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.prompt = prompt
	s.mu.Unlock()
	return s.CoachText, nil
}

func (s *Scripted) LookupScore(ctx context.Context) (*ScoreReport, error) {
	if err := s.record("LookupScore"); err != nil {
		return nil, err
	}
	if s.Score == nil {
		return &ScoreReport{}, nil
	}
	report := *s.Score
	return &report, nil
}

func (s *Scripted) Recap(ctx context.Context, state models.SharedGameState) (string, error) {
	if err := s.record("Recap"); err != nil {
		return "", err
	}
	return s.RecapText, nil
}
