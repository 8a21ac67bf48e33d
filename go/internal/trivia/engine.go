// Package trivia scores multiple choice answers into the rank table.
package trivia

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mcdev12/huddle/go/internal/content"
	"github.com/mcdev12/huddle/go/internal/leaderboard"
	"github.com/mcdev12/huddle/go/internal/models"
	"github.com/rs/zerolog/log"
)

var (
	ErrAlreadyAnswered = errors.New("question already answered")
	ErrUnknownQuestion = errors.New("unknown question")
	ErrInvalidOption   = errors.New("option out of range")
)

// AnsweredSet tracks the questions one device has answered. It is never synced.
type AnsweredSet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func NewAnsweredSet() *AnsweredSet {
	return &AnsweredSet{ids: make(map[string]struct{})}
}

// Mark records id and reports whether it was new.
func (s *AnsweredSet) Mark(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

func (s *AnsweredSet) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

func (s *AnsweredSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// Result is the outcome of one answer.
type Result struct {
	QuestionID   string `json:"questionId"`
	Correct      bool   `json:"correct"`
	CorrectIndex int    `json:"correctIndex"`
	Points       int    `json:"points"`
	Total        int    `json:"total,omitempty"`
}

// Engine answers questions for one participant's device.
type Engine struct {
	catalog  *content.Catalog
	table    *leaderboard.Table
	answered *AnsweredSet
}

func NewEngine(catalog *content.Catalog, table *leaderboard.Table) *Engine {
	return &Engine{catalog: catalog, table: table, answered: NewAnsweredSet()}
}

// Answered exposes the device's answered set.
func (e *Engine) Answered() *AnsweredSet {
	return e.answered
}

// Answer scores chosen for questionID. Only the first answer to a question counts. The question is
// marked answered before points are written, so a failed write is not retried.
func (e *Engine) Answer(ctx context.Context, p models.Participant, questionID string, chosen int) (Result, error) {
	q, ok := e.catalog.Question(questionID)
	if !ok {
		return Result{}, fmt.Errorf("%s: %w", questionID, ErrUnknownQuestion)
	}
	if chosen < 0 || chosen >= len(q.Options) {
		return Result{}, fmt.Errorf("%s option %d: %w", questionID, chosen, ErrInvalidOption)
	}
	if !e.answered.Mark(questionID) {
		return Result{}, fmt.Errorf("%s: %w", questionID, ErrAlreadyAnswered)
	}

	res := Result{QuestionID: questionID, CorrectIndex: q.CorrectOptionIndex}
	if chosen != q.CorrectOptionIndex {
		log.Debug().Str("participant_id", p.ID).Str("question_id", questionID).Msg("trivia miss")
		return res, nil
	}

	res.Correct = true
	res.Points = q.Points
	if err := e.table.EnsureEntry(ctx, p); err != nil {
		return res, err
	}
	total, err := e.table.Award(ctx, p.ID, q.Points)
	if err != nil {
		return res, err
	}
	res.Total = total

	log.Info().
		Str("participant_id", p.ID).
		Str("question_id", questionID).
		Int("points", q.Points).
		Msg("trivia answered correctly")
	return res, nil
}

// Available lists the unanswered questions of the pool in play: the halftime pool during
// halftime, the main round otherwise.
func (e *Engine) Available(isHalftime bool) []models.TriviaQuestion {
	pool := e.catalog.Main
	if isHalftime {
		pool = e.catalog.Halftime
	}
	var out []models.TriviaQuestion
	for _, q := range pool {
		if !e.answered.Has(q.ID) {
			out = append(out, q)
		}
	}
	return out
}
