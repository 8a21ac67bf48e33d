package session

import (
	"github.com/mcdev12/huddle/go/internal/betting"
	"github.com/mcdev12/huddle/go/internal/chat"
	"github.com/mcdev12/huddle/go/internal/docstore"
	"github.com/mcdev12/huddle/go/internal/gamestate"
	"github.com/mcdev12/huddle/go/internal/leaderboard"
	"github.com/mcdev12/huddle/go/internal/models"
)

// TriviaPrompt is a question as shown to a participant, without its answer.
type TriviaPrompt struct {
	ID      string            `json:"id"`
	Text    string            `json:"text"`
	Options []string          `json:"options"`
	Points  int               `json:"points"`
	Pool    models.TriviaPool `json:"pool"`
}

// View is everything a device renders. Seq increases with every view a session builds, so a
// consumer receiving views out of order can drop the stale ones.
type View struct {
	Seq         uint64                     `json:"seq"`
	State       SyncState                  `json:"state"`
	Participant models.Participant         `json:"participant"`
	Game        models.SharedGameState     `json:"game"`
	Messages    []models.ChatMessage       `json:"messages"`
	Board       leaderboard.Board          `json:"board"`
	Props       []models.PropBet           `json:"props"`
	MyBets      map[string]models.UserBet  `json:"myBets"`
	BetStats    map[string]models.BetStats `json:"betStats"`
	Trivia      []TriviaPrompt             `json:"trivia"`
	Recap       *models.Recap              `json:"recap,omitempty"`
}

func (s *Session) viewLocked() View {
	s.viewSeq++
	v := View{
		Seq:         s.viewSeq,
		State:       s.state,
		Participant: s.participant,
		Game:        gamestate.State(s.docs[feedGame]),
		Messages:    chat.Window(s.docs[feedChat]),
		Props:       betting.MergeProps(s.app.Catalog.Props, s.docs[feedProps]),
		MyBets:      make(map[string]models.UserBet),
		BetStats:    make(map[string]models.BetStats),
		Trivia:      []TriviaPrompt{},
		Recap:       gamestate.LatestRecap(s.docs[feedRecap]),
	}

	bets := betting.UserBets(s.docs[feedBets])
	entries := leaderboard.Entries(s.docs[feedRanks])
	v.Board = leaderboard.Compute(entries, bets, v.Props)

	for _, e := range entries {
		if e.UserID == s.participant.ID {
			v.Participant.CumulativePoints = e.Points
		}
	}
	for _, b := range bets {
		if b.UserID == s.participant.ID {
			v.MyBets[b.BetID] = b
		}
	}
	for _, p := range v.Props {
		v.BetStats[p.ID] = betting.ComputeStats(p.ID, bets)
	}
	for _, q := range s.trivia.Available(v.Game.IsHalftime) {
		v.Trivia = append(v.Trivia, TriviaPrompt{
			ID:      q.ID,
			Text:    q.Text,
			Options: q.Options,
			Points:  q.Points,
			Pool:    q.Pool,
		})
	}
	return v
}

type feed int

const (
	feedChat feed = iota
	feedRanks
	feedGame
	feedRecap
	feedProps
	feedBets
	feedCount
)

var feedQueries = [feedCount]func() docstore.Query{
	feedChat:  chat.Query,
	feedRanks: leaderboard.Query,
	feedGame:  gamestate.Query,
	feedRecap: gamestate.RecapQuery,
	feedProps: betting.PropsQuery,
	feedBets:  betting.UserBetsQuery,
}

func (f feed) String() string {
	return feedQueries[f]().Collection
}
