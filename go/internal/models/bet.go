package models

import "fmt"

// BetCategory groups prop bets for per-category awards.
type BetCategory string

const (
	BetCategoryStats         BetCategory = "Stats"
	BetCategoryGame          BetCategory = "Game"
	BetCategoryPlayer        BetCategory = "Player"
	BetCategoryEntertainment BetCategory = "Entertainment"
)

// BetCategories lists the categories in display order.
var BetCategories = []BetCategory{
	BetCategoryStats,
	BetCategoryGame,
	BetCategoryPlayer,
	BetCategoryEntertainment,
}

// BetStatus defines the settlement state of a user bet.
type BetStatus string

const (
	BetStatusPending BetStatus = "pending"
	BetStatusWon     BetStatus = "won"
	BetStatusLost    BetStatus = "lost"
)

// Point deltas applied to a rank entry when a bet settles.
const (
	BetWinPoints  = 10
	BetLossPoints = -3
)

// PropBet is a proposition wager resolved by the host.
type PropBet struct {
	ID       string      `json:"id" yaml:"id"`
	Question string      `json:"question" yaml:"question"`
	Category BetCategory `json:"category" yaml:"category"`
	Options  []string    `json:"options" yaml:"options"`
	Resolved bool        `json:"resolved" yaml:"-"`
	Outcome  string      `json:"outcome,omitempty" yaml:"-"`
}

// HasOption reports whether selection is one of the bet's options.
func (p PropBet) HasOption(selection string) bool {
	for _, o := range p.Options {
		if o == selection {
			return true
		}
	}
	return false
}

// UserBet is a participant's pick on a prop bet.
type UserBet struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	BetID     string    `json:"betId"`
	Selection string    `json:"selection"`
	Status    BetStatus `json:"status"`
	PlacedAt  int64     `json:"placedAt"`
}

// UserBetID is the document key enforcing one bet per participant and prop.
func UserBetID(userID, betID string) string {
	return fmt.Sprintf("%s_%s", userID, betID)
}

// BetStats aggregates the picks placed on a prop bet.
type BetStats struct {
	BetID                string `json:"betId"`
	TotalCount           int    `json:"totalCount"`
	MostPopularSelection string `json:"mostPopularSelection,omitempty"`
}
