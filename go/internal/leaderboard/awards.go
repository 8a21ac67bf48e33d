package leaderboard

import (
	"sort"

	"github.com/mcdev12/huddle/go/internal/models"
)

// AwardKind names an end-of-game award.
type AwardKind string

const (
	AwardMVP          AwardKind = "mvp"
	AwardWoodenSpoon  AwardKind = "woodenSpoon"
	AwardCategoryBest AwardKind = "categoryBest"
	AwardStatsFumble  AwardKind = "statsFumble"
)

// Award goes to every participant in a tie group.
type Award struct {
	Kind     AwardKind          `json:"kind"`
	Title    string             `json:"title"`
	Category models.BetCategory `json:"category,omitempty"`
	UserIDs  []string           `json:"userIds"`
	Points   int                `json:"points"`
}

// Board is the computed leaderboard view.
type Board struct {
	Standings      []models.RankEntry                    `json:"standings"`
	Awards         []Award                               `json:"awards"`
	CategoryPoints map[string]map[models.BetCategory]int `json:"categoryPoints"`
}

// Compute ranks entries by descending points (ties by name, then id) and hands out awards. Ties
// are never broken for awards. It does not modify its inputs.
func Compute(entries []models.RankEntry, bets []models.UserBet, props []models.PropBet) Board {
	standings := append([]models.RankEntry(nil), entries...)
	sort.SliceStable(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.UserName != b.UserName {
			return a.UserName < b.UserName
		}
		return a.UserID < b.UserID
	})

	board := Board{
		Standings:      standings,
		Awards:         []Award{},
		CategoryPoints: CategoryPoints(standings, bets, props),
	}
	if len(standings) == 0 {
		return board
	}

	total := func(e models.RankEntry) int { return e.Points }

	top := standings[0].Points
	if top > 0 {
		board.Awards = append(board.Awards, Award{
			Kind:    AwardMVP,
			Title:   "MVP",
			UserIDs: tiedAt(standings, top, total),
			Points:  top,
		})
	}

	if len(standings) > 1 {
		bottom := standings[len(standings)-1].Points
		board.Awards = append(board.Awards, Award{
			Kind:    AwardWoodenSpoon,
			Title:   "Wooden Spoon",
			UserIDs: tiedAt(standings, bottom, total),
			Points:  bottom,
		})
	}

	for _, cat := range models.BetCategories {
		inCategory := func(e models.RankEntry) int { return board.CategoryPoints[e.UserID][cat] }
		best, worst := extremes(standings, inCategory)
		if best > 0 {
			board.Awards = append(board.Awards, Award{
				Kind:     AwardCategoryBest,
				Title:    categoryTitle(cat),
				Category: cat,
				UserIDs:  tiedAt(standings, best, inCategory),
				Points:   best,
			})
		}
		if cat == models.BetCategoryStats && worst < 0 {
			board.Awards = append(board.Awards, Award{
				Kind:     AwardStatsFumble,
				Title:    "Stats Fumble",
				Category: cat,
				UserIDs:  tiedAt(standings, worst, inCategory),
				Points:   worst,
			})
		}
	}
	return board
}

// CategoryPoints sums settled bet deltas per participant and category. Every participant gets
// every category, zero when they have no settled bets in it.
func CategoryPoints(entries []models.RankEntry, bets []models.UserBet, props []models.PropBet) map[string]map[models.BetCategory]int {
	categoryOf := make(map[string]models.BetCategory, len(props))
	for _, p := range props {
		categoryOf[p.ID] = p.Category
	}

	points := make(map[string]map[models.BetCategory]int, len(entries))
	for _, e := range entries {
		m := make(map[models.BetCategory]int, len(models.BetCategories))
		for _, c := range models.BetCategories {
			m[c] = 0
		}
		points[e.UserID] = m
	}

	for _, b := range bets {
		m, ok := points[b.UserID]
		if !ok {
			continue
		}
		cat, ok := categoryOf[b.BetID]
		if !ok {
			continue
		}
		switch b.Status {
		case models.BetStatusWon:
			m[cat] += models.BetWinPoints
		case models.BetStatusLost:
			m[cat] += models.BetLossPoints
		}
	}
	return points
}

func extremes(entries []models.RankEntry, score func(models.RankEntry) int) (hi, lo int) {
	for i, e := range entries {
		s := score(e)
		if i == 0 || s > hi {
			hi = s
		}
		if i == 0 || s < lo {
			lo = s
		}
	}
	return hi, lo
}

func tiedAt(entries []models.RankEntry, value int, score func(models.RankEntry) int) []string {
	var ids []string
	for _, e := range entries {
		if score(e) == value {
			ids = append(ids, e.UserID)
		}
	}
	return ids
}

func categoryTitle(c models.BetCategory) string {
	switch c {
	case models.BetCategoryStats:
		return "Stat Nerd"
	case models.BetCategoryGame:
		return "Game Reader"
	case models.BetCategoryPlayer:
		return "Talent Scout"
	case models.BetCategoryEntertainment:
		return "Showstopper"
	}
	return string(c) + " Champ"
}
