package leaderboard

import (
	"reflect"
	"testing"

	"github.com/mcdev12/huddle/go/internal/models"
)

func entry(id, name string, points int) models.RankEntry {
	return models.RankEntry{UserID: id, UserName: name, Points: points}
}

func findAward(b Board, kind AwardKind, cat models.BetCategory) *Award {
	for i := range b.Awards {
		if b.Awards[i].Kind == kind && b.Awards[i].Category == cat {
			return &b.Awards[i]
		}
	}
	return nil
}

func TestComputeTiedTopAndBottom(t *testing.T) {
	board := Compute([]models.RankEntry{
		entry("a", "Ann", 10),
		entry("c", "Cat", -5),
		entry("b", "Bob", 10),
	}, nil, nil)

	var order []string
	for _, e := range board.Standings {
		order = append(order, e.UserID)
	}
	if !reflect.DeepEqual(order, []string{"a", "b", "c"}) {
		t.Fatalf("unexpected standings %v", order)
	}

	mvp := findAward(board, AwardMVP, "")
	if mvp == nil || !reflect.DeepEqual(mvp.UserIDs, []string{"a", "b"}) {
		t.Fatalf("expected MVP for a and b, got %+v", mvp)
	}
	spoon := findAward(board, AwardWoodenSpoon, "")
	if spoon == nil || !reflect.DeepEqual(spoon.UserIDs, []string{"c"}) {
		t.Fatalf("expected wooden spoon for c, got %+v", spoon)
	}
}

func TestComputeNoMVPWithoutPositiveScore(t *testing.T) {
	board := Compute([]models.RankEntry{entry("a", "Ann", 0), entry("b", "Bob", -3)}, nil, nil)
	if findAward(board, AwardMVP, "") != nil {
		t.Fatal("MVP requires a positive top score")
	}
}

func TestComputeSingleParticipantHasNoWoodenSpoon(t *testing.T) {
	board := Compute([]models.RankEntry{entry("a", "Ann", 5)}, nil, nil)
	if findAward(board, AwardWoodenSpoon, "") != nil {
		t.Fatal("wooden spoon needs more than one participant")
	}
	if findAward(board, AwardMVP, "") == nil {
		t.Fatal("expected MVP")
	}
}

func TestComputeEmpty(t *testing.T) {
	board := Compute(nil, nil, nil)
	if len(board.Standings) != 0 || len(board.Awards) != 0 {
		t.Fatalf("expected empty board, got %+v", board)
	}
}

func TestComputeCategoryAwards(t *testing.T) {
	props := []models.PropBet{
		{ID: "total", Category: models.BetCategoryStats},
		{ID: "yards", Category: models.BetCategoryStats},
		{ID: "toss", Category: models.BetCategoryGame},
	}
	bets := []models.UserBet{
		{UserID: "a", BetID: "total", Status: models.BetStatusWon},
		{UserID: "b", BetID: "total", Status: models.BetStatusLost},
		{UserID: "c", BetID: "total", Status: models.BetStatusLost},
		{UserID: "a", BetID: "toss", Status: models.BetStatusLost},
		{UserID: "b", BetID: "toss", Status: models.BetStatusWon},
		{UserID: "c", BetID: "toss", Status: models.BetStatusWon},
		{UserID: "c", BetID: "yards", Status: models.BetStatusPending},
	}
	entries := []models.RankEntry{entry("a", "Ann", 7), entry("b", "Bob", 7), entry("c", "Cat", 7)}

	board := Compute(entries, bets, props)

	if got := board.CategoryPoints["a"][models.BetCategoryStats]; got != 10 {
		t.Fatalf("expected a stats 10, got %d", got)
	}
	if got := board.CategoryPoints["c"][models.BetCategoryStats]; got != -3 {
		t.Fatalf("pending bets must not count, got %d", got)
	}
	if got := board.CategoryPoints["a"][models.BetCategoryPlayer]; got != 0 {
		t.Fatalf("expected zero for untouched category, got %d", got)
	}

	stats := findAward(board, AwardCategoryBest, models.BetCategoryStats)
	if stats == nil || !reflect.DeepEqual(stats.UserIDs, []string{"a"}) {
		t.Fatalf("expected stats award for a, got %+v", stats)
	}
	game := findAward(board, AwardCategoryBest, models.BetCategoryGame)
	if game == nil || !reflect.DeepEqual(game.UserIDs, []string{"b", "c"}) {
		t.Fatalf("expected game award for b and c, got %+v", game)
	}
	if findAward(board, AwardCategoryBest, models.BetCategoryPlayer) != nil {
		t.Fatal("no award when a category max is zero")
	}
	fumble := findAward(board, AwardStatsFumble, models.BetCategoryStats)
	if fumble == nil || !reflect.DeepEqual(fumble.UserIDs, []string{"b", "c"}) || fumble.Points != -3 {
		t.Fatalf("expected stats fumble for b and c, got %+v", fumble)
	}
}

func TestComputeDoesNotMutateInput(t *testing.T) {
	entries := []models.RankEntry{entry("a", "Ann", 1), entry("b", "Bob", 5)}
	Compute(entries, nil, nil)
	if entries[0].UserID != "a" {
		t.Fatal("input slice was reordered")
	}
}
