package assistant

import (
	"context"

	"github.com/mcdev12/huddle/go/clients/sports_api_client"
)

// SportsAPIScores reads the score of one game from the american football API.
type SportsAPIScores struct {
	client *sports_api_client.SportsApiClient
	gameID string
}

var _ ScoreSource = (*SportsAPIScores)(nil)

func NewSportsAPIScores(client *sports_api_client.SportsApiClient, gameID string) *SportsAPIScores {
	return &SportsAPIScores{client: client, gameID: gameID}
}

func (s *SportsAPIScores) LookupScore(ctx context.Context) (*ScoreReport, error) {
	game, err := s.client.GetGame(ctx, s.gameID)
	if err != nil {
		return nil, err
	}
	report := &ScoreReport{
		IsHalftime: game.IsHalftime(),
		Sources:    []string{sports_api_client.SourceURL(s.gameID)},
	}
	// Before kickoff the API may report placeholder totals.
	if game.Started() {
		report.HomeScore = game.Scores.Home.Total
		report.AwayScore = game.Scores.Away.Total
	}
	return report, nil
}
