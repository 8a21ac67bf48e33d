package sports_api_client

import (
	"context"
	"fmt"
)

type GameStatus struct {
	Short string `json:"short"`
	Long  string `json:"long"`
	Timer string `json:"timer"`
}

type GameInfo struct {
	ID     int        `json:"id"`
	Stage  string     `json:"stage"`
	Status GameStatus `json:"status"`
}

type TeamScore struct {
	Total *int `json:"total"`
}

type GameScores struct {
	Home TeamScore `json:"home"`
	Away TeamScore `json:"away"`
}

type Game struct {
	Game   GameInfo   `json:"game"`
	Scores GameScores `json:"scores"`
}

type GamesResponse struct {
	Get        string         `json:"get"`
	Parameters map[string]any `json:"parameters"`
	Errors     any            `json:"errors"`
	Results    int            `json:"results"`
	Response   []Game         `json:"response"`
}

// GetGame returns the live state of one game. Scores are nil before kickoff.
func (c *SportsApiClient) GetGame(ctx context.Context, gameID string) (*Game, error) {
	endpoint := fmt.Sprintf("%s?id=%s", GamesEndpoint, gameID)

	var response GamesResponse
	if err := c.GetJSON(ctx, endpoint, &response); err != nil {
		return nil, fmt.Errorf("failed to get game %s: %w", gameID, err)
	}

	if response.Errors != nil {
		if errMap, ok := response.Errors.(map[string]any); ok && len(errMap) > 0 {
			return nil, fmt.Errorf("API returned errors: %v", response.Errors)
		}
	}
	if len(response.Response) == 0 {
		return nil, fmt.Errorf("game %s not found", gameID)
	}

	return &response.Response[0], nil
}

// IsHalftime reports whether the game is at the half.
func (g *Game) IsHalftime() bool {
	return g.Game.Status.Short == StatusHalftime
}

// Started reports whether the game has kicked off.
func (g *Game) Started() bool {
	return g.Game.Status.Short != StatusNotStarted
}

// SourceURL is the endpoint a score was read from.
func SourceURL(gameID string) string {
	return fmt.Sprintf("%s%s?id=%s", BaseURL, GamesEndpoint, gameID)
}
