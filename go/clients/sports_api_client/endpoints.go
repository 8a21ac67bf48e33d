package sports_api_client

const (
	// Base URL
	BaseURL = "https://v1.american-football.api-sports.io"

	// API Endpoints
	GamesEndpoint = "/games"

	// Headers
	RapidAPIKeyHeader  = "X-RapidAPI-Key"
	RapidAPIHostHeader = "X-RapidAPI-Host"
	RapidAPIHost       = "v1.american-football.api-sports.io"
)

// Game status short codes reported by the games endpoint.
const (
	StatusHalftime   = "HT"
	StatusNotStarted = "NS"
)
