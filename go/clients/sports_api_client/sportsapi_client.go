package sports_api_client

import (
	"github.com/mcdev12/huddle/go/clients"
)

type SportsApiClient struct {
	*clients.BaseClient
}

func NewSportsApiClient(apiKey string) *SportsApiClient {
	return NewSportsApiClientWithURL(BaseURL, apiKey)
}

// NewSportsApiClientWithURL points the client at another host, e.g. a test server.
func NewSportsApiClientWithURL(baseURL, apiKey string) *SportsApiClient {
	client := &SportsApiClient{
		BaseClient: clients.NewBaseClient(baseURL),
	}

	client.SetHeader(RapidAPIKeyHeader, apiKey)
	client.SetHeader(RapidAPIHostHeader, RapidAPIHost)

	return client
}
