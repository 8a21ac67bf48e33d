package sports_api_client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetGame(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(RapidAPIKeyHeader) != "key" {
			t.Errorf("missing api key header")
		}
		if r.URL.Path != GamesEndpoint || r.URL.Query().Get("id") != "42" {
			t.Errorf("unexpected request %s", r.URL)
		}
		w.Write([]byte(`{"errors":[],"results":1,"response":[{"game":{"id":42,"status":{"short":"HT"}},"scores":{"home":{"total":14},"away":{"total":null}}}]}`))
	}))
	defer srv.Close()

	client := NewSportsApiClientWithURL(srv.URL, "key")
	game, err := client.GetGame(context.Background(), "42")
	if err != nil {
		t.Fatalf("get game failed: %v", err)
	}
	if !game.IsHalftime() {
		t.Fatal("expected halftime")
	}
	if game.Scores.Home.Total == nil || *game.Scores.Home.Total != 14 {
		t.Fatalf("unexpected home score %v", game.Scores.Home.Total)
	}
	if game.Scores.Away.Total != nil {
		t.Fatal("expected nil away score")
	}
}

func TestGetGameAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors":{"token":"invalid key"},"results":0,"response":[]}`))
	}))
	defer srv.Close()

	_, err := NewSportsApiClientWithURL(srv.URL, "bad").GetGame(context.Background(), "1")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestGameStarted(t *testing.T) {
	tests := []struct {
		short string
		want  bool
	}{
		{StatusNotStarted, false},
		{"Q1", true},
		{StatusHalftime, true},
	}
	for _, tt := range tests {
		g := &Game{Game: GameInfo{Status: GameStatus{Short: tt.short}}}
		if got := g.Started(); got != tt.want {
			t.Fatalf("Started() with status %q = %v, want %v", tt.short, got, tt.want)
		}
	}
}
