package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mcdev12/huddle/go/internal/cache"
	"github.com/mcdev12/huddle/go/internal/content"
	"github.com/mcdev12/huddle/go/internal/docstore"
	"github.com/mcdev12/huddle/go/internal/gateway"
	"github.com/mcdev12/huddle/go/internal/models"
	"github.com/mcdev12/huddle/go/internal/session"
)

type fakeLeaderboard struct {
	limit int
}

func (f *fakeLeaderboard) UpdateScore(ctx context.Context, entry models.RankEntry) error {
	return nil
}

func (f *fakeLeaderboard) GetTop(ctx context.Context, limit int) ([]cache.LeaderboardEntry, error) {
	f.limit = limit
	return []cache.LeaderboardEntry{{UserID: "ana", UserName: "Ana", Points: 25, Rank: 1}}, nil
}

func (f *fakeLeaderboard) GetRank(ctx context.Context, userID string) (int64, error) {
	if userID != "ana" {
		return -1, nil
	}
	return 1, nil
}

func newTestServices(t *testing.T, lb cache.LeaderboardCache) *Services {
	t.Helper()
	catalog, err := content.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	app := &session.AppContext{Shared: docstore.Unavailable{}, Catalog: catalog}
	return &Services{
		Gateway:     gateway.NewService(gateway.DefaultConfig(), app),
		Leaderboard: lb,
		Backend:     "none",

		BackendConnected: func() bool { return false },
	}
}

func serve(t *testing.T, services *Services) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(setupServer(services, ServerConfig{Port: "0", LeaderboardSize: 5}).Handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestHealthAndInfo(t *testing.T) {
	srv := serve(t, newTestServices(t, nil))

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/info")
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	defer resp.Body.Close()
	var info map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info["backend"] != "none" || info["service"] != "huddle_gateway" || info["leaderboard_cache"] != false || info["backend_connected"] != false {
		t.Fatalf("info = %v", info)
	}
}

func TestLeaderboardTop(t *testing.T) {
	lb := &fakeLeaderboard{}
	srv := serve(t, newTestServices(t, lb))

	resp, err := http.Get(srv.URL + "/api/leaderboard/top")
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	defer resp.Body.Close()
	var top []cache.LeaderboardEntry
	if err := json.NewDecoder(resp.Body).Decode(&top); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(top) != 1 || top[0].UserName != "Ana" || lb.limit != 5 {
		t.Fatalf("top = %+v, limit = %d", top, lb.limit)
	}

	resp, err = http.Get(srv.URL + "/api/leaderboard/top?limit=zero")
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d", resp.StatusCode)
	}
}

func TestLeaderboardTopWithoutCache(t *testing.T) {
	srv := serve(t, newTestServices(t, nil))

	resp, err := http.Get(srv.URL + "/api/leaderboard/top")
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestLeaderboardRank(t *testing.T) {
	srv := serve(t, newTestServices(t, &fakeLeaderboard{}))

	resp, err := http.Get(srv.URL + "/api/leaderboard/rank?user=ana")
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	defer resp.Body.Close()
	var body struct {
		UserID string `json:"userId"`
		Rank   int64  `json:"rank"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.UserID != "ana" || body.Rank != 1 {
		t.Fatalf("rank = %+v", body)
	}

	for query, want := range map[string]int{
		"?user=ghost": http.StatusNotFound,
		"":            http.StatusBadRequest,
	} {
		resp, err := http.Get(srv.URL + "/api/leaderboard/rank" + query)
		if err != nil {
			t.Fatalf("rank: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != want {
			t.Fatalf("rank%s status = %d, want %d", query, resp.StatusCode, want)
		}
	}
}
