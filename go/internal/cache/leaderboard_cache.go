// Package cache mirrors the rank table into Redis so the top of the leaderboard can be served
// without reading every rank document.
package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/mcdev12/huddle/go/internal/models"
	"github.com/redis/go-redis/v9"
)

// LeaderboardCache handles Redis ZSET operations for the leaderboard.
type LeaderboardCache interface {
	UpdateScore(ctx context.Context, entry models.RankEntry) error
	GetTop(ctx context.Context, limit int) ([]LeaderboardEntry, error)
	GetRank(ctx context.Context, userID string) (int64, error)
}

// LeaderboardEntry is a single cached leaderboard row.
type LeaderboardEntry struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Points   int    `json:"points"`
	Rank     int    `json:"rank"`
}

// MaxTop caps how many rows GetTop returns.
const MaxTop = 100

type leaderboardCache struct {
	client *redis.Client
	party  string
}

// NewLeaderboardCache creates a cache for one party hub.
func NewLeaderboardCache(client *redis.Client, party string) LeaderboardCache {
	return &leaderboardCache{
		client: client,
		party:  party,
	}
}

func (c *leaderboardCache) key() string {
	return fmt.Sprintf("huddle:%s:lb", c.party)
}

func (c *leaderboardCache) namesKey() string {
	return fmt.Sprintf("huddle:%s:names", c.party)
}

func (c *leaderboardCache) UpdateScore(ctx context.Context, entry models.RankEntry) error {
	pipe := c.client.TxPipeline()
	pipe.ZAdd(ctx, c.key(), redis.Z{
		Score:  float64(entry.Points),
		Member: entry.UserID,
	})
	if entry.UserName != "" {
		pipe.HSet(ctx, c.namesKey(), entry.UserID, entry.UserName)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to update leaderboard cache: %w", err)
	}
	return nil
}

// GetTop returns up to limit rows, best first. limit is capped at MaxTop; a non-positive limit
// returns no rows.
func (c *leaderboardCache) GetTop(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		return []LeaderboardEntry{}, nil
	}
	if limit > MaxTop {
		limit = MaxTop
	}
	results, err := c.client.ZRevRangeWithScores(ctx, c.key(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, len(results))
	ids := make([]string, len(results))
	for i, z := range results {
		id, _ := z.Member.(string)
		ids[i] = id
		entries[i] = LeaderboardEntry{
			UserID: id,
			Points: int(z.Score),
			Rank:   i + 1,
		}
	}
	if len(ids) == 0 {
		return entries, nil
	}

	names, err := c.client.HMGet(ctx, c.namesKey(), ids...).Result()
	if err != nil {
		return nil, err
	}
	for i, n := range names {
		if s, ok := n.(string); ok {
			entries[i].UserName = s
		}
	}
	return entries, nil
}

// GetRank returns the 1-indexed rank of userID, or -1 when the user has no score.
func (c *leaderboardCache) GetRank(ctx context.Context, userID string) (int64, error) {
	rank, err := c.client.ZRevRank(ctx, c.key(), userID).Result()
	if errors.Is(err, redis.Nil) {
		return -1, nil
	}
	if err != nil {
		return 0, err
	}
	return rank + 1, nil
}
