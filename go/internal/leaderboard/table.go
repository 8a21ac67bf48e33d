// Package leaderboard keeps the per-participant rank table and computes standings and awards.
package leaderboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/mcdev12/huddle/go/internal/cache"
	"github.com/mcdev12/huddle/go/internal/docstore"
	"github.com/mcdev12/huddle/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Collection holds one rank document per participant, keyed by participant id.
const Collection = "ranks"

// Query selects the whole rank table.
func Query() docstore.Query {
	return docstore.Collection(Collection)
}

// Table applies point deltas to rank entries.
type Table struct {
	stores docstore.Provider
	mirror cache.LeaderboardCache
}

// NewTable creates a rank table. mirror may be nil. Points are mirrored only while stores resolves
// to the shared store.
func NewTable(stores docstore.Provider, mirror cache.LeaderboardCache) *Table {
	return &Table{stores: stores, mirror: mirror}
}

// EnsureEntry records the participant's name and side without touching their points.
func (t *Table) EnsureEntry(ctx context.Context, p models.Participant) error {
	patch := docstore.Patch{
		"userId":   p.ID,
		"userName": p.DisplayName,
		"side":     p.Side,
	}
	if _, err := t.stores.Store().Write(ctx, Collection, p.ID, patch, true); err != nil {
		return fmt.Errorf("failed to ensure rank entry for %s: %w", p.ID, err)
	}
	return nil
}

// Get returns the participant's entry, or a zero entry when none exists.
func (t *Table) Get(ctx context.Context, userID string) (models.RankEntry, error) {
	entry := models.RankEntry{UserID: userID}
	doc, err := t.stores.Store().Get(ctx, Collection, userID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return entry, nil
		}
		return entry, err
	}
	if err := doc.Decode(&entry); err != nil {
		return entry, err
	}
	entry.UserID = userID
	return entry, nil
}

// Award adds delta to the participant's points and returns the new total. The read and the
// merge-patch are not atomic; concurrent awards to one participant may lose an update.
func (t *Table) Award(ctx context.Context, userID string, delta int) (int, error) {
	entry, err := t.Get(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to read rank entry for %s: %w", userID, err)
	}
	entry.Points += delta

	patch := docstore.Patch{"userId": userID, "points": entry.Points}
	if _, err := t.stores.Store().Write(ctx, Collection, userID, patch, true); err != nil {
		return 0, fmt.Errorf("failed to award %d points to %s: %w", delta, userID, err)
	}

	log.Debug().
		Str("user_id", userID).
		Int("delta", delta).
		Int("points", entry.Points).
		Msg("points awarded")

	if t.mirror != nil && docstore.IsShared(t.stores) {
		if err := t.mirror.UpdateScore(ctx, entry); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("leaderboard cache update failed")
		}
	}
	return entry.Points, nil
}

// Entries decodes a rank table snapshot.
func Entries(docs []docstore.Document) []models.RankEntry {
	out := make([]models.RankEntry, 0, len(docs))
	for _, d := range docs {
		var e models.RankEntry
		if err := d.Decode(&e); err != nil {
			log.Warn().Err(err).Str("doc_id", d.ID).Msg("skipping malformed rank entry")
			continue
		}
		if e.UserID == "" {
			e.UserID = d.ID
		}
		out = append(out, e)
	}
	return out
}
