// Package betting handles prop bet placement, pick aggregation and host resolution.
package betting

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/huddle/go/internal/content"
	"github.com/mcdev12/huddle/go/internal/docstore"
	"github.com/mcdev12/huddle/go/internal/events"
	"github.com/mcdev12/huddle/go/internal/leaderboard"
	"github.com/mcdev12/huddle/go/internal/models"
	"github.com/rs/zerolog/log"
)

const (
	// PropsCollection holds resolution state for the catalog's prop bets, keyed by bet id.
	PropsCollection = "props"
	// UserBetsCollection holds one document per participant and prop bet.
	UserBetsCollection = "userBets"
)

var (
	ErrUnknownBet       = errors.New("unknown prop bet")
	ErrInvalidSelection = errors.New("selection is not an option of the bet")
	ErrAlreadyBet       = errors.New("already placed a bet on this prop")
	ErrBetResolved      = errors.New("prop bet is already resolved")
	ErrAlreadyResolved  = errors.New("prop bet was resolved before")
)

// PropsQuery selects the prop resolution documents.
func PropsQuery() docstore.Query {
	return docstore.Collection(PropsCollection)
}

// UserBetsQuery selects every placed bet.
func UserBetsQuery() docstore.Query {
	return docstore.Collection(UserBetsCollection).OrderedBy("placedAt")
}

type Engine struct {
	catalog *content.Catalog
	stores  docstore.Provider
	table   *leaderboard.Table
	clock   clockwork.Clock
}

func NewEngine(catalog *content.Catalog, stores docstore.Provider, table *leaderboard.Table, clock clockwork.Clock) *Engine {
	return &Engine{catalog: catalog, stores: stores, table: table, clock: clock}
}

// Props returns the catalog with stored resolutions applied.
func (e *Engine) Props(ctx context.Context) ([]models.PropBet, error) {
	docs, err := e.stores.Store().Query(ctx, PropsQuery())
	if err != nil {
		return nil, fmt.Errorf("failed to read props: %w", err)
	}
	return MergeProps(e.catalog.Props, docs), nil
}

// Prop returns one prop bet with its stored resolution.
func (e *Engine) Prop(ctx context.Context, betID string) (models.PropBet, error) {
	prop, ok := e.catalog.Prop(betID)
	if !ok {
		return models.PropBet{}, fmt.Errorf("%s: %w", betID, ErrUnknownBet)
	}
	doc, err := e.stores.Store().Get(ctx, PropsCollection, betID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return prop, nil
		}
		return prop, fmt.Errorf("failed to read prop %s: %w", betID, err)
	}
	return applyResolution(prop, *doc), nil
}

// PlaceBet records selection for the participant. A participant gets one bet per prop and only
// while the prop is unresolved.
func (e *Engine) PlaceBet(ctx context.Context, p models.Participant, betID, selection string) (*models.UserBet, error) {
	prop, err := e.Prop(ctx, betID)
	if err != nil {
		return nil, err
	}
	if prop.Resolved {
		return nil, fmt.Errorf("%s: %w", betID, ErrBetResolved)
	}
	if !prop.HasOption(selection) {
		return nil, fmt.Errorf("%s %q: %w", betID, selection, ErrInvalidSelection)
	}

	store := e.stores.Store()
	id := models.UserBetID(p.ID, betID)
	if _, err := store.Get(ctx, UserBetsCollection, id); err == nil {
		return nil, fmt.Errorf("%s: %w", betID, ErrAlreadyBet)
	} else if !errors.Is(err, docstore.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing bet: %w", err)
	}

	bet := models.UserBet{
		ID:        id,
		UserID:    p.ID,
		BetID:     betID,
		Selection: selection,
		Status:    models.BetStatusPending,
		PlacedAt:  e.clock.Now().UnixMilli(),
	}
	patch, err := docstore.PatchOf(bet)
	if err != nil {
		return nil, err
	}
	if _, err := store.Write(ctx, UserBetsCollection, id, patch, false); err != nil {
		return nil, fmt.Errorf("failed to place bet: %w", err)
	}

	log.Info().
		Str("participant_id", p.ID).
		Str("bet_id", betID).
		Str("selection", selection).
		Msg("bet placed")
	return &bet, nil
}

// Stats aggregates the picks on betID.
func (e *Engine) Stats(ctx context.Context, betID string) (models.BetStats, error) {
	if _, ok := e.catalog.Prop(betID); !ok {
		return models.BetStats{}, fmt.Errorf("%s: %w", betID, ErrUnknownBet)
	}
	bets, err := e.betsFor(ctx, betID)
	if err != nil {
		return models.BetStats{}, err
	}
	return ComputeStats(betID, bets), nil
}

// ResolveBet settles betID with outcome. It runs once per bet; later calls fail with
// ErrAlreadyResolved and change nothing. Two hosts resolving at the same moment are not guarded
// against.
func (e *Engine) ResolveBet(ctx context.Context, betID, outcome string) (events.BetResolvedPayload, error) {
	result := events.BetResolvedPayload{BetID: betID, Outcome: outcome}

	prop, err := e.Prop(ctx, betID)
	if err != nil {
		return result, err
	}
	if prop.Resolved {
		return result, fmt.Errorf("%s: %w", betID, ErrAlreadyResolved)
	}
	if !prop.HasOption(outcome) {
		return result, fmt.Errorf("%s %q: %w", betID, outcome, ErrInvalidSelection)
	}

	// Settle pending bets before marking the prop resolved; a retry skips settled bets.
	store := e.stores.Store()
	bets, err := e.betsFor(ctx, betID)
	if err != nil {
		return result, err
	}
	for _, b := range bets {
		if b.Status != models.BetStatusPending {
			continue
		}
		status, delta := models.BetStatusLost, models.BetLossPoints
		if b.Selection == outcome {
			status, delta = models.BetStatusWon, models.BetWinPoints
		}
		if _, err := store.Write(ctx, UserBetsCollection, b.ID, docstore.Patch{"status": status}, true); err != nil {
			return result, fmt.Errorf("failed to settle bet %s: %w", b.ID, err)
		}
		if _, err := e.table.Award(ctx, b.UserID, delta); err != nil {
			return result, err
		}
		if status == models.BetStatusWon {
			result.Winners++
		} else {
			result.Losers++
		}
	}

	patch := docstore.Patch{"id": betID, "resolved": true, "outcome": outcome}
	if _, err := store.Write(ctx, PropsCollection, betID, patch, true); err != nil {
		return result, fmt.Errorf("failed to resolve %s: %w", betID, err)
	}

	log.Info().
		Str("bet_id", betID).
		Str("outcome", outcome).
		Int("winners", result.Winners).
		Int("losers", result.Losers).
		Msg("prop bet resolved")
	return result, nil
}

func (e *Engine) betsFor(ctx context.Context, betID string) ([]models.UserBet, error) {
	docs, err := e.stores.Store().Query(ctx, UserBetsQuery())
	if err != nil {
		return nil, fmt.Errorf("failed to read bets: %w", err)
	}
	var out []models.UserBet
	for _, b := range UserBets(docs) {
		if b.BetID == betID {
			out = append(out, b)
		}
	}
	return out, nil
}

// UserBets decodes a snapshot of the user bet collection.
func UserBets(docs []docstore.Document) []models.UserBet {
	out := make([]models.UserBet, 0, len(docs))
	for _, d := range docs {
		var b models.UserBet
		if err := d.Decode(&b); err != nil {
			log.Warn().Err(err).Str("doc_id", d.ID).Msg("skipping malformed user bet")
			continue
		}
		if b.ID == "" {
			b.ID = d.ID
		}
		out = append(out, b)
	}
	return out
}

// MergeProps overlays stored resolutions onto the catalog. Documents for unknown bets are ignored.
func MergeProps(catalog []models.PropBet, docs []docstore.Document) []models.PropBet {
	byID := make(map[string]docstore.Document, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}
	out := make([]models.PropBet, len(catalog))
	for i, p := range catalog {
		if d, ok := byID[p.ID]; ok {
			p = applyResolution(p, d)
		}
		out[i] = p
	}
	return out
}

func applyResolution(p models.PropBet, d docstore.Document) models.PropBet {
	var state struct {
		Resolved bool   `json:"resolved"`
		Outcome  string `json:"outcome"`
	}
	if err := d.Decode(&state); err != nil {
		log.Warn().Err(err).Str("bet_id", p.ID).Msg("ignoring malformed prop state")
		return p
	}
	p.Resolved = state.Resolved
	p.Outcome = state.Outcome
	return p
}

// ComputeStats counts the bets on betID and finds the most popular selection. Bets are visited by
// placement time then id, and a tie goes to the selection seen first.
func ComputeStats(betID string, bets []models.UserBet) models.BetStats {
	ordered := make([]models.UserBet, 0, len(bets))
	for _, b := range bets {
		if b.BetID == betID {
			ordered = append(ordered, b)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].PlacedAt != ordered[j].PlacedAt {
			return ordered[i].PlacedAt < ordered[j].PlacedAt
		}
		return ordered[i].ID < ordered[j].ID
	})

	stats := models.BetStats{BetID: betID, TotalCount: len(ordered)}
	counts := make(map[string]int)
	var seen []string
	for _, b := range ordered {
		if counts[b.Selection] == 0 {
			seen = append(seen, b.Selection)
		}
		counts[b.Selection]++
	}
	best := 0
	for _, sel := range seen {
		if counts[sel] > best {
			best = counts[sel]
			stats.MostPopularSelection = sel
		}
	}
	return stats
}
