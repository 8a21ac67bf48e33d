// Package gamestate owns the shared scoreboard document and the background work that keeps it
// fresh.
package gamestate

import (
	"context"
	"errors"
	"fmt"

	"github.com/mcdev12/huddle/go/internal/docstore"
	"github.com/mcdev12/huddle/go/internal/models"
)

const (
	Collection = "gameState"
	DocID      = "current"

	RecapCollection = "recaps"
	RecapDocID      = "latest"
)

// Query selects the shared game state singleton.
func Query() docstore.Query {
	return docstore.Doc(Collection, DocID)
}

// RecapQuery selects the latest recap.
func RecapQuery() docstore.Query {
	return docstore.Doc(RecapCollection, RecapDocID)
}

// Repository reads and merge-patches the shared game state. It never replaces the document.
type Repository struct {
	stores docstore.Provider
}

func NewRepository(stores docstore.Provider) *Repository {
	return &Repository{stores: stores}
}

// Get returns the current state, zero valued when the document does not exist yet.
func (r *Repository) Get(ctx context.Context) (models.SharedGameState, error) {
	var state models.SharedGameState
	doc, err := r.stores.Store().Get(ctx, Collection, DocID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return state, nil
		}
		return state, fmt.Errorf("failed to read game state: %w", err)
	}
	if err := doc.Decode(&state); err != nil {
		return state, err
	}
	return state, nil
}

// Patch merges the named fields into the state.
func (r *Repository) Patch(ctx context.Context, patch docstore.Patch) error {
	if _, err := r.stores.Store().Write(ctx, Collection, DocID, patch, true); err != nil {
		return fmt.Errorf("failed to patch game state: %w", err)
	}
	return nil
}

// State decodes a snapshot of Query.
func State(docs []docstore.Document) models.SharedGameState {
	var state models.SharedGameState
	for _, d := range docs {
		if d.ID == DocID {
			_ = d.Decode(&state)
		}
	}
	return state
}

// LatestRecap decodes a snapshot of RecapQuery. It returns nil when no recap exists.
func LatestRecap(docs []docstore.Document) *models.Recap {
	for _, d := range docs {
		if d.ID != RecapDocID {
			continue
		}
		var recap models.Recap
		if err := d.Decode(&recap); err != nil {
			return nil
		}
		return &recap
	}
	return nil
}
