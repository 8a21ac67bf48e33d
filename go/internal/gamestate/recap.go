package gamestate

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/huddle/go/internal/assistant"
	"github.com/mcdev12/huddle/go/internal/docstore"
	"github.com/mcdev12/huddle/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Recapper writes an AI recap of the current score to recaps/latest.
type Recapper struct {
	repo   *Repository
	collab assistant.Collaborator
	clock  clockwork.Clock
}

func NewRecapper(repo *Repository, collab assistant.Collaborator, clock clockwork.Clock) *Recapper {
	return &Recapper{repo: repo, collab: collab, clock: clock}
}

// Publish generates and stores a recap on behalf of authorID.
func (r *Recapper) Publish(ctx context.Context, authorID string) (*models.Recap, error) {
	state, err := r.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	text, err := r.collab.Recap(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("failed to generate recap: %w", err)
	}

	recap := models.Recap{Text: text, AuthorID: authorID, CreatedAt: r.clock.Now().UnixMilli()}
	patch, err := docstore.PatchOf(recap)
	if err != nil {
		return nil, err
	}
	if _, err := r.repo.stores.Store().Write(ctx, RecapCollection, RecapDocID, patch, false); err != nil {
		return nil, fmt.Errorf("failed to store recap: %w", err)
	}

	log.Info().Str("author_id", authorID).Msg("recap published")
	return &recap, nil
}
