package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/huddle/go/internal/events"
	"github.com/rs/zerolog/log"
)

// Schema creates the documents table.
const Schema = `
CREATE TABLE IF NOT EXISTS documents (
    collection TEXT        NOT NULL,
    id         TEXT        NOT NULL,
    data       JSONB       NOT NULL DEFAULT '{}'::jsonb,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (collection, id)
)`

// stampedData is the written body: the patch plus every field named in $4 set to the database
// time in unix milliseconds.
const stampedData = `$3::jsonb || (
    SELECT coalesce(jsonb_object_agg(f, (extract(epoch FROM now()) * 1000)::bigint), '{}'::jsonb)
    FROM unnest($4::text[]) AS f)`

const (
	mergeUpsertSQL = `
INSERT INTO documents (collection, id, data, updated_at)
VALUES ($1, $2, ` + stampedData + `, now())
ON CONFLICT (collection, id) DO UPDATE
SET data = documents.data || EXCLUDED.data, updated_at = now()`

	replaceUpsertSQL = `
INSERT INTO documents (collection, id, data, updated_at)
VALUES ($1, $2, ` + stampedData + `, now())
ON CONFLICT (collection, id) DO UPDATE
SET data = EXCLUDED.data, updated_at = now()`

	getSQL = `SELECT id, data, updated_at FROM documents WHERE collection = $1 AND id = $2`
)

// LiveStore keeps documents in Postgres as JSONB and announces every write on a change feed.
// Merge-patches use jsonb concatenation so concurrent writers of disjoint fields both survive.
type LiveStore struct {
	pool *pgxpool.Pool
	feed ChangeFeed
}

var _ Store = (*LiveStore)(nil)

func NewLiveStore(pool *pgxpool.Pool, feed ChangeFeed) *LiveStore {
	return &LiveStore{pool: pool, feed: feed}
}

// EnsureSchema creates the documents table if it does not exist.
func (s *LiveStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create documents table: %w", err)
	}
	return nil
}

func (s *LiveStore) Available() bool {
	return true
}

func (s *LiveStore) Get(ctx context.Context, collection, docID string) (*Document, error) {
	var (
		doc  Document
		data []byte
	)
	err := s.pool.QueryRow(ctx, getSQL, collection, docID).Scan(&doc.ID, &data, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s/%s: %w", collection, docID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get document %s/%s: %w", collection, docID, err)
	}
	doc.Data = data
	return &doc, nil
}

func (s *LiveStore) Query(ctx context.Context, q Query) ([]Document, error) {
	sql, args := buildQuerySQL(q)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", q, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			doc  Document
			data []byte
		)
		if err := rows.Scan(&doc.ID, &data, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc.Data = data
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", q, err)
	}

	// The database already limited the rows; apply restores query order and id tie-breaks.
	return q.apply(docs), nil
}

// buildQuerySQL translates a query into SQL. Ordered queries sort on the jsonb field value,
// which compares numbers numerically.
func buildQuerySQL(q Query) (string, []any) {
	var b strings.Builder
	args := []any{q.Collection}

	b.WriteString("SELECT id, data, updated_at FROM documents WHERE collection = $1")
	if q.DocID != "" {
		args = append(args, q.DocID)
		fmt.Fprintf(&b, " AND id = $%d", len(args))
	}

	if q.OrderBy != "" {
		args = append(args, q.OrderBy)
		desc := q.Descending
		if q.LimitToLast {
			desc = !desc
		}
		dir := "ASC"
		if desc {
			dir = "DESC"
		}
		fmt.Fprintf(&b, " ORDER BY data -> $%d %s, id %s", len(args), dir, dir)
	} else {
		b.WriteString(" ORDER BY id ASC")
	}

	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	return b.String(), args
}

func (s *LiveStore) Write(ctx context.Context, collection, docID string, patch Patch, merge bool) (string, error) {
	patch, stamped := patch.splitServerFields()
	_, raw, err := patch.normalize()
	if err != nil {
		return "", err
	}
	if docID == "" {
		docID = uuid.NewString()
	}
	if stamped == nil {
		stamped = []string{}
	}

	sql := replaceUpsertSQL
	if merge {
		sql = mergeUpsertSQL
	}
	if _, err := s.pool.Exec(ctx, sql, collection, docID, string(raw), stamped); err != nil {
		return "", fmt.Errorf("failed to write document %s/%s: %w", collection, docID, err)
	}

	change := events.DocumentChangedPayload{
		ChangeID:   uuid.NewString(),
		Collection: collection,
		DocID:      docID,
		Merge:      merge,
		ChangedAt:  time.Now().UTC(),
	}
	if err := s.feed.Publish(ctx, change); err != nil {
		// The write is durable; subscribers catch up on the next change notice.
		log.Error().Err(err).
			Str("collection", collection).
			Str("doc_id", docID).
			Msg("failed to publish document change")
	}
	return docID, nil
}

func (s *LiveStore) Subscribe(ctx context.Context, q Query) (*Subscription, error) {
	sub := newSubscriber(q)
	subCtx, cancel := context.WithCancel(ctx)

	// Refreshes are serialized so the last delivered snapshot is also the last one read.
	var mu sync.Mutex
	refresh := func() error {
		mu.Lock()
		defer mu.Unlock()
		docs, err := s.Query(subCtx, q)
		if err != nil {
			return err
		}
		sub.deliver(Snapshot{Query: q, Docs: docs})
		return nil
	}

	stop, err := s.feed.Watch(subCtx, q.Collection, func(change events.DocumentChangedPayload) {
		if !q.Matches(change.Collection, change.DocID) {
			return
		}
		if err := refresh(); err != nil && subCtx.Err() == nil {
			log.Error().Err(err).Str("query", q.String()).Msg("failed to refresh subscription")
		}
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("watch %s: %w", q.Collection, err)
	}

	if err := refresh(); err != nil {
		stop()
		cancel()
		return nil, fmt.Errorf("initial snapshot of %s: %w", q, err)
	}

	return newSubscription(ctx, sub, func() {
		stop()
		cancel()
	}), nil
}

// Connected reports whether the change feed is up. Feeds that cannot tell are assumed connected.
func (s *LiveStore) Connected() bool {
	if f, ok := s.feed.(interface{ Connected() bool }); ok {
		return f.Connected()
	}
	return true
}

// Close releases the change feed. The pool is owned by the caller.
func (s *LiveStore) Close() error {
	return s.feed.Close()
}
