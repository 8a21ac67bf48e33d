package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// MemoryStore keeps documents in process and fans changes out to subscribers.
// It backs solo sessions, a single-process shared hub, and tests.
type MemoryStore struct {
	clock     clockwork.Clock
	available bool

	mu          sync.RWMutex
	collections map[string]map[string]*memoryDoc
	subs        map[int]*subscriber
	nextSubID   int
}

type memoryDoc struct {
	fields map[string]any
	doc    Document
}

// NewMemoryStore creates an in-process store that reports itself as a live backend.
func NewMemoryStore(clock clockwork.Clock) *MemoryStore {
	return newMemoryStore(clock, true)
}

// NewLocalStore creates an in-process store for a single device. It reports itself as
// unavailable so callers keep treating the session as solo.
func NewLocalStore(clock clockwork.Clock) *MemoryStore {
	return newMemoryStore(clock, false)
}

func newMemoryStore(clock clockwork.Clock, available bool) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryStore{
		clock:       clock,
		available:   available,
		collections: make(map[string]map[string]*memoryDoc),
		subs:        make(map[int]*subscriber),
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Available() bool {
	return s.available
}

func (s *MemoryStore) Get(ctx context.Context, collection, docID string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.collections[collection][docID]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, docID, ErrNotFound)
	}
	doc := d.doc
	return &doc, nil
}

func (s *MemoryStore) Query(ctx context.Context, q Query) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryLocked(q), nil
}

func (s *MemoryStore) queryLocked(q Query) []Document {
	docs := make([]Document, 0, len(s.collections[q.Collection]))
	for _, d := range s.collections[q.Collection] {
		docs = append(docs, d.doc)
	}
	return q.apply(docs)
}

func (s *MemoryStore) Write(ctx context.Context, collection, docID string, patch Patch, merge bool) (string, error) {
	patch, stamped := patch.splitServerFields()
	fields, _, err := patch.normalize()
	if err != nil {
		return "", err
	}
	if docID == "" {
		docID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := float64(s.clock.Now().UnixMilli())
	for _, name := range stamped {
		fields[name] = now
	}

	coll, ok := s.collections[collection]
	if !ok {
		coll = make(map[string]*memoryDoc)
		s.collections[collection] = coll
	}

	existing, ok := coll[docID]
	if !ok || !merge {
		existing = &memoryDoc{fields: make(map[string]any, len(fields))}
		coll[docID] = existing
	}
	for k, v := range fields {
		existing.fields[k] = v
	}

	raw, err := json.Marshal(existing.fields)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	existing.doc = Document{ID: docID, Data: raw, UpdatedAt: s.clock.Now()}

	// Deliver while holding the write lock so every subscriber sees snapshots in write order.
	// deliver never blocks.
	for _, sub := range s.subs {
		if sub.query.Matches(collection, docID) {
			sub.deliver(Snapshot{Query: sub.query, Docs: s.queryLocked(sub.query)})
		}
	}

	log.Debug().
		Str("collection", collection).
		Str("doc_id", docID).
		Bool("merge", merge).
		Msg("memory store write")

	return docID, nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, q Query) (*Subscription, error) {
	sub := newSubscriber(q)

	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = sub
	sub.deliver(Snapshot{Query: q, Docs: s.queryLocked(q)})
	s.mu.Unlock()

	return newSubscription(ctx, sub, func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}), nil
}

// SubscriberCount returns the number of open subscriptions.
func (s *MemoryStore) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}
