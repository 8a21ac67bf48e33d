package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned by Get when a document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrUnavailable is returned by every operation of a store without a live backend.
	ErrUnavailable = errors.New("document store unavailable")
)

// Store is the capability-checked document database the realtime core talks to.
type Store interface {
	// Available reports whether a live backend exists. It is decided once at construction.
	Available() bool
	Get(ctx context.Context, collection, docID string) (*Document, error)
	Query(ctx context.Context, q Query) ([]Document, error)
	// Write stores patch under collection/docID. An empty docID creates a document with a
	// generated id. With merge only the named fields change, otherwise the document is replaced.
	Write(ctx context.Context, collection, docID string, patch Patch, merge bool) (string, error)
	// Subscribe delivers an initial snapshot of q and then a fresh snapshot after every change,
	// until the subscription is cancelled or ctx is done.
	Subscribe(ctx context.Context, q Query) (*Subscription, error)
}

// Patch is a set of top-level fields to write.
type Patch map[string]any

type serverTimestamp struct{}

// ServerTimestamp as a patch value is replaced by the store's current time in unix milliseconds.
var ServerTimestamp any = serverTimestamp{}

// splitServerFields returns the patch without its ServerTimestamp fields, and the names of those
// fields.
func (p Patch) splitServerFields() (Patch, []string) {
	var names []string
	for k, v := range p {
		if _, ok := v.(serverTimestamp); ok {
			names = append(names, k)
		}
	}
	if len(names) == 0 {
		return p, nil
	}
	rest := make(Patch, len(p)-len(names))
	for k, v := range p {
		if _, ok := v.(serverTimestamp); !ok {
			rest[k] = v
		}
	}
	sort.Strings(names)
	return rest, names
}

// PatchOf converts a JSON-tagged struct into a patch holding all of its fields.
func PatchOf(v any) (Patch, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal patch: %w", err)
	}
	var p Patch
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("unmarshal patch: %w", err)
	}
	return p, nil
}

// normalize round-trips the patch through JSON so values compare the way they will be read back.
func (p Patch) normalize() (map[string]any, []byte, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal patch: %w", err)
	}
	fields := make(map[string]any, len(p))
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, nil, fmt.Errorf("unmarshal patch: %w", err)
	}
	return fields, raw, nil
}

// Document is one stored record.
type Document struct {
	ID        string          `json:"id"`
	Data      json.RawMessage `json:"data"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Decode unmarshals the document body into v.
func (d Document) Decode(v any) error {
	if len(d.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(d.Data, v); err != nil {
		return fmt.Errorf("decode document %s: %w", d.ID, err)
	}
	return nil
}

// Snapshot is the full result set of a query at one point in time.
type Snapshot struct {
	Query Query
	Docs  []Document
}

// Subscription is a live stream of snapshots.
type Subscription struct {
	C <-chan Snapshot

	sub    *subscriber
	onStop func()
	done   chan struct{}
	once   sync.Once
}

// Cancel tears the subscription down and closes C. It is safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		close(s.done)
		if s.onStop != nil {
			s.onStop()
		}
		s.sub.close()
	})
}

// subscriber hands snapshots to a consumer, keeping only the newest undelivered one.
type subscriber struct {
	query  Query
	ch     chan Snapshot
	mu     sync.Mutex
	closed bool
}

func newSubscriber(q Query) *subscriber {
	return &subscriber{query: q, ch: make(chan Snapshot, 1)}
}

// deliver never blocks: a pending stale snapshot is replaced by the new one.
func (s *subscriber) deliver(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case <-s.ch:
	default:
	}
	s.ch <- snap
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// newSubscription wires a subscriber to ctx so the stream ends when ctx does.
func newSubscription(ctx context.Context, sub *subscriber, onStop func()) *Subscription {
	s := &Subscription{C: sub.ch, sub: sub, onStop: onStop, done: make(chan struct{})}
	go func() {
		select {
		case <-ctx.Done():
			s.Cancel()
		case <-s.done:
		}
	}()
	return s
}

// Feed creates a subscription to q fed by the returned function, for Store implementations
// outside this package. onStop runs once when the subscription ends.
func Feed(ctx context.Context, q Query, onStop func()) (*Subscription, func(Snapshot)) {
	sub := newSubscriber(q)
	return newSubscription(ctx, sub, onStop), sub.deliver
}
