package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	id "breachledger/pkg/domain"
	audit "breachledger/pkg/platform/audit"
	txcontext "breachledger/pkg/platform/tx"
)

// InMemoryStore keeps audit events and their outbox rows in memory. Appends
// made inside an in-memory unit of work wait for its commit.
type InMemoryStore struct {
	mu        sync.Mutex
	events    []audit.Event
	outbox    []audit.OutboxEntry
	published map[uuid.UUID]time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{published: make(map[uuid.UUID]time.Time)}
}

func (s *InMemoryStore) Append(ctx context.Context, event audit.Event) error {
	entry, err := audit.NewOutboxEntry(event, time.Now())
	if err != nil {
		return err
	}
	if staged, ok := txcontext.AfterCommitFrom(ctx); ok {
		staged.Add(func() { s.append(event, entry) })
		return nil
	}
	s.append(event, entry)
	return nil
}

func (s *InMemoryStore) append(event audit.Event, entry audit.OutboxEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	s.outbox = append(s.outbox, entry)
}

// ListByOrganization returns events for one organization in append order.
func (s *InMemoryStore) ListByOrganization(_ context.Context, orgID id.OrganizationID) ([]audit.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []audit.Event
	for _, e := range s.events {
		if e.OrganizationID == orgID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ProcessPending hands up to limit unpublished rows to publish and marks the
// returned IDs as published.
func (s *InMemoryStore) ProcessPending(ctx context.Context, limit int, publish audit.PublishFunc) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var batch []audit.OutboxEntry
	for _, e := range s.outbox {
		if _, done := s.published[e.ID]; done {
			continue
		}
		batch = append(batch, e)
		if len(batch) == limit {
			break
		}
	}
	if len(batch) == 0 {
		return 0, nil
	}

	ids, err := publish(ctx, batch)
	now := time.Now()
	for _, delivered := range ids {
		s.published[delivered] = now
	}
	return len(ids), err
}

// Pending returns the number of unpublished outbox rows.
func (s *InMemoryStore) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.outbox) - len(s.published)
}

// DeletePublishedBefore drops delivered rows published before cutoff.
func (s *InMemoryStore) DeletePublishedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.outbox[:0]
	var removed int64
	for _, e := range s.outbox {
		if at, done := s.published[e.ID]; done && at.Before(cutoff) {
			delete(s.published, e.ID)
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.outbox = kept
	return removed, nil
}
