package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"breachledger/internal/incident/chain"
	"breachledger/internal/incident/models"
	id "breachledger/pkg/domain"
	dErrors "breachledger/pkg/domain-errors"
	"breachledger/pkg/platform/sentinel"
	txcontext "breachledger/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

// InMemoryStore keeps incidents in process memory. Transactions lock the
// organization counter or the incident head they touch, stage their writes and
// apply them atomically on commit, so the same invariants hold as with
// PostgreSQL row locks.
type InMemoryStore struct {
	mu        sync.RWMutex
	incidents map[id.IncidentID]*models.Incident
	versions  map[id.IncidentID][]*models.IncidentVersion
	tokens    map[string]*models.IncidentVersion
	counters  map[id.OrganizationID]int64

	locks   *keyedLocks
	timeout time.Duration
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		incidents: make(map[id.IncidentID]*models.Incident),
		versions:  make(map[id.IncidentID][]*models.IncidentVersion),
		tokens:    make(map[string]*models.IncidentVersion),
		counters:  make(map[id.OrganizationID]int64),
		locks:     newKeyedLocks(),
	}
}

// RunInTx runs fn against a staged transaction and commits it if fn succeeds
// and the context is still live. Writes other stores stage on the context's
// AfterCommit buffer (outbox rows) are applied only after a commit.
func (s *InMemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context, store chain.Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := s.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx := newMemoryTx(s)
	defer tx.release()
	staged := &txcontext.AfterCommit{}

	if err := fn(txcontext.WithAfterCommit(ctx, staged), tx); err != nil {
		return err
	}
	// Check again before commit: a cancelled unit of work leaves nothing behind.
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if err := tx.commit(); err != nil {
		return err
	}
	staged.Run()
	return nil
}

// GetHistory returns the head row and all versions in ascending order.
func (s *InMemoryStore) GetHistory(_ context.Context, incidentID id.IncidentID) (*models.Incident, []*models.IncidentVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inc, ok := s.incidents[incidentID]
	if !ok {
		return nil, nil, fmt.Errorf("incident not found: %w", sentinel.ErrNotFound)
	}
	versions := make([]*models.IncidentVersion, 0, len(s.versions[incidentID]))
	for _, v := range s.versions[incidentID] {
		versions = append(versions, v.Clone())
	}
	return inc.Clone(), versions, nil
}

func (s *InMemoryStore) GetIncident(_ context.Context, incidentID id.IncidentID) (*models.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inc, ok := s.incidents[incidentID]
	if !ok {
		return nil, fmt.Errorf("incident not found: %w", sentinel.ErrNotFound)
	}
	return inc.Clone(), nil
}

// ListByOrganization returns an organization's head rows ordered by internal id.
func (s *InMemoryStore) ListByOrganization(_ context.Context, orgID id.OrganizationID) ([]*models.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Incident
	for _, inc := range s.incidents {
		if inc.OrganizationID == orgID {
			out = append(out, inc.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InternalID < out[j].InternalID })
	return out, nil
}

// FindByToken returns the version holding token and its incident's head row.
func (s *InMemoryStore) FindByToken(_ context.Context, token string) (*models.Incident, *models.IncidentVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.tokens[token]
	if !ok {
		return nil, nil, fmt.Errorf("token not found: %w", sentinel.ErrNotFound)
	}
	inc, ok := s.incidents[v.IncidentID]
	if !ok {
		return nil, nil, fmt.Errorf("incident not found: %w", sentinel.ErrNotFound)
	}
	return inc.Clone(), v.Clone(), nil
}

type headUpdate struct {
	versionNumber int
	status        models.Status
	updatedAt     time.Time
}

// memoryTx stages writes until commit.
type memoryTx struct {
	s        *InMemoryStore
	held     map[string]func()
	counters map[id.OrganizationID]int64
	created  map[id.IncidentID]*models.Incident
	versions []*models.IncidentVersion
	heads    map[id.IncidentID]headUpdate
	deleted  map[id.IncidentID]bool
}

func newMemoryTx(s *InMemoryStore) *memoryTx {
	return &memoryTx{
		s:        s,
		held:     make(map[string]func()),
		counters: make(map[id.OrganizationID]int64),
		created:  make(map[id.IncidentID]*models.Incident),
		heads:    make(map[id.IncidentID]headUpdate),
		deleted:  make(map[id.IncidentID]bool),
	}
}

func (t *memoryTx) lock(ctx context.Context, key string) error {
	if _, ok := t.held[key]; ok {
		return nil
	}
	release, err := t.s.locks.acquire(ctx, key)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "timed out waiting for lock")
	}
	t.held[key] = release
	return nil
}

func (t *memoryTx) release() {
	for _, r := range t.held {
		r()
	}
	t.held = nil
}

func (t *memoryTx) NextInternalID(ctx context.Context, orgID id.OrganizationID) (int64, error) {
	if err := t.lock(ctx, "org:"+orgID.String()); err != nil {
		return 0, err
	}
	current, staged := t.counters[orgID]
	if !staged {
		t.s.mu.RLock()
		current = t.s.counters[orgID]
		t.s.mu.RUnlock()
	}
	next := current + 1
	t.counters[orgID] = next
	return next, nil
}

func (t *memoryTx) InsertIncident(_ context.Context, incident *models.Incident) error {
	t.s.mu.RLock()
	_, exists := t.s.incidents[incident.ID]
	t.s.mu.RUnlock()
	if _, staged := t.created[incident.ID]; exists || staged {
		return fmt.Errorf("incident %s already exists: %w", incident.ID, sentinel.ErrConflict)
	}
	t.created[incident.ID] = incident.Clone()
	return nil
}

func (t *memoryTx) LockIncident(ctx context.Context, incidentID id.IncidentID) (*models.Incident, error) {
	if err := t.lock(ctx, "incident:"+incidentID.String()); err != nil {
		return nil, err
	}
	if t.deleted[incidentID] {
		return nil, fmt.Errorf("incident not found: %w", sentinel.ErrNotFound)
	}
	if inc, ok := t.created[incidentID]; ok {
		return t.withStagedHead(inc.Clone()), nil
	}
	t.s.mu.RLock()
	inc, ok := t.s.incidents[incidentID]
	t.s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("incident not found: %w", sentinel.ErrNotFound)
	}
	return t.withStagedHead(inc.Clone()), nil
}

func (t *memoryTx) withStagedHead(inc *models.Incident) *models.Incident {
	if h, ok := t.heads[inc.ID]; ok {
		inc.CurrentVersionNumber = h.versionNumber
		inc.Status = h.status
		inc.UpdatedAt = h.updatedAt
	}
	return inc
}

func (t *memoryTx) InsertVersion(_ context.Context, version *models.IncidentVersion) error {
	for _, v := range t.versions {
		if v.Token == version.Token {
			return fmt.Errorf("token already used: %w", sentinel.ErrAlreadyUsed)
		}
		if v.IncidentID == version.IncidentID && v.VersionNumber == version.VersionNumber {
			return fmt.Errorf("duplicate version number %d: %w", version.VersionNumber, sentinel.ErrConflict)
		}
	}

	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	if _, taken := t.s.tokens[version.Token]; taken {
		return fmt.Errorf("token already used: %w", sentinel.ErrAlreadyUsed)
	}
	_, committed := t.s.incidents[version.IncidentID]
	_, staged := t.created[version.IncidentID]
	if !committed && !staged {
		return fmt.Errorf("incident not found: %w", sentinel.ErrNotFound)
	}
	for _, v := range t.s.versions[version.IncidentID] {
		if v.VersionNumber == version.VersionNumber {
			return fmt.Errorf("duplicate version number %d: %w", version.VersionNumber, sentinel.ErrConflict)
		}
	}
	t.versions = append(t.versions, version.Clone())
	return nil
}

func (t *memoryTx) AdvanceHead(ctx context.Context, incidentID id.IncidentID, versionNumber int, status models.Status, updatedAt time.Time) error {
	head, err := t.LockIncident(ctx, incidentID)
	if err != nil {
		return err
	}
	if head.CurrentVersionNumber != versionNumber-1 {
		return fmt.Errorf("head moved to %d: %w", head.CurrentVersionNumber, sentinel.ErrConflict)
	}
	t.heads[incidentID] = headUpdate{versionNumber: versionNumber, status: status, updatedAt: updatedAt}
	return nil
}

func (t *memoryTx) VersionTokens(_ context.Context, incidentID id.IncidentID) ([]string, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	var out []string
	for _, v := range t.s.versions[incidentID] {
		out = append(out, v.Token)
	}
	for _, v := range t.versions {
		if v.IncidentID == incidentID {
			out = append(out, v.Token)
		}
	}
	return out, nil
}

func (t *memoryTx) DeleteIncident(ctx context.Context, incidentID id.IncidentID) error {
	if _, err := t.LockIncident(ctx, incidentID); err != nil {
		return err
	}
	t.deleted[incidentID] = true
	return nil
}

func (t *memoryTx) commit() error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	// Another transaction on a different incident may have taken a token since
	// InsertVersion checked it.
	for _, v := range t.versions {
		if _, taken := s.tokens[v.Token]; taken {
			return fmt.Errorf("token already used: %w", sentinel.ErrAlreadyUsed)
		}
	}

	for org, n := range t.counters {
		s.counters[org] = n
	}
	for incID, inc := range t.created {
		s.incidents[incID] = inc
	}
	for _, v := range t.versions {
		s.versions[v.IncidentID] = append(s.versions[v.IncidentID], v)
		s.tokens[v.Token] = v
	}
	for incID, h := range t.heads {
		if inc, ok := s.incidents[incID]; ok {
			inc.CurrentVersionNumber = h.versionNumber
			inc.Status = h.status
			inc.UpdatedAt = h.updatedAt
		}
	}
	for incID := range t.deleted {
		for _, v := range s.versions[incID] {
			delete(s.tokens, v.Token)
		}
		delete(s.versions, incID)
		delete(s.incidents, incID)
	}
	return nil
}

var _ chain.TxRunner = (*InMemoryStore)(nil)
