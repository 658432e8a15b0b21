// Package chain owns the append-only version chain of an incident.
//
// Every mutation runs in one transaction: the head row (or the organization's
// counter row, for creation) is locked, the next version number is derived
// from it, the version is tokenized and inserted, and the head is advanced.
// Version numbers per incident are therefore exactly 1..current with no gaps.
package chain

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"breachledger/internal/incident/deadline"
	"breachledger/internal/incident/metrics"
	"breachledger/internal/incident/models"
	id "breachledger/pkg/domain"
	dErrors "breachledger/pkg/domain-errors"
	"breachledger/pkg/platform/audit"
	"breachledger/pkg/platform/sentinel"
	"breachledger/pkg/requestcontext"
)

const (
	defaultConflictRetries = 3
	defaultTokenRetries    = 3
)

// AppendRequest describes a new version for an existing incident.
type AppendRequest struct {
	IncidentID id.IncidentID
	// OrganizationID, when set, must own the incident; the check runs under the head lock.
	OrganizationID id.OrganizationID
	Snapshot       models.Snapshot
	ActorID        id.UserID
}

// Manager enforces monotonic, gapless, immutable version chains.
type Manager struct {
	tx      TxRunner
	tokens  TokenGenerator
	events  audit.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func(ctx context.Context) time.Time

	conflictRetries int
	tokenRetries    int
	backoff         func(attempt int) time.Duration
}

// Option configures a Manager.
type Option func(*Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

func WithMetrics(metrics *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// WithEventStore records a compliance event inside each mutation's transaction.
func WithEventStore(events audit.Store) Option {
	return func(m *Manager) { m.events = events }
}

// WithClock overrides the version timestamp source (defaults to the request time).
func WithClock(now func(ctx context.Context) time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithRetries sets how many times version conflicts and token collisions are retried.
func WithRetries(conflicts, tokens int) Option {
	return func(m *Manager) {
		m.conflictRetries = conflicts
		m.tokenRetries = tokens
	}
}

// WithBackoff sets the wait before conflict retry n (1-based).
func WithBackoff(backoff func(attempt int) time.Duration) Option {
	return func(m *Manager) { m.backoff = backoff }
}

// New constructs a Manager.
func New(tx TxRunner, tokens TokenGenerator, opts ...Option) *Manager {
	m := &Manager{
		tx:              tx,
		tokens:          tokens,
		logger:          slog.Default(),
		now:             requestcontext.Now,
		conflictRetries: defaultConflictRetries,
		tokenRetries:    defaultTokenRetries,
		backoff:         jitteredBackoff,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateIncident allocates the organization's next internal id and writes the
// head row together with version 1.
func (m *Manager) CreateIncident(ctx context.Context, orgID id.OrganizationID, snapshot models.Snapshot, actorID id.UserID) (*models.Incident, *models.IncidentVersion, error) {
	snapshot = snapshot.Normalized()

	var incident *models.Incident
	var version *models.IncidentVersion
	err := m.run(ctx, "create", func(ctx context.Context, store Store, nonce int) error {
		internalID, err := store.NextInternalID(ctx, orgID)
		if err != nil {
			return err
		}
		createdAt := models.NormalizeTime(m.now(ctx))

		inc := &models.Incident{
			ID:                   id.NewIncidentID(),
			OrganizationID:       orgID,
			InternalID:           internalID,
			CurrentVersionNumber: 1,
			Status:               snapshot.Status,
			CreatedAt:            createdAt,
			CreatedBy:            actorID,
			UpdatedAt:            createdAt,
		}
		if err := store.InsertIncident(ctx, inc); err != nil {
			return err
		}
		v, err := m.writeVersion(ctx, store, inc.ID, 1, snapshot, actorID, createdAt, nonce)
		if err != nil {
			return err
		}
		if err := m.record(ctx, audit.EventIncidentCreated, inc, v); err != nil {
			return err
		}
		incident, version = inc, v
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	m.metrics.IncrementVersionsWritten("create")
	m.logger.InfoContext(ctx, "incident created",
		"event", audit.EventIncidentCreated,
		"request_id", requestcontext.RequestID(ctx),
		"organization_id", orgID,
		"incident_id", incident.ID,
		"internal_id", incident.InternalID,
	)
	return incident, version, nil
}

// AppendVersion writes version current+1 for an existing incident.
// Concurrent appends to one incident serialize on the head lock.
func (m *Manager) AppendVersion(ctx context.Context, req AppendRequest) (*models.Incident, *models.IncidentVersion, error) {
	snapshot := req.Snapshot.Normalized()

	var incident *models.Incident
	var version *models.IncidentVersion
	err := m.run(ctx, "update", func(ctx context.Context, store Store, nonce int) error {
		head, err := store.LockIncident(ctx, req.IncidentID)
		if err != nil {
			return err
		}
		if !req.OrganizationID.IsNil() && head.OrganizationID != req.OrganizationID {
			return sentinel.ErrNotFound
		}

		next := head.CurrentVersionNumber + 1
		createdAt := models.NormalizeTime(m.now(ctx))
		v, err := m.writeVersion(ctx, store, head.ID, next, snapshot, req.ActorID, createdAt, nonce)
		if err != nil {
			return err
		}
		if err := store.AdvanceHead(ctx, head.ID, next, snapshot.Status, createdAt); err != nil {
			return err
		}

		head.CurrentVersionNumber = next
		head.Status = snapshot.Status
		head.UpdatedAt = createdAt
		if err := m.record(ctx, audit.EventVersionAppended, head, v); err != nil {
			return err
		}
		incident, version = head, v
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	m.metrics.IncrementVersionsWritten("update")
	m.logger.InfoContext(ctx, "incident version appended",
		"event", audit.EventVersionAppended,
		"request_id", requestcontext.RequestID(ctx),
		"organization_id", incident.OrganizationID,
		"incident_id", incident.ID,
		"version_number", version.VersionNumber,
	)
	return incident, version, nil
}

// DeleteIncident hard deletes an incident and all of its versions after
// checking ownership under the head lock. It returns the deleted tokens.
func (m *Manager) DeleteIncident(ctx context.Context, orgID id.OrganizationID, incidentID id.IncidentID) ([]string, error) {
	var tokens []string
	err := m.run(ctx, "delete", func(ctx context.Context, store Store, _ int) error {
		head, err := store.LockIncident(ctx, incidentID)
		if err != nil {
			return err
		}
		if head.OrganizationID != orgID {
			return sentinel.ErrNotFound
		}
		toks, err := store.VersionTokens(ctx, incidentID)
		if err != nil {
			return err
		}
		if err := store.DeleteIncident(ctx, incidentID); err != nil {
			return err
		}
		if err := m.record(ctx, audit.EventIncidentDeleted, head, nil); err != nil {
			return err
		}
		tokens = toks
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.metrics.IncrementIncidentsDeleted()
	m.logger.InfoContext(ctx, "incident deleted",
		"event", audit.EventIncidentDeleted,
		"request_id", requestcontext.RequestID(ctx),
		"organization_id", orgID,
		"incident_id", incidentID,
		"versions", len(tokens),
	)
	return tokens, nil
}

func (m *Manager) writeVersion(ctx context.Context, store Store, incidentID id.IncidentID, number int, snapshot models.Snapshot, actorID id.UserID, createdAt time.Time, nonce int) (*models.IncidentVersion, error) {
	tok, err := m.tokens.Generate(incidentID, number, snapshot, createdAt, nonce)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to compute verification token")
	}
	if tok == "" {
		return nil, dErrors.New(dErrors.CodeInternal, "empty verification token")
	}

	assessment := deadline.Evaluate(snapshot.DetectedAt, snapshot.AuthorityNotifiedAt, createdAt)
	v := &models.IncidentVersion{
		ID:            id.NewVersionID(),
		IncidentID:    incidentID,
		VersionNumber: number,
		Snapshot:      snapshot.Clone(),
		Token:         tok,
		TokenNonce:    nonce,
		DeadlineAt:    models.NormalizeTime(assessment.Deadline),
		IsLate:        assessment.IsLate,
		CreatedAt:     createdAt,
		CreatedBy:     actorID,
	}
	if err := store.InsertVersion(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (m *Manager) record(ctx context.Context, action audit.AuditEvent, inc *models.Incident, v *models.IncidentVersion) error {
	if m.events == nil {
		return nil
	}
	event := audit.Event{
		Category:       action.Category(),
		Action:         string(action),
		Timestamp:      inc.UpdatedAt,
		OrganizationID: inc.OrganizationID,
		IncidentID:     inc.ID,
		InternalID:     inc.InternalID,
		ActorID:        inc.CreatedBy,
		RequestID:      requestcontext.RequestID(ctx),
		ClientIP:       requestcontext.ClientIP(ctx),
		ClientDevice:   requestcontext.ClientDevice(ctx),
	}
	if v != nil {
		event.VersionNumber = v.VersionNumber
		event.ActorID = v.CreatedBy
		event.Timestamp = v.CreatedAt
		event.IsLate = v.IsLate
	} else {
		event.ActorID = requestcontext.UserID(ctx)
		event.Timestamp = m.now(ctx)
	}
	if err := m.events.Append(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to record incident event")
	}
	return nil
}

// run executes fn in a transaction, retrying version conflicts with jittered
// backoff and token collisions with an incremented nonce.
func (m *Manager) run(ctx context.Context, op string, fn func(ctx context.Context, store Store, nonce int) error) error {
	start := time.Now()
	defer func() { m.metrics.ObserveTxLatency(op, time.Since(start)) }()

	nonce, conflicts := 0, 0
	for {
		err := m.tx.RunInTx(ctx, func(ctx context.Context, store Store) error {
			return fn(ctx, store, nonce)
		})
		switch {
		case err == nil:
			return nil
		case errors.Is(err, sentinel.ErrAlreadyUsed) && nonce < m.tokenRetries:
			nonce++
			m.metrics.IncrementTxRetry(op, "token_collision")
			m.logger.WarnContext(ctx, "verification token collision, retrying",
				"operation", op,
				"nonce", nonce,
			)
			continue
		case errors.Is(err, sentinel.ErrConflict) && conflicts < m.conflictRetries:
			conflicts++
			m.metrics.IncrementTxRetry(op, "version_conflict")
			m.logger.DebugContext(ctx, "version conflict, retrying",
				"operation", op,
				"attempt", conflicts,
			)
			if waitErr := sleep(ctx, m.backoff(conflicts)); waitErr != nil {
				return dErrors.Wrap(waitErr, dErrors.CodeTimeout, "transaction aborted: context cancelled")
			}
			continue
		}
		return translate(err)
	}
}

func translate(err error) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "incident not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "incident was modified concurrently, retry the request")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not allocate a unique verification token")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "storage unavailable")
	}
}

func jitteredBackoff(attempt int) time.Duration {
	base := time.Duration(attempt) * 10 * time.Millisecond
	return base + rand.N(base)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
