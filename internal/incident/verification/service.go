// Package verification answers public proof-of-existence lookups by token.
//
// A proof carries only identity, version and time metadata. Snapshot content
// never leaves this package.
package verification

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"breachledger/internal/incident/metrics"
	"breachledger/internal/incident/models"
	"breachledger/internal/incident/token"
	id "breachledger/pkg/domain"
	dErrors "breachledger/pkg/domain-errors"
	"breachledger/pkg/platform/audit"
	"breachledger/pkg/platform/circuit"
	"breachledger/pkg/platform/sentinel"
	"breachledger/pkg/requestcontext"
)

// Proof is the public answer to a verification lookup.
type Proof struct {
	IncidentInternalID int64     `json:"incident_internal_id"`
	VersionNumber      int       `json:"version_number"`
	CreatedAt          time.Time `json:"created_at"`
	OrganizationName   string    `json:"organization_name"`
}

// Lookup resolves a token to its version and incident head.
type Lookup interface {
	FindByToken(ctx context.Context, token string) (*models.Incident, *models.IncidentVersion, error)
}

// OrganizationDirectory resolves organization display names.
type OrganizationDirectory interface {
	Name(ctx context.Context, orgID id.OrganizationID) (string, error)
}

// Integrity recomputes a stored version's token.
type Integrity interface {
	Verify(v *models.IncidentVersion) bool
}

// ProofCache stores proofs by token. Get reports a miss with (nil, false, nil).
type ProofCache interface {
	Get(ctx context.Context, token string) (*Proof, bool, error)
	Set(ctx context.Context, token string, proof *Proof) error
	Delete(ctx context.Context, tokens ...string) error
}

type Service struct {
	lookup    Lookup
	orgs      OrganizationDirectory
	integrity Integrity
	cache     ProofCache
	breaker   *circuit.Breaker
	events    audit.Store
	logger    *slog.Logger
	metrics   *metrics.Metrics
	group     singleflight.Group

	// loadTimeout bounds a load shared by coalesced callers.
	loadTimeout time.Duration
}

const defaultLoadTimeout = 5 * time.Second

const (
	outcomeVerified = "verified"
	outcomeUnknown  = "unknown"
	outcomeTampered = "tampered"
	outcomeError    = "error"
)

// lookupResult is what one shared load hands to every waiting caller.
type lookupResult struct {
	proof   *Proof
	outcome string
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithCache enables proof caching. Cache failures trip breaker (a default one
// is created when nil) and lookups fall back to the store.
func WithCache(cache ProofCache, breaker *circuit.Breaker) Option {
	return func(s *Service) {
		s.cache = cache
		s.breaker = breaker
	}
}

// WithLoadTimeout bounds a shared store lookup.
func WithLoadTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.loadTimeout = d
		}
	}
}

// WithEventStore records tampered-token detections as compliance events.
func WithEventStore(events audit.Store) Option {
	return func(s *Service) { s.events = events }
}

func New(lookup Lookup, orgs OrganizationDirectory, integrity Integrity, opts ...Option) *Service {
	s := &Service{
		lookup:      lookup,
		orgs:        orgs,
		integrity:   integrity,
		logger:      slog.Default(),
		loadTimeout: defaultLoadTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache != nil && s.breaker == nil {
		s.breaker = circuit.New("proof-cache")
	}
	return s
}

// Verify returns the proof for token, or (nil, nil) when the token is
// malformed, unknown, or no longer matches its stored version.
//
// Concurrent lookups for one token share a single load. The load is detached
// from any one caller's cancellation and bounded by loadTimeout; each caller
// stops waiting when its own context ends.
func (s *Service) Verify(ctx context.Context, tok string) (*Proof, error) {
	tok = strings.TrimSpace(tok)
	if !token.WellFormed(tok) {
		s.metrics.IncrementVerification(outcomeUnknown)
		return nil, nil
	}

	if proof, ok := s.cached(ctx, tok); ok {
		s.metrics.IncrementVerification(outcomeVerified)
		return proof, nil
	}

	ch := s.group.DoChan(tok, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
		defer cancel()
		return s.load(loadCtx, tok)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		s.metrics.IncrementVerification(outcomeError)
		return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "verification abandoned")
	case res = <-ch:
	}
	if res.Err != nil {
		s.metrics.IncrementVerification(outcomeError)
		return nil, res.Err
	}

	out := res.Val.(lookupResult)
	s.metrics.IncrementVerification(out.outcome)
	if out.proof == nil {
		return nil, nil
	}
	proof := *out.proof
	return &proof, nil
}

// Purge drops cached proofs for tokens that no longer exist.
func (s *Service) Purge(ctx context.Context, tokens []string) error {
	if s.cache == nil || len(tokens) == 0 {
		return nil
	}
	if err := s.cache.Delete(ctx, tokens...); err != nil {
		s.recordCacheFailure(ctx, "purge", err)
		return err
	}
	s.logger.InfoContext(ctx, "verification proofs purged",
		"event", audit.EventProofCachePurged,
		"request_id", requestcontext.RequestID(ctx),
		"count", len(tokens),
	)
	return nil
}

func (s *Service) load(ctx context.Context, tok string) (lookupResult, error) {
	inc, v, err := s.lookup.FindByToken(ctx, tok)
	if errors.Is(err, sentinel.ErrNotFound) {
		return lookupResult{outcome: outcomeUnknown}, nil
	}
	if err != nil {
		return lookupResult{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "verification temporarily unavailable")
	}

	if !s.integrity.Verify(v) {
		s.logger.ErrorContext(ctx, "stored version no longer matches its verification token",
			"event", audit.EventTokenTampered,
			"request_id", requestcontext.RequestID(ctx),
			"organization_id", inc.OrganizationID,
			"incident_id", inc.ID,
			"version_number", v.VersionNumber,
		)
		s.recordTampered(ctx, inc, v)
		return lookupResult{outcome: outcomeTampered}, nil
	}

	proof := &Proof{
		IncidentInternalID: inc.InternalID,
		VersionNumber:      v.VersionNumber,
		CreatedAt:          v.CreatedAt.UTC(),
	}
	name, err := s.orgs.Name(ctx, inc.OrganizationID)
	switch {
	case err == nil:
		proof.OrganizationName = name
	case errors.Is(err, sentinel.ErrNotFound):
	default:
		// Serve the proof without a name and keep it out of the cache.
		s.logger.WarnContext(ctx, "organization name lookup failed",
			"request_id", requestcontext.RequestID(ctx),
			"organization_id", inc.OrganizationID,
			"error", err,
		)
		return lookupResult{proof: proof, outcome: outcomeVerified}, nil
	}

	if s.store(ctx, tok, proof) && !s.stillExists(ctx, tok) {
		return lookupResult{outcome: outcomeUnknown}, nil
	}
	return lookupResult{proof: proof, outcome: outcomeVerified}, nil
}

// stillExists re-reads a token after its proof was cached. A delete that
// committed in between has already purged, so the entry written here would
// outlive it; drop it again. Any doubt also evicts.
func (s *Service) stillExists(ctx context.Context, tok string) bool {
	_, _, err := s.lookup.FindByToken(ctx, tok)
	if err == nil {
		return true
	}
	if derr := s.cache.Delete(ctx, tok); derr != nil {
		s.recordCacheFailure(ctx, "evict", derr)
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		s.logger.InfoContext(ctx, "token deleted during lookup",
			"request_id", requestcontext.RequestID(ctx),
		)
		return false
	}
	return true
}

func (s *Service) cached(ctx context.Context, tok string) (*Proof, bool) {
	if s.cache == nil || !s.breaker.Allow() {
		return nil, false
	}
	proof, ok, err := s.cache.Get(ctx, tok)
	if err != nil {
		s.recordCacheFailure(ctx, "get", err)
		return nil, false
	}
	s.recordCacheSuccess(ctx)
	if !ok {
		s.metrics.IncrementProofCache("miss")
		return nil, false
	}
	s.metrics.IncrementProofCache("hit")
	return proof, true
}

// store caches proof and reports whether it was written.
func (s *Service) store(ctx context.Context, tok string, proof *Proof) bool {
	if s.cache == nil || !s.breaker.Allow() {
		return false
	}
	if err := s.cache.Set(ctx, tok, proof); err != nil {
		s.recordCacheFailure(ctx, "set", err)
		return false
	}
	s.recordCacheSuccess(ctx)
	return true
}

func (s *Service) recordCacheFailure(ctx context.Context, op string, err error) {
	s.metrics.IncrementProofCache("error")
	_, change := s.breaker.RecordFailure()
	if change.Opened {
		s.logger.WarnContext(ctx, "proof cache circuit opened",
			"breaker", s.breaker.Name(),
			"operation", op,
			"error", err,
		)
		return
	}
	s.logger.DebugContext(ctx, "proof cache call failed",
		"operation", op,
		"error", err,
	)
}

func (s *Service) recordCacheSuccess(ctx context.Context) {
	if _, change := s.breaker.RecordSuccess(); change.Closed {
		s.logger.InfoContext(ctx, "proof cache circuit closed", "breaker", s.breaker.Name())
	}
}

func (s *Service) recordTampered(ctx context.Context, inc *models.Incident, v *models.IncidentVersion) {
	if s.events == nil {
		return
	}
	err := s.events.Append(ctx, audit.Event{
		Category:       audit.EventTokenTampered.Category(),
		Action:         string(audit.EventTokenTampered),
		Timestamp:      requestcontext.Now(ctx),
		OrganizationID: inc.OrganizationID,
		IncidentID:     inc.ID,
		InternalID:     inc.InternalID,
		VersionNumber:  v.VersionNumber,
		RequestID:      requestcontext.RequestID(ctx),
		ClientIP:       requestcontext.ClientIP(ctx),
		ClientDevice:   requestcontext.ClientDevice(ctx),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to record tampered token event", "error", err)
	}
}
