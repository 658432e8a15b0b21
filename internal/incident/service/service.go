// Package service is the incident registry: it validates submitted fields,
// enforces tenant ownership and delegates every write to the version chain.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"breachledger/internal/incident/chain"
	"breachledger/internal/incident/deadline"
	"breachledger/internal/incident/metrics"
	"breachledger/internal/incident/models"
	id "breachledger/pkg/domain"
	dErrors "breachledger/pkg/domain-errors"
	"breachledger/pkg/platform/sentinel"
	"breachledger/pkg/requestcontext"
)

// Chain writes versions; implemented by chain.Manager.
type Chain interface {
	CreateIncident(ctx context.Context, orgID id.OrganizationID, snapshot models.Snapshot, actorID id.UserID) (*models.Incident, *models.IncidentVersion, error)
	AppendVersion(ctx context.Context, req chain.AppendRequest) (*models.Incident, *models.IncidentVersion, error)
	DeleteIncident(ctx context.Context, orgID id.OrganizationID, incidentID id.IncidentID) ([]string, error)
}

// Reader serves snapshot reads outside a transaction.
type Reader interface {
	GetHistory(ctx context.Context, incidentID id.IncidentID) (*models.Incident, []*models.IncidentVersion, error)
	ListByOrganization(ctx context.Context, orgID id.OrganizationID) ([]*models.Incident, error)
}

// ProofPurger drops cached verification proofs for deleted versions.
type ProofPurger interface {
	Purge(ctx context.Context, tokens []string) error
}

// Result is what a successful create or update returns.
type Result struct {
	Incident   *models.Incident
	Version    *models.IncidentVersion
	Token      string
	Assessment deadline.Assessment
}

// History is an incident head with all of its versions, oldest first.
type History struct {
	Incident   *models.Incident
	Versions   []*models.IncidentVersion
	Assessment deadline.Assessment
}

// Latest returns the most recent version.
func (h *History) Latest() *models.IncidentVersion {
	if h == nil || len(h.Versions) == 0 {
		return nil
	}
	return h.Versions[len(h.Versions)-1]
}

type Service struct {
	chain   Chain
	reader  Reader
	purger  ProofPurger
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	now     func(ctx context.Context) time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) { s.tracer = tracer }
}

func WithProofPurger(p ProofPurger) Option {
	return func(s *Service) { s.purger = p }
}

// WithClock overrides the validation clock (defaults to the request time).
func WithClock(now func(ctx context.Context) time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(chain Chain, reader Reader, opts ...Option) *Service {
	s := &Service{
		chain:  chain,
		reader: reader,
		logger: slog.Default(),
		tracer: otel.Tracer("breachledger/incident"),
		now:    requestcontext.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateIncident validates fields and writes the incident with version 1.
func (s *Service) CreateIncident(ctx context.Context, orgID id.OrganizationID, userID id.UserID, fields models.Snapshot) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "incident.create", trace.WithAttributes(
		attribute.String("organization_id", orgID.String()),
	))
	defer span.End()

	if orgID.IsNil() {
		return nil, s.fail(span, dErrors.New(dErrors.CodeValidation, "organization is required"))
	}
	snapshot := fields.Normalized()
	if err := s.validate(ctx, snapshot); err != nil {
		return nil, s.fail(span, err)
	}

	inc, v, err := s.chain.CreateIncident(ctx, orgID, snapshot, userID)
	if err != nil {
		return nil, s.fail(span, err)
	}
	res, err := s.result(ctx, inc, v, 1)
	if err != nil {
		return nil, s.fail(span, err)
	}
	span.SetAttributes(
		attribute.String("incident_id", inc.ID.String()),
		attribute.Int64("internal_id", inc.InternalID),
	)
	return res, nil
}

// UpdateIncident appends a version. A missing incident and one owned by
// another organization are reported identically.
func (s *Service) UpdateIncident(ctx context.Context, orgID id.OrganizationID, userID id.UserID, incidentID id.IncidentID, fields models.Snapshot) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "incident.update", trace.WithAttributes(
		attribute.String("organization_id", orgID.String()),
		attribute.String("incident_id", incidentID.String()),
	))
	defer span.End()

	if orgID.IsNil() {
		return nil, s.fail(span, notFound())
	}
	snapshot := fields.Normalized()
	if err := s.validate(ctx, snapshot); err != nil {
		return nil, s.fail(span, err)
	}

	inc, v, err := s.chain.AppendVersion(ctx, chain.AppendRequest{
		IncidentID:     incidentID,
		OrganizationID: orgID,
		Snapshot:       snapshot,
		ActorID:        userID,
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, s.fail(span, notFound())
		}
		return nil, s.fail(span, err)
	}
	res, err := s.result(ctx, inc, v, inc.CurrentVersionNumber)
	if err != nil {
		return nil, s.fail(span, err)
	}
	span.SetAttributes(attribute.Int("version_number", v.VersionNumber))
	return res, nil
}

// GetIncidentWithHistory returns (nil, nil) when the incident does not exist.
// It does not check ownership.
func (s *Service) GetIncidentWithHistory(ctx context.Context, incidentID id.IncidentID) (*History, error) {
	ctx, span := s.tracer.Start(ctx, "incident.history", trace.WithAttributes(
		attribute.String("incident_id", incidentID.String()),
	))
	defer span.End()

	inc, versions, err := s.reader.GetHistory(ctx, incidentID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.fail(span, storageError(err))
	}
	h := &History{Incident: inc, Versions: versions}
	if latest := h.Latest(); latest != nil {
		h.Assessment = deadline.Evaluate(latest.Snapshot.DetectedAt, latest.Snapshot.AuthorityNotifiedAt, s.now(ctx))
	}
	return h, nil
}

// GetOrganizationIncidents lists head rows ordered by internal id.
func (s *Service) GetOrganizationIncidents(ctx context.Context, orgID id.OrganizationID) ([]*models.Incident, error) {
	ctx, span := s.tracer.Start(ctx, "incident.list", trace.WithAttributes(
		attribute.String("organization_id", orgID.String()),
	))
	defer span.End()

	list, err := s.reader.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, s.fail(span, storageError(err))
	}
	if list == nil {
		list = []*models.Incident{}
	}
	return list, nil
}

// DeleteIncident hard deletes an incident owned by orgID and purges its
// cached verification proofs.
func (s *Service) DeleteIncident(ctx context.Context, incidentID id.IncidentID, orgID id.OrganizationID) error {
	ctx, span := s.tracer.Start(ctx, "incident.delete", trace.WithAttributes(
		attribute.String("organization_id", orgID.String()),
		attribute.String("incident_id", incidentID.String()),
	))
	defer span.End()

	tokens, err := s.chain.DeleteIncident(ctx, orgID, incidentID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return s.fail(span, notFound())
		}
		return s.fail(span, err)
	}
	if s.purger != nil && len(tokens) > 0 {
		if err := s.purger.Purge(ctx, tokens); err != nil {
			// Cached proofs expire on their own; the delete itself is committed.
			s.logger.WarnContext(ctx, "failed to purge verification proofs",
				"request_id", requestcontext.RequestID(ctx),
				"incident_id", incidentID,
				"error", err,
			)
		}
	}
	return nil
}

// result refuses to report success without a token and the expected version.
func (s *Service) result(ctx context.Context, inc *models.Incident, v *models.IncidentVersion, wantVersion int) (*Result, error) {
	if inc == nil || v == nil || v.Token == "" || v.VersionNumber != wantVersion || v.VersionNumber != inc.CurrentVersionNumber {
		s.logger.ErrorContext(ctx, "version chain returned an inconsistent result",
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, dErrors.New(dErrors.CodeInternal, "incident write returned no verification token")
	}
	assessment := deadline.Evaluate(v.Snapshot.DetectedAt, v.Snapshot.AuthorityNotifiedAt, v.CreatedAt)
	if assessment.IsLate {
		s.metrics.IncrementLateNotifications()
	}
	return &Result{Incident: inc, Version: v, Token: v.Token, Assessment: assessment}, nil
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	return err
}

func notFound() error {
	return dErrors.New(dErrors.CodeNotFound, "incident not found")
}

func storageError(err error) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "request cancelled")
	}
	return dErrors.Wrap(err, dErrors.CodeUnavailable, "storage unavailable")
}
