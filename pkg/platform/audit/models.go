package audit

import (
	"context"
	"time"

	id "breachledger/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These are written through the outbox in the same transaction as the change.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers events useful for operational visibility.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. It never carries
// snapshot content: only identifiers and deadline facts leave the registry.
type Event struct {
	ID             string
	Category       EventCategory
	Action         string
	Timestamp      time.Time
	OrganizationID id.OrganizationID
	IncidentID     id.IncidentID
	InternalID     int64
	VersionNumber  int
	ActorID        id.UserID
	IsLate         bool
	RequestID      string
	ClientIP       string
	ClientDevice   string
}

type AuditEvent string

const (
	EventIncidentCreated  AuditEvent = "incident_created"
	EventVersionAppended  AuditEvent = "incident_version_appended"
	EventIncidentDeleted  AuditEvent = "incident_deleted"
	EventTokenTampered    AuditEvent = "verification_token_tampered"
	EventProofCachePurged AuditEvent = "verification_cache_purged"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventIncidentCreated: CategoryCompliance,
	EventVersionAppended: CategoryCompliance,
	EventIncidentDeleted: CategoryCompliance,
	EventTokenTampered:   CategoryCompliance,

	EventProofCachePurged: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events. Implementations join a transaction carried in ctx
// when one is present.
type Store interface {
	Append(ctx context.Context, event Event) error
}
