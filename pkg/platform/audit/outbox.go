package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OutboxEntry is one pending event row awaiting publication.
type OutboxEntry struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
}

// PublishFunc publishes a batch and returns the IDs that were delivered.
type PublishFunc func(ctx context.Context, entries []OutboxEntry) ([]uuid.UUID, error)

// payload is the JSON document published for each event.
type payload struct {
	ID             string `json:"id"`
	Category       string `json:"category"`
	Action         string `json:"action"`
	Timestamp      string `json:"timestamp"`
	OrganizationID string `json:"organization_id"`
	IncidentID     string `json:"incident_id"`
	InternalID     int64  `json:"internal_id,omitempty"`
	VersionNumber  int    `json:"version_number,omitempty"`
	ActorID        string `json:"actor_id,omitempty"`
	IsLate         bool   `json:"is_late"`
	RequestID      string `json:"request_id,omitempty"`
	ClientIP       string `json:"client_ip,omitempty"`
	ClientDevice   string `json:"client_device,omitempty"`
}

// NewOutboxEntry converts an event into an outbox row keyed by incident, so a
// partitioned consumer sees one incident's events in order.
func NewOutboxEntry(event Event, now time.Time) (OutboxEntry, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = now
	}
	// Always derive category from action.
	category := AuditEvent(event.Action).Category()

	p := payload{
		ID:             event.ID,
		Category:       string(category),
		Action:         event.Action,
		Timestamp:      event.Timestamp.UTC().Format(time.RFC3339Nano),
		OrganizationID: event.OrganizationID.String(),
		IncidentID:     event.IncidentID.String(),
		InternalID:     event.InternalID,
		VersionNumber:  event.VersionNumber,
		IsLate:         event.IsLate,
		RequestID:      event.RequestID,
		ClientIP:       event.ClientIP,
		ClientDevice:   event.ClientDevice,
	}
	if !event.ActorID.IsNil() {
		p.ActorID = event.ActorID.String()
	}
	b, err := json.Marshal(p)
	if err != nil {
		return OutboxEntry{}, fmt.Errorf("marshal audit payload: %w", err)
	}

	return OutboxEntry{
		ID:            uuid.New(),
		AggregateType: "incident",
		AggregateID:   event.IncidentID.String(),
		EventType:     event.Action,
		Payload:       b,
		CreatedAt:     now,
	}, nil
}
