package chain

import (
	"context"
	"time"

	"breachledger/internal/incident/models"
	id "breachledger/pkg/domain"
)

// Store is the transactional view of incident persistence. Every method runs
// inside the transaction opened by TxRunner.RunInTx.
//
// Stores return pkg/platform/sentinel errors: ErrNotFound for a missing head,
// ErrConflict for a duplicate version number or serialization failure, and
// ErrAlreadyUsed when a token is already taken.
type Store interface {
	// NextInternalID advances and returns the organization's incident counter,
	// holding the counter lock until the transaction ends.
	NextInternalID(ctx context.Context, orgID id.OrganizationID) (int64, error)
	InsertIncident(ctx context.Context, incident *models.Incident) error
	// LockIncident reads the head row with a write lock held until the transaction ends.
	LockIncident(ctx context.Context, incidentID id.IncidentID) (*models.Incident, error)
	InsertVersion(ctx context.Context, version *models.IncidentVersion) error
	// AdvanceHead moves current_version_number from versionNumber-1 to versionNumber.
	AdvanceHead(ctx context.Context, incidentID id.IncidentID, versionNumber int, status models.Status, updatedAt time.Time) error
	VersionTokens(ctx context.Context, incidentID id.IncidentID) ([]string, error)
	DeleteIncident(ctx context.Context, incidentID id.IncidentID) error
}

// TxRunner opens a unit of work. fn receives a context that carries the
// transaction so other stores (such as the audit outbox) can join it.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}

// TokenGenerator derives the verification token for a finalized version.
type TokenGenerator interface {
	Generate(incidentID id.IncidentID, versionNumber int, snapshot models.Snapshot, createdAt time.Time, nonce int) (string, error)
}
