package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"breachledger/internal/incident/chain"
	"breachledger/internal/incident/models"
	id "breachledger/pkg/domain"
	dErrors "breachledger/pkg/domain-errors"
	"breachledger/pkg/platform/sentinel"
	txcontext "breachledger/pkg/platform/tx"
)

// PostgresStore persists incidents in PostgreSQL.
// This store is pure I/O: numbering, tokens and ownership checks belong to the chain manager.
type PostgresStore struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgres constructs a PostgreSQL-backed incident store.
func NewPostgres(db *sql.DB, txTimeout time.Duration) *PostgresStore {
	return &PostgresStore{db: db, timeout: txTimeout}
}

// RunInTx runs fn in a READ COMMITTED transaction. Writers serialize on the
// row locks taken by NextInternalID and LockIncident. The transaction is
// carried in the context passed to fn so the audit outbox writes join it.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(ctx context.Context, store chain.Store) error) error {
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError("begin tx", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx), &postgresTx{tx: tx}); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return dErrors.Wrap(ctxErr, dErrors.CodeTimeout, "transaction aborted: context cancelled")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapError("commit", err)
	}
	return nil
}

// GetHistory reads the head and its versions from one consistent snapshot.
func (s *PostgresStore) GetHistory(ctx context.Context, incidentID id.IncidentID) (*models.Incident, []*models.IncidentVersion, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, nil, mapError("begin read tx", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	inc, err := scanIncident(tx.QueryRowContext(ctx, selectIncident+` WHERE id = $1`, uuid.UUID(incidentID)))
	if err != nil {
		return nil, nil, mapError("get incident", err)
	}

	rows, err := tx.QueryContext(ctx, selectVersion+` WHERE incident_id = $1 ORDER BY version_number ASC`, uuid.UUID(incidentID))
	if err != nil {
		return nil, nil, mapError("list versions", err)
	}
	defer rows.Close()

	var versions []*models.IncidentVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, nil, mapError("scan version", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, mapError("iterate versions", err)
	}
	return inc, versions, nil
}

func (s *PostgresStore) GetIncident(ctx context.Context, incidentID id.IncidentID) (*models.Incident, error) {
	inc, err := scanIncident(s.db.QueryRowContext(ctx, selectIncident+` WHERE id = $1`, uuid.UUID(incidentID)))
	if err != nil {
		return nil, mapError("get incident", err)
	}
	return inc, nil
}

// ListByOrganization returns an organization's head rows ordered by internal id.
func (s *PostgresStore) ListByOrganization(ctx context.Context, orgID id.OrganizationID) ([]*models.Incident, error) {
	rows, err := s.db.QueryContext(ctx, selectIncident+` WHERE organization_id = $1 ORDER BY internal_id ASC`, uuid.UUID(orgID))
	if err != nil {
		return nil, mapError("list incidents", err)
	}
	defer rows.Close()

	var out []*models.Incident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, mapError("scan incident", err)
		}
		out = append(out, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("iterate incidents", err)
	}
	return out, nil
}

// FindByToken returns the version holding token and its incident's head row.
func (s *PostgresStore) FindByToken(ctx context.Context, token string) (*models.Incident, *models.IncidentVersion, error) {
	v, err := scanVersion(s.db.QueryRowContext(ctx, selectVersion+` WHERE token = $1`, token))
	if err != nil {
		return nil, nil, mapError("find version by token", err)
	}
	inc, err := s.GetIncident(ctx, v.IncidentID)
	if err != nil {
		return nil, nil, err
	}
	return inc, v, nil
}

type postgresTx struct {
	tx *sql.Tx
}

func (t *postgresTx) NextInternalID(ctx context.Context, orgID id.OrganizationID) (int64, error) {
	query := `
		INSERT INTO organization_incident_counters (organization_id, last_internal_id)
		VALUES ($1, 1)
		ON CONFLICT (organization_id) DO UPDATE SET
			last_internal_id = organization_incident_counters.last_internal_id + 1
		RETURNING last_internal_id
	`
	var next int64
	if err := t.tx.QueryRowContext(ctx, query, uuid.UUID(orgID)).Scan(&next); err != nil {
		return 0, mapError("next internal id", err)
	}
	return next, nil
}

func (t *postgresTx) InsertIncident(ctx context.Context, inc *models.Incident) error {
	query := `
		INSERT INTO incidents (id, organization_id, internal_id, current_version_number, status, created_at, created_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := t.tx.ExecContext(ctx, query,
		uuid.UUID(inc.ID),
		uuid.UUID(inc.OrganizationID),
		inc.InternalID,
		inc.CurrentVersionNumber,
		string(inc.Status),
		inc.CreatedAt,
		uuid.UUID(inc.CreatedBy),
		inc.UpdatedAt,
	)
	if err != nil {
		return mapError("insert incident", err)
	}
	return nil
}

func (t *postgresTx) LockIncident(ctx context.Context, incidentID id.IncidentID) (*models.Incident, error) {
	inc, err := scanIncident(t.tx.QueryRowContext(ctx, selectIncident+` WHERE id = $1 FOR UPDATE`, uuid.UUID(incidentID)))
	if err != nil {
		return nil, mapError("lock incident", err)
	}
	return inc, nil
}

func (t *postgresTx) InsertVersion(ctx context.Context, v *models.IncidentVersion) error {
	snapshot, err := json.Marshal(v.Snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	query := `
		INSERT INTO incident_versions (id, incident_id, version_number, snapshot, token, token_nonce, deadline_at, is_late, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = t.tx.ExecContext(ctx, query,
		uuid.UUID(v.ID),
		uuid.UUID(v.IncidentID),
		v.VersionNumber,
		string(snapshot),
		v.Token,
		v.TokenNonce,
		v.DeadlineAt,
		v.IsLate,
		v.CreatedAt,
		uuid.UUID(v.CreatedBy),
	)
	if err != nil {
		return mapError("insert version", err)
	}
	return nil
}

func (t *postgresTx) AdvanceHead(ctx context.Context, incidentID id.IncidentID, versionNumber int, status models.Status, updatedAt time.Time) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE incidents
		SET current_version_number = $2, status = $3, updated_at = $4
		WHERE id = $1 AND current_version_number = $2 - 1
	`, uuid.UUID(incidentID), versionNumber, string(status), updatedAt)
	if err != nil {
		return mapError("advance head", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError("advance head", err)
	}
	if n == 0 {
		return fmt.Errorf("advance head to %d: %w", versionNumber, sentinel.ErrConflict)
	}
	return nil
}

func (t *postgresTx) VersionTokens(ctx context.Context, incidentID id.IncidentID) ([]string, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT token FROM incident_versions WHERE incident_id = $1 ORDER BY version_number`, uuid.UUID(incidentID))
	if err != nil {
		return nil, mapError("list tokens", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var tok string
		if err := rows.Scan(&tok); err != nil {
			return nil, mapError("scan token", err)
		}
		out = append(out, tok)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("iterate tokens", err)
	}
	return out, nil
}

// DeleteIncident removes the head row; versions go with it through the
// cascading foreign key. The append-only trigger admits the cascade only when
// the transaction opts in.
func (t *postgresTx) DeleteIncident(ctx context.Context, incidentID id.IncidentID) error {
	if _, err := t.tx.ExecContext(ctx, `SET LOCAL breachledger.allow_version_delete = 'on'`); err != nil {
		return mapError("enable version delete", err)
	}
	res, err := t.tx.ExecContext(ctx, `DELETE FROM incidents WHERE id = $1`, uuid.UUID(incidentID))
	if err != nil {
		return mapError("delete incident", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("delete incident: %w", sentinel.ErrNotFound)
	}
	return nil
}

const selectIncident = `
	SELECT id, organization_id, internal_id, current_version_number, status, created_at, created_by, updated_at
	FROM incidents`

const selectVersion = `
	SELECT id, incident_id, version_number, snapshot, token, token_nonce, deadline_at, is_late, created_at, created_by
	FROM incident_versions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIncident(row rowScanner) (*models.Incident, error) {
	var inc models.Incident
	var incID, orgID, createdBy uuid.UUID
	var status string
	var createdAt, updatedAt time.Time
	if err := row.Scan(&incID, &orgID, &inc.InternalID, &inc.CurrentVersionNumber, &status, &createdAt, &createdBy, &updatedAt); err != nil {
		return nil, err
	}
	inc.ID = id.IncidentID(incID)
	inc.OrganizationID = id.OrganizationID(orgID)
	inc.Status = models.Status(status)
	inc.CreatedAt = models.NormalizeTime(createdAt)
	inc.CreatedBy = id.UserID(createdBy)
	inc.UpdatedAt = models.NormalizeTime(updatedAt)
	return &inc, nil
}

func scanVersion(row rowScanner) (*models.IncidentVersion, error) {
	var v models.IncidentVersion
	var versionID, incID, createdBy uuid.UUID
	var snapshot []byte
	var token string
	var deadlineAt, createdAt time.Time
	if err := row.Scan(&versionID, &incID, &v.VersionNumber, &snapshot, &token, &v.TokenNonce, &deadlineAt, &v.IsLate, &createdAt, &createdBy); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(snapshot, &v.Snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	v.ID = id.VersionID(versionID)
	v.IncidentID = id.IncidentID(incID)
	v.Token = strings.TrimSpace(token)
	v.DeadlineAt = models.NormalizeTime(deadlineAt)
	v.CreatedAt = models.NormalizeTime(createdAt)
	v.CreatedBy = id.UserID(createdBy)
	return &v, nil
}

// mapError translates driver errors into store sentinels, keeping the cause.
func mapError(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, sentinel.ErrNotFound)
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == "40001", pqErr.Code == "40P01":
			return fmt.Errorf("%s: %w: %w", op, sentinel.ErrConflict, err)
		case pqErr.Code == "23505" && pqErr.Constraint == "incident_versions_token_key":
			return fmt.Errorf("%s: %w: %w", op, sentinel.ErrAlreadyUsed, err)
		case pqErr.Code == "23505":
			return fmt.Errorf("%s: %w: %w", op, sentinel.ErrConflict, err)
		case pqErr.Code == "23503":
			return fmt.Errorf("%s: %w: %w", op, sentinel.ErrNotFound, err)
		case pqErr.Code == "55000":
			return fmt.Errorf("%s: %w: %w", op, sentinel.ErrInvalidState, err)
		case pqErr.Code.Class() == "08", pqErr.Code.Class() == "53", pqErr.Code.Class() == "57":
			return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

var _ chain.TxRunner = (*PostgresStore)(nil)
