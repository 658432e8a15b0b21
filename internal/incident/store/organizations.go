package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	id "breachledger/pkg/domain"
	"breachledger/pkg/platform/sentinel"
)

// InMemoryOrganizations maps organization ids to display names.
type InMemoryOrganizations struct {
	mu    sync.RWMutex
	names map[id.OrganizationID]string
}

func NewInMemoryOrganizations() *InMemoryOrganizations {
	return &InMemoryOrganizations{names: make(map[id.OrganizationID]string)}
}

func (o *InMemoryOrganizations) Upsert(_ context.Context, orgID id.OrganizationID, name string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.names[orgID] = strings.TrimSpace(name)
	return nil
}

// Name returns sentinel.ErrNotFound for unknown organizations.
func (o *InMemoryOrganizations) Name(_ context.Context, orgID id.OrganizationID) (string, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	name, ok := o.names[orgID]
	if !ok {
		return "", fmt.Errorf("organization not found: %w", sentinel.ErrNotFound)
	}
	return name, nil
}

// PostgresOrganizations reads organization names from the organizations table.
type PostgresOrganizations struct {
	db *sql.DB
}

func NewPostgresOrganizations(db *sql.DB) *PostgresOrganizations {
	return &PostgresOrganizations{db: db}
}

func (o *PostgresOrganizations) Upsert(ctx context.Context, orgID id.OrganizationID, name string) error {
	_, err := o.db.ExecContext(ctx, `
		INSERT INTO organizations (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
	`, uuid.UUID(orgID), strings.TrimSpace(name))
	if err != nil {
		return mapError("upsert organization", err)
	}
	return nil
}

func (o *PostgresOrganizations) Name(ctx context.Context, orgID id.OrganizationID) (string, error) {
	var name string
	err := o.db.QueryRowContext(ctx, `SELECT name FROM organizations WHERE id = $1`, uuid.UUID(orgID)).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("organization not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return "", mapError("get organization", err)
	}
	return name, nil
}
