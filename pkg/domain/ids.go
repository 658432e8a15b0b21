// Package domain holds typed identifiers shared across modules.
//
// Each identifier is a distinct named UUID type so an OrganizationID can never be
// passed where an IncidentID is expected. Construct them with the Parse functions
// at trust boundaries; direct conversion from uuid.UUID skips validation.
package domain

import (
	"github.com/google/uuid"

	dErrors "breachledger/pkg/domain-errors"
)

type (
	OrganizationID uuid.UUID
	UserID         uuid.UUID
	IncidentID     uuid.UUID
	VersionID      uuid.UUID
)

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	if len(s) != 36 {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return parsed, nil
}

// ParseOrganizationID validates an organization identifier from external input.
func ParseOrganizationID(s string) (OrganizationID, error) {
	u, err := parseUUID(s, "organization id")
	return OrganizationID(u), err
}

// ParseUserID validates a user identifier from external input.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

// ParseIncidentID validates an incident identifier from external input.
func ParseIncidentID(s string) (IncidentID, error) {
	u, err := parseUUID(s, "incident id")
	return IncidentID(u), err
}

// ParseVersionID validates a version identifier from external input.
func ParseVersionID(s string) (VersionID, error) {
	u, err := parseUUID(s, "version id")
	return VersionID(u), err
}

func NewIncidentID() IncidentID { return IncidentID(uuid.New()) }
func NewVersionID() VersionID   { return VersionID(uuid.New()) }

func (id OrganizationID) String() string { return uuid.UUID(id).String() }
func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id IncidentID) String() string     { return uuid.UUID(id).String() }
func (id VersionID) String() string      { return uuid.UUID(id).String() }

func (id OrganizationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id IncidentID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id VersionID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }

// MarshalText lets typed IDs appear as plain UUID strings in JSON.
func (id OrganizationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id UserID) MarshalText() ([]byte, error)         { return []byte(id.String()), nil }
func (id IncidentID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id VersionID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }

func (id *OrganizationID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid organization id")
	}
	*id = OrganizationID(u)
	return nil
}

func (id *UserID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid user id")
	}
	*id = UserID(u)
	return nil
}

func (id *IncidentID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid incident id")
	}
	*id = IncidentID(u)
	return nil
}

func (id *VersionID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid version id")
	}
	*id = VersionID(u)
	return nil
}
