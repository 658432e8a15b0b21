package handler

import (
	"strings"

	"breachledger/internal/incident/models"
	dErrors "breachledger/pkg/domain-errors"
)

// IncidentRequest is the body of create and update calls. Snapshot fields are
// inlined at the top level.
type IncidentRequest struct {
	OrganizationID string `json:"organization_id,omitempty"`
	models.Snapshot
}

func (r *IncidentRequest) Normalize() {
	if r == nil {
		return
	}
	r.OrganizationID = strings.TrimSpace(r.OrganizationID)
}

func (r *IncidentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.DetectedAt.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "detected_at is required")
	}
	return nil
}
