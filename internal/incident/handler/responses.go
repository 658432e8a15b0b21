package handler

import (
	"time"

	"breachledger/internal/incident/deadline"
	"breachledger/internal/incident/models"
	"breachledger/internal/incident/service"
)

type IncidentResponse struct {
	ID                   string        `json:"id"`
	OrganizationID       string        `json:"organization_id"`
	InternalID           int64         `json:"internal_id"`
	CurrentVersionNumber int           `json:"current_version_number"`
	Status               models.Status `json:"status"`
	CreatedAt            time.Time     `json:"created_at"`
	CreatedBy            string        `json:"created_by"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

type VersionResponse struct {
	ID            string          `json:"id"`
	IncidentID    string          `json:"incident_id"`
	VersionNumber int             `json:"version_number"`
	Snapshot      models.Snapshot `json:"snapshot"`
	Token         string          `json:"token"`
	DeadlineAt    time.Time       `json:"deadline_at"`
	IsLate        bool            `json:"is_late"`
	CreatedAt     time.Time       `json:"created_at"`
	CreatedBy     string          `json:"created_by"`
}

type AssessmentResponse struct {
	Deadline       time.Time `json:"deadline"`
	Notified       bool      `json:"notified"`
	IsLate         bool      `json:"is_late"`
	LateUnnotified bool      `json:"late_unnotified"`
	HoursRemaining float64   `json:"hours_remaining"`
	HoursOverdue   float64   `json:"hours_overdue"`
}

type WriteResponse struct {
	Success    bool               `json:"success"`
	Incident   IncidentResponse   `json:"incident"`
	Version    VersionResponse    `json:"version"`
	Token      string             `json:"token"`
	Assessment AssessmentResponse `json:"assessment"`
}

type HistoryResponse struct {
	Incident   IncidentResponse   `json:"incident"`
	Versions   []VersionResponse  `json:"versions"`
	Assessment AssessmentResponse `json:"assessment"`
}

type ListResponse struct {
	Incidents []IncidentResponse `json:"incidents"`
}

type DeleteResponse struct {
	Success bool `json:"success"`
}

func toIncidentResponse(inc *models.Incident) IncidentResponse {
	return IncidentResponse{
		ID:                   inc.ID.String(),
		OrganizationID:       inc.OrganizationID.String(),
		InternalID:           inc.InternalID,
		CurrentVersionNumber: inc.CurrentVersionNumber,
		Status:               inc.Status,
		CreatedAt:            inc.CreatedAt,
		CreatedBy:            inc.CreatedBy.String(),
		UpdatedAt:            inc.UpdatedAt,
	}
}

func toVersionResponse(v *models.IncidentVersion) VersionResponse {
	return VersionResponse{
		ID:            v.ID.String(),
		IncidentID:    v.IncidentID.String(),
		VersionNumber: v.VersionNumber,
		Snapshot:      v.Snapshot,
		Token:         v.Token,
		DeadlineAt:    v.DeadlineAt,
		IsLate:        v.IsLate,
		CreatedAt:     v.CreatedAt,
		CreatedBy:     v.CreatedBy.String(),
	}
}

func toAssessmentResponse(a deadline.Assessment) AssessmentResponse {
	return AssessmentResponse{
		Deadline:       a.Deadline,
		Notified:       a.Notified,
		IsLate:         a.IsLate,
		LateUnnotified: a.LateUnnotified,
		HoursRemaining: a.HoursRemaining(),
		HoursOverdue:   a.HoursOverdue(),
	}
}

func toWriteResponse(res *service.Result) WriteResponse {
	return WriteResponse{
		Success:    true,
		Incident:   toIncidentResponse(res.Incident),
		Version:    toVersionResponse(res.Version),
		Token:      res.Token,
		Assessment: toAssessmentResponse(res.Assessment),
	}
}

func toHistoryResponse(h *service.History) HistoryResponse {
	versions := make([]VersionResponse, 0, len(h.Versions))
	for _, v := range h.Versions {
		versions = append(versions, toVersionResponse(v))
	}
	return HistoryResponse{
		Incident:   toIncidentResponse(h.Incident),
		Versions:   versions,
		Assessment: toAssessmentResponse(h.Assessment),
	}
}
