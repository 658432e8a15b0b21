package models

import (
	"strings"
	"time"

	id "breachledger/pkg/domain"
	pstrings "breachledger/pkg/platform/strings"
)

// Status is the lifecycle state recorded on each version's snapshot.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusInReview Status = "in_review"
	StatusActive   Status = "active"
	StatusResolved Status = "resolved"
)

var validStatuses = map[Status]bool{
	StatusDraft:    true,
	StatusInReview: true,
	StatusActive:   true,
	StatusResolved: true,
}

// IsValid reports whether the status is one of the known lifecycle values.
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// Incident is the mutable head row for one logical incident.
// Content lives in versions; the head only tracks identity and the latest version number.
type Incident struct {
	ID                   id.IncidentID
	OrganizationID       id.OrganizationID
	InternalID           int64
	CurrentVersionNumber int
	Status               Status
	CreatedAt            time.Time
	CreatedBy            id.UserID
	UpdatedAt            time.Time
}

// IncidentVersion is one immutable, append-only snapshot of an incident.
type IncidentVersion struct {
	ID            id.VersionID
	IncidentID    id.IncidentID
	VersionNumber int
	Snapshot      Snapshot
	Token         string
	TokenNonce    int
	DeadlineAt    time.Time
	IsLate        bool
	CreatedAt     time.Time
	CreatedBy     id.UserID
}

// Snapshot is the full set of reportable fields written with every version.
//
// Field order is part of the token's canonical form: do not reorder fields and
// do not add omitempty tags, or previously issued tokens stop verifying.
type Snapshot struct {
	DetectedAt            time.Time  `json:"detected_at"`
	Description           string     `json:"description"`
	IncidentType          string     `json:"incident_type"`
	DataCategories        []string   `json:"data_categories"`
	AffectedSubjectsCount *int64     `json:"affected_subjects_count"`
	AffectedRecordsCount  *int64     `json:"affected_records_count"`
	Consequences          string     `json:"consequences"`
	MeasuresTaken         string     `json:"measures_taken"`
	MeasuresPlanned       string     `json:"measures_planned"`
	ProbableRisks         string     `json:"probable_risks"`
	AuthorityNotified     bool       `json:"authority_notified"`
	AuthorityNotifiedAt   *time.Time `json:"authority_notified_at"`
	DelayJustification    string     `json:"delay_justification"`
	SubjectsNotified      bool       `json:"subjects_notified"`
	SubjectsNotifiedAt    *time.Time `json:"subjects_notified_at"`
	ResolvedAt            *time.Time `json:"resolved_at"`
	Status                Status     `json:"status"`
	ContactName           string     `json:"contact_name"`
	ContactEmail          string     `json:"contact_email"`
	ContactPhone          string     `json:"contact_phone"`
	InternalNotes         string     `json:"internal_notes"`
}

// Normalized returns a copy with trimmed text, deduplicated categories and
// timestamps in UTC at microsecond precision (the precision PostgreSQL keeps).
func (s Snapshot) Normalized() Snapshot {
	out := s
	pstrings.TrimAll(
		&out.Description, &out.IncidentType, &out.Consequences, &out.MeasuresTaken,
		&out.MeasuresPlanned, &out.ProbableRisks, &out.DelayJustification,
		&out.ContactName, &out.ContactEmail, &out.ContactPhone, &out.InternalNotes,
	)
	out.Status = Status(strings.ToLower(strings.TrimSpace(string(out.Status))))
	out.DetectedAt = NormalizeTime(s.DetectedAt)
	out.AuthorityNotifiedAt = normalizeTimePtr(s.AuthorityNotifiedAt)
	out.SubjectsNotifiedAt = normalizeTimePtr(s.SubjectsNotifiedAt)
	out.ResolvedAt = normalizeTimePtr(s.ResolvedAt)
	out.DataCategories = pstrings.DedupeAndTrim(s.DataCategories)
	if s.AffectedSubjectsCount != nil {
		v := *s.AffectedSubjectsCount
		out.AffectedSubjectsCount = &v
	}
	if s.AffectedRecordsCount != nil {
		v := *s.AffectedRecordsCount
		out.AffectedRecordsCount = &v
	}
	if out.Status == "" {
		out.Status = StatusDraft
	}
	return out
}

// NormalizeTime converts t to UTC and truncates it to microseconds.
func NormalizeTime(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC().Truncate(time.Microsecond)
}

func normalizeTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := NormalizeTime(*t)
	return &v
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := s
	if s.DataCategories != nil {
		out.DataCategories = append([]string{}, s.DataCategories...)
	}
	if s.AffectedSubjectsCount != nil {
		v := *s.AffectedSubjectsCount
		out.AffectedSubjectsCount = &v
	}
	if s.AffectedRecordsCount != nil {
		v := *s.AffectedRecordsCount
		out.AffectedRecordsCount = &v
	}
	out.AuthorityNotifiedAt = clonePtr(s.AuthorityNotifiedAt)
	out.SubjectsNotifiedAt = clonePtr(s.SubjectsNotifiedAt)
	out.ResolvedAt = clonePtr(s.ResolvedAt)
	return out
}

// Clone returns a deep copy of the version.
func (v *IncidentVersion) Clone() *IncidentVersion {
	if v == nil {
		return nil
	}
	out := *v
	out.Snapshot = v.Snapshot.Clone()
	return &out
}

// Clone returns a copy of the head row.
func (i *Incident) Clone() *Incident {
	if i == nil {
		return nil
	}
	out := *i
	return &out
}

func clonePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
