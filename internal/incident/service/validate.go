package service

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"breachledger/internal/incident/deadline"
	"breachledger/internal/incident/models"
	dErrors "breachledger/pkg/domain-errors"
	"breachledger/pkg/platform/validation"
)

// maxClockSkew bounds how far in the future a detection time may lie.
const maxClockSkew = 5 * time.Minute

// validate checks a normalized snapshot. It returns the first violation as a
// validation error.
func (s *Service) validate(ctx context.Context, snap models.Snapshot) error {
	if snap.DetectedAt.IsZero() {
		return invalid("detected_at is required")
	}
	if snap.DetectedAt.After(s.now(ctx).Add(maxClockSkew)) {
		return invalid("detected_at must not be in the future")
	}
	if !snap.Status.IsValid() {
		return invalid(fmt.Sprintf("unknown status %q", snap.Status))
	}

	if snap.AffectedSubjectsCount != nil && *snap.AffectedSubjectsCount < 0 {
		return invalid("affected_subjects_count must not be negative")
	}
	if snap.AffectedRecordsCount != nil && *snap.AffectedRecordsCount < 0 {
		return invalid("affected_records_count must not be negative")
	}

	if err := checkNotification("authority", snap.AuthorityNotified, snap.AuthorityNotifiedAt, snap.DetectedAt); err != nil {
		return err
	}
	if err := checkNotification("subjects", snap.SubjectsNotified, snap.SubjectsNotifiedAt, snap.DetectedAt); err != nil {
		return err
	}
	if snap.ResolvedAt != nil && snap.ResolvedAt.Before(snap.DetectedAt) {
		return invalid("resolved_at must not be before detected_at")
	}

	if err := checkLengths(snap); err != nil {
		return err
	}
	if snap.ContactEmail != "" && !validation.ValidEmail(snap.ContactEmail) {
		return invalid("contact_email is not a valid email address")
	}

	assessment := deadline.Evaluate(snap.DetectedAt, snap.AuthorityNotifiedAt, s.now(ctx))
	if assessment.RequiresJustification() && snap.DelayJustification == "" {
		return invalid("delay_justification is required when the authority was notified more than 72 hours after detection")
	}
	return nil
}

func checkNotification(who string, notified bool, at *time.Time, detectedAt time.Time) error {
	switch {
	case notified && at == nil:
		return invalid(fmt.Sprintf("%s_notified_at is required when %s_notified is true", who, who))
	case !notified && at != nil:
		return invalid(fmt.Sprintf("%s_notified must be true when %s_notified_at is set", who, who))
	case at != nil && at.Before(detectedAt):
		return invalid(fmt.Sprintf("%s_notified_at must not be before detected_at", who))
	}
	return nil
}

func checkLengths(snap models.Snapshot) error {
	fields := []struct {
		name  string
		value string
		max   int
	}{
		{"description", snap.Description, validation.MaxLongTextLength},
		{"incident_type", snap.IncidentType, validation.MaxShortTextLength},
		{"consequences", snap.Consequences, validation.MaxLongTextLength},
		{"measures_taken", snap.MeasuresTaken, validation.MaxLongTextLength},
		{"measures_planned", snap.MeasuresPlanned, validation.MaxLongTextLength},
		{"probable_risks", snap.ProbableRisks, validation.MaxLongTextLength},
		{"delay_justification", snap.DelayJustification, validation.MaxLongTextLength},
		{"contact_name", snap.ContactName, validation.MaxContactFieldLength},
		{"contact_email", snap.ContactEmail, validation.MaxContactFieldLength},
		{"contact_phone", snap.ContactPhone, validation.MaxContactFieldLength},
		{"internal_notes", snap.InternalNotes, validation.MaxInternalNotes},
	}
	for _, f := range fields {
		if utf8.RuneCountInString(f.value) > f.max {
			return invalid(fmt.Sprintf("%s must be at most %d characters", f.name, f.max))
		}
	}

	if len(snap.DataCategories) > validation.MaxDataCategories {
		return invalid(fmt.Sprintf("data_categories must have at most %d entries", validation.MaxDataCategories))
	}
	for _, c := range snap.DataCategories {
		if utf8.RuneCountInString(c) > validation.MaxDataCategoryLength {
			return invalid(fmt.Sprintf("data category must be at most %d characters", validation.MaxDataCategoryLength))
		}
	}
	return nil
}

func invalid(msg string) error {
	return dErrors.New(dErrors.CodeValidation, msg)
}
