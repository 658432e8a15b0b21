// Package deadline computes the Article 33 notification window for an incident.
//
// The window is 72 elapsed hours from the moment of detection. Arithmetic is done
// on instants, so a window that spans a DST change is still exactly 72 real hours
// regardless of the zone the timestamps were submitted in.
package deadline

import "time"

// Window is the time allowed between detection and notifying the supervisory authority.
const Window = 72 * time.Hour

// Assessment is the deadline status of an incident at a given moment.
type Assessment struct {
	DetectedAt time.Time
	Deadline   time.Time
	Notified   bool
	NotifiedAt *time.Time
	// IsLate is true when the authority was notified after the deadline.
	IsLate bool
	// LateUnnotified is true when the authority has not been notified and the deadline has passed.
	LateUnnotified bool
	Remaining      time.Duration
	Overdue        time.Duration
}

// For returns the notification deadline for a detection instant.
func For(detectedAt time.Time) time.Time {
	return detectedAt.UTC().Add(Window)
}

// Evaluate assesses the deadline for detectedAt given an optional notification
// time, as seen at now. It performs no I/O.
func Evaluate(detectedAt time.Time, notifiedAt *time.Time, now time.Time) Assessment {
	a := Assessment{
		DetectedAt: detectedAt.UTC(),
		Deadline:   For(detectedAt),
	}

	if notifiedAt != nil {
		n := notifiedAt.UTC()
		a.Notified = true
		a.NotifiedAt = &n
		if n.After(a.Deadline) {
			a.IsLate = true
			a.Overdue = n.Sub(a.Deadline)
		}
		return a
	}

	if now.After(a.Deadline) {
		a.LateUnnotified = true
		a.Overdue = now.Sub(a.Deadline)
		return a
	}
	a.Remaining = a.Deadline.Sub(now)
	return a
}

// RequiresJustification reports whether a delay justification must accompany
// the notification recorded in this assessment.
func (a Assessment) RequiresJustification() bool {
	return a.Notified && a.IsLate
}

func (a Assessment) HoursRemaining() float64 {
	return a.Remaining.Hours()
}

func (a Assessment) HoursOverdue() float64 {
	return a.Overdue.Hours()
}
