package deadline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type DeadlineSuite struct {
	suite.Suite
	detected time.Time
}

func TestDeadlineSuite(t *testing.T) {
	suite.Run(t, new(DeadlineSuite))
}

func (s *DeadlineSuite) SetupTest() {
	s.detected = time.Date(2024, 5, 6, 8, 0, 0, 0, time.UTC)
}

func (s *DeadlineSuite) TestDeadlineIsSeventyTwoHoursAfterDetection() {
	a := Evaluate(s.detected, nil, s.detected)
	s.Equal(s.detected.Add(72*time.Hour), a.Deadline)
	s.Equal(72.0, a.HoursRemaining())
	s.False(a.IsLate)
	s.False(a.LateUnnotified)
}

func (s *DeadlineSuite) TestUnnotifiedWithinWindow() {
	now := s.detected.Add(70 * time.Hour)
	a := Evaluate(s.detected, nil, now)

	s.False(a.Notified)
	s.False(a.LateUnnotified)
	s.Equal(2*time.Hour, a.Remaining)
	s.Zero(a.Overdue)
	s.False(a.RequiresJustification())
}

func (s *DeadlineSuite) TestUnnotifiedPastDeadlineIsReportedNotBlocked() {
	now := s.detected.Add(80 * time.Hour)
	a := Evaluate(s.detected, nil, now)

	s.True(a.LateUnnotified)
	s.False(a.IsLate)
	s.Equal(8.0, a.HoursOverdue())
	s.False(a.RequiresJustification(), "nothing to justify until a notification is recorded")
}

func (s *DeadlineSuite) TestNotifiedOnTime() {
	notified := s.detected.Add(71 * time.Hour)
	a := Evaluate(s.detected, &notified, s.detected.Add(200*time.Hour))

	s.True(a.Notified)
	s.False(a.IsLate)
	s.False(a.LateUnnotified)
	s.False(a.RequiresJustification())
}

func (s *DeadlineSuite) TestNotifiedExactlyAtDeadlineIsOnTime() {
	notified := s.detected.Add(72 * time.Hour)
	a := Evaluate(s.detected, &notified, notified)
	s.False(a.IsLate)
}

func (s *DeadlineSuite) TestNotifiedLateRequiresJustification() {
	notified := s.detected.Add(73 * time.Hour)
	a := Evaluate(s.detected, &notified, notified)

	s.True(a.IsLate)
	s.True(a.RequiresJustification())
	s.Equal(time.Hour, a.Overdue)
}

func TestDeadlineAcrossDSTIsSeventyTwoRealHours(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	// Clocks go forward on 2024-03-31 in Berlin.
	detected := time.Date(2024, 3, 29, 12, 0, 0, 0, berlin)
	a := Evaluate(detected, nil, detected)

	assert.Equal(t, 72*time.Hour, a.Deadline.Sub(detected))
	assert.Equal(t, 13, a.Deadline.In(berlin).Hour(), "wall clock shifts by the DST hour")
	assert.Equal(t, time.UTC, a.Deadline.Location())
}

func TestNotificationInOtherZoneComparedAsInstant(t *testing.T) {
	detected := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	// 73h after detection expressed in UTC+5.
	notified := time.Date(2024, 1, 4, 6, 0, 0, 0, time.FixedZone("UTC+5", 5*3600))
	a := Evaluate(detected, &notified, notified)
	assert.True(t, a.IsLate)
	assert.Equal(t, time.Hour, a.Overdue)
}
