package scheduler

import (
	"fmt"
	"time"
)

// DueDateFormat is the on-disk date layout used inside schedule comments.
const DueDateFormat = "2006-01-02"

// dummyDueDate marks the placeholder schedule written for cards that have
// never been reviewed. It exists only so that multi-card schedule comments
// stay positionally aligned.
var dummyDueDate = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// ScheduleInfo is a card's review schedule: when it is next due, the current
// interval in whole days, and the ease multiplier (percent, e.g. 250).
type ScheduleInfo struct {
	DueDate  time.Time
	Interval int
	Ease     int
}

// IsDue reports whether the card is due at the given time.
func (s ScheduleInfo) IsDue(now time.Time) bool {
	return !s.DueDate.After(now)
}

// DaysOverdue returns how many whole days past due the schedule is at the
// given time. Cards due in the future return 0.
func (s ScheduleInfo) DaysOverdue(now time.Time) int {
	if s.DueDate.After(now) {
		return 0
	}
	return int(now.Sub(s.DueDate).Hours() / 24)
}

// Format renders the schedule in its wire form, e.g. "!2023-10-16,34,290".
func (s ScheduleInfo) Format() string {
	return fmt.Sprintf("!%s,%d,%d", s.DueDate.Format(DueDateFormat), s.Interval, s.Ease)
}

// IsDummy reports whether this is the placeholder schedule for a card that
// has never been reviewed.
func (s ScheduleInfo) IsDummy() bool {
	return s.DueDate.Equal(dummyDueDate)
}

// DummySchedule returns the serialization placeholder written for an
// unreviewed card. It must never be attached to a live card.
func DummySchedule(baseEase int) ScheduleInfo {
	return ScheduleInfo{DueDate: dummyDueDate, Interval: 1, Ease: baseEase}
}
