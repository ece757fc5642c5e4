package scheduler

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Grade is the user's response to a reviewed card.
type Grade int

const (
	Easy Grade = iota
	Good
	Hard
	// Reset discards all learning progress and returns the card to its
	// new-card baseline, independent of how well it was recalled.
	Reset
)

var gradeNames = map[Grade]string{
	Easy:  "Easy",
	Good:  "Good",
	Hard:  "Hard",
	Reset: "Reset",
}

// String returns the grade name, or "Grade(n)" for invalid values.
func (g Grade) String() string {
	if name, ok := gradeNames[g]; ok {
		return name
	}
	return fmt.Sprintf("Grade(%d)", int(g))
}

// IsValid reports whether g is one of the defined grades.
func (g Grade) IsValid() bool {
	_, ok := gradeNames[g]
	return ok
}

// ParseGrade converts a grade name back into a Grade.
func ParseGrade(name string) (Grade, error) {
	for g, n := range gradeNames {
		if n == name {
			return g, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidGrade, name)
}

// Sentinel errors for the scheduler package. Check with errors.Is.
var (
	ErrInvalidGrade = errors.New("scheduler: invalid grade")
)

// Settings holds the scheduling constants. All intervals are whole days;
// ease values are percentages (250 means a 2.5x interval multiplier).
type Settings struct {
	BaseEase            int
	EaseFloor           int
	HardEasePenalty     int
	EasyEaseBonus       int
	EasyBonusFactor     float64
	LapseIntervalFactor float64
	MaximumInterval     int

	// First interval assigned to a never-reviewed card, per grade.
	InitialIntervalHard int
	InitialIntervalGood int
	InitialIntervalEasy int
}

// DefaultSettings returns the stock scheduling constants.
func DefaultSettings() Settings {
	return Settings{
		BaseEase:            250,
		EaseFloor:           130,
		HardEasePenalty:     20,
		EasyEaseBonus:       20,
		EasyBonusFactor:     1.3,
		LapseIntervalFactor: 0.5,
		MaximumInterval:     36525,
		InitialIntervalHard: 1,
		InitialIntervalGood: 1,
		InitialIntervalEasy: 4,
	}
}

// Calculator maps a grade plus a prior schedule (or the lack of one) to a new
// schedule. It has no side effects and never mutates its inputs. The clock is
// injected so tests can pin "today".
type Calculator struct {
	settings Settings
	now      func() time.Time
}

// NewCalculator builds a calculator. A nil clock defaults to time.Now.
func NewCalculator(settings Settings, now func() time.Time) *Calculator {
	if now == nil {
		now = time.Now
	}
	return &Calculator{settings: settings, now: now}
}

// Settings returns the calculator's scheduling constants.
func (c *Calculator) Settings() Settings {
	return c.settings
}

// Determine computes the schedule resulting from the given grade. A nil prior
// schedule means the card has never been reviewed. Reset ignores the prior
// schedule entirely.
func (c *Calculator) Determine(g Grade, prior *ScheduleInfo) (ScheduleInfo, error) {
	if !g.IsValid() {
		return ScheduleInfo{}, fmt.Errorf("%w: %d", ErrInvalidGrade, int(g))
	}
	if g == Reset {
		return c.ResetSchedule(), nil
	}
	if prior == nil {
		return c.NewCardSchedule(g)
	}
	return c.UpdatedSchedule(g, *prior), nil
}

// NewCardSchedule returns the first schedule for a never-reviewed card.
// The interval comes from the per-grade initial interval table and the ease
// from the configured base ease.
func (c *Calculator) NewCardSchedule(g Grade) (ScheduleInfo, error) {
	var interval int
	switch g {
	case Hard:
		interval = c.settings.InitialIntervalHard
	case Good:
		interval = c.settings.InitialIntervalGood
	case Easy:
		interval = c.settings.InitialIntervalEasy
	default:
		return ScheduleInfo{}, fmt.Errorf("%w: %v for a new card", ErrInvalidGrade, g)
	}
	return c.schedule(interval, c.settings.BaseEase), nil
}

// UpdatedSchedule applies a grade to an existing schedule.
func (c *Calculator) UpdatedSchedule(g Grade, prior ScheduleInfo) ScheduleInfo {
	ease := prior.Ease
	interval := float64(prior.Interval)

	switch g {
	case Hard:
		ease -= c.settings.HardEasePenalty
		if ease < c.settings.EaseFloor {
			ease = c.settings.EaseFloor
		}
		interval *= c.settings.LapseIntervalFactor
	case Good:
		interval = interval * float64(ease) / 100
	case Easy:
		ease += c.settings.EasyEaseBonus
		interval = interval * float64(ease) / 100 * c.settings.EasyBonusFactor
	}

	return c.schedule(c.boundInterval(interval), ease)
}

// ResetSchedule returns the new-card baseline, discarding any history.
func (c *Calculator) ResetSchedule() ScheduleInfo {
	return c.schedule(c.settings.InitialIntervalGood, c.settings.BaseEase)
}

// schedule stamps the due date from the moment of grading, not from the
// card's previous due date, so late reviews never compound drift.
func (c *Calculator) schedule(interval, ease int) ScheduleInfo {
	return ScheduleInfo{
		DueDate:  c.today().AddDate(0, 0, interval),
		Interval: interval,
		Ease:     ease,
	}
}

func (c *Calculator) boundInterval(interval float64) int {
	result := int(math.Round(interval))
	if result < 1 {
		result = 1
	}
	if result > c.settings.MaximumInterval {
		result = c.settings.MaximumInterval
	}
	return result
}

// today truncates the injected clock to midnight UTC. Schedules are
// day-granular.
func (c *Calculator) today() time.Time {
	now := c.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
