package review

import (
	"math/rand"
	"time"

	"github.com/conorfennell/recall/internal/deck"
)

// matureIntervalDays is the interval at which a card counts as mature.
const matureIntervalDays = 32

// TreeStats aggregates schedule figures over a whole deck tree.
type TreeStats struct {
	NewCount    int
	YoungCount  int
	MatureCount int

	TotalInterval int
	TotalEase     int
	DelayedDays   int
}

// TotalCount is every card seen, scheduled or not.
func (s TreeStats) TotalCount() int {
	return s.NewCount + s.YoungCount + s.MatureCount
}

// ScheduledCount is every card with a schedule.
func (s TreeStats) ScheduledCount() int {
	return s.YoungCount + s.MatureCount
}

// AverageInterval returns the mean interval of scheduled cards in days.
func (s TreeStats) AverageInterval() float64 {
	if s.ScheduledCount() == 0 {
		return 0
	}
	return float64(s.TotalInterval) / float64(s.ScheduledCount())
}

// AverageEase returns the mean ease of scheduled cards.
func (s TreeStats) AverageEase() float64 {
	if s.ScheduledCount() == 0 {
		return 0
	}
	return float64(s.TotalEase) / float64(s.ScheduledCount())
}

// CalculateTreeStats walks every card in the tree and aggregates schedule
// figures. The walk is clone-before-use: the supplied tree is never mutated,
// so this is safe to run against the live review tree.
func CalculateTreeStats(tree *deck.Deck, now time.Time) TreeStats {
	// Order is irrelevant as long as every card is visited once.
	order := IteratorOrder{
		DeckOrder:     OrderSequential,
		CardListOrder: DueCardsFirst,
		CardOrder:     OrderSequential,
	}
	it := NewDeckTreeIterator(order, CloneBeforeUse, rand.New(rand.NewSource(0)))
	it.SetTree(tree)

	var stats TreeStats
	for it.NextCard() {
		card := it.CurrentCard()
		if !card.HasSchedule() {
			stats.NewCount++
			continue
		}
		schedule := card.Schedule
		if schedule.Interval >= matureIntervalDays {
			stats.MatureCount++
		} else {
			stats.YoungCount++
		}
		stats.TotalInterval += schedule.Interval
		stats.TotalEase += schedule.Ease
		stats.DelayedDays += schedule.DaysOverdue(now)
	}
	return stats
}
