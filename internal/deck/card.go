package deck

import (
	"fmt"
	"time"

	"github.com/conorfennell/recall/internal/scheduler"
)

// CardType classifies the flashcard syntax a question was written in.
type CardType int

const (
	SingleLineBasic CardType = iota
	SingleLineReversed
	MultiLineBasic
	MultiLineReversed
	Cloze
)

var cardTypeNames = [...]string{
	SingleLineBasic:    "SingleLineBasic",
	SingleLineReversed: "SingleLineReversed",
	MultiLineBasic:     "MultiLineBasic",
	MultiLineReversed:  "MultiLineReversed",
	Cloze:              "Cloze",
}

func (t CardType) String() string {
	if t >= 0 && int(t) < len(cardTypeNames) {
		return cardTypeNames[t]
	}
	return fmt.Sprintf("CardType(%d)", int(t))
}

// IsReversed reports whether the type produces a swapped sibling card.
func (t CardType) IsReversed() bool {
	return t == SingleLineReversed || t == MultiLineReversed
}

// CardListType selects one of a deck's card buckets.
type CardListType int

const (
	NewCardList CardListType = iota
	DueCardList
	// AllCardList addresses both buckets at once; it is valid for counting
	// and reading, never for positional mutation.
	AllCardList
)

var cardListTypeNames = [...]string{
	NewCardList: "NewCardList",
	DueCardList: "DueCardList",
	AllCardList: "AllCardList",
}

func (t CardListType) String() string {
	if t >= 0 && int(t) < len(cardListTypeNames) {
		return cardListTypeNames[t]
	}
	return fmt.Sprintf("CardListType(%d)", int(t))
}

// OtherListType returns the complementary bucket: new for due (or all), due
// for new. The second return is false when there is no complement.
func OtherListType(t CardListType) (CardListType, bool) {
	switch t {
	case NewCardList:
		return DueCardList, true
	case DueCardList, AllCardList:
		return NewCardList, true
	default:
		return 0, false
	}
}

// Card is one quizzable front/back pair belonging to exactly one Question.
// Its identity is reference identity: two cards with the same text are
// distinct entities when they came from different questions.
type Card struct {
	Question *Question
	CardIdx  int

	Front string
	Back  string

	// Schedule is nil until the card's first review.
	Schedule *scheduler.ScheduleInfo
}

// HasSchedule reports whether the card has ever been reviewed.
func (c *Card) HasSchedule() bool {
	return c.Schedule != nil
}

// IsNew reports whether the card has never been reviewed.
func (c *Card) IsNew() bool {
	return !c.HasSchedule()
}

// IsDue reports whether the card is scheduled and its due date has arrived.
func (c *Card) IsDue(now time.Time) bool {
	return c.HasSchedule() && c.Schedule.IsDue(now)
}

// ListType returns the bucket this card files into.
func (c *Card) ListType() CardListType {
	if c.HasSchedule() {
		return DueCardList
	}
	return NewCardList
}

// FormatSchedule renders the card's schedule for display, or "New".
func (c *Card) FormatSchedule() string {
	if c.HasSchedule() {
		return c.Schedule.Format()
	}
	return "New"
}
