package review

import (
	"time"

	"github.com/conorfennell/recall/internal/deck"
)

// FilterForRemainingCards copies the tree keeping only cards still up for
// this pass: postponed questions drop out, and in review mode so do cards
// that are neither new nor due. Cram mode reviews everything regardless of
// schedule.
func FilterForRemainingCards(list *PostponementList, tree *deck.Deck, mode Mode, now time.Time) *deck.Deck {
	return tree.CopyWithCardFilter(func(c *deck.Card) bool {
		if list != nil && list.Includes(c.Question) {
			return false
		}
		return mode == CramMode || c.IsNew() || c.IsDue(now)
	}, nil)
}
