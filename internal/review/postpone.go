package review

import (
	"fmt"
	"time"

	"github.com/conorfennell/recall/internal/deck"
	"github.com/conorfennell/recall/internal/fingerprint"
)

// BuryDateFormat is the calendar-date layout stored next to the bury list.
const BuryDateFormat = "2006-01-02"

// BuryStore persists the postponement list across sessions. The engine only
// hands over the whole state; retries and storage details belong to the
// implementation.
type BuryStore interface {
	SaveBuryState(buryDate string, hashes []string) error
}

// PostponementList records the questions already surfaced this review pass,
// by content hash of their formatted text (schedule comment excluded).
// The list is cleared whenever the calendar date rolls past the stored bury
// date, so yesterday's burials never suppress today's cards.
type PostponementList struct {
	store    BuryStore
	buryDate string
	hashes   []string
	present  map[string]struct{}
}

// NewPostponementList restores a list from its persisted state.
func NewPostponementList(store BuryStore, buryDate string, hashes []string) *PostponementList {
	l := &PostponementList{
		store:    store,
		buryDate: buryDate,
		present:  make(map[string]struct{}, len(hashes)),
	}
	for _, h := range hashes {
		if _, dup := l.present[h]; !dup {
			l.hashes = append(l.hashes, h)
			l.present[h] = struct{}{}
		}
	}
	return l
}

// QuestionIdentity is the postponement hash of a question.
func QuestionIdentity(q *deck.Question) string {
	return fingerprint.Hash(q.Text.FormatForNote())
}

// Add marks the question as surfaced this pass.
func (l *PostponementList) Add(q *deck.Question) {
	h := QuestionIdentity(q)
	if _, dup := l.present[h]; dup {
		return
	}
	l.hashes = append(l.hashes, h)
	l.present[h] = struct{}{}
}

// Includes reports whether the question was already surfaced this pass.
func (l *PostponementList) Includes(q *deck.Question) bool {
	_, ok := l.present[QuestionIdentity(q)]
	return ok
}

// Len returns the number of buried questions.
func (l *PostponementList) Len() int {
	return len(l.hashes)
}

// Clear empties the list without persisting; callers decide when to write.
func (l *PostponementList) Clear() {
	l.hashes = nil
	l.present = make(map[string]struct{})
}

// ClearIfDateChanged empties and persists the list when today differs from
// the stored bury date. Returns whether a clear happened.
func (l *PostponementList) ClearIfDateChanged(now time.Time) (bool, error) {
	today := now.Format(BuryDateFormat)
	if today == l.buryDate {
		return false, nil
	}
	l.buryDate = today
	l.Clear()
	if err := l.Write(); err != nil {
		return true, fmt.Errorf("clearing bury list for %s: %w", today, err)
	}
	return true, nil
}

// Write persists the current state through the store.
func (l *PostponementList) Write() error {
	hashes := make([]string, len(l.hashes))
	copy(hashes, l.hashes)
	return l.store.SaveBuryState(l.buryDate, hashes)
}
