package review

import (
	"fmt"

	"github.com/conorfennell/recall/internal/deck"
	"github.com/conorfennell/recall/internal/scheduler"
)

// Mode selects whether grading persists schedule changes.
type Mode int

const (
	// ReviewMode computes and persists a new schedule for every grade.
	ReviewMode Mode = iota
	// CramMode never writes schedules: cards are requeued or dropped for
	// the session only.
	CramMode
)

func (m Mode) String() string {
	switch m {
	case ReviewMode:
		return "Review"
	case CramMode:
		return "Cram"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// QuestionWriter flushes an updated question (schedule comment included)
// back to its source document.
type QuestionWriter interface {
	WriteQuestion(q *deck.Question) error
}

// DeckStats summarizes one subtree: remaining due and new counts from the
// live tree, total from the original unfiltered tree.
type DeckStats struct {
	DueCount   int
	NewCount   int
	TotalCount int
}

// Sequencer is the single entry point the UI layer drives: it surfaces the
// current card, accepts grades, and orchestrates scheduling, persistence,
// burying, and traversal. One sequencer owns its trees and iterator
// exclusively; it is not reentrant.
type Sequencer struct {
	mode             Mode
	iterator         *DeckTreeIterator
	calculator       *scheduler.Calculator
	postponementList *PostponementList
	writer           QuestionWriter
	burySiblingCards bool

	originalTree  *deck.Deck
	remainingTree *deck.Deck
}

// NewSequencer wires a sequencer. The iterator must have been constructed
// with UpdateInPlace: the remaining tree is consumed as cards are handled.
func NewSequencer(
	mode Mode,
	iterator *DeckTreeIterator,
	calculator *scheduler.Calculator,
	postponementList *PostponementList,
	writer QuestionWriter,
	burySiblingCards bool,
) *Sequencer {
	return &Sequencer{
		mode:             mode,
		iterator:         iterator,
		calculator:       calculator,
		postponementList: postponementList,
		writer:           writer,
		burySiblingCards: burySiblingCards,
	}
}

// Mode returns the sequencer's review mode.
func (s *Sequencer) Mode() Mode {
	return s.mode
}

// SetTree installs the original tree (immutable ground truth for totals) and
// the remaining tree (cards not yet handled this pass), then primes the
// iterator at the remaining tree's root.
func (s *Sequencer) SetTree(original, remaining *deck.Deck) {
	s.originalTree = original
	s.remainingTree = remaining
	// Ignore the error: the root always resolves.
	_ = s.SetCurrentDeck(deck.EmptyPath())
}

// SetCurrentDeck re-roots the live iterator at a subtree and primes the
// current card.
func (s *Sequencer) SetCurrentDeck(topic deck.TopicPath) error {
	subtree, ok := s.remainingTree.Lookup(topic)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownDeck, topic.String())
	}
	s.iterator.SetTree(subtree)
	s.iterator.NextCard()
	return nil
}

// OriginalTree returns the unfiltered tree installed by SetTree.
func (s *Sequencer) OriginalTree() *deck.Deck {
	return s.originalTree
}

// HasCurrentCard reports whether a card is up for review.
func (s *Sequencer) HasCurrentCard() bool {
	return s.iterator.HasCurrentCard()
}

// CurrentCard returns the card up for review, nil when the session is done.
func (s *Sequencer) CurrentCard() *deck.Card {
	return s.iterator.CurrentCard()
}

// CurrentQuestion returns the question owning the current card.
func (s *Sequencer) CurrentQuestion() *deck.Question {
	if card := s.CurrentCard(); card != nil {
		return card.Question
	}
	return nil
}

// CurrentDeck returns the deck being traversed.
func (s *Sequencer) CurrentDeck() *deck.Deck {
	return s.iterator.CurrentDeck()
}

// CurrentNote returns the note owning the current question.
func (s *Sequencer) CurrentNote() *deck.Note {
	if q := s.CurrentQuestion(); q != nil {
		return q.Note
	}
	return nil
}

// Stats reports counts for the subtree at the topic path: totals from the
// original tree, remaining new/due from the live tree. Neither tree is
// mutated.
func (s *Sequencer) Stats(topic deck.TopicPath) (DeckStats, error) {
	originalDeck, ok := s.originalTree.Lookup(topic)
	if !ok {
		return DeckStats{}, fmt.Errorf("%w: %q in original tree", ErrUnknownDeck, topic.String())
	}
	remainingDeck, ok := s.remainingTree.Lookup(topic)
	if !ok {
		return DeckStats{}, fmt.Errorf("%w: %q in remaining tree", ErrUnknownDeck, topic.String())
	}
	return DeckStats{
		TotalCount: originalDeck.CardCount(deck.AllCardList, true),
		NewCount:   remainingDeck.CardCount(deck.NewCardList, true),
		DueCount:   remainingDeck.CardCount(deck.DueCardList, true),
	}, nil
}

// Skip discards the current question entirely (all its cards) and advances.
// Used when the user declines to grade.
func (s *Sequencer) Skip() error {
	_, err := s.iterator.DeleteCurrentQuestionAndAdvance()
	return err
}

// MoveCurrentCardToEndOfList requeues the current card behind everything
// else in this pass.
func (s *Sequencer) MoveCurrentCardToEndOfList() error {
	return s.iterator.MoveCurrentCardToEndOfList()
}

// DetermineSchedule previews the schedule a grade would produce for the
// card, without applying it. The UI uses this to label grade buttons.
func (s *Sequencer) DetermineSchedule(g scheduler.Grade, card *deck.Card) (scheduler.ScheduleInfo, error) {
	return s.calculator.Determine(g, card.Schedule)
}

// Respond processes the user's grade for the current card and advances.
func (s *Sequencer) Respond(g scheduler.Grade) error {
	if !s.HasCurrentCard() {
		return ErrNoCurrentCard
	}
	switch s.mode {
	case CramMode:
		return s.respondCram(g)
	default:
		return s.respondReview(g)
	}
}

func (s *Sequencer) respondReview(g scheduler.Grade) error {
	card := s.CurrentCard()
	question := card.Question

	schedule, err := s.DetermineSchedule(g, card)
	if err != nil {
		return err
	}
	card.Schedule = &schedule
	question.HasChanged = true

	// Persist before moving the card: an I/O failure leaves the card
	// current so the caller can retry or abandon.
	if err := s.writer.WriteQuestion(question); err != nil {
		return fmt.Errorf("persisting schedule for %q: %w", card.Front, err)
	}

	if g == scheduler.Reset {
		if err := s.iterator.MoveCurrentCardToEndOfList(); err != nil {
			return err
		}
	} else if s.burySiblingCards {
		if err := s.buryCurrentQuestion(); err != nil {
			return err
		}
		s.iterator.BurySiblings()
	}
	s.iterator.NextCard()
	return nil
}

// buryCurrentQuestion adds the question to the postponement list only when
// more than one of its cards remains in the deck. Without this check every
// single-card question would be postponed on review, which is not the legacy
// behavior this engine preserves.
func (s *Sequencer) buryCurrentQuestion() error {
	question := s.CurrentQuestion()
	if s.CurrentDeck().QuestionCardCount(question) > 1 {
		s.postponementList.Add(question)
		if err := s.postponementList.Write(); err != nil {
			return fmt.Errorf("persisting bury list: %w", err)
		}
	}
	return nil
}

func (s *Sequencer) respondCram(g scheduler.Grade) error {
	if g == scheduler.Easy {
		_, err := s.iterator.DeleteCurrentCardAndAdvance()
		return err
	}
	if err := s.iterator.MoveCurrentCardToEndOfList(); err != nil {
		return err
	}
	s.iterator.NextCard()
	return nil
}
