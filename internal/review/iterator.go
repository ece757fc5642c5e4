package review

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/conorfennell/recall/internal/deck"
)

// Sentinel errors for the review package. Check with errors.Is.
var (
	// ErrNoCurrentCard is returned when a current-card operation is invoked
	// while no card is selected. This is a caller bug, never absorbed.
	ErrNoCurrentCard = errors.New("review: no current card")
	// ErrUnknownDeck is returned when a topic path does not resolve to a deck.
	ErrUnknownDeck = errors.New("review: unknown deck")
)

// OrderMethod selects sequential or randomized picking.
type OrderMethod int

const (
	OrderSequential OrderMethod = iota
	OrderRandom
)

// CardListOrder selects which of a deck's buckets is tried first.
type CardListOrder int

const (
	NewCardsFirst CardListOrder = iota
	DueCardsFirst
	RandomListOrder
)

// IteratorOrder configures traversal, set once at construction.
type IteratorOrder struct {
	// DeckOrder chooses how decks are visited. Only sequential pre-order is
	// implemented; the field exists so the configuration surface is complete.
	DeckOrder OrderMethod

	// CardListOrder chooses the bucket tried first within each deck.
	CardListOrder CardListOrder

	// CardOrder chooses the pick index within a bucket.
	CardOrder OrderMethod
}

// DeckSource states whether the iterator may mutate the tree it is given.
type DeckSource int

const (
	// UpdateInPlace mutates the supplied tree directly: traversal consumes
	// cards, so remaining counts reflect progress. Used for live review.
	UpdateInPlace DeckSource = iota
	// CloneBeforeUse deep-copies the tree first so the caller's tree is
	// never touched. Used for read-only walks such as stats.
	CloneBeforeUse
)

// singleDeckIterator walks the two card buckets of one deck. Its state
// machine: no list selected -> iterating the preferred bucket -> iterating
// the other bucket -> exhausted. All indices are recomputed against the live
// bucket on every step, so mid-traversal deletion invalidates nothing but
// the single cached index.
type singleDeckIterator struct {
	deck  *deck.Deck
	order IteratorOrder
	rng   *rand.Rand

	listChosen bool
	listType   deck.CardListType
	preferred  deck.CardListType // bucket chosen first for the current deck
	cardIdx    int               // -1 when no card is selected
}

func (it *singleDeckIterator) setDeck(d *deck.Deck) {
	it.deck = d
	it.clearListChoice()
}

func (it *singleDeckIterator) setListType(t deck.CardListType) {
	it.listChosen = true
	it.listType = t
	it.cardIdx = -1
}

func (it *singleDeckIterator) clearListChoice() {
	it.listChosen = false
	it.cardIdx = -1
}

func (it *singleDeckIterator) hasCurrentCard() bool {
	return it.cardIdx >= 0
}

func (it *singleDeckIterator) currentCard() *deck.Card {
	if !it.hasCurrentCard() {
		return nil
	}
	return it.deck.CardList(it.listType)[it.cardIdx]
}

// preferredListType is the bucket tried first: the deck's own override when
// set, otherwise the configured card list order. RandomListOrder flips a
// coin per deck.
func (it *singleDeckIterator) preferredListType() deck.CardListType {
	if it.deck.PreferredListType != nil {
		return *it.deck.PreferredListType
	}
	switch it.order.CardListOrder {
	case DueCardsFirst:
		return deck.DueCardList
	case RandomListOrder:
		if it.rng.Intn(2) == 0 {
			return deck.NewCardList
		}
		return deck.DueCardList
	default:
		return deck.NewCardList
	}
}

// nextCard advances within this deck, consuming the current card if any.
// Returns false once both buckets are exhausted.
func (it *singleDeckIterator) nextCard() bool {
	if !it.listChosen {
		it.preferred = it.preferredListType()
		it.setListType(it.preferred)
	}

	if !it.nextCardWithinList() {
		other, ok := deck.OtherListType(it.listType)
		if it.listType == it.preferred && ok {
			// Preferred bucket is empty, try the other one.
			it.setListType(other)
			if !it.nextCardWithinList() {
				it.clearListChoice()
			}
		} else {
			it.cardIdx = -1
		}
	}
	return it.hasCurrentCard()
}

// nextCardWithinList picks the next card in the selected bucket. Sequence
// groups override the configured pick policy twice: a group in progress is
// continued in bucket order, and a freshly picked group is rewound to its
// first member.
func (it *singleDeckIterator) nextCardWithinList() bool {
	list := it.deck.CardList(it.listType)

	currentSequenceID := ""
	nextToSequenceID := ""
	prevIdx := it.cardIdx

	if it.hasCurrentCard() {
		currentSequenceID = it.currentCard().Question.SequenceID
		if prevIdx+1 < len(list) {
			nextToSequenceID = list[prevIdx+1].Question.SequenceID
		}
		// Advancing consumes the card just visited.
		it.deck.DeleteCard(it.currentCard())
		it.cardIdx = -1
	}

	list = it.deck.CardList(it.listType)
	if len(list) == 0 {
		return false
	}

	// The element that followed the consumed card shares its sequence id:
	// it now sits at the same index, take it regardless of pick policy.
	if currentSequenceID != "" && nextToSequenceID == currentSequenceID {
		it.cardIdx = prevIdx
		return true
	}

	switch it.order.CardOrder {
	case OrderRandom:
		it.cardIdx = it.rng.Intn(len(list))
	default:
		it.cardIdx = 0
	}

	// When the pick lands inside a different sequence group, rewind to the
	// group's first member so the group plays in original order.
	nextSequenceID := list[it.cardIdx].Question.SequenceID
	enteringNewGroup := (currentSequenceID == "" && nextSequenceID != "") ||
		(currentSequenceID != "" && nextSequenceID != "" && currentSequenceID != nextSequenceID)
	if enteringNewGroup {
		for it.cardIdx > 0 && list[it.cardIdx-1].Question.SequenceID == nextSequenceID {
			it.cardIdx--
		}
	}
	return true
}

func (it *singleDeckIterator) ensureCurrentCard() error {
	if !it.listChosen || it.cardIdx < 0 {
		return ErrNoCurrentCard
	}
	return nil
}

func (it *singleDeckIterator) deleteCurrentCard() error {
	if err := it.ensureCurrentCard(); err != nil {
		return err
	}
	it.deck.DeleteCard(it.currentCard())
	it.cardIdx = -1
	return nil
}

// deleteCurrentQuestion removes every card of the current question from both
// buckets: a question's cards may be split across new and due.
func (it *singleDeckIterator) deleteCurrentQuestion() error {
	if err := it.ensureCurrentCard(); err != nil {
		return err
	}
	q := it.currentCard().Question
	it.deleteQuestionFromList(q, deck.NewCardList)
	it.deleteQuestionFromList(q, deck.DueCardList)
	it.cardIdx = -1
	return nil
}

func (it *singleDeckIterator) deleteQuestionFromList(q *deck.Question, t deck.CardListType) {
	cards := it.deck.CardList(t)
	for i := len(cards) - 1; i >= 0; i-- {
		if cards[i].Question == q {
			it.deck.DeleteCardAtIndex(i, t)
		}
	}
}

// burySiblings removes the swapped sibling of a reversed-type current card
// from wherever it resides in the deck, so answering one side does not
// immediately re-ask the other. A no-op without a current card or for
// non-reversed questions.
func (it *singleDeckIterator) burySiblings() {
	if !it.hasCurrentCard() {
		return
	}
	current := it.currentCard()
	if !current.Question.Type.IsReversed() {
		return
	}
	for _, sibling := range current.Question.Cards {
		if sibling != current {
			it.deck.DeleteCard(sibling)
		}
	}
	// A sibling earlier in the same bucket shifts positions; re-anchor the
	// cached index on the current card's identity.
	for i, c := range it.deck.CardList(it.listType) {
		if c == current {
			it.cardIdx = i
			break
		}
	}
}

// moveCurrentCardToEndOfList re-files the current card at the end of the
// deck's bucket (root path append), so it is next seen only after everything
// else in this pass.
func (it *singleDeckIterator) moveCurrentCardToEndOfList() error {
	if err := it.ensureCurrentCard(); err != nil {
		return err
	}
	card := it.currentCard()
	it.deck.DeleteCardAtIndex(it.cardIdx, it.listType)
	it.deck.AppendCard(deck.EmptyPath(), card)
	it.cardIdx = -1
	return nil
}

// DeckTreeIterator produces a linear sequence of cards over a deck tree,
// visiting decks in pre-order and supporting deletion and insertion during
// traversal. Not safe for concurrent use; one owner at a time.
type DeckTreeIterator struct {
	tree    *deck.Deck
	source  DeckSource
	single  singleDeckIterator
	pending []*deck.Deck
}

// NewDeckTreeIterator builds an iterator. The deck source is a required,
// explicit choice so a caller can never accidentally mutate a tree it still
// needs. The random source drives the Random order methods; pass a seeded
// generator for deterministic traversal.
func NewDeckTreeIterator(order IteratorOrder, source DeckSource, rng *rand.Rand) *DeckTreeIterator {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &DeckTreeIterator{
		source: source,
		single: singleDeckIterator{order: order, rng: rng},
	}
}

// SetTree attaches the iterator to a tree and positions it before the first
// card; call NextCard to select one. The pre-order deck sequence is
// flattened once here.
func (it *DeckTreeIterator) SetTree(tree *deck.Deck) {
	if it.source == CloneBeforeUse {
		tree = tree.Clone()
	}
	it.tree = tree
	it.pending = tree.Flatten()
	it.single.setDeck(it.nextDeck())
}

// HasCurrentCard reports whether a card is currently selected.
func (it *DeckTreeIterator) HasCurrentCard() bool {
	return it.single.hasCurrentCard()
}

// CurrentCard returns the selected card, or nil when none is selected.
func (it *DeckTreeIterator) CurrentCard() *deck.Card {
	return it.single.currentCard()
}

// CurrentDeck returns the deck currently being traversed.
func (it *DeckTreeIterator) CurrentDeck() *deck.Deck {
	return it.single.deck
}

func (it *DeckTreeIterator) nextDeck() *deck.Deck {
	if len(it.pending) == 0 {
		return nil
	}
	d := it.pending[0]
	it.pending = it.pending[1:]
	return d
}

// NextCard moves to the next available card, rolling over to the next
// pending deck whenever the current one is exhausted. Returns false when the
// whole tree is exhausted, at which point no card is selected.
func (it *DeckTreeIterator) NextCard() bool {
	current := it.single.deck
	if current == nil && len(it.pending) > 0 {
		current = it.nextDeck()
		it.single.setDeck(current)
	}

	for current != nil {
		if it.single.nextCard() {
			return true
		}
		current = it.nextDeck()
		if current != nil {
			it.single.setDeck(current)
		}
	}
	return false
}

// DeleteCurrentCardAndAdvance removes the current card and moves on.
func (it *DeckTreeIterator) DeleteCurrentCardAndAdvance() (bool, error) {
	if err := it.single.deleteCurrentCard(); err != nil {
		return false, err
	}
	return it.NextCard(), nil
}

// DeleteCurrentQuestionAndAdvance removes every card of the current question
// and moves on.
func (it *DeckTreeIterator) DeleteCurrentQuestionAndAdvance() (bool, error) {
	if err := it.single.deleteCurrentQuestion(); err != nil {
		return false, err
	}
	return it.NextCard(), nil
}

// BurySiblings removes the current question's reversed sibling from the deck.
func (it *DeckTreeIterator) BurySiblings() {
	it.single.burySiblings()
}

// MoveCurrentCardToEndOfList re-files the current card at the end of the
// bucket; "current" becomes unset until the next advance.
func (it *DeckTreeIterator) MoveCurrentCardToEndOfList() error {
	return it.single.moveCurrentCardToEndOfList()
}

// AddFollowUpDeck interrupts traversal with an injected deck: the current
// card (just answered) is deleted, the active deck is pushed back onto the
// pending queue so its remaining cards are still visited, and the injected
// deck becomes active. Cards matching the injected deck's front/back text
// are scrubbed from the deck named by the topic path's last segment, to
// avoid presenting duplicates.
func (it *DeckTreeIterator) AddFollowUpDeck(followUp *deck.Deck, topic deck.TopicPath) error {
	if err := it.single.deleteCurrentCard(); err != nil {
		return fmt.Errorf("adding follow-up deck: %w", err)
	}
	it.pending = append([]*deck.Deck{it.single.deck}, it.pending...)
	it.single.setDeck(followUp)

	var target *deck.Deck
	for _, d := range it.pending {
		if d.Name == topic.Last() {
			target = d
			break
		}
	}
	if target == nil {
		return nil
	}
	for _, card := range followUp.CardList(deck.AllCardList) {
		target.DeleteCardByFrontBack(card.Front, card.Back, deck.NewCardList)
		target.DeleteCardByFrontBack(card.Front, card.Back, deck.DueCardList)
	}
	return nil
}
