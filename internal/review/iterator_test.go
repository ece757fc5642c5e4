package review

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/recall/internal/deck"
	"github.com/conorfennell/recall/internal/scheduler"
)

func sequentialOrder() IteratorOrder {
	return IteratorOrder{
		DeckOrder:     OrderSequential,
		CardListOrder: NewCardsFirst,
		CardOrder:     OrderSequential,
	}
}

func seededRand() *rand.Rand {
	return rand.New(rand.NewSource(0))
}

// makeQuestion builds a question with one card per front, all sharing the
// given sequence id.
func makeQuestion(cardType deck.CardType, sequenceID string, fronts ...string) *deck.Question {
	q := &deck.Question{Type: cardType, SequenceID: sequenceID}
	cards := make([]*deck.Card, 0, len(fronts))
	for i, front := range fronts {
		cards = append(cards, &deck.Card{CardIdx: i, Front: front, Back: front + " back"})
	}
	q.SetCardList(cards)
	return q
}

func singleCard(front string) *deck.Card {
	return makeQuestion(deck.SingleLineBasic, "", front).Cards[0]
}

func dueSingleCard(front string) *deck.Card {
	c := singleCard(front)
	c.Schedule = &scheduler.ScheduleInfo{
		DueDate:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval: 3,
		Ease:     250,
	}
	return c
}

func collectFronts(it *DeckTreeIterator) []string {
	var fronts []string
	for it.NextCard() {
		fronts = append(fronts, it.CurrentCard().Front)
	}
	return fronts
}

func TestIteratorVisitsDecksInPreOrder(t *testing.T) {
	root := deck.NewRootDeck()
	root.AddCards([]*deck.Card{singleCard("r1")})
	a := root.GetOrCreateDeck(mustTopic(t, "a"))
	a.AddCards([]*deck.Card{singleCard("a1"), singleCard("a2")})
	a1 := root.GetOrCreateDeck(mustTopic(t, "a", "sub"))
	a1.AddCards([]*deck.Card{singleCard("s1")})
	b := root.GetOrCreateDeck(mustTopic(t, "b"))
	b.AddCards([]*deck.Card{singleCard("b1")})

	it := NewDeckTreeIterator(sequentialOrder(), UpdateInPlace, seededRand())
	it.SetTree(root)

	assert.Equal(t, []string{"r1", "a1", "a2", "s1", "b1"}, collectFronts(it))
	assert.False(t, it.HasCurrentCard())
	assert.Equal(t, 0, root.CardCount(deck.AllCardList, true))
}

func TestIteratorDueCardsFirst(t *testing.T) {
	root := deck.NewRootDeck()
	root.AddCards([]*deck.Card{singleCard("n1"), dueSingleCard("d1")})

	order := sequentialOrder()
	order.CardListOrder = DueCardsFirst
	it := NewDeckTreeIterator(order, UpdateInPlace, seededRand())
	it.SetTree(root)

	assert.Equal(t, []string{"d1", "n1"}, collectFronts(it))
}

func TestIteratorDeckPreferenceOverridesConfig(t *testing.T) {
	root := deck.NewRootDeck()
	root.AddCards([]*deck.Card{singleCard("n1"), dueSingleCard("d1")})
	preferred := deck.NewCardList
	root.PreferredListType = &preferred

	order := sequentialOrder()
	order.CardListOrder = DueCardsFirst
	it := NewDeckTreeIterator(order, UpdateInPlace, seededRand())
	it.SetTree(root)

	assert.Equal(t, []string{"n1", "d1"}, collectFronts(it))
}

func TestIteratorSequenceGroupPlaysContiguously(t *testing.T) {
	root := deck.NewRootDeck()
	root.AddCards([]*deck.Card{singleCard("x")})
	grouped := makeQuestion(deck.SingleLineBasic, "seq-1", "g1")
	grouped2 := &deck.Question{Type: deck.SingleLineBasic, SequenceID: "seq-1"}
	grouped2.SetCardList([]*deck.Card{{Front: "g2", Back: "g2 back"}})
	root.AddCards(grouped.Cards)
	root.AddCards(grouped2.Cards)
	root.AddCards([]*deck.Card{singleCard("y"), singleCard("z")})

	// Random pick order: wherever the walk enters the group, the group must
	// play in document order without interruption.
	order := sequentialOrder()
	order.CardOrder = OrderRandom
	it := NewDeckTreeIterator(order, UpdateInPlace, seededRand())
	it.SetTree(root)

	fronts := collectFronts(it)
	require.Len(t, fronts, 5)
	g1 := indexOf(fronts, "g1")
	g2 := indexOf(fronts, "g2")
	require.GreaterOrEqual(t, g1, 0)
	assert.Equal(t, g1+1, g2, "sequence group interrupted: %v", fronts)
}

func TestIteratorDeleteCurrentQuestionRemovesAllItsCards(t *testing.T) {
	root := deck.NewRootDeck()
	q := makeQuestion(deck.SingleLineReversed, "", "front", "back")
	// Split the question across buckets.
	q.Cards[1].Schedule = &scheduler.ScheduleInfo{
		DueDate:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval: 3,
		Ease:     250,
	}
	root.AddCards(q.Cards)
	root.AddCards([]*deck.Card{singleCard("other")})

	it := NewDeckTreeIterator(sequentialOrder(), UpdateInPlace, seededRand())
	it.SetTree(root)
	require.True(t, it.NextCard())
	require.Equal(t, "front", it.CurrentCard().Front)

	ok, err := it.DeleteCurrentQuestionAndAdvance()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "other", it.CurrentCard().Front)
	assert.Zero(t, root.QuestionCardCount(q))
}

func TestIteratorDeleteWithoutCurrentCardFails(t *testing.T) {
	it := NewDeckTreeIterator(sequentialOrder(), UpdateInPlace, seededRand())
	it.SetTree(deck.NewRootDeck())

	_, err := it.DeleteCurrentCardAndAdvance()
	assert.ErrorIs(t, err, ErrNoCurrentCard)

	_, err = it.DeleteCurrentQuestionAndAdvance()
	assert.ErrorIs(t, err, ErrNoCurrentCard)

	assert.ErrorIs(t, it.MoveCurrentCardToEndOfList(), ErrNoCurrentCard)
}

func TestIteratorBurySiblings(t *testing.T) {
	root := deck.NewRootDeck()
	reversed := makeQuestion(deck.SingleLineReversed, "", "side a", "side b")
	root.AddCards(reversed.Cards)
	root.AddCards([]*deck.Card{singleCard("other")})

	it := NewDeckTreeIterator(sequentialOrder(), UpdateInPlace, seededRand())
	it.SetTree(root)
	require.True(t, it.NextCard())
	require.Equal(t, "side a", it.CurrentCard().Front)

	it.BurySiblings()
	// The current card survives, its sibling is gone.
	assert.Equal(t, "side a", it.CurrentCard().Front)
	assert.Equal(t, 1, root.QuestionCardCount(reversed))

	require.True(t, it.NextCard())
	assert.Equal(t, "other", it.CurrentCard().Front)
	assert.False(t, it.NextCard())
}

func TestIteratorBurySiblingsIgnoresBasicCards(t *testing.T) {
	root := deck.NewRootDeck()
	cloze := makeQuestion(deck.Cloze, "", "c1", "c2")
	root.AddCards(cloze.Cards)

	it := NewDeckTreeIterator(sequentialOrder(), UpdateInPlace, seededRand())
	it.SetTree(root)
	require.True(t, it.NextCard())

	it.BurySiblings()
	assert.Equal(t, 2, root.QuestionCardCount(cloze))
}

func TestIteratorMoveCurrentCardToEndOfList(t *testing.T) {
	root := deck.NewRootDeck()
	root.AddCards([]*deck.Card{singleCard("first"), singleCard("second")})

	it := NewDeckTreeIterator(sequentialOrder(), UpdateInPlace, seededRand())
	it.SetTree(root)
	require.True(t, it.NextCard())
	require.Equal(t, "first", it.CurrentCard().Front)

	require.NoError(t, it.MoveCurrentCardToEndOfList())
	assert.False(t, it.HasCurrentCard())

	assert.Equal(t, []string{"second", "first"}, collectFronts(it))
}

func TestIteratorCloneBeforeUseLeavesTreeIntact(t *testing.T) {
	root := deck.NewRootDeck()
	root.AddCards([]*deck.Card{singleCard("c1"), singleCard("c2")})

	it := NewDeckTreeIterator(sequentialOrder(), CloneBeforeUse, seededRand())
	it.SetTree(root)

	assert.Len(t, collectFronts(it), 2)
	assert.Equal(t, 2, root.CardCount(deck.AllCardList, true))
}

func TestIteratorAddFollowUpDeck(t *testing.T) {
	root := deck.NewRootDeck()
	g := root.GetOrCreateDeck(mustTopic(t, "go"))
	g.AddCards([]*deck.Card{singleCard("answered"), singleCard("shared")})

	followUp := deck.NewDeck("followup", nil)
	followUp.AddCards([]*deck.Card{singleCard("extra"), singleCard("shared")})

	it := NewDeckTreeIterator(sequentialOrder(), UpdateInPlace, seededRand())
	it.SetTree(root)
	require.True(t, it.NextCard())
	require.Equal(t, "answered", it.CurrentCard().Front)

	topic := mustTopic(t, "go")
	require.NoError(t, it.AddFollowUpDeck(followUp, topic))

	// The follow-up deck plays next; the duplicate in "go" was scrubbed.
	assert.Equal(t, []string{"extra", "shared"}, collectFronts(it))
}

func mustTopic(t *testing.T, segments ...string) deck.TopicPath {
	t.Helper()
	p, err := deck.NewTopicPath(segments...)
	require.NoError(t, err)
	return p
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
