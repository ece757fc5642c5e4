package review

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/recall/internal/deck"
	"github.com/conorfennell/recall/internal/scheduler"
)

type fakeWriter struct {
	written []*deck.Question
	err     error
}

func (w *fakeWriter) WriteQuestion(q *deck.Question) error {
	if w.err != nil {
		return w.err
	}
	w.written = append(w.written, q)
	return nil
}

type fakeStore struct {
	buryDate string
	hashes   []string
	saves    int
}

func (s *fakeStore) SaveBuryState(buryDate string, hashes []string) error {
	s.buryDate = buryDate
	s.hashes = hashes
	s.saves++
	return nil
}

func reviewClock() time.Time {
	return time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
}

type sequencerFixture struct {
	sequencer *Sequencer
	writer    *fakeWriter
	store     *fakeStore
	tree      *deck.Deck
}

func newFixture(t *testing.T, mode Mode, bury bool, tree *deck.Deck) *sequencerFixture {
	t.Helper()
	writer := &fakeWriter{}
	store := &fakeStore{}
	calculator := scheduler.NewCalculator(scheduler.DefaultSettings(), reviewClock)
	postponements := NewPostponementList(store, reviewClock().Format(BuryDateFormat), nil)
	iterator := NewDeckTreeIterator(sequencerOrder(), UpdateInPlace, seededRand())
	sequencer := NewSequencer(mode, iterator, calculator, postponements, writer, bury)
	sequencer.SetTree(tree, tree.Clone())
	return &sequencerFixture{sequencer: sequencer, writer: writer, store: store, tree: tree}
}

func sequencerOrder() IteratorOrder {
	return IteratorOrder{
		DeckOrder:     OrderSequential,
		CardListOrder: NewCardsFirst,
		CardOrder:     OrderSequential,
	}
}

func questionWithText(text string, fronts ...string) *deck.Question {
	q := makeQuestion(deck.SingleLineBasic, "", fronts...)
	q.Text = deck.NewQuestionText(text)
	return q
}

func TestRespondGoodSchedulesAndWrites(t *testing.T) {
	tree := deck.NewRootDeck()
	q := questionWithText("Q1::A1", "Q1")
	tree.AddCards(q.Cards)
	f := newFixture(t, ReviewMode, false, tree)

	require.True(t, f.sequencer.HasCurrentCard())
	card := f.sequencer.CurrentCard()

	require.NoError(t, f.sequencer.Respond(scheduler.Good))

	require.True(t, card.HasSchedule())
	assert.Equal(t, 1, card.Schedule.Interval)
	assert.Equal(t, 250, card.Schedule.Ease)
	require.Len(t, f.writer.written, 1)
	assert.Same(t, q, f.writer.written[0])
	assert.True(t, q.HasChanged)
	assert.False(t, f.sequencer.HasCurrentCard())
}

func TestRespondResetMovesCardToEnd(t *testing.T) {
	tree := deck.NewRootDeck()
	seen := questionWithText("Q1::A1 <!--SR:!2024-01-01,20,200-->", "Q1")
	seen.Cards[0].Schedule = &scheduler.ScheduleInfo{
		DueDate:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval: 20,
		Ease:     200,
	}
	other := questionWithText("Q2::A2 <!--SR:!2024-01-02,5,230-->", "Q2")
	other.Cards[0].Schedule = &scheduler.ScheduleInfo{
		DueDate:  time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Interval: 5,
		Ease:     230,
	}
	tree.AddCards(seen.Cards)
	tree.AddCards(other.Cards)
	f := newFixture(t, ReviewMode, false, tree)

	require.Equal(t, "Q1", f.sequencer.CurrentCard().Front)
	card := f.sequencer.CurrentCard()

	require.NoError(t, f.sequencer.Respond(scheduler.Reset))

	// Back to the new-card baseline.
	assert.Equal(t, 1, card.Schedule.Interval)
	assert.Equal(t, 250, card.Schedule.Ease)
	require.Len(t, f.writer.written, 1)

	// The reset card comes back later in the same pass.
	require.Equal(t, "Q2", f.sequencer.CurrentCard().Front)
	require.NoError(t, f.sequencer.Respond(scheduler.Good))
	require.Len(t, f.writer.written, 2)
	assert.Equal(t, "Q1", f.sequencer.CurrentCard().Front)
}

func TestRespondBuriesSiblingsOfMultiCardQuestion(t *testing.T) {
	tree := deck.NewRootDeck()
	reversed := makeQuestion(deck.SingleLineReversed, "", "side a", "side b")
	reversed.Text = deck.NewQuestionText("side a:::side b")
	single := questionWithText("Q2::A2", "Q2")
	tree.AddCards(reversed.Cards)
	tree.AddCards(single.Cards)
	f := newFixture(t, ReviewMode, true, tree)

	require.Equal(t, "side a", f.sequencer.CurrentCard().Front)
	require.NoError(t, f.sequencer.Respond(scheduler.Good))

	// The sibling never comes up; the question is postponed for today.
	assert.True(t, f.sequencer.postponementList.Includes(reversed))
	assert.Equal(t, 1, f.store.saves)
	require.Len(t, f.store.hashes, 1)
	assert.Equal(t, "Q2", f.sequencer.CurrentCard().Front)

	require.NoError(t, f.sequencer.Respond(scheduler.Good))
	// Single-card questions are not postponed.
	assert.False(t, f.sequencer.postponementList.Includes(single))
	assert.False(t, f.sequencer.HasCurrentCard())
}

func TestRespondWriterFailureKeepsCardCurrent(t *testing.T) {
	tree := deck.NewRootDeck()
	q := questionWithText("Q1::A1", "Q1")
	tree.AddCards(q.Cards)
	f := newFixture(t, ReviewMode, false, tree)
	f.writer.err = errors.New("disk full")

	card := f.sequencer.CurrentCard()
	err := f.sequencer.Respond(scheduler.Good)
	require.Error(t, err)
	assert.ErrorIs(t, err, f.writer.err)

	// The card is still current so the caller can retry.
	assert.Same(t, card, f.sequencer.CurrentCard())
}

func TestRespondWithoutCurrentCard(t *testing.T) {
	f := newFixture(t, ReviewMode, false, deck.NewRootDeck())
	assert.ErrorIs(t, f.sequencer.Respond(scheduler.Good), ErrNoCurrentCard)
}

func TestCramEasyDropsCardWithoutWriting(t *testing.T) {
	tree := deck.NewRootDeck()
	q := questionWithText("Q1::A1", "Q1")
	other := questionWithText("Q2::A2", "Q2")
	tree.AddCards(q.Cards)
	tree.AddCards(other.Cards)
	f := newFixture(t, CramMode, false, tree)

	card := f.sequencer.CurrentCard()
	require.NoError(t, f.sequencer.Respond(scheduler.Easy))

	assert.Nil(t, card.Schedule)
	assert.Empty(t, f.writer.written)
	assert.Equal(t, "Q2", f.sequencer.CurrentCard().Front)
}

func TestCramNonEasyRequeuesCard(t *testing.T) {
	tree := deck.NewRootDeck()
	tree.AddCards(questionWithText("Q1::A1", "Q1").Cards)
	tree.AddCards(questionWithText("Q2::A2", "Q2").Cards)
	f := newFixture(t, CramMode, false, tree)

	require.Equal(t, "Q1", f.sequencer.CurrentCard().Front)
	require.NoError(t, f.sequencer.Respond(scheduler.Good))
	assert.Equal(t, "Q2", f.sequencer.CurrentCard().Front)
	require.NoError(t, f.sequencer.Respond(scheduler.Easy))
	// Q1 comes around again.
	assert.Equal(t, "Q1", f.sequencer.CurrentCard().Front)
	assert.Empty(t, f.writer.written)
}

func TestSkipRemovesWholeQuestion(t *testing.T) {
	tree := deck.NewRootDeck()
	reversed := makeQuestion(deck.SingleLineReversed, "", "side a", "side b")
	reversed.Text = deck.NewQuestionText("side a:::side b")
	tree.AddCards(reversed.Cards)
	tree.AddCards(questionWithText("Q2::A2", "Q2").Cards)
	f := newFixture(t, ReviewMode, false, tree)

	require.Equal(t, "side a", f.sequencer.CurrentCard().Front)
	require.NoError(t, f.sequencer.Skip())
	assert.Equal(t, "Q2", f.sequencer.CurrentCard().Front)
	assert.Empty(t, f.writer.written)
}

func TestStats(t *testing.T) {
	tree := deck.NewRootDeck()
	g := tree.GetOrCreateDeck(mustTopic(t, "go"))
	g.AddCards(questionWithText("Q1::A1", "Q1").Cards)
	g.AddCards([]*deck.Card{dueSingleCard("Q2")})
	f := newFixture(t, ReviewMode, false, tree)

	stats, err := f.sequencer.Stats(mustTopic(t, "go"))
	require.NoError(t, err)
	assert.Equal(t, DeckStats{DueCount: 1, NewCount: 1, TotalCount: 2}, stats)

	_, err = f.sequencer.Stats(mustTopic(t, "missing"))
	assert.ErrorIs(t, err, ErrUnknownDeck)
}

func TestSetCurrentDeckUnknown(t *testing.T) {
	f := newFixture(t, ReviewMode, false, deck.NewRootDeck())
	assert.ErrorIs(t, f.sequencer.SetCurrentDeck(mustTopic(t, "nope")), ErrUnknownDeck)
}
