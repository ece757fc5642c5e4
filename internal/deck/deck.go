package deck

import (
	"fmt"
	"sort"
	"strings"
)

// RootDeckName is the name of a tree's root node.
const RootDeckName = "root"

// Deck is a named node in the topic hierarchy. It holds two independent card
// buckets whose insertion order encodes document order, plus child decks.
// Children are only ever created under their parent (GetOrCreateDeck), so a
// tree is acyclic by construction. A deck tree lives for one sync cycle and
// is rebuilt from source documents on the next.
type Deck struct {
	Name     string
	Parent   *Deck
	Children []*Deck

	NewCards []*Card
	DueCards []*Card

	// PreferredListType overrides the iterator's configured starting bucket
	// for this deck. Nil means no preference.
	PreferredListType *CardListType
}

// NewDeck creates a deck under the given parent (nil for a root).
func NewDeck(name string, parent *Deck) *Deck {
	return &Deck{Name: name, Parent: parent}
}

// NewRootDeck creates an empty tree.
func NewRootDeck() *Deck {
	return NewDeck(RootDeckName, nil)
}

// IsRoot reports whether the deck has no parent.
func (d *Deck) IsRoot() bool {
	return d.Parent == nil
}

// TopicPath returns the deck's position in the tree: the concatenation of
// ancestor names from the root (which itself contributes nothing).
func (d *Deck) TopicPath() TopicPath {
	var names []string
	for cur := d; !cur.IsRoot(); cur = cur.Parent {
		names = append(names, cur.Name)
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	path, _ := NewTopicPath(names...)
	return path
}

// Root walks up to the tree's root deck.
func (d *Deck) Root() *Deck {
	cur := d
	for !cur.IsRoot() {
		cur = cur.Parent
	}
	return cur
}

// Lookup finds the descendant deck at the given path without creating it.
func (d *Deck) Lookup(path TopicPath) (*Deck, bool) {
	if path.IsEmpty() {
		return d, true
	}
	head, rest, err := path.Shift()
	if err != nil {
		return nil, false
	}
	for _, child := range d.Children {
		if child.Name == head {
			return child.Lookup(rest)
		}
	}
	return nil, false
}

// GetOrCreateDeck finds the descendant deck at the given path, creating any
// missing intermediate decks on the way.
func (d *Deck) GetOrCreateDeck(path TopicPath) *Deck {
	if path.IsEmpty() {
		return d
	}
	head, rest, err := path.Shift()
	if err != nil {
		return d
	}
	for _, child := range d.Children {
		if child.Name == head {
			return child.GetOrCreateDeck(rest)
		}
	}
	child := NewDeck(head, d)
	d.Children = append(d.Children, child)
	return child.GetOrCreateDeck(rest)
}

// CardList returns the bucket for the given list type. For NewCardList and
// DueCardList this is the live slice; AllCardList returns a fresh
// concatenation and must not be used for positional mutation.
func (d *Deck) CardList(t CardListType) []*Card {
	switch t {
	case NewCardList:
		return d.NewCards
	case DueCardList:
		return d.DueCards
	case AllCardList:
		all := make([]*Card, 0, len(d.NewCards)+len(d.DueCards))
		all = append(all, d.NewCards...)
		all = append(all, d.DueCards...)
		return all
	default:
		return nil
	}
}

// CardCount counts cards in the given bucket(s), optionally including all
// descendant decks.
func (d *Deck) CardCount(t CardListType, includeSubdecks bool) int {
	result := 0
	if t == NewCardList || t == AllCardList {
		result += len(d.NewCards)
	}
	if t == DueCardList || t == AllCardList {
		result += len(d.DueCards)
	}
	if includeSubdecks {
		for _, child := range d.Children {
			result += child.CardCount(t, true)
		}
	}
	return result
}

// QuestionCardCount returns how many of the question's cards are present in
// this deck, across both buckets.
func (d *Deck) QuestionCardCount(q *Question) int {
	result := 0
	for _, c := range d.NewCards {
		if c.Question == q {
			result++
		}
	}
	for _, c := range d.DueCards {
		if c.Question == q {
			result++
		}
	}
	return result
}

// AppendCard files the card into the bucket matching its schedule state, in
// the deck at the given path (created on demand).
func (d *Deck) AppendCard(path TopicPath, card *Card) {
	target := d.GetOrCreateDeck(path)
	if card.ListType() == DueCardList {
		target.DueCards = append(target.DueCards, card)
	} else {
		target.NewCards = append(target.NewCards, card)
	}
}

// AddCards files each card directly into this deck's matching bucket.
func (d *Deck) AddCards(cards []*Card) {
	for _, card := range cards {
		if card.IsNew() {
			d.NewCards = append(d.NewCards, card)
		} else {
			d.DueCards = append(d.DueCards, card)
		}
	}
}

// DeleteCard removes the card from whichever bucket holds it, matching by
// identity. Returns false when the card is not in this deck.
func (d *Deck) DeleteCard(card *Card) bool {
	for i, c := range d.NewCards {
		if c == card {
			d.NewCards = append(d.NewCards[:i], d.NewCards[i+1:]...)
			return true
		}
	}
	for i, c := range d.DueCards {
		if c == card {
			d.DueCards = append(d.DueCards[:i], d.DueCards[i+1:]...)
			return true
		}
	}
	return false
}

// DeleteCardByFrontBack removes the first card in the bucket whose front and
// back text match. Used when scrubbing duplicates after a follow-up deck is
// injected, where reference identity is unavailable.
func (d *Deck) DeleteCardByFrontBack(front, back string, t CardListType) bool {
	list := d.CardList(t)
	for _, c := range list {
		if c.Front == front && c.Back == back {
			return d.DeleteCard(c)
		}
	}
	return false
}

// DeleteCardAtIndex removes the card at the given bucket position.
// AllCardList is not a positional bucket and panics: that is a caller bug.
func (d *Deck) DeleteCardAtIndex(index int, t CardListType) {
	switch t {
	case NewCardList:
		d.NewCards = append(d.NewCards[:index], d.NewCards[index+1:]...)
	case DueCardList:
		d.DueCards = append(d.DueCards[:index], d.DueCards[index+1:]...)
	default:
		panic(fmt.Sprintf("deck: cannot delete by index from %v", t))
	}
}

// Flatten returns the deck and all descendants in pre-order: node first,
// then each child subtree in list order.
func (d *Deck) Flatten() []*Deck {
	result := []*Deck{d}
	for _, child := range d.Children {
		result = append(result, child.Flatten()...)
	}
	return result
}

// SortSubdecks orders every child list alphabetically, recursively.
func (d *Deck) SortSubdecks() {
	sort.Slice(d.Children, func(i, j int) bool {
		return d.Children[i].Name < d.Children[j].Name
	})
	for _, child := range d.Children {
		child.SortSubdecks()
	}
}

// Clone deep-copies the deck subtree. Cards are shared, not copied: a clone
// protects the tree structure and bucket membership, and card identity is
// what lookup and deletion key on.
func (d *Deck) Clone() *Deck {
	return d.CopyWithCardFilter(func(*Card) bool { return true }, nil)
}

// CopyWithCardFilter deep-copies the subtree keeping only cards the
// predicate accepts.
func (d *Deck) CopyWithCardFilter(keep func(*Card) bool, parent *Deck) *Deck {
	result := NewDeck(d.Name, parent)
	result.PreferredListType = d.PreferredListType
	for _, c := range d.NewCards {
		if keep(c) {
			result.NewCards = append(result.NewCards, c)
		}
	}
	for _, c := range d.DueCards {
		if keep(c) {
			result.DueCards = append(result.DueCards, c)
		}
	}
	for _, child := range d.Children {
		result.Children = append(result.Children, child.CopyWithCardFilter(keep, result))
	}
	return result
}

// String renders the subtree for debugging.
func (d *Deck) String() string {
	var b strings.Builder
	d.dump(&b, 0)
	return b.String()
}

func (d *Deck) dump(b *strings.Builder, indent int) {
	pad := strings.Repeat("    ", indent)
	fmt.Fprintf(b, "%s%s\n", pad, d.Name)
	for i, c := range d.NewCards {
		fmt.Fprintf(b, "%s  New: %d: %s::%s\n", pad, i, c.Front, c.Back)
	}
	for i, c := range d.DueCards {
		fmt.Fprintf(b, "%s  Due: %d: %s::%s\n", pad, i, c.Front, c.Back)
	}
	for _, child := range d.Children {
		child.dump(b, indent+1)
	}
}
