package deck

import "time"

// SourceFile is the engine's narrow view of one flashcard document. The
// engine only reads and writes whole documents; parsing and storage details
// belong to the collaborators behind this interface.
type SourceFile interface {
	Path() string
	Read() (string, error)
	Write(text string) error
}

// Note is one source document and the questions parsed out of it.
type Note struct {
	File      SourceFile
	Questions []*Question
}

// NewNote attaches the questions to the note.
func NewNote(file SourceFile, questions []*Question) *Note {
	n := &Note{File: file, Questions: questions}
	for _, q := range questions {
		q.Note = n
	}
	return n
}

// FilePath returns the note's document path.
func (n *Note) FilePath() string {
	if n.File == nil {
		return ""
	}
	return n.File.Path()
}

// HasChanged reports whether any question needs flushing to the document.
func (n *Note) HasChanged() bool {
	for _, q := range n.Questions {
		if q.HasChanged {
			return true
		}
	}
	return false
}

// AppendCardsToDeck files every card of every question into the tree under
// the question's topic path.
func (n *Note) AppendCardsToDeck(root *Deck) {
	for _, q := range n.Questions {
		for _, c := range q.Cards {
			root.AppendCard(q.Topic, c)
		}
	}
}

// AllCards returns the note's cards. With reviewableOnly set, cards that are
// neither new nor due are filtered out.
func (n *Note) AllCards(reviewableOnly bool, now time.Time) []*Card {
	var result []*Card
	for _, q := range n.Questions {
		for _, c := range q.Cards {
			if !reviewableOnly || c.IsNew() || c.IsDue(now) {
				result = append(result, c)
			}
		}
	}
	return result
}

// ScheduledEases collects the ease of every scheduled card in the note,
// feeding the note-ease aggregation.
func (n *Note) ScheduledEases() []int {
	var eases []int
	for _, q := range n.Questions {
		for _, c := range q.Cards {
			if c.HasSchedule() {
				eases = append(eases, c.Schedule.Ease)
			}
		}
	}
	return eases
}
