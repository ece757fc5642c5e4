package deck

import (
	"regexp"
	"strings"

	"github.com/conorfennell/recall/internal/scheduler"
)

// QuestionText splits a question's raw text into its components:
// an optional leading topic tag, the actual question, and (stripped out)
// any schedule comment. The original spacing between tag and question is
// kept so a rewrite reproduces the author's formatting.
type QuestionText struct {
	// Original is the complete text as read from the document, schedule
	// comment included.
	Original string

	// Topic is the tag embedded in the text, empty when none.
	Topic TopicPath

	// PostTopicWhitespace separated the tag from the question.
	PostTopicWhitespace string

	// ActualQuestion is the question alone, e.g. "Q1::A1".
	ActualQuestion string
}

// NewQuestionText parses raw question text into its components.
func NewQuestionText(original string) QuestionText {
	stripped := strings.TrimSpace(scheduler.RemoveComment(original))
	result := QuestionText{Original: original, ActualQuestion: stripped}
	if topic, ok := TopicPathFromCardText(stripped); ok {
		result.Topic = topic
		result.ActualQuestion, result.PostTopicWhitespace = RemoveTopicPathFromCardText(stripped)
	}
	return result
}

// EndsWithCodeBlock reports whether the question's last block is fenced code.
func (t QuestionText) EndsWithCodeBlock() bool {
	return strings.HasSuffix(t.ActualQuestion, "```")
}

// FormatForNote renders tag + question (without any schedule comment).
func (t QuestionText) FormatForNote() string {
	if t.Topic.IsEmpty() {
		return t.ActualQuestion
	}
	tag, err := t.Topic.FormatAsTag()
	if err != nil {
		return t.ActualQuestion
	}
	ws := t.PostTopicWhitespace
	if ws == "" {
		ws = " "
	}
	return tag + ws + t.ActualQuestion
}

// QuestionRecord is one flashcard unit as supplied by the question source:
// the engine consumes these records and never parses document syntax itself.
type QuestionRecord struct {
	Type       CardType
	Text       string
	LineNumber int
	Tag        string
	SequenceID string
	Headings   []string
}

// Question is one parsed flashcard unit from a document, owning the cards it
// produced. Reversed and cloze types produce more than one card.
type Question struct {
	Note       *Note
	Type       CardType
	Topic      TopicPath
	Text       QuestionText
	LineNo     int
	SequenceID string
	Context    []string
	Cards      []*Card

	// HasChanged marks that the in-memory text diverges from the source
	// document and must be flushed on the next write.
	HasChanged bool
}

// SetCardList attaches the cards to the question and back-references them.
func (q *Question) SetCardList(cards []*Card) {
	q.Cards = cards
	for _, c := range cards {
		c.Question = q
	}
}

// FormatForNote renders the full replacement text for the question: topic
// tag, question text, and the schedule comment when any card is scheduled.
// Unscheduled cards in a partially-scheduled question serialize as dummy
// placeholders so positions stay aligned.
func (q *Question) FormatForNote(commentOnSameLine bool, baseEase int) string {
	result := q.Text.FormatForNote()

	anyScheduled := false
	for _, c := range q.Cards {
		if c.HasSchedule() {
			anyScheduled = true
			break
		}
	}
	if !anyScheduled {
		return result
	}

	schedules := make([]scheduler.ScheduleInfo, 0, len(q.Cards))
	for _, c := range q.Cards {
		if c.HasSchedule() {
			schedules = append(schedules, *c.Schedule)
		} else {
			schedules = append(schedules, scheduler.DummySchedule(baseEase))
		}
	}

	sep := "\n"
	if commentOnSameLine && !q.Text.EndsWithCodeBlock() {
		sep = " "
	}
	return result + sep + scheduler.FormatComment(schedules)
}

// ExpandOptions configures how question text expands into front/back pairs.
type ExpandOptions struct {
	SingleLineSeparator         string
	SingleLineReversedSeparator string
	MultiLineSeparator          string
	MultiLineReversedSeparator  string
	HighlightClozes             bool
	BoldClozes                  bool
	CurlyClozes                 bool
}

// DefaultExpandOptions returns the stock separators and cloze patterns.
func DefaultExpandOptions() ExpandOptions {
	return ExpandOptions{
		SingleLineSeparator:         "::",
		SingleLineReversedSeparator: ":::",
		MultiLineSeparator:          "?",
		MultiLineReversedSeparator:  "??",
		HighlightClozes:             true,
		BoldClozes:                  true,
		CurlyClozes:                 true,
	}
}

// CardFrontBack is one expanded front/back pair.
type CardFrontBack struct {
	Front string
	Back  string
}

var (
	highlightClozeRegex = regexp.MustCompile(`==([^=]+?)==`)
	boldClozeRegex      = regexp.MustCompile(`\*\*([^*]+?)\*\*`)
	curlyClozeRegex     = regexp.MustCompile(`{{([^{}]+?)}}`)
)

// ExpandFrontBack turns question text into its ordered card list.
// Reversed types yield two cards (front/back swapped); clozes yield one card
// per deletion, in order of appearance.
func ExpandFrontBack(t CardType, text string, opts ExpandOptions) []CardFrontBack {
	switch t {
	case SingleLineBasic:
		front, back := splitOnce(text, opts.SingleLineSeparator)
		return []CardFrontBack{{Front: front, Back: back}}
	case SingleLineReversed:
		front, back := splitOnce(text, opts.SingleLineReversedSeparator)
		return []CardFrontBack{
			{Front: front, Back: back},
			{Front: back, Back: front},
		}
	case MultiLineBasic:
		front, back := splitOnce(text, "\n"+opts.MultiLineSeparator+"\n")
		return []CardFrontBack{{Front: front, Back: back}}
	case MultiLineReversed:
		front, back := splitOnce(text, "\n"+opts.MultiLineReversedSeparator+"\n")
		return []CardFrontBack{
			{Front: front, Back: back},
			{Front: back, Back: front},
		}
	case Cloze:
		return expandClozes(text, opts)
	default:
		return nil
	}
}

func splitOnce(text, sep string) (string, string) {
	idx := strings.Index(text, sep)
	if idx < 0 {
		return strings.TrimSpace(text), ""
	}
	return strings.TrimSpace(text[:idx]), strings.TrimSpace(text[idx+len(sep):])
}

type clozeMatch struct {
	start, end int
	answer     string
}

func expandClozes(text string, opts ExpandOptions) []CardFrontBack {
	var matches []clozeMatch
	collect := func(re *regexp.Regexp) {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			matches = append(matches, clozeMatch{start: m[0], end: m[1], answer: text[m[2]:m[3]]})
		}
	}
	if opts.HighlightClozes {
		collect(highlightClozeRegex)
	}
	if opts.BoldClozes {
		collect(boldClozeRegex)
	}
	if opts.CurlyClozes {
		collect(curlyClozeRegex)
	}
	// Document order, regardless of which pattern matched.
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j-1].start > matches[j].start; j-- {
			matches[j-1], matches[j] = matches[j], matches[j-1]
		}
	}

	var result []CardFrontBack
	for i := range matches {
		var front, back strings.Builder
		prev := 0
		for j, m := range matches {
			front.WriteString(text[prev:m.start])
			back.WriteString(text[prev:m.start])
			if j == i {
				front.WriteString("[...]")
				back.WriteString("**" + m.answer + "**")
			} else {
				front.WriteString(m.answer)
				back.WriteString(m.answer)
			}
			prev = m.end
		}
		front.WriteString(text[prev:])
		back.WriteString(text[prev:])
		result = append(result, CardFrontBack{
			Front: strings.TrimSpace(front.String()),
			Back:  strings.TrimSpace(back.String()),
		})
	}
	return result
}

// AssembleQuestion turns a question-source record into a Question with its
// card list. Schedules embedded in the record text are attached positionally;
// surplus schedule entries (e.g. after a cloze marker was deleted) are
// truncated and the question marked changed so the next write drops them.
func AssembleQuestion(rec QuestionRecord, noteTopic TopicPath, opts ExpandOptions, baseEase int) (*Question, error) {
	text := NewQuestionText(rec.Text)

	topic := noteTopic
	if text.Topic.HasPath() {
		topic = text.Topic
	} else if IsValidTag(rec.Tag) {
		p, err := TopicPathFromTag(rec.Tag)
		if err != nil {
			return nil, err
		}
		topic = p
	}

	q := &Question{
		Type:       rec.Type,
		Topic:      topic,
		Text:       text,
		LineNo:     rec.LineNumber,
		SequenceID: rec.SequenceID,
		Context:    rec.Headings,
	}

	frontBacks := ExpandFrontBack(rec.Type, text.ActualQuestion, opts)
	schedules := scheduler.ParseComment(rec.Text)
	if len(schedules) > len(frontBacks) {
		q.HasChanged = true
		schedules = schedules[:len(frontBacks)]
	}

	cards := make([]*Card, 0, len(frontBacks))
	for i, fb := range frontBacks {
		card := &Card{CardIdx: i, Front: fb.Front, Back: fb.Back}
		if i < len(schedules) && !schedules[i].IsDummy() {
			s := schedules[i]
			card.Schedule = &s
		}
		cards = append(cards, card)
	}
	q.SetCardList(cards)
	return q, nil
}
