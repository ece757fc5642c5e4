// Package parser extracts flashcard records from markdown documents.
// It recognizes single-line, multi-line, and cloze card syntax, topic tag
// lines, @start/@end sequence blocks, and fenced code blocks, and emits
// one record per card unit without interpreting schedule comments beyond
// keeping them attached to their card text.
package parser

import (
	"math/rand"
	"os"
	"regexp"
	"strings"

	"github.com/conorfennell/recall/internal/deck"
	"github.com/conorfennell/recall/internal/scheduler"
)

// Options configures the card syntax the parser recognizes.
type Options struct {
	SingleLineSeparator         string
	SingleLineReversedSeparator string
	MultiLineSeparator          string
	MultiLineReversedSeparator  string

	HighlightClozes bool
	BoldClozes      bool
	CurlyClozes     bool

	// Tags lists the deck tags recognized as topic markers on their own
	// line, e.g. "#flashcards". Empty disables tag-line detection.
	Tags []string

	// NewSequenceID mints an identifier when an @start block opens.
	// Nil selects a random identifier.
	NewSequenceID func() string
}

// DefaultOptions returns the stock separators and cloze patterns.
func DefaultOptions() Options {
	return Options{
		SingleLineSeparator:         "::",
		SingleLineReversedSeparator: ":::",
		MultiLineSeparator:          "?",
		MultiLineReversedSeparator:  "??",
		HighlightClozes:             true,
		BoldClozes:                  true,
		CurlyClozes:                 true,
	}
}

var (
	headingRegex   = regexp.MustCompile(`^#{1,6}\s+(.+)$`)
	blockRegex     = regexp.MustCompile(`@start|@end`)
	fenceRegex     = regexp.MustCompile("`+|~+")
	highlightRegex = regexp.MustCompile(`==.+?==`)
	boldRegex      = regexp.MustCompile(`\*\*.+?\*\*`)
	curlyRegex     = regexp.MustCompile(`{{.+?}}`)
)

const sequenceIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomSequenceID() string {
	b := make([]byte, 8)
	for i := range b {
		b[i] = sequenceIDAlphabet[rand.Intn(len(sequenceIDAlphabet))]
	}
	return string(b)
}

// ParseFile reads a markdown file and extracts all card records.
func ParseFile(path string, opts Options) ([]deck.QuestionRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(data), opts), nil
}

// Parse extracts card records from markdown text. Records keep their raw
// text (schedule comment included) so they can be located in the document
// later; line numbers are zero-based.
func Parse(text string, opts Options) []deck.QuestionRecord {
	newID := opts.NewSequenceID
	if newID == nil {
		newID = randomSequenceID
	}
	tagRegex := compileTagRegex(opts.Tags)

	var (
		records    []deck.QuestionRecord
		cardText   string
		cardType   deck.CardType
		pending    bool
		lineNo     int
		currentTag string
		sequenceID string
		headings   []string
	)

	emit := func(t deck.CardType, text string, line int) {
		rec := deck.QuestionRecord{
			Type:       t,
			Text:       text,
			LineNumber: line,
			Tag:        currentTag,
			SequenceID: sequenceID,
		}
		if len(headings) > 0 {
			rec.Headings = append([]string(nil), headings...)
		}
		records = append(records, rec)
	}

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if m := headingRegex.FindStringSubmatch(line); m != nil {
			headings = append(headings, strings.TrimSpace(m[1]))
		}

		if len(line) == 0 {
			if pending {
				emit(cardType, cardText, lineNo)
				pending = false
			}
			cardText = ""
			continue
		}

		switch {
		case isTagLine(line, tagRegex, nextLine(lines, i), opts):
			currentTag = tagRegex.FindStringSubmatch(line)[1]
			// A new topic invalidates the headings gathered under the old one.
			headings = headings[:0]
		case blockRegex.MatchString(line):
			if strings.HasPrefix(line, "@start") {
				sequenceID = newID()
			} else {
				sequenceID = ""
			}
		case strings.HasPrefix(line, "<!--") && !strings.HasPrefix(line, scheduler.CommentBegin):
			// Skip non-schedule HTML comments entirely.
			for i < len(lines) && !strings.Contains(lines[i], "-->") {
				i++
			}
			continue
		}

		if len(cardText) > 0 {
			cardText += "\n"
		}
		cardText += strings.TrimRight(line, " \t")

		switch {
		case strings.Contains(line, opts.SingleLineReversedSeparator) ||
			strings.Contains(line, opts.SingleLineSeparator):
			t := deck.SingleLineBasic
			if strings.Contains(line, opts.SingleLineReversedSeparator) {
				t = deck.SingleLineReversed
			}
			cardText = line
			lineNo = i
			// A schedule comment on the following line belongs to this card.
			if i+1 < len(lines) && strings.HasPrefix(lines[i+1], scheduler.CommentBegin) {
				cardText += "\n" + lines[i+1]
				i++
			}
			emit(t, cardText, lineNo)
			pending = false
			cardText = ""
		case !pending && isClozeLine(line, opts):
			cardType = deck.Cloze
			pending = true
			lineNo = i
		case strings.TrimSpace(line) == opts.MultiLineSeparator:
			cardType = deck.MultiLineBasic
			pending = true
			lineNo = i
		case strings.TrimSpace(line) == opts.MultiLineReversedSeparator:
			cardType = deck.MultiLineReversed
			pending = true
			lineNo = i
		case strings.HasPrefix(line, "```") || strings.HasPrefix(line, "~~~"):
			fence := fenceRegex.FindString(line)
			for i+1 < len(lines) && !strings.HasPrefix(lines[i+1], fence) {
				i++
				cardText += "\n" + lines[i]
			}
			cardText += "\n" + fence
			i++
		}
	}

	if pending && cardText != "" {
		emit(cardType, cardText, lineNo)
	}
	return records
}

// compileTagRegex builds a matcher for the configured deck tags, or nil when
// tag detection is disabled.
func compileTagRegex(tags []string) *regexp.Regexp {
	if len(tags) == 0 {
		return nil
	}
	quoted := make([]string, len(tags))
	for i, tag := range tags {
		quoted[i] = regexp.QuoteMeta(tag)
	}
	// The capture includes any subtag path, e.g. "#flashcards/go/slices".
	return regexp.MustCompile(`((?:` + strings.Join(quoted, "|") + `)\b(?:/[^\s#]+)?)`)
}

// isTagLine reports whether the line declares a topic tag. Lines containing
// a card separator are never tag lines, and a tag immediately followed by a
// multi-line separator is the front of a card, not a topic marker.
func isTagLine(line string, tagRegex *regexp.Regexp, next string, opts Options) bool {
	if tagRegex == nil || !tagRegex.MatchString(line) {
		return false
	}
	if strings.Contains(line, opts.SingleLineSeparator) {
		return false
	}
	trimmed := strings.TrimSpace(next)
	return trimmed != opts.MultiLineSeparator && trimmed != opts.MultiLineReversedSeparator
}

func nextLine(lines []string, i int) string {
	if i+1 < len(lines) {
		return lines[i+1]
	}
	return ""
}

func isClozeLine(line string, opts Options) bool {
	return (opts.HighlightClozes && highlightRegex.MatchString(line)) ||
		(opts.BoldClozes && boldRegex.MatchString(line)) ||
		(opts.CurlyClozes && curlyRegex.MatchString(line))
}
