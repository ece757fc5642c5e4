package scheduler

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Schedule comments are HTML comments appended to a question's text, one
// "!date,interval,ease" entry per card in card order:
//
//	What is the capital of France?::Paris <!--SR:!2023-10-16,34,290-->
//
// The round trip (parse -> compute -> format) must be lossless for every
// card of a multi-card question.
const (
	CommentBegin = "<!--SR:"
	CommentEnd   = "-->"
)

var (
	commentRegex  = regexp.MustCompile(`<!--SR:[^>]*-->`)
	scheduleRegex = regexp.MustCompile(`!(\d{4}-\d{2}-\d{2}),(\d+),(\d+)`)
)

// FormatComment renders the full schedule comment for a card list.
// Every entry must already be a valid schedule (use DummySchedule for
// unreviewed cards to keep positions aligned).
func FormatComment(schedules []ScheduleInfo) string {
	var b strings.Builder
	b.WriteString(CommentBegin)
	for _, s := range schedules {
		b.WriteString(s.Format())
	}
	b.WriteString(CommentEnd)
	return b.String()
}

// ParseComment extracts every schedule entry embedded in the text, in order.
// Malformed entries are skipped; dummy placeholders are returned as-is so the
// caller can decide how to treat them.
func ParseComment(text string) []ScheduleInfo {
	var result []ScheduleInfo
	for _, m := range scheduleRegex.FindAllStringSubmatch(text, -1) {
		due, err := time.Parse(DueDateFormat, m[1])
		if err != nil {
			continue
		}
		interval, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		ease, err := strconv.Atoi(m[3])
		if err != nil {
			continue
		}
		result = append(result, ScheduleInfo{DueDate: due, Interval: interval, Ease: ease})
	}
	return result
}

// RemoveComment strips all schedule comments from the text.
func RemoveComment(text string) string {
	return commentRegex.ReplaceAllString(text, "")
}

// HasComment reports whether the text carries a schedule comment.
func HasComment(text string) bool {
	return commentRegex.MatchString(text)
}
