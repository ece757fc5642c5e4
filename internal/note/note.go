// Package note persists question updates back into their markdown
// documents. The document is the single source of truth for schedules, so
// every grade ends in a find-and-replace against the question's original
// text followed by a full rewrite of the file.
package note

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/conorfennell/recall/internal/deck"
)

// DiskFile is a markdown document on the local filesystem.
type DiskFile struct {
	path string
}

// NewDiskFile returns a SourceFile backed by the file at path.
func NewDiskFile(path string) *DiskFile {
	return &DiskFile{path: path}
}

func (f *DiskFile) Path() string { return f.path }

func (f *DiskFile) Read() (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", fmt.Errorf("reading note %s: %w", f.path, err)
	}
	return string(data), nil
}

func (f *DiskFile) Write(text string) error {
	if err := os.WriteFile(f.path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("writing note %s: %w", f.path, err)
	}
	return nil
}

// Writer flushes updated questions back to their documents.
type Writer struct {
	commentOnSameLine bool
	baseEase          int
	logger            *slog.Logger
}

// NewWriter returns a writer. commentOnSameLine places the schedule comment
// on the question's last line instead of a line of its own; baseEase fills
// placeholder schedules for unscheduled cards of partially-scheduled
// questions.
func NewWriter(commentOnSameLine bool, baseEase int, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		commentOnSameLine: commentOnSameLine,
		baseEase:          baseEase,
		logger:            logger,
	}
}

// WriteQuestion rewrites the question's document with its current schedule
// state. When the question's text cannot be located in the document (the
// user edited it mid-session), the document is left untouched and the
// question keeps its changed flag; the next full sync reconciles it.
func (w *Writer) WriteQuestion(q *deck.Question) error {
	if q.Note == nil || q.Note.File == nil {
		return fmt.Errorf("question %q has no source document", q.Text.ActualQuestion)
	}
	text, err := q.Note.File.Read()
	if err != nil {
		return err
	}
	updated, found := w.updateQuestionText(q, text)
	if !found {
		w.logger.Warn("question text not found in note, skipping write",
			"path", q.Note.FilePath(), "line", q.LineNo)
		return nil
	}
	if err := q.Note.File.Write(updated); err != nil {
		return err
	}
	q.HasChanged = false
	return nil
}

// WriteNote flushes every changed question of the note in a single
// read-modify-write pass.
func (w *Writer) WriteNote(n *deck.Note) error {
	if !n.HasChanged() {
		return nil
	}
	text, err := n.File.Read()
	if err != nil {
		return err
	}
	for _, q := range n.Questions {
		if !q.HasChanged {
			continue
		}
		updated, found := w.updateQuestionText(q, text)
		if !found {
			w.logger.Warn("question text not found in note, skipping",
				"path", n.FilePath(), "line", q.LineNo)
			continue
		}
		text = updated
		q.HasChanged = false
	}
	return n.File.Write(text)
}

// updateQuestionText replaces the question's original text in the document
// with its freshly formatted form, and on success rebinds the question to
// the new text so a later write matches against it.
func (w *Writer) updateQuestionText(q *deck.Question, noteText string) (string, bool) {
	replacement := q.FormatForNote(w.commentOnSameLine, w.baseEase)
	updated, found := FindAndReplace(noteText, q.Text.Original, replacement)
	if !found {
		return noteText, false
	}
	q.Text = deck.NewQuestionText(replacement)
	return updated, true
}
