package deck

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// PathSeparator separates the segments of a topic path, e.g. "science/physics".
const PathSeparator = "/"

var (
	// ErrEmptyPath is returned when an operation requires a non-empty topic path.
	ErrEmptyPath = errors.New("deck: empty topic path")
	// ErrInvalidTag is returned when a tag string cannot be converted to a topic path.
	ErrInvalidTag = errors.New("deck: invalid tag")
)

// Matches a "#topic/subtopic" tag at the start of the card text.
var tagAtStartRegex = regexp.MustCompile(`^#[^\s#]+`)

// TopicPath identifies a deck's position in the deck tree.
// The empty path refers to the root. TopicPath is an immutable value type;
// all methods return new values and never modify the receiver.
type TopicPath struct {
	segments []string
}

// NewTopicPath builds a topic path from the given segments.
// Segments must not contain the path separator.
func NewTopicPath(segments ...string) (TopicPath, error) {
	for _, s := range segments {
		if strings.Contains(s, PathSeparator) {
			return TopicPath{}, fmt.Errorf("deck: path segment %q must not contain %q", s, PathSeparator)
		}
	}
	copied := make([]string, len(segments))
	copy(copied, segments)
	return TopicPath{segments: copied}, nil
}

// EmptyPath returns the path of the root deck.
func EmptyPath() TopicPath {
	return TopicPath{}
}

// HasPath reports whether the path has at least one segment.
func (p TopicPath) HasPath() bool {
	return len(p.segments) > 0
}

// IsEmpty reports whether the path refers to the root.
func (p TopicPath) IsEmpty() bool {
	return !p.HasPath()
}

// Len returns the number of segments.
func (p TopicPath) Len() int {
	return len(p.segments)
}

// Segments returns a copy of the path segments.
func (p TopicPath) Segments() []string {
	copied := make([]string, len(p.segments))
	copy(copied, p.segments)
	return copied
}

// Last returns the final segment, or "" for the empty path.
func (p TopicPath) Last() string {
	if p.IsEmpty() {
		return ""
	}
	return p.segments[len(p.segments)-1]
}

// Shift splits the path into its first segment and the remainder.
// Shifting an empty path is a contract violation.
func (p TopicPath) Shift() (string, TopicPath, error) {
	if p.IsEmpty() {
		return "", TopicPath{}, ErrEmptyPath
	}
	rest := make([]string, len(p.segments)-1)
	copy(rest, p.segments[1:])
	return p.segments[0], TopicPath{segments: rest}, nil
}

// Clone returns an independent copy of the path.
func (p TopicPath) Clone() TopicPath {
	return TopicPath{segments: p.Segments()}
}

// FormatAsTag renders the path as a "#a/b/c" tag.
// Formatting an empty path is a contract violation.
func (p TopicPath) FormatAsTag() (string, error) {
	if p.IsEmpty() {
		return "", ErrEmptyPath
	}
	return "#" + strings.Join(p.segments, PathSeparator), nil
}

// String renders the path as "a/b/c". The empty path renders as "".
func (p TopicPath) String() string {
	return strings.Join(p.segments, PathSeparator)
}

// Equals reports whether both paths have identical segments.
func (p TopicPath) Equals(other TopicPath) bool {
	if len(p.segments) != len(other.segments) {
		return false
	}
	for i := range p.segments {
		if p.segments[i] != other.segments[i] {
			return false
		}
	}
	return true
}

// IsSameOrAncestorOf reports whether p equals other or is one of its ancestors.
// The empty path is an ancestor only of itself.
func (p TopicPath) IsSameOrAncestorOf(other TopicPath) bool {
	if p.IsEmpty() {
		return other.IsEmpty()
	}
	if len(p.segments) > len(other.segments) {
		return false
	}
	for i := range p.segments {
		if p.segments[i] != other.segments[i] {
			return false
		}
	}
	return true
}

// TopicPathFromTag converts a "#a/b/c" tag into a topic path.
func TopicPathFromTag(tag string) (TopicPath, error) {
	if !IsValidTag(tag) {
		return TopicPath{}, fmt.Errorf("%w: %q", ErrInvalidTag, tag)
	}
	var segments []string
	for _, s := range strings.Split(strings.TrimPrefix(tag, "#"), PathSeparator) {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return TopicPath{segments: segments}, nil
}

// TopicPathsFromTagList converts every valid tag in the list; invalid tags are skipped.
func TopicPathsFromTagList(tags []string) []TopicPath {
	var result []TopicPath
	for _, tag := range tags {
		if IsValidTag(tag) {
			p, err := TopicPathFromTag(tag)
			if err == nil {
				result = append(result, p)
			}
		}
	}
	return result
}

// IsValidTag reports whether the string is a usable "#..." tag.
func IsValidTag(tag string) bool {
	return len(tag) > 1 && tag[0] == '#'
}

// TopicPathFromCardText extracts a leading "#a/b" tag from card text,
// returning the path and true when one is present.
func TopicPathFromCardText(cardText string) (TopicPath, bool) {
	match := tagAtStartRegex.FindString(strings.TrimLeft(cardText, " \t\n"))
	if match == "" {
		return TopicPath{}, false
	}
	p, err := TopicPathFromTag(match)
	if err != nil {
		return TopicPath{}, false
	}
	return p, true
}

// RemoveTopicPathFromCardText strips a leading tag from card text and
// returns the remaining text plus the whitespace that separated them.
func RemoveTopicPathFromCardText(cardText string) (string, string) {
	trimmed := strings.TrimLeft(cardText, " \t\n")
	withoutTag := tagAtStartRegex.ReplaceAllString(trimmed, "")
	remaining := strings.TrimLeft(withoutTag, " \t\n")
	whitespace := withoutTag[:len(withoutTag)-len(remaining)]
	return remaining, whitespace
}
