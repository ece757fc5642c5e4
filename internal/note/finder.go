package note

import "strings"

// FindAndReplace replaces the first occurrence of searchText inside
// sourceText with replacementText. An exact substring match is tried first;
// failing that, a line-by-line match that ignores leading and trailing
// whitespace on each line. Returns the updated text and whether a match was
// found.
func FindAndReplace(sourceText, searchText, replacementText string) (string, bool) {
	if strings.Contains(sourceText, searchText) {
		return strings.Replace(sourceText, searchText, replacementText, 1), true
	}

	sourceLines := strings.Split(sourceText, "\n")
	searchLines := strings.Split(searchText, "\n")
	start := findLines(sourceLines, searchLines)
	if start < 0 {
		return sourceText, false
	}

	replacementLines := strings.Split(replacementText, "\n")
	result := make([]string, 0, len(sourceLines)-len(searchLines)+len(replacementLines))
	result = append(result, sourceLines[:start]...)
	result = append(result, replacementLines...)
	result = append(result, sourceLines[start+len(searchLines):]...)
	return strings.Join(result, "\n"), true
}

// findLines returns the index of the first source line of a run matching
// every search line after trimming, or -1.
func findLines(sourceLines, searchLines []string) int {
	if len(searchLines) == 0 {
		return -1
	}
	searchIdx := 0
	for sourceIdx := 0; sourceIdx < len(sourceLines); sourceIdx++ {
		if strings.TrimSpace(sourceLines[sourceIdx]) == strings.TrimSpace(searchLines[searchIdx]) {
			if searchIdx == len(searchLines)-1 {
				return sourceIdx - searchIdx
			}
			searchIdx++
		} else if searchIdx > 0 {
			// A partial match failed; retry this line as a fresh start.
			searchIdx = 0
			sourceIdx--
		}
	}
	return -1
}
