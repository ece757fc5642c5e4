// Package fingerprint derives stable content identities for questions.
// The hash keys on normalized text, not object identity, so it survives a
// reparse after the user edits unrelated parts of a document.
package fingerprint

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// Normalize cleans each part and joins them with newlines. Trimming,
// lowercasing, and line-ending normalization make the hash insensitive to
// cosmetic whitespace churn.
func Normalize(parts ...string) string {
	cleaned := make([]string, len(parts))
	for i, part := range parts {
		p := strings.ToLower(part)
		p = strings.TrimSpace(p)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		cleaned[i] = p
	}
	// Newline separation keeps adjacent fields from running together.
	return strings.Join(cleaned, "\n")
}

// Hash returns the SHA-256 of the normalized parts as a hex string.
func Hash(parts ...string) string {
	sum := sha256.Sum256([]byte(Normalize(parts...)))
	return fmt.Sprintf("%x", sum)
}
