package speech

import (
	"regexp"
	"strings"
)

// DefaultSentence replaces text that is empty after cleaning.
const DefaultSentence = "This is a beautiful image that captures a wonderful moment."

const maxWords = 100

// maxRunes bounds both the text Clean works on and the text it returns.
// Token stripping takes one pass per nesting level over the whole text.
const maxRunes = 4096

var punctuation = strings.NewReplacer(
	`"`, "",
	"“", "",
	"”", "",
	"—", "-",
	"–", "-",
	"’", "'",
	"‘", "'",
)

var (
	markupTag     = regexp.MustCompile(`<[^>]*>`)
	angleBracket  = regexp.MustCompile(`[<>]`)
	techNote      = regexp.MustCompile(`\([^)]*\):`)
	patchIndexRef = regexp.MustCompile(`patch_index_\d+`)
)

// Clean prepares text for a speech model. It normalizes quotes and dashes,
// strips markup and caption-model control tokens, collapses whitespace,
// caps the result at 100 words and guarantees a trailing period.
// Clean(Clean(s)) == Clean(s).
func Clean(text string) string {
	text = punctuation.Replace(truncateRunes(text, maxRunes))

	// Removing one token can join its neighbours into another.
	for {
		next := markupTag.ReplaceAllString(text, "")
		next = angleBracket.ReplaceAllString(next, "")
		next = techNote.ReplaceAllString(next, "")
		next = patchIndexRef.ReplaceAllString(next, "")
		if next == text {
			break
		}
		text = next
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return DefaultSentence
	}
	if len(words) > maxWords {
		words = words[:maxWords]
	}
	text = strings.TrimSpace(truncateRunes(strings.Join(words, " "), maxRunes-1))
	if !strings.HasSuffix(text, ".") {
		text += "."
	}
	return text
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
