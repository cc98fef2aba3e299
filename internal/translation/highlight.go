package translation

import (
	"strings"
	"unicode/utf8"

	"github.com/lingochat/lingochat/internal/types"
)

// SelectHighlight picks a span of translated text to emphasize in clients.
// Preference order: a short contiguous phrase, a single medium-length
// alphabetic word, the first alphabetic run near the start, the first
// token, the first five runes. All offsets are rune offsets.
func SelectHighlight(text string) types.Span {
	runes := []rune(text)
	if strings.TrimSpace(text) == "" {
		return types.Span{}
	}

	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return types.Span{Start: 0, End: min(10, len(runes))}
	}

	// 2-4 token phrase, centered when the sentence is long enough.
	if len(tokens) >= 2 {
		phraseLen := min(len(tokens), 4)
		start := 0
		if len(tokens) >= 6 {
			phraseLen = 3
			start = (len(tokens) - phraseLen) / 2
		}

		phrase := strings.Join(tokens[start:start+phraseLen], " ")
		if span, ok := spanOf(text, phrase); ok {
			return span
		}
	}

	// Single alphabetic word between 4 and 12 letters; take the middle
	// candidate.
	var candidates []string
	for _, tok := range tokens {
		if n := alphaLen(tok); n >= 4 && n <= 12 {
			candidates = append(candidates, tok)
		}
	}
	if len(candidates) > 0 {
		if span, ok := spanOf(text, candidates[len(candidates)/2]); ok {
			return span
		}
	}

	// First alphabetic run within the first 10 runes. The run is matched
	// against that window only, so it never extends past it.
	limit := min(10, len(runes))
	start := -1
	for i := 0; i < limit; i++ {
		if isAlpha(runes[i]) {
			if start == -1 {
				start = i
			}
		} else if start != -1 {
			return types.Span{Start: start, End: i}
		}
	}
	if start != -1 {
		return types.Span{Start: start, End: limit}
	}

	if span, ok := spanOf(text, tokens[0]); ok {
		return span
	}

	return types.Span{Start: 0, End: min(5, len(runes))}
}

// spanOf locates sub in text and converts the byte offset into rune
// offsets.
func spanOf(text, sub string) (types.Span, bool) {
	idx := strings.Index(text, sub)
	if idx < 0 {
		return types.Span{}, false
	}

	start := utf8.RuneCountInString(text[:idx])
	return types.Span{
		Start: start,
		End:   start + utf8.RuneCountInString(sub),
	}, true
}

func alphaLen(tok string) int {
	var n int
	for _, r := range tok {
		if isAlpha(r) {
			n++
		}
	}
	return n
}

// isAlpha matches ASCII letters only: highlights target the latin-script
// side of a translation pair.
func isAlpha(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
