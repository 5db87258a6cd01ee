package chunking

import (
	"strings"
	"unicode"
)

// Fragments shorter than this are merged into the previous sentence instead
// of standing alone (avoids "Dr." or stray initials becoming sentences).
const minSentenceFragment = 10

// SplitSentences breaks text into sentence-like units. A boundary is a run
// of sentence punctuation (. ! ?) followed by whitespace and an upper-case
// letter; the punctuation stays with the preceding sentence. This is a
// heuristic splitter, not NLP-grade segmentation.
func SplitSentences(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	var raw []string
	start := 0

	for i := 0; i < len(runes); i++ {
		if !isSentenceEnd(runes[i]) {
			continue
		}

		// Include the full punctuation run ("...", "?!").
		end := i
		for end+1 < len(runes) && isSentenceEnd(runes[end+1]) {
			end++
		}

		// Boundary requires whitespace then a capital letter.
		j := end + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j == end+1 || j >= len(runes) || !unicode.IsUpper(runes[j]) {
			i = end
			continue
		}

		sentence := strings.TrimSpace(string(runes[start : end+1]))
		if sentence != "" {
			raw = append(raw, sentence)
		}
		start = j
		i = j - 1
	}

	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		raw = append(raw, tail)
	}

	// Coalesce short fragments into the previous sentence.
	var out []string
	for _, s := range raw {
		if len(s) < minSentenceFragment && len(out) > 0 {
			out[len(out)-1] = out[len(out)-1] + " " + s
			continue
		}
		out = append(out, s)
	}
	return out
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
