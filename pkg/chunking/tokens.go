package chunking

import (
	"math"
	"strings"
	"unicode"
)

// EstimateTokens approximates the token count of text without a real
// tokenizer: ceil(words*0.75 + punctuation*0.25). This is a deliberate cheap
// proxy for BPE tokenization (English prose averages ~0.75 tokens per word,
// punctuation usually tokenizes separately). It is deterministic and pure;
// exactness is explicitly not a goal.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}

	words := len(strings.Fields(text))
	punct := 0
	for _, r := range text {
		if !isWordRune(r) && !unicode.IsSpace(r) {
			punct++
		}
	}

	if words == 0 && punct == 0 {
		return 0
	}
	return int(math.Ceil(float64(words)*0.75 + float64(punct)*0.25))
}

// CountWords counts whitespace-delimited tokens.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsMark(r)
}
