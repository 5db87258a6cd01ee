package chunking

import (
	"strings"
	"testing"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "Empty", text: "", want: 0},
		{name: "Whitespace_only", text: "   \n\t ", want: 0},
		{name: "Two_words", text: "Hello world", want: 2},
		{name: "Punctuation_counts_quarter", text: "Hello, world!", want: 2},
		{name: "Hundred_words", text: strings.Repeat("word ", 100), want: 75},
		{name: "Unicode_word", text: "Zażółć gęślą jaźń", want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateTokens(tt.text); got != tt.want {
				t.Fatalf("EstimateTokens(%q)=%d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestCountWords(t *testing.T) {
	if got, want := CountWords("one  two\nthree"), 3; got != want {
		t.Fatalf("CountWords=%d, want %d", got, want)
	}
	if got := CountWords(""); got != 0 {
		t.Fatalf("CountWords(empty)=%d, want 0", got)
	}
}
