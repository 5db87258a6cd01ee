package chunking

import (
	"reflect"
	"testing"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "Basic_split",
			text: "First sentence here. Second sentence follows.",
			want: []string{"First sentence here.", "Second sentence follows."},
		},
		{
			name: "Lowercase_after_period_no_split",
			text: "See e.g. something useful here",
			want: []string{"See e.g. something useful here"},
		},
		{
			name: "Punctuation_run_kept_together",
			text: "Wait... Really? Yes indeed it works.",
			want: []string{"Wait... Really?", "Yes indeed it works."},
		},
		{
			name: "Short_fragment_merged_back",
			text: "This is a full sentence. Ok. Another full sentence follows.",
			want: []string{"This is a full sentence. Ok.", "Another full sentence follows."},
		},
		{
			name: "Empty",
			text: "  ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSentences(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("SplitSentences(%q)=%q, want %q", tt.text, got, tt.want)
			}
		})
	}
}
