package chunking

import (
	"strings"
	"testing"
)

func TestOptimizeForSearch(t *testing.T) {
	ctx := Context{Subject: "Q3 Budget Review", SenderName: "Alice Smith"}
	chunks := []Chunk{
		{Type: ChunkHeader, Content: "Subject: Q3 Budget Review", Relevance: RelevanceHigh},
		{Type: ChunkBody, Content: "Please review the numbers.", Relevance: RelevanceHigh,
			TokenCount: EstimateTokens("Please review the numbers."), WordCount: 4},
		{Type: ChunkSignature, Content: "--\nAlice", Relevance: RelevanceLow},
	}

	out := OptimizeForSearch(chunks, ctx)

	// Header passes through untouched.
	if out[0].Content != "Subject: Q3 Budget Review" || out[0].HasContext || out[0].OptimizedForSearch {
		t.Fatalf("header chunk modified: %+v", out[0])
	}

	body := out[1]
	wantPrefix := "Email Subject: Q3 Budget Review | From: Alice Smith\n\n"
	if !strings.HasPrefix(body.Content, wantPrefix) {
		t.Fatalf("body content = %q, want prefix %q", body.Content, wantPrefix)
	}
	if !body.HasContext || !body.OptimizedForSearch {
		t.Fatalf("body flags wrong: %+v", body)
	}
	if body.TokenCount != EstimateTokens(body.Content) || body.WordCount != CountWords(body.Content) {
		t.Fatal("body counts stale after prefixing")
	}
	if body.SearchWeight != 1.0 {
		t.Fatalf("body weight = %v, want 1.0", body.SearchWeight)
	}
	if out[2].SearchWeight != 0.3 {
		t.Fatalf("signature weight = %v, want 0.3", out[2].SearchWeight)
	}
}

func TestContextPrefixVariants(t *testing.T) {
	tests := []struct {
		name string
		ctx  Context
		want string
	}{
		{name: "Both", ctx: Context{Subject: "S", SenderName: "N"}, want: "Email Subject: S | From: N"},
		{name: "Subject_only", ctx: Context{Subject: "S"}, want: "Email Subject: S"},
		{name: "Sender_only", ctx: Context{SenderName: "N"}, want: "From: N"},
		{name: "Neither", ctx: Context{}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := contextPrefix(tt.ctx); got != tt.want {
				t.Fatalf("contextPrefix=%q, want %q", got, tt.want)
			}
		})
	}
}

func TestWeightForRelevance(t *testing.T) {
	tests := []struct {
		rel  Relevance
		want float64
	}{
		{RelevanceHigh, 1.0},
		{RelevanceMedium, 0.7},
		{RelevanceLow, 0.3},
		{Relevance("Bogus"), 0.5},
	}
	for _, tt := range tests {
		if got := WeightForRelevance(tt.rel); got != tt.want {
			t.Fatalf("WeightForRelevance(%s)=%v, want %v", tt.rel, got, tt.want)
		}
	}
}
