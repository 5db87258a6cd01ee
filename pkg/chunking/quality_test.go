package chunking

import "testing"

func TestScoreChunk(t *testing.T) {
	tests := []struct {
		name  string
		chunk Chunk
		want  float64
	}{
		{
			name:  "Whitespace_only_scores_zero",
			chunk: Chunk{Content: "   ", TokenCount: 0, WordCount: 0},
			want:  0,
		},
		{
			name: "Target_size_body_with_context",
			chunk: Chunk{
				Content: "A well formed body that ends properly.", TokenCount: 384,
				WordCount: 20, HasContext: true, Relevance: RelevanceHigh,
			},
			// 30 token peak + 10 ending + 10 length + 20 content + 10 context + 5 relevance
			want: 85,
		},
		{
			name: "Header_bonus",
			chunk: Chunk{
				Type: ChunkHeader, Content: "Subject: something important here today.",
				TokenCount: 384, WordCount: 15, Relevance: RelevanceHigh,
			},
			want: 90,
		},
		{
			name: "Below_window_loses_token_component",
			chunk: Chunk{
				Content: "Tiny note here.", TokenCount: 127, WordCount: 3,
			},
			// 10 ending + 20 content; tokens outside [128,512] add nothing
			want: 30,
		},
		{
			name: "Window_edge",
			chunk: Chunk{
				Content: "Tiny note here.", TokenCount: 128, WordCount: 3,
			},
			// token component at 128: (1 - 256/384) * 30 = 10
			want: 40,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScoreChunk(&tt.chunk); got != tt.want {
				t.Fatalf("ScoreChunk=%v, want %v", got, tt.want)
			}
		})
	}
}

func TestCheckReadiness(t *testing.T) {
	good := Chunk{Content: "Plenty of searchable content in this chunk.", TokenCount: 384}
	r := CheckReadiness(&good)
	if !r.IsReady || r.Score != 100 || len(r.Issues) != 0 {
		t.Fatalf("good chunk readiness = %+v", r)
	}

	tiny := Chunk{Content: "hi", TokenCount: 5}
	r = CheckReadiness(&tiny)
	if r.IsReady || r.Score != 50 || len(r.Issues) != 2 {
		t.Fatalf("tiny chunk readiness = %+v", r)
	}

	empty := Chunk{Content: "", TokenCount: 0}
	r = CheckReadiness(&empty)
	if r.IsReady || r.Score != 25 || len(r.Issues) != 3 {
		t.Fatalf("empty chunk readiness = %+v", r)
	}

	huge := Chunk{Content: "A chunk whose estimated size exceeds the embedding limit.", TokenCount: 600}
	r = CheckReadiness(&huge)
	if r.IsReady || r.Score != 75 || len(r.Issues) != 1 {
		t.Fatalf("oversized chunk readiness = %+v", r)
	}
}
