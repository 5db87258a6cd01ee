package rag

import "testing"

func fused(id string, rrf float64, vrank, krank *int) Hit {
	return Hit{Chunk: Chunk{ChunkID: id}, RrfScore: &rrf, VectorRank: vrank, KeywordRank: krank}
}

func intp(v int) *int { return &v }

func TestSortHits(t *testing.T) {
	hits := []Hit{
		fused("low", 0.01, intp(5), nil),
		fused("high", 0.05, intp(1), intp(1)),
		fused("mid-vector-only", 0.02, intp(2), nil),
		fused("mid-both", 0.02, intp(3), intp(3)),
	}

	sortHits(hits)

	want := []string{"high", "mid-both", "mid-vector-only", "low"}
	for i, id := range want {
		if hits[i].ChunkID != id {
			t.Errorf("position %d = %q, want %q", i, hits[i].ChunkID, id)
		}
	}
}

func TestSortHits_TiesBreakOnKeywordRankThenID(t *testing.T) {
	hits := []Hit{
		fused("zzz", 0.02, nil, intp(4)),
		fused("aaa", 0.02, nil, intp(4)),
		fused("better-keyword", 0.02, nil, intp(2)),
	}

	sortHits(hits)

	if hits[0].ChunkID != "better-keyword" {
		t.Errorf("first = %q, want better-keyword", hits[0].ChunkID)
	}
	if hits[1].ChunkID != "aaa" || hits[2].ChunkID != "zzz" {
		t.Errorf("ID tiebreak order = %q, %q", hits[1].ChunkID, hits[2].ChunkID)
	}
}
