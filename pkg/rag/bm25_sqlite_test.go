package rag

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"msgrag/pkg/chunking"
	"msgrag/pkg/email"
	"msgrag/pkg/storage"
)

func TestBuildFTSQuery(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"budget report", "budget OR report"},
		{`"quoted phrase" | pipe`, "quoted OR phrase OR pipe"},
		{"a I budget", "budget"},
		{"inv(42)* co:lon", "inv42 OR colon"},
		{"", ""},
		{"x", ""},
	}

	for _, tc := range cases {
		if got := buildFTSQuery(tc.in); got != tc.want {
			t.Errorf("buildFTSQuery(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNewSQLiteBM25Searcher_RejectsBadTableName(t *testing.T) {
	if _, err := NewSQLiteBM25Searcher(nil, "chunks_fts; DROP TABLE chunks", zerolog.Nop()); err == nil {
		t.Error("expected error for invalid table name")
	}
	if _, err := NewSQLiteBM25Searcher(nil, "chunks_fts", zerolog.Nop()); err != nil {
		t.Errorf("valid table name rejected: %v", err)
	}
}

func TestSQLiteBM25Searcher_Search(t *testing.T) {
	st, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	defer st.Close()

	rec := &email.Record{
		ID:      "q3-review.msg",
		Subject: "Q3 Budget Review",
		Sender:  email.Address{Name: "Alice Smith", Email: "alice@example.com"},
	}
	if err := st.SaveEmail(rec, 2); err != nil {
		t.Fatalf("SaveEmail: %v", err)
	}

	chunks := []chunking.Chunk{
		{
			ID: "q3-review_chunk_1", Type: chunking.ChunkBody,
			Content:     "The quarterly budget review covers marketing spend in detail.",
			ChunkNumber: 1, TotalChunks: 2, SearchWeight: 1.0,
			Relevance: chunking.RelevanceHigh, QualityScore: 80,
			Readiness: chunking.Readiness{IsReady: true, Score: 100},
		},
		{
			ID: "q3-review_chunk_2", Type: chunking.ChunkSignature,
			Content:     "Best regards, Alice",
			ChunkNumber: 2, TotalChunks: 2, SearchWeight: 0.3,
			Relevance: chunking.RelevanceLow, QualityScore: 40,
			Readiness: chunking.Readiness{IsReady: false, Score: 50},
		},
	}
	if err := st.SaveChunks("q3-review", chunks, nil); err != nil {
		t.Fatalf("SaveChunks: %v", err)
	}

	searcher, err := NewSQLiteBM25Searcher(st.DB(), "chunks_fts", zerolog.Nop())
	if err != nil {
		t.Fatalf("NewSQLiteBM25Searcher: %v", err)
	}

	hits, err := searcher.Search(context.Background(), "budget marketing", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}

	h := hits[0]
	if h.ChunkID != "q3-review_chunk_1" {
		t.Errorf("chunk_id = %q", h.ChunkID)
	}
	if h.EmailSubject != "Q3 Budget Review" || h.SenderName != "Alice Smith" {
		t.Errorf("email join = %q / %q", h.EmailSubject, h.SenderName)
	}
	if h.QualityScore != 0.8 {
		t.Errorf("quality = %v, want 0.8 (rescaled)", h.QualityScore)
	}
	if h.Rank != 1 || h.Score <= 0 {
		t.Errorf("rank = %d score = %v", h.Rank, h.Score)
	}

	// Non-ready chunks are still keyword-searchable.
	hits, err = searcher.Search(context.Background(), "regards", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ChunkID != "q3-review_chunk_2" {
		t.Fatalf("signature chunk not searchable: %+v", hits)
	}

	stats, err := searcher.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if !stats.Connected || !stats.FtsAvailable {
		t.Errorf("stats = %+v", stats)
	}
	if stats.ChunksTotal != 2 || stats.ChunksReady != 1 {
		t.Errorf("counts = total %d ready %d", stats.ChunksTotal, stats.ChunksReady)
	}
}
