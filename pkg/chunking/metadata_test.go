package chunking

import (
	"testing"
	"time"
)

func TestAssignMetadata(t *testing.T) {
	now := time.Date(2024, 9, 12, 15, 0, 0, 0, time.UTC)
	ctx := Context{EmailID: "report-2024", Subject: "Q3 Budget Review", SenderName: "Alice Smith", ProcessedAt: now}

	chunks := AssignMetadata([]Chunk{
		{Type: ChunkHeader, Content: "Subject: Q3 Budget Review", TokenCount: 8, WordCount: 4},
		{Type: ChunkBody, Content: "Please review the attached numbers before the meeting.", TokenCount: 300, WordCount: 8},
		{Type: ChunkSignature, Content: "--\nAlice", TokenCount: 2, WordCount: 2},
	}, ctx)

	wantIDs := []string{"report-2024_chunk_1", "report-2024_chunk_2", "report-2024_chunk_3"}
	for i, c := range chunks {
		if c.ID != wantIDs[i] {
			t.Fatalf("chunk %d ID = %q, want %q", i, c.ID, wantIDs[i])
		}
		if c.ChunkNumber != i+1 || c.TotalChunks != 3 {
			t.Fatalf("chunk %d numbering = %d/%d", i, c.ChunkNumber, c.TotalChunks)
		}
		if c.ParentEmailID != "report-2024" || c.EmailSubject != ctx.Subject || c.SenderName != ctx.SenderName {
			t.Fatalf("chunk %d context fields wrong: %+v", i, c)
		}
		if !c.ProcessedAt.Equal(now) {
			t.Fatalf("chunk %d processed_at = %v", i, c.ProcessedAt)
		}
		if c.QualityScore <= 0 {
			t.Fatalf("chunk %d quality score not assigned", i)
		}
	}

	if !chunks[0].IsFirst || chunks[0].PreviousChunkID != "" || chunks[0].NextChunkID != wantIDs[1] {
		t.Fatalf("first chunk linkage: %+v", chunks[0])
	}
	if chunks[1].PreviousChunkID != wantIDs[0] || chunks[1].NextChunkID != wantIDs[2] {
		t.Fatalf("middle chunk linkage: %+v", chunks[1])
	}
	if !chunks[2].IsLast || chunks[2].NextChunkID != "" || chunks[2].PreviousChunkID != wantIDs[1] {
		t.Fatalf("last chunk linkage: %+v", chunks[2])
	}

	// Readiness reflects the token counts set above.
	if !chunks[1].Readiness.IsReady {
		t.Fatalf("body chunk not ready: %+v", chunks[1].Readiness)
	}
	if chunks[2].Readiness.IsReady {
		t.Fatal("signature chunk unexpectedly ready")
	}
}

func TestAssignMetadataSingleChunk(t *testing.T) {
	chunks := AssignMetadata([]Chunk{{Type: ChunkBody, Content: "Only chunk."}}, Context{EmailID: "solo"})
	c := chunks[0]
	if !c.IsFirst || !c.IsLast || c.PreviousChunkID != "" || c.NextChunkID != "" {
		t.Fatalf("single chunk linkage: %+v", c)
	}
	if c.ID != "solo_chunk_1" || c.TotalChunks != 1 {
		t.Fatalf("single chunk identity: %+v", c)
	}
}
