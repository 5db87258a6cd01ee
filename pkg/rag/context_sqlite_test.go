package rag

import (
	"context"
	"fmt"
	"testing"

	"msgrag/pkg/chunking"
	"msgrag/pkg/email"
	"msgrag/pkg/storage"
)

func TestSQLiteChunkStore_GetContext(t *testing.T) {
	st, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	defer st.Close()

	rec := &email.Record{ID: "thread.msg", Subject: "Thread"}
	if err := st.SaveEmail(rec, 5); err != nil {
		t.Fatalf("SaveEmail: %v", err)
	}

	var chunks []chunking.Chunk
	for i := 1; i <= 5; i++ {
		chunks = append(chunks, chunking.Chunk{
			ID:          fmt.Sprintf("thread_chunk_%d", i),
			Type:        chunking.ChunkBody,
			Content:     fmt.Sprintf("Content of part %d.", i),
			ChunkNumber: i, TotalChunks: 5,
			Readiness: chunking.Readiness{IsReady: i != 4, Score: 100},
		})
	}
	if err := st.SaveChunks("thread", chunks, nil); err != nil {
		t.Fatalf("SaveChunks: %v", err)
	}

	store := NewSQLiteChunkStore(st.DB())

	before, after, err := store.GetContext(context.Background(), "thread", 3, 1)
	if err != nil {
		t.Fatalf("GetContext: %v", err)
	}
	if len(before) != 1 || before[0].ChunkNumber != 2 {
		t.Errorf("before = %+v", before)
	}
	if len(after) != 1 || after[0].ChunkNumber != 4 {
		t.Errorf("after = %+v", after)
	}
	if after[0].IsReady {
		t.Error("chunk 4 should not be ready")
	}

	// Radius past the edges just returns what exists.
	before, after, err = store.GetContext(context.Background(), "thread", 1, 3)
	if err != nil {
		t.Fatalf("GetContext: %v", err)
	}
	if len(before) != 0 || len(after) != 3 {
		t.Errorf("edge window = %d before, %d after", len(before), len(after))
	}

	// Zero radius disables expansion.
	before, after, err = store.GetContext(context.Background(), "thread", 3, 0)
	if err != nil || before != nil || after != nil {
		t.Errorf("radius 0 = %v %v %v", before, after, err)
	}

	c, err := store.GetByID(context.Background(), "thread_chunk_2")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if c == nil || c.EmailID != "thread" || c.EmailSubject != "Thread" {
		t.Errorf("GetByID = %+v", c)
	}
	if c, _ := store.GetByID(context.Background(), "missing"); c != nil {
		t.Error("missing chunk should return nil")
	}
}
