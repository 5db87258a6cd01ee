package chunking

import (
	"strings"
	"testing"
	"time"

	"msgrag/pkg/email"
)

func TestBuildHeaderChunk(t *testing.T) {
	rec := &email.Record{
		ID:      "report-2024.msg",
		Subject: "Q3 Budget Review",
		Sender:  email.Address{Name: "Alice Smith", Email: "alice@example.com"},
		To: []email.Address{
			{Name: "Bob Jones", Email: "bob@example.com"},
			{Email: "team@example.com"},
		},
		CC:       []email.Address{{Email: "audit@example.com"}},
		SentDate: time.Date(2024, 9, 12, 14, 30, 0, 0, time.UTC),
		Attachments: []email.Attachment{
			{FileName: "budget.xlsx"},
			{FileName: "notes.pdf"},
		},
	}

	chunk := BuildHeaderChunk(rec)
	if chunk == nil {
		t.Fatal("got nil header chunk")
	}
	if chunk.Type != ChunkHeader || !chunk.IsHeader || !chunk.ContainsMetadata {
		t.Fatalf("header flags wrong: %+v", chunk)
	}
	if chunk.Priority != PriorityCritical {
		t.Fatalf("priority = %q, want %q", chunk.Priority, PriorityCritical)
	}
	if chunk.Relevance != RelevanceHigh {
		t.Fatalf("relevance = %s, want High", chunk.Relevance)
	}

	wantLines := []string{
		"Subject: Q3 Budget Review",
		"From: Alice Smith <alice@example.com>",
		"To: Bob Jones <bob@example.com>, team@example.com",
		"CC: audit@example.com",
		"Date: Thu, 12 Sep 2024 14:30",
		"Attachments: budget.xlsx, notes.pdf",
	}
	if got := chunk.Content; got != strings.Join(wantLines, "\n") {
		t.Fatalf("header content:\n%s", got)
	}
	if chunk.TokenCount != EstimateTokens(chunk.Content) {
		t.Fatal("token count does not match content")
	}
}

func TestBuildHeaderChunkEmptyRecord(t *testing.T) {
	if chunk := BuildHeaderChunk(&email.Record{ID: "x.msg"}); chunk != nil {
		t.Fatalf("got %+v, want nil for record with no header data", chunk)
	}
}
