package chunking

import "testing"

func TestExtractStructureSignatureTerminal(t *testing.T) {
	sections, degraded := ExtractStructure("Message body.\n--\nJohn Doe\nCEO")
	if degraded {
		t.Fatal("unexpected degraded extraction")
	}
	if len(sections) != 2 {
		t.Fatalf("got %d sections, want 2", len(sections))
	}
	if sections[0].Type != SectionBody || sections[0].Content != "Message body." {
		t.Fatalf("section 0 = %+v, want body", sections[0])
	}
	if sections[1].Type != SectionSignature {
		t.Fatalf("section 1 type = %s, want Signature", sections[1].Type)
	}
	// Everything after the marker belongs to the signature, including the
	// marker line itself.
	if sections[1].Content != "--\nJohn Doe\nCEO" {
		t.Fatalf("signature content = %q", sections[1].Content)
	}
	if !HasSignature(sections) {
		t.Fatal("HasSignature=false")
	}
}

func TestExtractStructureQuoteChain(t *testing.T) {
	sections, _ := ExtractStructure("Thanks for the update.\n> previous message line one\n> previous message line two")
	if len(sections) != 2 {
		t.Fatalf("got %d sections, want 2", len(sections))
	}
	if sections[0].Type != SectionBody {
		t.Fatalf("section 0 type = %s, want Body", sections[0].Type)
	}
	quote := sections[1]
	if quote.Type != SectionQuote || !quote.IsQuoted {
		t.Fatalf("section 1 = %+v, want quoted section", quote)
	}
	// Consecutive > lines accumulate into one section.
	if quote.Content != "> previous message line one\n> previous message line two" {
		t.Fatalf("quote content = %q", quote.Content)
	}
	if !HasQuoteChain(sections) {
		t.Fatal("HasQuoteChain=false")
	}
}

func TestExtractStructureReplyHeaderOpensQuote(t *testing.T) {
	// An "On ... wrote:" line starts a quote; following non-quote lines stay
	// in that section until a new marker appears.
	sections, _ := ExtractStructure("On Mon, John wrote:\n> old text\nNew reply text")
	if len(sections) != 1 {
		t.Fatalf("got %d sections, want 1", len(sections))
	}
	if sections[0].Type != SectionQuote {
		t.Fatalf("section type = %s, want Quote", sections[0].Type)
	}
}

func TestExtractStructurePlainBody(t *testing.T) {
	sections, _ := ExtractStructure("Just a plain message without markers.")
	if len(sections) != 1 || sections[0].Type != SectionBody {
		t.Fatalf("sections = %+v, want single body", sections)
	}
	if HasQuoteChain(sections) || HasSignature(sections) {
		t.Fatal("unexpected structure flags on plain body")
	}
}

func TestExtractStructureEmpty(t *testing.T) {
	sections, degraded := ExtractStructure("   \n  ")
	if sections != nil || degraded {
		t.Fatalf("got sections=%v degraded=%v, want nil false", sections, degraded)
	}
}
