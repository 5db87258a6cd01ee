// Package chunking implements email chunking for RAG embedding.
//
// The pipeline turns one parsed email into token-bounded, overlapping,
// context-enriched chunks:
//  1. Content resolution and whitespace normalization
//  2. Structure extraction: Body / Quote / Signature sections
//  3. Header chunk synthesis from email metadata
//  4. Per-section chunking with sentence-level overlap
//  5. Search-context optimization (subject/sender prefix)
//  6. Metadata assembly: IDs, ordering, prev/next links, scoring
//  7. Aggregate quality report
package chunking

import (
	"time"
)

// SectionType classifies a structural span of an email body.
type SectionType string

const (
	SectionBody      SectionType = "Body"
	SectionQuote     SectionType = "Quote"
	SectionSignature SectionType = "Signature"
)

// ChunkType mirrors the section types plus the synthetic header chunk.
type ChunkType string

const (
	ChunkHeader    ChunkType = "Header"
	ChunkBody      ChunkType = "Body"
	ChunkQuote     ChunkType = "Quote"
	ChunkSignature ChunkType = "Signature"
)

// Relevance ranks how useful a chunk is for retrieval.
type Relevance string

const (
	RelevanceHigh   Relevance = "High"
	RelevanceMedium Relevance = "Medium"
	RelevanceLow    Relevance = "Low"
)

// Section is one structural span of a preprocessed email body. Sections are
// ordered and non-overlapping; a Signature section is always terminal.
type Section struct {
	Type      SectionType
	Content   string
	StartLine int
	IsQuoted  bool
}

// Context is the per-email state derived once before chunking and read-only
// afterwards.
type Context struct {
	EmailID        string    `json:"email_id"`
	Subject        string    `json:"subject"`
	SenderName     string    `json:"sender_name"`
	HasQuoteChain  bool      `json:"has_quote_chain"`
	HasSignature   bool      `json:"has_signature"`
	IsHTML         bool      `json:"is_html"`
	OriginalLength int       `json:"original_length"`
	ProcessedAt    time.Time `json:"processed_at"`
}

// Readiness is the pass/fail gate for indexing a chunk, with itemized issues.
type Readiness struct {
	IsReady bool     `json:"is_ready"`
	Issues  []string `json:"issues"`
	Score   int      `json:"readiness_score"`
}

// Chunk is a token-bounded slice of an email prepared for embedding and
// indexing. Ordering and linkage fields are only valid after metadata
// assembly.
type Chunk struct {
	ID      string    `json:"chunk_id"`
	Type    ChunkType `json:"chunk_type"`
	Content string    `json:"content"`

	TokenCount int `json:"token_count"`
	WordCount  int `json:"word_count"`

	SectionType      SectionType `json:"section_type,omitempty"`
	ContainsQuote    bool        `json:"contains_quote"`
	IsSignature      bool        `json:"is_signature"`
	IsHeader         bool        `json:"is_header"`
	ContainsMetadata bool        `json:"contains_metadata"`

	Relevance          Relevance `json:"search_relevance"`
	SearchWeight       float64   `json:"search_weight"`
	HasContext         bool      `json:"has_context"`
	OptimizedForSearch bool      `json:"optimized_for_search"`
	Priority           string    `json:"processing_priority,omitempty"`

	ChunkNumber     int    `json:"chunk_number"`
	TotalChunks     int    `json:"total_chunks"`
	IsFirst         bool   `json:"is_first"`
	IsLast          bool   `json:"is_last"`
	PreviousChunkID string `json:"previous_chunk_id,omitempty"`
	NextChunkID     string `json:"next_chunk_id,omitempty"`

	ParentEmailID string    `json:"parent_email_id"`
	EmailSubject  string    `json:"email_subject"`
	SenderName    string    `json:"sender_name"`
	ProcessedAt   time.Time `json:"processed_at"`

	QualityScore float64   `json:"quality_score"`
	Readiness    Readiness `json:"search_readiness"`
}

// PriorityCritical marks the header chunk for front-of-queue processing.
const PriorityCritical = "Critical"

// QualityReport aggregates chunk quality for one email.
type QualityReport struct {
	TotalChunks    int     `json:"total_chunks"`
	AvgTokens      float64 `json:"avg_tokens"`
	MinTokens      int     `json:"min_tokens"`
	MaxTokens      int     `json:"max_tokens"`
	AvgQuality     float64 `json:"avg_quality"`
	ReadyChunks    int     `json:"ready_chunks"`
	ReadyPercent   float64 `json:"ready_percent"`
	OptimalPercent float64 `json:"optimal_percent"`
}

// Result is the output of one ChunkEmail call.
type Result struct {
	Chunks      []Chunk       `json:"chunks"`
	Report      QualityReport `json:"quality_report"`
	Context     Context       `json:"context"`
	Warnings    []string      `json:"warnings,omitempty"`
	ProcessedAt time.Time     `json:"processed_at"`
}

// Optimal token window for embedding retrieval, used by the quality report.
const (
	OptimalWindowLow  = 256
	OptimalWindowHigh = 512
)
