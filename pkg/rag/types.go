// Package rag provides unified search over indexed email chunks, combining
// vector search (Milvus) and keyword BM25 search (SQLite FTS5).
//
// This is the authoritative backend for all search operations. CLI, HTTP
// server, and future MCP surfaces should all use this package.
package rag

import "time"

// SearchMode specifies the search strategy
type SearchMode string

const (
	ModeVector  SearchMode = "vector"  // Vector-only search (Milvus)
	ModeKeyword SearchMode = "keyword" // BM25-only search (SQLite FTS5)
	ModeHybrid  SearchMode = "hybrid"  // Hybrid RRF fusion of both
)

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	Query   string     `json:"q"`
	Mode    SearchMode `json:"mode"`
	Limit   int        `json:"limit"`
	Context int        `json:"context"` // Adjacent chunk radius (0 = disabled)

	// Optional overrides (use config defaults if zero)
	RrfK          int     `json:"rrf_k,omitempty"`
	WeightVec     float64 `json:"w_vector,omitempty"`
	WeightKeyword float64 `json:"w_keyword,omitempty"`
	CandMult      int     `json:"candidate_mult,omitempty"` // Candidate multiplier for fusion
}

// SearchResponse contains the search results and metadata
type SearchResponse struct {
	Query   string     `json:"query"`
	Mode    SearchMode `json:"mode"`
	Limit   int        `json:"limit"`
	Context int        `json:"context"`

	// Config values used
	RrfK    int     `json:"rrf_k"`
	Weights Weights `json:"weights"`

	// Timing
	TookMs int64 `json:"took_ms"`

	// Results ordered by relevance (best first)
	Results []Hit `json:"results"`
}

// Weights contains the normalized weights used for hybrid search
type Weights struct {
	Vector  float64 `json:"vector"`
	Keyword float64 `json:"keyword"`
}

// Hit represents a single search result
type Hit struct {
	Chunk

	// Scoring info
	VectorRank   *int     `json:"vector_rank"` // nil if not in vector results
	VectorScore  *float64 `json:"vector_score"`
	KeywordRank  *int     `json:"keyword_rank"` // nil if not in keyword results
	KeywordScore *float64 `json:"keyword_score"`
	RrfScore     *float64 `json:"rrf_score"` // nil for single-mode searches

	// Context (only populated if context > 0)
	ContextBefore []ContextChunk `json:"context_before,omitempty"`
	ContextAfter  []ContextChunk `json:"context_after,omitempty"`
}

// Chunk represents an indexed email chunk
type Chunk struct {
	ChunkID         string  `json:"chunk_id"`
	EmailID         string  `json:"parent_email_id"`
	EmailSubject    string  `json:"email_subject"`
	SenderName      string  `json:"sender_name"`
	ChunkNumber     int     `json:"chunk_number"`
	TotalChunks     int     `json:"total_chunks"`
	ChunkType       string  `json:"chunk_type"`
	SearchRelevance string  `json:"search_relevance"`
	SearchWeight    float64 `json:"search_weight"`
	QualityScore    float64 `json:"quality_score"` // 0-1, rescaled
	Content         string  `json:"content"`
}

// ContextChunk is a simplified chunk for context display
type ContextChunk struct {
	ChunkID     string `json:"chunk_id"`
	ChunkNumber int    `json:"chunk_number"`
	Content     string `json:"content"`
	IsReady     bool   `json:"is_ready"`
}

// VectorHit is an intermediate result from vector search
type VectorHit struct {
	Chunk
	Rank  int
	Score float64
}

// KeywordHit is an intermediate result from BM25 search
type KeywordHit struct {
	Chunk
	Rank  int
	Score float64 // Raw BM25 score (negative, lower = better)
}

// StatsResponse contains collection/database statistics
type StatsResponse struct {
	Milvus    MilvusStats `json:"milvus"`
	SQLite    SQLiteStats `json:"sqlite"`
	Config    ConfigInfo  `json:"config"`
	Timestamp time.Time   `json:"timestamp"`
}

// MilvusStats contains Milvus collection statistics
type MilvusStats struct {
	Connected      bool   `json:"connected"`
	Collection     string `json:"collection"`
	RowCount       int64  `json:"row_count"`
	IndexType      string `json:"index_type"`
	EmbeddingModel string `json:"embedding_model"`
	EmbeddingDim   int    `json:"embedding_dim"`
}

// SQLiteStats contains SQLite database statistics
type SQLiteStats struct {
	Connected    bool   `json:"connected"`
	EmailsTotal  int64  `json:"emails_total"`
	ChunksTotal  int64  `json:"chunks_total"`
	ChunksReady  int64  `json:"chunks_ready"`
	FtsTable     string `json:"fts_table"`
	FtsAvailable bool   `json:"fts_available"`
}

// ConfigInfo contains configuration metadata
type ConfigInfo struct {
	Hash       string `json:"hash"` // Config hash for change detection
	Collection string `json:"collection"`
	Model      string `json:"model"`
	Dimension  int    `json:"dimension"`
}

// HealthResponse for /health endpoint
type HealthResponse struct {
	Status    string    `json:"status"` // "ok", "degraded", "unhealthy"
	Milvus    bool      `json:"milvus"`
	SQLite    bool      `json:"sqlite"`
	Embedding bool      `json:"embedding"`
	Timestamp time.Time `json:"timestamp"`
}
