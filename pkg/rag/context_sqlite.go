package rag

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLiteChunkStore implements ChunkStore for context expansion
type SQLiteChunkStore struct {
	db *sql.DB
}

// NewSQLiteChunkStore creates a chunk store backed by the pipeline database
func NewSQLiteChunkStore(db *sql.DB) *SQLiteChunkStore {
	return &SQLiteChunkStore{db: db}
}

// GetContext returns the chunks surrounding a hit within the same email,
// split into before and after slices ordered by chunk number.
func (s *SQLiteChunkStore) GetContext(ctx context.Context, emailID string, chunkNumber, radius int) (before, after []ContextChunk, err error) {
	if radius <= 0 {
		return nil, nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, chunk_number, content, is_ready
		FROM chunks
		WHERE email_id = ? AND chunk_number BETWEEN ? AND ? AND chunk_number != ?
		ORDER BY chunk_number`,
		emailID, chunkNumber-radius, chunkNumber+radius, chunkNumber)
	if err != nil {
		return nil, nil, fmt.Errorf("context query failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c ContextChunk
		if err := rows.Scan(&c.ChunkID, &c.ChunkNumber, &c.Content, &c.IsReady); err != nil {
			return nil, nil, err
		}
		if c.ChunkNumber < chunkNumber {
			before = append(before, c)
		} else {
			after = append(after, c)
		}
	}
	return before, after, rows.Err()
}

// GetByID fetches a single chunk as a search result chunk
func (s *SQLiteChunkStore) GetByID(ctx context.Context, chunkID string) (*Chunk, error) {
	var c Chunk
	var subject, sender, relevance sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT c.chunk_id, c.email_id, e.subject, e.sender_name,
			c.chunk_number, c.total_chunks, c.chunk_type,
			c.search_relevance, c.search_weight, c.quality_score / 100.0,
			c.content
		FROM chunks c
		LEFT JOIN emails e ON e.id = c.email_id
		WHERE c.chunk_id = ?`, chunkID).Scan(
		&c.ChunkID, &c.EmailID, &subject, &sender,
		&c.ChunkNumber, &c.TotalChunks, &c.ChunkType,
		&relevance, &c.SearchWeight, &c.QualityScore,
		&c.Content,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.EmailSubject = subject.String
	c.SenderName = sender.String
	c.SearchRelevance = relevance.String
	return &c, nil
}
