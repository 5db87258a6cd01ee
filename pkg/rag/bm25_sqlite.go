package rag

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// SQLiteBM25Searcher implements KeywordSearcher using SQLite FTS5
type SQLiteBM25Searcher struct {
	db       *sql.DB
	ftsTable string
	log      zerolog.Logger
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// NewSQLiteBM25Searcher creates a BM25 searcher backed by the pipeline
// database. The FTS table name comes from config and is validated before it
// is interpolated into SQL.
func NewSQLiteBM25Searcher(db *sql.DB, ftsTable string, log zerolog.Logger) (*SQLiteBM25Searcher, error) {
	if !identifierPattern.MatchString(ftsTable) {
		return nil, fmt.Errorf("invalid FTS table name %q", ftsTable)
	}

	return &SQLiteBM25Searcher{
		db:       db,
		ftsTable: ftsTable,
		log:      log.With().Str("component", "bm25_searcher").Logger(),
	}, nil
}

// Search performs a BM25 keyword search. Results include chunks that never
// made it into the vector index, so keyword search stays usable for content
// the embedding pipeline skipped.
func (s *SQLiteBM25Searcher) Search(ctx context.Context, query string, limit int) ([]KeywordHit, error) {
	ftsQuery := buildFTSQuery(query)
	if ftsQuery == "" {
		return nil, nil
	}

	// Table name is validated at construction; it cannot be a placeholder.
	sqlQuery := fmt.Sprintf(`
		SELECT
			c.chunk_id, c.email_id, e.subject, e.sender_name,
			c.chunk_number, c.total_chunks, c.chunk_type,
			c.search_relevance, c.search_weight, c.quality_score / 100.0,
			c.content,
			bm25(%s) AS score
		FROM %s f
		JOIN chunks c ON c.rowid = f.rowid
		LEFT JOIN emails e ON e.id = c.email_id
		WHERE %s MATCH ?
		ORDER BY score
		LIMIT ?`, s.ftsTable, s.ftsTable, s.ftsTable)

	rows, err := s.db.QueryContext(ctx, sqlQuery, ftsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("FTS query failed: %w", err)
	}
	defer rows.Close()

	var hits []KeywordHit
	rank := 1
	for rows.Next() {
		var h KeywordHit
		var subject, sender, relevance sql.NullString
		err := rows.Scan(
			&h.ChunkID, &h.EmailID, &subject, &sender,
			&h.ChunkNumber, &h.TotalChunks, &h.ChunkType,
			&relevance, &h.SearchWeight, &h.QualityScore,
			&h.Content,
			&h.Score,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning BM25 hit: %w", err)
		}
		h.EmailSubject = subject.String
		h.SenderName = sender.String
		h.SearchRelevance = relevance.String
		// SQLite bm25() returns negative scores (lower = better match).
		// Flip to positive so bigger means better downstream.
		h.Score = math.Abs(h.Score)
		h.Rank = rank
		rank++
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.log.Debug().Str("fts_query", ftsQuery).Int("hits", len(hits)).Msg("BM25 search complete")
	return hits, nil
}

// Stats returns keyword-side statistics
func (s *SQLiteBM25Searcher) Stats(ctx context.Context) (SQLiteStats, error) {
	stats := SQLiteStats{FtsTable: s.ftsTable}

	if err := s.db.PingContext(ctx); err != nil {
		return stats, err
	}
	stats.Connected = true

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM emails`).Scan(&stats.EmailsTotal)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&stats.ChunksTotal)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE is_ready = TRUE`).Scan(&stats.ChunksReady)

	var one int
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT 1 FROM %s LIMIT 1`, s.ftsTable)).Scan(&one)
	stats.FtsAvailable = err == nil || err == sql.ErrNoRows

	return stats, nil
}

// buildFTSQuery converts a free-text query into an FTS5 MATCH expression.
// Words are OR-joined so partial matches still surface results; FTS operator
// characters are stripped to keep user input from breaking the parser.
func buildFTSQuery(query string) string {
	cleaned := strings.NewReplacer(`"`, " ", `|`, " ").Replace(query)

	var terms []string
	for _, word := range strings.Fields(cleaned) {
		word = escapeFTSWord(word)
		if len(word) <= 1 {
			continue
		}
		terms = append(terms, word)
	}

	return strings.Join(terms, " OR ")
}

// escapeFTSWord removes characters with special meaning in FTS5 query syntax
func escapeFTSWord(word string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '"', '\'', '(', ')', '*', ':', '^':
			return -1
		}
		return r
	}, word)
}
