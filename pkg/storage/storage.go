package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"msgrag/pkg/chunking"
	"msgrag/pkg/email"
)

// Storage handles all database operations for email and chunk persistence
type Storage struct {
	db *sql.DB
}

// New creates a new Storage instance and initializes the database
func New(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection keeps writers serialized and makes :memory: databases
	// behave; every new pool connection would otherwise get its own empty DB.
	db.SetMaxOpenConns(1)

	s := &Storage{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// DB exposes the underlying handle for read-only consumers (BM25 search).
func (s *Storage) DB() *sql.DB {
	return s.db
}

// init creates the database schema and runs migrations
func (s *Storage) init() error {
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	if err := s.runMigrations(); err != nil {
		return err
	}

	return nil
}

func (s *Storage) runMigrations() error {
	currentVersion, err := s.getSchemaVersion()
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
		}

		for _, stmt := range m.Statements {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			if _, err := tx.Exec(stmt); err != nil && !isIgnorableMigrationError(err) {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d failed: %w", m.Version, err)
			}
		}

		now := time.Now().UnixMilli()
		if _, err := tx.Exec(`
			INSERT INTO pipeline_metadata (key, value, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		`, "schema_version", strconv.Itoa(m.Version), now); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema_version for migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
		}

		currentVersion = m.Version
	}

	return nil
}

func (s *Storage) getSchemaVersion() (int, error) {
	value, err := s.GetMetadata("schema_version")
	if err != nil {
		return 0, err
	}
	if value == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid schema_version %q: %w", value, err)
	}
	return v, nil
}

func isIgnorableMigrationError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate column name") ||
		strings.Contains(msg, "already exists")
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// SaveEmail inserts or updates the email row for a processed record.
func (s *Storage) SaveEmail(rec *email.Record, chunkCount int) error {
	now := time.Now().UnixMilli()
	_, err := s.db.Exec(`
		INSERT INTO emails (id, source_file, subject, sender_name, sender_email,
			sent_date_ms, received_date_ms, attachment_count, chunk_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_file = excluded.source_file,
			subject = excluded.subject,
			sender_name = excluded.sender_name,
			sender_email = excluded.sender_email,
			sent_date_ms = excluded.sent_date_ms,
			received_date_ms = excluded.received_date_ms,
			attachment_count = excluded.attachment_count,
			chunk_count = excluded.chunk_count,
			updated_at = excluded.updated_at
	`, rec.NormalizedID(), nullIfEmpty(rec.SourceFile), nullIfEmpty(rec.Subject),
		nullIfEmpty(rec.Sender.Name), nullIfEmpty(rec.Sender.Email),
		nullIfZeroTime(rec.SentDate), nullIfZeroTime(rec.ReceivedDate),
		len(rec.Attachments), chunkCount, now, now)
	return err
}

// SaveChunks replaces all chunks for one email in a single transaction.
// Reprocessing an email never leaves stale chunks behind; the FTS triggers
// keep the search index consistent through the delete and re-insert.
func (s *Storage) SaveChunks(emailID string, chunks []chunking.Chunk, entities map[string][]string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM chunks WHERE email_id = ?`, emailID); err != nil {
		return fmt.Errorf("clearing chunks for %s: %w", emailID, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO chunks (
			chunk_id, email_id, chunk_number, total_chunks, chunk_type, section_type,
			content, token_count, word_count, search_relevance, search_weight,
			has_context, quality_score, is_ready, readiness_score, entities, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	var entitiesJSON interface{}
	if len(entities) > 0 {
		data, err := json.Marshal(entities)
		if err != nil {
			return fmt.Errorf("encoding entities: %w", err)
		}
		entitiesJSON = string(data)
	}

	now := time.Now().UnixMilli()
	for _, c := range chunks {
		_, err := stmt.Exec(
			c.ID, emailID, c.ChunkNumber, c.TotalChunks, string(c.Type), string(c.SectionType),
			c.Content, c.TokenCount, c.WordCount, string(c.Relevance), c.SearchWeight,
			c.HasContext, c.QualityScore, c.Readiness.IsReady, c.Readiness.Score, entitiesJSON, now,
		)
		if err != nil {
			return fmt.Errorf("inserting chunk %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

// HasEmail checks if an email with the given normalized ID exists
func (s *Storage) HasEmail(emailID string) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM emails WHERE id = ?`, emailID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetChunk retrieves a single chunk by ID
func (s *Storage) GetChunk(chunkID string) (*ChunkRow, error) {
	row := s.db.QueryRow(chunkSelect+` WHERE chunk_id = ?`, chunkID)
	c, err := scanChunk(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetChunksByEmail returns all chunks of an email in reading order
func (s *Storage) GetChunksByEmail(emailID string) ([]ChunkRow, error) {
	rows, err := s.db.Query(chunkSelect+`
		WHERE email_id = ?
		ORDER BY chunk_number
	`, emailID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectChunks(rows)
}

// GetChunkWindow returns the chunks of an email whose number falls within
// radius of center, in reading order. Used to expand a search hit with its
// surrounding context.
func (s *Storage) GetChunkWindow(emailID string, center, radius int) ([]ChunkRow, error) {
	if radius < 0 {
		radius = 0
	}
	rows, err := s.db.Query(chunkSelect+`
		WHERE email_id = ? AND chunk_number BETWEEN ? AND ?
		ORDER BY chunk_number
	`, emailID, center-radius, center+radius)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectChunks(rows)
}

// GetUnsyncedChunks returns ready chunks that haven't been vector indexed yet
func (s *Storage) GetUnsyncedChunks(limit int) ([]ChunkRow, error) {
	rows, err := s.db.Query(chunkSelect+`
		WHERE milvus_synced IS NULL AND is_ready = TRUE
		ORDER BY email_id, chunk_number
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectChunks(rows)
}

// GetUnsyncedCount returns the number of ready chunks awaiting vector indexing
func (s *Storage) GetUnsyncedCount() (int64, error) {
	var count int64
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM chunks
		WHERE milvus_synced IS NULL AND is_ready = TRUE
	`).Scan(&count)
	return count, err
}

// MarkChunksSynced marks the given chunk IDs as vector indexed
func (s *Storage) MarkChunksSynced(chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}

	now := time.Now().UnixMilli()
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`UPDATE chunks SET milvus_synced = ? WHERE chunk_id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, id := range chunkIDs {
		if _, err := stmt.Exec(now, id); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ResetSyncStatus clears the milvus_synced flag for all chunks
// Use this when recreating the vector collection
func (s *Storage) ResetSyncStatus() error {
	_, err := s.db.Exec(`UPDATE chunks SET milvus_synced = NULL`)
	return err
}

// SetMetadata stores a pipeline metadata value
func (s *Storage) SetMetadata(key, value string) error {
	now := time.Now().UnixMilli()
	_, err := s.db.Exec(`
		INSERT INTO pipeline_metadata (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, now)
	return err
}

// GetMetadata retrieves a pipeline metadata value
func (s *Storage) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM pipeline_metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// GetStats returns database statistics
func (s *Storage) GetStats() (Stats, error) {
	var stats Stats
	err := s.db.QueryRow(`SELECT COUNT(*) FROM emails`).Scan(&stats.EmailCount)
	if err != nil {
		return stats, err
	}
	err = s.db.QueryRow(`SELECT COUNT(*) FROM chunks`).Scan(&stats.ChunkCount)
	if err != nil {
		return stats, err
	}
	err = s.db.QueryRow(`SELECT COUNT(*) FROM chunks WHERE is_ready = TRUE`).Scan(&stats.ReadyChunkCount)
	if err != nil {
		return stats, err
	}
	err = s.db.QueryRow(`
		SELECT COUNT(*) FROM chunks WHERE milvus_synced IS NULL AND is_ready = TRUE
	`).Scan(&stats.UnsyncedCount)
	return stats, err
}

const chunkSelect = `
	SELECT chunk_id, email_id, chunk_number, total_chunks, chunk_type, section_type,
		   content, token_count, word_count, search_relevance, search_weight,
		   has_context, quality_score, is_ready, readiness_score, entities
	FROM chunks`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanChunk(row rowScanner) (*ChunkRow, error) {
	var c ChunkRow
	var sectionType, relevance, entities sql.NullString
	if err := row.Scan(&c.ChunkID, &c.EmailID, &c.ChunkNumber, &c.TotalChunks,
		&c.ChunkType, &sectionType, &c.Content, &c.TokenCount, &c.WordCount,
		&relevance, &c.SearchWeight, &c.HasContext, &c.QualityScore,
		&c.IsReady, &c.ReadinessScore, &entities); err != nil {
		return nil, err
	}
	c.SectionType = sectionType.String
	c.SearchRelevance = relevance.String
	if entities.Valid && entities.String != "" {
		if err := json.Unmarshal([]byte(entities.String), &c.Entities); err != nil {
			// Bad entity JSON never blocks a read.
			c.Entities = nil
		}
	}
	return &c, nil
}

func collectChunks(rows *sql.Rows) ([]ChunkRow, error) {
	var chunks []ChunkRow
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *c)
	}
	return chunks, rows.Err()
}

// Helper functions
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullIfZeroTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UnixMilli()
}

// Types for query results

// ChunkRow is a chunk as stored, with the subset of metadata search needs.
type ChunkRow struct {
	ChunkID         string
	EmailID         string
	ChunkNumber     int
	TotalChunks     int
	ChunkType       string
	SectionType     string
	Content         string
	TokenCount      int
	WordCount       int
	SearchRelevance string
	SearchWeight    float64
	HasContext      bool
	QualityScore    float64
	IsReady         bool
	ReadinessScore  int
	Entities        map[string][]string
}

type Stats struct {
	EmailCount      int64
	ChunkCount      int64
	ReadyChunkCount int64
	UnsyncedCount   int64
}
