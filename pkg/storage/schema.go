package storage

// Schema defines the SQLite database schema for storing emails and chunks
const schema = `
-- Emails table: one row per processed .msg record
CREATE TABLE IF NOT EXISTS emails (
    id TEXT PRIMARY KEY,             -- Normalized email ID (filename without .msg)
    source_file TEXT,
    subject TEXT,
    sender_name TEXT,
    sender_email TEXT,
    sent_date_ms INTEGER,
    received_date_ms INTEGER,
    attachment_count INTEGER DEFAULT 0,
    chunk_count INTEGER DEFAULT 0,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

-- Chunks table: stores all generated chunks with their search metadata
CREATE TABLE IF NOT EXISTS chunks (
    chunk_id TEXT PRIMARY KEY,       -- {email_id}_chunk_{n}
    email_id TEXT NOT NULL,
    chunk_number INTEGER NOT NULL,
    total_chunks INTEGER NOT NULL,
    chunk_type TEXT NOT NULL,        -- Header, Body, Quote, Signature
    section_type TEXT,
    content TEXT NOT NULL,
    token_count INTEGER NOT NULL,
    word_count INTEGER NOT NULL,
    search_relevance TEXT,
    search_weight REAL DEFAULT 0.5,
    has_context BOOLEAN DEFAULT FALSE,
    quality_score REAL DEFAULT 0,
    is_ready BOOLEAN DEFAULT FALSE,
    readiness_score INTEGER DEFAULT 0,
    entities TEXT,                   -- JSON map of entity kind -> mentions
    milvus_synced INTEGER,           -- NULL = not vector indexed, timestamp when indexed
    created_at INTEGER NOT NULL,
    FOREIGN KEY (email_id) REFERENCES emails(id)
);

-- Indexes for common queries
CREATE INDEX IF NOT EXISTS idx_chunks_email_id ON chunks(email_id);
CREATE INDEX IF NOT EXISTS idx_chunks_email_number ON chunks(email_id, chunk_number);
CREATE INDEX IF NOT EXISTS idx_chunks_milvus_synced ON chunks(milvus_synced);
CREATE INDEX IF NOT EXISTS idx_chunks_is_ready ON chunks(is_ready);
CREATE INDEX IF NOT EXISTS idx_emails_sent_date ON emails(sent_date_ms);

-- Full-text search virtual table for BM25 over chunk content
CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
    chunk_id UNINDEXED,
    content,
    content='chunks',
    content_rowid='rowid'
);

-- Triggers to keep FTS in sync
CREATE TRIGGER IF NOT EXISTS chunks_ai AFTER INSERT ON chunks BEGIN
    INSERT INTO chunks_fts(rowid, chunk_id, content)
    VALUES (new.rowid, new.chunk_id, new.content);
END;

CREATE TRIGGER IF NOT EXISTS chunks_ad AFTER DELETE ON chunks BEGIN
    INSERT INTO chunks_fts(chunks_fts, rowid, chunk_id, content)
    VALUES('delete', old.rowid, old.chunk_id, old.content);
END;

CREATE TRIGGER IF NOT EXISTS chunks_au AFTER UPDATE ON chunks BEGIN
    INSERT INTO chunks_fts(chunks_fts, rowid, chunk_id, content)
    VALUES('delete', old.rowid, old.chunk_id, old.content);
    INSERT INTO chunks_fts(rowid, chunk_id, content)
    VALUES (new.rowid, new.chunk_id, new.content);
END;

-- Metadata table for tracking pipeline state
CREATE TABLE IF NOT EXISTS pipeline_metadata (
    key TEXT PRIMARY KEY,
    value TEXT,
    updated_at INTEGER NOT NULL
);
`

type migration struct {
	Version    int
	Statements []string
}

// migrations contains SQL migrations to run in order (tracked via pipeline_metadata.schema_version).
var migrations = []migration{
	{
		Version: 1,
		Statements: []string{
			`ALTER TABLE chunks ADD COLUMN milvus_synced INTEGER;`,
			`CREATE INDEX IF NOT EXISTS idx_chunks_milvus_synced ON chunks(milvus_synced);`,
		},
	},
	{
		Version: 2,
		Statements: []string{
			`ALTER TABLE chunks ADD COLUMN entities TEXT;`,
		},
	},
}
