package index

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/rs/zerolog/log"

	"msgrag/pkg/ragconfig"
	"msgrag/pkg/storage"
	"msgrag/pkg/util"
	"msgrag/pkg/vectordb"
)

// Indexer pushes unsynced ready chunks from storage into Milvus.
type Indexer struct {
	store  *storage.Storage
	milvus client.Client
	emb    *vectordb.EmbeddingClient
	cfg    *ragconfig.Config
}

// IndexStats summarizes one IndexPending run.
type IndexStats struct {
	Indexed  int
	Skipped  int
	Duration time.Duration
}

func NewIndexer(store *storage.Storage, milvus client.Client, emb *vectordb.EmbeddingClient, cfg *ragconfig.Config) *Indexer {
	return &Indexer{store: store, milvus: milvus, emb: emb, cfg: cfg}
}

// IndexPending embeds and upserts all unsynced ready chunks in batches.
// A chunk whose embedding fails is skipped with a warning and stays
// unsynced; it remains reachable through BM25 and is retried on the next
// run. Embedding failures never abort the batch.
func (ix *Indexer) IndexPending(ctx context.Context, batchSize int) (IndexStats, error) {
	start := time.Now()
	var stats IndexStats

	if batchSize <= 0 {
		batchSize = ix.cfg.Embedding.BatchSize
	}

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		chunks, err := ix.store.GetUnsyncedChunks(batchSize)
		if err != nil {
			return stats, fmt.Errorf("loading unsynced chunks: %w", err)
		}
		if len(chunks) == 0 {
			break
		}

		indexed, skipped, err := ix.indexBatch(ctx, chunks)
		stats.Indexed += indexed
		stats.Skipped += skipped
		if err != nil {
			stats.Duration = time.Since(start)
			return stats, err
		}
		// Every chunk skipped and nothing synced would loop forever.
		if indexed == 0 {
			break
		}
	}

	if stats.Indexed > 0 {
		if err := ix.milvus.Flush(ctx, ix.cfg.Milvus.ChunkCollection, false); err != nil {
			log.Warn().Err(err).Msg("failed to flush collection")
		}
	}

	stats.Duration = time.Since(start)
	return stats, nil
}

func (ix *Indexer) indexBatch(ctx context.Context, chunks []storage.ChunkRow) (indexed, skipped int, err error) {
	docs := make([]Document, 0, len(chunks))
	for i := range chunks {
		subject, sender, sentDate, err := ix.emailContext(chunks[i].EmailID)
		if err != nil {
			return 0, 0, err
		}
		docs = append(docs, FromChunk(&chunks[i], subject, sender, sentDate))
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}

	vectors, err := ix.emb.EmbedBatch(ctx, texts)
	if err != nil {
		// Batch failed as a whole; retry per chunk so one bad input
		// doesn't block the rest.
		log.Warn().Err(err).Int("batch", len(docs)).Msg("batch embedding failed, retrying per chunk")
		vectors = make([][]float32, len(docs))
		for i, text := range texts {
			v, embErr := ix.emb.Embed(ctx, text)
			if embErr != nil {
				log.Warn().Err(embErr).Str("chunk_id", docs[i].ID).
					Str("preview", util.Truncate(text, 80)).
					Msg("embedding failed, chunk stays keyword-only")
				continue
			}
			vectors[i] = v
		}
	}

	var ready []Document
	for i := range docs {
		if vectors[i] == nil {
			skipped++
			continue
		}
		docs[i].Vector = vectors[i]
		ready = append(ready, docs[i])
	}
	if len(ready) == 0 {
		return 0, skipped, nil
	}

	if err := ix.upsert(ctx, ready); err != nil {
		return 0, skipped, err
	}

	ids := make([]string, len(ready))
	for i, d := range ready {
		ids[i] = d.ID
	}
	if err := ix.store.MarkChunksSynced(ids); err != nil {
		return len(ready), skipped, fmt.Errorf("marking chunks synced: %w", err)
	}

	return len(ready), skipped, nil
}

func (ix *Indexer) upsert(ctx context.Context, docs []Document) error {
	n := len(docs)
	ids := make([]string, n)
	parents := make([]string, n)
	numbers := make([]int16, n)
	totals := make([]int16, n)
	subjects := make([]string, n)
	senders := make([]string, n)
	sentDates := make([]int64, n)
	types := make([]string, n)
	relevances := make([]string, n)
	weights := make([]float32, n)
	qualities := make([]float32, n)
	contents := make([]string, n)
	ents := make([]string, n)
	vectors := make([][]float32, n)

	for i, d := range docs {
		ids[i] = d.ID
		parents[i] = d.ParentID
		numbers[i] = int16(d.ChunkNumber)
		totals[i] = int16(d.TotalChunks)
		subjects[i] = d.EmailSubject
		senders[i] = d.SenderName
		sentDates[i] = d.SentDateMs
		types[i] = d.ChunkType
		relevances[i] = d.SearchRelevance
		weights[i] = float32(d.SearchWeight)
		qualities[i] = float32(d.ContentQualityScore)
		contents[i] = d.Content
		ents[i] = entitiesJSON(d.Entities)
		vectors[i] = d.Vector
	}

	cols := []entity.Column{
		entity.NewColumnVarChar("chunk_id", ids),
		entity.NewColumnVarChar("parent_email_id", parents),
		entity.NewColumnInt16("chunk_number", numbers),
		entity.NewColumnInt16("total_chunks", totals),
		entity.NewColumnVarChar("email_subject", subjects),
		entity.NewColumnVarChar("sender_name", senders),
		entity.NewColumnInt64("sent_date", sentDates),
		entity.NewColumnVarChar("chunk_type", types),
		entity.NewColumnVarChar("search_relevance", relevances),
		entity.NewColumnFloat("search_weight", weights),
		entity.NewColumnFloat("content_quality_score", qualities),
		entity.NewColumnVarChar("content", contents),
		entity.NewColumnVarChar("entities", ents),
		entity.NewColumnFloatVector("embedding", ix.cfg.Embedding.Dimension, vectors),
	}

	// Upsert for idempotency: reprocessed chunks replace their old vectors.
	if _, err := ix.milvus.Upsert(ctx, ix.cfg.Milvus.ChunkCollection, "", cols...); err != nil {
		return fmt.Errorf("upserting %d documents: %w", len(docs), err)
	}
	return nil
}

// emailContext fetches subject, sender, and sent date for a chunk's parent
// email.
func (ix *Indexer) emailContext(emailID string) (subject, sender string, sentDateMs int64, err error) {
	var subj, name, addr sql.NullString
	var sent sql.NullInt64
	err = ix.store.DB().QueryRow(`
		SELECT subject, sender_name, sender_email, sent_date_ms FROM emails WHERE id = ?
	`, emailID).Scan(&subj, &name, &addr, &sent)
	if err == sql.ErrNoRows {
		return "", "", 0, nil
	}
	if err != nil {
		return "", "", 0, fmt.Errorf("loading email %s: %w", emailID, err)
	}
	sender = name.String
	if sender == "" {
		sender = addr.String
	}
	return subj.String, sender, sent.Int64, nil
}
