package rag

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/rs/zerolog"

	"msgrag/pkg/index"
	"msgrag/pkg/ragconfig"
)

// MilvusVectorSearcher implements VectorSearcher against the chunk collection
type MilvusVectorSearcher struct {
	client     client.Client
	collection string
	metric     entity.MetricType
	cfg        *ragconfig.Config
	log        zerolog.Logger
	needsClose bool
}

var vectorOutputFields = []string{
	"chunk_id", "parent_email_id", "email_subject", "sender_name",
	"chunk_number", "total_chunks", "chunk_type",
	"search_relevance", "search_weight", "content_quality_score",
	"content",
}

// NewMilvusVectorSearcher connects to Milvus and makes sure the chunk
// collection is loaded. The returned searcher owns the connection.
func NewMilvusVectorSearcher(ctx context.Context, cfg *ragconfig.Config, log zerolog.Logger) (*MilvusVectorSearcher, error) {
	c, err := client.NewClient(ctx, client.Config{Address: cfg.Milvus.Address})
	if err != nil {
		return nil, fmt.Errorf("connecting to Milvus at %s: %w", cfg.Milvus.Address, err)
	}

	s := &MilvusVectorSearcher{
		client:     c,
		collection: cfg.Milvus.ChunkCollection,
		metric:     index.MetricFromConfig(cfg.Milvus.Index.Metric),
		cfg:        cfg,
		log:        log.With().Str("component", "vector_searcher").Logger(),
		needsClose: true,
	}

	state, err := c.GetLoadState(ctx, s.collection, nil)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("checking load state of %s: %w", s.collection, err)
	}
	if state != entity.LoadStateLoaded {
		if err := c.LoadCollection(ctx, s.collection, false); err != nil {
			c.Close()
			return nil, fmt.Errorf("loading collection %s: %w", s.collection, err)
		}
	}

	return s, nil
}

// NewMilvusVectorSearcherWithClient wraps an existing client. Close becomes a
// no-op so the owner keeps control of the connection.
func NewMilvusVectorSearcherWithClient(c client.Client, cfg *ragconfig.Config, log zerolog.Logger) *MilvusVectorSearcher {
	return &MilvusVectorSearcher{
		client:     c,
		collection: cfg.Milvus.ChunkCollection,
		metric:     index.MetricFromConfig(cfg.Milvus.Index.Metric),
		cfg:        cfg,
		log:        log.With().Str("component", "vector_searcher").Logger(),
	}
}

// Search runs an ANN search for the query vector
func (s *MilvusVectorSearcher) Search(ctx context.Context, vector []float32, limit, ef int) ([]VectorHit, error) {
	sp, err := entity.NewIndexHNSWSearchParam(ef)
	if err != nil {
		return nil, fmt.Errorf("building search params: %w", err)
	}

	results, err := s.client.Search(
		ctx,
		s.collection,
		nil, // partitions
		"",  // expression
		vectorOutputFields,
		[]entity.Vector{entity.FloatVector(vector)},
		"embedding",
		s.metric,
		limit,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	var hits []VectorHit
	for _, result := range results {
		fields := make(map[string]entity.Column, len(result.Fields))
		for _, col := range result.Fields {
			fields[col.Name()] = col
		}

		for i := 0; i < result.ResultCount; i++ {
			var h VectorHit
			h.ChunkID = columnString(fields["chunk_id"], i)
			h.EmailID = columnString(fields["parent_email_id"], i)
			h.EmailSubject = columnString(fields["email_subject"], i)
			h.SenderName = columnString(fields["sender_name"], i)
			h.ChunkNumber = columnInt(fields["chunk_number"], i)
			h.TotalChunks = columnInt(fields["total_chunks"], i)
			h.ChunkType = columnString(fields["chunk_type"], i)
			h.SearchRelevance = columnString(fields["search_relevance"], i)
			h.SearchWeight = columnFloat(fields["search_weight"], i)
			h.QualityScore = columnFloat(fields["content_quality_score"], i)
			h.Content = columnString(fields["content"], i)
			h.Rank = len(hits) + 1
			h.Score = float64(result.Scores[i])
			hits = append(hits, h)
		}
	}

	s.log.Debug().Int("hits", len(hits)).Int("ef", ef).Msg("vector search complete")
	return hits, nil
}

// Stats returns vector-side statistics
func (s *MilvusVectorSearcher) Stats(ctx context.Context) (MilvusStats, error) {
	stats := MilvusStats{
		Collection:     s.collection,
		IndexType:      s.cfg.Milvus.Index.Type,
		EmbeddingModel: s.cfg.Embedding.Model,
		EmbeddingDim:   s.cfg.Embedding.Dimension,
	}

	raw, err := s.client.GetCollectionStatistics(ctx, s.collection)
	if err != nil {
		return stats, err
	}
	stats.Connected = true

	if rc, ok := raw["row_count"]; ok {
		fmt.Sscanf(rc, "%d", &stats.RowCount)
	}
	return stats, nil
}

// Close releases the Milvus connection if this searcher owns it
func (s *MilvusVectorSearcher) Close() error {
	if !s.needsClose {
		return nil
	}
	return s.client.Close()
}

func columnString(col entity.Column, i int) string {
	if col == nil {
		return ""
	}
	if c, ok := col.(*entity.ColumnVarChar); ok {
		if v, err := c.ValueByIdx(i); err == nil {
			return v
		}
	}
	return ""
}

func columnInt(col entity.Column, i int) int {
	if col == nil {
		return 0
	}
	switch c := col.(type) {
	case *entity.ColumnInt16:
		if v, err := c.ValueByIdx(i); err == nil {
			return int(v)
		}
	case *entity.ColumnInt32:
		if v, err := c.ValueByIdx(i); err == nil {
			return int(v)
		}
	case *entity.ColumnInt64:
		if v, err := c.ValueByIdx(i); err == nil {
			return int(v)
		}
	}
	return 0
}

func columnFloat(col entity.Column, i int) float64 {
	if col == nil {
		return 0
	}
	switch c := col.(type) {
	case *entity.ColumnFloat:
		if v, err := c.ValueByIdx(i); err == nil {
			return float64(v)
		}
	case *entity.ColumnDouble:
		if v, err := c.ValueByIdx(i); err == nil {
			return v
		}
	}
	return 0
}
