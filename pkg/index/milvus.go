package index

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/rs/zerolog/log"

	"msgrag/pkg/ragconfig"
)

// EnsureCollection creates the chunk collection with its HNSW index if it
// does not exist, and loads it. Returns true when the collection was newly
// created, which signals the caller to reset sync state for a full reindex.
func EnsureCollection(ctx context.Context, c client.Client, cfg *ragconfig.Config) (bool, error) {
	collection := cfg.Milvus.ChunkCollection

	exists, err := c.HasCollection(ctx, collection)
	if err != nil {
		return false, fmt.Errorf("checking collection: %w", err)
	}
	if exists {
		if err := c.LoadCollection(ctx, collection, false); err != nil {
			log.Warn().Err(err).Str("collection", collection).Msg("failed to load collection (may already be loaded)")
		}
		return false, nil
	}

	dim := cfg.Embedding.Dimension
	schema := &entity.Schema{
		CollectionName: collection,
		Description:    "Email chunks with search metadata",
		Fields: []*entity.Field{
			{
				Name:       "chunk_id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				TypeParams: map[string]string{"max_length": fmt.Sprintf("%d", maxIDLen)},
			},
			{
				Name:       "parent_email_id",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": fmt.Sprintf("%d", maxIDLen)},
			},
			{
				Name:     "chunk_number",
				DataType: entity.FieldTypeInt16,
			},
			{
				Name:     "total_chunks",
				DataType: entity.FieldTypeInt16,
			},
			{
				Name:       "email_subject",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": fmt.Sprintf("%d", maxSubjectLen)},
			},
			{
				Name:       "sender_name",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": fmt.Sprintf("%d", maxSenderLen)},
			},
			{
				Name:     "sent_date",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:       "chunk_type",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": fmt.Sprintf("%d", maxTypeLen)},
			},
			{
				Name:       "search_relevance",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": fmt.Sprintf("%d", maxTypeLen)},
			},
			{
				Name:     "search_weight",
				DataType: entity.FieldTypeFloat,
			},
			{
				Name:     "content_quality_score",
				DataType: entity.FieldTypeFloat,
			},
			{
				Name:       "content",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": fmt.Sprintf("%d", maxContentLen)},
			},
			{
				Name:       "entities",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": fmt.Sprintf("%d", maxEntitiesLen)},
			},
			{
				Name:       "embedding",
				DataType:   entity.FieldTypeFloatVector,
				TypeParams: map[string]string{"dim": fmt.Sprintf("%d", dim)},
			},
		},
	}

	if err := c.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return false, fmt.Errorf("creating collection: %w", err)
	}

	idx, err := entity.NewIndexHNSW(
		MetricFromConfig(cfg.Milvus.Index.Metric),
		cfg.Milvus.Index.M,
		cfg.Milvus.Index.EfConstruction,
	)
	if err != nil {
		return false, fmt.Errorf("creating index params: %w", err)
	}
	if err := c.CreateIndex(ctx, collection, "embedding", idx, false); err != nil {
		return false, fmt.Errorf("creating index: %w", err)
	}
	if err := c.LoadCollection(ctx, collection, false); err != nil {
		return false, fmt.Errorf("loading collection: %w", err)
	}

	log.Info().
		Str("collection", collection).
		Int("dim", dim).
		Int("m", cfg.Milvus.Index.M).
		Int("ef_construction", cfg.Milvus.Index.EfConstruction).
		Msg("created collection with HNSW index")

	return true, nil
}

// DropCollection removes the collection if it exists.
func DropCollection(ctx context.Context, c client.Client, collection string) error {
	exists, err := c.HasCollection(ctx, collection)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	log.Info().Str("collection", collection).Msg("dropping existing collection")
	return c.DropCollection(ctx, collection)
}

// MetricFromConfig parses the configured metric name, defaulting to COSINE.
func MetricFromConfig(metric string) entity.MetricType {
	switch strings.ToUpper(strings.TrimSpace(metric)) {
	case "L2":
		return entity.L2
	case "IP", "INNER_PRODUCT":
		return entity.IP
	case "COSINE":
		return entity.COSINE
	default:
		return entity.COSINE
	}
}
