// msgrag-index pushes chunked emails into the Milvus vector collection.
//
// It embeds every stored chunk that passed the readiness gate and has not
// been synced yet, then upserts the vectors with their search metadata.
// Reruns are incremental; sync state lives in SQLite.
//
// Usage:
//
//	msgrag-index --db msgrag.db
//	msgrag-index --drop-collection     # Recreate the collection and reindex
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"msgrag/pkg/index"
	"msgrag/pkg/ragconfig"
	"msgrag/pkg/storage"
	"msgrag/pkg/vectordb"
)

var (
	dbPath    = flag.String("db", "", "Path to SQLite database (defaults to database.sqlite from config)")
	cfgPath   = flag.String("config", "", "Path to msgrag.yaml (auto-detected if not specified)")
	batchSize = flag.Int("batch", 0, "Chunks per indexing batch (defaults to embedding.batch_size)")
	dropColl  = flag.Bool("drop-collection", false, "Drop and recreate the Milvus collection, then reindex everything")
	resetSync = flag.Bool("reset-sync", false, "Clear sync state so all chunks reindex (keeps the collection)")
	debug     = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load configuration
	cfg, err := ragconfig.LoadFromFlagOrDir(*cfgPath, ".")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	sqlitePath := *dbPath
	if sqlitePath == "" {
		sqlitePath = cfg.Database.SQLite
	}
	if sqlitePath == "" {
		log.Fatal().Msg("SQLite database path is empty (set -db or database.sqlite in msgrag.yaml)")
	}

	size := *batchSize
	if size <= 0 {
		size = cfg.Embedding.BatchSize
	}

	store, err := storage.New(sqlitePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", sqlitePath).Msg("Failed to open database")
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to Milvus
	milvus, err := client.NewClient(ctx, client.Config{Address: cfg.Milvus.Address})
	if err != nil {
		log.Fatal().Err(err).Str("address", cfg.Milvus.Address).Msg("Failed to connect to Milvus")
	}
	defer milvus.Close()
	log.Info().Str("address", cfg.Milvus.Address).Msg("Connected to Milvus")

	// Verify the embedding endpoint before touching anything
	emb := vectordb.NewEmbeddingClient(cfg.Embedding)
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	available := emb.IsAvailable(checkCtx)
	cancel()
	if !available {
		log.Fatal().Str("base_url", cfg.Embedding.BaseURL).Msg("Embedding endpoint not reachable")
	}

	if *dropColl {
		if err := index.DropCollection(ctx, milvus, cfg.Milvus.ChunkCollection); err != nil {
			log.Fatal().Err(err).Msg("Failed to drop collection")
		}
	}

	created, err := index.EnsureCollection(ctx, milvus, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure collection")
	}
	if created || *resetSync {
		if err := store.ResetSyncStatus(); err != nil {
			log.Fatal().Err(err).Msg("Failed to reset sync state")
		}
		log.Info().Msg("Sync state cleared, all ready chunks will reindex")
	}

	pending, err := store.GetUnsyncedCount()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to count pending chunks")
	}
	fmt.Printf("Collection: %s\n", cfg.Milvus.ChunkCollection)
	fmt.Printf("Embedding:  %s (%d dims) at %s\n", cfg.Embedding.Model, cfg.Embedding.Dimension, cfg.Embedding.BaseURL)
	fmt.Printf("Pending chunks: %d (batch size %d)\n", pending, size)
	fmt.Println()

	indexer := index.NewIndexer(store, milvus, emb, cfg)
	stats, err := indexer.IndexPending(ctx, size)
	if err != nil {
		log.Fatal().Err(err).Msg("Indexing failed")
	}

	// Print statistics
	fmt.Println()
	fmt.Println("============================================================")
	fmt.Println("INDEXING COMPLETE")
	fmt.Println("============================================================")
	fmt.Printf("Chunks indexed: %d\n", stats.Indexed)
	fmt.Printf("Chunks skipped: %d (embedding failed, still keyword-searchable)\n", stats.Skipped)
	fmt.Printf("Duration: %s\n", stats.Duration.Round(time.Millisecond))

	if raw, err := milvus.GetCollectionStatistics(ctx, cfg.Milvus.ChunkCollection); err == nil {
		if rc, ok := raw["row_count"]; ok {
			fmt.Printf("Collection rows: %s\n", rc)
		}
	}
}
