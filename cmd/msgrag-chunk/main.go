// msgrag-chunk runs the chunking pipeline over extracted email JSON files.
//
// It reads the JSON records emitted by the MSG extraction step, splits each
// email into token-bounded chunks, and stores the results in SQLite ready
// for vector indexing.
//
// Usage:
//
//	msgrag-chunk --input ./extracted --db msgrag.db
//	msgrag-chunk --file email.json               # Chunk one file, print JSON
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"msgrag/pkg/batch"
	"msgrag/pkg/chunking"
	"msgrag/pkg/email"
	"msgrag/pkg/entities"
	"msgrag/pkg/ragconfig"
	"msgrag/pkg/storage"
)

var (
	inputDir   = flag.String("input", "", "Directory of extracted email JSON files")
	singleFile = flag.String("file", "", "Chunk a single email file and print JSON to stdout")
	dbPath     = flag.String("db", "", "Path to SQLite database (defaults to database.sqlite from config)")
	cfgPath    = flag.String("config", "", "Path to msgrag.yaml (auto-detected if not specified)")
	workers    = flag.Int("workers", 0, "Worker count override (defaults to batch.workers from config)")
	force      = flag.Bool("force", false, "Reprocess emails that already have chunks")
	debug      = flag.Bool("debug", false, "Enable debug logging")
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
	if *workers > 0 {
		cfg.Batch.Workers = *workers
	}

	if *singleFile != "" {
		if err := chunkSingle(*singleFile, cfg); err != nil {
			log.Fatal().Err(err).Msg("Chunking failed")
		}
		return
	}

	if *inputDir == "" {
		log.Fatal().Msg("Either -input or -file is required")
	}

	sqlitePath := *dbPath
	if sqlitePath == "" {
		sqlitePath = cfg.Database.SQLite
	}
	if sqlitePath == "" {
		log.Fatal().Msg("SQLite database path is empty (set -db or database.sqlite in msgrag.yaml)")
	}

	// Print configuration
	fmt.Printf("Processing directory: %s\n", *inputDir)
	fmt.Printf("Database: %s\n", sqlitePath)
	fmt.Printf("Configuration (from msgrag.yaml):\n")
	fmt.Printf("  - Target tokens: %d\n", cfg.Chunking.TargetTokens)
	fmt.Printf("  - Token range: %d-%d\n", cfg.Chunking.MinTokens, cfg.Chunking.MaxTokens)
	fmt.Printf("  - Overlap tokens: %d\n", cfg.Chunking.OverlapTokens)
	fmt.Printf("  - Tail policy: %s\n", cfg.Chunking.TailPolicy)
	fmt.Printf("  - Preserve structure: %v\n", cfg.Chunking.PreserveStructure)
	fmt.Printf("  - Optimize for search: %v\n", cfg.Chunking.OptimizeForSearch)
	fmt.Printf("  - Workers: %d\n", cfg.Batch.Workers)
	fmt.Println()

	store, err := storage.New(sqlitePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", sqlitePath).Msg("Failed to open database")
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	processor := batch.NewProcessor(cfg, store, log.Logger)
	processor.Force = *force

	summary, err := processor.ProcessDir(ctx, *inputDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Batch run failed")
	}

	stats, err := store.GetStats()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read statistics")
	}

	// Print statistics
	fmt.Println()
	fmt.Println("============================================================")
	fmt.Println("CHUNKING COMPLETE")
	fmt.Println("============================================================")
	fmt.Printf("Run ID: %s\n", summary.RunID)
	fmt.Printf("Files processed: %d\n", summary.Files)
	fmt.Printf("  - Succeeded: %d\n", summary.Succeeded)
	fmt.Printf("  - Failed: %d\n", summary.Failed)
	fmt.Printf("  - Empty: %d\n", summary.Empty)
	fmt.Printf("  - Skipped: %d\n", summary.Skipped)
	fmt.Printf("Chunks written: %d\n", summary.Chunks)
	fmt.Printf("Duration: %s\n", summary.Duration.Round(time.Millisecond))
	fmt.Println()
	fmt.Printf("Database totals: %d emails, %d chunks (%d ready for indexing)\n",
		stats.EmailCount, stats.ChunkCount, stats.ReadyChunkCount)
	if stats.ChunkCount > 0 {
		fmt.Printf("Pending vector sync: %d\n", stats.UnsyncedCount)
	}
}

// chunkSingle chunks one email file and prints the full result as JSON.
// Useful for inspecting chunk boundaries and quality scores.
func chunkSingle(path string, cfg *ragconfig.Config) error {
	rec, err := email.LoadRecord(path)
	if err != nil {
		return err
	}

	result, err := chunking.ChunkEmail(rec, cfg)
	if err != nil {
		return err
	}

	out := struct {
		*chunking.Result
		Entities map[string][]string `json:"entities,omitempty"`
	}{
		Result:   result,
		Entities: entities.Merge(entities.Extract(email.ResolveContent(rec)), rec.Entities),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
