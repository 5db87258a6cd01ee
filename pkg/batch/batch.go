// Package batch runs the chunking pipeline over directories of extracted
// email JSON files with a bounded worker pool.
package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"msgrag/pkg/chunking"
	"msgrag/pkg/email"
	"msgrag/pkg/entities"
	"msgrag/pkg/ragconfig"
	"msgrag/pkg/storage"
)

// Processor coordinates batch chunking runs
type Processor struct {
	cfg   *ragconfig.Config
	store *storage.Storage
	log   zerolog.Logger

	// Force reprocesses emails that already have chunks stored
	Force bool
}

// Summary describes one completed batch run
type Summary struct {
	RunID     string        `json:"run_id"`
	Files     int           `json:"files"`
	Succeeded int64         `json:"succeeded"`
	Failed    int64         `json:"failed"`
	Empty     int64         `json:"empty"`
	Skipped   int64         `json:"skipped"`
	Chunks    int64         `json:"chunks"`
	Duration  time.Duration `json:"duration"`
}

// NewProcessor creates a batch processor writing to the given store
func NewProcessor(cfg *ragconfig.Config, store *storage.Storage, log zerolog.Logger) *Processor {
	return &Processor{
		cfg:   cfg,
		store: store,
		log:   log.With().Str("component", "batch").Logger(),
	}
}

// ProcessDir chunks every extracted email JSON file under dir. Files are
// distributed across cfg.Batch.Workers goroutines; a single bad file is
// counted and logged, never fatal. Returns an error only when the directory
// itself cannot be read or the context is cancelled before completion.
func (p *Processor) ProcessDir(ctx context.Context, dir string) (*Summary, error) {
	files, err := listEmailFiles(dir)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		RunID: uuid.New().String(),
		Files: len(files),
	}
	if len(files) == 0 {
		p.log.Warn().Str("dir", dir).Msg("no email JSON files found")
		return summary, nil
	}

	workers := p.cfg.Batch.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(files) {
		workers = len(files)
	}

	start := time.Now()
	p.log.Info().
		Str("run_id", summary.RunID).
		Int("files", len(files)).
		Int("workers", workers).
		Msg("starting batch run")

	jobs := make(chan string)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				p.processOne(ctx, path, summary)
			}
		}()
	}

	var cancelled bool
feed:
	for _, path := range files {
		select {
		case <-ctx.Done():
			cancelled = true
			break feed
		case jobs <- path:
		}
	}
	close(jobs)
	wg.Wait()

	summary.Duration = time.Since(start)
	p.log.Info().
		Str("run_id", summary.RunID).
		Int64("succeeded", summary.Succeeded).
		Int64("failed", summary.Failed).
		Int64("empty", summary.Empty).
		Int64("skipped", summary.Skipped).
		Int64("chunks", summary.Chunks).
		Dur("duration", summary.Duration).
		Msg("batch run complete")

	if cancelled {
		return summary, ctx.Err()
	}
	return summary, nil
}

func (p *Processor) processOne(ctx context.Context, path string, summary *Summary) {
	if ctx.Err() != nil {
		return
	}

	n, err := p.ProcessFile(ctx, path)
	switch {
	case err != nil:
		atomic.AddInt64(&summary.Failed, 1)
		p.log.Error().Err(err).Str("file", filepath.Base(path)).Msg("processing failed")
	case n < 0:
		atomic.AddInt64(&summary.Skipped, 1)
	case n == 0:
		atomic.AddInt64(&summary.Empty, 1)
	default:
		atomic.AddInt64(&summary.Succeeded, 1)
		atomic.AddInt64(&summary.Chunks, int64(n))
	}
}

// ProcessFile chunks a single extracted email file and stores the result.
// Returns the number of chunks written, 0 for an empty email, or -1 when the
// email was already processed and Force is off.
func (p *Processor) ProcessFile(ctx context.Context, path string) (int, error) {
	rec, err := email.LoadRecord(path)
	if err != nil {
		return 0, fmt.Errorf("loading %s: %w", filepath.Base(path), err)
	}

	emailID := rec.NormalizedID()
	if !p.Force {
		exists, err := p.store.HasEmail(emailID)
		if err != nil {
			return 0, err
		}
		if exists {
			p.log.Debug().Str("email_id", emailID).Msg("already processed, skipping")
			return -1, nil
		}
	}

	result, err := chunking.ChunkEmail(rec, p.cfg)
	if err != nil {
		return 0, fmt.Errorf("chunking %s: %w", emailID, err)
	}

	ents := entities.Merge(entities.Extract(email.ResolveContent(rec)), rec.Entities)

	if err := p.store.SaveEmail(rec, len(result.Chunks)); err != nil {
		return 0, fmt.Errorf("saving email %s: %w", emailID, err)
	}
	if len(result.Chunks) == 0 {
		return 0, nil
	}
	if err := p.store.SaveChunks(emailID, result.Chunks, ents); err != nil {
		return 0, fmt.Errorf("saving chunks for %s: %w", emailID, err)
	}

	return len(result.Chunks), nil
}

// listEmailFiles collects the extracted .json files under dir, sorted for
// deterministic run order.
func listEmailFiles(dir string) ([]string, error) {
	ls, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var files []string
	for _, e := range ls {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), ".json") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
