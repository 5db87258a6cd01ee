package ragconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Chunking.TargetTokens != 384 || cfg.Chunking.MinTokens != 128 || cfg.Chunking.MaxTokens != 512 {
		t.Errorf("token budgets = %d/%d/%d", cfg.Chunking.MinTokens, cfg.Chunking.TargetTokens, cfg.Chunking.MaxTokens)
	}
	if cfg.Chunking.TailPolicy != TailDrop {
		t.Errorf("tail policy = %q", cfg.Chunking.TailPolicy)
	}
	if !cfg.Hybrid.Enabled || cfg.Hybrid.RRF.K != 60 {
		t.Errorf("hybrid = %+v", cfg.Hybrid)
	}
	if cfg.Hybrid.Weights.Vector+cfg.Hybrid.Weights.Keyword != 1.0 {
		t.Errorf("default weights do not sum to 1: %+v", cfg.Hybrid.Weights)
	}
	if cfg.Embedding.Dimension != 768 || cfg.Embedding.BatchSize != 50 {
		t.Errorf("embedding = %+v", cfg.Embedding)
	}
	if cfg.Batch.Workers != 4 {
		t.Errorf("workers = %d", cfg.Batch.Workers)
	}
}

func TestLoad_LayersOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	yaml := `
chunking:
  target_tokens: 256
  tail_policy: merge
milvus:
  chunk_collection: email_chunks_test
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Chunking.TargetTokens != 256 {
		t.Errorf("target_tokens = %d, want override 256", cfg.Chunking.TargetTokens)
	}
	if cfg.Chunking.TailPolicy != TailMerge {
		t.Errorf("tail_policy = %q", cfg.Chunking.TailPolicy)
	}
	if cfg.Milvus.ChunkCollection != "email_chunks_test" {
		t.Errorf("collection = %q", cfg.Milvus.ChunkCollection)
	}
	// Untouched values keep their defaults.
	if cfg.Chunking.MaxTokens != 512 || cfg.Embedding.Model != "nomic-embed-text" {
		t.Errorf("defaults lost: max=%d model=%q", cfg.Chunking.MaxTokens, cfg.Embedding.Model)
	}
}

func TestLoadFromDir_WalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, ConfigFileName), []byte("database:\n  sqlite: up.db\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(nested)
	if err != nil {
		t.Fatalf("LoadFromDir: %v", err)
	}
	if cfg.Database.SQLite != "up.db" {
		t.Errorf("sqlite = %q", cfg.Database.SQLite)
	}
}

func TestHash_ChangesWithConfig(t *testing.T) {
	a := Default()
	b := Default()
	if a.Hash() != b.Hash() {
		t.Error("identical configs hash differently")
	}

	b.Embedding.Model = "other-model"
	if a.Hash() == b.Hash() {
		t.Error("changed config hashes the same")
	}
}

func TestEmbeddingIdentity(t *testing.T) {
	cfg := Default()
	want := "http://127.0.0.1:11434/v1:nomic-embed-text:768"
	if got := cfg.EmbeddingIdentity(); got != want {
		t.Errorf("EmbeddingIdentity = %q, want %q", got, want)
	}
}
