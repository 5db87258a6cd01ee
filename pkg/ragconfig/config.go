// Package ragconfig provides unified configuration for the email RAG
// pipeline. It is the single source of truth for chunking budgets, index
// endpoints, and hybrid search tuning across all CLIs and the server.
package ragconfig

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is searched for by LoadFromDir, walking up parent
// directories.
const ConfigFileName = "msgrag.yaml"

// TailPolicy selects what happens to a trailing sentence buffer below the
// minimum token budget at the end of a section.
const (
	TailDrop  = "drop"  // discard
	TailMerge = "merge" // append to the previous chunk
	TailEmit  = "emit"  // emit undersized
)

// Config is the unified pipeline configuration.
type Config struct {
	Milvus    MilvusConfig    `yaml:"milvus"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Hybrid    HybridConfig    `yaml:"hybrid"`
	Database  DatabaseConfig  `yaml:"database"`
	Batch     BatchConfig     `yaml:"batch"`
}

type MilvusConfig struct {
	Address         string             `yaml:"address" env:"MSGRAG_MILVUS_ADDRESS"`
	ChunkCollection string             `yaml:"chunk_collection" env:"MSGRAG_MILVUS_COLLECTION"`
	Index           MilvusIndexConfig  `yaml:"index"`
	Search          MilvusSearchConfig `yaml:"search"`
}

type MilvusIndexConfig struct {
	Type           string `yaml:"type"`
	Metric         string `yaml:"metric"`
	M              int    `yaml:"m"`
	EfConstruction int    `yaml:"ef_construction"`
}

type MilvusSearchConfig struct {
	Ef              int `yaml:"ef"`
	FetchMultiplier int `yaml:"fetch_multiplier"`
}

type EmbeddingConfig struct {
	BaseURL   string `yaml:"base_url" env:"MSGRAG_EMBEDDING_BASE_URL"`
	Model     string `yaml:"model" env:"MSGRAG_EMBEDDING_MODEL"`
	Dimension int    `yaml:"dimension" env:"MSGRAG_EMBEDDING_DIM"`
	BatchSize int    `yaml:"batch_size"`
}

// ChunkingConfig carries the token budgets for the chunking engine. Token
// counts are estimates, not tokenizer-exact (see chunking.EstimateTokens).
type ChunkingConfig struct {
	TargetTokens      int    `yaml:"target_tokens"`
	MinTokens         int    `yaml:"min_tokens"`
	MaxTokens         int    `yaml:"max_tokens"`
	OverlapTokens     int    `yaml:"overlap_tokens"`
	PreserveStructure bool   `yaml:"preserve_structure"`
	OptimizeForSearch bool   `yaml:"optimize_for_search"`
	TailPolicy        string `yaml:"tail_policy"`
}

type HybridConfig struct {
	Enabled bool          `yaml:"enabled"`
	RRF     RRFConfig     `yaml:"rrf"`
	Weights HybridWeights `yaml:"weights"`
	BM25    BM25Config    `yaml:"bm25"`
}

type RRFConfig struct {
	K int `yaml:"k"`
}

type HybridWeights struct {
	Vector  float64 `yaml:"vector"`
	Keyword float64 `yaml:"keyword"`
}

type BM25Config struct {
	Table string `yaml:"table"`
}

type DatabaseConfig struct {
	SQLite string `yaml:"sqlite" env:"MSGRAG_SQLITE"`
}

type BatchConfig struct {
	Workers int `yaml:"workers"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Milvus: MilvusConfig{
			Address:         "localhost:19530",
			ChunkCollection: "email_chunks_v1",
			Index: MilvusIndexConfig{
				Type:           "HNSW",
				Metric:         "COSINE",
				M:              16,
				EfConstruction: 256,
			},
			Search: MilvusSearchConfig{
				Ef:              128,
				FetchMultiplier: 3,
			},
		},
		Embedding: EmbeddingConfig{
			BaseURL:   "http://127.0.0.1:11434/v1",
			Model:     "nomic-embed-text",
			Dimension: 768,
			BatchSize: 50,
		},
		Chunking: ChunkingConfig{
			TargetTokens:      384,
			MinTokens:         128,
			MaxTokens:         512,
			OverlapTokens:     32,
			PreserveStructure: true,
			OptimizeForSearch: true,
			TailPolicy:        TailDrop,
		},
		Hybrid: HybridConfig{
			Enabled: true,
			RRF: RRFConfig{
				K: 60,
			},
			Weights: HybridWeights{
				Vector:  0.5,
				Keyword: 0.5,
			},
			BM25: BM25Config{
				Table: "chunks_fts",
			},
		},
		Database: DatabaseConfig{
			SQLite: "msgrag.db",
		},
		Batch: BatchConfig{
			Workers: 4,
		},
	}
}

// Load reads configuration from a YAML file, layered over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// LoadFromDir looks for msgrag.yaml in the given directory or parent
// directories.
func LoadFromDir(dir string) (*Config, error) {
	current := dir
	for {
		path := filepath.Join(current, ConfigFileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}

		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	return nil, fmt.Errorf("%s not found in %s or parent directories", ConfigFileName, dir)
}

// LoadOrDefault tries to load msgrag.yaml, falling back to defaults.
func LoadOrDefault(dir string) *Config {
	cfg, err := LoadFromDir(dir)
	if err != nil {
		return Default()
	}
	return cfg
}

// Hash returns a SHA256 hash of the configuration for change detection.
func (c *Config) Hash() string {
	data, _ := yaml.Marshal(c)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// EmbeddingIdentity identifies the embedding setup. Index and query sides
// must agree on this or similarity scores are meaningless.
func (c *Config) EmbeddingIdentity() string {
	return fmt.Sprintf("%s:%s:%d", c.Embedding.BaseURL, c.Embedding.Model, c.Embedding.Dimension)
}
