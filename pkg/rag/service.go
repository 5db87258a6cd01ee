package rag

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"msgrag/pkg/ragconfig"
)

// VectorSearcher performs ANN search over embedded chunks
type VectorSearcher interface {
	Search(ctx context.Context, vector []float32, limit, ef int) ([]VectorHit, error)
	Stats(ctx context.Context) (MilvusStats, error)
	Close() error
}

// KeywordSearcher performs BM25 keyword search
type KeywordSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]KeywordHit, error)
	Stats(ctx context.Context) (SQLiteStats, error)
}

// ChunkStore fetches chunks for context expansion
type ChunkStore interface {
	GetContext(ctx context.Context, emailID string, chunkNumber, radius int) (before, after []ContextChunk, err error)
	GetByID(ctx context.Context, chunkID string) (*Chunk, error)
}

// Embedder turns query text into a vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	IsAvailable(ctx context.Context) bool
}

// Service is the unified search backend
type Service struct {
	cfg      *ragconfig.Config
	log      zerolog.Logger
	vector   VectorSearcher
	keyword  KeywordSearcher
	store    ChunkStore
	embedder Embedder
}

// NewService assembles a search service from its components. Any of vector,
// keyword, or embedder may be nil; modes that need a missing component fail
// with a clear error instead of at construction time.
func NewService(cfg *ragconfig.Config, log zerolog.Logger, vector VectorSearcher, keyword KeywordSearcher, store ChunkStore, embedder Embedder) *Service {
	return &Service{
		cfg:      cfg,
		log:      log.With().Str("component", "rag_service").Logger(),
		vector:   vector,
		keyword:  keyword,
		store:    store,
		embedder: embedder,
	}
}

const (
	defaultLimit = 20
	maxLimit     = 100
	maxContext   = 5

	defaultCandMult = 2
	maxCandMult     = 10
)

// Search executes a search request in the requested mode
func (s *Service) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	if err := ValidateSearchRequest(&req); err != nil {
		return nil, err
	}
	s.normalizeRequest(&req)

	start := time.Now()

	var hits []Hit
	var err error
	switch req.Mode {
	case ModeVector:
		hits, err = s.vectorSearch(ctx, req)
	case ModeKeyword:
		hits, err = s.keywordSearch(ctx, req)
	case ModeHybrid:
		hits, err = s.hybridSearch(ctx, req)
	default:
		return nil, fmt.Errorf("unknown search mode %q", req.Mode)
	}
	if err != nil {
		return nil, err
	}

	if len(hits) > req.Limit {
		hits = hits[:req.Limit]
	}

	if req.Context > 0 && s.store != nil {
		s.addContext(ctx, hits, req.Context)
	}

	resp := &SearchResponse{
		Query:   req.Query,
		Mode:    req.Mode,
		Limit:   req.Limit,
		Context: req.Context,
		RrfK:    s.getRrfK(req),
		Weights: s.getWeights(req),
		TookMs:  time.Since(start).Milliseconds(),
		Results: hits,
	}

	s.log.Info().
		Str("mode", string(req.Mode)).
		Str("query", req.Query).
		Int("results", len(hits)).
		Int64("took_ms", resp.TookMs).
		Msg("search complete")

	return resp, nil
}

// normalizeRequest fills defaults and clamps out-of-range values
func (s *Service) normalizeRequest(req *SearchRequest) {
	req.Query = SanitizeQuery(req.Query)

	if req.Mode == "" {
		req.Mode = ModeHybrid
	}
	if req.Mode == "bm25" {
		req.Mode = ModeKeyword
	}

	if req.Limit <= 0 {
		req.Limit = defaultLimit
	}
	if req.Limit > maxLimit {
		req.Limit = maxLimit
	}

	if req.Context < 0 {
		req.Context = 0
	}
	if req.Context > maxContext {
		req.Context = maxContext
	}

	if req.CandMult <= 0 {
		req.CandMult = defaultCandMult
	}
	if req.CandMult > maxCandMult {
		req.CandMult = maxCandMult
	}
}

// getRrfK returns the RRF K constant, honoring a per-request override
func (s *Service) getRrfK(req SearchRequest) int {
	if req.RrfK > 0 {
		return req.RrfK
	}
	if s.cfg.Hybrid.RRF.K > 0 {
		return s.cfg.Hybrid.RRF.K
	}
	return 60
}

// getWeights returns normalized fusion weights. Request overrides win over
// config; anything non-finite or non-positive falls back to an even split.
func (s *Service) getWeights(req SearchRequest) Weights {
	wv := req.WeightVec
	wk := req.WeightKeyword
	if wv == 0 && wk == 0 {
		wv = s.cfg.Hybrid.Weights.Vector
		wk = s.cfg.Hybrid.Weights.Keyword
	}

	if !isFinite(wv) || !isFinite(wk) || wv < 0 || wk < 0 || wv+wk <= 0 {
		return Weights{Vector: 0.5, Keyword: 0.5}
	}

	sum := wv + wk
	return Weights{Vector: wv / sum, Keyword: wk / sum}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// vectorCandidates computes how many vector candidates to fetch and the
// search-time ef. Over-fetching gives the fusion step material to work with.
func (s *Service) vectorCandidates(req SearchRequest) (limit, ef int) {
	mult := s.cfg.Milvus.Search.FetchMultiplier
	if mult <= 0 {
		mult = req.CandMult
	}
	limit = req.Limit * mult

	ef = s.cfg.Milvus.Search.Ef
	if ef < limit {
		ef = limit
	}
	return limit, ef
}

func (s *Service) vectorSearch(ctx context.Context, req SearchRequest) ([]Hit, error) {
	if s.vector == nil {
		return nil, fmt.Errorf("vector search is not configured")
	}
	if s.embedder == nil {
		return nil, fmt.Errorf("no embedder configured for vector search")
	}

	vec, err := s.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	limit, ef := s.vectorCandidates(req)
	vhits, err := s.vector.Search(ctx, vec, limit, ef)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(vhits))
	for _, vh := range vhits {
		vh := vh
		hits = append(hits, Hit{
			Chunk:       vh.Chunk,
			VectorRank:  &vh.Rank,
			VectorScore: &vh.Score,
		})
	}
	return hits, nil
}

func (s *Service) keywordSearch(ctx context.Context, req SearchRequest) ([]Hit, error) {
	if s.keyword == nil {
		return nil, fmt.Errorf("keyword search is not configured")
	}

	khits, err := s.keyword.Search(ctx, req.Query, req.Limit*req.CandMult)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(khits))
	for _, kh := range khits {
		kh := kh
		hits = append(hits, Hit{
			Chunk:        kh.Chunk,
			KeywordRank:  &kh.Rank,
			KeywordScore: &kh.Score,
		})
	}
	return hits, nil
}

// hybridSearch runs vector and keyword search in parallel and fuses the
// results with reciprocal rank fusion. If one side fails, the other side's
// results are returned alone; only a total failure is an error.
func (s *Service) hybridSearch(ctx context.Context, req SearchRequest) ([]Hit, error) {
	if !s.cfg.Hybrid.Enabled {
		s.log.Debug().Msg("hybrid disabled in config, falling back to vector mode")
		return s.vectorSearch(ctx, req)
	}

	type vecResult struct {
		hits []VectorHit
		err  error
	}
	type keyResult struct {
		hits []KeywordHit
		err  error
	}

	vecCh := make(chan vecResult, 1)
	keyCh := make(chan keyResult, 1)

	go func() {
		if s.vector == nil || s.embedder == nil {
			vecCh <- vecResult{err: fmt.Errorf("vector search is not configured")}
			return
		}
		vec, err := s.embedder.Embed(ctx, req.Query)
		if err != nil {
			vecCh <- vecResult{err: fmt.Errorf("embedding query: %w", err)}
			return
		}
		limit, ef := s.vectorCandidates(req)
		hits, err := s.vector.Search(ctx, vec, limit, ef)
		vecCh <- vecResult{hits: hits, err: err}
	}()

	go func() {
		if s.keyword == nil {
			keyCh <- keyResult{err: fmt.Errorf("keyword search is not configured")}
			return
		}
		hits, err := s.keyword.Search(ctx, req.Query, req.Limit*req.CandMult)
		keyCh <- keyResult{hits: hits, err: err}
	}()

	vres := <-vecCh
	kres := <-keyCh

	if vres.err != nil && kres.err != nil {
		return nil, fmt.Errorf("both search backends failed: vector: %v, keyword: %v", vres.err, kres.err)
	}
	if vres.err != nil {
		s.log.Warn().Err(vres.err).Msg("vector search failed, serving keyword results only")
	}
	if kres.err != nil {
		s.log.Warn().Err(kres.err).Msg("keyword search failed, serving vector results only")
	}

	return s.fuseRRF(vres.hits, kres.hits, req), nil
}

// fuseRRF merges vector and keyword hits with weighted reciprocal rank
// fusion: score = w_v / (K + rank_v) + w_k / (K + rank_k).
func (s *Service) fuseRRF(vhits []VectorHit, khits []KeywordHit, req SearchRequest) []Hit {
	k := float64(s.getRrfK(req))
	w := s.getWeights(req)

	merged := make(map[string]*Hit, len(vhits)+len(khits))

	for _, vh := range vhits {
		vh := vh
		merged[vh.ChunkID] = &Hit{
			Chunk:       vh.Chunk,
			VectorRank:  &vh.Rank,
			VectorScore: &vh.Score,
		}
	}

	for _, kh := range khits {
		kh := kh
		if h, ok := merged[kh.ChunkID]; ok {
			h.KeywordRank = &kh.Rank
			h.KeywordScore = &kh.Score
		} else {
			merged[kh.ChunkID] = &Hit{
				Chunk:        kh.Chunk,
				KeywordRank:  &kh.Rank,
				KeywordScore: &kh.Score,
			}
		}
	}

	hits := make([]Hit, 0, len(merged))
	for _, h := range merged {
		score := 0.0
		if h.VectorRank != nil {
			score += w.Vector / (k + float64(*h.VectorRank))
		}
		if h.KeywordRank != nil {
			score += w.Keyword / (k + float64(*h.KeywordRank))
		}
		h.RrfScore = &score
		hits = append(hits, *h)
	}

	sortHits(hits)
	return hits
}

// addContext attaches neighboring chunks to each hit. Context failures are
// logged and skipped; the hit itself is still returned.
func (s *Service) addContext(ctx context.Context, hits []Hit, radius int) {
	for i := range hits {
		before, after, err := s.store.GetContext(ctx, hits[i].EmailID, hits[i].ChunkNumber, radius)
		if err != nil {
			s.log.Warn().Err(err).Str("chunk_id", hits[i].ChunkID).Msg("context expansion failed")
			continue
		}
		hits[i].ContextBefore = before
		hits[i].ContextAfter = after
	}
}

// Stats gathers statistics from both backends
func (s *Service) Stats(ctx context.Context) (*StatsResponse, error) {
	resp := &StatsResponse{
		Config: ConfigInfo{
			Hash:       s.cfg.Hash(),
			Collection: s.cfg.Milvus.ChunkCollection,
			Model:      s.cfg.Embedding.Model,
			Dimension:  s.cfg.Embedding.Dimension,
		},
		Timestamp: time.Now().UTC(),
	}

	if s.vector != nil {
		ms, err := s.vector.Stats(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("failed to get Milvus stats")
		}
		resp.Milvus = ms
	}

	if s.keyword != nil {
		ss, err := s.keyword.Stats(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("failed to get SQLite stats")
		}
		resp.SQLite = ss
	}

	return resp, nil
}

// Health performs a quick liveness check of each component
func (s *Service) Health(ctx context.Context) *HealthResponse {
	resp := &HealthResponse{Timestamp: time.Now().UTC()}

	if s.vector != nil {
		_, err := s.vector.Stats(ctx)
		resp.Milvus = err == nil
	}
	if s.keyword != nil {
		ss, err := s.keyword.Stats(ctx)
		resp.SQLite = err == nil && ss.Connected
	}
	if s.embedder != nil {
		resp.Embedding = s.embedder.IsAvailable(ctx)
	}

	switch {
	case resp.SQLite && resp.Milvus && resp.Embedding:
		resp.Status = "ok"
	case resp.SQLite || resp.Milvus:
		resp.Status = "degraded"
	default:
		resp.Status = "unhealthy"
	}
	return resp
}

// Close releases backend connections
func (s *Service) Close() error {
	if s.vector != nil {
		return s.vector.Close()
	}
	return nil
}
