package chunking

import (
	"math"
	"strings"
)

// Readiness thresholds. Chunks outside these bounds embed poorly or return
// meaningless search hits.
const (
	readinessMinTokens  = 32
	readinessMaxTokens  = 512
	readinessMinContent = 10
)

// Quality score token window. Scoring peaks at the target size and falls
// linearly toward the window edges; outside the window the token component
// contributes nothing. The discontinuity at the 128/512 boundaries is
// intentional: a chunk just outside the window is penalized the same as one
// far outside it.
const (
	scoreWindowLow   = 128
	scoreWindowHigh  = 512
	scoreTokenTarget = 384
)

// ScoreChunk computes the additive retrieval-fitness score, clamped to
// [0,100] and rounded to one decimal.
func ScoreChunk(c *Chunk) float64 {
	score := 0.0

	if c.TokenCount >= scoreWindowLow && c.TokenCount <= scoreWindowHigh {
		distance := math.Abs(float64(c.TokenCount - scoreTokenTarget))
		score += (1 - distance/scoreTokenTarget) * 30
	}

	if strings.HasSuffix(c.Content, ".") {
		score += 10
	}
	if c.WordCount > 10 {
		score += 10
	}
	if strings.TrimSpace(c.Content) != "" {
		score += 20
	}
	if c.Type == ChunkHeader {
		score += 15
	}
	if c.HasContext {
		score += 10
	}

	switch c.Relevance {
	case RelevanceHigh:
		score += 5
	case RelevanceMedium:
		score += 3
	case RelevanceLow:
		score += 1
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return math.Round(score*10) / 10
}

// CheckReadiness gates a chunk for indexing. Issues accumulate
// independently; any issue fails the gate.
func CheckReadiness(c *Chunk) Readiness {
	var issues []string

	if c.TokenCount < readinessMinTokens {
		issues = append(issues, "token count too low for effective embeddings")
	}
	if c.TokenCount > readinessMaxTokens {
		issues = append(issues, "token count exceeds embedding limit")
	}
	if len(c.Content) < readinessMinContent {
		issues = append(issues, "content too short for meaningful search")
	}
	if strings.TrimSpace(c.Content) == "" {
		issues = append(issues, "empty or whitespace-only content")
	}

	readiness := Readiness{
		IsReady: len(issues) == 0,
		Issues:  issues,
	}
	if readiness.IsReady {
		readiness.Score = 100
	} else {
		readiness.Score = 100 - len(issues)*25
		if readiness.Score < 0 {
			readiness.Score = 0
		}
	}
	return readiness
}
