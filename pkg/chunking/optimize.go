package chunking

import (
	"github.com/rs/zerolog/log"
)

// OptimizeForSearch prepends subject/sender context to every non-header
// chunk and recomputes its counts, then stamps the search weight derived
// from relevance. Header chunks pass through untouched: their content is
// the metadata already.
func OptimizeForSearch(chunks []Chunk, ctx Context) []Chunk {
	for i := range chunks {
		chunk := &chunks[i]
		if chunk.Type == ChunkHeader {
			continue
		}

		prefix := contextPrefix(ctx)
		if prefix != "" {
			chunk.Content = prefix + "\n\n" + chunk.Content
			// Counts must never go stale after a content mutation.
			chunk.TokenCount = EstimateTokens(chunk.Content)
			chunk.WordCount = CountWords(chunk.Content)
			chunk.HasContext = true
		}

		chunk.SearchWeight = WeightForRelevance(chunk.Relevance)
		chunk.OptimizedForSearch = true
	}
	return chunks
}

func contextPrefix(ctx Context) string {
	switch {
	case ctx.Subject != "" && ctx.SenderName != "":
		return "Email Subject: " + ctx.Subject + " | From: " + ctx.SenderName
	case ctx.Subject != "":
		return "Email Subject: " + ctx.Subject
	case ctx.SenderName != "":
		return "From: " + ctx.SenderName
	default:
		return ""
	}
}

// WeightForRelevance maps relevance to the scoring-profile weight sent to
// the search index.
func WeightForRelevance(r Relevance) float64 {
	switch r {
	case RelevanceHigh:
		return 1.0
	case RelevanceMedium:
		return 0.7
	case RelevanceLow:
		return 0.3
	default:
		log.Error().Str("relevance", string(r)).Msg("unknown relevance, defaulting search weight to 0.5")
		return 0.5
	}
}
