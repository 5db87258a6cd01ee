package chunking

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"msgrag/pkg/ragconfig"
)

// Empirical token-to-word ratio used when sizing the overlap seed in words.
const overlapWordRatio = 1.33

// Greedy match through the last sentence boundary in an overlap candidate;
// the seed starts after it.
var overlapBoundaryPattern = regexp.MustCompile(`(?s)^.*[.!?]\s*`)

// ChunkSection splits one section into token-bounded chunks.
//
// Sections that fit within the target budget become a single chunk. Larger
// sections are split at sentence boundaries with an overlap tail carried
// from each flushed chunk into the next. Chunk numbers assigned here are
// local to the section; AssignMetadata renumbers globally.
func ChunkSection(section Section, cfg *ragconfig.Config) []Chunk {
	content := strings.TrimSpace(section.Content)
	if content == "" {
		return nil
	}

	budget := cfg.Chunking

	// Fast path: the whole section fits in one chunk.
	if EstimateTokens(content) <= budget.TargetTokens {
		return []Chunk{newSectionChunk(section, content)}
	}

	sentences := SplitSentences(content)
	if len(sentences) == 0 {
		return []Chunk{newSectionChunk(section, content)}
	}

	var chunks []Chunk
	var buf string

	flush := func() {
		chunk := newSectionChunk(section, buf)
		chunk.ChunkNumber = len(chunks) + 1
		chunks = append(chunks, chunk)
	}

	for _, sentence := range sentences {
		if buf != "" && EstimateTokens(buf)+EstimateTokens(sentence) > budget.MaxTokens {
			flush()
			seed := overlapTail(buf, budget.OverlapTokens)
			if seed != "" {
				buf = seed + " " + sentence
			} else {
				buf = sentence
			}
			continue
		}
		if buf == "" {
			buf = sentence
		} else {
			buf = buf + " " + sentence
		}
	}

	// Trailing buffer below the minimum budget is a policy point: the
	// original system silently dropped it.
	if buf != "" {
		switch {
		case EstimateTokens(buf) >= budget.MinTokens:
			flush()
		case cfg.Chunking.TailPolicy == ragconfig.TailMerge && len(chunks) > 0:
			last := &chunks[len(chunks)-1]
			last.Content = last.Content + " " + buf
			last.TokenCount = EstimateTokens(last.Content)
			last.WordCount = CountWords(last.Content)
		case cfg.Chunking.TailPolicy == ragconfig.TailEmit:
			flush()
		default:
			log.Debug().
				Str("section", string(section.Type)).
				Int("tokens", EstimateTokens(buf)).
				Msg("dropping undersized trailing buffer")
		}
	}

	return chunks
}

// newSectionChunk builds a chunk carrying the section-derived metadata.
// Ordering and email-context fields are filled in later passes.
func newSectionChunk(section Section, content string) Chunk {
	return Chunk{
		Type:          ChunkType(section.Type),
		Content:       content,
		TokenCount:    EstimateTokens(content),
		WordCount:     CountWords(content),
		SectionType:   section.Type,
		ContainsQuote: section.IsQuoted,
		IsSignature:   section.Type == SectionSignature,
		Relevance:     RelevanceForSection(section.Type),
	}
}

// overlapTail returns the trailing words of a flushed buffer to seed the
// next chunk, sized at roughly overlapTokens*1.33 words and trimmed forward
// to the last sentence boundary when one exists. Without a boundary the raw
// word fragment is used verbatim, so a chunk can open mid-sentence; this is
// accepted for reproducible chunk boundaries.
func overlapTail(text string, overlapTokens int) string {
	if overlapTokens <= 0 {
		return ""
	}

	words := strings.Fields(text)
	want := int(float64(overlapTokens) * overlapWordRatio)
	if want <= 0 {
		return ""
	}
	if want > len(words) {
		want = len(words)
	}

	tail := strings.Join(words[len(words)-want:], " ")

	if loc := overlapBoundaryPattern.FindStringIndex(tail); loc != nil {
		if trimmed := strings.TrimSpace(tail[loc[1]:]); trimmed != "" {
			return trimmed
		}
	}
	return tail
}

// RelevanceForSection maps a section type to its retrieval relevance.
func RelevanceForSection(t SectionType) Relevance {
	switch t {
	case SectionBody:
		return RelevanceHigh
	case SectionQuote:
		return RelevanceMedium
	case SectionSignature:
		return RelevanceLow
	default:
		log.Error().Str("section_type", string(t)).Msg("unknown section type, defaulting relevance to Medium")
		return RelevanceMedium
	}
}
