package chunking

import (
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"msgrag/pkg/email"
	"msgrag/pkg/ragconfig"
)

// ChunkEmail runs the full chunking pipeline for one email.
//
// An email with no resolvable content is not an error: the result carries
// an empty chunk list and a warning. An error return means the pipeline
// itself failed; the batch layer records it against the one file and moves
// on.
func ChunkEmail(rec *email.Record, cfg *ragconfig.Config) (*Result, error) {
	now := time.Now().UTC()

	raw := email.ResolveContent(rec)
	ctx := Context{
		EmailID:        rec.NormalizedID(),
		Subject:        rec.Subject,
		SenderName:     rec.Sender.Name,
		IsHTML:         strings.TrimSpace(rec.Body) == "" && strings.TrimSpace(rec.HTMLBody) != "",
		OriginalLength: len(raw),
		ProcessedAt:    now,
	}
	if ctx.SenderName == "" {
		ctx.SenderName = rec.Sender.Email
	}

	result := &Result{Context: ctx, ProcessedAt: now}

	if strings.TrimSpace(raw) == "" {
		log.Warn().Str("email_id", ctx.EmailID).Msg("email has no resolvable content, skipping chunking")
		result.Warnings = append(result.Warnings, "no resolvable content")
		result.Report = BuildReport(nil)
		return result, nil
	}

	content := email.Preprocess(raw)

	var sections []Section
	if cfg.Chunking.PreserveStructure {
		var degraded bool
		sections, degraded = ExtractStructure(content)
		if degraded {
			result.Warnings = append(result.Warnings, "structure extraction degraded to single body section")
		}
	} else {
		sections = []Section{{Type: SectionBody, Content: content}}
	}

	result.Context.HasQuoteChain = HasQuoteChain(sections)
	result.Context.HasSignature = HasSignature(sections)

	var chunks []Chunk
	if header := BuildHeaderChunk(rec); header != nil {
		chunks = append(chunks, *header)
	} else {
		result.Warnings = append(result.Warnings, "header chunk omitted")
	}

	for _, section := range sections {
		chunks = append(chunks, ChunkSection(section, cfg)...)
	}

	if cfg.Chunking.OptimizeForSearch {
		chunks = OptimizeForSearch(chunks, result.Context)
	}

	// Metadata and scoring always run; downstream indexing depends on the
	// linkage and readiness fields.
	chunks = AssignMetadata(chunks, result.Context)

	result.Chunks = chunks
	result.Report = BuildReport(chunks)

	log.Debug().
		Str("email_id", ctx.EmailID).
		Int("chunks", len(chunks)).
		Float64("avg_quality", result.Report.AvgQuality).
		Msg("chunked email")

	return result, nil
}

// BuildReport aggregates chunk quality for one email.
func BuildReport(chunks []Chunk) QualityReport {
	report := QualityReport{TotalChunks: len(chunks)}
	if len(chunks) == 0 {
		return report
	}

	tokenSum := 0
	qualitySum := 0.0
	optimal := 0
	report.MinTokens = chunks[0].TokenCount
	report.MaxTokens = chunks[0].TokenCount

	for _, c := range chunks {
		tokenSum += c.TokenCount
		qualitySum += c.QualityScore
		if c.TokenCount < report.MinTokens {
			report.MinTokens = c.TokenCount
		}
		if c.TokenCount > report.MaxTokens {
			report.MaxTokens = c.TokenCount
		}
		if c.Readiness.IsReady {
			report.ReadyChunks++
		}
		if c.TokenCount >= OptimalWindowLow && c.TokenCount <= OptimalWindowHigh {
			optimal++
		}
	}

	n := float64(len(chunks))
	report.AvgTokens = round1(float64(tokenSum) / n)
	report.AvgQuality = round1(qualitySum / n)
	report.ReadyPercent = round1(100 * float64(report.ReadyChunks) / n)
	report.OptimalPercent = round1(100 * float64(optimal) / n)
	return report
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
