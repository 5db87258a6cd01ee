package chunking

import (
	"fmt"
)

// AssignMetadata runs the final forward pass over the complete, ordered
// chunk list: IDs, dense 1..N numbering, prev/next linkage, uniform email
// context, and per-chunk scoring. Scoring happens here rather than earlier
// because it reads fields (HasContext, counts) set by the preceding passes.
func AssignMetadata(chunks []Chunk, ctx Context) []Chunk {
	total := len(chunks)

	for i := range chunks {
		chunks[i].ID = fmt.Sprintf("%s_chunk_%d", ctx.EmailID, i+1)
	}

	for i := range chunks {
		chunk := &chunks[i]
		chunk.ChunkNumber = i + 1
		chunk.TotalChunks = total
		chunk.IsFirst = i == 0
		chunk.IsLast = i == total-1

		if i > 0 {
			chunk.PreviousChunkID = chunks[i-1].ID
		}
		if i < total-1 {
			chunk.NextChunkID = chunks[i+1].ID
		}

		chunk.ParentEmailID = ctx.EmailID
		chunk.EmailSubject = ctx.Subject
		chunk.SenderName = ctx.SenderName
		chunk.ProcessedAt = ctx.ProcessedAt

		chunk.QualityScore = ScoreChunk(chunk)
		chunk.Readiness = CheckReadiness(chunk)
	}

	return chunks
}
