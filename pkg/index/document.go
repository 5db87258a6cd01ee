// Package index turns scored chunks into search documents and pushes them
// into the Milvus collection. The SQLite side (BM25) is populated by
// storage; this package owns the vector side.
package index

import (
	"encoding/json"

	"msgrag/pkg/storage"
	"msgrag/pkg/util"
)

// Milvus VarChar limits for the chunk collection.
const (
	maxIDLen       = 128
	maxSubjectLen  = 1024
	maxSenderLen   = 512
	maxContentLen  = 8192
	maxEntitiesLen = 4096
	maxTypeLen     = 16
)

// Document is one search-engine record derived from a stored chunk.
type Document struct {
	ID                  string              `json:"id"`
	Content             string              `json:"content"`
	ParentID            string              `json:"parent_id"`
	ChunkNumber         int                 `json:"chunk_number"`
	TotalChunks         int                 `json:"total_chunks"`
	EmailSubject        string              `json:"email_subject"`
	SenderName          string              `json:"sender_name"`
	SentDateMs          int64               `json:"sent_date,omitempty"`
	ChunkType           string              `json:"chunk_type"`
	SearchRelevance     string              `json:"search_relevance"`
	SearchWeight        float64             `json:"search_weight"`
	ContentQualityScore float64             `json:"content_quality_score"`
	Entities            map[string][]string `json:"entities,omitempty"`
	Vector              []float32           `json:"content_vector,omitempty"`
}

// FromChunk maps a stored chunk row to its search document. The quality
// score is rescaled from 0-100 to 0-1 so scoring profiles can multiply it
// directly into rank expressions.
func FromChunk(c *storage.ChunkRow, subject, senderName string, sentDateMs int64) Document {
	return Document{
		ID:                  util.TruncateExact(c.ChunkID, maxIDLen),
		Content:             util.TruncateExact(c.Content, maxContentLen-1),
		ParentID:            util.TruncateExact(c.EmailID, maxIDLen),
		ChunkNumber:         c.ChunkNumber,
		TotalChunks:         c.TotalChunks,
		EmailSubject:        util.TruncateExact(subject, maxSubjectLen-1),
		SenderName:          util.TruncateExact(senderName, maxSenderLen-1),
		SentDateMs:          sentDateMs,
		ChunkType:           c.ChunkType,
		SearchRelevance:     c.SearchRelevance,
		SearchWeight:        c.SearchWeight,
		ContentQualityScore: c.QualityScore / 100,
		Entities:            c.Entities,
	}
}

// entitiesJSON encodes a document's entity map for the VarChar field,
// trimming whole kinds when the encoding is over the column limit.
func entitiesJSON(ents map[string][]string) string {
	if len(ents) == 0 {
		return "{}"
	}
	data, err := json.Marshal(ents)
	if err != nil {
		return "{}"
	}
	if len(data) < maxEntitiesLen {
		return string(data)
	}
	// Drop the largest kind until it fits.
	for len(ents) > 0 {
		largest := ""
		for kind := range ents {
			if largest == "" || len(ents[kind]) > len(ents[largest]) {
				largest = kind
			}
		}
		delete(ents, largest)
		data, _ = json.Marshal(ents)
		if len(data) < maxEntitiesLen {
			return string(data)
		}
	}
	return "{}"
}
