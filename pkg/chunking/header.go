package chunking

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"msgrag/pkg/email"
)

// headerDateFormat keeps header chunks deterministic across runs.
const headerDateFormat = "Mon, 02 Jan 2006 15:04"

// BuildHeaderChunk synthesizes a high-priority chunk from the email's
// metadata so subject, sender, recipients, date and attachment names are
// retrievable even when the body never repeats them. Returns nil when the
// record yields no header lines or on an internal fault; a missing header
// never aborts the pipeline.
func BuildHeaderChunk(rec *email.Record) (chunk *Chunk) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Str("email_id", rec.NormalizedID()).
				Msg("header chunk construction failed, omitting header")
			chunk = nil
		}
	}()

	var lines []string

	if rec.Subject != "" {
		lines = append(lines, "Subject: "+rec.Subject)
	}
	if from := rec.Sender.Display(); from != "" {
		lines = append(lines, "From: "+from)
	}
	if to := joinAddresses(rec.To); to != "" {
		lines = append(lines, "To: "+to)
	}
	if cc := joinAddresses(rec.CC); cc != "" {
		lines = append(lines, "CC: "+cc)
	}
	if date := headerDate(rec); date != "" {
		lines = append(lines, "Date: "+date)
	}
	if len(rec.Attachments) > 0 {
		names := make([]string, 0, len(rec.Attachments))
		for _, att := range rec.Attachments {
			if att.FileName != "" {
				names = append(names, att.FileName)
			}
		}
		if len(names) > 0 {
			lines = append(lines, "Attachments: "+strings.Join(names, ", "))
		}
	}

	if len(lines) == 0 {
		return nil
	}

	content := strings.Join(lines, "\n")
	return &Chunk{
		Type:             ChunkHeader,
		Content:          content,
		TokenCount:       EstimateTokens(content),
		WordCount:        CountWords(content),
		IsHeader:         true,
		ContainsMetadata: true,
		Relevance:        RelevanceHigh,
		Priority:         PriorityCritical,
	}
}

func joinAddresses(addrs []email.Address) string {
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if s := a.Display(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

func headerDate(rec *email.Record) string {
	var t time.Time
	switch {
	case !rec.SentDate.IsZero():
		t = rec.SentDate
	case !rec.ReceivedDate.IsZero():
		t = rec.ReceivedDate
	default:
		return ""
	}
	return t.Format(headerDateFormat)
}
