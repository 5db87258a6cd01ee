package rag

import (
	"fmt"
	"strings"
)

// ValidateSearchRequest checks a request for obvious problems before the
// service normalizes it. Limit and context clamping happens later; this only
// rejects requests that cannot be served at all.
func ValidateSearchRequest(req *SearchRequest) error {
	if strings.TrimSpace(req.Query) == "" {
		return fmt.Errorf("query must not be empty")
	}

	switch req.Mode {
	case "", ModeVector, ModeKeyword, ModeHybrid:
	case "bm25":
		// Accepted alias for keyword mode
	default:
		return fmt.Errorf("unknown search mode %q (want vector, keyword, or hybrid)", req.Mode)
	}

	if req.Limit < 0 {
		return fmt.Errorf("limit must not be negative")
	}
	if req.Context < 0 {
		return fmt.Errorf("context must not be negative")
	}

	return nil
}

// SanitizeQuery trims and collapses whitespace in the query string.
func SanitizeQuery(q string) string {
	return strings.Join(strings.Fields(q), " ")
}
