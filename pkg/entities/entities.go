// Package entities pulls lightweight entity mentions out of email text with
// a fixed regex catalog. The output enriches search documents; it is not a
// NER system and precision is tuned for email prose.
package entities

import (
	"regexp"
	"strings"
)

var patterns = map[string]*regexp.Regexp{
	"email": regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`),
	"phone": regexp.MustCompile(`\+?\d[\d\s().\-]{7,}\d`),
	"url":   regexp.MustCompile(`https?://[^\s<>"')\]]+`),
	"date":  regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2}|\d{1,2}[./]\d{1,2}[./]\d{2,4}|(?i:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]* \d{1,2},? \d{4})\b`),
	"money": regexp.MustCompile(`(?i)([$€£]\s?\d[\d,.]*|\d[\d,.]*\s?(?:USD|EUR|GBP|PLN|zł))`),
}

// Extract returns the unique entity mentions found in text, keyed by entity
// kind. Kinds with no matches are absent from the map; empty input returns
// an empty map.
func Extract(text string) map[string][]string {
	out := make(map[string][]string)
	if strings.TrimSpace(text) == "" {
		return out
	}

	for kind, re := range patterns {
		matches := re.FindAllString(text, -1)
		if len(matches) == 0 {
			continue
		}
		seen := make(map[string]struct{}, len(matches))
		for _, m := range matches {
			m = strings.TrimSpace(m)
			if kind == "url" {
				m = strings.TrimRight(m, ".,;:!?")
			}
			// The phone pattern is loose enough to swallow ISO dates.
			if kind == "phone" && patterns["date"].MatchString(m) {
				continue
			}
			if _, dup := seen[m]; dup || m == "" {
				continue
			}
			seen[m] = struct{}{}
			out[kind] = append(out[kind], m)
		}
	}
	return out
}

// Merge folds extracted entities into an existing map without duplicating
// mentions. Used when the extractor already supplied entities with the
// record and chunk-level extraction adds more.
func Merge(dst, src map[string][]string) map[string][]string {
	if dst == nil {
		dst = make(map[string][]string)
	}
	for kind, values := range src {
		seen := make(map[string]struct{}, len(dst[kind]))
		for _, v := range dst[kind] {
			seen[v] = struct{}{}
		}
		for _, v := range values {
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			dst[kind] = append(dst[kind], v)
		}
	}
	return dst
}
