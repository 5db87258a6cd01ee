package email

import (
	"regexp"
	"strings"
)

var (
	htmlTagPattern    = regexp.MustCompile(`(?s)<[^>]*>`)
	htmlScriptPattern = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	spaceRunPattern   = regexp.MustCompile(`[ \t]{2,}`)
	blankRunPattern   = regexp.MustCompile(`\n{3,}`)
)

// ResolveContent picks the best available body text for chunking, in
// descending order of preference: cleaned text, extracted text, plain body,
// HTML body stripped of markup. Returns "" when the record has no usable
// content.
func ResolveContent(rec *Record) string {
	for _, candidate := range []string{rec.CleanedText, rec.ExtractedText, rec.Body} {
		if strings.TrimSpace(candidate) != "" {
			return candidate
		}
	}
	if strings.TrimSpace(rec.HTMLBody) != "" {
		return StripHTML(rec.HTMLBody)
	}
	return ""
}

// StripHTML removes script/style blocks and tags, decoding the handful of
// entities that matter for plain-text search. Not a full HTML parser; the
// extractor normally supplies plain text and this is the fallback path.
func StripHTML(html string) string {
	text := htmlScriptPattern.ReplaceAllString(html, " ")
	text = regexp.MustCompile(`(?i)<br\s*/?>`).ReplaceAllString(text, "\n")
	text = regexp.MustCompile(`(?i)</(p|div|tr|li|h[1-6])>`).ReplaceAllString(text, "\n")
	text = htmlTagPattern.ReplaceAllString(text, " ")

	replacer := strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	)
	return replacer.Replace(text)
}

// Preprocess normalizes text ahead of structure extraction: CRLF/CR to LF,
// runs of spaces and tabs collapsed, each line trimmed, and runs of three or
// more blank lines collapsed to a single blank line.
func Preprocess(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = spaceRunPattern.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")

	text = blankRunPattern.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
