package chunking

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

var (
	// Lines that open a quoted reply block.
	quoteStartPattern = regexp.MustCompile(`^(>|On .+ wrote:|From:.*Sent:)`)

	// Lines that open a signature block. Once matched, everything to the end
	// of the content belongs to the signature.
	signaturePattern = regexp.MustCompile(`(?i)^(--\s*$|best regards\b|kind regards\b|warm regards\b|sincerely\b|thanks[,!]?\s*$|thank you[,!]?\s*$|cheers[,!]?\s*$|sent from my (iphone|ipad|android|mobile|windows phone))`)
)

// ExtractStructure splits a preprocessed email body into ordered Body, Quote
// and Signature sections. Quote detection is line-anchored; a quote section
// keeps accumulating lines until another quote start or a signature line. A
// signature section is terminal: it absorbs every remaining line.
//
// The degraded return is true when extraction hit an internal fault and fell
// back to a single Body section wrapping the whole input. Callers never see
// an error from this function.
func ExtractStructure(content string) (sections []Section, degraded bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Msg("structure extraction failed, falling back to single body section")
			sections = []Section{{Type: SectionBody, Content: content}}
			degraded = true
		}
	}()

	if strings.TrimSpace(content) == "" {
		return nil, false
	}

	lines := strings.Split(content, "\n")

	current := Section{Type: SectionBody}
	var buf []string

	flush := func() {
		text := strings.Join(buf, "\n")
		if strings.TrimSpace(text) != "" {
			current.Content = text
			sections = append(sections, current)
		}
		buf = nil
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if signaturePattern.MatchString(line) {
			flush()
			// Terminal: all remaining lines are one signature section.
			sections = append(sections, Section{
				Type:      SectionSignature,
				Content:   strings.Join(lines[i:], "\n"),
				StartLine: i,
			})
			return sections, false
		}

		if quoteStartPattern.MatchString(line) && current.Type != SectionQuote {
			flush()
			current = Section{Type: SectionQuote, StartLine: i, IsQuoted: true}
			buf = append(buf, line)
			continue
		}

		buf = append(buf, line)
	}
	flush()

	if len(sections) == 0 {
		return []Section{{Type: SectionBody, Content: content}}, false
	}
	return sections, false
}

// HasQuoteChain reports whether any extracted section is a quote. Used when
// building the per-email context flags.
func HasQuoteChain(sections []Section) bool {
	for _, s := range sections {
		if s.Type == SectionQuote {
			return true
		}
	}
	return false
}

// HasSignature reports whether the section list ends in a signature.
func HasSignature(sections []Section) bool {
	return len(sections) > 0 && sections[len(sections)-1].Type == SectionSignature
}
