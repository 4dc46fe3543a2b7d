// Package parse turns a provider's loosely structured free-text answer into
// ranked ParsedResultItem records.
//
// The pipeline is Segment → ExtractBlocks → ParseFields → Merge. Every stage is
// pure and never fails: unparseable input degrades to fewer fields, fewer
// items, or a single synthetic item.
package parse

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	// Headings that start the analysis sections following the item list.
	trailerHeading = regexp.MustCompile(`(?im)^[ \t]*(?:#{1,6}[ \t]*)?(?:\*\*)?[ \t]*(?:ranking[ _]analysis|improvement[ _]recommendations)\b`)

	// Summary line used by simpler prompt variants.
	keywordLine = regexp.MustCompile(`(?im)^[ \t]*(?:\*\*)?keyword(?:[ \t]+position)?(?:\*\*)?[ \t]*:`)

	// Start of the machine-readable block, fenced or bare.
	jsonTrailer = regexp.MustCompile("(?im)^[ \t]*```json|\\{[ \t\r\n]*\"(?:ranking_analysis|improvement_recommendations|keyword_position)\"")

	// Heading of a shared reasoning block that applies to every item.
	reasonsHeading = regexp.MustCompile(`(?im)^[ \t]*(?:#{1,6}[ \t]*)?(?:\*\*)?[ \t]*(?:reasons[ \t]+panel|why[ \t]+these[ \t]+rankings)[ \t]*(?:\*\*)?[ \t]*:?[ \t]*(?:\*\*)?[ \t]*$`)
)

// normalize folds compatibility characters (non-breaking spaces, full-width
// digits) to their plain forms and unifies line endings.
func normalize(text string) string {
	text = norm.NFKC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

// Segment returns the item-list region of a raw response: everything before
// the first trailing analysis heading, keyword summary line, JSON block or
// reasons panel. Whitespace-only input yields "".
func Segment(raw string) string {
	text := normalize(raw)
	cut := firstIndex(text, trailerHeading, keywordLine, jsonTrailer, reasonsHeading)
	return strings.TrimSpace(text[:cut])
}

// ReasonsPanel returns the body of a shared "Reasons Panel" block, or "" when
// the response has none.
func ReasonsPanel(raw string) string {
	text := normalize(raw)
	loc := reasonsHeading.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	rest := text[loc[1]:]
	rest = rest[:firstIndex(rest, trailerHeading, keywordLine, jsonTrailer)]
	return strings.TrimSpace(rest)
}

// firstIndex returns the earliest match start of any pattern, or len(text).
func firstIndex(text string, patterns ...*regexp.Regexp) int {
	cut := len(text)
	for _, p := range patterns {
		if loc := p.FindStringIndex(text); loc != nil && loc[0] < cut {
			cut = loc[0]
		}
	}
	return cut
}
