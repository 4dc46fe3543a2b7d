package parse

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/publicsuffix"
)

const maxDescriptionLen = 400

// Fields are the values parsed out of one item block. Empty means absent.
type Fields struct {
	Title       string
	Description string
	Rating      string
	Price       string
	Website     string
	Why         string
	Category    string
	Citations   []string
}

var (
	// A labeled line such as "Description:", "- **Rating:**" or "**Price**:".
	labelLine = regexp.MustCompile(`(?im)^[ \t]*(?:[-*•][ \t]+)?(?:\*\*)?[ \t]*(title|name|description|rating|price(?:[ \t]+range)?|website|url|why[ \t]+this[ \t]+position|why|reason(?:ing)?|category)[ \t]*(?:\*\*)?[ \t]*:[ \t]*(?:\*\*)?[ \t]*`)

	ratingValue     = regexp.MustCompile(`(?i)(?:^|[^\d.])(\d(?:\.\d+)?)[ \t]*(?:/[ \t]*5(?:\.0)?\b|out[ \t]+of[ \t]+5\b)`)
	bareRatingValue = regexp.MustCompile(`^(\d(?:\.\d+)?)\b`)
	priceToken      = regexp.MustCompile(`\$[ \t]?\d[\d,]*`)
	inlinePrice     = regexp.MustCompile(`(?i)\bprice[^\n$]{0,40}(\$[ \t]?\d[\d,]*)`)
	urlToken        = regexp.MustCompile(`(?i)\bhttps?://[^\s)\]>"'*]+`)
	markdownLink    = regexp.MustCompile(`\[([^\]]*)\]\(([^)]*)\)`)
	italic          = regexp.MustCompile(`\*([^*\n]+)\*`)
	headingPrefix   = regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]*`)
	schemePrefix    = regexp.MustCompile(`^[a-z][a-z0-9+.-]*://`)
	nonDomainChars  = regexp.MustCompile(`[^a-z0-9.-]`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
	stabilityWords  = regexp.MustCompile(`stability|motion control|overpronation`)
)

var typoFixes = strings.NewReplacer(
	"returr", "return",
	"recieve", "receive",
	"accomodation", "accommodation",
	"seperate", "separate",
	"definately", "definitely",
	" teh ", " the ",
)

// fieldMatcher extracts one field from a block, returning "" when it cannot.
type fieldMatcher func(b *blockView) string

// firstMatch evaluates matchers in order until one produces a value.
func firstMatch(b *blockView, matchers ...fieldMatcher) string {
	for _, m := range matchers {
		if v := m(b); v != "" {
			return v
		}
	}
	return ""
}

// blockView is a block split into non-empty lines and labeled sections.
type blockView struct {
	text     string
	lines    []string
	sections map[string]string
	shareWhy string
}

func newBlockView(text, sharedWhy string) *blockView {
	b := &blockView{
		text:     text,
		sections: make(map[string]string),
		shareWhy: sharedWhy,
	}
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			b.lines = append(b.lines, l)
		}
	}

	locs := labelLine.FindAllStringSubmatchIndex(text, -1)
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		key := canonicalLabel(text[loc[2]:loc[3]])
		if _, dup := b.sections[key]; dup {
			continue
		}
		b.sections[key] = strings.TrimSpace(text[loc[1]:end])
	}
	return b
}

func canonicalLabel(label string) string {
	label = strings.ToLower(whitespaceRun.ReplaceAllString(label, " "))
	switch {
	case label == "name":
		return "title"
	case strings.HasPrefix(label, "price"):
		return "price"
	case label == "url":
		return "website"
	case strings.HasPrefix(label, "why"), strings.HasPrefix(label, "reason"):
		return "why"
	default:
		return label
	}
}

// ParseFields extracts the structural fields of one item block. sharedWhy is
// the response-wide reasons panel used when the block carries no reasoning of
// its own. Title falls back to "" here; callers substitute "Result #N".
func ParseFields(blockText, sharedWhy string) Fields {
	b := newBlockView(normalize(blockText), sharedWhy)

	title, inlineDesc := parseTitle(b)
	f := Fields{
		Title:   title,
		Rating:  firstMatch(b, ratingFromSection, ratingFromText),
		Price:   firstMatch(b, priceFromSection, priceFromText),
		Website: websiteFromSection(b),
		Why:     firstMatch(b, whyFromSection, whyFromPanel),
	}

	desc := firstMatch(b, descriptionFromSection, descriptionFromSecondLine)
	if desc == "" {
		desc = inlineDesc
	}
	f.Description = cleanDescription(desc)
	f.Category = inferCategory(f.Title + " " + f.Description)
	f.Citations = citationDomains(b.text)
	return f
}

// parseTitle returns the cleaned title and, for unlabeled one-line blocks in
// the "Name - blurb" shape, the blurb as an inline description.
func parseTitle(b *blockView) (string, string) {
	var line string
	if v, ok := b.sections["title"]; ok && v != "" {
		line = strings.SplitN(v, "\n", 2)[0]
	} else if len(b.lines) > 0 {
		line = b.lines[0]
		if loc := labelLine.FindStringIndex(line); loc != nil {
			// First line is some other labeled field; no usable title.
			return "", ""
		}
	}

	var inline string
	if len(b.sections) == 0 && len(b.lines) == 1 {
		for _, sep := range []string{" - ", " – ", " — "} {
			if i := strings.Index(line, sep); i > 0 {
				line, inline = line[:i], line[i+len(sep):]
				break
			}
		}
	}

	line = strings.ReplaceAll(line, `\:`, ":")
	line = stripMarkdown(line)
	line = strings.TrimRight(strings.TrimSpace(line), ":-– ")
	return strings.TrimSpace(line), inline
}

func descriptionFromSection(b *blockView) string {
	return b.sections["description"]
}

func descriptionFromSecondLine(b *blockView) string {
	if len(b.lines) < 2 || labelLine.MatchString(b.lines[1]) {
		return ""
	}
	return b.lines[1]
}

func ratingFromSection(b *blockView) string {
	v := b.sections["rating"]
	if v == "" {
		return ""
	}
	if r := matchRating(v); r != "" {
		return r
	}
	if m := bareRatingValue.FindStringSubmatch(v); m != nil {
		if n, err := strconv.ParseFloat(m[1], 64); err == nil && n <= 5 {
			return formatRating(n)
		}
	}
	return ""
}

func ratingFromText(b *blockView) string {
	return matchRating(b.text)
}

func matchRating(s string) string {
	m := ratingValue.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return ""
	}
	return formatRating(n)
}

// formatRating renders one decimal place, rounding half up (4.75 → 4.8, 4.25 → 4.3).
func formatRating(n float64) string {
	return fmt.Sprintf("%.1f/5", math.Floor(n*10+0.5)/10)
}

func priceFromSection(b *blockView) string {
	return compactPrice(priceToken.FindString(b.sections["price"]))
}

func priceFromText(b *blockView) string {
	if m := inlinePrice.FindStringSubmatch(b.text); m != nil {
		return compactPrice(m[1])
	}
	return ""
}

func compactPrice(tok string) string {
	return strings.Join(strings.Fields(tok), "")
}

func websiteFromSection(b *blockView) string {
	v := b.sections["website"]
	if v == "" {
		return ""
	}
	if m := markdownLink.FindStringSubmatch(v); m != nil {
		if m[2] != "" {
			return NormalizeWebsite(m[2])
		}
		return NormalizeWebsite(m[1])
	}
	fields := strings.Fields(v)
	if len(fields) == 0 {
		return ""
	}
	return NormalizeWebsite(fields[0])
}

// NormalizeWebsite reduces a URL-ish token to a bare lower-case domain:
// "https://www.Example.com/path?x=1" → "example.com".
func NormalizeWebsite(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.Trim(s, `<>()[]"'*`)
	s = schemePrefix.ReplaceAllString(s, "")
	s = strings.TrimPrefix(s, "www.")
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	s = nonDomainChars.ReplaceAllString(s, "")
	s = strings.Trim(s, ".-")
	if !strings.Contains(s, ".") {
		return ""
	}
	return s
}

func whyFromSection(b *blockView) string {
	return cleanDescription(b.sections["why"])
}

func whyFromPanel(b *blockView) string {
	return cleanDescription(b.shareWhy)
}

// inferCategory is a keyword heuristic over title and description.
func inferCategory(s string) string {
	s = strings.ToLower(s)
	switch {
	case stabilityWords.MatchString(s):
		return "Stability"
	case strings.Contains(s, "support"):
		return "Support"
	case strings.Contains(s, "neutral"):
		return "Neutral"
	default:
		return ""
	}
}

// citationDomains returns the registrable domains of URLs cited in text.
func citationDomains(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, raw := range urlToken.FindAllString(text, -1) {
		u, err := url.Parse(strings.TrimRight(raw, ".,;:"))
		if err != nil || u.Hostname() == "" {
			continue
		}
		domain, err := publicsuffix.EffectiveTLDPlusOne(strings.ToLower(u.Hostname()))
		if err != nil || seen[domain] {
			continue
		}
		seen[domain] = true
		out = append(out, domain)
	}
	return out
}

func stripMarkdown(s string) string {
	s = markdownLink.ReplaceAllString(s, "$1")
	s = headingPrefix.ReplaceAllString(s, "")
	s = strings.NewReplacer("**", "", "__", "", "`", "").Replace(s)
	return italic.ReplaceAllString(s, "$1")
}

// cleanText strips markdown and collapses whitespace.
func cleanText(s string) string {
	s = stripMarkdown(s)
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// cleanDescription is cleanText plus typo repair and the length cap.
func cleanDescription(s string) string {
	if s == "" {
		return ""
	}
	s = cleanText(s)
	s = strings.TrimSpace(typoFixes.Replace(" " + s + " "))
	return truncate(s, maxDescriptionLen)
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n]))
}
