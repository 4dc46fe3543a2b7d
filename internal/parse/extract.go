package parse

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

// Block is the raw text of one numbered item located in a main section.
type Block struct {
	Rank int
	Text string
	// Synthetic marks the single fallback block built when no item structure
	// could be found. Its text is used as the description.
	Synthetic bool
}

var (
	// N. or N) at line start, followed by text on the same line.
	primaryMarker = regexp.MustCompile(`(?m)^[ \t]*(?:#{1,6}[ \t]*)?(?:\*\*)?(\d{1,2})[.)](?:\*\*)?[ \t]+`)

	// Bullets, #N, N:, "N -" and markers alone on their line.
	permissiveMarker = regexp.MustCompile(`(?m)^[ \t]*(?:[-*•][ \t]*)?(?:#{1,6}[ \t]*)?(?:\*\*)?#?(\d{1,2})(?:[.):](?:\*\*)?(?:[ \t]|$)|[ \t]+-[ \t])`)

	// "1) foo 2) bar" inside a paragraph.
	compactMarker = regexp.MustCompile(`(?:^|[ \t\n])(\d{1,2})\)[ \t]*`)

	// Literal Title: labels, optionally bolded.
	titleMarker = regexp.MustCompile(`(?i)(?:\*\*)?title(?:\*\*)?[ \t]*:`)
)

type blockStrategy struct {
	name    string
	extract func(string) []Block
}

var compactStrategy = blockStrategy{name: "compact", extract: compactBlocks}

// blockStrategies run in order; the first that finds any block wins.
var blockStrategies = []blockStrategy{
	{name: "primary", extract: primaryBlocks},
	{name: "permissive", extract: permissiveBlocks},
	{name: "lines", extract: lineBlocks},
	compactStrategy,
	{name: "titles", extract: titleBlocks},
}

// ExtractBlocks splits a main section into numbered item blocks in ascending
// rank order, keeping at most maxItems blocks with rank in [1, maxItems].
// A non-empty section with no recognizable structure yields one synthetic
// block of rank 1.
func ExtractBlocks(main string, maxItems int) []Block {
	main = strings.TrimSpace(main)
	if main == "" {
		return nil
	}

	strategies := blockStrategies
	if !strings.Contains(main, "\n") {
		// One line cannot hold multi-line blocks; try the inline form first.
		strategies = append([]blockStrategy{compactStrategy}, blockStrategies...)
	}

	for _, s := range strategies {
		blocks := s.extract(main)
		if len(blocks) == 0 {
			continue
		}
		zap.L().Debug("parse: extracted item blocks",
			zap.String("strategy", s.name),
			zap.Int("blocks", len(blocks)),
		)
		return finalizeBlocks(blocks, maxItems)
	}

	return []Block{{
		Rank:      1,
		Text:      truncate(cleanText(main), maxDescriptionLen),
		Synthetic: true,
	}}
}

// finalizeBlocks drops out-of-range and duplicate ranks (first wins), sorts
// ascending, and caps the count.
func finalizeBlocks(blocks []Block, maxItems int) []Block {
	seen := make(map[int]bool, len(blocks))
	out := make([]Block, 0, len(blocks))
	for _, b := range blocks {
		if b.Rank < 1 || b.Rank > maxItems || seen[b.Rank] {
			continue
		}
		seen[b.Rank] = true
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	if len(out) > maxItems {
		out = out[:maxItems]
	}
	return out
}

func primaryBlocks(text string) []Block {
	return splitAtMarkers(text, outermost(text, primaryMarker.FindAllStringSubmatchIndex(text, -1)))
}

func permissiveBlocks(text string) []Block {
	return splitAtMarkers(text, outermost(text, permissiveMarker.FindAllStringSubmatchIndex(text, -1)))
}

// nestedIndent is how much deeper than the outermost marker a marker must sit
// to be read as part of a sub-list.
const nestedIndent = 2

// indentWidth measures leading whitespace, counting a tab as four columns.
func indentWidth(s string) int {
	w := 0
	for _, r := range s {
		switch {
		case r == '\t':
			w += 4
		case unicode.IsSpace(r) && r != '\n':
			w++
		default:
			return w
		}
	}
	return w
}

// outermost drops markers indented under the outermost level so a numbered
// sub-list stays inside its parent item. The first marker is always kept.
func outermost(text string, locs [][]int) [][]int {
	if len(locs) < 2 {
		return locs
	}
	widths := make([]int, len(locs))
	for i, loc := range locs {
		widths[i] = indentWidth(text[loc[0]:])
	}
	least := leastIndent(widths, locs[0][0] == 0)

	out := [][]int{locs[0]}
	for i := 1; i < len(locs); i++ {
		if widths[i] < least+nestedIndent {
			out = append(out, locs[i])
		}
	}
	return out
}

// leastIndent is the shallowest marker indentation. A marker opening the text
// may have lost its indentation to trimming, so it is left out of the
// minimum when others exist.
func leastIndent(widths []int, openerTrimmed bool) int {
	if openerTrimmed && len(widths) > 1 {
		widths = widths[1:]
	}
	least := widths[0]
	for _, w := range widths[1:] {
		least = min(least, w)
	}
	return least
}

// splitAtMarkers cuts text between consecutive marker matches. Group 1 of each
// match holds the item number.
func splitAtMarkers(text string, locs [][]int) []Block {
	var blocks []Block
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		body := strings.TrimSpace(text[loc[1]:end])
		if body == "" {
			continue
		}
		rank, err := strconv.Atoi(text[loc[2]:loc[3]])
		if err != nil {
			continue
		}
		blocks = append(blocks, Block{Rank: rank, Text: body})
	}
	return blocks
}

// lineBlocks rebuilds blocks line by line. It accepts markers the regexes
// reject, such as "1.Acme" with no space or markers behind Unicode spacing.
func lineBlocks(text string) []Block {
	var (
		blocks []Block
		cur    *Block
		buf    []string
	)
	flush := func() {
		if cur == nil {
			return
		}
		cur.Text = strings.TrimSpace(strings.Join(buf, "\n"))
		if cur.Text != "" {
			blocks = append(blocks, *cur)
		}
		cur, buf = nil, nil
	}

	lines := strings.Split(text, "\n")
	var widths []int
	for _, line := range lines {
		if _, _, ok := lineMarker(line); ok {
			widths = append(widths, indentWidth(line))
		}
	}
	if len(widths) == 0 {
		return nil
	}
	_, _, opener := lineMarker(lines[0])
	least := leastIndent(widths, opener)

	for _, line := range lines {
		rank, rest, ok := lineMarker(line)
		if ok && (cur == nil || indentWidth(line) < least+nestedIndent) {
			flush()
			cur = &Block{Rank: rank}
			buf = []string{rest}
			continue
		}
		if cur != nil {
			buf = append(buf, line)
		}
	}
	flush()
	return blocks
}

// lineMarker reports whether line starts with an item number followed by
// '.' or ')' (and not by another digit), returning the rest of the line.
func lineMarker(line string) (int, string, bool) {
	s := strings.TrimLeftFunc(line, func(r rune) bool {
		return unicode.IsSpace(r) || r == '*' || r == '#' || r == '-' || r == '•'
	})
	n := 0
	for n < len(s) && n < 3 && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	if n == 0 || n > 2 || n >= len(s) || (s[n] != '.' && s[n] != ')') {
		return 0, "", false
	}
	rest := s[n+1:]
	if rest != "" && rest[0] >= '0' && rest[0] <= '9' {
		return 0, "", false
	}
	rank, err := strconv.Atoi(s[:n])
	if err != nil {
		return 0, "", false
	}
	return rank, strings.TrimSpace(strings.TrimLeft(rest, "*")), true
}

// compactBlocks handles "1) foo 2) bar 3) baz". Only markers continuing the
// sequence 1, 2, 3… are accepted so stray "4)" inside text is ignored.
func compactBlocks(text string) []Block {
	locs := compactMarker.FindAllStringSubmatchIndex(text, -1)
	var seq [][]int
	next := 1
	for _, loc := range locs {
		n, err := strconv.Atoi(text[loc[2]:loc[3]])
		if err != nil || n != next {
			continue
		}
		seq = append(seq, loc)
		next++
	}
	return splitAtMarkers(text, seq)
}

// titleBlocks splits on literal Title: labels when no numbering exists and
// assigns sequential ranks.
func titleBlocks(text string) []Block {
	locs := titleMarker.FindAllStringIndex(text, -1)
	var blocks []Block
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		body := strings.TrimSpace(text[loc[0]:end])
		if strings.TrimSpace(text[loc[1]:end]) == "" {
			continue
		}
		blocks = append(blocks, Block{Rank: len(blocks) + 1, Text: body})
	}
	return blocks
}
