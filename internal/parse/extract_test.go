package parse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ranksOf(blocks []Block) []int {
	out := make([]int, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, b.Rank)
	}
	return out
}

func TestSegment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "no markers keeps everything",
			raw:  "  1. Acme\n2. Zeta\n",
			want: "1. Acme\n2. Zeta",
		},
		{
			name: "ranking analysis heading",
			raw:  "1. Acme\n2. Zeta\n\n## Ranking Analysis\nAcme leads.",
			want: "1. Acme\n2. Zeta",
		},
		{
			name: "improvement recommendations heading",
			raw:  "1. Acme\n**Improvement Recommendations**\n- do more",
			want: "1. Acme",
		},
		{
			name: "keyword summary line",
			raw:  "1. Acme\n2. Zeta\nKeyword: running shoes",
			want: "1. Acme\n2. Zeta",
		},
		{
			name: "fenced json",
			raw:  "1. Acme\n```json\n{\"ranking_analysis\": []}\n```",
			want: "1. Acme",
		},
		{
			name: "bare json object",
			raw:  "1. Acme\n{\"ranking_analysis\": []}",
			want: "1. Acme",
		},
		{
			name: "earliest marker wins",
			raw:  "1. Acme\nReasons Panel:\nbecause\n## Ranking Analysis\nx",
			want: "1. Acme",
		},
		{
			name: "whitespace only",
			raw:  " \n\t \r\n",
			want: "",
		},
		{
			name: "crlf line endings",
			raw:  "1. Acme\r\n2. Zeta\r\n",
			want: "1. Acme\n2. Zeta",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Segment(tt.raw))
		})
	}
}

func TestReasonsPanel(t *testing.T) {
	t.Parallel()

	raw := "1. Acme\n2. Zeta\n\nReasons Panel:\nAll picks have strong reviews.\n\n```json\n{\"ranking_analysis\": []}\n```"
	assert.Equal(t, "All picks have strong reviews.", ReasonsPanel(raw))
	assert.Equal(t, "1. Acme\n2. Zeta", Segment(raw))

	assert.Empty(t, ReasonsPanel("1. Acme\n2. Zeta"))
}

func TestExtractBlocks_Strategies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		main      string
		wantRanks []int
		wantFirst string
	}{
		{
			name:      "primary numbered outline",
			main:      "1. Title: Acme\nDescription: good\n2. Title: Zeta\nDescription: fine",
			wantRanks: []int{1, 2},
			wantFirst: "Title: Acme\nDescription: good",
		},
		{
			name:      "primary with parens and bold",
			main:      "**1)** Acme\n**2)** Zeta",
			wantRanks: []int{1, 2},
			wantFirst: "Acme",
		},
		{
			name:      "permissive bullets with colon markers",
			main:      "- 1: Acme\n- 2: Zeta",
			wantRanks: []int{1, 2},
			wantFirst: "Acme",
		},
		{
			name:      "permissive dash markers",
			main:      "1 - Acme\nstuff\n2 - Zeta",
			wantRanks: []int{1, 2},
			wantFirst: "Acme\nstuff",
		},
		{
			name:      "line reconstruction without space",
			main:      "1.Acme Shoes\nlight\n2.Zeta Shoes",
			wantRanks: []int{1, 2},
			wantFirst: "Acme Shoes\nlight",
		},
		{
			name:      "compact single line",
			main:      "Top picks: 1) Acme 2) Zeta 3) Nova",
			wantRanks: []int{1, 2, 3},
			wantFirst: "Acme",
		},
		{
			name:      "title delimited",
			main:      "Title: Acme\nDescription: good one\nTitle: Zeta\nDescription: another one",
			wantRanks: []int{1, 2},
			wantFirst: "Title: Acme\nDescription: good one",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			blocks := ExtractBlocks(tt.main, 5)
			require.NotEmpty(t, blocks)
			assert.Equal(t, tt.wantRanks, ranksOf(blocks))
			assert.Equal(t, tt.wantFirst, blocks[0].Text)
			assert.False(t, blocks[0].Synthetic)
		})
	}
}

func TestExtractBlocks_Fallback(t *testing.T) {
	t.Parallel()

	blocks := ExtractBlocks("I could not find a ranked list for this query.", 5)
	require.Len(t, blocks, 1)
	assert.Equal(t, 1, blocks[0].Rank)
	assert.True(t, blocks[0].Synthetic)
	assert.Equal(t, "I could not find a ranked list for this query.", blocks[0].Text)
}

func TestExtractBlocks_FallbackTruncates(t *testing.T) {
	t.Parallel()

	blocks := ExtractBlocks(strings.Repeat("word ", 200), 5)
	require.Len(t, blocks, 1)
	assert.LessOrEqual(t, len([]rune(blocks[0].Text)), maxDescriptionLen)
}

func TestExtractBlocks_Empty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, ExtractBlocks("", 5))
	assert.Empty(t, ExtractBlocks("   \n ", 5))
}

func TestExtractBlocks_RankPolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		main      string
		max       int
		wantRanks []int
	}{
		{
			name:      "capped at mode maximum",
			main:      "1. A\n2. B\n3. C\n4. D\n5. E\n6. F\n7. G",
			max:       5,
			wantRanks: []int{1, 2, 3, 4, 5},
		},
		{
			name:      "ranks above the cap are discarded",
			main:      "1. A\n2. B\n9. C",
			max:       5,
			wantRanks: []int{1, 2},
		},
		{
			name:      "duplicate ranks keep the first",
			main:      "1. A\n1. B\n2. C",
			max:       5,
			wantRanks: []int{1, 2},
		},
		{
			name:      "sorted ascending",
			main:      "3. C\n1. A\n2. B",
			max:       5,
			wantRanks: []int{1, 2, 3},
		},
		{
			name:      "extended mode keeps ten",
			main:      "1. A\n2. B\n3. C\n4. D\n5. E\n6. F\n7. G\n8. H\n9. I\n10. J\n11. K",
			max:       10,
			wantRanks: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantRanks, ranksOf(ExtractBlocks(tt.main, tt.max)))
		})
	}
}

func TestExtractBlocks_DuplicateKeepsFirstText(t *testing.T) {
	t.Parallel()

	blocks := ExtractBlocks("1. A\n1. B\n2. C", 5)
	require.Len(t, blocks, 2)
	assert.Equal(t, "A", blocks[0].Text)
}

func TestExtractBlocks_ExactCountForOutline(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	for i, name := range []string{"Acme", "Zeta", "Nova", "Orbit"} {
		b.WriteString(strings.Join([]string{
			string(rune('1'+i)) + ". Title: " + name,
			"Description: A dependable pick for daily training",
			"Rating: 4.5/5",
			"Price: $120",
			"Website: " + strings.ToLower(name) + ".com",
		}, "\n"))
		b.WriteString("\n")
	}

	blocks := ExtractBlocks(b.String(), 5)
	assert.Equal(t, []int{1, 2, 3, 4}, ranksOf(blocks))
}

func TestExtractBlocks_NestedSubList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		main string
	}{
		{
			name: "spaces",
			main: "1. Title: Acme Shoes\nDescription: Wide and stable\n   1. Wide toe box\n   2. Durable outsole\nRating: 4.5/5\n" +
				"2. Title: Zeta Shoes\nDescription: Light\n3. Title: Omega Shoes\nDescription: Soft",
		},
		{
			name: "tabs",
			main: "1. Title: Acme Shoes\n\t1. Wide toe box\n\t2. Durable outsole\nRating: 4.5/5\n2. Title: Zeta Shoes\n3. Title: Omega Shoes",
		},
		{
			name: "no space after marker",
			main: "1.Title: Acme Shoes\n   1.Wide toe box\n   2.Durable outsole\nRating: 4.5/5\n2.Title: Zeta Shoes\n3.Title: Omega Shoes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			blocks := ExtractBlocks(tt.main, 5)
			require.Equal(t, []int{1, 2, 3}, ranksOf(blocks))
			assert.Contains(t, blocks[0].Text, "Durable outsole")
			assert.Contains(t, blocks[0].Text, "Rating: 4.5/5")
			assert.True(t, strings.HasPrefix(blocks[1].Text, "Title: Zeta Shoes"), blocks[1].Text)
		})
	}
}

func TestExtractBlocks_UniformlyIndentedList(t *testing.T) {
	t.Parallel()

	// Segmenting trims the first line's indentation but not the others'.
	blocks := ExtractBlocks("1. Acme\n   2. Zeta\n   3. Omega", 5)
	assert.Equal(t, []int{1, 2, 3}, ranksOf(blocks))
}

func TestLineMarker(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line     string
		wantRank int
		wantRest string
		wantOK   bool
	}{
		{"1. Acme", 1, "Acme", true},
		{"12) Zeta", 12, "Zeta", true},
		{"  3.Nova", 3, "Nova", true},
		{"**4.** Orbit", 4, "Orbit", true},
		{"4.5 stars", 0, "", false},
		{"123. Too long", 0, "", false},
		{"Acme 1.", 0, "", false},
		{"7", 0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			t.Parallel()
			rank, rest, ok := lineMarker(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantRank, rank)
			assert.Equal(t, tt.wantRest, rest)
		})
	}
}
