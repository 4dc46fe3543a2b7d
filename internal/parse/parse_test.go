package parse

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trueinf/geosight-new-sub000/internal/model"
)

const shoeOutline = "1. Title: Acme Shoes\nDescription: Great fit\nRating: 4.5/5\nPrice: $120\nWebsite: acme.com\n" +
	"2. Title: Zeta Shoes\nDescription: Light and fast\nRating: 4/5\nPrice: $99\nWebsite: https://www.zeta.com/shoes"

func hotelAnalyses(n int) []model.RankingAnalysis {
	out := make([]model.RankingAnalysis, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, model.RankingAnalysis{
			Rank:         i + 1,
			Target:       fmt.Sprintf("Hotel %c", 'A'+i),
			LLMReasoning: fmt.Sprintf("reason %d", i+1),
		})
	}
	return out
}

func TestParse_NestedSubListStaysInItem(t *testing.T) {
	t.Parallel()

	raw := "1. Title: Acme Shoes\nDescription: Wide and stable\n   1. Wide toe box\n   2. Durable outsole\nRating: 4.5/5\n" +
		"2. Title: Zeta Shoes\nDescription: Light and fast\n" +
		"3. Title: Omega Shoes\nDescription: Soft and plush"

	items := Parse(raw, nil, Options{Mode: model.ModeResults})

	require.Len(t, items, 3)
	assert.Equal(t, "Acme Shoes", items[0].Title)
	assert.Equal(t, "4.5/5", items[0].Rating)
	assert.Equal(t, "Zeta Shoes", items[1].Title)
	assert.Empty(t, items[1].Rating)
	assert.Equal(t, "Omega Shoes", items[2].Title)
}

func TestParse_Outline(t *testing.T) {
	t.Parallel()

	items := Parse(shoeOutline, nil, Options{Mode: model.ModeResults})

	require.Len(t, items, 2)
	assert.Equal(t, 1, items[0].Rank)
	assert.Equal(t, 2, items[1].Rank)
	assert.Equal(t, "Acme Shoes", items[0].Title)
	assert.Equal(t, "Great fit", items[0].Description)
	assert.Equal(t, "4.5/5", items[0].Rating)
	assert.Equal(t, "$120", items[0].PriceRange)
	assert.Equal(t, "acme.com", items[0].Website)
	assert.Equal(t, "4.0/5", items[1].Rating)
	assert.Equal(t, "zeta.com", items[1].Website)
	assert.Equal(t, []string{"zeta.com"}, items[1].Citations)
	assert.Nil(t, items[0].RankingAnalysis)
}

func TestParse_StructuredOnly(t *testing.T) {
	t.Parallel()

	items := Parse("", hotelAnalyses(5), Options{Mode: model.ModeResults})

	require.Len(t, items, 5)
	for i, it := range items {
		name := fmt.Sprintf("Hotel %c", 'A'+i)
		assert.Equal(t, i+1, it.Rank)
		assert.Equal(t, name, it.Title)
		assert.Equal(t, name+" is a well-regarded hotel offering comfortable accommodations and quality guest services.", it.Description)
		assert.Equal(t, fmt.Sprintf("reason %d", i+1), it.Why)
		require.NotNil(t, it.RankingAnalysis)
		assert.Equal(t, i+1, it.RankingAnalysis.Rank)
	}
}

func TestParse_Empty(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "   \n\t"} {
		items := Parse(raw, nil, Options{Mode: model.ModeResults})
		assert.NotNil(t, items)
		assert.Empty(t, items)
	}
}

func TestParse_SyntheticFallback(t *testing.T) {
	t.Parallel()

	items := Parse("Sorry, I could not produce a list today.", nil, Options{Mode: model.ModeResults})

	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Rank)
	assert.Equal(t, "Result #1", items[0].Title)
	assert.Equal(t, "Sorry, I could not produce a list today.", items[0].Description)
}

func TestParse_SyntheticYieldsToStructured(t *testing.T) {
	t.Parallel()

	items := Parse("Here are my picks in JSON.", hotelAnalyses(3), Options{Mode: model.ModeResults})

	require.Len(t, items, 3)
	assert.Equal(t, "Hotel C", items[2].Title)
}

func TestParse_TitleFallback(t *testing.T) {
	t.Parallel()

	items := Parse("1. Rating: 4/5\nPrice: $10\n2. Title: Zeta", nil, Options{Mode: model.ModeResults})

	require.Len(t, items, 2)
	assert.Equal(t, "Result #1", items[0].Title)
	assert.Equal(t, "4.0/5", items[0].Rating)
	assert.Equal(t, "Zeta", items[1].Title)
}

func TestParse_StructuredOverridesText(t *testing.T) {
	t.Parallel()

	raw := "1. Title: acme shoes (2024)\nDescription: Plush cushioning for long runs\nWhy: text reasoning\n" +
		"2. Title: Zeta\nDescription: Light and fast racer\n" +
		"```json\n" +
		`{"ranking_analysis":[{"rank":1,"target":"Acme Shoes","llm_reasoning":"Most cited","citation_domains":["runnersworld.com"]}],"keyword_position":1}` +
		"\n```"

	s := ExtractStructured(raw)
	items := Parse(raw, s.RankingAnalysis, Options{Mode: model.ModeResults, Target: "acme"})

	require.Len(t, items, 2)
	assert.Equal(t, "Acme Shoes", items[0].Title)
	assert.Equal(t, "Most cited", items[0].Why)
	assert.Equal(t, "Plush cushioning for long runs", items[0].Description)
	assert.Equal(t, []string{"runnersworld.com"}, items[0].Citations)
	assert.True(t, items[0].IsTarget)

	assert.Equal(t, "Zeta", items[1].Title)
	assert.Nil(t, items[1].RankingAnalysis)
	assert.False(t, items[1].IsTarget)
}

func TestParse_ReasonsPanelShared(t *testing.T) {
	t.Parallel()

	raw := "1. Title: Acme\nDescription: A fine choice here\n2. Title: Zeta\nDescription: Another good choice\n\n" +
		"Reasons Panel:\nChosen for verified reviews."

	items := Parse(raw, nil, Options{Mode: model.ModeResults})
	require.Len(t, items, 2)
	for _, it := range items {
		assert.Equal(t, "Chosen for verified reviews.", it.Why)
	}
}

func TestParse_ModeCaps(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	for i := 1; i <= 22; i++ {
		fmt.Fprintf(&b, "%d. Title: Hotel %d\nDescription: Rooms near the center\n", i, i)
	}
	raw := b.String()

	tests := []struct {
		mode model.Mode
		want int
	}{
		{model.ModeResults, 5},
		{model.ModeResults10, 10},
		{model.ModeSelectLocation, 20},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			t.Parallel()
			items := Parse(raw, nil, Options{Mode: tt.mode})
			require.Len(t, items, tt.want)
			assert.Equal(t, tt.want, items[len(items)-1].Rank)
		})
	}
}

func TestParse_Idempotent(t *testing.T) {
	t.Parallel()

	raw := shoeOutline + "\n```json\n" + `{"ranking_analysis":[{"rank":2,"target":"Zeta Racer"}]}` + "\n```"
	opts := Options{Mode: model.ModeResults, Target: "zeta"}

	first := Parse(raw, ExtractStructured(raw).RankingAnalysis, opts)
	second := Parse(raw, ExtractStructured(raw).RankingAnalysis, opts)
	assert.Equal(t, first, second)
}

func TestParse_CompatibilityCharacters(t *testing.T) {
	t.Parallel()

	raw := "1. Title:\u00a0Acme\nRating: 4.5\u00a0/\u00a05\n\uff12. Title: Zeta"

	items := Parse(raw, nil, Options{Mode: model.ModeResults})
	require.Len(t, items, 2)
	assert.Equal(t, "Acme", items[0].Title)
	assert.Equal(t, "4.5/5", items[0].Rating)
	assert.Equal(t, 2, items[1].Rank)
}
