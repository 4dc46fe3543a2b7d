package categorize

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trueinf/geosight-new-sub000/internal/model"
)

func hotels(n int) []model.ParsedResultItem {
	out := make([]model.ParsedResultItem, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, model.ParsedResultItem{Rank: i + 1, Title: fmt.Sprintf("Hotel %c", 'A'+i)})
	}
	return out
}

func titles(items []model.ParsedResultItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Title)
	}
	return out
}

func TestCategorize_TwentyItems(t *testing.T) {
	t.Parallel()

	got := Categorize(hotels(20), "X")

	require.Len(t, got, 4)
	for _, name := range BucketOrder("X") {
		assert.Len(t, got[name], 5, name)
	}
	assert.Equal(t,
		[]string{"Hotel A", "Hotel B", "Hotel C", "Hotel D", "Hotel E"},
		titles(got["best hotels in X"]),
	)
	assert.Equal(t, "Hotel F", got["best luxury hotels in X"][0].Title)
	assert.Equal(t, "Hotel K", got["best business hotels in X"][0].Title)
	assert.Equal(t, "Hotel P", got["best family hotels in X"][0].Title)
	assert.Equal(t, "best luxury hotels in X", got["best luxury hotels in X"][0].Category)
}

func TestCategorize_FewerItems(t *testing.T) {
	t.Parallel()

	got := Categorize(hotels(7), "Paris")

	assert.Len(t, got["best hotels in Paris"], 5)
	assert.Len(t, got["best luxury hotels in Paris"], 2)
	assert.Empty(t, got["best business hotels in Paris"])
	assert.NotNil(t, got["best family hotels in Paris"])
}

func TestCategorize_ExtrasDropped(t *testing.T) {
	t.Parallel()

	got := Categorize(hotels(24), "X")
	total := 0
	for _, items := range got {
		assert.LessOrEqual(t, len(items), BucketSize)
		total += len(items)
	}
	assert.Equal(t, 20, total)
}

func TestCategorize_HeaderTitlesFiltered(t *testing.T) {
	t.Parallel()

	items := hotels(10)
	items[0].Title = "Best Hotels in X"
	items[6].Title = "Category 2: Luxury"

	got := Categorize(items, "X")

	assert.Equal(t, []string{"Hotel B", "Hotel C", "Hotel D", "Hotel E"}, titles(got["best hotels in X"]))
	assert.Len(t, got["best luxury hotels in X"], 4)
	assert.NotContains(t, titles(got["best luxury hotels in X"]), "Category 2: Luxury")
}

func TestCategorize_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	items := hotels(3)
	Categorize(items, "X")
	assert.Empty(t, items[0].Category)
}

func TestLabel_MatchesCategorize(t *testing.T) {
	t.Parallel()

	items := hotels(22)
	items[2].Title = "Best Hotels in X"
	items[21].Category = "stale"

	cats := Categorize(items, "X")
	Label(items, "X")

	assert.Equal(t, "best hotels in X", items[0].Category)
	assert.Empty(t, items[2].Category)
	assert.Equal(t, "best family hotels in X", items[19].Category)
	assert.Empty(t, items[20].Category)
	assert.Empty(t, items[21].Category)

	for _, it := range items {
		if it.Category == "" {
			continue
		}
		assert.Contains(t, titles(cats[it.Category]), it.Title)
	}
}

func TestBucketName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		index    int
		location string
		want     string
	}{
		{0, "Rome", "best hotels in Rome"},
		{4, "Rome", "best hotels in Rome"},
		{5, "Rome", "best luxury hotels in Rome"},
		{14, "Rome", "best business hotels in Rome"},
		{19, "Rome", "best family hotels in Rome"},
		{20, "Rome", ""},
		{-1, "Rome", ""},
		{3, "", "best hotels"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_%s", tt.index, tt.location), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, BucketName(tt.index, tt.location))
		})
	}
}

func TestLocationFromQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		query string
		want  string
	}{
		{"best hotels in New York City", "New York City"},
		{"Hotels in Paris?", "Paris"},
		{"hotel IN  tokyo", "tokyo"},
		{"running shoes", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, LocationFromQuery(tt.query))
		})
	}
}
