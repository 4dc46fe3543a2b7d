package parse

import (
	"strconv"
	"strings"

	"github.com/trueinf/geosight-new-sub000/internal/model"
)

// Options parameterize one Parse call.
type Options struct {
	Mode model.Mode
	// Target flags items whose title mentions it. Empty disables flagging.
	Target string
}

// Parse converts one provider's raw answer plus any structured analysis into
// ranked items. It never fails and always returns a non-nil slice.
func Parse(raw string, analyses []model.RankingAnalysis, opts Options) []model.ParsedResultItem {
	maxItems := opts.Mode.MaxItems()
	blocks := ExtractBlocks(Segment(raw), maxItems)

	// A synthetic block carries no rank structure; structured entries are
	// the better source when present.
	if len(blocks) == 1 && blocks[0].Synthetic && len(analyses) > 0 {
		blocks = nil
	}

	panel := ReasonsPanel(raw)
	items := make([]model.ParsedResultItem, 0, len(blocks))
	for _, b := range blocks {
		items = append(items, itemFromBlock(b, panel))
	}

	items = Merge(items, analyses, maxItems)
	if items == nil {
		items = []model.ParsedResultItem{}
	}
	markTarget(items, opts.Target)
	return items
}

func itemFromBlock(b Block, sharedWhy string) model.ParsedResultItem {
	if b.Synthetic {
		return model.ParsedResultItem{
			Rank:        b.Rank,
			Title:       fallbackTitle(b.Rank),
			Description: b.Text,
		}
	}

	f := ParseFields(b.Text, sharedWhy)
	title := f.Title
	if title == "" {
		title = fallbackTitle(b.Rank)
	}
	return model.ParsedResultItem{
		Rank:        b.Rank,
		Title:       title,
		Description: f.Description,
		Rating:      f.Rating,
		PriceRange:  f.Price,
		Website:     f.Website,
		Category:    f.Category,
		Why:         f.Why,
		Citations:   f.Citations,
	}
}

func fallbackTitle(rank int) string {
	return "Result #" + strconv.Itoa(rank)
}

func markTarget(items []model.ParsedResultItem, target string) {
	target = strings.ToLower(strings.TrimSpace(target))
	if target == "" {
		return
	}
	for i := range items {
		items[i].IsTarget = strings.Contains(strings.ToLower(items[i].Title), target)
	}
}
