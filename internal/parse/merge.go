package parse

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/trueinf/geosight-new-sub000/internal/model"
)

// minDescriptionLen is the shortest text-derived description kept when a
// structured entry exists for the same rank.
const minDescriptionLen = 10

var (
	cruiseWords = regexp.MustCompile(`(?i)cruise|ship|voyage|sail`)
	hotelWords  = regexp.MustCompile(`(?i)hotel|resort|inn\b|suite|lodge|hostel`)
)

// Merge reconciles text-derived items with structured ranking analysis by
// rank. A matching structured entry overrides the title with its target and
// why with its reasoning. When items is empty the result is built from the
// structured entries alone. The result is capped at maxItems ranks,
// independently of how many structured entries were supplied.
func Merge(items []model.ParsedResultItem, analyses []model.RankingAnalysis, maxItems int) []model.ParsedResultItem {
	byRank := make(map[int]model.RankingAnalysis, len(analyses))
	for _, a := range analyses {
		if _, dup := byRank[a.Rank]; dup || a.Rank < 1 {
			continue
		}
		byRank[a.Rank] = a
	}

	if len(items) == 0 {
		return fromAnalyses(byRank, maxItems)
	}

	out := make([]model.ParsedResultItem, 0, len(items))
	for _, it := range items {
		if it.Rank < 1 || it.Rank > maxItems {
			continue
		}
		if a, ok := byRank[it.Rank]; ok {
			it = applyAnalysis(it, a)
		}
		out = append(out, it)
	}
	return out
}

func fromAnalyses(byRank map[int]model.RankingAnalysis, maxItems int) []model.ParsedResultItem {
	ranks := make([]int, 0, len(byRank))
	for r := range byRank {
		if r <= maxItems {
			ranks = append(ranks, r)
		}
	}
	sort.Ints(ranks)

	out := make([]model.ParsedResultItem, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, applyAnalysis(model.ParsedResultItem{Rank: r}, byRank[r]))
	}
	return out
}

func applyAnalysis(it model.ParsedResultItem, a model.RankingAnalysis) model.ParsedResultItem {
	if a.Target != "" {
		it.Title = a.Target
	}
	if it.Title == "" {
		it.Title = fallbackTitle(it.Rank)
	}
	if a.LLMReasoning != "" {
		it.Why = a.LLMReasoning
	}
	if utf8.RuneCountInString(strings.TrimSpace(it.Description)) < minDescriptionLen {
		it.Description = fillerDescription(it.Title)
	}
	it.Citations = mergeDomains(it.Citations, a.CitationDomains)

	ra := a
	it.RankingAnalysis = &ra
	return it
}

// fillerDescription stands in for a description the provider did not write.
func fillerDescription(name string) string {
	switch {
	case cruiseWords.MatchString(name):
		return name + " is a popular cruise option offering memorable voyages and well-planned itineraries."
	case hotelWords.MatchString(name):
		return name + " is a well-regarded hotel offering comfortable accommodations and quality guest services."
	default:
		return name + " is a recognized choice known for outstanding services and a strong customer reputation."
	}
}

func mergeDomains(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, d := range append(append([]string{}, a...), b...) {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}
