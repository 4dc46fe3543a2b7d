// Package analyze derives target-centric visibility metrics from the parsed
// results of every provider.
package analyze

import (
	"fmt"
	"math"
	"strings"

	"github.com/trueinf/geosight-new-sub000/internal/model"
)

const (
	longDescriptionLen = 100
	topThree           = 3
	underperformRank   = 4
	spreadThreshold    = 3
)

// found is the first item in one provider's list that mentions the target.
type found struct {
	provider model.Provider
	item     model.ParsedResultItem
}

// Analyze computes the TargetAnalysis for target over providerItems. It is a
// pure function of its inputs. Providers absent from the map count as
// "not found".
func Analyze(providerItems map[model.Provider][]model.ParsedResultItem, target, query string) model.TargetAnalysis {
	target = strings.TrimSpace(target)
	aliases := Aliases(target)

	var hits []found
	var missing []string
	positions := make(map[model.Provider]int)
	for _, p := range model.AllProviders() {
		it, ok := findTarget(providerItems[p], aliases)
		if !ok {
			missing = append(missing, p.DisplayName())
			continue
		}
		hits = append(hits, found{provider: p, item: it})
		positions[p] = it.Rank
	}

	total := len(model.AllProviders())
	visibility := float64(len(hits)) / float64(total)
	avg := averagePosition(hits)

	a := model.TargetAnalysis{
		AveragePosition:    avg,
		VisibilityScore:    visibility,
		ProvidersMissingIn: nonNil(missing),
		Positions:          positions,
		TargetGaps:         gaps(hits, missing, avg),
		PerformanceDrivers: drivers(hits, target),
		NextSteps:          nextSteps(target, query, missing, avg),
		SentimentOverall:   sentimentFor(visibility),
		Confidence:         confidence(hits, avg),
		Citations:          citations(hits),
	}
	a.Headline = headline(target, query, len(hits), total, avg)
	return a
}

// Aliases returns the lower-cased match candidates for target: the full
// name, its last word and last two words, and the name with a leading brand
// token stripped for a few well-known brands.
func Aliases(target string) []string {
	t := strings.ToLower(strings.Join(strings.Fields(target), " "))
	if t == "" {
		return nil
	}
	candidates := []string{t}

	words := strings.Fields(t)
	if len(words) > 1 {
		candidates = append(candidates,
			words[len(words)-1],
			strings.Join(words[len(words)-2:], " "),
		)
	}
	for _, brand := range []string{"nike", "apple"} {
		if strings.Contains(t, brand) {
			stripped := strings.Join(strings.Fields(strings.ReplaceAll(t, brand, "")), " ")
			candidates = append(candidates, stripped)
		}
	}

	seen := make(map[string]bool, len(candidates))
	out := candidates[:0]
	for _, c := range candidates {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func findTarget(items []model.ParsedResultItem, aliases []string) (model.ParsedResultItem, bool) {
	if len(aliases) == 0 {
		return model.ParsedResultItem{}, false
	}
	for _, it := range items {
		title := strings.ToLower(it.Title)
		for _, a := range aliases {
			if strings.Contains(title, a) {
				return it, true
			}
		}
	}
	return model.ParsedResultItem{}, false
}

func averagePosition(hits []found) *float64 {
	if len(hits) == 0 {
		return nil
	}
	sum := 0
	for _, h := range hits {
		sum += h.item.Rank
	}
	avg := float64(sum) / float64(len(hits))
	return &avg
}

func rankSpread(hits []found) int {
	if len(hits) == 0 {
		return 0
	}
	lo, hi := hits[0].item.Rank, hits[0].item.Rank
	for _, h := range hits[1:] {
		lo = min(lo, h.item.Rank)
		hi = max(hi, h.item.Rank)
	}
	return hi - lo
}

func gaps(hits []found, missing []string, avg *float64) []string {
	out := []string{}
	if len(missing) > 0 {
		out = append(out, "Not found in results from "+strings.Join(missing, ", ")+".")
	}
	if len(missing) >= 3 {
		out = append(out, "Missing from most providers; needs stronger SEO and AI-search presence.")
	}
	if avg != nil && *avg > topThree {
		out = append(out, fmt.Sprintf("Averages #%.1f; needs a top-3 position to be recommended consistently.", *avg))
	}
	if rankSpread(hits) > spreadThreshold {
		out = append(out, "Inconsistent rankings across providers.")
	}
	var weak []string
	for _, h := range hits {
		if h.item.Rank > underperformRank {
			weak = append(weak, h.provider.DisplayName())
		}
	}
	if len(weak) > 0 {
		out = append(out, "Underperforms on "+strings.Join(weak, ", ")+".")
	}
	return out
}

func drivers(hits []found, target string) []string {
	out := []string{}
	for _, h := range hits {
		if why := strings.TrimSpace(h.item.Why); why != "" {
			out = append(out, fmt.Sprintf("%s ranks #%d on %s: %s", target, h.item.Rank, h.provider.DisplayName(), why))
		}
		if ra := h.item.RankingAnalysis; ra != nil && len(ra.MatchedKeywords) > 0 {
			out = append(out, fmt.Sprintf("Relevant to %s on %s.", strings.Join(ra.MatchedKeywords, ", "), h.provider.DisplayName()))
		}
	}
	if len(out) > 0 {
		return out
	}
	return patternDrivers(hits)
}

// patternDrivers describes the placements themselves when providers gave no
// reasoning.
func patternDrivers(hits []found) []string {
	out := []string{}
	if len(hits) == 0 {
		return out
	}

	var top, rated, detailed int
	var first []string
	for _, h := range hits {
		if h.item.Rank <= topThree {
			top++
		}
		if h.item.Rank == 1 {
			first = append(first, h.provider.DisplayName())
		}
		if h.item.Rating != "" {
			rated++
		}
		if len([]rune(h.item.Description)) > longDescriptionLen {
			detailed++
		}
	}

	if top > 0 {
		out = append(out, fmt.Sprintf("Top-3 placement on %d of %d providers where found.", top, len(hits)))
	}
	if len(hits) > 1 {
		if rankSpread(hits) <= 1 {
			out = append(out, "Consistent positioning across providers.")
		} else {
			out = append(out, "Positioning varies between providers.")
		}
	}
	if len(first) > 0 {
		out = append(out, "Ranked #1 on "+strings.Join(first, ", ")+".")
	}
	if rated > 0 {
		out = append(out, fmt.Sprintf("Rating shown in %d result(s).", rated))
	}
	if detailed > 0 {
		out = append(out, fmt.Sprintf("Detailed description in %d result(s).", detailed))
	}
	return out
}

func nextSteps(target, query string, missing []string, avg *float64) []model.NextStep {
	var out []model.NextStep
	if len(missing) > 0 {
		out = append(out, model.NextStep{
			Action:   "Optimize content for " + strings.Join(missing, ", "),
			Why:      target + " does not appear in these providers' answers.",
			Priority: model.PriorityQuickWin,
		})
	}
	if avg != nil && *avg > topThree {
		out = append(out, model.NextStep{
			Action:   "Improve ranking factors such as reviews and citations",
			Why:      fmt.Sprintf("Average position #%.1f is outside the top 3.", *avg),
			Priority: model.PriorityQuickWin,
		})
	}
	topic := strings.TrimSpace(query)
	if topic == "" {
		topic = target
	}
	out = append(out,
		model.NextStep{
			Action:   fmt.Sprintf("Build a content hub around %q", topic),
			Why:      "Authoritative, well-cited content is what providers draw on when ranking.",
			Priority: model.PriorityStrategic,
		},
		model.NextStep{
			Action:   "Monitor competitors ranking above " + target,
			Why:      "Provider rankings shift as competitors publish and earn citations.",
			Priority: model.PriorityStrategic,
		},
	)
	return out
}

func sentimentFor(visibility float64) model.Sentiment {
	switch {
	case visibility >= 0.75:
		return model.SentimentPositive
	case visibility <= 0.25:
		return model.SentimentNegative
	default:
		return model.SentimentNeutral
	}
}

// confidence is a hand-tuned heuristic, not a calibrated probability:
//
//	min(1, 0.25*found + 0.3*[found>0] + 0.3*max(0, (5-avg)/5) + 0.15*withWhy)
//
// where avg is 5 when the target was found nowhere.
func confidence(hits []found, avg *float64) float64 {
	n := float64(len(hits))
	score := 0.25 * n
	if len(hits) > 0 {
		score += 0.3
	}
	a := 5.0
	if avg != nil {
		a = *avg
	}
	score += 0.3 * math.Max(0, (5-a)/5)
	for _, h := range hits {
		if strings.TrimSpace(h.item.Why) != "" {
			score += 0.15
		}
	}
	return math.Min(1, score)
}

func headline(target, query string, n, total int, avg *float64) string {
	switch {
	case n == 0 || avg == nil:
		return fmt.Sprintf("%s is not visible in any AI provider results for %q. Immediate optimization needed.", target, query)
	case *avg <= 2:
		return fmt.Sprintf("%s shows strong market positioning, averaging #%.1f across %d of %d providers.", target, *avg, n, total)
	case *avg <= 3:
		return fmt.Sprintf("%s has solid visibility with room for improvement, averaging #%.1f across %d of %d providers.", target, *avg, n, total)
	default:
		return fmt.Sprintf("%s has limited visibility at an average of #%.1f, with clear optimization opportunities.", target, *avg)
	}
}

func citations(hits []found) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, h := range hits {
		for _, c := range h.item.Citations {
			if c == "" || seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
