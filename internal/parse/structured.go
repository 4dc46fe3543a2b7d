package parse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/trueinf/geosight-new-sub000/internal/model"
)

// Structured is the machine-readable side channel a provider may append to
// its free-text answer.
type Structured struct {
	RankingAnalysis            []model.RankingAnalysis           `json:"ranking_analysis"`
	ImprovementRecommendations []model.ImprovementRecommendation `json:"improvement_recommendations"`
	KeywordPosition            *int                              `json:"keyword_position"`
}

const (
	rankingKey         = `"ranking_analysis"`
	recommendationsKey = `"improvement_recommendations"`
)

var (
	keywordPositionValue = regexp.MustCompile(`(?i)"?keyword_position"?\s*:\s*"?(\d+)`)
	jsonFence            = regexp.MustCompile("(?s)```(?:json)?\\s*(\\[.*?\\])\\s*```")
)

// ExtractStructured locates and decodes the structured block in raw. Complete
// objects are read whole; truncated or invalid ones are salvaged by
// collecting each well-formed sub-object after the known keys. Nothing
// recoverable yields an empty Structured.
func ExtractStructured(raw string) Structured {
	var out Structured

	if obj, ok := enclosingObject(raw, rankingKey); ok {
		out = decodeEnvelope(gjson.Parse(obj))
	} else if obj, ok := enclosingObject(raw, recommendationsKey); ok {
		out = decodeEnvelope(gjson.Parse(obj))
	} else {
		out.RankingAnalysis = salvageRankings(raw)
		out.ImprovementRecommendations = salvageRecommendations(raw)
		if len(out.RankingAnalysis) == 0 {
			out.RankingAnalysis = fencedRankings(raw)
		}
	}

	if out.KeywordPosition == nil {
		if m := keywordPositionValue.FindStringSubmatch(raw); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				out.KeywordPosition = &n
			}
		}
	}
	return out
}

// enclosingObject finds key and walks back to the nearest '{' whose balanced
// object contains it. Sibling objects closing before key are skipped. The
// object is returned only if it is valid JSON.
func enclosingObject(raw, key string) (string, bool) {
	idx := strings.Index(raw, key)
	if idx < 0 {
		return "", false
	}
	for start := strings.LastIndex(raw[:idx], "{"); start >= 0; start = strings.LastIndex(raw[:start], "{") {
		end, ok := matchBrace(raw, start)
		if !ok {
			return "", false
		}
		if end < idx {
			continue
		}
		obj := raw[start : end+1]
		return obj, gjson.Valid(obj)
	}
	return "", false
}

// matchBrace returns the index of the '}' closing the '{' at start, honoring
// string literals and escapes. ok is false when the object is truncated.
func matchBrace(s string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func decodeEnvelope(env gjson.Result) Structured {
	var out Structured
	for _, r := range env.Get("ranking_analysis").Array() {
		if ra, ok := decodeRanking(r); ok {
			out.RankingAnalysis = append(out.RankingAnalysis, ra)
		}
	}
	for _, r := range env.Get("improvement_recommendations").Array() {
		if rec, ok := decodeRecommendation(r); ok {
			out.ImprovementRecommendations = append(out.ImprovementRecommendations, rec)
		}
	}
	if kp := env.Get("keyword_position"); kp.Exists() && kp.Type != gjson.Null {
		n := int(kp.Int())
		out.KeywordPosition = &n
	}
	return out
}

// salvageObjects returns every balanced, valid object that begins after key,
// skipping objects nested inside an accepted one.
func salvageObjects(raw, key string, accept func(gjson.Result) bool) []gjson.Result {
	idx := strings.Index(raw, key)
	if idx < 0 {
		return nil
	}
	var out []gjson.Result
	for i := idx + len(key); i < len(raw); i++ {
		if raw[i] != '{' {
			continue
		}
		end, ok := matchBrace(raw, i)
		if !ok {
			continue
		}
		obj := raw[i : end+1]
		if !gjson.Valid(obj) {
			continue
		}
		r := gjson.Parse(obj)
		if !accept(r) {
			continue
		}
		out = append(out, r)
		i = end
	}
	return out
}

func salvageRankings(raw string) []model.RankingAnalysis {
	var out []model.RankingAnalysis
	for _, r := range salvageObjects(raw, rankingKey, isRankingObject) {
		if ra, ok := decodeRanking(r); ok {
			out = append(out, ra)
		}
	}
	return out
}

func salvageRecommendations(raw string) []model.ImprovementRecommendation {
	var out []model.ImprovementRecommendation
	for _, r := range salvageObjects(raw, recommendationsKey, isRecommendationObject) {
		if rec, ok := decodeRecommendation(r); ok {
			out = append(out, rec)
		}
	}
	return out
}

// fencedRankings reads a bare JSON array of ranking entries inside a code fence.
func fencedRankings(raw string) []model.RankingAnalysis {
	m := jsonFence.FindStringSubmatch(raw)
	if m == nil || !gjson.Valid(m[1]) {
		return nil
	}
	var out []model.RankingAnalysis
	for _, r := range gjson.Parse(m[1]).Array() {
		if !isRankingObject(r) {
			continue
		}
		if ra, ok := decodeRanking(r); ok {
			out = append(out, ra)
		}
	}
	return out
}

func isRankingObject(r gjson.Result) bool {
	return r.IsObject() && r.Get("rank").Exists() && r.Get("target").Exists()
}

func isRecommendationObject(r gjson.Result) bool {
	return r.IsObject() && !r.Get("rank").Exists() &&
		(r.Get("title").Exists() || r.Get("action").Exists())
}

func decodeRanking(r gjson.Result) (model.RankingAnalysis, bool) {
	rank := int(r.Get("rank").Int())
	if rank < 1 {
		return model.RankingAnalysis{}, false
	}
	return model.RankingAnalysis{
		Provider:           r.Get("provider").String(),
		Target:             strings.TrimSpace(r.Get("target").String()),
		Rank:               rank,
		MatchedKeywords:    stringList(r.Get("matched_keywords")),
		ContextualSignals:  stringList(r.Get("contextual_signals")),
		CompetitorPresence: stringList(r.Get("competitor_presence")),
		Sentiment:          sentiment(r.Get("sentiment").String()),
		CitationDomains:    stringList(r.Get("citation_domains")),
		LLMReasoning:       strings.TrimSpace(r.Get("llm_reasoning").String()),
		MajorReviews:       stringList(r.Get("major_reviews")),
	}, true
}

func decodeRecommendation(r gjson.Result) (model.ImprovementRecommendation, bool) {
	title := r.Get("title").String()
	if title == "" {
		title = r.Get("action").String()
	}
	if title == "" {
		return model.ImprovementRecommendation{}, false
	}
	return model.ImprovementRecommendation{
		Title:       title,
		Description: r.Get("description").String(),
		Priority:    r.Get("priority").String(),
		Impact:      r.Get("impact").String(),
		Effort:      r.Get("effort").String(),
	}, true
}

// stringList flattens a JSON array (or lone scalar) to strings. Object
// elements are kept as their raw JSON.
func stringList(r gjson.Result) []string {
	if !r.Exists() || r.Type == gjson.Null {
		return nil
	}
	var out []string
	for _, v := range r.Array() {
		if s := strings.TrimSpace(v.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func sentiment(s string) model.Sentiment {
	switch model.Sentiment(strings.ToLower(strings.TrimSpace(s))) {
	case model.SentimentPositive:
		return model.SentimentPositive
	case model.SentimentNegative:
		return model.SentimentNegative
	case model.SentimentNeutral:
		return model.SentimentNeutral
	default:
		return ""
	}
}
