package model

// Sentiment is the tone a provider expressed about a ranked entry.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// ParsedResultItem is one ranked entry returned by one provider for one query.
type ParsedResultItem struct {
	Rank            int              `json:"rank"`
	Title           string           `json:"title"`
	Description     string           `json:"description,omitempty"`
	Rating          string           `json:"rating,omitempty"`
	PriceRange      string           `json:"priceRange,omitempty"`
	Website         string           `json:"website,omitempty"`
	Category        string           `json:"category,omitempty"`
	Why             string           `json:"why,omitempty"`
	Citations       []string         `json:"citations,omitempty"`
	RankingAnalysis *RankingAnalysis `json:"rankingAnalysis,omitempty"`
	IsTarget        bool             `json:"isTarget,omitempty"`
}

// RankingAnalysis is the structured record a provider may emit alongside its
// free-text list. Entries are matched to text items by Rank.
type RankingAnalysis struct {
	Provider           string    `json:"provider,omitempty"`
	Target             string    `json:"target"`
	Rank               int       `json:"rank"`
	MatchedKeywords    []string  `json:"matched_keywords,omitempty"`
	ContextualSignals  []string  `json:"contextual_signals,omitempty"`
	CompetitorPresence []string  `json:"competitor_presence,omitempty"`
	Sentiment          Sentiment `json:"sentiment,omitempty"`
	CitationDomains    []string  `json:"citation_domains,omitempty"`
	LLMReasoning       string    `json:"llm_reasoning,omitempty"`
	MajorReviews       []string  `json:"major_reviews,omitempty"`
}

// ImprovementRecommendation is a provider-suggested action for the target.
// It is passed through to callers untouched.
type ImprovementRecommendation struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty"`
	Impact      string `json:"impact,omitempty"`
	Effort      string `json:"effort,omitempty"`
}
