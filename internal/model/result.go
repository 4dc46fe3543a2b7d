package model

import "time"

// FetchResult is the assembled outcome of one fan-out across all providers.
// Providers that failed have an empty item slice and an entry in Errors.
type FetchResult struct {
	ProviderItems              map[Provider][]ParsedResultItem            `json:"providerItems"`
	ImprovementRecommendations map[Provider][]ImprovementRecommendation   `json:"improvementRecommendations"`
	KeywordPositions           map[Provider]*int                          `json:"keywordPositions"`
	Categories                 map[Provider]map[string][]ParsedResultItem `json:"categories,omitempty"`
	Errors                     map[Provider]string                        `json:"errors,omitempty"`
}

// NewFetchResult returns a FetchResult with every provider present and empty.
func NewFetchResult() *FetchResult {
	r := &FetchResult{
		ProviderItems:              make(map[Provider][]ParsedResultItem),
		ImprovementRecommendations: make(map[Provider][]ImprovementRecommendation),
		KeywordPositions:           make(map[Provider]*int),
	}
	for _, p := range AllProviders() {
		r.ProviderItems[p] = []ParsedResultItem{}
		r.ImprovementRecommendations[p] = nil
		r.KeywordPositions[p] = nil
	}
	return r
}

// Snapshot is a persisted search: the request, the fetched result and the
// analysis computed from it.
type Snapshot struct {
	ID        string          `json:"id"`
	Query     string          `json:"query"`
	Target    string          `json:"target"`
	Mode      Mode            `json:"mode"`
	Location  string          `json:"location,omitempty"`
	Result    *FetchResult    `json:"result"`
	Analysis  *TargetAnalysis `json:"analysis,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
