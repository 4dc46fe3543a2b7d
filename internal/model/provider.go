package model

// Provider identifies one of the external LLM services queried for every search.
type Provider string

const (
	ProviderClaude     Provider = "claude"
	ProviderOpenAI     Provider = "openai"
	ProviderPerplexity Provider = "perplexity"
	ProviderGemini     Provider = "gemini"
)

// AllProviders returns the fixed provider set in display order.
func AllProviders() []Provider {
	return []Provider{
		ProviderClaude,
		ProviderOpenAI,
		ProviderPerplexity,
		ProviderGemini,
	}
}

// DisplayName returns the human-facing provider name.
func (p Provider) DisplayName() string {
	switch p {
	case ProviderClaude:
		return "Claude"
	case ProviderOpenAI:
		return "OpenAI"
	case ProviderPerplexity:
		return "Perplexity"
	case ProviderGemini:
		return "Gemini"
	default:
		return string(p)
	}
}

// Valid reports whether p is one of the known providers.
func (p Provider) Valid() bool {
	for _, known := range AllProviders() {
		if p == known {
			return true
		}
	}
	return false
}

// Mode selects how many items a provider is asked for and how they are grouped.
type Mode string

const (
	// ModeResults is the default flat list of five items.
	ModeResults Mode = "results"
	// ModeResults10 is a flat list of ten items.
	ModeResults10 Mode = "results_10"
	// ModeSelectLocation asks for 20 hotels split into four categories of five.
	ModeSelectLocation Mode = "select_location"
)

// ParseMode maps a raw mode string to a Mode. Empty input means ModeResults.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case "", ModeResults:
		return ModeResults, true
	case ModeResults10:
		return ModeResults10, true
	case ModeSelectLocation:
		return ModeSelectLocation, true
	default:
		return "", false
	}
}

// MaxItems is the rank cap for the mode. Items ranked above it are discarded.
func (m Mode) MaxItems() int {
	switch m {
	case ModeResults10:
		return 10
	case ModeSelectLocation:
		return 20
	default:
		return 5
	}
}

// Categorized reports whether results are partitioned into category buckets.
func (m Mode) Categorized() bool {
	return m == ModeSelectLocation
}
