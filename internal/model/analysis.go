package model

// Priority classifies a recommended next step.
type Priority string

const (
	PriorityQuickWin  Priority = "quick_win"
	PriorityStrategic Priority = "strategic"
)

// NextStep is one recommended action in a TargetAnalysis.
type NextStep struct {
	Action   string   `json:"action"`
	Why      string   `json:"why"`
	Priority Priority `json:"priority"`
}

// TargetAnalysis summarizes how visible a target is across providers. It is
// derived from parsed items on demand and never persisted on its own.
type TargetAnalysis struct {
	Headline           string           `json:"headline"`
	AveragePosition    *float64         `json:"average_position"`
	VisibilityScore    float64          `json:"visibility_score"`
	ProvidersMissingIn []string         `json:"providers_missing_in"`
	Positions          map[Provider]int `json:"positions"`
	TargetGaps         []string         `json:"target_gaps"`
	PerformanceDrivers []string         `json:"performance_drivers"`
	NextSteps          []NextStep       `json:"next_steps"`
	SentimentOverall   Sentiment        `json:"sentiment_overall"`
	Confidence         float64          `json:"confidence"`
	Citations          []string         `json:"citations"`
}
