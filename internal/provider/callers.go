package provider

import (
	"github.com/trueinf/geosight-new-sub000/internal/config"
	"github.com/trueinf/geosight-new-sub000/pkg/anthropic"
	"github.com/trueinf/geosight-new-sub000/pkg/gemini"
	"github.com/trueinf/geosight-new-sub000/pkg/openai"
	"github.com/trueinf/geosight-new-sub000/pkg/perplexity"
)

// NewCallers builds a paced Caller for every provider with an API key, in
// display order. Providers without a key are left out and report empty
// results.
func NewCallers(cfg *config.Config) []Caller {
	var out []Caller
	perMinute := cfg.Fetch.RequestsPerMinute

	if p := cfg.Anthropic; p.Key != "" {
		var opts []anthropic.Option
		if p.Model != "" {
			opts = append(opts, anthropic.WithModel(p.Model))
		}
		if p.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(p.BaseURL))
		}
		out = append(out, Paced(NewClaude(anthropic.NewClient(p.Key, opts...)), perMinute))
	}
	if p := cfg.OpenAI; p.Key != "" {
		var opts []openai.Option
		if p.Model != "" {
			opts = append(opts, openai.WithModel(p.Model))
		}
		if p.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(p.BaseURL))
		}
		out = append(out, Paced(NewOpenAI(openai.NewClient(p.Key, opts...)), perMinute))
	}
	if p := cfg.Perplexity; p.Key != "" {
		var opts []perplexity.Option
		if p.Model != "" {
			opts = append(opts, perplexity.WithModel(p.Model))
		}
		if p.BaseURL != "" {
			opts = append(opts, perplexity.WithBaseURL(p.BaseURL))
		}
		out = append(out, Paced(NewPerplexity(perplexity.NewClient(p.Key, opts...)), perMinute))
	}
	if p := cfg.Gemini; p.Key != "" {
		var opts []gemini.Option
		if p.Model != "" {
			opts = append(opts, gemini.WithModel(p.Model))
		}
		if p.BaseURL != "" {
			opts = append(opts, gemini.WithBaseURL(p.BaseURL))
		}
		out = append(out, Paced(NewGemini(gemini.NewClient(p.Key, opts...)), perMinute))
	}
	return out
}
