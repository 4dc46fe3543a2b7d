// Package pipeline fans a query out to every configured provider, turns each
// answer into parsed result items and assembles the combined result.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/trueinf/geosight-new-sub000/internal/categorize"
	"github.com/trueinf/geosight-new-sub000/internal/config"
	"github.com/trueinf/geosight-new-sub000/internal/model"
	"github.com/trueinf/geosight-new-sub000/internal/parse"
	"github.com/trueinf/geosight-new-sub000/internal/provider"
	"github.com/trueinf/geosight-new-sub000/internal/resilience"
)

// DefaultStagger separates the start of consecutive provider calls.
const DefaultStagger = 100 * time.Millisecond

// errNotConfigured is recorded for providers without an API key.
const errNotConfigured = "provider not configured"

// Query is one search request.
type Query struct {
	Text     string     `json:"query" yaml:"query"`
	Target   string     `json:"target" yaml:"target"`
	Mode     model.Mode `json:"mode" yaml:"mode"`
	Location string     `json:"location,omitempty" yaml:"location"`
}

// ValidationError reports a malformed Query. It is the only error FetchAll
// returns and is never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("pipeline: invalid %s: %s", e.Field, e.Message)
}

// Normalize trims the query and resolves its mode. Empty text or an unknown
// mode is a ValidationError.
func (q Query) Normalize() (Query, error) {
	q.Text = strings.TrimSpace(q.Text)
	q.Target = strings.TrimSpace(q.Target)
	q.Location = strings.TrimSpace(q.Location)

	if q.Text == "" {
		return q, &ValidationError{Field: "query", Message: "must not be empty"}
	}
	mode, ok := model.ParseMode(string(q.Mode))
	if !ok {
		return q, &ValidationError{Field: "mode", Message: fmt.Sprintf("unknown mode %q", q.Mode)}
	}
	q.Mode = mode
	if mode.Categorized() && q.Location == "" {
		q.Location = categorize.LocationFromQuery(q.Text)
	}
	return q, nil
}

// Options tunes a Fetcher. Zero values fall back to defaults.
type Options struct {
	Stagger  time.Duration
	Retry    resilience.RetryConfig
	Breakers *resilience.ServiceBreakers
	Cache    *Cache
}

// OptionsFromConfig maps fetch settings onto Options.
func OptionsFromConfig(cfg config.FetchConfig) Options {
	return Options{
		Stagger:  time.Duration(cfg.StaggerMs) * time.Millisecond,
		Retry:    resilience.FromRetryConfig(cfg.MaxAttempts, cfg.InitialBackoffMs, cfg.TimeoutSecs),
		Breakers: loggedBreakers(resilience.FromCircuitConfig(cfg.CircuitFailureThreshold, cfg.CircuitResetSecs)),
		Cache:    NewCache(time.Duration(cfg.CacheTTLSecs)*time.Second, 0),
	}
}

// loggedBreakers builds per-provider breakers whose transitions are logged.
func loggedBreakers(cfg resilience.CircuitBreakerConfig) *resilience.ServiceBreakers {
	if cfg.OnStateChange == nil {
		cfg.OnStateChange = resilience.LogStateChange
	}
	return resilience.NewServiceBreakers(cfg)
}

// Fetcher queries every provider for a Query in parallel.
type Fetcher struct {
	callers  []provider.Caller
	stagger  time.Duration
	retry    resilience.RetryConfig
	breakers *resilience.ServiceBreakers
	cache    *Cache
	inflight singleflight.Group
}

// NewFetcher creates a Fetcher over callers. Callers are started in the order
// given, each delayed by its index times the stagger.
func NewFetcher(callers []provider.Caller, opts Options) *Fetcher {
	if opts.Breakers == nil {
		opts.Breakers = loggedBreakers(resilience.DefaultCircuitBreakerConfig())
	}
	if opts.Cache == nil {
		opts.Cache = NewCache(DefaultCacheTTL, 0)
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = resilience.FromRetryConfig(0, 0, 30)
	}
	opts.Retry.ShouldRetry = resilience.IsRetryable
	return &Fetcher{
		callers:  callers,
		stagger:  opts.Stagger,
		retry:    opts.Retry,
		breakers: opts.Breakers,
		cache:    opts.Cache,
	}
}

// Cache exposes the result cache so the boundary layer can invalidate it.
func (f *Fetcher) Cache() *Cache { return f.cache }

// Breakers exposes the per-provider circuit breakers for health reporting.
func (f *Fetcher) Breakers() *resilience.ServiceBreakers { return f.breakers }

// FetchAll runs q against every provider and returns the combined result.
// Provider failures never fail the call: the provider gets an empty item list
// and an entry in Errors. Only a malformed query returns an error. Concurrent
// calls for the same query share one fan-out.
func (f *Fetcher) FetchAll(ctx context.Context, q Query) (*model.FetchResult, error) {
	q, err := q.Normalize()
	if err != nil {
		return nil, err
	}

	key := CacheKey(q)
	if cached := f.cache.Get(key); cached != nil {
		zap.L().Debug("pipeline: cache hit", zap.String("query", q.Text), zap.String("mode", string(q.Mode)))
		return cached, nil
	}

	v, _, _ := f.inflight.Do(key, func() (any, error) {
		return f.fetchAndStore(ctx, key, q), nil
	})
	fl := v.(flight)
	if fl.cutShort && ctx.Err() == nil {
		// The shared fan-out ran on a context that ended before ours.
		zap.L().Debug("pipeline: refetching after cancelled fan-out", zap.String("query", q.Text))
		fl = f.fetchAndStore(ctx, key, q)
	}
	return fl.res, nil
}

// flight is what one fan-out hands to everyone waiting on it.
type flight struct {
	res      *model.FetchResult
	cutShort bool
}

// fetchAndStore runs the fan-out and caches the result only when it ran to
// completion and at least one provider answered.
func (f *Fetcher) fetchAndStore(ctx context.Context, key string, q Query) flight {
	res := f.fetch(ctx, q)
	fl := flight{res: res, cutShort: ctx.Err() != nil}
	if !fl.cutShort && f.answered(res) {
		f.cache.Put(key, res)
	}
	return fl
}

// answered reports whether any configured provider returned without error.
func (f *Fetcher) answered(res *model.FetchResult) bool {
	for _, c := range f.callers {
		if _, failed := res.Errors[c.Provider()]; !failed {
			return true
		}
	}
	return false
}

type outcome struct {
	items      []model.ParsedResultItem
	structured parse.Structured
	err        error
}

func (f *Fetcher) fetch(ctx context.Context, q Query) *model.FetchResult {
	log := zap.L().With(zap.String("query", q.Text), zap.String("target", q.Target), zap.String("mode", string(q.Mode)))
	start := time.Now()
	prompt := provider.BuildPrompt(q.Text, q.Target, q.Mode, q.Location)

	outcomes := make([]outcome, len(f.callers))
	var g errgroup.Group
	for i, c := range f.callers {
		g.Go(func() error {
			outcomes[i] = f.fetchOne(ctx, time.Duration(i)*f.stagger, c, prompt, q)
			return nil
		})
	}
	_ = g.Wait()

	res := model.NewFetchResult()
	res.Errors = make(map[model.Provider]string)
	if q.Mode.Categorized() {
		res.Categories = make(map[model.Provider]map[string][]model.ParsedResultItem)
	}

	configured := make(map[model.Provider]bool, len(f.callers))
	for i, c := range f.callers {
		p := c.Provider()
		configured[p] = true
		o := outcomes[i]
		if o.err != nil {
			res.Errors[p] = o.err.Error()
			continue
		}
		items := o.items
		if q.Mode.Categorized() {
			res.Categories[p] = categorize.Categorize(items, q.Location)
			categorize.Label(items, q.Location)
		}
		res.ProviderItems[p] = items
		if len(o.structured.ImprovementRecommendations) > 0 {
			res.ImprovementRecommendations[p] = o.structured.ImprovementRecommendations
		}
		res.KeywordPositions[p] = keywordPosition(o.structured, items)
	}
	for _, p := range model.AllProviders() {
		if !configured[p] {
			res.Errors[p] = errNotConfigured
		}
	}
	if len(res.Errors) == 0 {
		res.Errors = nil
	}

	log.Info("pipeline: fetch complete",
		zap.Int("providers", len(f.callers)),
		zap.Int("failed", len(res.Errors)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res
}

// fetchOne waits out its stagger, then calls one provider through its
// circuit breaker with bounded retry. Any failure is returned in the outcome.
func (f *Fetcher) fetchOne(ctx context.Context, delay time.Duration, c provider.Caller, prompt string, q Query) outcome {
	p := c.Provider()
	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return outcome{err: ctx.Err()}
		case <-timer.C:
		}
	}

	retry := f.retry
	retry.OnRetry = resilience.RetryLogger(string(p), "complete")
	cb := f.breakers.Get(string(p))

	raw, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (string, error) {
		return resilience.ExecuteVal(ctx, cb, func(ctx context.Context) (string, error) {
			return c.Complete(ctx, prompt)
		})
	})
	if err != nil {
		zap.L().Warn("pipeline: provider failed",
			zap.String("provider", string(p)),
			zap.Int("status", resilience.StatusCode(err)),
			zap.Error(err),
		)
		return outcome{err: err}
	}

	st := parse.ExtractStructured(raw)
	items := parse.Parse(raw, st.RankingAnalysis, parse.Options{Mode: q.Mode, Target: q.Target})
	return outcome{items: items, structured: st}
}

// keywordPosition prefers the provider's own report and falls back to the
// rank of the first item matching the target.
func keywordPosition(st parse.Structured, items []model.ParsedResultItem) *int {
	if st.KeywordPosition != nil {
		return st.KeywordPosition
	}
	for _, it := range items {
		if it.IsTarget {
			rank := it.Rank
			return &rank
		}
	}
	return nil
}

// Providers lists the providers that have a caller, in call order.
func (f *Fetcher) Providers() []model.Provider {
	out := make([]model.Provider, 0, len(f.callers))
	for _, c := range f.callers {
		out = append(out, c.Provider())
	}
	return out
}
