package provider

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/trueinf/geosight-new-sub000/internal/model"
	"github.com/trueinf/geosight-new-sub000/internal/resilience"
)

// AdaptiveLimiter wraps a rate.Limiter with adaptive rate adjustment.
// On success it increases the rate by 20% (up to the initial rate).
// On 429 it halves the rate (down to initial/4 minimum).
type AdaptiveLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	maxRate     rate.Limit
	minRate     rate.Limit
	currentRate rate.Limit
}

// NewAdaptiveLimiter creates a limiter allowing perMinute requests with a
// burst of one.
func NewAdaptiveLimiter(perMinute int) *AdaptiveLimiter {
	r := rate.Every(time.Minute / time.Duration(perMinute))
	return &AdaptiveLimiter{
		limiter:     rate.NewLimiter(r, 1),
		maxRate:     r,
		minRate:     r / 4,
		currentRate: r,
	}
}

// Wait blocks until the limiter allows an event.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess increases the rate by 20%, up to the configured rate.
func (a *AdaptiveLimiter) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.setLocked(min(a.currentRate*1.2, a.maxRate))
}

// OnRateLimit halves the rate after a 429.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.setLocked(max(a.currentRate*0.5, a.minRate))
}

func (a *AdaptiveLimiter) setLocked(r rate.Limit) {
	a.currentRate = r
	a.limiter.SetLimit(r)
}

// Limit returns the current rate limit.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}

type pacedCaller struct {
	next    Caller
	limiter *AdaptiveLimiter
}

// Paced wraps c so outbound calls respect perMinute. A non-positive perMinute
// returns c unchanged.
func Paced(c Caller, perMinute int) Caller {
	if perMinute <= 0 {
		return c
	}
	return &pacedCaller{next: c, limiter: NewAdaptiveLimiter(perMinute)}
}

func (p *pacedCaller) Provider() model.Provider { return p.next.Provider() }

func (p *pacedCaller) Complete(ctx context.Context, prompt string) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "provider: rate limit wait")
	}
	text, err := p.next.Complete(ctx, prompt)
	switch {
	case err == nil:
		p.limiter.OnSuccess()
	case resilience.StatusCode(err) == http.StatusTooManyRequests:
		p.limiter.OnRateLimit()
		zap.L().Warn("provider: rate limited, slowing down",
			zap.String("provider", string(p.next.Provider())),
			zap.Float64("new_rate", float64(p.limiter.Limit())),
		)
	}
	return text, err
}
