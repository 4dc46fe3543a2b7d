package provider

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/trueinf/geosight-new-sub000/internal/model"
	"github.com/trueinf/geosight-new-sub000/internal/provider/mocks"
	"github.com/trueinf/geosight-new-sub000/internal/resilience"
)

func TestPaced_Disabled(t *testing.T) {
	t.Parallel()
	m := mocks.NewMockCaller(t, model.ProviderClaude)
	assert.Same(t, m, Paced(m, 0))
}

func TestPaced_PassesThrough(t *testing.T) {
	t.Parallel()

	m := mocks.NewMockCaller(t, model.ProviderOpenAI)
	m.On("Complete", mock.Anything, "q").Return("answer", nil).Once()

	c := Paced(m, 6000)
	assert.Equal(t, model.ProviderOpenAI, c.Provider())

	got, err := c.Complete(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "answer", got)
}

func TestPaced_SlowsDownOn429(t *testing.T) {
	t.Parallel()

	limited := resilience.WithStatus(errors.New("too many"), http.StatusTooManyRequests)
	m := mocks.NewMockCaller(t, model.ProviderGemini)
	m.On("Complete", mock.Anything, "q").Return("", limited).Once()

	c := Paced(m, 6000).(*pacedCaller)
	before := c.limiter.Limit()

	_, err := c.Complete(context.Background(), "q")
	require.ErrorIs(t, err, limited)
	assert.InDelta(t, float64(before)/2, float64(c.limiter.Limit()), 1e-9)
}

func TestPaced_ContextCancelledWhileWaiting(t *testing.T) {
	t.Parallel()

	m := mocks.NewMockCaller(t, model.ProviderClaude)
	m.On("Complete", mock.Anything, "q").Return("ok", nil).Once()

	// One request per minute: the second call cannot get a token in time.
	c := Paced(m, 1)
	_, err := c.Complete(context.Background(), "q")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Complete(ctx, "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit wait")
}

func TestAdaptiveLimiter_Bounds(t *testing.T) {
	t.Parallel()

	a := NewAdaptiveLimiter(60)
	initial := a.Limit()
	assert.InDelta(t, float64(rate.Every(time.Second)), float64(initial), 1e-9)

	a.OnSuccess()
	assert.Equal(t, initial, a.Limit(), "never faster than configured")

	for range 5 {
		a.OnRateLimit()
	}
	assert.InDelta(t, float64(initial)/4, float64(a.Limit()), 1e-9)

	a.OnSuccess()
	assert.InDelta(t, float64(initial)/4*1.2, float64(a.Limit()), 1e-9)
}
