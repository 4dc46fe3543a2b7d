package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	t.Parallel()

	var calls int
	err := Do(context.Background(), DefaultRetryConfig(), func(_ context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesServerError(t *testing.T) {
	t.Parallel()

	var calls int
	err := Do(context.Background(), fastRetry(2), func(_ context.Context) error {
		calls++
		if calls == 1 {
			return WithStatus(errors.New("bad gateway"), 502)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDo_ExhaustsRetries(t *testing.T) {
	t.Parallel()

	var calls int
	err := Do(context.Background(), fastRetry(2), func(_ context.Context) error {
		calls++
		return NewTransientError(errors.New("always fails"), 500)
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestDo_ClientErrorNotRetried(t *testing.T) {
	t.Parallel()

	for _, code := range []int{400, 401, 404, 429} {
		var calls int
		err := Do(context.Background(), fastRetry(3), func(_ context.Context) error {
			calls++
			return WithStatus(errors.New("rejected"), code)
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls, "status %d", code)
	}
}

func TestDo_PlainErrorNotRetried(t *testing.T) {
	t.Parallel()

	var calls int
	err := Do(context.Background(), fastRetry(3), func(_ context.Context) error {
		calls++
		return errors.New("provider: empty response")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelledStopsRetry(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxAttempts: 5, InitialBackoff: 50 * time.Millisecond}

	var calls int
	err := Do(ctx, cfg, func(_ context.Context) error {
		calls++
		if calls == 2 {
			cancel()
		}
		return NewTransientError(errors.New("fail"), 500)
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestDoVal_AttemptTimeoutIsRetried(t *testing.T) {
	t.Parallel()

	cfg := fastRetry(2)
	cfg.AttemptTimeout = 20 * time.Millisecond

	var calls atomic.Int32
	val, err := DoVal(context.Background(), cfg, func(ctx context.Context) (string, error) {
		if calls.Add(1) == 1 {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "late but fine", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "late but fine", val)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDoVal_AttemptTimeoutExhausted(t *testing.T) {
	t.Parallel()

	cfg := fastRetry(2)
	cfg.AttemptTimeout = 10 * time.Millisecond

	_, err := DoVal(context.Background(), cfg, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, IsRetryable(err))
}

func TestDo_CustomShouldRetry(t *testing.T) {
	t.Parallel()

	var calls int
	cfg := fastRetry(3)
	cfg.ShouldRetry = func(err error) bool { return err.Error() == "retry me" }

	err := Do(context.Background(), cfg, func(_ context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("retry me")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDo_OnRetryCallback(t *testing.T) {
	t.Parallel()

	var attempts []int
	cfg := fastRetry(3)
	cfg.OnRetry = func(attempt int, _ error) { attempts = append(attempts, attempt) }

	_ = Do(context.Background(), cfg, func(_ context.Context) error {
		return NewTransientError(errors.New("fail"), 500)
	})
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestDoVal_ReturnsZeroOnFailure(t *testing.T) {
	t.Parallel()

	val, err := DoVal(context.Background(), fastRetry(2), func(_ context.Context) (int, error) {
		return 42, NewTransientError(errors.New("fail"), 500)
	})
	require.Error(t, err)
	assert.Zero(t, val)
}

func TestApplyDefaults(t *testing.T) {
	t.Parallel()

	cfg := applyDefaults(RetryConfig{JitterFraction: -1})
	assert.Equal(t, 2, cfg.MaxAttempts)
	assert.Equal(t, time.Second, cfg.InitialBackoff)
	assert.Equal(t, 10*time.Second, cfg.MaxBackoff)
	assert.Equal(t, 2.0, cfg.Multiplier)
	assert.Zero(t, cfg.JitterFraction)
}

func TestComputeBackoff_ExponentialGrowth(t *testing.T) {
	t.Parallel()

	cfg := applyDefaults(RetryConfig{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2.0,
	})

	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond}
	for i, d := range want {
		assert.Equal(t, d, computeBackoff(i, cfg), "attempt %d", i)
	}
}

func TestComputeBackoff_CapsAtMax(t *testing.T) {
	t.Parallel()

	cfg := applyDefaults(RetryConfig{InitialBackoff: time.Second, MaxBackoff: 5 * time.Second, Multiplier: 10})
	assert.LessOrEqual(t, computeBackoff(5, cfg), 5*time.Second)
}

func TestComputeBackoff_WithJitter(t *testing.T) {
	t.Parallel()

	cfg := applyDefaults(RetryConfig{InitialBackoff: time.Second, MaxBackoff: 30 * time.Second, JitterFraction: 0.5})

	seen := make(map[time.Duration]bool)
	for i := 0; i < 100; i++ {
		d := computeBackoff(0, cfg)
		seen[d] = true
		assert.GreaterOrEqual(t, d, 500*time.Millisecond)
		assert.LessOrEqual(t, d, 1500*time.Millisecond)
	}
	assert.Greater(t, len(seen), 1)
}

func TestRetryLogger(t *testing.T) {
	t.Parallel()

	logger := RetryLogger("claude", "complete")
	logger(1, errors.New("test error"))
}
