// Package resilience guards outbound provider calls with bounded retries,
// per-provider circuit breakers and status-based error classification.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// CircuitState is where a provider's circuit currently stands.
type CircuitState int

const (
	// CircuitClosed lets every call through.
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects calls until the cooldown has passed.
	CircuitOpen
	// CircuitHalfOpen lets exactly one trial call through.
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON health reports.
func (s CircuitState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name written by MarshalText.
func (s *CircuitState) UnmarshalText(b []byte) error {
	for _, c := range []CircuitState{CircuitClosed, CircuitOpen, CircuitHalfOpen} {
		if c.String() == string(b) {
			*s = c
			return nil
		}
	}
	return eris.Errorf("resilience: unknown circuit state %q", string(b))
}

// ErrCircuitOpen matches every rejection by an open circuit.
var ErrCircuitOpen = eris.New("circuit breaker is open")

// OpenCircuitError names the provider that was skipped and when it will be
// tried again.
type OpenCircuitError struct {
	Provider string
	RetryAt  time.Time
}

func (e *OpenCircuitError) Error() string {
	return fmt.Sprintf("%s: circuit breaker is open until %s", e.Provider, e.RetryAt.UTC().Format(time.RFC3339))
}

// Is makes errors.Is(err, ErrCircuitOpen) hold.
func (e *OpenCircuitError) Is(target error) bool { return target == ErrCircuitOpen }

// CircuitBreakerConfig controls when a provider is taken out of the fan-out.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive retryable failures that
	// opens the circuit.
	FailureThreshold int

	// ResetTimeout is how long an open circuit waits before a trial call.
	ResetTimeout time.Duration

	// OnStateChange, when set, observes every transition.
	OnStateChange func(provider string, from, to CircuitState)
}

// DefaultCircuitBreakerConfig opens after 5 failures and cools down for 30s.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
	}
}

// LogStateChange reports circuit transitions through the global logger.
func LogStateChange(provider string, from, to CircuitState) {
	log := zap.L().With(zap.String("provider", provider), zap.Stringer("from", from), zap.Stringer("to", to))
	if to == CircuitOpen {
		log.Warn("resilience: provider circuit opened")
		return
	}
	log.Info("resilience: provider circuit changed")
}

// CircuitStatus is a point-in-time view of one provider's circuit.
type CircuitStatus struct {
	State               CircuitState `json:"state"`
	ConsecutiveFailures int          `json:"consecutiveFailures"`
	LastError           string       `json:"lastError,omitempty"`
	RetryAt             *time.Time   `json:"retryAt,omitempty"`
}

// CircuitBreaker tracks the health of a single provider. Only failures that
// IsRetryable accepts count against it: a rejected prompt or a bad key says
// nothing about whether the provider is up, and a caller hanging up is not
// the provider's fault.
type CircuitBreaker struct {
	provider string
	cfg      CircuitBreakerConfig

	mu       sync.Mutex
	state    CircuitState
	failures int
	lastErr  string
	openedAt time.Time
	trialOut bool

	nowFunc func() time.Time
}

// NewCircuitBreaker creates a closed breaker for provider.
func NewCircuitBreaker(provider string, cfg CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultCircuitBreakerConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = def.ResetTimeout
	}
	return &CircuitBreaker{
		provider: provider,
		cfg:      cfg,
		nowFunc:  time.Now,
	}
}

// ExecuteVal runs fn unless the circuit rejects the call, then records the
// outcome.
func ExecuteVal[T any](ctx context.Context, cb *CircuitBreaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := cb.admit(); err != nil {
		return zero, err
	}
	val, err := fn(ctx)
	cb.record(err)
	return val, err
}

// State reports the state a call made now would see.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == CircuitOpen && cb.cooledDown() {
		return CircuitHalfOpen
	}
	return cb.state
}

// Status snapshots the breaker for health reporting.
func (cb *CircuitBreaker) Status() CircuitStatus {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	st := CircuitStatus{
		State:               cb.state,
		ConsecutiveFailures: cb.failures,
		LastError:           cb.lastErr,
	}
	if cb.state == CircuitOpen {
		if cb.cooledDown() {
			st.State = CircuitHalfOpen
		} else {
			at := cb.openedAt.Add(cb.cfg.ResetTimeout)
			st.RetryAt = &at
		}
	}
	return st
}

func (cb *CircuitBreaker) cooledDown() bool {
	return cb.nowFunc().Sub(cb.openedAt) >= cb.cfg.ResetTimeout
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitOpen:
		if !cb.cooledDown() {
			return &OpenCircuitError{Provider: cb.provider, RetryAt: cb.openedAt.Add(cb.cfg.ResetTimeout)}
		}
		cb.transition(CircuitHalfOpen)
		cb.trialOut = true
		return nil
	case CircuitHalfOpen:
		// One trial at a time; the rest keep failing fast.
		if cb.trialOut {
			return &OpenCircuitError{Provider: cb.provider, RetryAt: cb.nowFunc()}
		}
		cb.trialOut = true
		return nil
	default:
		return nil
	}
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	trial := cb.state == CircuitHalfOpen
	cb.trialOut = false

	if errors.Is(err, context.Canceled) {
		return
	}
	if err == nil || !IsRetryable(err) {
		cb.failures = 0
		cb.lastErr = ""
		if trial {
			cb.transition(CircuitClosed)
		}
		return
	}

	cb.failures++
	cb.lastErr = err.Error()
	if trial || cb.failures >= cb.cfg.FailureThreshold {
		cb.openedAt = cb.nowFunc()
		if cb.state != CircuitOpen {
			cb.transition(CircuitOpen)
		}
	}
}

func (cb *CircuitBreaker) transition(to CircuitState) {
	from := cb.state
	cb.state = to
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.provider, from, to)
	}
}

// ServiceBreakers holds one circuit breaker per provider.
type ServiceBreakers struct {
	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker
	cfg      CircuitBreakerConfig
}

// NewServiceBreakers creates an empty registry; breakers are made on first use.
func NewServiceBreakers(cfg CircuitBreakerConfig) *ServiceBreakers {
	return &ServiceBreakers{
		breakers: make(map[string]*CircuitBreaker),
		cfg:      cfg,
	}
}

// Get returns provider's breaker, creating it if needed.
func (sb *ServiceBreakers) Get(provider string) *CircuitBreaker {
	sb.mu.RLock()
	cb, ok := sb.breakers[provider]
	sb.mu.RUnlock()
	if ok {
		return cb
	}

	sb.mu.Lock()
	defer sb.mu.Unlock()
	if cb, ok = sb.breakers[provider]; ok {
		return cb
	}
	cb = NewCircuitBreaker(provider, sb.cfg)
	sb.breakers[provider] = cb
	return cb
}

// States maps each provider seen so far to its current state.
func (sb *ServiceBreakers) States() map[string]CircuitState {
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	out := make(map[string]CircuitState, len(sb.breakers))
	for name, cb := range sb.breakers {
		out[name] = cb.State()
	}
	return out
}

// Statuses maps each provider seen so far to its full status.
func (sb *ServiceBreakers) Statuses() map[string]CircuitStatus {
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	out := make(map[string]CircuitStatus, len(sb.breakers))
	for name, cb := range sb.breakers {
		out[name] = cb.Status()
	}
	return out
}
