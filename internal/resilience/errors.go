package resilience

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// TransientError wraps a failure that may succeed on a later attempt, such as
// a provider timeout or a 5xx response.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps an error as transient with an optional HTTP status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// PermanentError wraps a failure that will not change on retry: bad
// credentials, quota exhaustion, malformed requests.
type PermanentError struct {
	Err        error
	StatusCode int
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// NewPermanentError wraps an error as permanent with an optional HTTP status code.
func NewPermanentError(err error, statusCode int) *PermanentError {
	return &PermanentError{Err: err, StatusCode: statusCode}
}

// WithStatus classifies err by the HTTP status that produced it. 408 and 5xx
// become TransientError; every other status becomes PermanentError.
func WithStatus(err error, statusCode int) error {
	if err == nil {
		return nil
	}
	if IsTransientHTTPStatus(statusCode) {
		return NewTransientError(err, statusCode)
	}
	return NewPermanentError(err, statusCode)
}

// StatusCode returns the HTTP status recorded on err's chain, or 0.
func StatusCode(err error) int {
	var te *TransientError
	if errors.As(err, &te) {
		return te.StatusCode
	}
	var pe *PermanentError
	if errors.As(err, &pe) {
		return pe.StatusCode
	}
	return 0
}

// IsRetryable reports whether err is worth another attempt. Timeouts,
// connection failures, 408 and 5xx responses are retryable. 4xx responses
// (429 included) and anything marked permanent are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var pe *PermanentError
	if errors.As(err, &pe) {
		return false
	}
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// HTTP clients often flatten these into strings.
	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"unexpected eof",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsTransientHTTPStatus reports whether statusCode is a server-side or
// timeout condition that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusRequestTimeout ||
		(statusCode >= http.StatusInternalServerError && statusCode < 600)
}
