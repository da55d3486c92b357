package gateway

import (
	"errors"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryConfig defines transport-level retry behavior.
type RetryConfig struct {
	MaxRetries  uint64        `yaml:"max_retries"`
	InitialWait time.Duration `yaml:"initial_wait"`
	MaxWait     time.Duration `yaml:"max_wait"`
}

// DefaultRetryConfig provides sensible defaults.
var DefaultRetryConfig = RetryConfig{
	MaxRetries:  3,
	InitialWait: 500 * time.Millisecond,
	MaxWait:     10 * time.Second,
}

// backoff waits InitialWait * 2^(n-1) before the n-th retry, capped at MaxWait.
func (c RetryConfig) backoff() retry.Backoff {
	b := retry.NewExponential(c.InitialWait)
	if c.MaxWait > 0 {
		b = retry.WithCappedDuration(c.MaxWait, b)
	}
	return retry.WithMaxRetries(c.MaxRetries, b)
}

// retryableStatus lists the statuses retried at the transport layer.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// ErrorAction determines how a caller handles a surfaced gateway error.
type ErrorAction int

const (
	// ActionRetry: transient, worth queueing for a later attempt.
	ActionRetry ErrorAction = iota
	// ActionRecordRefused: permanent refusal, record the URL as missing.
	ActionRecordRefused
	// ActionSurface: report and move on.
	ActionSurface
)

func (a ErrorAction) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionRecordRefused:
		return "record_refused"
	}
	return "surface"
}

// ClassifyError determines the action for a given error. Unavailable errors
// carrying a transient status (429, 502, 503, 504) are worth another run.
func ClassifyError(err error) ErrorAction {
	var gerr *Error
	if !errors.As(err, &gerr) {
		return ActionSurface
	}
	switch gerr.Kind {
	case KindRefused:
		return ActionRecordRefused
	case KindNotResponding, KindInternalGatewayError:
		return ActionRetry
	case KindUnavailable:
		if retryableStatus(gerr.StatusCode) {
			return ActionRetry
		}
	}
	return ActionSurface
}
