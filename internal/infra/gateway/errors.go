package gateway

import (
	"errors"
	"fmt"
	"strings"
)

// RefusedMarker is the substring the service puts in a 400 error body when it
// declines to crawl the target URL.
const RefusedMarker = "Website could not be crawled"

// Kind enumerates the failure modes of a gateway call.
type Kind int

const (
	// KindNotResponding: no HTTP response (connect failure, timeout, reset).
	KindNotResponding Kind = iota + 1
	// KindRefused: 400 with RefusedMarker in the error message.
	KindRefused
	// KindGatewayError: any other 400.
	KindGatewayError
	// KindInternalGatewayError: 500 after retries.
	KindInternalGatewayError
	// KindUnavailable: any other status, or a body that cannot be interpreted.
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotResponding:
		return "not_responding"
	case KindRefused:
		return "refused"
	case KindGatewayError:
		return "gateway_error"
	case KindInternalGatewayError:
		return "internal_gateway_error"
	case KindUnavailable:
		return "unavailable"
	}
	return "unknown"
}

// Error is the single error type surfaced by Session.Send.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (http %d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the failure is transient.
func (e *Error) Retryable() bool {
	return e.Kind == KindNotResponding || e.Kind == KindInternalGatewayError
}

// KindOf extracts the Kind from err, or 0 when err is not a gateway error.
func KindOf(err error) Kind {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind
	}
	return 0
}

// IsRefused reports whether err is a refusal to crawl.
func IsRefused(err error) bool {
	return KindOf(err) == KindRefused
}

// NewError builds a gateway error.
func NewError(kind Kind, status int, msg string, cause error) *Error {
	return &Error{Kind: kind, StatusCode: status, Message: msg, Cause: cause}
}

// classifyBadRequest maps a 400 error message to Refused or GatewayError.
func classifyBadRequest(msg string) Kind {
	if strings.Contains(msg, RefusedMarker) {
		return KindRefused
	}
	return KindGatewayError
}
