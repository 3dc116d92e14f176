package model

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// TransientError marks a generation failure expected to resolve with time and
// retry (rate limiting, temporary unavailability). Everything not wrapped in
// TransientError is treated as fatal by the retry controller.
type TransientError struct {
	Err error
}

// Error implements the error interface.
func (e *TransientError) Error() string {
	return fmt.Sprintf("transient generation failure: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientError. A nil err returns nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err (or anything it wraps) is a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// TransientStatus reports whether an HTTP status code signals a transient
// provider condition (rate limiting, overload, gateway trouble).
func TransientStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, // 429
		http.StatusBadGateway,         // 502
		http.StatusServiceUnavailable, // 503
		http.StatusGatewayTimeout,     // 504
		529: // anthropic overloaded
		return true
	}
	return false
}

// ClassifyNetErr wraps network-level timeouts as transient; anything else is
// returned unchanged. Context cancellation is never transient.
func ClassifyNetErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Transient(err)
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.Temporary() {
		return Transient(err)
	}
	return err
}
