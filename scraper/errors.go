package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// TransportError is an attempt that produced no response at all: a
// timeout, a refused connection or a failed DNS lookup.
type TransportError struct {
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("timeout: %v", e.Err)
	}
	return fmt.Sprintf("connection: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError is any response other than 200 OK. It is retried exactly
// like a TransportError.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Kind names the status family used in logs and metrics.
func (e *StatusError) Kind() string {
	switch e.StatusCode {
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusTooManyRequests:
		return "rate_limited"
	default:
		return "status"
	}
}

// FetchError is returned once every attempt for a URL has failed. Cause is
// the classified failure of the last attempt.
type FetchError struct {
	URL      string
	Attempts int
	Cause    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: gave up after %d attempts: %v", e.URL, e.Attempts, e.Cause)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var transport *TransportError
	if errors.As(err, &transport) {
		if transport.Timeout {
			return "timeout"
		}
		return "connection"
	}
	var status *StatusError
	if errors.As(err, &status) {
		return status.Kind()
	}
	return "other"
}

// classifyError maps the outcome of one attempt onto TransportError or
// StatusError. A 200 with no error classifies as nil.
func classifyError(err error, statusCode int) error {
	if err == nil {
		if statusCode == 0 || statusCode == http.StatusOK {
			return nil
		}
		return &StatusError{StatusCode: statusCode}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{Timeout: true, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &TransportError{Timeout: netErr.Timeout(), Err: err}
	}
	if statusCode != 0 && statusCode != http.StatusOK {
		return fmt.Errorf("%w: %w", &StatusError{StatusCode: statusCode}, err)
	}
	return err
}
