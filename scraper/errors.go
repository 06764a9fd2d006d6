package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Request-level categories reported to callers.
const (
	CategoryInvalidInput = "invalid_input"
	CategoryFetch        = "fetch_failure"
	CategoryNoData       = "no_data"
	CategoryUnexpected   = "unexpected"
)

// ErrTimeout indicates a timeout while issuing a request.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrConnection indicates a network connectivity failure.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string {
	return fmt.Errorf("connection: %w", e.Err).Error()
}

func (e ErrConnection) Unwrap() error {
	return e.Err
}

// ErrForbidden indicates a forbidden response (HTTP 403).
type ErrForbidden struct {
	Err error
}

func (e ErrForbidden) Error() string {
	return fmt.Errorf("forbidden: %w", e.Err).Error()
}

func (e ErrForbidden) Unwrap() error {
	return e.Err
}

// ErrNotFound indicates a missing resource (HTTP 404).
type ErrNotFound struct {
	Err error
}

func (e ErrNotFound) Error() string {
	return fmt.Errorf("not_found: %w", e.Err).Error()
}

func (e ErrNotFound) Unwrap() error {
	return e.Err
}

// ErrRateLimited indicates the target rate-limited the request.
type ErrRateLimited struct {
	Err error
}

func (e ErrRateLimited) Error() string {
	return fmt.Errorf("rate_limited: %w", e.Err).Error()
}

func (e ErrRateLimited) Unwrap() error {
	return e.Err
}

// ErrHTTPStatus covers every other unsuccessful status code.
type ErrHTTPStatus struct {
	Code int
	Err  error
}

func (e ErrHTTPStatus) Error() string {
	return fmt.Errorf("http_status %d: %w", e.Code, e.Err).Error()
}

func (e ErrHTTPStatus) Unwrap() error {
	return e.Err
}

// ErrInvalidInput rejects a request before any network call is made.
// SupportedSites is set when the host was outside the allow-list.
type ErrInvalidInput struct {
	Reason         string
	SupportedSites []string
}

func (e ErrInvalidInput) Error() string {
	return e.Reason
}

// ErrFetch wraps any transport failure or unsuccessful status.
type ErrFetch struct {
	URL string
	Err error
}

func (e ErrFetch) Error() string {
	return "Failed to fetch URL: " + e.Err.Error()
}

func (e ErrFetch) Unwrap() error {
	return e.Err
}

// Suggestion is the remediation hint shown to callers.
func (e ErrFetch) Suggestion() string {
	return "Check the URL and try again"
}

// ErrNoData reports a page that yielded zero well-formed records.
type ErrNoData struct {
	URL    string
	Domain string
}

func (e ErrNoData) Error() string {
	return "No book data found on this page"
}

// Suggestion is the remediation hint shown to callers.
func (e ErrNoData) Suggestion() string {
	domain := e.Domain
	if domain == "" {
		domain = "books.toscrape.com"
	}
	return fmt.Sprintf("Try a %s category page", domain)
}

// ErrUnexpected wraps anything the other categories do not cover,
// recovered panics included.
type ErrUnexpected struct {
	Err error
}

func (e ErrUnexpected) Error() string {
	return "An unexpected error occurred"
}

func (e ErrUnexpected) Unwrap() error {
	return e.Err
}

// Details describes the underlying cause.
func (e ErrUnexpected) Details() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// Category maps err to one of the request-level categories. Errors outside
// the taxonomy count as unexpected.
func Category(err error) string {
	var invalid ErrInvalidInput
	if errors.As(err, &invalid) {
		return CategoryInvalidInput
	}
	var fetch ErrFetch
	if errors.As(err, &fetch) {
		return CategoryFetch
	}
	var noData ErrNoData
	if errors.As(err, &noData) {
		return CategoryNoData
	}
	return CategoryUnexpected
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var conn ErrConnection
	if errors.As(err, &conn) {
		return "connection"
	}
	var forbidden ErrForbidden
	if errors.As(err, &forbidden) {
		return "forbidden"
	}
	var notFound ErrNotFound
	if errors.As(err, &notFound) {
		return "not_found"
	}
	var rateLimited ErrRateLimited
	if errors.As(err, &rateLimited) {
		return "rate_limited"
	}
	var status ErrHTTPStatus
	if errors.As(err, &status) {
		return "http_status"
	}
	return "other"
}

func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrConnection{Err: err}
	}

	if statusCode != 0 && (statusCode < 200 || statusCode >= 300 || err != nil) {
		wrapped := fmt.Errorf("%d %s", statusCode, http.StatusText(statusCode))
		switch statusCode {
		case http.StatusForbidden:
			return ErrForbidden{Err: wrapped}
		case http.StatusNotFound:
			return ErrNotFound{Err: wrapped}
		case http.StatusTooManyRequests:
			return ErrRateLimited{Err: wrapped}
		default:
			return ErrHTTPStatus{Code: statusCode, Err: wrapped}
		}
	}

	return err
}
