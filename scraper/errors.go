package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrTimeout indicates a timeout while issuing a request.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string { return "timeout: " + errText(e.Err) }
func (e ErrTimeout) Unwrap() error { return e.Err }

// ErrConnection indicates a network connectivity failure.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string { return "connection: " + errText(e.Err) }
func (e ErrConnection) Unwrap() error { return e.Err }

// ErrStatus is an HTTP error response. Kind is the label used in metrics
// and harvest summaries.
type ErrStatus struct {
	Code int
	Kind string
	Err  error
}

func (e ErrStatus) Error() string {
	return fmt.Sprintf("%s (http %d): %s", e.Kind, e.Code, errText(e.Err))
}

func (e ErrStatus) Unwrap() error { return e.Err }

func errText(err error) string {
	if err == nil {
		return "<nil>"
	}
	return err.Error()
}

// statusKinds maps the HTTP codes we report separately.
var statusKinds = map[int]string{
	http.StatusForbidden:       "forbidden",
	http.StatusNotFound:        "not_found",
	http.StatusTooManyRequests: "rate_limited",
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

	if statusCode != 0 {
		wrapped := err
		if wrapped == nil {
			wrapped = errors.New(http.StatusText(statusCode))
		}
		if kind, ok := statusKinds[statusCode]; ok {
			return ErrStatus{Code: statusCode, Kind: kind, Err: wrapped}
		}
		if statusCode >= http.StatusInternalServerError {
			return ErrStatus{Code: statusCode, Kind: "server_error", Err: wrapped}
		}
	}
	return err
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
	var status ErrStatus
	if errors.As(err, &status) {
		return status.Kind
	}
	return "other"
}

// retryable reports whether a failure of the given category is worth
// another attempt. Missing and forbidden pages will not change.
func retryable(category string) bool {
	switch category {
	case "not_found", "forbidden":
		return false
	default:
		return true
	}
}
