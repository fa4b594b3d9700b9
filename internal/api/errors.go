package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrInvalidResponseShape matches any *InvalidResponseShapeError via errors.Is.
var ErrInvalidResponseShape = errors.New("api: invalid response shape")

// NetworkError means no response was received.
type NetworkError struct {
	Path string
	Err  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("api: network error on %s: %v", e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// TimeoutError means the attempt exceeded the configured timeout.
type TimeoutError struct {
	Path    string
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("api: %s timed out after %s", e.Path, e.Timeout)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// HTTPStatusError is returned for any non-2xx response. Message is whatever
// the server put in the body, which is not guaranteed to be structured.
type HTTPStatusError struct {
	Path    string
	Status  int
	Message string
}

func (e *HTTPStatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("api: %s returned %d: %s", e.Path, e.Status, msg)
}

// InvalidResponseShapeError reports a body that decoded but did not match the
// expected envelope, or did not decode at all.
type InvalidResponseShapeError struct {
	Path   string
	Reason string
	Err    error
}

func (e *InvalidResponseShapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("api: invalid response from %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("api: invalid response from %s: %s", e.Path, e.Reason)
}

func (e *InvalidResponseShapeError) Unwrap() error { return e.Err }

func (e *InvalidResponseShapeError) Is(target error) bool {
	return target == ErrInvalidResponseShape
}

// Kind names the error class for display and log fields.
func Kind(err error) string {
	var (
		netErr     *NetworkError
		timeoutErr *TimeoutError
		statusErr  *HTTPStatusError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &timeoutErr):
		return "timeout"
	case errors.As(err, &netErr):
		return "network"
	case errors.As(err, &statusErr):
		return fmt.Sprintf("http_%d", statusErr.Status)
	case errors.Is(err, ErrInvalidResponseShape):
		return "invalid_response"
	default:
		return "unknown"
	}
}

// retryableStatus lists the statuses worth another attempt.
var retryableStatus = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusConflict:            true,
	http.StatusTooEarly:            true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

func retryable(err error) bool {
	var (
		netErr     *NetworkError
		timeoutErr *TimeoutError
		statusErr  *HTTPStatusError
	)
	switch {
	case errors.As(err, &timeoutErr):
		return true
	case errors.As(err, &netErr):
		return true
	case errors.As(err, &statusErr):
		return retryableStatus[statusErr.Status]
	}
	return false
}
