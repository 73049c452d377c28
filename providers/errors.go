package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Sentinel errors for the normalized failure taxonomy. Every upstream
// transport or auth failure is folded into one of these four values before
// it crosses the adapter boundary; callers check them with errors.Is().
var (
	// ErrAuth indicates the API key is missing, malformed, or unauthorized.
	ErrAuth = errors.New("providers: invalid or unauthorized API key")

	// ErrRateLimited indicates the upstream rate limit has been exceeded.
	ErrRateLimited = errors.New("providers: rate limit exceeded")

	// ErrTimeout indicates the upstream connection timed out or dropped.
	ErrTimeout = errors.New("providers: upstream timed out")

	// ErrMalformed indicates the upstream replied with something the adapter
	// could not interpret as a completion stream.
	ErrMalformed = errors.New("providers: malformed upstream response")

	// ErrStop is returned by a delta callback to stop consuming the stream
	// early. Adapters treat it as a graceful end, not a failure.
	ErrStop = errors.New("providers: stop streaming")
)

// UpstreamError wraps a provider failure with its origin. It unwraps to one
// of the sentinel errors above; no raw upstream error text escapes without a
// sentinel classification attached.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %s error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %s error: %s", e.Provider, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to the taxonomy
func classifyStatus(provider string, code int, message string) error {
	var sentinel error
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		sentinel = ErrAuth
	case code == http.StatusTooManyRequests:
		sentinel = ErrRateLimited
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		sentinel = ErrTimeout
	default:
		sentinel = ErrMalformed
	}
	return &UpstreamError{Provider: provider, StatusCode: code, Message: message, Err: sentinel}
}

// classifyTransport maps a transport-level error to the taxonomy
func classifyTransport(provider string, err error) error {
	sentinel := ErrMalformed
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		sentinel = ErrTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		sentinel = ErrTimeout
	}
	return &UpstreamError{Provider: provider, Message: err.Error(), Err: sentinel}
}
