package apierror

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/jrsteele09/dealscope-client/internal/errors"
)

// Kind classifies a failed call.
type Kind int

const (
	// KindTransport: the request never reached the server or the response never arrived.
	// Includes aborts and timeouts.
	KindTransport Kind = iota
	// KindAuthentication: a 401 that survived the refresh attempt, or a 401 on a public endpoint.
	KindAuthentication
	// KindClient: any other 4xx.
	KindClient
	// KindServer: 5xx.
	KindServer
	// KindMalformed: a 2xx body that could not be decoded.
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindAuthentication:
		return "authentication"
	case KindClient:
		return "client"
	case KindServer:
		return "server"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// APIError is the only error type returned across the request executor boundary.
type APIError struct {
	Message string
	Status  int
	Code    string
	Kind    Kind
	Err     error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

const (
	sessionExpiredMessage = "Your session has expired. Please log in again."
	abortedMessage        = "Request was cancelled"
	timeoutMessage        = "Request timed out"
	networkMessage        = "Network error: unable to reach the server"
	malformedMessage      = "Received an invalid response from the server"
)

// KindForStatus maps an HTTP status to the error taxonomy.
func KindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindAuthentication
	case status >= 500:
		return KindServer
	default:
		return KindClient
	}
}

// NewSessionExpired is returned when a 401 survives the refresh attempt.
func NewSessionExpired() *APIError {
	return &APIError{
		Message: sessionExpiredMessage,
		Status:  http.StatusUnauthorized,
		Kind:    KindAuthentication,
		Err:     apperrors.ErrSessionExpired,
	}
}

// NewTransport wraps a failure to complete the round trip. Aborts (caller cancelled) and
// deadlines are kept distinct so callers never mistake an abort for a retryable failure.
func NewTransport(err error) *APIError {
	switch {
	case errors.Is(err, context.Canceled):
		return &APIError{Message: abortedMessage, Kind: KindTransport, Err: errors.Join(apperrors.ErrAborted, err)}
	case errors.Is(err, context.DeadlineExceeded):
		return &APIError{Message: timeoutMessage, Kind: KindTransport, Err: errors.Join(apperrors.ErrTimeout, err)}
	default:
		return &APIError{Message: networkMessage, Kind: KindTransport, Err: errors.Join(apperrors.ErrTransport, err)}
	}
}

// NewMalformed wraps a successful response whose body could not be decoded.
func NewMalformed(status int, err error) *APIError {
	return &APIError{
		Message: malformedMessage,
		Status:  status,
		Kind:    KindMalformed,
		Err:     errors.Join(apperrors.ErrMalformedResponse, err),
	}
}

// Status returns the HTTP status carried by err, or 0.
func Status(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsAborted reports whether err is a caller-initiated cancellation.
func IsAborted(err error) bool {
	return errors.Is(err, apperrors.ErrAborted)
}

// IsTimeout reports whether err is a deadline expiry.
func IsTimeout(err error) bool {
	return errors.Is(err, apperrors.ErrTimeout)
}
