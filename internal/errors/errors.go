package errors

import (
	"errors"
	"fmt"
)

// Common error types for the API client
var (
	// Session errors
	ErrSessionExpired = errors.New("session expired")
	ErrNoToken        = errors.New("no token available")

	// Transport errors
	ErrAborted   = errors.New("request aborted")
	ErrTimeout   = errors.New("request timed out")
	ErrTransport = errors.New("network request failed")

	// Response errors
	ErrMalformedResponse = errors.New("malformed response")
	ErrNoContent         = errors.New("no content")

	// Storage errors
	ErrStorage = errors.New("credential storage unavailable")

	// General errors
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
