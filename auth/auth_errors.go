package auth

import "errors"

var (
	InvalidEmailErr   = errors.New("invalid email")
	EmptyPasswordErr  = errors.New("password is required")
	WeakPasswordErr   = errors.New("password too short")
	InvalidMFACodeErr = errors.New("invalid mfa code")
	MissingTokenErr   = errors.New("token is required")
	MissingSessionErr = errors.New("session id is required")
)
