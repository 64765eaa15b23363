package auth

import (
	"fmt"
	"strings"
	"unicode"
)

// MinPasswordLength mirrors the backend's password policy so obviously bad input never leaves the client.
const MinPasswordLength = 8

// Validator runs the cheap client-side checks the backend would reject anyway.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// ValidateUserCredentials validates login credentials
func (v *Validator) ValidateUserCredentials(email, password string) error {
	if err := v.ValidateEmail(email); err != nil {
		return err
	}
	if password == "" {
		return EmptyPasswordErr
	}
	return nil
}

func (v *Validator) ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required: %w", InvalidEmailErr)
	}
	at := strings.LastIndex(email, "@")
	if at < 1 || !strings.Contains(email[at:], ".") || strings.ContainsAny(email, " \t\r\n") {
		return fmt.Errorf("%q: %w", email, InvalidEmailErr)
	}
	return nil
}

// ValidateNewPassword applies the registration policy.
func (v *Validator) ValidateNewPassword(password string) error {
	if password == "" {
		return EmptyPasswordErr
	}
	if len(password) < MinPasswordLength {
		return fmt.Errorf("must be at least %d characters: %w", MinPasswordLength, WeakPasswordErr)
	}
	return nil
}

// ValidateMFACode accepts a six digit TOTP code. Surrounding whitespace is ignored.
func (v *Validator) ValidateMFACode(code string) error {
	code = strings.TrimSpace(code)
	if len(code) != 6 {
		return InvalidMFACodeErr
	}
	for _, r := range code {
		if !unicode.IsDigit(r) {
			return InvalidMFACodeErr
		}
	}
	return nil
}
