package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// ErrOpaqueToken is returned by Inspect for access tokens that are not JWTs.
var ErrOpaqueToken = errors.New("token is not a JWT")

// Claims is the subset of access token claims the client cares about. The client never holds
// the signing key, so the values are informational only and must not be used for authorization.
type Claims struct {
	Subject string
	Email   string
	Expiry  time.Time
}

// Inspect reads the claims of a JWT access token without verifying the signature.
func Inspect(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if strings.Count(raw, ".") != 2 {
		return nil, ErrOpaqueToken
	}

	parsed, _, err := jwtlib.NewParser().ParseUnverified(raw, jwtlib.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("[token Inspect] %w: %v", ErrOpaqueToken, err)
	}
	mapClaims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errors.New("[token Inspect] error extracting claims")
	}

	claims := &Claims{}
	claims.Subject, _ = mapClaims.GetSubject()
	claims.Email, _ = mapClaims["email"].(string)
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.Expiry = exp.Time
	}
	return claims, nil
}

// Lifetime returns how much longer the token is valid for, capped at limit.
// Opaque tokens and tokens without an exp claim get the full limit.
func Lifetime(raw string, limit time.Duration) time.Duration {
	claims, err := Inspect(raw)
	if err != nil || claims.Expiry.IsZero() {
		return limit
	}
	remaining := claims.Expiry.Sub(NowTimeFunc())
	if remaining < 0 {
		return 0
	}
	if remaining < limit {
		return remaining
	}
	return limit
}
