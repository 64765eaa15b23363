package comps

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jrsteele09/dealscope-client/apierror"
	"github.com/jrsteele09/dealscope-client/internal/config"
)

// Policy controls how comp fetches are retried.
type Policy struct {
	AttemptTimeout time.Duration
	MaxAttempts    int
	// BackoffStep is multiplied by the attempt number: step, 2*step, 3*step...
	BackoffStep time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		AttemptTimeout: 15 * time.Second,
		MaxAttempts:    3,
		BackoffStep:    2 * time.Second,
	}
}

func PolicyFromConfig(cfg config.CompsConfig) Policy {
	return Policy{
		AttemptTimeout: cfg.GetCompsAttemptTimeout(),
		MaxAttempts:    cfg.GetCompsMaxAttempts(),
		BackoffStep:    cfg.GetCompsBackoffStep(),
	}
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	retries := p.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithMaxRetries(backoff.WithContext(&linearBackOff{step: p.BackoffStep}, ctx), uint64(retries))
}

// linearBackOff waits attempt*step after each failed attempt.
type linearBackOff struct {
	step    time.Duration
	attempt int
}

var _ backoff.BackOff = (*linearBackOff)(nil)

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return time.Duration(b.attempt) * b.step
}

func (b *linearBackOff) Reset() {
	b.attempt = 0
}

var retryableMarkers = []string{"502", "503", "504", "bad gateway", "unreachable"}

// retryable reports whether a failed attempt is worth repeating: gateway errors, messages that name
// one, and attempts cut off by the per-attempt timeout.
func retryable(err error) bool {
	switch apierror.Status(err) {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	if apierror.IsTimeout(err) {
		return true
	}
	var apiErr *apierror.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	msg := strings.ToLower(apiErr.Message)
	for _, m := range retryableMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
