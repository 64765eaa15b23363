// Package comps fetches sales and rental comparables. The comp backend sits behind a gateway that
// sheds load, so each fetch gets its own timeout and gateway failures are retried with linear backoff.
package comps

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jrsteele09/dealscope-client/apiclient"
	"github.com/jrsteele09/dealscope-client/apierror"
	"github.com/jrsteele09/dealscope-client/internal/metrics"
	"github.com/rs/zerolog"
)

const (
	SalesPath = "/api/v1/comps/sales"
	RentPath  = "/api/v1/comps/rent"
)

// ErrNoComps is returned when the backend has no comparable data for the subject (404).
var ErrNoComps = errors.New("no comparable data available")

var ErrMissingSubject = errors.New("property id or address is required")

type Service struct {
	client  *apiclient.Client
	policy  Policy
	timer   backoff.Timer
	logger  zerolog.Logger
	metrics *metrics.Collector
}

type Option func(*Service)

func WithPolicy(p Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithTimer replaces the timer used between attempts.
func WithTimer(t backoff.Timer) Option {
	return func(s *Service) { s.timer = t }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(client *apiclient.Client, opts ...Option) *Service {
	s := &Service{
		client: client,
		policy: DefaultPolicy(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) SalesComps(ctx context.Context, q Query) (*Result, error) {
	return s.fetch(ctx, SalesPath, q)
}

// RentComps ignores q.MaxAgeDays.
func (s *Service) RentComps(ctx context.Context, q Query) (*Result, error) {
	q.MaxAgeDays = nil
	return s.fetch(ctx, RentPath, q)
}

func (s *Service) fetch(ctx context.Context, path string, q Query) (*Result, error) {
	if q.PropertyID == "" && q.Address == "" {
		return nil, fmt.Errorf("[comps Service] %w", ErrMissingSubject)
	}
	query := q.values()

	attempt := 0
	op := func() (*Result, error) {
		attempt++
		res, err := s.attempt(ctx, path, query)
		s.metrics.ObserveCompAttempt(err == nil)
		if err == nil {
			return res, nil
		}

		switch {
		case ctx.Err() != nil:
			// The caller gave up; an abort is never retried.
			return nil, backoff.Permanent(err)
		case apierror.Status(err) == http.StatusNotFound:
			return nil, backoff.Permanent(fmt.Errorf("%w: %w", ErrNoComps, err))
		case !retryable(err):
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	notify := func(err error, wait time.Duration) {
		s.logger.Warn().Err(err).Str("path", path).Int("attempt", attempt).Dur("backoff", wait).Msg("comp fetch failed, retrying")
	}

	res, err := backoff.RetryNotifyWithTimerAndData[*Result](op, s.policy.backOff(ctx), notify, s.timer)
	if err != nil {
		var apiErr *apierror.APIError
		if !errors.As(err, &apiErr) && !errors.Is(err, ErrNoComps) {
			// Cancelled while waiting between attempts.
			return nil, apierror.NewTransport(err)
		}
		return nil, err
	}
	return res, nil
}

func (s *Service) attempt(ctx context.Context, path string, query url.Values) (*Result, error) {
	attemptCtx := ctx
	if s.policy.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, s.policy.AttemptTimeout)
		defer cancel()
	}

	res, err := apiclient.Get[Result](attemptCtx, s.client, path, apiclient.Request{Query: query})
	if err != nil {
		if apiclient.IsNoContent(err) {
			return nil, fmt.Errorf("%w: %w", ErrNoComps, err)
		}
		return nil, err
	}
	return res, nil
}
