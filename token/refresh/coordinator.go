package refresh

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/dealscope-client/credentials"
	"github.com/jrsteele09/dealscope-client/csrf"
	"github.com/jrsteele09/dealscope-client/internal/metrics"
	"github.com/jrsteele09/dealscope-client/token"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Path is the backend refresh endpoint.
const Path = "/api/v1/auth/refresh"

const (
	singleFlightKey = "refresh"
	defaultTimeout  = 30 * time.Second
	maxBodyBytes    = 1 << 20
)

// Config wires a Coordinator to the client's transport and credential store.
type Config struct {
	HTTPClient *http.Client
	URL        string
	Store      credentials.Store
	CSRF       csrf.Reader
	CSRFHeader string
	Timeout    time.Duration
	Logger     zerolog.Logger
	Metrics    *metrics.Collector
}

// Coordinator makes sure at most one refresh call is in flight. Callers that ask for a refresh
// while one is outstanding wait for that call's result instead of issuing their own.
type Coordinator struct {
	cfg   Config
	group singleflight.Group
	calls atomic.Int64
}

func NewCoordinator(cfg Config) (*Coordinator, error) {
	if cfg.HTTPClient == nil {
		return nil, fmt.Errorf("[refresh NewCoordinator] http client is required")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("[refresh NewCoordinator] refresh url is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("[refresh NewCoordinator] credential store is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.Logger = cfg.Logger.With().Str("component", "refresh").Logger()
	return &Coordinator{cfg: cfg}, nil
}

// Outcome is the result of a refresh attempt.
type Outcome int

const (
	// Failed means no verdict was reached: the call could not be built or sent, or the
	// response could not be read.
	Failed Outcome = iota
	// Refreshed means the backend issued a new session.
	Refreshed
	// Rejected means the backend answered the refresh with a non-2xx status. The session is
	// gone for good.
	Rejected
	// Abandoned means the caller's context ended before the shared call settled.
	Abandoned
)

// OK reports whether the session was refreshed.
func (o Outcome) OK() bool {
	return o == Refreshed
}

func (o Outcome) String() string {
	switch o {
	case Refreshed:
		return "refreshed"
	case Rejected:
		return "rejected"
	case Abandoned:
		return "abandoned"
	default:
		return "failed"
	}
}

// Refresh asks the backend for a new session and reports the outcome. It never touches the
// credential store on failure; deciding whether a rejection clears the session is the caller's
// job.
//
// The shared call runs on its own context so one caller giving up doesn't fail the refresh
// for everybody else waiting on it. A caller whose ctx has already ended never starts one.
func (c *Coordinator) Refresh(ctx context.Context) Outcome {
	if ctx.Err() != nil {
		return Abandoned
	}
	ch := c.group.DoChan(singleFlightKey, func() (any, error) {
		return c.refresh(), nil
	})
	select {
	case res := <-ch:
		outcome, _ := res.Val.(Outcome)
		return outcome
	case <-ctx.Done():
		return Abandoned
	}
}

// Calls returns the number of refresh network calls made so far.
func (c *Coordinator) Calls() int64 {
	return c.calls.Load()
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

func (c *Coordinator) refresh() Outcome {
	c.calls.Add(1)
	outcome := c.doRefresh()
	c.cfg.Metrics.ObserveRefresh(outcome.OK())
	return outcome
}

func (c *Coordinator) doRefresh() Outcome {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
	defer cancel()

	var body refreshRequest
	if tok, ok := c.cfg.Store.Get(); ok {
		body.RefreshToken = tok.RefreshToken
	}
	payload, err := json.Marshal(body)
	if err != nil {
		c.cfg.Logger.Err(err).Msg("Failed to encode refresh request")
		return Failed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		c.cfg.Logger.Err(err).Msg("Failed to build refresh request")
		return Failed
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	csrf.Apply(req, c.cfg.CSRF, c.cfg.CSRFHeader)

	start := time.Now()
	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		c.cfg.Logger.Warn().Err(err).Msg("Token refresh failed")
		return Failed
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.cfg.Logger.Warn().Err(err).Msg("Token refresh failed reading response")
		return Failed
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.cfg.Logger.Warn().Int("status", resp.StatusCode).Dur("duration", time.Since(start)).Msg("Token refresh rejected")
		return Rejected
	}

	// A cookie-only refresh may return an empty body; the new cookie is already in the jar.
	var tr token.Response
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &tr); err != nil {
			c.cfg.Logger.Debug().Err(err).Msg("Refresh response body ignored")
		}
	}
	if tr.HasAccessToken() {
		c.cfg.Store.Set(tr.OAuth2())
	}
	c.cfg.Logger.Info().Int("status", resp.StatusCode).Dur("duration", time.Since(start)).Msg("Token refreshed")
	return Refreshed
}
