package apiclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/dealscope-client/apierror"
	"github.com/jrsteele09/dealscope-client/credentials"
	"github.com/jrsteele09/dealscope-client/csrf"
	"github.com/jrsteele09/dealscope-client/internal/config"
	"github.com/jrsteele09/dealscope-client/internal/metrics"
	"github.com/jrsteele09/dealscope-client/token/refresh"
	"github.com/rs/zerolog"
	"golang.org/x/net/publicsuffix"
)

const (
	jsonContentType = "application/json"
	maxBodyBytes    = 32 << 20
	requestIDHeader = "X-Request-Id"
)

// Refresher renews the session. See refresh.Coordinator.
type Refresher interface {
	Refresh(ctx context.Context) refresh.Outcome
}

// Options configures a Client. BaseURL and Store are required;
// everything else has a default.
type Options struct {
	BaseURL        string
	CSRFCookieName string
	CSRFHeaderName string
	Timeout        time.Duration

	Store      credentials.Store
	HTTPClient *http.Client
	Refresher  Refresher
	Logger     zerolog.Logger
	Metrics    *metrics.Collector

	// OnSessionExpired runs when a 401 survives the refresh attempt on a request without SoftAuth.
	OnSessionExpired func()
}

// OptionsFromConfig fills Options from the client configuration.
func OptionsFromConfig(cfg config.Config, store credentials.Store) Options {
	base := cfg.GetBaseURL()
	if cfg.GetProxied() {
		base = cfg.GetProxyOrigin()
	}
	return Options{
		BaseURL:        base,
		CSRFCookieName: cfg.GetCSRFCookieName(),
		CSRFHeaderName: cfg.GetCSRFHeaderName(),
		Timeout:        cfg.GetRequestTimeout(),
		Store:          store,
	}
}

// Client performs authenticated JSON calls against the backend. Cookies are always sent,
// a 401 triggers one shared refresh and the request is retried at most once.
type Client struct {
	http       *http.Client
	base       *url.URL
	baseURL    string
	store      credentials.Store
	csrf       csrf.Reader
	csrfHeader string
	refresher  Refresher
	timeout    time.Duration
	logger     zerolog.Logger
	metrics    *metrics.Collector
	onExpired  func()
}

func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("[apiclient New] base url must be absolute, got %q", opts.BaseURL)
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("[apiclient New] credential store is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.CSRFCookieName == "" {
		opts.CSRFCookieName = csrf.DefaultCookieName
	}
	if opts.CSRFHeaderName == "" {
		opts.CSRFHeaderName = csrf.DefaultHeaderName
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("[apiclient New] failed to create cookie jar: %w", err)
		}
		httpClient.Jar = jar
	}

	c := &Client{
		http:       httpClient,
		base:       base,
		baseURL:    base.String(),
		store:      opts.Store,
		csrf:       csrf.JarReader{Jar: httpClient.Jar, URL: base, CookieName: opts.CSRFCookieName},
		csrfHeader: opts.CSRFHeaderName,
		timeout:    opts.Timeout,
		logger:     opts.Logger.With().Str("component", "apiclient").Logger(),
		metrics:    opts.Metrics,
		onExpired:  opts.OnSessionExpired,
	}

	c.refresher = opts.Refresher
	if c.refresher == nil {
		coordinator, err := refresh.NewCoordinator(refresh.Config{
			HTTPClient: httpClient,
			URL:        c.baseURL + refresh.Path,
			Store:      opts.Store,
			CSRF:       c.csrf,
			CSRFHeader: opts.CSRFHeaderName,
			Timeout:    opts.Timeout,
			Logger:     opts.Logger,
			Metrics:    opts.Metrics,
		})
		if err != nil {
			return nil, fmt.Errorf("[apiclient New] %w", err)
		}
		c.refresher = coordinator
	}
	return c, nil
}

// Store returns the credential store the client reads bearer tokens from.
func (c *Client) Store() credentials.Store {
	return c.store
}

// Refresh asks the shared refresher for a new session. A rejected refresh clears the
// credential store; a refresh that never reached a verdict leaves it alone.
func (c *Client) Refresh(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	outcome := c.refresher.Refresh(ctx)
	if outcome == refresh.Rejected {
		c.store.Clear()
	}
	return outcome.OK()
}

// CSRFToken returns the CSRF token currently held in the cookie jar.
func (c *Client) CSRFToken() (string, bool) {
	return c.csrf.Token()
}

// Do performs req. Non-2xx responses come back as *apierror.APIError.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	body, contentType, err := req.payload()
	if err != nil {
		return nil, err
	}
	requestID := uuid.NewString()

	resp, err := c.send(ctx, req, body, contentType, requestID)
	if err != nil {
		return nil, err
	}

	if resp.Status == http.StatusUnauthorized && !req.SkipAuth {
		if err := ctx.Err(); err != nil {
			return nil, apierror.NewTransport(err)
		}
		outcome := c.refresher.Refresh(ctx)
		if !outcome.OK() {
			if err := ctx.Err(); err != nil {
				return nil, apierror.NewTransport(err)
			}
			// Soft callers only ask whether a session exists; they never end it.
			if outcome == refresh.Rejected && !req.SoftAuth {
				c.store.Clear()
			}
			return nil, c.sessionExpired(req)
		}

		c.metrics.ObserveRetry()
		c.logger.Debug().Str("method", req.method()).Str("path", req.Path).Str("request_id", requestID).Msg("Retrying after token refresh")
		resp, err = c.send(ctx, req, body, contentType, requestID)
		if err != nil {
			return nil, err
		}
		if resp.Status == http.StatusUnauthorized {
			return nil, c.sessionExpired(req)
		}
	}

	if resp.Status < 200 || resp.Status >= 300 {
		return nil, apierror.Normalize(resp.Status, resp.Body)
	}
	return resp, nil
}

func (c *Client) sessionExpired(req Request) error {
	c.logger.Info().Str("path", req.Path).Bool("soft", req.SoftAuth).Msg("Session expired")
	if !req.SoftAuth && c.onExpired != nil {
		c.onExpired()
	}
	return apierror.NewSessionExpired()
}

// send performs a single HTTP exchange. Any status is returned as a Response; only transport
// failures are errors.
func (c *Client) send(ctx context.Context, req Request, body []byte, contentType, requestID string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, req.method(), c.url(req), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("[apiclient send] failed to build request: %w", err)
	}
	c.headers(httpReq, req, contentType, requestID)

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.ObserveRequest(httpReq.Method, metrics.StatusClass(0))
		c.logger.Debug().Err(err).Str("method", httpReq.Method).Str("path", req.Path).Str("request_id", requestID).Msg("Request failed")
		return nil, apierror.NewTransport(err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		c.metrics.ObserveRequest(httpReq.Method, metrics.StatusClass(0))
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, apierror.NewTransport(err)
		}
		return nil, apierror.NewTransport(fmt.Errorf("reading response body: %w", err))
	}

	c.metrics.ObserveRequest(httpReq.Method, metrics.StatusClass(httpResp.StatusCode))
	c.logger.Debug().
		Str("method", httpReq.Method).
		Str("path", req.Path).
		Int("status", httpResp.StatusCode).
		Dur("duration", time.Since(start)).
		Str("request_id", requestID).
		Msg("Request completed")

	return &Response{
		Status:    httpResp.StatusCode,
		Header:    httpResp.Header,
		Body:      data,
		NoContent: httpResp.StatusCode == http.StatusNoContent,
	}, nil
}

// headers is rebuilt for every attempt so the retry picks up the refreshed bridge token and a
// rotated CSRF cookie.
func (c *Client) headers(httpReq *http.Request, req Request, contentType, requestID string) {
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", jsonContentType)
	for k, values := range req.Headers {
		httpReq.Header.Del(k)
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}
	if httpReq.Header.Get("Authorization") == "" {
		if tok, ok := c.store.Get(); ok && tok.AccessToken != "" {
			tok.SetAuthHeader(httpReq)
		}
	}
	csrf.Apply(httpReq, c.csrf, c.csrfHeader)
	httpReq.Header.Set(requestIDHeader, requestID)
}

func (c *Client) url(req Request) string {
	u := c.baseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}
	return u
}
