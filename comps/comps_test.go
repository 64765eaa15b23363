package comps_test

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/dealscope-client/apiclient"
	"github.com/jrsteele09/dealscope-client/apierror"
	"github.com/jrsteele09/dealscope-client/comps"
	"github.com/jrsteele09/dealscope-client/credentials"
	"github.com/jrsteele09/dealscope-client/internal/metrics"
	"github.com/jrsteele09/dealscope-client/internal/testbackend"
	"github.com/jrsteele09/dealscope-client/internal/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// recordingTimer fires immediately and remembers every requested delay.
type recordingTimer struct {
	mu      sync.Mutex
	delays  []time.Duration
	onStart func()
	c       chan time.Time
}

func (t *recordingTimer) Start(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.delays = append(t.delays, d)
	if t.onStart != nil {
		t.onStart()
		t.c = nil
		return
	}
	t.c = make(chan time.Time, 1)
	t.c <- time.Now()
}

func (t *recordingTimer) Stop() {}

func (t *recordingTimer) C() <-chan time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.c
}

func (t *recordingTimer) Delays() []time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]time.Duration(nil), t.delays...)
}

type scriptedStep struct {
	status int
	detail string
	block  bool
}

type fixture struct {
	backend *testbackend.Backend
	timer   *recordingTimer
	metrics *metrics.Collector
	service *comps.Service

	mu    sync.Mutex
	steps []scriptedStep
	calls int
	// started is closed when the first request arrives.
	started chan struct{}
}

func setup(t *testing.T, policy comps.Policy, steps ...scriptedStep) *fixture {
	t.Helper()

	f := &fixture{
		backend: testbackend.New(t),
		timer:   &recordingTimer{},
		metrics: metrics.New(prometheus.NewRegistry()),
		steps:   steps,
		started: make(chan struct{}),
	}
	handler := func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		n := f.calls
		f.calls++
		step := f.steps[min(n, len(f.steps)-1)]
		f.mu.Unlock()
		if n == 0 {
			close(f.started)
		}

		if step.block {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			return
		}
		if step.status != http.StatusOK {
			testbackend.WriteJSON(w, step.status, map[string]string{"detail": step.detail})
			return
		}
		testbackend.WriteJSON(w, http.StatusOK, map[string]any{
			"property_id": r.URL.Query().Get("property_id"),
			"estimate":    425000,
			"confidence":  "high",
			"comparables": []map[string]any{
				{"id": "c1", "address": "12 Elm St", "price": 420000, "beds": 3, "baths": 2, "sqft": 1650, "distance_miles": 0.4, "similarity_score": 0.92},
				{"id": "c2", "address": "40 Oak Ave", "price": 431000, "beds": 3, "baths": 2.5, "sqft": 1720, "distance_miles": 0.7, "similarity_score": 0.88},
			},
		})
	}
	f.backend.Router.Get(comps.SalesPath, handler)
	f.backend.Router.Get(comps.RentPath, handler)

	client, err := apiclient.New(apiclient.Options{
		BaseURL: f.backend.URL(),
		Timeout: 5 * time.Second,
		Store:   credentials.NewMemoryBridge(time.Minute),
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)
	f.service = comps.NewService(client,
		comps.WithPolicy(policy),
		comps.WithTimer(f.timer),
		comps.WithMetrics(f.metrics),
	)
	return f
}

func (f *fixture) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var subject = comps.Query{PropertyID: "prop-1"}

func TestSalesComps_RetriesGatewayErrorsWithLinearBackoff(t *testing.T) {
	f := setup(t, comps.DefaultPolicy(),
		scriptedStep{status: http.StatusServiceUnavailable, detail: "Service Unavailable"},
		scriptedStep{status: http.StatusServiceUnavailable, detail: "Service Unavailable"},
		scriptedStep{status: http.StatusOK},
	)

	res, err := f.service.SalesComps(context.Background(), subject)
	require.NoError(t, err)
	require.Equal(t, "prop-1", res.PropertyID)
	require.Len(t, res.Comparables, 2)
	require.Equal(t, 3, f.Calls())
	require.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, f.timer.Delays())

	require.Equal(t, 2.0, testutil.ToFloat64(f.metrics.CompAttempts.WithLabelValues("failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CompAttempts.WithLabelValues("success")))
}

func TestSalesComps_NotFoundIsTerminal(t *testing.T) {
	f := setup(t, comps.DefaultPolicy(), scriptedStep{status: http.StatusNotFound, detail: "No comps for property"})

	_, err := f.service.SalesComps(context.Background(), subject)
	require.ErrorIs(t, err, comps.ErrNoComps)
	require.Equal(t, http.StatusNotFound, apierror.Status(err))
	require.Equal(t, 1, f.Calls())
	require.Empty(t, f.timer.Delays())
}

func TestSalesComps_GivesUpAfterMaxAttempts(t *testing.T) {
	f := setup(t, comps.DefaultPolicy(), scriptedStep{status: http.StatusBadGateway, detail: "Bad Gateway"})

	_, err := f.service.SalesComps(context.Background(), subject)
	require.Error(t, err)
	require.Equal(t, http.StatusBadGateway, apierror.Status(err))
	require.Equal(t, 3, f.Calls())
	require.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, f.timer.Delays())
}

func TestSalesComps_RetryDecisions(t *testing.T) {
	tests := []struct {
		name  string
		step  scriptedStep
		calls int
	}{
		{name: "gateway timeout", step: scriptedStep{status: http.StatusGatewayTimeout, detail: "Gateway Timeout"}, calls: 2},
		{name: "message names unreachable upstream", step: scriptedStep{status: http.StatusInternalServerError, detail: "Comp provider unreachable"}, calls: 2},
		{name: "message names bad gateway", step: scriptedStep{status: http.StatusInternalServerError, detail: "upstream returned Bad Gateway"}, calls: 2},
		{name: "plain server error", step: scriptedStep{status: http.StatusInternalServerError, detail: "boom"}, calls: 1},
		{name: "client error", step: scriptedStep{status: http.StatusBadRequest, detail: "address is invalid"}, calls: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, comps.DefaultPolicy(), tt.step, scriptedStep{status: http.StatusOK})

			_, err := f.service.SalesComps(context.Background(), subject)
			if tt.calls == 2 {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
			require.Equal(t, tt.calls, f.Calls())
		})
	}
}

func TestSalesComps_PerAttemptTimeoutIsRetried(t *testing.T) {
	policy := comps.DefaultPolicy()
	policy.AttemptTimeout = 100 * time.Millisecond
	f := setup(t, policy, scriptedStep{block: true}, scriptedStep{status: http.StatusOK})

	res, err := f.service.SalesComps(context.Background(), subject)
	require.NoError(t, err)
	require.Equal(t, 425000.0, res.Estimate)
	require.Equal(t, 2, f.Calls())
	require.Equal(t, []time.Duration{2 * time.Second}, f.timer.Delays())
}

func TestSalesComps_AbortIsNotRetried(t *testing.T) {
	f := setup(t, comps.DefaultPolicy(), scriptedStep{block: true}, scriptedStep{status: http.StatusOK})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-f.started
		cancel()
	}()

	_, err := f.service.SalesComps(ctx, subject)
	require.Error(t, err)
	require.True(t, apierror.IsAborted(err))
	require.False(t, apierror.IsTimeout(err))
	require.Equal(t, 1, f.Calls())
	require.Empty(t, f.timer.Delays())
}

func TestSalesComps_AbortDuringBackoff(t *testing.T) {
	f := setup(t, comps.DefaultPolicy(), scriptedStep{status: http.StatusServiceUnavailable, detail: "Service Unavailable"})
	ctx, cancel := context.WithCancel(context.Background())
	f.timer.onStart = cancel

	_, err := f.service.SalesComps(ctx, subject)
	require.True(t, apierror.IsAborted(err))
	require.Equal(t, 1, f.Calls())
	require.Len(t, f.timer.Delays(), 1)
}

func TestComps_Query(t *testing.T) {
	f := setup(t, comps.DefaultPolicy(), scriptedStep{status: http.StatusOK})

	q := comps.Query{PropertyID: "prop-1", RadiusMiles: utils.Ptr(0.5), Limit: utils.Ptr(10), MaxAgeDays: utils.Ptr(180)}
	_, err := f.service.SalesComps(context.Background(), q)
	require.NoError(t, err)
	_, err = f.service.RentComps(context.Background(), q)
	require.NoError(t, err)

	sales, err := url.ParseQuery(f.backend.Requests(comps.SalesPath)[0].Query)
	require.NoError(t, err)
	require.Equal(t, "0.5", sales.Get("radius_miles"))
	require.Equal(t, "10", sales.Get("limit"))
	require.Equal(t, "180", sales.Get("max_age_days"))

	rent, err := url.ParseQuery(f.backend.Requests(comps.RentPath)[0].Query)
	require.NoError(t, err)
	require.Equal(t, "prop-1", rent.Get("property_id"))
	require.False(t, rent.Has("max_age_days"))

	_, err = f.service.SalesComps(context.Background(), comps.Query{})
	require.ErrorIs(t, err, comps.ErrMissingSubject)
}
