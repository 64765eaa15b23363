package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dealscope_client"

// Collector holds the client-side counters. A nil *Collector is valid and records nothing.
type Collector struct {
	Requests     *prometheus.CounterVec
	Retries      prometheus.Counter
	Refreshes    *prometheus.CounterVec
	CompAttempts *prometheus.CounterVec
}

// New registers the client counters on reg. Pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "API requests sent, by method and status class.",
		}, []string{"method", "status"}),
		Retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_retries_total",
			Help:      "Requests retried after a successful token refresh.",
		}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      "Token refresh network calls, by outcome.",
		}, []string{"outcome"}),
		CompAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "comp_attempts_total",
			Help:      "Comp fetch attempts, by outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(c.Requests, c.Retries, c.Refreshes, c.CompAttempts)
	}
	return c
}

func (c *Collector) ObserveRequest(method, status string) {
	if c == nil {
		return
	}
	c.Requests.WithLabelValues(method, status).Inc()
}

func (c *Collector) ObserveRetry() {
	if c == nil {
		return
	}
	c.Retries.Inc()
}

func (c *Collector) ObserveRefresh(ok bool) {
	if c == nil {
		return
	}
	c.Refreshes.WithLabelValues(outcome(ok)).Inc()
}

func (c *Collector) ObserveCompAttempt(ok bool) {
	if c == nil {
		return
	}
	c.CompAttempts.WithLabelValues(outcome(ok)).Inc()
}

// StatusClass buckets an HTTP status for the requests counter; 0 means the request never got a response.
func StatusClass(status int) string {
	switch {
	case status == 0:
		return "error"
	case status < 200:
		return "1xx"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
