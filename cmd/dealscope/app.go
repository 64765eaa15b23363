package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/dealscope-client/apiclient"
	"github.com/jrsteele09/dealscope-client/auth"
	"github.com/jrsteele09/dealscope-client/comps"
	"github.com/jrsteele09/dealscope-client/credentials"
	"github.com/jrsteele09/dealscope-client/internal/config"
	"github.com/jrsteele09/dealscope-client/internal/logging"
	"github.com/jrsteele09/dealscope-client/internal/metrics"
	"github.com/jrsteele09/dealscope-client/properties"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// app holds everything a command needs, built once per invocation.
type app struct {
	cfg      config.Config
	logger   zerolog.Logger
	registry *prometheus.Registry
	client   *apiclient.Client

	auth       *auth.Service
	properties *properties.Service
	comps      *comps.Service
}

func newApp(configPath string, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := logging.NewWithWriter(logOut, cfg.GetEnv(), cfg.GetLogLevel()).With().Str("app", cfg.GetAppName()).Logger()

	store, err := credentials.NewStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	collector := metrics.New(registry)

	opts := apiclient.OptionsFromConfig(cfg, store)
	opts.Logger = logger
	opts.Metrics = collector
	opts.OnSessionExpired = func() {
		logger.Warn().Msg("session expired, run `dealscope login` again")
	}
	client, err := apiclient.New(opts)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:        cfg,
		logger:     logger,
		registry:   registry,
		client:     client,
		auth:       auth.NewService(client, logger),
		properties: properties.NewService(client),
		comps: comps.NewService(client,
			comps.WithPolicy(comps.PolicyFromConfig(cfg)),
			comps.WithLogger(logger),
			comps.WithMetrics(collector),
		),
	}, nil
}

func displayAppname(w io.Writer, appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	fmt.Fprintln(w, myFigure.String())
}

// dumpMetrics prints every non-zero counter as name{labels} value.
func (a *app) dumpMetrics(w io.Writer) error {
	families, err := a.registry.Gather()
	if err != nil {
		return fmt.Errorf("[app dumpMetrics] %w", err)
	}
	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			value := m.GetCounter().GetValue()
			if value == 0 {
				continue
			}
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
			}
			lines = append(lines, fmt.Sprintf("%s{%s} %g", mf.GetName(), strings.Join(labels, ","), value))
		}
	}
	sort.Strings(lines)
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
	return nil
}
