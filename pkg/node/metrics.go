package node

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/netutil"

	fx "github.com/robotalks/cloudsense/pkg/framework"
)

// Cycle outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeSkipped  = "skipped"
	OutcomeHalted   = "halted"
	OutcomeCanceled = "canceled"
)

// MaxMetricsConns bounds concurrent scrapes.
const MaxMetricsConns = 4

// Metrics exports cycle reports to Prometheus. It implements Observer.
type Metrics struct {
	Cycles       *prometheus.CounterVec
	Failures     *prometheus.CounterVec
	Classes      *prometheus.CounterVec
	Confidence   prometheus.Gauge
	Halted       prometheus.Gauge
	CycleTime    prometheus.Histogram
	Inference    prometheus.Histogram
	PayloadBytes prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates Metrics with a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cloudsense_cycles_total",
			Help: "Cycles run by outcome.",
		}, []string{"outcome"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cloudsense_cycle_failures_total",
			Help: "Failed cycles by the state they failed in.",
		}, []string{"state"}),
		Classes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cloudsense_classifications_total",
			Help: "Top class of completed cycles.",
		}, []string{"label"}),
		Confidence: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cloudsense_confidence_ratio",
			Help: "Probability of the top class of the last classification.",
		}),
		Halted: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cloudsense_halted",
			Help: "1 when the node halted on a hardware fault.",
		}),
		CycleTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cloudsense_cycle_seconds",
			Help:    "Duration of a cycle excluding cooldown.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		Inference: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cloudsense_inference_seconds",
			Help:    "Accelerator time per inference.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		PayloadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cloudsense_payload_bytes_total",
			Help: "Payload bytes handed to the link.",
		}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(m.Cycles, m.Failures, m.Classes, m.Confidence,
		m.Halted, m.CycleTime, m.Inference, m.PayloadBytes)
	return m
}

// Registry returns the registry of the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe implements Observer.
func (m *Metrics) Observe(ctx context.Context, r *Report) {
	switch {
	case r.Halted || r.State == StateHalted:
		m.Cycles.WithLabelValues(OutcomeHalted).Inc()
		m.Halted.Set(1)
		if r.Halted {
			m.Failures.WithLabelValues(r.State.String()).Inc()
		}
		return
	case errors.Is(r.Err, context.Canceled) || errors.Is(r.Err, context.DeadlineExceeded):
		m.Cycles.WithLabelValues(OutcomeCanceled).Inc()
		return
	case r.Err != nil:
		m.Cycles.WithLabelValues(OutcomeSkipped).Inc()
		m.Failures.WithLabelValues(r.State.String()).Inc()
	default:
		m.Cycles.WithLabelValues(OutcomeOK).Inc()
		m.PayloadBytes.Add(float64(r.PayloadBytes))
	}
	m.Halted.Set(0)
	m.CycleTime.Observe(r.Duration.Seconds())
	if r.Inference > 0 {
		m.Inference.Observe(r.Inference.Seconds())
	}
	if res := r.Result; res != nil {
		m.Classes.WithLabelValues(res.Label).Inc()
		m.Confidence.Set(float64(res.Confidence()) / float64(1<<15))
	}
}

// Handler serves the metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Server serves metrics on an address.
type Server struct {
	Addr    string
	Metrics *Metrics
}

// Name implements framework.Named.
func (s *Server) Name() string { return "metrics" }

// Run implements framework.Runnable.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.Metrics.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	glog.Infof("metrics on %s", ln.Addr())
	return fx.RunWithContextCancel(ctx, func() {
		srv.Close()
	}, func() error {
		if err := srv.Serve(netutil.LimitListener(ln, MaxMetricsConns)); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
}
