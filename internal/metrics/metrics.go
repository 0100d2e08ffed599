// Package metrics exports the progress of a stress run as Prometheus
// collectors. Collectors are fed by stress runner hooks and can be served
// over HTTP while the run is in progress.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utkarsh5026/multirw/stress"
)

// Metrics holds the multirw_ collectors.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// BurstsTotal counts completed bursts by mode
	BurstsTotal *prometheus.CounterVec

	// TransfersTotal counts individual transfers by mode
	TransfersTotal *prometheus.CounterVec

	// BytesTotal counts bytes moved by mode
	BytesTotal *prometheus.CounterVec

	// BurstDuration tracks how long a burst takes
	BurstDuration *prometheus.HistogramVec

	// TailTouchesTotal counts final-chunk transfers by mode
	TailTouchesTotal *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// Panics if registration fails.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BurstsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "multirw_bursts_total",
				Help: "Total completed bursts by mode",
			},
			[]string{"mode"},
		),
		TransfersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "multirw_transfers_total",
				Help: "Total transfers issued by mode",
			},
			[]string{"mode"},
		),
		BytesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "multirw_bytes_total",
				Help: "Total bytes moved by mode",
			},
			[]string{"mode"},
		),
		BurstDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "multirw_burst_duration_seconds",
				Help:    "Burst duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"mode"},
		),
		TailTouchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "multirw_tail_touches_total",
				Help: "Total final-chunk transfers by mode",
			},
			[]string{"mode"},
		),
	}

	reg.MustRegister(
		m.BurstsTotal,
		m.TransfersTotal,
		m.BytesTotal,
		m.BurstDuration,
		m.TailTouchesTotal,
	)
	return m
}

// RecordBurst records a finished burst.
func (m *Metrics) RecordBurst(r stress.BurstResult) {
	if m == nil {
		return
	}
	mode := r.Mode.String()
	m.BurstsTotal.WithLabelValues(mode).Inc()
	m.TransfersTotal.WithLabelValues(mode).Add(float64(r.Count))
	m.BytesTotal.WithLabelValues(mode).Add(float64(r.Bytes))
	m.BurstDuration.WithLabelValues(mode).Observe(r.Duration.Seconds())
}

// RecordTail records a final-chunk transfer.
func (m *Metrics) RecordTail(info stress.TailInfo) {
	if m == nil {
		return
	}
	mode := info.Transfer.Mode.String()
	m.TailTouchesTotal.WithLabelValues(mode).Inc()
	m.TransfersTotal.WithLabelValues(mode).Inc()
	m.BytesTotal.WithLabelValues(mode).Add(float64(info.Transfer.Size))
}

// Options returns the runner hooks that feed m.
func (m *Metrics) Options() []stress.RunnerOption {
	if m == nil {
		return nil
	}
	return []stress.RunnerOption{
		stress.WithAfterBurst(m.RecordBurst),
		stress.WithOnTail(m.RecordTail),
	}
}

// Server serves a registry on /metrics.
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// Listen binds addr and returns a server for the collectors of g.
// Use ":0" to pick a free port.
func Listen(addr string, g prometheus.Gatherer) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	return &Server{
		srv: &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		ln:  ln,
	}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// Serve blocks until Shutdown is called.
func (s *Server) Serve() error {
	if err := s.srv.Serve(s.ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server, waiting for in-flight scrapes until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
