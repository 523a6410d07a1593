package monitor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/oktetlabs/test-environment-sub029/internal/buffer"
)

const namespace = "talog"

// RingSource reports ring occupancy.
type RingSource interface {
	RingStats() buffer.RingStats
}

// Metrics exposes Stats and ring occupancy on a private Prometheus registry.
type Metrics struct {
	registry *prometheus.Registry
	server   *http.Server
	log      *logrus.Entry
}

// NewMetrics registers collectors reading s and ring. ring may be nil.
func NewMetrics(s *Stats, ring RingSource, log *logrus.Logger) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	counter := func(name, help string, fn func() uint64) {
		factory.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(fn()) })
	}
	counter("records_emitted_total", "Messages stored in the ring.", s.Emitted)
	counter("records_evicted_total", "Records overwritten under drop_oldest.", s.Evicted)
	counter("records_drained_total", "Records serialised by the drainer.", s.Drained)
	counter("drained_bytes_total", "Wire bytes produced by the drainer.", s.DrainedBytes)
	counter("drain_short_buffer_total", "Drains refused because the record did not fit.", s.ShortBuffers)

	for _, r := range DropReasons() {
		r := r
		factory.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "records_dropped_total",
			Help:        "Messages discarded by producers, by reason.",
			ConstLabels: prometheus.Labels{"reason": r.String()},
		}, func() float64 { return float64(s.Dropped(r)) })
	}

	if ring != nil {
		gauge := func(name, help string, fn func(buffer.RingStats) uint32) {
			factory.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "ring",
				Name:      name,
				Help:      help,
			}, func() float64 { return float64(fn(ring.RingStats())) })
		}
		gauge("cells_total", "Ring capacity in cells.", func(st buffer.RingStats) uint32 { return st.Total })
		gauge("cells_free", "Unoccupied ring cells.", func(st buffer.RingStats) uint32 { return st.Free })
		gauge("cells_live", "Occupied ring cells.", buffer.RingStats.Live)
		gauge("sequence", "Last sequence number issued.", func(st buffer.RingStats) uint32 { return st.Seq })
	}

	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Metrics{registry: reg, log: log.WithField("component", "metrics")}
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler returns the HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Start serves /metrics on addr in the background.
func (m *Metrics) Start(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	m.server = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		m.log.WithField("addr", addr).Info("serving metrics")
		if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.log.WithError(err).Error("metrics server stopped")
		}
	}()
}

// Shutdown stops the metrics server if it was started.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}
