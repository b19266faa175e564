// Package metrics is a SPEC_FULL.md Domain Stack enrichment: the original
// embedded target (original_source/) has no metrics exporter at all, but
// github.com/prometheus/client_golang is part of the retrieved pack's
// server-side stack, and the Manager already tracks exactly the gauges an
// operator would want (live slot count, WebSocket queue drops). Entirely
// off unless config.Config.MetricsEnabled is set.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes a Prometheus /metrics endpoint on its own listener,
// separate from the cooperative connection-slot engine: scraping is rare
// and low-volume enough that net/http's blocking model is the right tool
// for this one side channel, unlike the client-facing traffic in slot/.
type Metrics struct {
	addr      string
	registry  *prometheus.Registry
	liveSlots prometheus.Gauge
	wsDropped prometheus.Counter
}

// New builds a registry with the gauges/counters the Manager updates.
func New(addr string) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		addr:     addr,
		registry: reg,
		liveSlots: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rdweb_live_slots",
			Help: "Number of connection slots currently occupied.",
		}),
		wsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rdweb_ws_queue_drops_total",
			Help: "WebSocket outbound messages dropped because a queue was full.",
		}),
	}
	reg.MustRegister(m.liveSlots, m.wsDropped)
	return m
}

// SetLiveSlots reports the Manager's current occupied-slot count.
func (m *Metrics) SetLiveSlots(n int) {
	m.liveSlots.Set(float64(n))
}

// IncWSQueueDrop records one dropped outbound WebSocket message.
func (m *Metrics) IncWSQueueDrop() {
	m.wsDropped.Inc()
}

// Run serves /metrics until ctx is cancelled.
func (m *Metrics) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: m.addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return srv.Close()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
