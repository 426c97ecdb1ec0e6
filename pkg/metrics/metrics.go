// Package metrics exposes the relayer's prometheus telemetry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the relay counters. All vectors are labelled by path id and direction
// ("a-to-b" / "b-to-a") where that makes sense.
type Metrics struct {
	registry *prometheus.Registry

	PacketsRelayed *prometheus.CounterVec
	AcksRelayed    *prometheus.CounterVec
	TimeoutsSent   *prometheus.CounterVec
	ClientUpdates  *prometheus.CounterVec
	RoundErrors    *prometheus.CounterVec
	WatermarkGauge *prometheus.GaugeVec
}

// New builds and registers the relay metrics on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		PacketsRelayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relayer", Name: "packets_relayed_total",
			Help: "Packets successfully submitted for receive.",
		}, []string{"path", "direction"}),
		AcksRelayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relayer", Name: "acks_relayed_total",
			Help: "Acknowledgements successfully submitted.",
		}, []string{"path", "direction"}),
		TimeoutsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relayer", Name: "timeouts_sent_total",
			Help: "Timeout transactions successfully submitted.",
		}, []string{"path", "direction"}),
		ClientUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relayer", Name: "client_updates_total",
			Help: "Light client update transactions submitted.",
		}, []string{"path"}),
		RoundErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relayer", Name: "round_errors_total",
			Help: "Relay rounds that ended with an error.",
		}, []string{"path"}),
		WatermarkGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "relayer", Name: "watermark_height",
			Help: "Last persisted packet watermark height.",
		}, []string{"path", "chain"}),
	}
	registry.MustRegister(
		m.PacketsRelayed, m.AcksRelayed, m.TimeoutsSent,
		m.ClientUpdates, m.RoundErrors, m.WatermarkGauge,
	)
	return m
}

// Serve exposes /metrics on addr until the server fails. Intended to run in its own
// goroutine; errors are returned for the caller to log.
func (m *Metrics) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return server.ListenAndServe()
}
