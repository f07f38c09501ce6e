package telemetry

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rentals/backend/internal/domain/rental"
)

const prometheusNamespace = "rental"

// PrometheusCollector exposes transition counts on a dedicated registry
// for scraping at /metrics.
type PrometheusCollector struct {
	registry    *prometheus.Registry
	transitions *prometheus.CounterVec
	lastChange  *prometheus.GaugeVec
}

// NewPrometheusCollector creates a registry carrying the transition
// counters plus the Go runtime and process collectors.
func NewPrometheusCollector() *PrometheusCollector {
	registry := prometheus.NewRegistry()

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: prometheusNamespace,
		Name:      "application_status_transitions_total",
		Help:      "Application status changes by source status, target status and lease creation.",
	}, []string{"from", "to", "lease_created"})

	lastChange := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: prometheusNamespace,
		Name:      "application_status_last_transition_timestamp_seconds",
		Help:      "Unix time of the most recent transition into each status.",
	}, []string{"to"})

	registry.MustRegister(
		transitions,
		lastChange,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &PrometheusCollector{
		registry:    registry,
		transitions: transitions,
		lastChange:  lastChange,
	}
}

// RecordTransition counts the change under low-cardinality labels. The
// application and property ids ride along as an exemplar.
func (c *PrometheusCollector) RecordTransition(_ context.Context, record rental.TransitionRecord) error {
	to := record.NewStatus.String()
	counter := c.transitions.WithLabelValues(record.PreviousStatus.String(), to, strconv.FormatBool(record.LeaseCreated))
	ids := prometheus.Labels{
		"application_id": record.ApplicationID.String(),
		"property_id":    record.PropertyID.String(),
	}
	if adder, ok := counter.(prometheus.ExemplarAdder); ok {
		adder.AddWithExemplar(1, ids)
	} else {
		counter.Inc()
	}
	c.lastChange.WithLabelValues(to).SetToCurrentTime()
	return nil
}

// Registry returns the underlying registry.
func (c *PrometheusCollector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *PrometheusCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
