// Package metrics exposes Prometheus counters for the dispatch pipeline.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects dispatch-level measurements.
type Metrics struct {
	registry *prometheus.Registry

	events        *prometheus.CounterVec
	invocations   *prometheus.CounterVec
	handlerErrors *prometheus.CounterVec
	queueDepth    prometheus.Gauge
}

// New returns a Metrics backed by its own Prometheus registry.
func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bot",
			Name:      "events_total",
			Help:      "Gateway events received, by kind.",
		}, []string{"kind"}),
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bot",
			Name:      "handler_invocations_total",
			Help:      "Handler invocations, by capability tag and screen type.",
		}, []string{"tag", "screen"}),
		handlerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bot",
			Name:      "handler_errors_total",
			Help:      "Handler errors reported to the sink, by screen type.",
		}, []string{"screen"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bot",
			Name:      "queue_depth",
			Help:      "Calls waiting or running on the resource queue.",
		}),
	}
	for _, c := range []prometheus.Collector{
		m.events, m.invocations, m.handlerErrors, m.queueDepth,
	} {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return m, nil
}

// Event counts one received gateway event.
func (m *Metrics) Event(kind string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(kind).Inc()
}

// Invocation counts one handler invocation.
func (m *Metrics) Invocation(tag, screen string) {
	if m == nil {
		return
	}
	m.invocations.WithLabelValues(tag, screen).Inc()
}

// HandlerError counts one handler error.
func (m *Metrics) HandlerError(screen string) {
	if m == nil {
		return
	}
	m.handlerErrors.WithLabelValues(screen).Inc()
}

// SetQueueDepth records the resource queue's current depth.
func (m *Metrics) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
}

// Serve exposes /metrics on addr until ctx is canceled. An empty addr
// disables the endpoint.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	if m == nil || addr == "" {
		<-ctx.Done()
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Printf("metrics listening on %s", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	}
}
