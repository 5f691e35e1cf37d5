// Package metrics exposes the pipeline's Prometheus counters and gauges
// and serves them over HTTP at /metrics.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every metric one Host instance reports, scoped to its
// own prometheus.Registry so multiple Hosts in the same process (as in
// tests) never collide on metric registration.
type Registry struct {
	registry *prometheus.Registry

	RecordsIn      *prometheus.CounterVec
	RecordsOut     *prometheus.CounterVec
	RecordsDropped *prometheus.CounterVec
	QueueDepth     *prometheus.GaugeVec
	QueueUtilization *prometheus.GaugeVec
	FilterDuration *prometheus.HistogramVec
	BackpressurePauses prometheus.Counter
	CircuitBreakerState *prometheus.GaugeVec

	ResourceCPUPercent prometheus.Gauge
	ResourceMemoryRSS  prometheus.Gauge
	ResourceGoroutines prometheus.Gauge

	server *http.Server
}

// New constructs a Registry and registers every metric against it.
func New() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Registry{
		registry: reg,
		RecordsIn: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_records_in_total",
			Help: "Records accepted from inputs, by tag.",
		}, []string{"tag"}),
		RecordsOut: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_records_out_total",
			Help: "Records sent to outputs, by output name.",
		}, []string{"output"}),
		RecordsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_records_dropped_total",
			Help: "Batches dropped, labelled \"chain\" for filter-chain drops or with the output name when its queue was full.",
		}, []string{"filter"}),
		QueueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pipeline_output_queue_depth",
			Help: "Current number of batches queued for an output.",
		}, []string{"output"}),
		QueueUtilization: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pipeline_output_queue_utilization",
			Help: "Output queue depth divided by its high water mark.",
		}, []string{"output"}),
		FilterDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pipeline_filter_duration_seconds",
			Help:    "Time spent in one filter's FilterBatch call.",
			Buckets: prometheus.DefBuckets,
		}, []string{"filter"}),
		BackpressurePauses: factory.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_backpressure_pauses_total",
			Help: "Number of times an input was paused by back-pressure.",
		}),
		CircuitBreakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pipeline_circuit_breaker_open",
			Help: "1 if the named output's circuit breaker is open, else 0.",
		}, []string{"output"}),
		ResourceCPUPercent: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pipeline_process_cpu_percent",
			Help: "Host-wide CPU usage percent, last sample from resourcemon.",
		}),
		ResourceMemoryRSS: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pipeline_process_memory_rss_bytes",
			Help: "Host-wide used memory in bytes, last sample from resourcemon.",
		}),
		ResourceGoroutines: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pipeline_process_goroutines",
			Help: "Live goroutine count, last sample from resourcemon.",
		}),
	}
}

// Serve starts an HTTP server exposing /metrics on addr. It returns
// immediately; call Shutdown to stop it.
func (r *Registry) Serve(addr string) error {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))

	r.server = &http.Server{Addr: addr, Handler: router}
	errCh := make(chan error, 1)
	go func() {
		if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-time.After(50 * time.Millisecond):
		return nil
	}
}

// Shutdown gracefully stops the metrics HTTP server.
func (r *Registry) Shutdown(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	return r.server.Shutdown(ctx)
}
