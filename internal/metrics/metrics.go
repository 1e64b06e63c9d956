// Package metrics exposes Prometheus metrics for pipeline stages and the dashboard.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
)

const namespace = "collision"

// Stage outcome labels.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metrics holds every collector of the process.
type Metrics struct {
	registry *prometheus.Registry

	stageDuration *prometheus.HistogramVec
	stageRecords  *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	predictions *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		registry: reg,
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time taken by pipeline stages",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10), // 10ms to ~43m
		}, []string{"stage", "status"}),
		stageRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_records_total",
			Help:      "Records processed by pipeline stages",
		}, []string{"stage", "kind"}), // kind: read, written, dropped
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of dashboard HTTP requests",
		}, []string{"method", "route", "status_code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Time taken for dashboard HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Severity predictions served, by predicted category",
		}, []string{"severity_category"}),
	}
	for _, c := range []prometheus.Collector{m.stageDuration, m.stageRecords, m.httpRequests, m.httpDuration, m.predictions} {
		if err := reg.Register(c); err != nil {
			return nil, eris.Wrap(err, "metrics: register collector")
		}
	}
	return m, nil
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveStage records the duration and outcome of a stage started at start.
func (m *Metrics) ObserveStage(stage string, start time.Time, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.stageDuration.WithLabelValues(stage, status).Observe(time.Since(start).Seconds())
}

// AddRecords counts n records of kind for stage.
func (m *Metrics) AddRecords(stage, kind string, n int) {
	if n > 0 {
		m.stageRecords.WithLabelValues(stage, kind).Add(float64(n))
	}
}

// ObservePrediction counts one served prediction.
func (m *Metrics) ObservePrediction(label string) {
	m.predictions.WithLabelValues(label).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request counts and durations labelled by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
