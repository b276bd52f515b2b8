package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/find-the-vehicles/detection-service/models"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	requests   *prometheus.CounterVec
	stages     *prometheus.HistogramVec
	detections prometheus.Histogram
	uploadSize prometheus.Histogram
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "detector_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),
		stages: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "detector_stage_duration_seconds",
				Help:    "Time spent in each stage of a prediction",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
			},
			[]string{"stage"},
		),
		detections: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "detector_detections_per_image",
			Help:    "Number of boxes returned per successful prediction",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		}),
		uploadSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "detector_upload_bytes",
			Help:    "Size of uploaded images",
			Buckets: prometheus.ExponentialBuckets(16<<10, 2, 12),
		}),
	}

	m.registry.MustRegister(
		m.requests,
		m.stages,
		m.detections,
		m.uploadSize,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveTimings(t *models.ProcessingTimings) {
	m.stages.WithLabelValues("decode").Observe(t.ImageDecode.Seconds())
	m.stages.WithLabelValues("letterbox").Observe(t.Letterbox.Seconds())
	m.stages.WithLabelValues("preprocess").Observe(t.Preprocess.Seconds())
	m.stages.WithLabelValues("inference").Observe(t.Inference.Seconds())
	m.stages.WithLabelValues("postprocess").Observe(t.Postprocess.Seconds())
	m.stages.WithLabelValues("total").Observe(t.Total.Seconds())
}

func (m *Metrics) ObserveDetections(n int) { m.detections.Observe(float64(n)) }

func (m *Metrics) ObserveUpload(n int) { m.uploadSize.Observe(float64(n)) }

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware counts requests and logs one line per request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tmpl, err := cur.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		m.requests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		logRequest(r, rec.status, time.Since(start))
	})
}
