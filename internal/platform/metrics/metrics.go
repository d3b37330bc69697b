package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the photo booth backend.
type Metrics struct {
	registry            *prometheus.Registry
	requestsTotal       prometheus.Counter
	errorsTotal         prometheus.Counter
	photosUploadedTotal prometheus.Counter
	uploadFailuresTotal prometheus.Counter
	listFailuresTotal   prometheus.Counter
	uploadsInFlight     prometheus.Gauge
	uploadDuration      prometheus.Histogram
}

// New creates and registers Prometheus metrics for the backend.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "photobooth_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "photobooth_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	photosUploadedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "photobooth_photos_uploaded_total",
		Help: "Total number of photos uploaded and recorded",
	})
	uploadFailuresTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "photobooth_upload_failures_total",
		Help: "Total number of uploads that failed in storage or persistence",
	})
	listFailuresTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "photobooth_list_failures_total",
		Help: "Total number of failed photo list queries",
	})
	uploadsInFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "photobooth_uploads_in_flight",
		Help: "Number of uploads currently being relayed",
	})
	uploadDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "photobooth_upload_duration_seconds",
		Help:    "Time spent relaying an upload to storage and the document store",
		Buckets: prometheus.DefBuckets,
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		photosUploadedTotal,
		uploadFailuresTotal,
		listFailuresTotal,
		uploadsInFlight,
		uploadDuration,
	)

	return &Metrics{
		registry:            registry,
		requestsTotal:       requestsTotal,
		errorsTotal:         errorsTotal,
		photosUploadedTotal: photosUploadedTotal,
		uploadFailuresTotal: uploadFailuresTotal,
		listFailuresTotal:   listFailuresTotal,
		uploadsInFlight:     uploadsInFlight,
		uploadDuration:      uploadDuration,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// IncPhotosUploaded increments the uploaded photos counter.
func (m *Metrics) IncPhotosUploaded() {
	m.photosUploadedTotal.Inc()
}

// IncUploadFailures increments the failed uploads counter.
func (m *Metrics) IncUploadFailures() {
	m.uploadFailuresTotal.Inc()
}

// IncListFailures increments the failed list queries counter.
func (m *Metrics) IncListFailures() {
	m.listFailuresTotal.Inc()
}

// UploadStarted marks an upload in flight and returns a func that ends it,
// recording its duration.
func (m *Metrics) UploadStarted() func() {
	m.uploadsInFlight.Inc()
	timer := prometheus.NewTimer(m.uploadDuration)
	return func() {
		timer.ObserveDuration()
		m.uploadsInFlight.Dec()
	}
}

// Handler returns an http.Handler that serves Prometheus metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
