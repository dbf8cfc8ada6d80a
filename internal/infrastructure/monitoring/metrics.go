package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Publish/delivery metrics
	PublishesTotal   *prometheus.CounterVec
	DeliveriesTotal  *prometheus.CounterVec
	DeliveryDuration prometheus.Histogram

	// Segment storage metrics
	SegmentsWritten   prometheus.Counter
	SegmentsRead      prometheus.Counter
	SegmentWriteBytes prometheus.Histogram
	RecordsWritten    prometheus.Counter
	RecordsRead       prometheus.Counter

	// Ingestion watcher metrics
	WatcherUploads     *prometheus.CounterVec
	WatcherQuarantined prometheus.Counter

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector.
//
// Uses a dedicated registry per instance so tests can build collectors
// without tripping duplicate-registration panics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := newMetrics(registry)
	m.registry = registry
	return m
}

// Registry returns the registry backing this collector, for exposition.
// Nil when the collector was built on an external registerer.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// NewMetricsWithRegistry creates a metrics collector on the given registerer.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	return newMetrics(reg)
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harbor_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harbor_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harbor_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harbor_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		PublishesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harbor_publishes_total",
				Help: "Total number of publish calls",
			},
			[]string{"status"},
		),
		DeliveriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harbor_deliveries_total",
				Help: "Total number of push delivery attempts",
			},
			[]string{"outcome"},
		),
		DeliveryDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "harbor_delivery_duration_seconds",
				Help:    "Push delivery duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),

		SegmentsWritten: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "harbor_segments_written_total",
				Help: "Total number of segment files written",
			},
		),
		SegmentsRead: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "harbor_segments_read_total",
				Help: "Total number of segment files decoded on read",
			},
		),
		SegmentWriteBytes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "harbor_segment_write_bytes",
				Help:    "Encoded segment size in bytes",
				Buckets: []float64{1000, 10000, 100000, 1000000, 10000000, 100000000},
			},
		),
		RecordsWritten: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "harbor_records_written_total",
				Help: "Total number of records written across all datasets",
			},
		),
		RecordsRead: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "harbor_records_read_total",
				Help: "Total number of records returned by dataset reads",
			},
		),

		WatcherUploads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harbor_watcher_uploads_total",
				Help: "Total number of watcher batch uploads",
			},
			[]string{"outcome"},
		),
		WatcherQuarantined: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "harbor_watcher_quarantined_total",
				Help: "Total number of files quarantined by the watcher",
			},
		),

		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "harbor_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
	}
}

// RecordHTTPRequest records metrics for one HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}

// RecordPublish records the outcome class of a publish call.
func (m *Metrics) RecordPublish(status string) {
	m.PublishesTotal.WithLabelValues(status).Inc()
}

// RecordDelivery records one push delivery attempt.
func (m *Metrics) RecordDelivery(outcome string, duration time.Duration) {
	m.DeliveriesTotal.WithLabelValues(outcome).Inc()
	m.DeliveryDuration.Observe(duration.Seconds())
}

// RecordSegmentWrite records a successful segment write.
func (m *Metrics) RecordSegmentWrite(records int, bytes int) {
	m.SegmentsWritten.Inc()
	m.SegmentWriteBytes.Observe(float64(bytes))
	m.RecordsWritten.Add(float64(records))
}

// RecordSegmentRead records segment decodes during one dataset read.
func (m *Metrics) RecordSegmentRead(segments, records int) {
	m.SegmentsRead.Add(float64(segments))
	m.RecordsRead.Add(float64(records))
}

// RecordWatcherUpload records one watcher upload attempt.
func (m *Metrics) RecordWatcherUpload(outcome string) {
	m.WatcherUploads.WithLabelValues(outcome).Inc()
}
