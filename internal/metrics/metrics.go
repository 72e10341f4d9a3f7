// Package metrics exposes Prometheus collectors for the map engine. All
// methods are safe on a nil *Metrics, which disables collection.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agentstation/listingmap/internal/subscription"
	"github.com/agentstation/listingmap/pkg/reconciler"
)

const namespace = "listingmap"

// Metrics holds every collector.
type Metrics struct {
	reconcileOps        *prometheus.CounterVec
	reconcileDuration   prometheus.Histogram
	malformedRecords    prometheus.Counter
	excludedRecords     prometheus.Counter
	markers             prometheus.Gauge
	subscriptionState   *prometheus.GaugeVec
	subscriptionRetries prometheus.Counter
	geocodeRequests     *prometheus.CounterVec
	httpRequests        *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
	websocketClients    prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		reconcileOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_operations_total",
			Help:      "Marker operations issued to the map surface",
		}, []string{"op"}),
		reconcileDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconcile_duration_seconds",
			Help:      "Time spent applying one snapshot batch",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		malformedRecords: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_records_total",
			Help:      "Snapshot records skipped because they could not be decoded",
		}),
		excludedRecords: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unplaced_records_total",
			Help:      "Snapshot records without a coordinate",
		}),
		markers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "listing_markers",
			Help:      "Listing markers currently on the map",
		}),
		subscriptionState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscription_state",
			Help:      "1 for the current state of the live query, 0 otherwise",
		}, []string{"state"}),
		subscriptionRetries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscription_retries_total",
			Help:      "Resubscribe attempts scheduled after transport errors",
		}),
		geocodeRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoder lookups by direction and result",
		}, []string{"direction", "result"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served",
		}, []string{"method", "path", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"method", "path"}),
		websocketClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Connected marker stream clients",
		}),
		gatherer: reg,
	}
}

// NewDefault registers on a fresh registry that also carries the Go and
// process collectors.
func NewDefault() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return New(reg)
}

// ObserveResult records one reconciliation pass.
func (m *Metrics) ObserveResult(res *reconciler.Result) {
	if m == nil || res == nil {
		return
	}
	m.reconcileOps.WithLabelValues("remove").Add(float64(len(res.Removed)))
	m.reconcileOps.WithLabelValues("update").Add(float64(len(res.Updated)))
	m.reconcileOps.WithLabelValues("create").Add(float64(len(res.Created)))
	m.reconcileDuration.Observe(res.Metadata.Duration.Seconds())
	m.malformedRecords.Add(float64(len(res.Skipped)))
	m.excludedRecords.Add(float64(len(res.Excluded)))
	m.markers.Set(float64(res.Metadata.Markers))
}

// SetState marks s as the current subscription state.
func (m *Metrics) SetState(s subscription.State) {
	if m == nil {
		return
	}
	for _, st := range subscription.States() {
		v := 0.0
		if st == s {
			v = 1
		}
		m.subscriptionState.WithLabelValues(st.String()).Set(v)
	}
}

// ObserveRetry counts a scheduled resubscribe.
func (m *Metrics) ObserveRetry(_ int, _ time.Duration) {
	if m == nil {
		return
	}
	m.subscriptionRetries.Inc()
}

// ObserveGeocode counts a lookup. It matches geocoding.Observer.
func (m *Metrics) ObserveGeocode(direction, outcome string) {
	if m == nil {
		return
	}
	m.geocodeRequests.WithLabelValues(direction, outcome).Inc()
}

// ObserveHTTP records a served request.
func (m *Metrics) ObserveHTTP(method, path string, status int, took time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(took.Seconds())
}

// ClientConnected adjusts the websocket client gauge.
func (m *Metrics) ClientConnected(delta int) {
	if m == nil {
		return
	}
	m.websocketClients.Add(float64(delta))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
