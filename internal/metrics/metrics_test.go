package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/listingmap/internal/metrics"
	"github.com/agentstation/listingmap/internal/subscription"
	"github.com/agentstation/listingmap/pkg/errors"
	"github.com/agentstation/listingmap/pkg/listings"
	"github.com/agentstation/listingmap/pkg/reconciler"
)

func TestObserveResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.ObserveResult(&reconciler.Result{
		Created:  []listings.ID{"a", "b"},
		Updated:  []listings.ID{"c"},
		Skipped:  []error{errors.NewMalformedRecordError("d", "price", "is missing")},
		Excluded: []listings.ID{"e"},
		Metadata: reconciler.ResultMetadata{Duration: time.Millisecond, Markers: 3},
	})
	m.ObserveResult(nil)

	count, err := testutil.GatherAndCount(reg, "listingmap_reconcile_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	expected := `
# HELP listingmap_malformed_records_total Snapshot records skipped because they could not be decoded
# TYPE listingmap_malformed_records_total counter
listingmap_malformed_records_total 1
# HELP listingmap_listing_markers Listing markers currently on the map
# TYPE listingmap_listing_markers gauge
listingmap_listing_markers 3
`
	require.NoError(t, testutil.GatherAndCompare(reg, stringsReader(expected),
		"listingmap_malformed_records_total", "listingmap_listing_markers"))
}

func TestSetState(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.SetState(subscription.Active)
	m.SetState(subscription.Paused)

	count, err := testutil.GatherAndCount(reg, "listingmap_subscription_state")
	require.NoError(t, err)
	assert.Equal(t, len(subscription.States()), count)

	expected := `
# HELP listingmap_subscription_state 1 for the current state of the live query, 0 otherwise
# TYPE listingmap_subscription_state gauge
listingmap_subscription_state{state="active"} 0
listingmap_subscription_state{state="failed"} 0
listingmap_subscription_state{state="idle"} 0
listingmap_subscription_state{state="paused"} 1
listingmap_subscription_state{state="subscribing"} 0
`
	require.NoError(t, testutil.GatherAndCompare(reg, stringsReader(expected), "listingmap_subscription_state"))
}

func TestCountersAndHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.ObserveRetry(1, time.Second)
	m.ObserveGeocode("forward", "ok")
	m.ObserveGeocode("forward", "not_found")
	m.ObserveHTTP(http.MethodGet, "/api/v1/markers", http.StatusOK, 3*time.Millisecond)
	m.ClientConnected(1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "listingmap_subscription_retries_total 1")
	assert.Contains(t, body, `listingmap_geocode_requests_total{direction="forward",result="not_found"} 1`)
	assert.Contains(t, body, `listingmap_http_requests_total{method="GET",path="/api/v1/markers",status="200"} 1`)
	assert.Contains(t, body, "listingmap_websocket_clients 1")
}

func TestNilMetrics(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.ObserveResult(&reconciler.Result{})
		m.SetState(subscription.Active)
		m.ObserveRetry(1, time.Second)
		m.ObserveGeocode("reverse", "error")
		m.ObserveHTTP("GET", "/", 200, time.Millisecond)
		m.ClientConnected(-1)
	})
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewDefault(t *testing.T) {
	assert.NotNil(t, metrics.NewDefault())
}

func stringsReader(s string) *strings.Reader { return strings.NewReader(s) }
