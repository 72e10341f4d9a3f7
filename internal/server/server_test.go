package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/listingmap"
	"github.com/agentstation/listingmap/internal/geocoding"
	"github.com/agentstation/listingmap/internal/metrics"
	"github.com/agentstation/listingmap/internal/posting"
	"github.com/agentstation/listingmap/internal/server"
	"github.com/agentstation/listingmap/internal/server/handlers"
	"github.com/agentstation/listingmap/internal/store/memory"
	"github.com/agentstation/listingmap/internal/subscription"
	"github.com/agentstation/listingmap/pkg/listings"
	"github.com/agentstation/listingmap/pkg/logging"
	"github.com/agentstation/listingmap/pkg/surface"
)

const wait = 2 * time.Second
const tick = 5 * time.Millisecond

var sinza = listings.Coordinate{Lat: -6.7735, Lng: 39.2232}

type testServer struct {
	srv   *server.Server
	http  *httptest.Server
	store *memory.Store
}

func newTestServer(t *testing.T, opts ...server.Option) *testServer {
	t.Helper()
	logger := logging.NewNopLogger()
	st := memory.New(memory.WithLogger(logger))
	geo := geocoding.DarEsSalaam()

	cfg := server.DefaultConfig()
	cfg.RateLimit = 0

	opts = append([]server.Option{
		server.WithLogger(logger),
		server.WithPoster(func(onPosted func(listings.Listing)) *posting.Poster {
			return posting.New(st,
				posting.WithGeocoder(geo),
				posting.WithLogger(logger),
				posting.OnPosted(onPosted),
			)
		}),
	}, opts...)
	srv, err := server.New(cfg, func(surf surface.Surface) (listingmap.Screen, error) {
		return listingmap.New(st, surf,
			listingmap.WithLogger(logger),
			listingmap.WithGeocoder(geo),
			listingmap.WithRetry(10*time.Millisecond, 20*time.Millisecond, 0),
		)
	}, opts...)
	require.NoError(t, err)
	srv.Start()

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		ctx, cancel := context.WithTimeout(context.Background(), wait)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return &testServer{srv: srv, http: ts, store: st}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (ts *testServer) do(t *testing.T, method, path string, body any) (int, envelope) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.http.URL+path, rd)
	require.NoError(t, err)
	resp, err := ts.http.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (ts *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.http.URL, "http") + "/api/v1/updates/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(wait)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

// readUntil reads frames until one of type typ arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) frame {
	t.Helper()
	for {
		if f := read(t, conn); f.Type == typ {
			return f
		}
	}
}

func room(id string, at listings.Coordinate, price float64) listings.Listing {
	return listings.Listing{ID: listings.ID(id), Title: "Room " + id, Price: price, Position: at, Available: true}
}

func TestNewRequiresScreen(t *testing.T) {
	_, err := server.New(server.DefaultConfig(), nil)
	assert.Error(t, err)
}

func TestMapClientDrivesVisibility(t *testing.T) {
	ts := newTestServer(t)
	ts.store.Put(room("r1", sinza, 500))
	assert.Equal(t, subscription.Idle, ts.srv.Screen().State())

	conn := ts.dial(t)

	hello := read(t, conn)
	require.Equal(t, "markers.snapshot", hello.Type, "snapshot comes first")
	var snap handlers.Snapshot
	require.NoError(t, json.Unmarshal(hello.Data, &snap))

	added := readUntil(t, conn, "marker.added")
	var op surface.Op
	require.NoError(t, json.Unmarshal(added.Data, &op))
	assert.Equal(t, surface.OpAdd, op.Kind)
	assert.NotZero(t, op.Handle)
	require.NotNil(t, op.Options)

	require.Eventually(t, func() bool { return ts.srv.Screen().State() == subscription.Active }, wait, tick)
	assert.Equal(t, 1, ts.srv.Viewers())

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return ts.srv.Screen().State() == subscription.Paused }, wait, tick)
	assert.Equal(t, 0, ts.srv.Viewers())
}

func TestLateClientGetsSnapshot(t *testing.T) {
	ts := newTestServer(t)
	ts.store.Put(room("r1", sinza, 500))
	first := ts.dial(t)
	readUntil(t, first, "marker.added")

	second := ts.dial(t)
	hello := read(t, second)
	require.Equal(t, "markers.snapshot", hello.Type)
	var snap handlers.Snapshot
	require.NoError(t, json.Unmarshal(hello.Data, &snap))
	require.Len(t, snap.Markers, 1)
	assert.Equal(t, listings.ID("r1"), snap.Markers[0].ID)
	assert.Equal(t, 2, ts.srv.Viewers())
}

func TestLiveUpdatesStream(t *testing.T) {
	ts := newTestServer(t)
	ts.store.Put(room("r1", sinza, 500))
	conn := ts.dial(t)
	readUntil(t, conn, "marker.added")

	ts.store.Put(room("r1", sinza, 650))
	updated := readUntil(t, conn, "marker.updated")
	var op surface.Op
	require.NoError(t, json.Unmarshal(updated.Data, &op))
	require.NotNil(t, op.Options)
	assert.Contains(t, op.Options.Snippet, "650")

	require.NoError(t, ts.store.SetAvailable("r1", false))
	readUntil(t, conn, "marker.removed")
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/health", "/api/v1/health"} {
		status, env := ts.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, status, path)
		assert.Contains(t, string(env.Data), `"healthy"`)
	}

	status, env := ts.do(t, http.MethodGet, "/api/v1/ready", nil)
	assert.Equal(t, http.StatusOK, status)
	var ready map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &ready))
	assert.Equal(t, "idle", ready["subscription"])
	assert.EqualValues(t, 0, ready["websocket_clients"])
}

func TestListingRoutes(t *testing.T) {
	ts := newTestServer(t)
	ts.store.Put(room("r1", sinza, 500))

	status, env := ts.do(t, http.MethodGet, "/api/v1/listings/r1", nil)
	assert.Equal(t, http.StatusOK, status)
	var l listings.Listing
	require.NoError(t, json.Unmarshal(env.Data, &l))
	assert.Equal(t, "Room r1", l.Title)

	status, env = ts.do(t, http.MethodGet, "/api/v1/listings/missing", nil)
	assert.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestPostListing(t *testing.T) {
	ts := newTestServer(t)
	price := 450.0

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"valid", listings.Draft{Title: "Room in Sinza", Description: "Quiet", Price: &price, Position: &sinza}, http.StatusCreated},
		{"missing title", listings.Draft{Description: "Quiet", Price: &price, Position: &sinza}, http.StatusBadRequest},
		{"no location", listings.Draft{Title: "Room", Description: "Quiet", Price: &price}, http.StatusBadRequest},
		{"unknown field", map[string]any{"title": "Room", "rent": 1}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := ts.do(t, http.MethodPost, "/api/v1/listings", tt.body)
			assert.Equal(t, tt.status, status)
		})
	}

	assert.Equal(t, 1, ts.store.Len())
}

func TestPostWhilePausedRefreshesOnReturn(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t)
	read(t, conn)
	require.Eventually(t, func() bool { return ts.srv.Screen().State() == subscription.Active }, wait, tick)
	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return ts.srv.Screen().State() == subscription.Paused }, wait, tick)

	price := 450.0
	status, _ := ts.do(t, http.MethodPost, "/api/v1/listings",
		listings.Draft{Title: "Room in Sinza", Description: "Quiet", Price: &price, Position: &sinza})
	require.Equal(t, http.StatusCreated, status)

	// the posted listing is only drawn because the resume resubscribes
	again := ts.dial(t)
	added := readUntil(t, again, "marker.added")
	var op surface.Op
	require.NoError(t, json.Unmarshal(added.Data, &op))
	require.NotNil(t, op.Options)
	assert.Equal(t, "Room in Sinza", op.Options.Title)
	require.Eventually(t, func() bool { return ts.srv.Screen().State() == subscription.Active }, wait, tick)
}

func TestPostingDisabled(t *testing.T) {
	ts := newTestServer(t, server.WithPoster(nil))
	price := 1.0
	status, env := ts.do(t, http.MethodPost, "/api/v1/listings",
		listings.Draft{Title: "Room", Description: "x", Price: &price, Position: &sinza})
	assert.Equal(t, http.StatusNotImplemented, status)
	require.NotNil(t, env.Error)
}

func TestSearchNeedsMapClient(t *testing.T) {
	ts := newTestServer(t)

	status, _ := ts.do(t, http.MethodGet, "/api/v1/geocode?q=Sinza", nil)
	assert.Equal(t, http.StatusConflict, status)

	conn := ts.dial(t)
	read(t, conn)
	require.Eventually(t, func() bool { return ts.srv.Screen().State() == subscription.Active }, wait, tick)

	status, env := ts.do(t, http.MethodGet, "/api/v1/geocode?q=Sinza", nil)
	require.Equal(t, http.StatusOK, status)
	var place geocoding.Place
	require.NoError(t, json.Unmarshal(env.Data, &place))
	assert.Equal(t, "Sinza", place.Label)

	status, _ = ts.do(t, http.MethodGet, "/api/v1/geocode?q=Atlantis", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = ts.do(t, http.MethodGet, "/api/v1/geocode?q=", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = ts.do(t, http.MethodDelete, "/api/v1/geocode", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"cleared":true}`, string(env.Data))
}

func TestMarkerClickAndFit(t *testing.T) {
	ts := newTestServer(t)
	ts.store.Put(room("r1", sinza, 500))

	status, _ := ts.do(t, http.MethodPost, "/api/v1/camera/fit", nil)
	assert.Equal(t, http.StatusConflict, status)

	conn := ts.dial(t)
	added := readUntil(t, conn, "marker.added")
	var op surface.Op
	require.NoError(t, json.Unmarshal(added.Data, &op))

	status, env := ts.do(t, http.MethodPost, "/api/v1/markers/"+jsonNumber(op.Handle)+"/click", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"consumed":true`)
	readUntil(t, conn, "listing.selected")

	status, _ = ts.do(t, http.MethodPost, "/api/v1/markers/0/click", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = ts.do(t, http.MethodPost, "/api/v1/camera/fit", nil)
	assert.Equal(t, http.StatusOK, status)
	var cam surface.Camera
	require.NoError(t, json.Unmarshal(env.Data, &cam))
	assert.InDelta(t, sinza.Lat, cam.Center.Lat, 1e-9)

	status, env = ts.do(t, http.MethodGet, "/api/v1/markers", nil)
	assert.Equal(t, http.StatusOK, status)
	var snap handlers.Snapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Len(t, snap.Markers, 1)
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	ts := newTestServer(t, server.WithMetrics(m))

	status, _ := ts.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, status)

	resp, err := ts.http.Client().Get(ts.http.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `listingmap_http_requests_total{method="GET",path="GET /health",status="200"} 1`)
}

func jsonNumber(h surface.Handle) string {
	b, _ := json.Marshal(h)
	return string(b)
}
