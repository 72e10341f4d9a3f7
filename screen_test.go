package listingmap_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/listingmap"
	"github.com/agentstation/listingmap/internal/geocoding"
	"github.com/agentstation/listingmap/internal/location"
	"github.com/agentstation/listingmap/internal/metrics"
	"github.com/agentstation/listingmap/internal/selection"
	"github.com/agentstation/listingmap/internal/store/memory"
	"github.com/agentstation/listingmap/internal/subscription"
	"github.com/agentstation/listingmap/pkg/constants"
	"github.com/agentstation/listingmap/pkg/errors"
	"github.com/agentstation/listingmap/pkg/listings"
	"github.com/agentstation/listingmap/pkg/logging"
	"github.com/agentstation/listingmap/pkg/reconciler"
	"github.com/agentstation/listingmap/pkg/surface"
)

const wait = 2 * time.Second
const tick = 5 * time.Millisecond

var sinza = listings.Coordinate{Lat: -6.7735, Lng: 39.2232}

type harness struct {
	store   *memory.Store
	surface *surface.Recorder
	screen  listingmap.Screen

	mu        sync.Mutex
	added     []listings.ID
	updated   []listings.ID
	removed   []listings.ID
	navigated []listings.ID
	notices   []selection.Notice
}

func newHarness(t *testing.T, opts ...listingmap.Option) *harness {
	t.Helper()
	h := &harness{
		store:   memory.New(memory.WithLogger(logging.NewNopLogger())),
		surface: surface.NewRecorder(),
	}
	opts = append([]listingmap.Option{
		listingmap.WithLogger(logging.NewNopLogger()),
		listingmap.WithGeocoder(geocoding.DarEsSalaam()),
		listingmap.WithRetry(10*time.Millisecond, 20*time.Millisecond, 0),
	}, opts...)
	sc, err := listingmap.New(h.store, h.surface, opts...)
	require.NoError(t, err)
	h.screen = sc
	t.Cleanup(sc.Destroy)

	sc.OnListingAdded(func(l listings.Listing) { h.record(&h.added, l.ID) })
	sc.OnListingUpdated(func(_, l listings.Listing) { h.record(&h.updated, l.ID) })
	sc.OnListingRemoved(func(l listings.Listing) { h.record(&h.removed, l.ID) })
	sc.OnNavigate(func(id listings.ID) { h.record(&h.navigated, id) })
	sc.OnNotice(func(n selection.Notice) {
		h.mu.Lock()
		h.notices = append(h.notices, n)
		h.mu.Unlock()
	})
	return h
}

func (h *harness) record(dst *[]listings.ID, id listings.ID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	*dst = append(*dst, id)
}

func (h *harness) ids(src *[]listings.ID) []listings.ID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]listings.ID(nil), *src...)
}

func (h *harness) noticeKinds() []selection.NoticeKind {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]selection.NoticeKind, 0, len(h.notices))
	for _, n := range h.notices {
		out = append(out, n.Kind)
	}
	return out
}

func (h *harness) listingMarkers() []reconciler.Marker {
	var out []reconciler.Marker
	for _, m := range h.screen.Markers() {
		if m.Kind == reconciler.KindListing.String() {
			out = append(out, m)
		}
	}
	return out
}

func (h *harness) waitListings(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return len(h.listingMarkers()) == n }, wait, tick, "%d listing markers", n)
}

func (h *harness) show(t *testing.T) {
	t.Helper()
	require.NoError(t, h.screen.Visible())
	require.Eventually(t, func() bool { return h.screen.State() == subscription.Active }, wait, tick)
}

func room(id string, at listings.Coordinate, price float64) listings.Listing {
	return listings.Listing{ID: listings.ID(id), Title: "Room " + id, Price: price, Position: at, Available: true}
}

func TestNewValidates(t *testing.T) {
	_, err := listingmap.New(nil, surface.NewRecorder())
	assert.True(t, errors.IsValidationError(err))

	_, err = listingmap.New(memory.New(), nil)
	assert.True(t, errors.IsValidationError(err))

	_, err = listingmap.New(memory.New(), surface.NewRecorder(), listingmap.WithRetry(0, time.Second, 0))
	assert.True(t, errors.IsValidationError(err))

	_, err = listingmap.New(memory.New(), surface.NewRecorder(),
		listingmap.WithDefaultCamera(listings.Coordinate{Lat: 95, Lng: 0}, 10))
	assert.True(t, errors.IsValidationError(err))
}

func TestVisibleDrawsListings(t *testing.T) {
	h := newHarness(t)
	h.store.Put(room("r1", sinza, 500))
	h.store.Put(room("r2", listings.Coordinate{Lat: -6.76, Lng: 39.25}, 800))

	assert.Equal(t, subscription.Idle, h.screen.State())
	h.show(t)
	h.waitListings(t, 2)

	ops := h.surface.Ops()
	require.NotEmpty(t, ops)
	assert.Equal(t, surface.OpCamera, ops[0].Kind, "camera moves to the default area first")
	assert.Equal(t, constants.DefaultZoom, ops[0].Camera.Zoom)

	require.Eventually(t, func() bool { return len(h.ids(&h.added)) == 2 }, wait, tick)
	assert.ElementsMatch(t, []listings.ID{"r1", "r2"}, h.ids(&h.added))
}

func TestLiveChangesFlowThroughHooks(t *testing.T) {
	h := newHarness(t)
	h.store.Put(room("r1", sinza, 500))
	h.show(t)
	h.waitListings(t, 1)
	before := h.listingMarkers()[0].Handle

	h.store.Put(room("r1", sinza, 600))
	require.Eventually(t, func() bool { return len(h.ids(&h.updated)) == 1 }, wait, tick)
	assert.Equal(t, before, h.listingMarkers()[0].Handle, "updates keep the handle")
	assert.Contains(t, h.listingMarkers()[0].Options.Snippet, "600")

	require.NoError(t, h.store.SetAvailable("r1", false))
	require.Eventually(t, func() bool { return len(h.ids(&h.removed)) == 1 }, wait, tick)
	h.waitListings(t, 0)
}

func TestHiddenKeepsStaleMarkersUntilRefresh(t *testing.T) {
	h := newHarness(t)
	h.store.Put(room("r1", sinza, 500))
	h.show(t)
	h.waitListings(t, 1)

	h.screen.Hidden()
	assert.Equal(t, subscription.Paused, h.screen.State())
	h.store.Put(room("r2", listings.Coordinate{Lat: -6.76, Lng: 39.25}, 800))

	require.NoError(t, h.screen.Visible())
	assert.Equal(t, subscription.Paused, h.screen.State())
	assert.Len(t, h.listingMarkers(), 1)

	h.screen.Hidden()
	h.screen.RequestRefresh()
	h.show(t)
	h.waitListings(t, 2)
}

func TestTransportErrorIsNonFatal(t *testing.T) {
	h := newHarness(t)
	h.store.Put(room("r1", sinza, 500))
	h.show(t)
	h.waitListings(t, 1)

	h.store.FailSubscribers(errors.New("stream reset"))
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]selection.NoticeKind{selection.NoticeTransport}, h.noticeKinds())
	}, wait, tick)
	assert.Len(t, h.listingMarkers(), 1, "markers are kept")

	// the retry resubscribes on its own
	require.Eventually(t, func() bool { return h.screen.State() == subscription.Active }, wait, tick)
}

func TestMarkerClick(t *testing.T) {
	h := newHarness(t)
	h.store.Put(room("r1", sinza, 500))
	h.show(t)
	h.waitListings(t, 1)

	listing := h.listingMarkers()[0]
	assert.True(t, h.screen.OnMarkerClick(listing.Handle))
	assert.Equal(t, []listings.ID{"r1"}, h.ids(&h.navigated))

	_, err := h.screen.Search(context.Background(), "Kariakoo")
	require.NoError(t, err)
	var search reconciler.Marker
	for _, m := range h.screen.Markers() {
		if m.Kind == reconciler.KindSearchResult.String() {
			search = m
		}
	}
	require.NotZero(t, search.Handle)
	assert.False(t, h.screen.OnMarkerClick(search.Handle))
	assert.False(t, h.screen.OnMarkerClick(9999))
	assert.Len(t, h.ids(&h.navigated), 1)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.store.Put(room("r1", sinza, 500))
	h.show(t)
	h.waitListings(t, 1)

	t.Run("hit places marker and recenters", func(t *testing.T) {
		place, err := h.screen.Search(ctx, "  masaki ")
		require.NoError(t, err)
		assert.Equal(t, "Masaki", place.Label)
		cam := h.surface.Camera()
		assert.Equal(t, place.Position, cam.Center)
		assert.Equal(t, constants.UserZoom, cam.Zoom)
	})

	t.Run("second hit replaces the marker", func(t *testing.T) {
		_, err := h.screen.Search(ctx, "Posta")
		require.NoError(t, err)
		n := 0
		for _, m := range h.screen.Markers() {
			if m.Kind == reconciler.KindSearchResult.String() {
				n++
				assert.Equal(t, "Posta", m.Options.Snippet)
			}
		}
		assert.Equal(t, 1, n)
	})

	t.Run("miss leaves markers untouched", func(t *testing.T) {
		before := h.screen.Markers()
		ops := len(h.surface.Ops())
		_, err := h.screen.Search(ctx, "Atlantis")
		assert.True(t, errors.IsNotFound(err))
		assert.Equal(t, before, h.screen.Markers())
		assert.Len(t, h.surface.Ops(), ops)
		assert.Contains(t, h.noticeKinds(), selection.NoticeGeocodeNotFound)
	})

	t.Run("blank query short-circuits", func(t *testing.T) {
		_, err := h.screen.Search(ctx, " \t ")
		assert.ErrorIs(t, err, geocoding.ErrEmptyQuery)
		assert.Contains(t, h.noticeKinds(), selection.NoticeEmptyQuery)
	})

	t.Run("clear", func(t *testing.T) {
		assert.True(t, h.screen.ClearSearch())
		assert.False(t, h.screen.ClearSearch())
		h.waitListings(t, 1)
		assert.Len(t, h.screen.Markers(), 1)
	})
}

func TestSearchDiscardedWhileHidden(t *testing.T) {
	h := newHarness(t)
	h.show(t)
	h.screen.Hidden()

	_, err := h.screen.Search(context.Background(), "Sinza")
	assert.ErrorIs(t, err, errors.ErrInactive)
	assert.Empty(t, h.screen.Markers())
}

func TestSearchWithoutGeocoder(t *testing.T) {
	sc, err := listingmap.New(memory.New(), surface.NewRecorder(), listingmap.WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)
	defer sc.Destroy()

	_, err = sc.Search(context.Background(), "Sinza")
	var cfgErr *errors.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

// gatedGeocoder answers forward lookups once released.
type gatedGeocoder struct {
	geocoding.Geocoder
	release chan struct{}
}

func (g *gatedGeocoder) Forward(ctx context.Context, q string) (geocoding.Place, error) {
	select {
	case <-g.release:
	case <-ctx.Done():
		return geocoding.Place{}, ctx.Err()
	}
	return g.Geocoder.Forward(ctx, q)
}

func TestSearchAsyncDoesNotBlock(t *testing.T) {
	geo := &gatedGeocoder{Geocoder: geocoding.DarEsSalaam(), release: make(chan struct{})}
	h := newHarness(t, listingmap.WithGeocoder(geo))
	h.show(t)

	type outcome struct {
		place geocoding.Place
		err   error
	}
	got := make(chan outcome, 1)
	h.screen.SearchAsync(context.Background(), "Masaki", func(p geocoding.Place, err error) {
		got <- outcome{p, err}
	})

	// the caller is back before the lookup finished
	assert.Empty(t, h.screen.Markers())
	close(geo.release)

	select {
	case o := <-got:
		require.NoError(t, o.err)
		assert.Equal(t, "Masaki", o.place.Label)
	case <-time.After(wait):
		t.Fatal("search never reported")
	}
	markers := h.screen.Markers()
	require.Len(t, markers, 1)
	assert.Equal(t, reconciler.KindSearchResult.String(), markers[0].Kind)
}

func TestSearchAsyncResultDiscardedAfterHide(t *testing.T) {
	geo := &gatedGeocoder{Geocoder: geocoding.DarEsSalaam(), release: make(chan struct{})}
	h := newHarness(t, listingmap.WithGeocoder(geo))
	h.show(t)

	got := make(chan error, 1)
	h.screen.SearchAsync(context.Background(), "Masaki", func(_ geocoding.Place, err error) {
		got <- err
	})
	h.screen.Hidden()
	close(geo.release)

	select {
	case err := <-got:
		assert.ErrorIs(t, err, errors.ErrInactive)
	case <-time.After(wait):
		t.Fatal("search never reported")
	}
	assert.Empty(t, h.screen.Markers())
}

func TestFollow(t *testing.T) {
	kariakoo := listings.Coordinate{Lat: -6.8162, Lng: 39.2803}

	t.Run("marker tracks the device", func(t *testing.T) {
		platform := location.NewScripted().QueueFresh(20, sinza, kariakoo)
		h := newHarness(t, listingmap.WithLocationPlatform(platform))
		h.show(t)
		zoom := h.surface.Camera().Zoom

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		done := make(chan error, 1)
		go func() { done <- h.screen.Follow(ctx, 2*time.Millisecond) }()

		require.Eventually(t, func() bool {
			markers := h.screen.Markers()
			return len(markers) == 1 && markers[0].Options.Position == kariakoo
		}, wait, tick)
		assert.Equal(t, reconciler.KindCurrentLocation.String(), h.screen.Markers()[0].Kind)
		assert.Equal(t, zoom, h.surface.Camera().Zoom, "following does not move the camera")

		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)
	})

	t.Run("denied", func(t *testing.T) {
		h := newHarness(t, listingmap.WithLocationPlatform(location.NewScripted().Deny()))
		h.show(t)
		err := h.screen.Follow(context.Background(), time.Millisecond)
		assert.True(t, errors.IsPermissionDenied(err))
		assert.Equal(t, []selection.NoticeKind{selection.NoticePermissionDenied}, h.noticeKinds())
	})

	t.Run("without platform", func(t *testing.T) {
		h := newHarness(t)
		var cfgErr *errors.ConfigError
		assert.True(t, errors.As(h.screen.Follow(context.Background(), 0), &cfgErr))
	})
}

func TestLocate(t *testing.T) {
	ctx := context.Background()

	t.Run("fix places the current-location marker", func(t *testing.T) {
		platform := location.NewScripted().WithLastKnown(sinza, 10)
		h := newHarness(t, listingmap.WithLocationPlatform(platform))
		h.show(t)

		fix, err := h.screen.Locate(ctx)
		require.NoError(t, err)
		assert.Equal(t, sinza, fix.Position)

		markers := h.screen.Markers()
		require.Len(t, markers, 1)
		assert.Equal(t, reconciler.KindCurrentLocation.String(), markers[0].Kind)
		assert.Equal(t, listings.IconCurrentLocation, markers[0].Options.Icon)
		assert.Equal(t, constants.UserZoom, h.surface.Camera().Zoom)

		// a second fix moves the same marker
		_, err = h.screen.Locate(ctx)
		require.NoError(t, err)
		assert.Len(t, h.screen.Markers(), 1)
	})

	t.Run("denial falls back to the default area", func(t *testing.T) {
		platform := location.NewScripted().Deny()
		h := newHarness(t, listingmap.WithLocationPlatform(platform))
		h.show(t)

		fix, err := h.screen.Locate(ctx)
		assert.True(t, errors.IsPermissionDenied(err))
		assert.True(t, fix.Default)
		assert.Empty(t, h.screen.Markers())
		assert.Equal(t, constants.DefaultZoom, h.surface.Camera().Zoom)
		assert.Equal(t, []selection.NoticeKind{selection.NoticePermissionDenied}, h.noticeKinds())

		_, err = h.screen.Locate(ctx)
		assert.True(t, errors.IsPermissionDenied(err))
		requests, _, _ := platform.Calls()
		assert.Equal(t, 1, requests, "permission is asked once per denial")
	})

	t.Run("without platform", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.screen.Locate(ctx)
		var cfgErr *errors.ConfigError
		assert.True(t, errors.As(err, &cfgErr))
	})
}

func TestFitToListings(t *testing.T) {
	h := newHarness(t)
	h.show(t)

	_, ok := h.screen.FitToListings()
	assert.False(t, ok)

	h.store.Put(room("r1", listings.Coordinate{Lat: -6.80, Lng: 39.20}, 500))
	h.store.Put(room("r2", listings.Coordinate{Lat: -6.70, Lng: 39.30}, 500))
	h.waitListings(t, 2)

	cam, ok := h.screen.FitToListings()
	require.True(t, ok)
	assert.InDelta(t, -6.75, cam.Center.Lat, 1e-9)
	assert.InDelta(t, 39.25, cam.Center.Lng, 1e-9)
	assert.Equal(t, h.surface.Camera(), cam)
}

func TestDetails(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.store.Put(room("r1", sinza, 500))

	l, err := h.screen.Details(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Room r1", l.Title)

	_, err = h.screen.Details(ctx, "nope")
	assert.True(t, errors.IsNotFound(err))

	_, err = h.screen.Details(ctx, "")
	assert.True(t, errors.IsValidationError(err))
}

func TestDestroyIsTerminal(t *testing.T) {
	h := newHarness(t)
	h.store.Put(room("r1", sinza, 500))
	h.show(t)
	h.waitListings(t, 1)
	handle := h.listingMarkers()[0].Handle

	h.screen.Destroy()
	assert.Equal(t, subscription.Idle, h.screen.State())
	assert.ErrorIs(t, h.screen.Visible(), errors.ErrInactive)
	assert.False(t, h.screen.OnMarkerClick(handle))
	assert.Zero(t, h.store.Subscribers())
	assert.Empty(t, h.screen.Markers())

	_, err := h.screen.Search(context.Background(), "Sinza")
	assert.ErrorIs(t, err, errors.ErrInactive)
	h.screen.Destroy()
}

func TestMetricsWiring(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := newHarness(t, listingmap.WithMetrics(metrics.New(reg)))
	h.store.Put(room("r1", sinza, 500))
	h.show(t)
	h.waitListings(t, 1)
	_, _ = h.screen.Search(context.Background(), "Atlantis")

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["listingmap_subscription_state"])
	assert.True(t, names["listingmap_geocode_requests_total"])
	require.Eventually(t, func() bool {
		families, _ := reg.Gather()
		for _, f := range families {
			if f.GetName() == "listingmap_reconcile_operations_total" {
				return true
			}
		}
		return false
	}, wait, tick)
}
