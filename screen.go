// Package listingmap keeps a map of rental listings in step with a live
// remote query. A Screen owns one map surface: it subscribes while visible,
// reconciles every snapshot into minimal marker operations, places the
// current-location and search markers, and routes marker taps and
// non-fatal notices back to the host UI.
package listingmap

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/listingmap/internal/geocoding"
	"github.com/agentstation/listingmap/internal/location"
	"github.com/agentstation/listingmap/internal/selection"
	"github.com/agentstation/listingmap/internal/store"
	"github.com/agentstation/listingmap/internal/subscription"
	"github.com/agentstation/listingmap/pkg/constants"
	"github.com/agentstation/listingmap/pkg/errors"
	"github.com/agentstation/listingmap/pkg/listings"
	"github.com/agentstation/listingmap/pkg/logging"
	"github.com/agentstation/listingmap/pkg/reconciler"
	"github.com/agentstation/listingmap/pkg/surface"
)

// Screen is one map screen bound to a listing store and a map surface
type Screen interface {
	// Visible is called when the screen comes to the foreground
	Visible() error

	// Hidden is called when the screen leaves the foreground
	Hidden()

	// Destroy tears the screen down; it cannot be reused
	Destroy()

	// RequestRefresh makes the next Visible resubscribe
	RequestRefresh()

	// Locate places the current-location marker and recenters the camera
	Locate(ctx context.Context) (location.Fix, error)

	// Follow keeps the current-location marker on the device position until ctx ends
	Follow(ctx context.Context, interval time.Duration) error

	// Search geocodes query, places the search marker and recenters the camera
	Search(ctx context.Context, query string) (geocoding.Place, error)

	// SearchAsync is Search without blocking; done receives the outcome
	SearchAsync(ctx context.Context, query string, done func(geocoding.Place, error))

	// ClearSearch removes the search marker
	ClearSearch() bool

	// OnMarkerClick handles a tap and reports whether it was consumed
	OnMarkerClick(h surface.Handle) bool

	// FitToListings centers the camera on the listing markers
	FitToListings() (surface.Camera, bool)

	// Markers returns every drawn marker
	Markers() []reconciler.Marker

	// Details fetches one listing for the details view
	Details(ctx context.Context, id listings.ID) (listings.Listing, error)

	// State returns the subscription state
	State() subscription.State

	// OnListingAdded registers a callback for new markers
	OnListingAdded(ListingAddedHook)

	// OnListingUpdated registers a callback for changed listings
	OnListingUpdated(ListingUpdatedHook)

	// OnListingRemoved registers a callback for removed markers
	OnListingRemoved(ListingRemovedHook)

	// OnNavigate registers a callback for listing taps
	OnNavigate(NavigateHook)

	// OnNotice registers a callback for notices
	OnNotice(NoticeHook)

	// OnStateChange registers a callback for subscription transitions
	OnStateChange(StateChangeHook)
}

// screen is the internal implementation of the Screen interface
type screen struct {
	*hooks

	store    store.Store
	surface  surface.Surface
	rec      *reconciler.Reconciler
	subs     *subscription.Manager
	locator  *location.Provider
	geocoder geocoding.Geocoder
	lookups  *geocoding.Async
	sel      *selection.Coordinator
	config   *config
	logger   *zerolog.Logger

	mu      sync.RWMutex
	alive   bool
	visible bool
	shown   bool
}

var _ Screen = (*screen)(nil)

// New creates a Screen drawing listings from st onto surf. The screen
// starts hidden; call Visible to subscribe.
func New(st store.Store, surf surface.Surface, opts ...Option) (Screen, error) {
	return newScreen(st, surf, opts...)
}

func newScreen(st store.Store, surf surface.Surface, opts ...Option) (*screen, error) {
	if st == nil {
		return nil, &errors.ValidationError{Field: "store", Message: "cannot be nil"}
	}
	if surf == nil {
		return nil, &errors.ValidationError{Field: "surface", Message: "cannot be nil"}
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("applying options: %w", err)
		}
	}
	logger := logging.OrDefault(cfg.logger)

	s := &screen{
		hooks:   newHooks(),
		store:   st,
		surface: surf,
		config:  cfg,
		logger:  logger,
		alive:   true,
	}

	rec, err := reconciler.New(surf,
		reconciler.WithLogger(logger),
		reconciler.WithLocale(cfg.locale),
		reconciler.WithDifferOptions(cfg.differOpts...),
		reconciler.WithSkippedHandler(s.report),
	)
	if err != nil {
		return nil, fmt.Errorf("creating reconciler: %w", err)
	}
	s.rec = rec

	s.sel = selection.New(rec,
		selection.NavigatorFunc(s.navigate),
		selection.NotifierFunc(s.hooks.triggerNotice),
		logger,
	)

	s.subs, err = subscription.New(st, rec,
		subscription.WithLogger(logger),
		subscription.WithFilter(cfg.filter),
		subscription.WithBufferSize(cfg.bufferSize),
		subscription.WithRetry(cfg.retryBase, cfg.retryMax, cfg.maxRetries),
		subscription.OnStateChange(s.stateChanged),
		subscription.OnError(s.report),
		subscription.OnResult(s.applied),
		subscription.OnRetry(cfg.metrics.ObserveRetry),
	)
	if err != nil {
		return nil, fmt.Errorf("creating subscription: %w", err)
	}

	if cfg.platform != nil {
		s.locator = location.NewProvider(cfg.platform,
			location.WithDefault(cfg.center),
			location.WithLogger(logger),
		)
	}
	if cfg.geocoder != nil {
		s.geocoder = cfg.geocoder
		if cfg.metrics != nil {
			s.geocoder = geocoding.NewObserved(cfg.geocoder, cfg.metrics.ObserveGeocode)
		}
		s.lookups = geocoding.NewAsync(s.geocoder, cfg.geocodeTimeout)
	}

	cfg.metrics.SetState(subscription.Idle)
	return s, nil
}

// active reports whether one-shot results may still touch the surface.
func (s *screen) active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.alive && s.visible
}

func (s *screen) isAlive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.alive
}

// Visible subscribes unless a query is already held. The first call also
// moves the camera to the default position.
func (s *screen) Visible() error {
	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return errors.ErrInactive
	}
	s.visible = true
	first := !s.shown
	s.shown = true
	s.mu.Unlock()

	if first {
		s.surface.MoveCamera(s.config.center, s.config.defaultZoom)
	}
	return s.subs.Visible()
}

// Hidden releases the live query. Markers stay as they are.
func (s *screen) Hidden() {
	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return
	}
	s.visible = false
	s.mu.Unlock()
	s.subs.Hidden()
}

// Destroy releases the query and the marker map. Late callbacks become
// no-ops.
func (s *screen) Destroy() {
	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return
	}
	s.alive = false
	s.visible = false
	s.mu.Unlock()

	s.subs.Destroy()
	s.rec.Release()
	s.logger.Debug().Msg("Screen destroyed")
}

// RequestRefresh marks the markers stale, e.g. after a listing was posted.
func (s *screen) RequestRefresh() {
	s.subs.RequestRefresh()
}

// Locate resolves the user's position. On success the current-location
// marker moves there and the camera follows. When permission is denied
// the camera falls back to the default area and the denial is returned.
func (s *screen) Locate(ctx context.Context) (location.Fix, error) {
	if !s.isAlive() {
		return location.Fix{}, errors.ErrInactive
	}
	if s.locator == nil {
		return location.Fix{}, errors.NewConfigError("location", "no location platform configured", nil)
	}

	fix, err := s.locator.Locate(ctx)
	if !s.active() {
		s.logger.Debug().Msg("Discarding location result for inactive screen")
		return fix, errors.ErrInactive
	}
	if err != nil {
		if errors.IsPermissionDenied(err) {
			s.surface.MoveCamera(fix.Position, s.config.defaultZoom)
		}
		s.sel.Notify(selection.LocationNotice(err))
		return fix, err
	}

	if _, err := s.rec.SetCurrentLocation(fix.Position); err != nil {
		return fix, err
	}
	s.surface.MoveCamera(fix.Position, s.config.userZoom)
	return fix, nil
}

// Follow moves the current-location marker whenever the device leaves
// the previous fix's accuracy radius. The camera stays where it is. It
// returns when ctx ends, or at once when permission is refused.
func (s *screen) Follow(ctx context.Context, interval time.Duration) error {
	if !s.isAlive() {
		return errors.ErrInactive
	}
	if s.locator == nil {
		return errors.NewConfigError("location", "no location platform configured", nil)
	}
	if interval <= 0 {
		interval = constants.FollowInterval
	}
	err := s.locator.Watch(ctx, interval, func(fix location.Fix) {
		if !s.active() {
			return
		}
		if _, err := s.rec.SetCurrentLocation(fix.Position); err != nil {
			s.logger.Debug().Err(err).Msg("Current location not moved")
		}
	})
	if errors.IsPermissionDenied(err) {
		s.sel.Notify(selection.LocationNotice(err))
	}
	return err
}

// Search runs a forward lookup and waits for it. A hit replaces the search
// marker and recenters the camera; a miss or failure leaves every marker
// untouched. Blank queries return geocoding.ErrEmptyQuery without a round
// trip.
func (s *screen) Search(ctx context.Context, query string) (geocoding.Place, error) {
	type outcome struct {
		place geocoding.Place
		err   error
	}
	ch := make(chan outcome, 1)
	s.SearchAsync(ctx, query, func(p geocoding.Place, err error) {
		ch <- outcome{p, err}
	})
	o := <-ch
	return o.place, o.err
}

// SearchAsync starts a forward lookup and returns at once. done runs on
// the lookup's goroutine after the markers were updated. A result that
// arrives after the screen was hidden or destroyed is discarded and done
// gets ErrInactive.
func (s *screen) SearchAsync(ctx context.Context, query string, done func(geocoding.Place, error)) {
	if done == nil {
		done = func(geocoding.Place, error) {}
	}
	if !s.isAlive() {
		done(geocoding.Place{}, errors.ErrInactive)
		return
	}
	if s.lookups == nil {
		done(geocoding.Place{}, errors.NewConfigError("geocoder", "no geocoder configured", nil))
		return
	}
	q, err := geocoding.NormalizeQuery(query)
	if err != nil {
		s.sel.Notify(selection.NoticeFor(err))
		done(geocoding.Place{}, err)
		return
	}
	s.lookups.Forward(ctx, q, func(place geocoding.Place, err error) {
		done(s.placeSearch(q, place, err))
	})
}

func (s *screen) placeSearch(q string, place geocoding.Place, err error) (geocoding.Place, error) {
	if !s.active() {
		s.logger.Debug().Str("query", q).Msg("Discarding search result for inactive screen")
		return place, errors.ErrInactive
	}
	if err != nil {
		s.sel.Report(err)
		return geocoding.Place{}, err
	}

	label := place.Label
	if label == "" {
		label = q
	}
	if _, err := s.rec.SetSearchResult(place.Position, label); err != nil {
		return place, err
	}
	s.surface.MoveCamera(place.Position, s.config.userZoom)
	return place, nil
}

// ClearSearch removes the search marker.
func (s *screen) ClearSearch() bool {
	if !s.isAlive() {
		return false
	}
	return s.rec.ClearReserved(reconciler.KindSearchResult)
}

// OnMarkerClick consumes taps on listing markers and emits a navigation
// event. Taps on reserved or unknown markers are left to the surface.
func (s *screen) OnMarkerClick(h surface.Handle) bool {
	if !s.active() {
		return false
	}
	_, ok := s.sel.OnMarkerClicked(h)
	return ok
}

// FitToListings moves the camera to frame every listing marker. It reports
// false when there are none.
func (s *screen) FitToListings() (surface.Camera, bool) {
	if !s.active() {
		return surface.Camera{}, false
	}
	cam, ok := fitCamera(s.rec.Positions(), s.config.userZoom)
	if !ok {
		return cam, false
	}
	s.surface.MoveCamera(cam.Center, cam.Zoom)
	return cam, true
}

// Markers returns every drawn marker ordered by handle.
func (s *screen) Markers() []reconciler.Marker {
	return s.rec.Markers()
}

// Details fetches and decodes one listing. It never touches the surface.
func (s *screen) Details(ctx context.Context, id listings.ID) (listings.Listing, error) {
	if id == "" {
		return listings.Listing{}, &errors.ValidationError{Field: "id", Message: "cannot be empty"}
	}
	ctx, cancel := context.WithTimeout(ctx, constants.FetchTimeout)
	defer cancel()

	recd, err := s.store.FetchOne(ctx, id)
	if err != nil {
		return listings.Listing{}, err
	}
	return listings.Decode(recd)
}

// State returns the subscription state.
func (s *screen) State() subscription.State {
	return s.subs.State()
}

func (s *screen) navigate(id listings.ID) {
	s.hooks.triggerNavigate(id)
}

// report routes a non-fatal error to the notice hooks.
func (s *screen) report(err error) {
	if !s.isAlive() {
		return
	}
	s.sel.Report(err)
}

func (s *screen) stateChanged(t subscription.Transition) {
	s.config.metrics.SetState(t.To)
	s.hooks.triggerStateChange(t)
}

func (s *screen) applied(res *reconciler.Result) {
	s.config.metrics.ObserveResult(res)
	if !s.isAlive() {
		return
	}
	s.hooks.triggerChangeset(res.Changeset)
}
